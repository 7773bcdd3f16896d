package handlers

import (
	"context"
	"net/http"
	"time"

	"itsite/i18n"
	"itsite/remotelist"
)

type collectionStatus struct {
	State     remotelist.State `json:"state"`
	Items     int              `json:"items"`
	Error     string           `json:"error,omitempty"`
	FetchedAt time.Time        `json:"fetchedAt,omitzero"`
}

// CollectionHandler triggers the named collection and returns its snapshot.
// The selection is computed per request from ?selected= so visitors don't
// share hover state.
func (s *Server) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	sync, ok := s.Lists.Get(r.PathValue("name"))
	if !ok {
		sendJSONResponse(w, http.StatusNotFound, APIResponse{Status: "error", Message: i18n.T(lang, "UnknownCollection")})
		return
	}

	trigger, err := remotelist.ParseTrigger(r.URL.Query().Get("trigger"))
	if err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidTrigger")})
		return
	}

	// The collection is shared; a visitor hanging up must not fail it for everyone.
	ctx := context.WithoutCancel(r.Context())
	if sync.Fetch(ctx, trigger) && sync.Snapshot().State == remotelist.Idle {
		// Closed while our fetch was in flight; this visitor still wants the data.
		sync.Fetch(ctx, remotelist.TriggerMount)
	}

	snap := sync.Snapshot().WithSelection(r.URL.Query().Get("selected"))
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: snap})
}

// CloseCollectionHandler tells the sync its surface went away, so a response
// still in flight is dropped. The sync is shared by every visitor, so only the
// admin may close it.
func (s *Server) CloseCollectionHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	if !s.requireAdmin(w, r, lang) {
		return
	}

	sync, ok := s.Lists.Get(r.PathValue("name"))
	if !ok {
		sendJSONResponse(w, http.StatusNotFound, APIResponse{Status: "error", Message: i18n.T(lang, "UnknownCollection")})
		return
	}
	sync.Close()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: sync.Snapshot()})
}

func (s *Server) AdminCollectionsHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	if !s.requireAdmin(w, r, lang) {
		return
	}

	out := make(map[string]collectionStatus)
	for name, snap := range s.Lists.Snapshots() {
		out[name] = collectionStatus{
			State:     snap.State,
			Items:     len(snap.Items),
			Error:     snap.Error,
			FetchedAt: snap.FetchedAt,
		}
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: out})
}

// requireAdmin answers 401 or 403 and reports false unless the visitor is the admin.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request, lang string) bool {
	sess := s.sessionFor(w, r)
	if !sess.IsAuthenticated() {
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: i18n.T(lang, "Unauthorized")})
		return false
	}
	if !sess.IsAdmin() {
		sendJSONResponse(w, http.StatusForbidden, APIResponse{Status: "error", Message: i18n.T(lang, "Forbidden")})
		return false
	}
	return true
}
