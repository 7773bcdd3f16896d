package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"itsite/backend"
	"itsite/contact"
	"itsite/i18n"
	"itsite/models"

	"github.com/dchest/captcha"
)

type contactInput struct {
	models.ContactRequest
	CaptchaID       string `json:"captchaId"`
	CaptchaSolution string `json:"captchaSolution"`
}

func (s *Server) NewCaptchaHandler(w http.ResponseWriter, r *http.Request) {
	id := captcha.New()
	sendJSONResponse(w, http.StatusOK, APIResponse{
		Status: "success",
		Data: map[string]string{
			"captchaId": id,
			"imageUrl":  "/captcha/" + id + ".png",
		},
	})
}

func (s *Server) ContactHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	var input contactInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}

	req := contact.Normalize(input.ContactRequest)
	if err := contact.Validate(req); err != nil {
		s.sendValidationError(w, lang, err)
		return
	}

	// Captcha ids are single use, so it is checked only once the form itself is valid.
	if !s.VerifyCaptcha(input.CaptchaID, input.CaptchaSolution) {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "CaptchaInvalid")})
		return
	}

	msg, err := s.Contact.Submit(r.Context(), req)
	var serverErr *backend.ServerError
	var transportErr *backend.TransportError
	switch {
	case err == nil:
	case errors.As(err, &serverErr), errors.As(err, &transportErr):
		sendJSONResponse(w, http.StatusBadGateway, APIResponse{Status: "error", Message: err.Error()})
		return
	default:
		sendJSONResponse(w, http.StatusBadGateway, APIResponse{Status: "error", Message: i18n.T(lang, "ContactFailed")})
		return
	}

	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: msg})
}

func (s *Server) sendValidationError(w http.ResponseWriter, lang string, err error) {
	var verr *contact.ValidationError
	if !errors.As(err, &verr) {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}
	fields := make(map[string]string, len(verr.Fields))
	for field, key := range verr.Fields {
		fields[field] = i18n.T(lang, key)
	}
	sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody"), Errors: fields})
}
