package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"itsite/auth"
	"itsite/i18n"

	"github.com/gorilla/csrf"
)

type credentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) SessionHandler(w http.ResponseWriter, r *http.Request) {
	sess := s.sessionFor(w, r)
	if token := csrf.Token(r); token != "" {
		w.Header().Set("X-CSRF-Token", token)
	}
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Data: sess.Status()})
}

func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	ip := getClientIP(r)
	if !s.loginLimiter.Allow(ip) {
		sendJSONResponse(w, http.StatusTooManyRequests, APIResponse{Status: "error", Message: i18n.T(lang, "TooManyAttempts")})
		return
	}

	var input credentialsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}

	sess := s.sessionFor(w, r)
	if !sess.Login(input.Email, input.Password) {
		s.loginLimiter.RecordFailure(ip)
		sendJSONResponse(w, http.StatusUnauthorized, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidCredentials")})
		return
	}

	s.loginLimiter.Reset(ip)
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: i18n.T(lang, "LoggedIn"), Data: sess.Status()})
}

func (s *Server) SignupHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)

	ip := getClientIP(r)
	if !s.signupLimiter.Allow(ip) {
		sendJSONResponse(w, http.StatusTooManyRequests, APIResponse{Status: "error", Message: i18n.T(lang, "TooManyAttempts")})
		return
	}

	var input credentialsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" || input.Password == "" {
		sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		return
	}

	sess := s.sessionFor(w, r)
	if err := sess.Register(input.Email, input.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailTaken):
			sendJSONResponse(w, http.StatusConflict, APIResponse{Status: "error", Message: i18n.T(lang, "EmailAlreadyExists")})
		case errors.Is(err, auth.ErrEmailReserved):
			sendJSONResponse(w, http.StatusConflict, APIResponse{Status: "error", Message: i18n.T(lang, "EmailReserved")})
		case errors.Is(err, auth.ErrInvalidSignup):
			sendJSONResponse(w, http.StatusBadRequest, APIResponse{Status: "error", Message: i18n.T(lang, "InvalidRequestBody")})
		default:
			sendJSONResponse(w, http.StatusInternalServerError, APIResponse{Status: "error", Message: i18n.T(lang, "UnknownError")})
		}
		return
	}

	// Record signup attempt to limit rate of creation per IP
	s.signupLimiter.RecordFailure(ip)

	sendJSONResponse(w, http.StatusCreated, APIResponse{Status: "success", Message: i18n.T(lang, "SignedUp"), Data: sess.Status()})
}

func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	lang := i18n.DetectLanguage(r)
	sess := s.sessionFor(w, r)
	sess.Logout()
	sendJSONResponse(w, http.StatusOK, APIResponse{Status: "success", Message: i18n.T(lang, "LoggedOut"), Data: sess.Status()})
}
