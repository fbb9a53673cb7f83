package handler

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/audit"
	apperrors "github.com/studyhive/studyroom-server/internal/errors"
	"github.com/studyhive/studyroom-server/internal/middleware"
	"github.com/studyhive/studyroom-server/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	user, err := h.authService.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if !apperrors.IsAppError(err) {
			log.Error().Err(err).Msg("signup failed")
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventSignup, UserID: user.ID})
	writeJSON(w, http.StatusCreated, user)
}

// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	result, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeUnauthorized {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventLoginFailure,
				Details: map[string]interface{}{"email": req.Email},
			})
		} else if !apperrors.IsAppError(err) {
			log.Error().Err(err).Msg("signin failed")
		}
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess, UserID: result.User.ID})
	writeJSON(w, http.StatusOK, result)
}

// POST /v1/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	if err := h.authService.SignOut(r.Context(), user.ID); err != nil {
		log.Error().Err(err).Int64("userId", user.ID).Msg("signout failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}
