package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/httpx"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// Handler holds identity HTTP handlers.
type Handler struct {
	svc      *Service
	sessions Sessions
}

func NewHandler(svc *Service, sessions Sessions) *Handler {
	return &Handler{svc: svc, sessions: sessions}
}

// Signup handles POST /api/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	user, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	log.Info().Int64("user_id", user.ID).Msg("user signed up")
	httpx.OK(w, http.StatusCreated, httpx.M{"user": user})
}

// Login handles POST /api/login and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	user, err := h.svc.Login(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}

	sid, err := h.sessions.Create(r.Context(), user.ID)
	if err != nil {
		httpx.Error(w, r, apperr.Internal(err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})
	httpx.OK(w, http.StatusOK, httpx.M{"user": user, "token": sid})
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := SessionID(r); sid != "" {
		if err := h.sessions.Delete(r.Context(), sid); err != nil {
			log.Warn().Err(err).Msg("session delete failed")
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	httpx.OK(w, http.StatusOK, httpx.M{"message": "logged out"})
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := UserID(r.Context())
	if id == 0 {
		httpx.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	user, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": user})
}

// Profile handles GET /api/profile/{id}.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	user, err := h.svc.Profile(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": user})
}

// UpdateProfile handles POST /api/profile/update.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.ProfileUpdate
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	user, err := h.svc.UpdateProfile(r.Context(), req)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": user})
}

// ChangePassword handles POST /api/profile/change_password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req models.PasswordChange
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.ChangePassword(r.Context(), req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"message": "Password updated"})
}

// SessionID reads the session id from the cookie or a Bearer header.
func SessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if authz := r.Header.Get("Authorization"); len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}
