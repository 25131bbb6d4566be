package admin

import (
	"net/http"
	"strconv"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/httpx"
	"github.com/SaeedRasheed12/rent-app/internal/middleware"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

type Handler struct {
	svc           *Service
	maxUploadSize int64
}

func NewHandler(svc *Service, maxUploadSize int64) *Handler {
	return &Handler{svc: svc, maxUploadSize: maxUploadSize}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/admin/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	token, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"token": token})
}

// Users handles GET /api/admin/users.
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"users": d.Users, "settings": d.Settings})
}

// User handles GET /api/admin/users/{id}.
func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.User(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user": d.User, "listings": d.Listings, "history": d.History})
}

// Listing handles GET /api/admin/listings/{id}.
func (h *Handler) Listing(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	d, err := h.svc.Listing(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"listing": d.Listing, "owner": d.Owner})
}

// Block handles POST /api/admin/users/{id}/block.
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) { h.setBlocked(w, r, true) }

// Unblock handles POST /api/admin/users/{id}/unblock.
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) { h.setBlocked(w, r, false) }

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.SetBlocked(r.Context(), middleware.AdminName(r.Context()), id, blocked); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"user_id": id, "is_blocked": blocked})
}

// Delete handles DELETE /api/admin/users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if err := h.svc.DeleteUser(r.Context(), middleware.AdminName(r.Context()), id); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"message": "User deleted"})
}

// Settings handles POST /api/admin/settings as multipart with
// platform_name and an optional "logo" file.
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httpx.Error(w, r, apperr.Validation("invalid multipart form"))
		return
	}

	var name *string
	if vs, ok := r.MultipartForm.Value["platform_name"]; ok && len(vs) > 0 {
		name = &vs[0]
	}
	var logo *Logo
	file, header, err := r.FormFile("logo")
	switch {
	case err == nil:
		defer file.Close()
		logo = &Logo{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	case err != http.ErrMissingFile:
		httpx.Error(w, r, apperr.Validation("invalid logo file"))
		return
	}

	st, err := h.svc.UpdateSettings(r.Context(), middleware.AdminName(r.Context()), name, logo)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"settings": st})
}

// Banner handles POST /api/admin/banner.
func (h *Handler) Banner(w http.ResponseWriter, r *http.Request) {
	var b models.Banner
	if err := httpx.DecodeJSON(r, &b); err != nil {
		httpx.Error(w, r, err)
		return
	}
	out, err := h.svc.SaveBanner(r.Context(), middleware.AdminName(r.Context()), b)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"banner": out})
}

// Audit handles GET /api/admin/audit?limit=.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	var limit int64
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Error(w, r, apperr.Validation("invalid limit"))
			return
		}
		limit = n
	}
	entries, err := h.svc.Audit(r.Context(), limit)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"entries": entries})
}
