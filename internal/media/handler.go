package media

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/httpx"
)

// Handler exposes direct uploads and the object proxy.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload handles POST /api/upload?kind=image with a multipart "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	kind := Kind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = KindImage
	}
	if err := r.ParseMultipartForm(h.svc.maxBytes + 1<<20); err != nil {
		httpx.Error(w, r, apperr.Validation("expected multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, r, apperr.Validation("file is required"))
		return
	}
	defer file.Close()

	stored, err := h.svc.Upload(r.Context(), Upload{
		Kind:        kind,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"key": stored.Key, "url": stored.URL})
}

// Serve handles GET /api/media/*, streaming an object from the blob store.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	rc, contentType, size, err := h.svc.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	defer rc.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.Copy(w, rc)
}
