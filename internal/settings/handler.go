package settings

import (
	"net/http"

	"github.com/SaeedRasheed12/rent-app/internal/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Get handles GET /api/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Get(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"settings": st})
}

// Banner handles GET /api/banner. An absent banner is reported as null.
func (h *Handler) Banner(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Banner(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"banner": b})
}
