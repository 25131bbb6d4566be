package listing

import (
	"net/http"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/auth"
	"github.com/SaeedRasheed12/rent-app/internal/httpx"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// Handler holds listing HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Add handles POST /api/listings/add. Location fields are ignored.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var in models.NewListing
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	in.Latitude, in.Longitude = nil, nil
	in.City, in.Area, in.Address = "", "", ""
	h.create(w, r, in)
}

// Create handles POST /api/listings/create, which also takes a location.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NewListing
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	h.create(w, r, in)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, in models.NewListing) {
	l, err := h.svc.Create(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"listing": l})
}

// Feed handles GET /api/listings.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	ls, err := h.svc.Feed(r.Context())
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"listings": ls})
}

// Get handles GET /api/listings/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	l, err := h.svc.Get(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"listing": l})
}

// Mine handles GET /api/my_listings/{id}.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	ls, err := h.svc.ByOwner(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"listings": ls})
}

// Delete handles DELETE /api/listings/delete/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	actor := auth.UserID(r.Context())
	if actor == 0 {
		httpx.Error(w, r, apperr.Unauthorized("not authenticated"))
		return
	}
	if err := h.svc.Delete(r.Context(), id, actor); err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"message": "Listing deleted"})
}

type nearbyRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Nearby handles POST /api/listings/nearby.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	var req nearbyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	ls, err := h.svc.Nearby(r.Context(), req.Latitude, req.Longitude)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"nearby": ls})
}

type locationRequest struct {
	City string `json:"city"`
	Area string `json:"area"`
}

// ByLocation handles POST /api/listings/by_location.
func (h *Handler) ByLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	ls, err := h.svc.ByLocation(r.Context(), req.City, req.Area)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"results": ls})
}
