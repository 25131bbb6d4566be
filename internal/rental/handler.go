package rental

import (
	"net/http"

	"github.com/SaeedRasheed12/rent-app/internal/httpx"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// Handler holds rental HTTP handlers.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Create handles POST /api/rent/create.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.NewRental
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	req, err := h.svc.Create(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"message": "Request created", "request": req, "chat_id": req.ChatID})
}

// CreateSafe handles POST /api/rent/create_safe.
func (h *Handler) CreateSafe(w http.ResponseWriter, r *http.Request) {
	var in models.NewRental
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	req, err := h.svc.CreateSafe(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"message": "Safe rental request created", "request": req, "chat_id": req.ChatID})
}

// Status handles GET /api/rent/status/{listing_id}/{user_id}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	listingID, err := httpx.PathID(r, "listing_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	userID, err := httpx.PathID(r, "user_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	req, err := h.svc.Latest(r.Context(), listingID, userID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if req == nil {
		httpx.OK(w, http.StatusOK, httpx.M{"exists": false})
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{
		"exists":               true,
		"status":               req.Status,
		"request_id":           req.ID,
		"chat_id":              req.ChatID,
		"owner_pickup_address": req.OwnerPickupAddress,
		"owner_pickup_contact": req.OwnerPickupContact,
		"owner_pickup_note":    req.OwnerPickupNote,
	})
}

type checkRequest struct {
	ListingID int64 `json:"listing_id"`
	RenterID  int64 `json:"renter_id"`
}

// CheckRequest handles POST /api/rent/check_request.
func (h *Handler) CheckRequest(w http.ResponseWriter, r *http.Request) {
	var in checkRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	req, err := h.svc.Latest(r.Context(), in.ListingID, in.RenterID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	if req == nil {
		httpx.OK(w, http.StatusOK, httpx.M{"exists": false})
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"exists": true, "status": req.Status})
}

// Owner handles GET /api/rent/owner/{id}.
func (h *Handler) Owner(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	views, err := h.svc.OwnerRequests(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"requests": views})
}

// Mine handles GET /api/rent/my/{id}.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	views, err := h.svc.RenterRequests(r.Context(), id)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"rentals": views})
}

// Decision handles POST /api/rent/decision.
func (h *Handler) Decision(w http.ResponseWriter, r *http.Request) {
	var d models.Decision
	if err := httpx.DecodeJSON(r, &d); err != nil {
		httpx.Error(w, r, err)
		return
	}
	req, err := h.svc.Decide(r.Context(), d)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"request": req})
}

type returnRequest struct {
	RequestID int64 `json:"request_id"`
}

// Return handles POST /api/rent/return.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	var in returnRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Error(w, r, err)
		return
	}
	req, err := h.svc.Return(r.Context(), in.RequestID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"request": req})
}
