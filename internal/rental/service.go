// Package rental runs the rental-request lifecycle: creation with its
// chat, owner decisions, returns, and the dashboards built on them.
package rental

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/metrics"
	"github.com/SaeedRasheed12/rent-app/internal/models"
	"github.com/SaeedRasheed12/rent-app/internal/store"
)

const dateLayout = "2006-01-02"

// Store is the rental persistence the service needs.
type Store interface {
	GetRental(ctx context.Context, id int64) (*models.RentalRequest, error)
	HasActiveRental(ctx context.Context, renterID int64) (bool, error)
	InsertRental(ctx context.Context, r *models.RentalRequest, exclusive bool) (*models.RentalRequest, error)
	LatestRental(ctx context.Context, listingID, renterID int64) (*models.RentalRequest, error)
	RentalsByOwner(ctx context.Context, ownerID int64) ([]models.RentalView, error)
	RentalsByRenter(ctx context.Context, renterID int64) ([]models.RentalView, error)
	SetRentalChat(ctx context.Context, requestID, chatID int64) error
	ApplyTransition(ctx context.Context, t models.RentalTransition) (*models.RentalRequest, error)
}

type ListingReader interface {
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
}

// ChatFinder returns the single chat for an unordered user pair.
type ChatFinder interface {
	FindOrCreate(ctx context.Context, a, b int64, listingID *int64) (*models.Chat, error)
}

type Notifier interface {
	Notify(userID int64, eventType string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, string, any) {}

type Service struct {
	store    Store
	listings ListingReader
	chats    ChatFinder
	notify   Notifier
	now      func() time.Time
}

func NewService(store Store, listings ListingReader, chats ChatFinder, notify Notifier) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Service{store: store, listings: listings, chats: chats, notify: notify, now: time.Now}
}

func (s *Service) validate(ctx context.Context, in *models.NewRental) error {
	in.Pickup = strings.TrimSpace(in.Pickup)
	in.Address = strings.TrimSpace(in.Address)
	in.Note = strings.TrimSpace(in.Note)

	switch {
	case in.ListingID <= 0 || in.RenterID <= 0 || in.OwnerID <= 0:
		return apperr.Validation("listing_id, renter_id and owner_id are required")
	case in.RenterID == in.OwnerID:
		return apperr.Validation("cannot rent your own listing")
	case in.TotalDays <= 0:
		return apperr.Validation("total_days must be positive")
	case in.TotalPrice < 0:
		return apperr.Validation("total_price cannot be negative")
	case in.Pickup != models.PickupSelf && in.Pickup != models.PickupRider:
		return apperr.Validation("pickup_method must be self_pick or rider_delivery")
	}

	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return apperr.Validation("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, in.EndDate)
	if err != nil {
		return apperr.Validation("end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return apperr.Validation("end_date is before start_date")
	}

	l, err := s.listings.GetListing(ctx, in.ListingID)
	if err != nil {
		return err
	}
	if l.OwnerID != in.OwnerID {
		return apperr.Validation("owner_id does not own this listing")
	}
	return nil
}

func (s *Service) create(ctx context.Context, in models.NewRental, safe bool) (*models.RentalRequest, error) {
	c, err := s.chats.FindOrCreate(ctx, in.RenterID, in.OwnerID, &in.ListingID)
	if err != nil {
		return nil, err
	}

	r := &models.RentalRequest{
		ListingID:             in.ListingID,
		RenterID:              in.RenterID,
		OwnerID:               in.OwnerID,
		ChatID:                &c.ID,
		StartDate:             in.StartDate,
		EndDate:               in.EndDate,
		TotalDays:             in.TotalDays,
		TotalPrice:            in.TotalPrice,
		Pickup:                in.Pickup,
		Address:               in.Address,
		Note:                  in.Note,
		RenterDeliveryAddress: strings.TrimSpace(in.RenterDeliveryAddress),
		RenterDeliveryContact: strings.TrimSpace(in.RenterDeliveryContact),
		RenterDeliveryNote:    strings.TrimSpace(in.RenterDeliveryNote),
	}
	if safe {
		signed := s.now().UTC()
		r.CNICImage = in.CNICImage
		r.SelfieImage = in.SelfieImage
		r.RenterVerified = true
		r.RulesAgreed = true
		r.AgreementSignedAt = &signed
	}

	saved, err := s.store.InsertRental(ctx, r, safe)
	if err != nil {
		return nil, err
	}
	metrics.RentalTransitions.WithLabelValues(string(models.RentalPending)).Inc()
	log.Info().Int64("request_id", saved.ID).Int64("listing_id", saved.ListingID).Bool("safe", safe).Msg("rental requested")
	s.notify.Notify(saved.OwnerID, "rental.created", saved)
	return saved, nil
}

// Create opens a pending request and its chat. The listing stays visible.
func (s *Service) Create(ctx context.Context, in models.NewRental) (*models.RentalRequest, error) {
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	return s.create(ctx, in, false)
}

// CreateSafe is Create for verified renters. It is refused while the
// renter holds an accepted or ongoing request anywhere.
func (s *Service) CreateSafe(ctx context.Context, in models.NewRental) (*models.RentalRequest, error) {
	in.CNICImage = strings.TrimSpace(in.CNICImage)
	in.SelfieImage = strings.TrimSpace(in.SelfieImage)
	switch {
	case in.CNICImage == "" || in.SelfieImage == "":
		return nil, apperr.Validation("cnic_image and selfie_image are required")
	case !in.RulesAgreed:
		return nil, apperr.Validation("safety rules must be agreed")
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	// Checked before the chat is created; the insert re-checks under lock.
	active, err := s.store.HasActiveRental(ctx, in.RenterID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, store.ErrActiveRental
	}
	return s.create(ctx, in, true)
}

// Decide applies the owner's accept or decline.
func (s *Service) Decide(ctx context.Context, d models.Decision) (*models.RentalRequest, error) {
	if d.RequestID <= 0 {
		return nil, apperr.Validation("request_id is required")
	}
	if d.Status != models.RentalAccepted && d.Status != models.RentalDeclined {
		return nil, apperr.Validation("status must be accepted or declined")
	}
	cur, err := s.store.GetRental(ctx, d.RequestID)
	if err != nil {
		return nil, err
	}
	if cur.Status != models.RentalPending && cur.Status != models.RentalAccepted {
		return nil, apperr.Conflict("request is already " + string(cur.Status))
	}

	r, err := s.transition(ctx, models.RentalTransition{
		RequestID: d.RequestID,
		From:      cur.Status,
		To:        d.Status,
		Pickup:    d.PickupDetails,
		Payment:   d.PaymentDetails,
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(r.RenterID, "rental.decided", r)
	return r, nil
}

// Return closes an accepted or ongoing request and releases the listing.
func (s *Service) Return(ctx context.Context, requestID int64) (*models.RentalRequest, error) {
	if requestID <= 0 {
		return nil, apperr.Validation("request_id is required")
	}
	cur, err := s.store.GetRental(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !cur.Status.Active() {
		return nil, apperr.Conflict("only an accepted rental can be returned")
	}

	r, err := s.transition(ctx, models.RentalTransition{
		RequestID: requestID,
		From:      cur.Status,
		To:        models.RentalReturned,
	})
	if err != nil {
		return nil, err
	}
	s.notify.Notify(r.OwnerID, "rental.returned", r)
	return r, nil
}

func (s *Service) transition(ctx context.Context, t models.RentalTransition) (*models.RentalRequest, error) {
	r, err := s.store.ApplyTransition(ctx, t)
	if err != nil {
		return nil, err
	}
	metrics.RentalTransitions.WithLabelValues(string(t.To)).Inc()
	log.Info().Int64("request_id", r.ID).Str("from", string(t.From)).Str("to", string(t.To)).Msg("rental transition")
	return r, nil
}

// Latest returns the renter's most recent request on a listing, or nil
// when there is none.
func (s *Service) Latest(ctx context.Context, listingID, renterID int64) (*models.RentalRequest, error) {
	if listingID <= 0 || renterID <= 0 {
		return nil, apperr.Validation("listing_id and renter_id are required")
	}
	r, err := s.store.LatestRental(ctx, listingID, renterID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, nil
	}
	return r, err
}

// OwnerRequests lists requests received by ownerID, newest first.
func (s *Service) OwnerRequests(ctx context.Context, ownerID int64) ([]models.RentalView, error) {
	views, err := s.store.RentalsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.withChats(ctx, views)
}

// RenterRequests lists requests made by renterID, newest first.
func (s *Service) RenterRequests(ctx context.Context, renterID int64) ([]models.RentalView, error) {
	views, err := s.store.RentalsByRenter(ctx, renterID)
	if err != nil {
		return nil, err
	}
	return s.withChats(ctx, views)
}

// withChats gives every row a chat id, creating the pair's chat and
// recording it on requests that never had one.
func (s *Service) withChats(ctx context.Context, views []models.RentalView) ([]models.RentalView, error) {
	for i := range views {
		v := &views[i]
		listingID := v.ListingID
		c, err := s.chats.FindOrCreate(ctx, v.OwnerID, v.RenterID, &listingID)
		if err != nil {
			return nil, err
		}
		if v.ChatID == nil {
			if err := s.store.SetRentalChat(ctx, v.ID, c.ID); err != nil {
				return nil, err
			}
		}
		id := c.ID
		v.ChatID = &id
	}
	return views, nil
}
