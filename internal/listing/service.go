package listing

import (
	"context"
	"strings"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/geo"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// Store is the listing persistence the service needs.
type Store interface {
	CreateListing(ctx context.Context, in *models.NewListing) (*models.Listing, error)
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	ListAvailable(ctx context.Context) ([]models.Listing, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Listing, error)
	ListWithCoordinates(ctx context.Context) ([]models.Listing, error)
	SearchByLocation(ctx context.Context, city, area string) ([]models.Listing, error)
	DeleteListing(ctx context.Context, id int64) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates and stores a new listing. Availability always starts
// true; callers cannot set it.
func (s *Service) Create(ctx context.Context, in models.NewListing) (*models.Listing, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.City = strings.TrimSpace(in.City)
	in.Area = strings.TrimSpace(in.Area)
	in.Address = strings.TrimSpace(in.Address)

	switch {
	case in.UserID <= 0:
		return nil, apperr.Validation("user_id is required")
	case in.Title == "":
		return nil, apperr.Validation("title is required")
	case in.Description == "":
		return nil, apperr.Validation("description is required")
	case in.PricePerDay <= 0:
		return nil, apperr.Validation("price_per_day must be positive")
	case (in.Latitude == nil) != (in.Longitude == nil):
		return nil, apperr.Validation("latitude and longitude must be given together")
	case in.Latitude != nil && !geo.ValidPoint(*in.Latitude, *in.Longitude):
		return nil, apperr.Validation("coordinates out of range")
	}
	return s.store.CreateListing(ctx, &in)
}

// Feed returns unrented listings, newest first.
func (s *Service) Feed(ctx context.Context) ([]models.Listing, error) {
	return s.store.ListAvailable(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Listing, error) {
	return s.store.GetListing(ctx, id)
}

func (s *Service) ByOwner(ctx context.Context, ownerID int64) ([]models.Listing, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

// Delete removes a listing owned by actorID.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	l, err := s.store.GetListing(ctx, id)
	if err != nil {
		return err
	}
	if l.OwnerID != actorID {
		return apperr.Forbidden("only the owner can delete this listing")
	}
	return s.store.DeleteListing(ctx, id)
}

// Nearby scans every located listing and keeps those within the fixed radius.
func (s *Service) Nearby(ctx context.Context, lat, lon *float64) ([]models.NearbyListing, error) {
	if lat == nil || lon == nil {
		return nil, apperr.Validation("latitude and longitude are required")
	}
	if !geo.ValidPoint(*lat, *lon) {
		return nil, apperr.Validation("coordinates out of range")
	}
	all, err := s.store.ListWithCoordinates(ctx)
	if err != nil {
		return nil, err
	}
	return geo.Within(all, *lat, *lon, geo.NearbyRadiusKm), nil
}

func (s *Service) ByLocation(ctx context.Context, city, area string) ([]models.Listing, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, apperr.Validation("city is required")
	}
	return s.store.SearchByLocation(ctx, city, strings.TrimSpace(area))
}
