// Package settings serves the platform branding and the announcement
// banner, and applies admin edits to both.
package settings

import (
	"context"
	"strings"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

type Store interface {
	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, platformName, logoURL *string) (*models.Settings, error)
	ActiveBanner(ctx context.Context) (*models.Banner, error)
	SaveBanner(ctx context.Context, b models.Banner) (*models.Banner, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the settings row, created with defaults on first read.
func (s *Service) Get(ctx context.Context) (*models.Settings, error) {
	return s.store.GetSettings(ctx)
}

// Update changes the non-nil fields. A blank platform name is rejected.
func (s *Service) Update(ctx context.Context, platformName, logoURL *string) (*models.Settings, error) {
	if platformName != nil {
		name := strings.TrimSpace(*platformName)
		if name == "" {
			return nil, apperr.Validation("platform_name cannot be empty")
		}
		platformName = &name
	}
	return s.store.UpdateSettings(ctx, platformName, logoURL)
}

// Banner returns the active banner or nil.
func (s *Service) Banner(ctx context.Context) (*models.Banner, error) {
	return s.store.ActiveBanner(ctx)
}

// SaveBanner stores the single banner, filling default colours.
func (s *Service) SaveBanner(ctx context.Context, b models.Banner) (*models.Banner, error) {
	b.Text = strings.TrimSpace(b.Text)
	b.BgColor = strings.TrimSpace(b.BgColor)
	b.TextColor = strings.TrimSpace(b.TextColor)
	if b.BgColor == "" {
		b.BgColor = models.DefaultBannerBG
	}
	if b.TextColor == "" {
		b.TextColor = models.DefaultBannerText
	}
	if b.Active && b.Text == "" {
		return nil, apperr.Validation("an active banner needs text")
	}
	if !hexColor(b.BgColor) || !hexColor(b.TextColor) {
		return nil, apperr.Validation("colours must be #RGB or #RRGGBB")
	}
	return s.store.SaveBanner(ctx, b)
}

func hexColor(c string) bool {
	if (len(c) != 4 && len(c) != 7) || c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
