package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/SaeedRasheed12/rent-app/internal/models"
)

const settingsID = 1

// GetSettings returns the single settings row, creating it with defaults
// on first access.
func (s *PostgresStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO settings (id, platform_name, logo_url) VALUES ($1, $2, '')
		 ON CONFLICT (id) DO NOTHING`,
		settingsID, models.DefaultPlatformName,
	); err != nil {
		return nil, classify(err, "settings")
	}

	var st models.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT id, platform_name, logo_url FROM settings WHERE id = $1`, settingsID,
	).Scan(&st.ID, &st.PlatformName, &st.LogoURL)
	if err != nil {
		return nil, classify(err, "settings")
	}
	return &st, nil
}

// UpdateSettings overwrites the fields that are non-nil.
func (s *PostgresStore) UpdateSettings(ctx context.Context, platformName, logoURL *string) (*models.Settings, error) {
	if _, err := s.GetSettings(ctx); err != nil {
		return nil, err
	}
	var st models.Settings
	err := s.pool.QueryRow(ctx,
		`UPDATE settings SET
			platform_name = COALESCE($2, platform_name),
			logo_url      = COALESCE($3, logo_url)
		 WHERE id = $1
		 RETURNING id, platform_name, logo_url`,
		settingsID, platformName, logoURL,
	).Scan(&st.ID, &st.PlatformName, &st.LogoURL)
	if err != nil {
		return nil, classify(err, "settings")
	}
	return &st, nil
}

// ActiveBanner returns the first active banner, or nil when none is active.
func (s *PostgresStore) ActiveBanner(ctx context.Context) (*models.Banner, error) {
	var b models.Banner
	err := s.pool.QueryRow(ctx,
		`SELECT id, text, bg_color, text_color, active FROM banners
		 WHERE active ORDER BY id LIMIT 1`,
	).Scan(&b.ID, &b.Text, &b.BgColor, &b.TextColor, &b.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err, "banner")
	}
	return &b, nil
}

// SaveBanner updates the first banner row, creating it if there is none.
func (s *PostgresStore) SaveBanner(ctx context.Context, b models.Banner) (*models.Banner, error) {
	var out models.Banner
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `SELECT id FROM banners ORDER BY id LIMIT 1 FOR UPDATE`).Scan(&id)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			err = tx.QueryRow(ctx,
				`INSERT INTO banners (text, bg_color, text_color, active)
				 VALUES ($1, $2, $3, $4)
				 RETURNING id, text, bg_color, text_color, active`,
				b.Text, b.BgColor, b.TextColor, b.Active,
			).Scan(&out.ID, &out.Text, &out.BgColor, &out.TextColor, &out.Active)
		case err == nil:
			err = tx.QueryRow(ctx,
				`UPDATE banners SET text = $2, bg_color = $3, text_color = $4, active = $5, updated_at = NOW()
				 WHERE id = $1
				 RETURNING id, text, bg_color, text_color, active`,
				id, b.Text, b.BgColor, b.TextColor, b.Active,
			).Scan(&out.ID, &out.Text, &out.BgColor, &out.TextColor, &out.Active)
		}
		return classify(err, "banner")
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
