package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

const listingColumns = `l.id, l.user_id, COALESCE(u.name, ''), l.title, l.description,
	l.price_per_day, l.category, l.images, l.latitude, l.longitude,
	l.city, l.area, l.address, l.is_rented, l.created_at`

const listingFrom = ` FROM listings l LEFT JOIN users u ON u.id = l.user_id`

func scanListing(row pgx.Row) (*models.Listing, error) {
	var (
		l      models.Listing
		images []byte
	)
	err := row.Scan(&l.ID, &l.OwnerID, &l.OwnerName, &l.Title, &l.Description,
		&l.PricePerDay, &l.Category, &images, &l.Latitude, &l.Longitude,
		&l.City, &l.Area, &l.Address, &l.IsRented, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	l.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &l.Images); err != nil {
			return nil, fmt.Errorf("listing %d images: %w", l.ID, err)
		}
	}
	return &l, nil
}

func (s *PostgresStore) queryListings(ctx context.Context, sql string, args ...any) ([]models.Listing, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err, "listings")
	}
	defer rows.Close()

	out := []models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, classify(err, "listings")
		}
		out = append(out, *l)
	}
	return out, classify(rows.Err(), "listings")
}

func (s *PostgresStore) CreateListing(ctx context.Context, in *models.NewListing) (*models.Listing, error) {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, apperr.Validation("invalid images")
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO listings (user_id, title, description, price_per_day, category, images,
		                       latitude, longitude, city, area, address)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10, $11)
		 RETURNING id`,
		in.UserID, in.Title, in.Description, in.PricePerDay, in.Category, string(raw),
		in.Latitude, in.Longitude, in.City, in.Area, in.Address,
	).Scan(&id)
	if err != nil {
		return nil, classify(err, "listing")
	}
	return s.GetListing(ctx, id)
}

func (s *PostgresStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	l, err := scanListing(s.pool.QueryRow(ctx,
		`SELECT `+listingColumns+listingFrom+` WHERE l.id = $1`, id,
	))
	return l, classify(err, "listing")
}

// ListAvailable is the public feed: unrented listings, newest first.
func (s *PostgresStore) ListAvailable(ctx context.Context) ([]models.Listing, error) {
	return s.queryListings(ctx,
		`SELECT `+listingColumns+listingFrom+` WHERE NOT l.is_rented ORDER BY l.created_at DESC, l.id DESC`)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID int64) ([]models.Listing, error) {
	return s.queryListings(ctx,
		`SELECT `+listingColumns+listingFrom+` WHERE l.user_id = $1 ORDER BY l.created_at DESC, l.id DESC`, ownerID)
}

// ListWithCoordinates returns every listing that has both coordinates set.
func (s *PostgresStore) ListWithCoordinates(ctx context.Context) ([]models.Listing, error) {
	return s.queryListings(ctx,
		`SELECT `+listingColumns+listingFrom+`
		 WHERE l.latitude IS NOT NULL AND l.longitude IS NOT NULL
		 ORDER BY l.id`)
}

// SearchByLocation matches city, and area when non-empty, as
// case-insensitive substrings.
func (s *PostgresStore) SearchByLocation(ctx context.Context, city, area string) ([]models.Listing, error) {
	sql := `SELECT ` + listingColumns + listingFrom + ` WHERE l.city ILIKE $1`
	args := []any{"%" + escapeLike(city) + "%"}
	if area != "" {
		sql += ` AND l.area ILIKE $2`
		args = append(args, "%"+escapeLike(area)+"%")
	}
	sql += ` ORDER BY l.created_at DESC, l.id DESC`
	return s.queryListings(ctx, sql, args...)
}

// DeleteListing removes a listing together with the requests made against it.
func (s *PostgresStore) DeleteListing(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM rental_requests WHERE listing_id = $1`, id); err != nil {
			return classify(err, "listing")
		}
		tag, err := tx.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
		if err != nil {
			return classify(err, "listing")
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("listing")
		}
		return nil
	})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
