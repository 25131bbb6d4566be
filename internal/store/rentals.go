package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// ErrActiveRental is returned by InsertRental when the renter already
// holds an accepted or ongoing request.
var ErrActiveRental = apperr.Conflict("You already have an active rental. Return your current item first.")

const rentalColumns = `r.id, r.listing_id, r.renter_id, r.owner_id, r.chat_id,
	r.start_date::text, r.end_date::text, r.total_days, r.total_price,
	r.pickup_method, r.address, r.note, r.status,
	r.renter_delivery_address, r.renter_delivery_contact, r.renter_delivery_note,
	r.owner_pickup_address, r.owner_pickup_contact, r.owner_pickup_note,
	r.owner_payment_bank, r.owner_payment_title, r.owner_payment_account, r.owner_payment_note,
	r.cnic_image, r.selfie_image, r.renter_verified, r.safety_rules_agreed,
	r.agreement_signed_at, r.created_at`

func rentalDest(r *models.RentalRequest) []any {
	return []any{&r.ID, &r.ListingID, &r.RenterID, &r.OwnerID, &r.ChatID,
		&r.StartDate, &r.EndDate, &r.TotalDays, &r.TotalPrice,
		&r.Pickup, &r.Address, &r.Note, &r.Status,
		&r.RenterDeliveryAddress, &r.RenterDeliveryContact, &r.RenterDeliveryNote,
		&r.OwnerPickupAddress, &r.OwnerPickupContact, &r.OwnerPickupNote,
		&r.OwnerPaymentBank, &r.OwnerPaymentTitle, &r.OwnerPaymentAccount, &r.OwnerPaymentNote,
		&r.CNICImage, &r.SelfieImage, &r.RenterVerified, &r.RulesAgreed,
		&r.AgreementSignedAt, &r.CreatedAt}
}

func scanRental(row pgx.Row) (*models.RentalRequest, error) {
	var r models.RentalRequest
	if err := row.Scan(rentalDest(&r)...); err != nil {
		return nil, err
	}
	return &r, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getRental(ctx context.Context, q querier, id int64) (*models.RentalRequest, error) {
	r, err := scanRental(q.QueryRow(ctx, `SELECT `+rentalColumns+` FROM rental_requests r WHERE r.id = $1`, id))
	return r, classify(err, "rental request")
}

func (s *PostgresStore) GetRental(ctx context.Context, id int64) (*models.RentalRequest, error) {
	return getRental(ctx, s.pool, id)
}

func (s *PostgresStore) HasActiveRental(ctx context.Context, renterID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM rental_requests WHERE renter_id = $1 AND status IN ('accepted', 'ongoing'))`,
		renterID,
	).Scan(&exists)
	return exists, classify(err, "rental request")
}

// InsertRental persists r as pending. With exclusive set, the insert is
// serialised per renter and refused with ErrActiveRental while the renter
// holds an active request.
func (s *PostgresStore) InsertRental(ctx context.Context, r *models.RentalRequest, exclusive bool) (*models.RentalRequest, error) {
	var out *models.RentalRequest
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if exclusive {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, r.RenterID); err != nil {
				return classify(err, "rental request")
			}
			var active bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM rental_requests WHERE renter_id = $1 AND status IN ('accepted', 'ongoing'))`,
				r.RenterID,
			).Scan(&active); err != nil {
				return classify(err, "rental request")
			}
			if active {
				return ErrActiveRental
			}
		}

		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO rental_requests (
				listing_id, renter_id, owner_id, chat_id, start_date, end_date,
				total_days, total_price, pickup_method, address, note,
				renter_delivery_address, renter_delivery_contact, renter_delivery_note,
				cnic_image, selfie_image, renter_verified, safety_rules_agreed, agreement_signed_at,
				status)
			 VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8, $9, $10, $11,
			         $12, $13, $14, $15, $16, $17, $18, $19, 'pending')
			 RETURNING id`,
			r.ListingID, r.RenterID, r.OwnerID, r.ChatID, r.StartDate, r.EndDate,
			r.TotalDays, r.TotalPrice, r.Pickup, r.Address, r.Note,
			r.RenterDeliveryAddress, r.RenterDeliveryContact, r.RenterDeliveryNote,
			r.CNICImage, r.SelfieImage, r.RenterVerified, r.RulesAgreed, r.AgreementSignedAt,
		).Scan(&id)
		if err != nil {
			return classify(err, "rental request")
		}
		out, err = getRental(ctx, tx, id)
		return err
	})
	return out, err
}

// LatestRental returns the highest-id request by renterID for listingID.
func (s *PostgresStore) LatestRental(ctx context.Context, listingID, renterID int64) (*models.RentalRequest, error) {
	r, err := scanRental(s.pool.QueryRow(ctx,
		`SELECT `+rentalColumns+` FROM rental_requests r
		 WHERE r.listing_id = $1 AND r.renter_id = $2
		 ORDER BY r.id DESC LIMIT 1`,
		listingID, renterID,
	))
	return r, classify(err, "rental request")
}

func (s *PostgresStore) RentalsByOwner(ctx context.Context, ownerID int64) ([]models.RentalView, error) {
	return s.rentalViews(ctx, `r.owner_id = $1`, ownerID)
}

func (s *PostgresStore) RentalsByRenter(ctx context.Context, renterID int64) ([]models.RentalView, error) {
	return s.rentalViews(ctx, `r.renter_id = $1`, renterID)
}

func (s *PostgresStore) rentalViews(ctx context.Context, where string, id int64) ([]models.RentalView, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+rentalColumns+`, COALESCE(l.title, ''), COALESCE(rn.name, ''), COALESCE(ow.name, '')
		   FROM rental_requests r
		   LEFT JOIN listings l ON l.id = r.listing_id
		   LEFT JOIN users rn ON rn.id = r.renter_id
		   LEFT JOIN users ow ON ow.id = r.owner_id
		  WHERE `+where+`
		  ORDER BY r.id DESC`,
		id)
	if err != nil {
		return nil, classify(err, "rental requests")
	}
	defer rows.Close()

	out := []models.RentalView{}
	for rows.Next() {
		var v models.RentalView
		dest := append(rentalDest(&v.RentalRequest), &v.ListingTitle, &v.RenterName, &v.OwnerName)
		if err := rows.Scan(dest...); err != nil {
			return nil, classify(err, "rental requests")
		}
		out = append(out, v)
	}
	return out, classify(rows.Err(), "rental requests")
}

// SetRentalChat records the chat used for a request that had none.
func (s *PostgresStore) SetRentalChat(ctx context.Context, requestID, chatID int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE rental_requests SET chat_id = $2 WHERE id = $1 AND chat_id IS NULL`, requestID, chatID)
	return classify(err, "rental request")
}

// ApplyTransition moves a request from t.From to t.To and updates the
// listing flag in the same transaction. Accepting marks the listing
// rented; returning releases it; declining releases it unless another
// request on the listing is still active.
func (s *PostgresStore) ApplyTransition(ctx context.Context, t models.RentalTransition) (*models.RentalRequest, error) {
	var out *models.RentalRequest
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var listingID int64
		err := tx.QueryRow(ctx,
			`UPDATE rental_requests SET
				status                = $3,
				owner_pickup_address  = COALESCE($4, owner_pickup_address),
				owner_pickup_contact  = COALESCE($5, owner_pickup_contact),
				owner_pickup_note     = COALESCE($6, owner_pickup_note),
				owner_payment_bank    = COALESCE($7, owner_payment_bank),
				owner_payment_title   = COALESCE($8, owner_payment_title),
				owner_payment_account = COALESCE($9, owner_payment_account),
				owner_payment_note    = COALESCE($10, owner_payment_note)
			 WHERE id = $1 AND status = $2
			 RETURNING listing_id`,
			t.RequestID, t.From, t.To,
			t.Pickup.Address, t.Pickup.Contact, t.Pickup.Note,
			t.Payment.Bank, t.Payment.Title, t.Payment.Account, t.Payment.Note,
		).Scan(&listingID)
		if errors.Is(err, pgx.ErrNoRows) {
			// Either missing or moved on since the caller read it.
			if _, gerr := getRental(ctx, tx, t.RequestID); gerr != nil {
				return gerr
			}
			return apperr.Conflict("rental request was changed by another action")
		}
		if err != nil {
			return classify(err, "rental request")
		}

		switch t.To {
		case models.RentalAccepted:
			_, err = tx.Exec(ctx, `UPDATE listings SET is_rented = TRUE WHERE id = $1`, listingID)
		case models.RentalReturned:
			_, err = tx.Exec(ctx, `UPDATE listings SET is_rented = FALSE WHERE id = $1`, listingID)
		case models.RentalDeclined:
			_, err = tx.Exec(ctx,
				`UPDATE listings SET is_rented = FALSE
				 WHERE id = $1 AND NOT EXISTS (
					SELECT 1 FROM rental_requests
					 WHERE listing_id = $1 AND id <> $2 AND status IN ('accepted', 'ongoing'))`,
				listingID, t.RequestID)
		}
		if err != nil {
			return classify(err, "listing")
		}

		out, err = getRental(ctx, tx, t.RequestID)
		return err
	})
	return out, err
}
