package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
)

// PostgresStore is the relational store for users, listings, chats,
// messages, rental requests, settings and banners.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks the pool can reach the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates tables and indexes if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT        NOT NULL,
		email      TEXT        NOT NULL,
		phone      TEXT        NOT NULL,
		password   TEXT        NOT NULL,
		is_blocked BOOLEAN     NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_phone_key ON users (phone)`,

	`CREATE TABLE IF NOT EXISTS listings (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT           NOT NULL REFERENCES users(id),
		title         TEXT             NOT NULL,
		description   TEXT             NOT NULL,
		price_per_day DOUBLE PRECISION NOT NULL,
		category      TEXT             NOT NULL DEFAULT '',
		images        JSONB            NOT NULL DEFAULT '[]',
		latitude      DOUBLE PRECISION,
		longitude     DOUBLE PRECISION,
		city          TEXT             NOT NULL DEFAULT '',
		area          TEXT             NOT NULL DEFAULT '',
		address       TEXT             NOT NULL DEFAULT '',
		is_rented     BOOLEAN          NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS listings_feed_idx ON listings (created_at DESC) WHERE NOT is_rented`,

	`CREATE TABLE IF NOT EXISTS chats (
		id         BIGSERIAL PRIMARY KEY,
		user1_id   BIGINT      NOT NULL REFERENCES users(id),
		user2_id   BIGINT      NOT NULL REFERENCES users(id),
		listing_id BIGINT      REFERENCES listings(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK (user1_id <> user2_id)
	)`,
	// One chat per unordered pair.
	`CREATE UNIQUE INDEX IF NOT EXISTS chats_pair_key
		ON chats (LEAST(user1_id, user2_id), GREATEST(user1_id, user2_id))`,

	`CREATE TABLE IF NOT EXISTS messages (
		id         BIGSERIAL PRIMARY KEY,
		chat_id    BIGINT      NOT NULL REFERENCES chats(id),
		sender_id  BIGINT      NOT NULL REFERENCES users(id),
		text       TEXT        NOT NULL DEFAULT '',
		audio_url  TEXT        NOT NULL DEFAULT '',
		status     TEXT        NOT NULL DEFAULT 'sent' CHECK (status IN ('sent', 'delivered', 'seen')),
		is_read    BOOLEAN     NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_chat_idx ON messages (chat_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS rental_requests (
		id                      BIGSERIAL PRIMARY KEY,
		listing_id              BIGINT           NOT NULL REFERENCES listings(id),
		renter_id               BIGINT           NOT NULL REFERENCES users(id),
		owner_id                BIGINT           NOT NULL REFERENCES users(id),
		chat_id                 BIGINT           REFERENCES chats(id) ON DELETE SET NULL,
		start_date              DATE             NOT NULL,
		end_date                DATE             NOT NULL,
		total_days              INTEGER          NOT NULL,
		total_price             DOUBLE PRECISION NOT NULL,
		pickup_method           TEXT             NOT NULL,
		address                 TEXT             NOT NULL DEFAULT '',
		note                    TEXT             NOT NULL DEFAULT '',
		renter_delivery_address TEXT             NOT NULL DEFAULT '',
		renter_delivery_contact TEXT             NOT NULL DEFAULT '',
		renter_delivery_note    TEXT             NOT NULL DEFAULT '',
		owner_pickup_address    TEXT             NOT NULL DEFAULT '',
		owner_pickup_contact    TEXT             NOT NULL DEFAULT '',
		owner_pickup_note       TEXT             NOT NULL DEFAULT '',
		owner_payment_bank      TEXT             NOT NULL DEFAULT '',
		owner_payment_title     TEXT             NOT NULL DEFAULT '',
		owner_payment_account   TEXT             NOT NULL DEFAULT '',
		owner_payment_note      TEXT             NOT NULL DEFAULT '',
		cnic_image              TEXT             NOT NULL DEFAULT '',
		selfie_image            TEXT             NOT NULL DEFAULT '',
		renter_verified         BOOLEAN          NOT NULL DEFAULT FALSE,
		safety_rules_agreed     BOOLEAN          NOT NULL DEFAULT FALSE,
		agreement_signed_at     TIMESTAMPTZ,
		status                  TEXT             NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'accepted', 'declined', 'ongoing', 'returned')),
		created_at              TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,
	// A renter holds at most one accepted/ongoing request.
	`CREATE UNIQUE INDEX IF NOT EXISTS rental_requests_one_active
		ON rental_requests (renter_id) WHERE status IN ('accepted', 'ongoing')`,
	`CREATE INDEX IF NOT EXISTS rental_requests_listing_renter_idx ON rental_requests (listing_id, renter_id, id DESC)`,

	`CREATE TABLE IF NOT EXISTS settings (
		id            BIGINT PRIMARY KEY,
		platform_name TEXT NOT NULL,
		logo_url      TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS banners (
		id         BIGSERIAL PRIMARY KEY,
		text       TEXT        NOT NULL DEFAULT '',
		bg_color   TEXT        NOT NULL,
		text_color TEXT        NOT NULL,
		active     BOOLEAN     NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Constraint names translated into client-facing conflict messages.
var conflictMessages = map[string]string{
	"users_email_key":            "Email already registered",
	"users_phone_key":            "Phone already registered",
	"rental_requests_one_active": "Renter already has an active rental",
	"chats_pair_key":             "Chat already exists",
}

// classify converts driver errors into the apperr contract.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if msg, ok := conflictMessages[pgErr.ConstraintName]; ok {
				return apperr.Conflict(msg)
			}
			return apperr.Conflict(what + " already exists")
		case "23503":
			return apperr.Validation(what + " references a missing record")
		}
	}
	return apperr.Internal(fmt.Errorf("%s: %w", what, err))
}

// inTx runs fn inside a transaction, committing on success.
func (s *PostgresStore) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Internal(fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Internal(fmt.Errorf("commit: %w", err))
	}
	return nil
}
