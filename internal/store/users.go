package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

const userColumns = `id, name, email, phone, password, is_blocked, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Password, &u.Blocked, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	created, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, phone, password)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		u.Name, u.Email, u.Phone, u.Password,
	))
	return created, classify(err, "user")
}

// GetUserByEmail matches case-insensitively.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email,
	))
	return u, classify(err, "user")
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	return u, classify(err, "user")
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, id int64, name, phone string) (*models.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET name = $2, phone = $3 WHERE id = $1 RETURNING `+userColumns,
		id, name, phone,
	))
	return u, classify(err, "user")
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return classify(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

// ListUsers returns every user, newest first.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id DESC`)
	if err != nil {
		return nil, classify(err, "users")
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify(err, "users")
		}
		users = append(users, *u)
	}
	return users, classify(rows.Err(), "users")
}

func (s *PostgresStore) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET is_blocked = $2 WHERE id = $1`, id, blocked)
	if err != nil {
		return classify(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

// DeleteUserCascade removes a user and everything that references them
// in one transaction. Other users' requests against the user's listings
// go too, since the listings themselves are removed. Listings the user was
// renting from others are released unless another active request holds them.
func (s *PostgresStore) DeleteUserCascade(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx,
			`SELECT id FROM users WHERE id = $1 FOR UPDATE`, id,
		).Scan(&locked); err != nil {
			return classify(err, "user")
		}

		steps := []string{
			`UPDATE listings l SET is_rented = FALSE
			 WHERE l.user_id <> $1
			   AND l.id IN (SELECT listing_id FROM rental_requests
			                 WHERE renter_id = $1 AND status IN ('accepted', 'ongoing'))
			   AND NOT EXISTS (SELECT 1 FROM rental_requests o
			                    WHERE o.listing_id = l.id AND o.renter_id <> $1
			                      AND o.status IN ('accepted', 'ongoing'))`,
			`DELETE FROM rental_requests
			 WHERE renter_id = $1 OR owner_id = $1
			    OR listing_id IN (SELECT id FROM listings WHERE user_id = $1)`,
			`DELETE FROM messages WHERE sender_id = $1`,
			`DELETE FROM messages
			 WHERE chat_id IN (SELECT id FROM chats WHERE user1_id = $1 OR user2_id = $1)`,
			`DELETE FROM chats WHERE user1_id = $1 OR user2_id = $1`,
			`DELETE FROM listings WHERE user_id = $1`,
			`DELETE FROM users WHERE id = $1`,
		}
		for _, stmt := range steps {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return classify(err, "user cascade")
			}
		}
		return nil
	})
}
