package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/SaeedRasheed12/rent-app/internal/models"
)

const chatColumns = `id, user1_id, user2_id, listing_id, created_at`

func scanChat(row pgx.Row) (*models.Chat, error) {
	var c models.Chat
	if err := row.Scan(&c.ID, &c.User1ID, &c.User2ID, &c.ListingID, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOrCreateChat returns the chat for the unordered pair (a, b),
// creating it if absent. The pair index makes concurrent callers
// converge on one row.
func (s *PostgresStore) FindOrCreateChat(ctx context.Context, a, b int64, listingID *int64) (*models.Chat, error) {
	c, err := scanChat(s.pool.QueryRow(ctx,
		`INSERT INTO chats (user1_id, user2_id, listing_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT ((LEAST(user1_id, user2_id)), (GREATEST(user1_id, user2_id))) DO NOTHING
		 RETURNING `+chatColumns,
		a, b, listingID,
	))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, classify(err, "chat")
	}

	c, err = scanChat(s.pool.QueryRow(ctx,
		`SELECT `+chatColumns+` FROM chats
		 WHERE LEAST(user1_id, user2_id) = LEAST($1::bigint, $2::bigint)
		   AND GREATEST(user1_id, user2_id) = GREATEST($1::bigint, $2::bigint)`,
		a, b,
	))
	return c, classify(err, "chat")
}

func (s *PostgresStore) GetChat(ctx context.Context, id int64) (*models.Chat, error) {
	c, err := scanChat(s.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id))
	return c, classify(err, "chat")
}

const messageColumns = `id, chat_id, sender_id, text, audio_url, status, is_read, created_at`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.AudioURL, &m.Status, &m.IsRead, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMessage persists m as sent and unread.
func (s *PostgresStore) InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error) {
	out, err := scanMessage(s.pool.QueryRow(ctx,
		`INSERT INTO messages (chat_id, sender_id, text, audio_url, status, is_read)
		 VALUES ($1, $2, $3, $4, 'sent', FALSE)
		 RETURNING `+messageColumns,
		m.ChatID, m.SenderID, m.Text, m.AudioURL,
	))
	return out, classify(err, "message")
}

// ListMessages returns a chat's messages oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, chatID int64) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 ORDER BY created_at, id`, chatID)
	if err != nil {
		return nil, classify(err, "messages")
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, classify(err, "messages")
		}
		out = append(out, *m)
	}
	return out, classify(rows.Err(), "messages")
}

// MarkDelivered advances the other participant's sent messages to delivered.
func (s *PostgresStore) MarkDelivered(ctx context.Context, chatID, readerID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET status = 'delivered'
		 WHERE chat_id = $1 AND sender_id <> $2 AND status = 'sent'`,
		chatID, readerID)
	if err != nil {
		return 0, classify(err, "messages")
	}
	return tag.RowsAffected(), nil
}

// MarkSeen moves the other participant's sent/delivered messages to seen.
func (s *PostgresStore) MarkSeen(ctx context.Context, chatID, readerID int64) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE messages SET status = 'seen', is_read = TRUE
		 WHERE chat_id = $1 AND sender_id <> $2 AND status IN ('sent', 'delivered')`,
		chatID, readerID)
	if err != nil {
		return 0, classify(err, "messages")
	}
	return tag.RowsAffected(), nil
}

// ChatSummaries lists the user's chats newest first with the counterparty,
// the last message and the unread count addressed to the user.
func (s *PostgresStore) ChatSummaries(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.id, c.listing_id, c.created_at,
		        o.id, COALESCE(o.name, ''),
		        COALESCE(last.text, ''), last.status,
		        (SELECT COUNT(*) FROM messages m
		          WHERE m.chat_id = c.id AND m.sender_id <> $1 AND NOT m.is_read)
		   FROM chats c
		   JOIN users o ON o.id = CASE WHEN c.user1_id = $1 THEN c.user2_id ELSE c.user1_id END
		   LEFT JOIN LATERAL (
		        SELECT text, status FROM messages
		         WHERE chat_id = c.id
		         ORDER BY created_at DESC, id DESC
		         LIMIT 1
		   ) last ON TRUE
		  WHERE c.user1_id = $1 OR c.user2_id = $1
		  ORDER BY c.created_at DESC, c.id DESC`,
		userID)
	if err != nil {
		return nil, classify(err, "chats")
	}
	defer rows.Close()

	out := []models.ChatSummary{}
	for rows.Next() {
		var cs models.ChatSummary
		var last *string
		if err := rows.Scan(&cs.ChatID, &cs.ListingID, &cs.CreatedAt,
			&cs.OtherUser.ID, &cs.OtherUser.Name,
			&cs.LastMessage, &last, &cs.UnreadCount); err != nil {
			return nil, classify(err, "chats")
		}
		if last != nil {
			st := models.MessageStatus(*last)
			cs.LastStatus = &st
		}
		out = append(out, cs)
	}
	return out, classify(rows.Err(), "chats")
}

func (s *PostgresStore) ChatCounts(ctx context.Context, userID int64) (models.ChatCounts, error) {
	var c models.ChatCounts
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM chats WHERE user1_id = $1 OR user2_id = $1),
		   (SELECT COUNT(*) FROM messages m JOIN chats c ON c.id = m.chat_id
		     WHERE (c.user1_id = $1 OR c.user2_id = $1) AND m.sender_id <> $1 AND NOT m.is_read)`,
		userID,
	).Scan(&c.Chats, &c.Unread)
	return c, classify(err, "chat counts")
}
