package models

import "time"

type MessageStatus string

const (
	MessageSent      MessageStatus = "sent"
	MessageDelivered MessageStatus = "delivered"
	MessageSeen      MessageStatus = "seen"
)

// Chat is a two-party channel. At most one exists per unordered user pair.
type Chat struct {
	ID        int64     `json:"id"`
	User1ID   int64     `json:"user1_id"`
	User2ID   int64     `json:"user2_id"`
	ListingID *int64    `json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Has reports whether userID participates in the chat.
func (c *Chat) Has(userID int64) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// Other returns the participant that is not userID.
func (c *Chat) Other(userID int64) int64 {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

type Message struct {
	ID        int64         `json:"id"`
	ChatID    int64         `json:"chat_id"`
	SenderID  int64         `json:"sender_id"`
	Text      string        `json:"text"`
	AudioURL  string        `json:"audio_url"`
	Status    MessageStatus `json:"status"`
	IsRead    bool          `json:"is_read"`
	CreatedAt time.Time     `json:"created_at"`
}

// ChatSummary is one row of a user's chat list.
type ChatSummary struct {
	ChatID      int64          `json:"chat_id"`
	ListingID   *int64         `json:"listing_id"`
	OtherUser   UserRef        `json:"other_user"`
	LastMessage string         `json:"last_message"`
	LastStatus  *MessageStatus `json:"last_status"` // nil when the chat has no messages
	UnreadCount int            `json:"unread_count"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ChatCounts holds the two independent chat counters for a user.
type ChatCounts struct {
	Chats  int `json:"chat_count"`
	Unread int `json:"unread_count"`
}

// StartChatRequest is the JSON body for POST /api/chat/start.
type StartChatRequest struct {
	User1ID   int64  `json:"user1_id"`
	User2ID   int64  `json:"user2_id"`
	ListingID *int64 `json:"listing_id"`
}

// MarkReadRequest is the JSON body for POST /api/chat/mark_read.
type MarkReadRequest struct {
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}
