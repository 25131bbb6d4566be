package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/media"
	"github.com/SaeedRasheed12/rent-app/internal/metrics"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// Store is the chat and message persistence the service needs.
type Store interface {
	FindOrCreateChat(ctx context.Context, a, b int64, listingID *int64) (*models.Chat, error)
	GetChat(ctx context.Context, id int64) (*models.Chat, error)
	InsertMessage(ctx context.Context, m *models.Message) (*models.Message, error)
	ListMessages(ctx context.Context, chatID int64) ([]models.Message, error)
	MarkDelivered(ctx context.Context, chatID, readerID int64) (int64, error)
	MarkSeen(ctx context.Context, chatID, readerID int64) (int64, error)
	ChatSummaries(ctx context.Context, userID int64) ([]models.ChatSummary, error)
	ChatCounts(ctx context.Context, userID int64) (models.ChatCounts, error)
}

// Uploader stores voice notes.
type Uploader interface {
	Upload(ctx context.Context, u media.Upload) (*media.Stored, error)
	Discard(ctx context.Context, key string)
}

// Notifier pushes live events to a user.
type Notifier interface {
	Notify(userID int64, eventType string, data any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(int64, string, any) {}

// Audio is a voice note attached to a message.
type Audio struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SendInput is one outgoing message: text, audio, or both.
type SendInput struct {
	ChatID   int64
	SenderID int64
	Text     string
	Audio    *Audio
}

type Service struct {
	store  Store
	media  Uploader
	notify Notifier
	now    func() time.Time
}

func NewService(store Store, uploader Uploader, notify Notifier) *Service {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Service{store: store, media: uploader, notify: notify, now: time.Now}
}

// FindOrCreate returns the single chat for the unordered pair (a, b).
// listingID is recorded only when the chat is created.
func (s *Service) FindOrCreate(ctx context.Context, a, b int64, listingID *int64) (*models.Chat, error) {
	if a <= 0 || b <= 0 {
		return nil, apperr.Validation("both user ids are required")
	}
	if a == b {
		return nil, apperr.Validation("cannot start a chat with yourself")
	}
	return s.store.FindOrCreateChat(ctx, a, b, listingID)
}

// participantChat loads chatID and checks userID belongs to it.
func (s *Service) participantChat(ctx context.Context, chatID, userID int64) (*models.Chat, error) {
	c, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !c.Has(userID) {
		return nil, apperr.Forbidden("not a participant of this chat")
	}
	return c, nil
}

// Send persists a message as sent and unread. An audio attachment is
// uploaded first; if that fails nothing is persisted.
func (s *Service) Send(ctx context.Context, in SendInput) (*models.Message, error) {
	in.Text = strings.TrimSpace(in.Text)
	if in.ChatID <= 0 || in.SenderID <= 0 {
		return nil, apperr.Validation("chat_id and sender_id are required")
	}
	if in.Text == "" && in.Audio == nil {
		return nil, apperr.Validation("text or audio is required")
	}
	c, err := s.participantChat(ctx, in.ChatID, in.SenderID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{ChatID: c.ID, SenderID: in.SenderID, Text: in.Text}
	var audioKey string
	if in.Audio != nil {
		stored, err := s.media.Upload(ctx, media.Upload{
			Kind:        media.KindAudio,
			Filename:    in.Audio.Filename,
			ContentType: in.Audio.ContentType,
			Size:        in.Audio.Size,
			Body:        in.Audio.Body,
			Name:        media.StampedName(fmt.Sprintf("voice_%d", in.SenderID), s.now()),
		})
		if err != nil {
			return nil, err
		}
		audioKey = stored.Key
		msg.AudioURL = stored.URL
	}

	saved, err := s.store.InsertMessage(ctx, msg)
	if err != nil {
		if audioKey != "" {
			s.media.Discard(context.WithoutCancel(ctx), audioKey)
		}
		return nil, err
	}

	kind := "text"
	if saved.AudioURL != "" {
		kind = "audio"
	}
	metrics.MessagesSent.WithLabelValues(kind).Inc()
	s.notify.Notify(c.Other(in.SenderID), "message.new", saved)
	return saved, nil
}

// Messages returns the chat oldest first. When readerID is set, the other
// participant's sent messages become delivered before they are read back.
func (s *Service) Messages(ctx context.Context, chatID, readerID int64) ([]models.Message, error) {
	if readerID == 0 {
		if _, err := s.store.GetChat(ctx, chatID); err != nil {
			return nil, err
		}
		return s.store.ListMessages(ctx, chatID)
	}

	c, err := s.participantChat(ctx, chatID, readerID)
	if err != nil {
		return nil, err
	}
	n, err := s.store.MarkDelivered(ctx, chatID, readerID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		s.notify.Notify(c.Other(readerID), "message.status", statusEvent(chatID, models.MessageDelivered))
	}
	return s.store.ListMessages(ctx, chatID)
}

// MarkRead moves the other participant's messages to seen and returns
// how many changed.
func (s *Service) MarkRead(ctx context.Context, chatID, userID int64) (int64, error) {
	if chatID <= 0 || userID <= 0 {
		return 0, apperr.Validation("chat_id and user_id are required")
	}
	c, err := s.participantChat(ctx, chatID, userID)
	if err != nil {
		return 0, err
	}
	n, err := s.store.MarkSeen(ctx, chatID, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.notify.Notify(c.Other(userID), "message.status", statusEvent(chatID, models.MessageSeen))
	}
	return n, nil
}

func statusEvent(chatID int64, st models.MessageStatus) map[string]any {
	return map[string]any{"chat_id": chatID, "status": st}
}

// List returns the user's chat summaries, newest chat first.
func (s *Service) List(ctx context.Context, userID int64) ([]models.ChatSummary, error) {
	return s.store.ChatSummaries(ctx, userID)
}

func (s *Service) Counts(ctx context.Context, userID int64) (models.ChatCounts, error) {
	return s.store.ChatCounts(ctx, userID)
}
