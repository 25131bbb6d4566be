package chat

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/httpx"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// Handler holds chat HTTP handlers.
type Handler struct {
	svc           *Service
	maxUploadSize int64
}

func NewHandler(svc *Service, maxUploadSize int64) *Handler {
	return &Handler{svc: svc, maxUploadSize: maxUploadSize}
}

// Start handles POST /api/chat/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartChatRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	c, err := h.svc.FindOrCreate(r.Context(), req.User1ID, req.User2ID, req.ListingID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"chat_id": c.ID, "chat": c})
}

type sendRequest struct {
	ChatID   int64  `json:"chat_id"`
	SenderID int64  `json:"sender_id"`
	Text     string `json:"text"`
}

// Send handles POST /api/chat/send as JSON, or multipart with an "audio" file.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		h.sendMultipart(w, r)
		return
	}

	var req sendRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	h.send(w, r, SendInput{ChatID: req.ChatID, SenderID: req.SenderID, Text: req.Text})
}

func (h *Handler) sendMultipart(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		httpx.Error(w, r, apperr.Validation("invalid multipart form"))
		return
	}
	chatID, err1 := strconv.ParseInt(r.FormValue("chat_id"), 10, 64)
	senderID, err2 := strconv.ParseInt(r.FormValue("sender_id"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.Error(w, r, apperr.Validation("chat_id and sender_id are required"))
		return
	}
	in := SendInput{ChatID: chatID, SenderID: senderID, Text: r.FormValue("text")}

	file, header, err := r.FormFile("audio")
	switch {
	case err == nil:
		defer file.Close()
		in.Audio = &Audio{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        file,
		}
	case err != http.ErrMissingFile:
		httpx.Error(w, r, apperr.Validation("invalid audio file"))
		return
	}
	h.send(w, r, in)
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request, in SendInput) {
	msg, err := h.svc.Send(r.Context(), in)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusCreated, httpx.M{"message": msg})
}

// Messages handles GET /api/chat/messages/{chat_id}?user_id=.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	chatID, err := httpx.PathID(r, "chat_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	readerID, err := httpx.QueryID(r, "user_id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	msgs, err := h.svc.Messages(r.Context(), chatID, readerID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"messages": msgs})
}

// MarkRead handles POST /api/chat/mark_read.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req models.MarkReadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, r, err)
		return
	}
	n, err := h.svc.MarkRead(r.Context(), req.ChatID, req.UserID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"updated": n})
}

// List handles GET /api/chat/list/{id} and its alias /api/chats/{id}.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	chats, err := h.svc.List(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, err)
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"chats": chats})
}

// Count handles GET /api/chat/count/{id}.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	c, ok := h.counts(w, r)
	if !ok {
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"count": c.Chats})
}

// Unread handles GET /api/unread_chats/{id}.
func (h *Handler) Unread(w http.ResponseWriter, r *http.Request) {
	c, ok := h.counts(w, r)
	if !ok {
		return
	}
	httpx.OK(w, http.StatusOK, httpx.M{"count": c.Unread})
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) (models.ChatCounts, bool) {
	userID, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.Error(w, r, err)
		return models.ChatCounts{}, false
	}
	c, err := h.svc.Counts(r.Context(), userID)
	if err != nil {
		httpx.Error(w, r, err)
		return models.ChatCounts{}, false
	}
	return c, true
}
