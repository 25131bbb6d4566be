// Package media validates uploads and hands them to the configured blob
// store (MinIO or Cloudinary), returning a durable reference URL.
package media

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/metrics"
)

// ObjectStore is the blob-storage backend.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Opener is implemented by backends that can stream objects back.
type Opener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, int64, error)
}

type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Folders mirror the layout the mobile app already links to.
var folders = map[Kind]string{
	KindImage: "rentnow_images",
	KindAudio: "rentnow_audio",
}

// Upload describes one file to store. Name is the key's base name without
// extension; a random one is used when empty.
type Upload struct {
	Kind        Kind
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Name        string
}

// StampedName builds an object name like voice_2_1700000000_1f0c9a2b.
// The random suffix keeps names from one second apart.
func StampedName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%d_%s", prefix, t.Unix(), uuid.NewString()[:8])
}

// Stored is the result of a successful upload.
type Stored struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type Service struct {
	store    ObjectStore
	maxBytes int64
}

func NewService(store ObjectStore, maxBytes int64) *Service {
	return &Service{store: store, maxBytes: maxBytes}
}

// Upload validates u and stores it. Backend failures come back as
// upstream errors.
func (s *Service) Upload(ctx context.Context, u Upload) (*Stored, error) {
	folder, ok := folders[u.Kind]
	if !ok {
		return nil, apperr.Validation("unsupported media kind")
	}
	if u.Body == nil || u.Size <= 0 {
		return nil, apperr.Validation("file is empty")
	}
	if s.maxBytes > 0 && u.Size > s.maxBytes {
		return nil, apperr.Validation("file is too large")
	}

	ext := strings.ToLower(path.Ext(u.Filename))
	contentType := u.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(ext)
	}
	if !accepts(u.Kind, contentType) {
		return nil, apperr.Validation("file must be " + string(u.Kind))
	}
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}

	name := u.Name
	if name == "" {
		name = uuid.NewString()
	}
	key := folder + "/" + name + ext

	url, err := s.store.Put(ctx, key, u.Body, u.Size, contentType)
	if err != nil {
		metrics.Uploads.WithLabelValues(string(u.Kind), "error").Inc()
		return nil, apperr.Upstream("media upload failed", err)
	}
	metrics.Uploads.WithLabelValues(string(u.Kind), "ok").Inc()
	log.Debug().Str("key", key).Str("kind", string(u.Kind)).Int64("size", u.Size).Msg("media stored")
	return &Stored{Key: key, URL: url}, nil
}

// Some recorders label voice notes as webm/mp4 video.
func accepts(k Kind, contentType string) bool {
	contentType, _, _ = strings.Cut(contentType, ";")
	if strings.HasPrefix(contentType, string(k)+"/") {
		return true
	}
	return k == KindAudio && (contentType == "video/webm" || contentType == "video/mp4")
}

// Discard removes an object whose owning record was never written.
// Failures are logged only.
func (s *Service) Discard(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("media discard failed")
	}
}

// Open streams a stored object when the backend supports it.
func (s *Service) Open(ctx context.Context, key string) (io.ReadCloser, string, int64, error) {
	op, ok := s.store.(Opener)
	if !ok {
		return nil, "", 0, apperr.NotFound("media")
	}
	if key == "" || strings.Contains(key, "..") {
		return nil, "", 0, apperr.Validation("invalid media key")
	}
	rc, ct, size, err := op.Open(ctx, key)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, "", 0, err
		}
		return nil, "", 0, apperr.Upstream("media read failed", err)
	}
	return rc, ct, size, nil
}
