package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const cloudinaryAPI = "https://api.cloudinary.com/v1_1/"

// CloudinaryStore uploads media to Cloudinary's signed upload API.
type CloudinaryStore struct {
	client    *resty.Client
	apiKey    string
	apiSecret string
	now       func() time.Time
}

func NewCloudinaryStore(cloudName, apiKey, apiSecret string) *CloudinaryStore {
	return newCloudinaryStore(cloudinaryAPI+cloudName, apiKey, apiSecret)
}

func newCloudinaryStore(baseURL, apiKey, apiSecret string) *CloudinaryStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second)
	return &CloudinaryStore{client: client, apiKey: apiKey, apiSecret: apiSecret, now: time.Now}
}

type cloudinaryUpload struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

type cloudinaryError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Put uploads r under key (minus its extension) and returns the secure URL.
func (s *CloudinaryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	publicID := strings.TrimSuffix(key, path.Ext(key))
	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}
	form := s.signed(params)

	var (
		out  cloudinaryUpload
		fail cloudinaryError
	)
	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", path.Base(key), r).
		SetFormData(form).
		SetResult(&out).
		SetError(&fail).
		Post("/" + resourceType(contentType) + "/upload")
	if err != nil {
		return "", fmt.Errorf("cloudinary upload %s: %w", key, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("cloudinary upload %s: status %d: %s", key, resp.StatusCode(), fail.Error.Message)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("cloudinary upload %s: empty secure_url", key)
	}
	return out.SecureURL, nil
}

// Delete destroys the asset uploaded under key.
func (s *CloudinaryStore) Delete(ctx context.Context, key string) error {
	params := map[string]string{
		"public_id": strings.TrimSuffix(key, path.Ext(key)),
		"timestamp": strconv.FormatInt(s.now().Unix(), 10),
	}
	var fail cloudinaryError
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(s.signed(params)).
		SetError(&fail).
		Post("/" + resourceType(mime.TypeByExtension(path.Ext(key))) + "/destroy")
	if err != nil {
		return fmt.Errorf("cloudinary destroy %s: %w", key, err)
	}
	if resp.IsError() {
		return fmt.Errorf("cloudinary destroy %s: status %d: %s", key, resp.StatusCode(), fail.Error.Message)
	}
	return nil
}

// signed adds api_key and signature to params.
func (s *CloudinaryStore) signed(params map[string]string) map[string]string {
	form := make(map[string]string, len(params)+2)
	for k, v := range params {
		form[k] = v
	}
	form["signature"] = cloudinarySignature(params, s.apiSecret)
	form["api_key"] = s.apiKey
	return form
}

// cloudinarySignature is the hex SHA-1 of the sorted "k=v" pairs joined
// with "&", followed by the API secret.
func cloudinarySignature(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

// Cloudinary files audio under the video resource type.
func resourceType(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "audio/"), strings.HasPrefix(contentType, "video/"):
		return "video"
	default:
		return "raw"
	}
}
