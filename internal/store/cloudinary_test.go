package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCloudinarySignature(t *testing.T) {
	// Example from Cloudinary's signed-upload documentation.
	params := map[string]string{
		"eager":     "w_400,h_300,c_pad|w_260,h_200,c_crop",
		"public_id": "sample_image",
		"timestamp": "1315060510",
	}
	got := cloudinarySignature(params, "abcd")
	want := "bfd09f95f331f558cbd1320e67aa8d488770583e"
	if got != want {
		t.Errorf("cloudinarySignature() = %v, want %v", got, want)
	}
}

func TestResourceType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/png", "image"},
		{"audio/webm", "video"},
		{"video/mp4", "video"},
		{"application/pdf", "raw"},
		{"", "raw"},
	}
	for _, tt := range tests {
		if got := resourceType(tt.contentType); got != tt.want {
			t.Errorf("resourceType(%q) = %v, want %v", tt.contentType, got, tt.want)
		}
	}
}

func TestCloudinaryStore_Put(t *testing.T) {
	var gotPath, gotPublicID, gotKey, gotSig, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotPublicID = r.FormValue("public_id")
		gotKey = r.FormValue("api_key")
		gotSig = r.FormValue("signature")
		if _, fh, err := r.FormFile("file"); err == nil {
			gotFile = fh.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://res.example/voice_3.webm","public_id":"rentnow_audio/voice_3"}`))
	}))
	defer srv.Close()

	s := newCloudinaryStore(srv.URL, "key123", "secret")
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := s.Put(context.Background(), "rentnow_audio/voice_3.webm", strings.NewReader("OggS"), 4, "audio/webm")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if url != "https://res.example/voice_3.webm" {
		t.Errorf("Put() url = %v", url)
	}
	if gotPath != "/video/upload" {
		t.Errorf("Put() path = %v, want /video/upload", gotPath)
	}
	if gotPublicID != "rentnow_audio/voice_3" {
		t.Errorf("Put() public_id = %v, want rentnow_audio/voice_3", gotPublicID)
	}
	if gotKey != "key123" {
		t.Errorf("Put() api_key = %v, want key123", gotKey)
	}
	wantSig := cloudinarySignature(map[string]string{
		"public_id": "rentnow_audio/voice_3",
		"timestamp": "1700000000",
	}, "secret")
	if gotSig != wantSig {
		t.Errorf("Put() signature = %v, want %v", gotSig, wantSig)
	}
	if gotFile != "voice_3.webm" {
		t.Errorf("Put() filename = %v, want voice_3.webm", gotFile)
	}
}

func TestCloudinaryStore_PutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	s := newCloudinaryStore(srv.URL, "k", "s")
	if _, err := s.Put(context.Background(), "listing_images/a.png", strings.NewReader("x"), 1, "image/png"); err == nil {
		t.Fatal("Put() error = nil, want error on 401")
	}
}
