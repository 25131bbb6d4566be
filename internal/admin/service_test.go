package admin

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/auth"
	"github.com/SaeedRasheed12/rent-app/internal/media"
	"github.com/SaeedRasheed12/rent-app/internal/middleware"
	"github.com/SaeedRasheed12/rent-app/internal/models"
	"github.com/SaeedRasheed12/rent-app/internal/settings"
)

const secret = "test-secret"

type fakeDB struct {
	users    map[int64]*models.User
	listings map[int64]*models.Listing
	cascaded []int64
	st       *models.Settings
	banner   *models.Banner
}

func newDB() *fakeDB {
	return &fakeDB{
		users: map[int64]*models.User{
			1: {ID: 1, Name: "Ayesha", Email: "ayesha@example.com"},
			2: {ID: 2, Name: "Bilal", Email: "bilal@example.com"},
		},
		listings: map[int64]*models.Listing{
			5: {ID: 5, OwnerID: 2, Title: "Generator"},
			6: {ID: 6, OwnerID: 9, Title: "Orphan"},
		},
	}
}

func (f *fakeDB) ListUsers(context.Context) ([]models.User, error) {
	return []models.User{*f.users[2], *f.users[1]}, nil
}

func (f *fakeDB) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

func (f *fakeDB) SetBlocked(_ context.Context, id int64, blocked bool) error {
	u, ok := f.users[id]
	if !ok {
		return apperr.NotFound("user")
	}
	u.Blocked = blocked
	return nil
}

func (f *fakeDB) DeleteUserCascade(_ context.Context, id int64) error {
	delete(f.users, id)
	for lid, l := range f.listings {
		if l.OwnerID == id {
			delete(f.listings, lid)
		}
	}
	f.cascaded = append(f.cascaded, id)
	return nil
}

func (f *fakeDB) GetListing(_ context.Context, id int64) (*models.Listing, error) {
	l, ok := f.listings[id]
	if !ok {
		return nil, apperr.NotFound("listing")
	}
	return l, nil
}

func (f *fakeDB) ListByOwner(_ context.Context, owner int64) ([]models.Listing, error) {
	out := []models.Listing{}
	for _, l := range f.listings {
		if l.OwnerID == owner {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeDB) GetSettings(context.Context) (*models.Settings, error) {
	if f.st == nil {
		f.st = &models.Settings{ID: 1, PlatformName: models.DefaultPlatformName}
	}
	cp := *f.st
	return &cp, nil
}

func (f *fakeDB) UpdateSettings(ctx context.Context, name, logo *string) (*models.Settings, error) {
	_, _ = f.GetSettings(ctx)
	if name != nil {
		f.st.PlatformName = *name
	}
	if logo != nil {
		f.st.LogoURL = *logo
	}
	cp := *f.st
	return &cp, nil
}

func (f *fakeDB) ActiveBanner(context.Context) (*models.Banner, error) { return f.banner, nil }

func (f *fakeDB) SaveBanner(_ context.Context, b models.Banner) (*models.Banner, error) {
	b.ID = 1
	f.banner = &b
	return &b, nil
}

type fakeUploader struct{ uploads []media.Upload }

func (u *fakeUploader) Upload(_ context.Context, up media.Upload) (*media.Stored, error) {
	u.uploads = append(u.uploads, up)
	return &media.Stored{Key: "rentnow_images/" + up.Name + ".png", URL: "https://blob.example/" + up.Name + ".png"}, nil
}

type memAudit struct {
	entries []models.AuditEntry
	fail    bool
}

func (m *memAudit) Record(_ context.Context, e models.AuditEntry) error {
	if m.fail {
		return errors.New("mongo unavailable")
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) Recent(_ context.Context, limit int64) ([]models.AuditEntry, error) {
	if m.fail {
		return nil, errors.New("mongo unavailable")
	}
	out := []models.AuditEntry{}
	for i := len(m.entries) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *memAudit) ForTarget(_ context.Context, targetType string, target int64) ([]models.AuditEntry, error) {
	if m.fail {
		return nil, errors.New("mongo unavailable")
	}
	out := []models.AuditEntry{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].TargetType == targetType && m.entries[i].TargetID == target {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func newService(password string) (*Service, *fakeDB, *fakeUploader, *memAudit) {
	db, up, audit := newDB(), &fakeUploader{}, &memAudit{}
	svc := NewService(db, db, settings.NewService(db), up, audit, Credentials{
		Username: "admin", Password: password, Secret: secret,
	})
	return svc, db, up, audit
}

func TestLogin(t *testing.T) {
	hash, err := auth.HashPassword("s3cret!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	tests := []struct {
		name       string
		configured string
		user, pass string
		wantKind   apperr.Kind
		wantOK     bool
	}{
		{"plain ok", "s3cret!", "admin", "s3cret!", 0, true},
		{"hashed ok", hash, "admin", "s3cret!", 0, true},
		{"wrong password", "s3cret!", "admin", "nope", apperr.KindUnauthorized, false},
		{"wrong user", "s3cret!", "root", "s3cret!", apperr.KindUnauthorized, false},
		{"disabled", "", "admin", "", apperr.KindForbidden, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, _ := newService(tt.configured)
			token, err := svc.Login(tt.user, tt.pass)
			if !tt.wantOK {
				if apperr.KindOf(err) != tt.wantKind {
					t.Errorf("Login() kind = %v, want %v", apperr.KindOf(err), tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			claims, err := auth.ParseAdminToken(token, secret)
			if err != nil {
				t.Fatalf("ParseAdminToken() error = %v", err)
			}
			if claims.Subject != "admin" || claims.Role != auth.RoleAdmin {
				t.Errorf("claims = %+v, want admin subject and role", claims)
			}
		})
	}
}

func TestModeration(t *testing.T) {
	svc, db, _, audit := newService("pw")
	ctx := context.Background()

	if err := svc.SetBlocked(ctx, "admin", 1, true); err != nil {
		t.Fatalf("SetBlocked() error = %v", err)
	}
	if !db.users[1].Blocked {
		t.Error("user 1 not blocked")
	}
	if err := svc.SetBlocked(ctx, "admin", 1, false); err != nil {
		t.Fatalf("SetBlocked(false) error = %v", err)
	}
	if err := svc.SetBlocked(ctx, "admin", 77, true); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("SetBlocked(unknown) kind = %v, want not_found", apperr.KindOf(err))
	}

	if err := svc.DeleteUser(ctx, "admin", 2); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if _, ok := db.listings[5]; ok {
		t.Error("DeleteUser() left the user's listing")
	}
	if err := svc.DeleteUser(ctx, "admin", 2); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("DeleteUser() twice kind = %v, want not_found", apperr.KindOf(err))
	}

	var actions []string
	for _, e := range audit.entries {
		actions = append(actions, e.Action)
	}
	want := "user.block,user.unblock,user.delete"
	if got := strings.Join(actions, ","); got != want {
		t.Errorf("audit actions = %s, want %s", got, want)
	}
}

func TestModeration_AuditFailureIsNotFatal(t *testing.T) {
	svc, db, _, audit := newService("pw")
	audit.fail = true
	if err := svc.SetBlocked(context.Background(), "admin", 1, true); err != nil {
		t.Fatalf("SetBlocked() error = %v", err)
	}
	if !db.users[1].Blocked {
		t.Error("user 1 not blocked")
	}
	if _, err := svc.Audit(context.Background(), 10); apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("Audit() kind = %v, want upstream", apperr.KindOf(err))
	}
}

func TestUser_History(t *testing.T) {
	svc, _, _, audit := newService("pw")
	ctx := context.Background()
	for _, id := range []int64{1, 2, 1} {
		if err := svc.SetBlocked(ctx, "admin", id, true); err != nil {
			t.Fatalf("SetBlocked(%d) error = %v", id, err)
		}
	}
	// The settings row and the banner also have id 1.
	name := "Renamed"
	if _, err := svc.UpdateSettings(ctx, "admin", &name, nil); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if _, err := svc.SaveBanner(ctx, "admin", models.Banner{Text: "Eid sale", Active: true}); err != nil {
		t.Fatalf("SaveBanner() error = %v", err)
	}

	d, err := svc.User(ctx, 1)
	if err != nil {
		t.Fatalf("User() error = %v", err)
	}
	if len(d.History) != 2 {
		t.Errorf("User() history = %d entries, want 2", len(d.History))
	}
	for _, e := range d.History {
		if e.TargetType != models.TargetUser || e.Action != "user.block" {
			t.Errorf("User() history entry = %s %s, want user.block on a user", e.TargetType, e.Action)
		}
	}

	audit.fail = true
	d, err = svc.User(ctx, 1)
	if err != nil {
		t.Fatalf("User() with audit down error = %v", err)
	}
	if d.History == nil || len(d.History) != 0 {
		t.Errorf("User() history with audit down = %v, want empty", d.History)
	}
}

func TestListing_OwnerMissing(t *testing.T) {
	svc, _, _, _ := newService("pw")
	d, err := svc.Listing(context.Background(), 6)
	if err != nil {
		t.Fatalf("Listing() error = %v", err)
	}
	if d.Owner != nil {
		t.Errorf("Listing() owner = %+v, want nil", d.Owner)
	}
}

func router(svc *Service) http.Handler {
	h := NewHandler(svc, 1<<20)
	r := chi.NewRouter()
	r.Post("/admin/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(secret))
		r.Get("/admin/users", h.Users)
		r.Get("/admin/users/{id}", h.User)
		r.Get("/admin/listings/{id}", h.Listing)
		r.Post("/admin/users/{id}/block", h.Block)
		r.Delete("/admin/users/{id}", h.Delete)
		r.Post("/admin/settings", h.Settings)
		r.Post("/admin/banner", h.Banner)
		r.Get("/admin/audit", h.Audit)
	})
	return r
}

func TestHandler_Routes(t *testing.T) {
	svc, _, _, _ := newService("pw")
	token, _ := svc.Login("admin", "pw")
	userToken, _ := auth.IssueAdminToken("admin", "other-secret", auth.AdminTokenTTL)

	tests := []struct {
		name, method, path, body, token string
		want                            int
	}{
		{"login", http.MethodPost, "/admin/login", `{"username":"admin","password":"pw"}`, "", http.StatusOK},
		{"login wrong", http.MethodPost, "/admin/login", `{"username":"admin","password":"x"}`, "", http.StatusUnauthorized},
		{"no token", http.MethodGet, "/admin/users", ``, "", http.StatusUnauthorized},
		{"foreign token", http.MethodGet, "/admin/users", ``, userToken, http.StatusForbidden},
		{"users", http.MethodGet, "/admin/users", ``, token, http.StatusOK},
		{"user", http.MethodGet, "/admin/users/2", ``, token, http.StatusOK},
		{"user missing", http.MethodGet, "/admin/users/99", ``, token, http.StatusNotFound},
		{"listing", http.MethodGet, "/admin/listings/5", ``, token, http.StatusOK},
		{"block", http.MethodPost, "/admin/users/1/block", ``, token, http.StatusOK},
		{"banner", http.MethodPost, "/admin/banner", `{"text":"Sale","active":true}`, token, http.StatusOK},
		{"banner bad colour", http.MethodPost, "/admin/banner", `{"text":"Sale","bg_color":"blue"}`, token, http.StatusBadRequest},
		{"audit", http.MethodGet, "/admin/audit?limit=5", ``, token, http.StatusOK},
		{"delete", http.MethodDelete, "/admin/users/1", ``, token, http.StatusOK},
	}
	r := router(svc)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("%s %s status = %d, want %d (%s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHandler_SettingsWithLogo(t *testing.T) {
	svc, db, up, _ := newService("pw")
	token, _ := svc.Login("admin", "pw")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("platform_name", "RentNow")
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="logo"; filename="logo.png"`)
	hdr.Set("Content-Type", "image/png")
	part, _ := mw.CreatePart(hdr)
	_, _ = part.Write([]byte("\x89PNG\r\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/admin/settings", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /admin/settings status = %d (%s)", w.Code, w.Body.String())
	}
	if len(up.uploads) != 1 || up.uploads[0].Kind != media.KindImage {
		t.Fatalf("uploads = %+v, want one image", up.uploads)
	}
	if db.st.PlatformName != "RentNow" || !strings.HasPrefix(db.st.LogoURL, "https://blob.example/logo_") {
		t.Errorf("settings = %+v, want new name and logo", db.st)
	}
}
