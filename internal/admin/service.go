// Package admin is the moderation console: user and listing inspection,
// block and delete, platform branding, and the action audit trail.
package admin

import (
	"context"
	"crypto/subtle"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/auth"
	"github.com/SaeedRasheed12/rent-app/internal/media"
	"github.com/SaeedRasheed12/rent-app/internal/models"
	"github.com/SaeedRasheed12/rent-app/internal/settings"
)

type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	DeleteUserCascade(ctx context.Context, id int64) error
}

type ListingStore interface {
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.Listing, error)
}

type Uploader interface {
	Upload(ctx context.Context, u media.Upload) (*media.Stored, error)
}

// AuditLog keeps the trail of admin actions.
type AuditLog interface {
	Record(ctx context.Context, e models.AuditEntry) error
	Recent(ctx context.Context, limit int64) ([]models.AuditEntry, error)
	ForTarget(ctx context.Context, targetType string, targetID int64) ([]models.AuditEntry, error)
}

// NopAudit is used when no audit database is configured.
type NopAudit struct{}

func (NopAudit) Record(context.Context, models.AuditEntry) error { return nil }

func (NopAudit) Recent(context.Context, int64) ([]models.AuditEntry, error) {
	return []models.AuditEntry{}, nil
}

func (NopAudit) ForTarget(context.Context, string, int64) ([]models.AuditEntry, error) {
	return []models.AuditEntry{}, nil
}

// Credentials are the console login and token signing secret.
type Credentials struct {
	Username string
	Password string
	Secret   string
}

type Service struct {
	users    UserStore
	listings ListingStore
	settings *settings.Service
	media    Uploader
	audit    AuditLog
	creds    Credentials
}

func NewService(users UserStore, listings ListingStore, st *settings.Service, uploader Uploader, audit AuditLog, creds Credentials) *Service {
	if audit == nil {
		audit = NopAudit{}
	}
	return &Service{users: users, listings: listings, settings: st, media: uploader, audit: audit, creds: creds}
}

// Login checks the console credentials and issues an admin token.
// An empty configured password disables the console.
func (s *Service) Login(username, password string) (string, error) {
	if s.creds.Password == "" {
		return "", apperr.Forbidden("admin login is disabled")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.creds.Username)) == 1
	var passOK bool
	if strings.HasPrefix(s.creds.Password, "$2") {
		passOK = auth.VerifyPassword(s.creds.Password, password)
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), []byte(s.creds.Password)) == 1
	}
	if !userOK || !passOK {
		return "", apperr.Unauthorized("Invalid admin credentials")
	}
	token, err := auth.IssueAdminToken(username, s.creds.Secret, auth.AdminTokenTTL)
	if err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

// Dashboard is the users overview with the current settings.
type Dashboard struct {
	Users    []models.User    `json:"users"`
	Settings *models.Settings `json:"settings"`
}

func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Users: users, Settings: st}, nil
}

type UserDetail struct {
	User     *models.User        `json:"user"`
	Listings []models.Listing    `json:"listings"`
	History  []models.AuditEntry `json:"history"`
}

// User returns the account with its listings and the moderation actions
// taken on it. An unreachable audit log yields an empty history.
func (s *Service) User(ctx context.Context, id int64) (*UserDetail, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ls, err := s.listings.ListByOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	history, err := s.audit.ForTarget(ctx, models.TargetUser, id)
	if err != nil {
		log.Warn().Err(err).Int64("target_id", id).Msg("audit history unavailable")
		history = []models.AuditEntry{}
	}
	return &UserDetail{User: u, Listings: ls, History: history}, nil
}

type ListingDetail struct {
	Listing *models.Listing `json:"listing"`
	Owner   *models.User    `json:"owner"`
}

// Listing returns a listing with its owner. A deleted owner is reported
// as null.
func (s *Service) Listing(ctx context.Context, id int64) (*ListingDetail, error) {
	l, err := s.listings.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.users.GetUserByID(ctx, l.OwnerID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	return &ListingDetail{Listing: l, Owner: owner}, nil
}

func (s *Service) SetBlocked(ctx context.Context, admin string, id int64, blocked bool) error {
	if err := s.users.SetBlocked(ctx, id, blocked); err != nil {
		return err
	}
	action := "user.unblock"
	if blocked {
		action = "user.block"
	}
	s.record(ctx, admin, action, models.TargetUser, id, "")
	return nil
}

// DeleteUser removes the user and everything that references them in one
// transaction.
func (s *Service) DeleteUser(ctx context.Context, admin string, id int64) error {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.users.DeleteUserCascade(ctx, id); err != nil {
		return err
	}
	s.record(ctx, admin, "user.delete", models.TargetUser, id, u.Email)
	return nil
}

// Logo is an uploaded platform logo.
type Logo struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateSettings renames the platform and optionally replaces the logo.
func (s *Service) UpdateSettings(ctx context.Context, admin string, platformName *string, logo *Logo) (*models.Settings, error) {
	var logoURL *string
	if logo != nil {
		stored, err := s.media.Upload(ctx, media.Upload{
			Kind:        media.KindImage,
			Filename:    logo.Filename,
			ContentType: logo.ContentType,
			Size:        logo.Size,
			Body:        logo.Body,
			Name:        media.StampedName("logo", time.Now()),
		})
		if err != nil {
			return nil, err
		}
		logoURL = &stored.URL
	}
	st, err := s.settings.Update(ctx, platformName, logoURL)
	if err != nil {
		return nil, err
	}
	s.record(ctx, admin, "settings.update", models.TargetSettings, st.ID, st.PlatformName)
	return st, nil
}

func (s *Service) SaveBanner(ctx context.Context, admin string, b models.Banner) (*models.Banner, error) {
	out, err := s.settings.SaveBanner(ctx, b)
	if err != nil {
		return nil, err
	}
	s.record(ctx, admin, "banner.update", models.TargetBanner, out.ID, out.Text)
	return out, nil
}

// Audit returns the most recent admin actions.
func (s *Service) Audit(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	entries, err := s.audit.Recent(ctx, limit)
	if err != nil {
		return nil, apperr.Upstream("audit log unavailable", err)
	}
	return entries, nil
}

// record never fails the action it describes.
func (s *Service) record(ctx context.Context, admin, action, targetType string, target int64, detail string) {
	err := s.audit.Record(context.WithoutCancel(ctx), models.AuditEntry{
		Action:     action,
		Admin:      admin,
		TargetType: targetType,
		TargetID:   target,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		log.Warn().Err(err).Str("action", action).Str("target_type", targetType).Int64("target_id", target).Msg("audit record failed")
	}
}
