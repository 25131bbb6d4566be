package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/SaeedRasheed12/rent-app/internal/apperr"
	"github.com/SaeedRasheed12/rent-app/internal/models"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, name, phone string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// ErrBlocked is returned by Login for accounts an admin has blocked.
var ErrBlocked = apperr.Forbidden("Your account has been blocked by admin.")

var errBadCredentials = apperr.Unauthorized("Invalid email or password")

// Service implements signup, login and profile management.
type Service struct {
	users UserStore
}

func NewService(users UserStore) *Service {
	return &Service{users: users}
}

// Signup creates an account. Email uniqueness is case-insensitive and
// enforced by the store.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if name == "" || email == "" || phone == "" || req.Password == "" {
		return nil, apperr.Validation("name, email, phone and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("invalid email")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	return s.users.CreateUser(ctx, &models.User{Name: name, Email: email, Phone: phone, Password: hash})
}

// Login checks existence, then the block flag, then the password.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	u, err := s.users.GetUserByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Blocked {
		return nil, ErrBlocked
	}
	if !VerifyPassword(u.Password, req.Password) {
		return nil, errBadCredentials
	}
	return u, nil
}

func (s *Service) Profile(ctx context.Context, id int64) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// UpdateProfile changes name and phone; blank fields keep their value.
func (s *Service) UpdateProfile(ctx context.Context, req models.ProfileUpdate) (*models.User, error) {
	if req.UserID <= 0 {
		return nil, apperr.Validation("user_id is required")
	}
	u, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	name, phone := u.Name, u.Phone
	if v := strings.TrimSpace(req.Name); v != "" {
		name = v
	}
	if v := strings.TrimSpace(req.Phone); v != "" {
		phone = v
	}
	return s.users.UpdateProfile(ctx, u.ID, name, phone)
}

func (s *Service) ChangePassword(ctx context.Context, req models.PasswordChange) error {
	if req.UserID <= 0 || req.OldPassword == "" || req.NewPassword == "" {
		return apperr.Validation("user_id, old_password and new_password are required")
	}
	u, err := s.users.GetUserByID(ctx, req.UserID)
	if err != nil {
		return err
	}
	if !VerifyPassword(u.Password, req.OldPassword) {
		return apperr.Unauthorized("Old password is incorrect")
	}
	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return apperr.Internal(fmt.Errorf("hash password: %w", err))
	}
	return s.users.UpdatePassword(ctx, u.ID, hash)
}
