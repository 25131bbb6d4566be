package models

import "time"

// User represents a row in the PostgreSQL users table.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Password  string    `json:"-"` // bcrypt hash, never serialized
	Blocked   bool      `json:"is_blocked"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRef is the public identity of a chat counterparty.
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SignupRequest is the JSON body for POST /api/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /api/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate is the JSON body for POST /api/profile/update.
type ProfileUpdate struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

// PasswordChange is the JSON body for POST /api/profile/change_password.
type PasswordChange struct {
	UserID      int64  `json:"user_id"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}
