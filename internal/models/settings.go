package models

import "time"

const (
	DefaultPlatformName = "Rent Anything"
	DefaultBannerBG     = "#EDE7F6"
	DefaultBannerText   = "#5A2DFF"
)

type Settings struct {
	ID           int64  `json:"id"`
	PlatformName string `json:"platform_name"`
	LogoURL      string `json:"logo_url"`
}

type Banner struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	BgColor   string `json:"bg_color"`
	TextColor string `json:"text_color"`
	Active    bool   `json:"active"`
}

// Audit target types.
const (
	TargetUser     = "user"
	TargetSettings = "settings"
	TargetBanner   = "banner"
)

// AuditEntry records one admin action. Stored in MongoDB.
type AuditEntry struct {
	Action     string    `json:"action"      bson:"action"`
	Admin      string    `json:"admin"       bson:"admin"`
	TargetType string    `json:"target_type" bson:"target_type"`
	TargetID   int64     `json:"target_id"   bson:"target_id"`
	Detail     string    `json:"detail"      bson:"detail"`
	CreatedAt  time.Time `json:"created_at"  bson:"created_at"`
}
