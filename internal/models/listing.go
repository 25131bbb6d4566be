package models

import "time"

// Listing is an item offered for rent. IsRented is only ever written by
// rental transitions.
type Listing struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"user_id"`
	OwnerName   string    `json:"owner_name,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PricePerDay float64   `json:"price_per_day"`
	Category    string    `json:"category"`
	Images      []string  `json:"images"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	City        string    `json:"city"`
	Area        string    `json:"area"`
	Address     string    `json:"address"`
	IsRented    bool      `json:"is_rented"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewListing is the JSON body for POST /api/listings/add and /api/listings/create.
type NewListing struct {
	UserID      int64    `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PricePerDay float64  `json:"price_per_day"`
	Category    string   `json:"category"`
	Images      []string `json:"images"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	Area        string   `json:"area"`
	Address     string   `json:"address"`
}

// NearbyListing is a listing annotated with its distance from the search point.
type NearbyListing struct {
	Listing
	Distance float64 `json:"distance"`
}
