package models

import "time"

type RentalStatus string

const (
	RentalPending  RentalStatus = "pending"
	RentalAccepted RentalStatus = "accepted"
	RentalDeclined RentalStatus = "declined"
	// RentalOngoing is recognized by the active-rental rules but no
	// operation produces it.
	RentalOngoing  RentalStatus = "ongoing"
	RentalReturned RentalStatus = "returned"
)

// Active reports whether the status counts against the one-active-rental rule.
func (s RentalStatus) Active() bool {
	return s == RentalAccepted || s == RentalOngoing
}

const (
	PickupSelf  = "self_pick"
	PickupRider = "rider_delivery"
)

// PickupDetails are the owner-supplied handover fields set on decision.
type PickupDetails struct {
	Address *string `json:"owner_pickup_address,omitempty"`
	Contact *string `json:"owner_pickup_contact,omitempty"`
	Note    *string `json:"owner_pickup_note,omitempty"`
}

// PaymentDetails are the owner's payout fields set on decision.
type PaymentDetails struct {
	Bank    *string `json:"owner_payment_bank,omitempty"`
	Title   *string `json:"owner_payment_title,omitempty"`
	Account *string `json:"owner_payment_account,omitempty"`
	Note    *string `json:"owner_payment_note,omitempty"`
}

type RentalRequest struct {
	ID         int64        `json:"id"`
	ListingID  int64        `json:"listing_id"`
	RenterID   int64        `json:"renter_id"`
	OwnerID    int64        `json:"owner_id"`
	ChatID     *int64       `json:"chat_id"`
	StartDate  string       `json:"start_date"`
	EndDate    string       `json:"end_date"`
	TotalDays  int          `json:"total_days"`
	TotalPrice float64      `json:"total_price"`
	Pickup     string       `json:"pickup_method"`
	Address    string       `json:"address"`
	Note       string       `json:"note"`
	Status     RentalStatus `json:"status"`

	RenterDeliveryAddress string `json:"renter_delivery_address"`
	RenterDeliveryContact string `json:"renter_delivery_contact"`
	RenterDeliveryNote    string `json:"renter_delivery_note"`

	OwnerPickupAddress string `json:"owner_pickup_address"`
	OwnerPickupContact string `json:"owner_pickup_contact"`
	OwnerPickupNote    string `json:"owner_pickup_note"`

	OwnerPaymentBank    string `json:"owner_payment_bank"`
	OwnerPaymentTitle   string `json:"owner_payment_title"`
	OwnerPaymentAccount string `json:"owner_payment_account"`
	OwnerPaymentNote    string `json:"owner_payment_note"`

	CNICImage         string     `json:"cnic_image"`
	SelfieImage       string     `json:"selfie_image"`
	RenterVerified    bool       `json:"renter_verified"`
	RulesAgreed       bool       `json:"safety_rules_agreed"`
	AgreementSignedAt *time.Time `json:"agreement_signed_at"`
	CreatedAt         time.Time  `json:"created_at"`
}

// RentalView is a request annotated for the owner or renter dashboards.
type RentalView struct {
	RentalRequest
	ListingTitle string `json:"listing_title"`
	RenterName   string `json:"renter_name,omitempty"`
	OwnerName    string `json:"owner_name,omitempty"`
}

// NewRental is the JSON body for POST /api/rent/create and /api/rent/create_safe.
type NewRental struct {
	ListingID  int64   `json:"listing_id"`
	RenterID   int64   `json:"renter_id"`
	OwnerID    int64   `json:"owner_id"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	TotalDays  int     `json:"total_days"`
	TotalPrice float64 `json:"total_price"`
	Pickup     string  `json:"pickup_method"`
	Address    string  `json:"address"`
	Note       string  `json:"note"`

	RenterDeliveryAddress string `json:"renter_delivery_address"`
	RenterDeliveryContact string `json:"renter_delivery_contact"`
	RenterDeliveryNote    string `json:"renter_delivery_note"`

	CNICImage   string `json:"cnic_image"`
	SelfieImage string `json:"selfie_image"`
	RulesAgreed bool   `json:"rules_agreed"`
}

// Decision is the JSON body for POST /api/rent/decision.
type Decision struct {
	RequestID int64        `json:"request_id"`
	Status    RentalStatus `json:"status"`
	PickupDetails
	PaymentDetails
}

// RentalTransition is a guarded status change applied atomically with
// the linked listing's availability flag.
type RentalTransition struct {
	RequestID int64
	From      RentalStatus
	To        RentalStatus
	Pickup    PickupDetails
	Payment   PaymentDetails
}
