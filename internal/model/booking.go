package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusPaid      BookingStatus = "paid"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusActivated BookingStatus = "activated"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusUsed      BookingStatus = "used"
	BookingStatusExpired   BookingStatus = "expired"
)

func (s BookingStatus) IsValid() bool {
	switch s {
	case BookingStatusPending, BookingStatusPaid, BookingStatusConfirmed,
		BookingStatusActivated, BookingStatusCancelled, BookingStatusUsed,
		BookingStatusExpired:
		return true
	}
	return false
}

// CanTransitionTo checks whether a status transition is allowed.
// Cancellation is reachable from every state before used/expired.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	transitions := map[BookingStatus][]BookingStatus{
		BookingStatusPending:   {BookingStatusPaid, BookingStatusCancelled, BookingStatusExpired},
		BookingStatusPaid:      {BookingStatusConfirmed, BookingStatusActivated, BookingStatusCancelled},
		BookingStatusConfirmed: {BookingStatusActivated, BookingStatusUsed, BookingStatusCancelled},
		BookingStatusActivated: {BookingStatusUsed, BookingStatusCancelled},
		BookingStatusCancelled: {},
		BookingStatusUsed:      {},
		BookingStatusExpired:   {},
	}

	allowed, ok := transitions[s]
	if !ok {
		return false
	}

	for _, status := range allowed {
		if status == target {
			return true
		}
	}
	return false
}

// Booking is created in one transaction by the booking service and mutated
// afterwards only through status transitions. Totals are never edited in
// place; the ledgers are the source of truth for every side effect.
type Booking struct {
	ID               int64           `json:"id" db:"id"`
	OrganizationID   int64           `json:"organization_id" db:"organization_id"`
	CustomerID       int64           `json:"customer_id" db:"customer_id"`
	ShowtimeID       int64           `json:"showtime_id" db:"showtime_id"`
	Status           BookingStatus   `json:"status" db:"status"`
	BookingReference string          `json:"booking_reference" db:"booking_reference"`
	Subtotal         decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"`
	PromoCodeID      *int64          `json:"promo_code_id,omitempty" db:"promo_code_id"`
	LoyaltyRewardID  *int64          `json:"loyalty_reward_id,omitempty" db:"loyalty_reward_id"`
	ShiftID          *int64          `json:"shift_id,omitempty" db:"shift_id"`
	IdempotencyKey   *string         `json:"-" db:"idempotency_key"`
	RequestHash      *string         `json:"-" db:"request_hash"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`

	Seats []*BookedSeat `json:"seats,omitempty" db:"-"`
}

type ConcessionLine struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity" binding:"required,min=1"`
}

// CreateBookingRequest is the cart handed to the booking service. ShiftID is
// an explicit field so the current staff shift is threaded through the call
// instead of living in ambient state.
type CreateBookingRequest struct {
	OrganizationID  int64            `json:"organization_id" binding:"required"`
	CustomerID      int64            `json:"customer_id" binding:"required"`
	ShowtimeID      int64            `json:"showtime_id" binding:"required"`
	Seats           []string         `json:"seats" binding:"required,min=1"`
	Concessions     []ConcessionLine `json:"concessions"`
	PromoCode       *string          `json:"promo_code,omitempty"`
	LoyaltyRewardID *int64           `json:"loyalty_reward_id,omitempty"`
	ShiftID         *int64           `json:"shift_id,omitempty"`
}

type BookingResponse struct {
	ID               int64    `json:"id"`
	BookingReference string   `json:"booking_reference"`
	Status           string   `json:"status"`
	Subtotal         string   `json:"subtotal"`
	DiscountAmount   string   `json:"discount_amount"`
	TotalAmount      string   `json:"total_amount"`
	Seats            []string `json:"seats"`
	CreatedAt        string   `json:"created_at"`
}
