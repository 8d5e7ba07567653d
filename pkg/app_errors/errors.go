package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrShowtimeNotFound     = errors.New("showtime not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrItemNotFound         = errors.New("concession item not found")
	ErrPromoNotFound        = errors.New("promo code not found")
	ErrRewardNotFound       = errors.New("loyalty reward not found")
	ErrInvalidBookingStatus = errors.New("invalid booking status")

	ErrSeatUnavailable           = errors.New("seat unavailable")
	ErrInsufficientStock         = errors.New("insufficient stock")
	ErrPromoExpired              = errors.New("promo code not active")
	ErrPromoExhausted            = errors.New("promo code usage limit reached")
	ErrPromoMinimumNotMet        = errors.New("order below promo minimum")
	ErrInsufficientLoyaltyPoints = errors.New("insufficient loyalty points")
	ErrReferenceExhausted        = errors.New("booking reference space exhausted")
	ErrValidation                = errors.New("validation failed")
	ErrConcurrencyConflict       = errors.New("concurrent update conflict")
	ErrIdempotencyKeyReused      = errors.New("idempotency key reused with different payload")
	ErrInternalServerError       = errors.New("internal server error")
)

// SeatUnavailableError names the contested seats so the client can re-render
// the cart. Unwraps to ErrSeatUnavailable.
type SeatUnavailableError struct {
	ShowtimeID int64
	Seats      []string
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable for showtime %d: %s", e.ShowtimeID, strings.Join(e.Seats, ", "))
}

func (e *SeatUnavailableError) Unwrap() error { return ErrSeatUnavailable }

// InsufficientStockError names the item whose conditional decrement failed.
// Unwraps to ErrInsufficientStock.
type InsufficientStockError struct {
	ItemID    int64
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %d (requested %d)", e.ItemID, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError reports which request field failed validation.
// Unwraps to ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IsRetryable reports whether the error is a transient conflict the caller
// may safely retry. Semantic conflicts (seat taken, stock, promo, points)
// are never retryable.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
