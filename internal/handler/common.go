package handler

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "cinema-booking-engine/pkg/app_errors"
	"cinema-booking-engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// ParamInt64 parses a numeric path parameter, writing the 400 itself on
// failure.
func ParamInt64(c *gin.Context, name string) (int64, bool) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return value, true
}

// HandleError maps the shared error taxonomy onto HTTP responses. Conflict
// style failures carry structured detail so clients can react to the exact
// seats or items involved.
func HandleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var seatErr *apperrors.SeatUnavailableError
	var stockErr *apperrors.InsufficientStockError
	var validationErr *apperrors.ValidationError

	switch {
	case errors.As(err, &seatErr):
		log.Warn("Seat unavailable")
		c.JSON(http.StatusConflict, gin.H{
			"error":       "Seat unavailable",
			"showtime_id": seatErr.ShowtimeID,
			"seats":       seatErr.Seats,
		})
	case errors.Is(err, apperrors.ErrSeatUnavailable):
		log.Warn("Seat unavailable")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Seat unavailable",
		})
	case errors.As(err, &stockErr):
		log.Warn("Insufficient stock")
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Insufficient stock",
			"item_id":   stockErr.ItemID,
			"requested": stockErr.Requested,
		})
	case errors.Is(err, apperrors.ErrInsufficientStock):
		log.Warn("Insufficient stock")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Insufficient stock",
		})
	case errors.As(err, &validationErr):
		log.Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"field":  validationErr.Field,
			"reason": validationErr.Reason,
		})
	case errors.Is(err, apperrors.ErrValidation):
		log.Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Validation failed",
		})
	case errors.Is(err, apperrors.ErrPromoExpired):
		log.Warn("Promo code expired")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Promo code expired or not yet active",
		})
	case errors.Is(err, apperrors.ErrPromoExhausted):
		log.Warn("Promo code exhausted")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Promo code usage limit reached",
		})
	case errors.Is(err, apperrors.ErrPromoMinimumNotMet):
		log.Warn("Promo minimum not met")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Order value below the promo minimum",
		})
	case errors.Is(err, apperrors.ErrInsufficientLoyaltyPoints):
		log.Warn("Insufficient loyalty points")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Insufficient loyalty points",
		})
	case errors.Is(err, apperrors.ErrInvalidBookingStatus):
		log.Warn("Invalid booking status transition")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Invalid booking status transition",
		})
	case errors.Is(err, apperrors.ErrIdempotencyKeyReused):
		log.Warn("Idempotency key reused")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Idempotency key was already used with a different payload",
		})
	case errors.Is(err, apperrors.ErrConcurrencyConflict):
		log.Warn("Concurrency conflict")
		c.JSON(http.StatusConflict, gin.H{
			"error":     "Concurrent modification, please retry",
			"retryable": true,
		})
	case errors.Is(err, apperrors.ErrReferenceExhausted):
		log.Error("Reference space exhausted")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Could not allocate a booking reference",
		})
	case errors.Is(err, apperrors.ErrBookingNotFound):
		log.Warn("Booking not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Booking not found",
		})
	case errors.Is(err, apperrors.ErrShowtimeNotFound):
		log.Warn("Showtime not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Showtime not found",
		})
	case errors.Is(err, apperrors.ErrItemNotFound):
		log.Warn("Item not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Item not found",
		})
	case errors.Is(err, apperrors.ErrPromoNotFound):
		log.Warn("Promo code not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Promo code not found",
		})
	case errors.Is(err, apperrors.ErrRewardNotFound):
		log.Warn("Reward not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Reward not found",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
