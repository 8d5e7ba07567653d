package handler

import (
	"net/http"
	"strconv"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service service.BookingService
}

func NewBookingHandler(service service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("bookings", h.CreateBooking)
		router.GET("bookings/:id", h.GetBooking)
		router.GET("bookings", h.ListBookings)
		router.PUT("bookings/:id/pay", h.Pay)
		router.PUT("bookings/:id/confirm", h.Confirm)
		router.PUT("bookings/:id/activate", h.Activate)
		router.PUT("bookings/:id/use", h.Use)
		router.PUT("bookings/:id/cancel", h.Cancel)
		router.POST("bookings/:id/reference", h.RegenerateReference)
		router.GET("showtimes/:id/availability", h.ShowtimeAvailability)
	}
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req model.CreateBookingRequest

	if err := BindJson(c, &req); err != nil {
		return
	}

	booking, err := h.service.CreateBooking(c, req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		HandleError(c, err, "CreateBooking")
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(c, id)
	if err != nil {
		HandleError(c, err, "GetBooking")
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) ListBookings(c *gin.Context) {
	customerID, err := strconv.ParseInt(c.Query("customer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid customer_id parameter",
		})
		return
	}

	bookings, err := h.service.ListByCustomer(c, customerID)
	if err != nil {
		HandleError(c, err, "ListBookings")
		return
	}

	c.JSON(http.StatusOK, bookings)
}

func (h *BookingHandler) Pay(c *gin.Context) {
	h.transition(c, model.BookingStatusPaid, "Pay")
}

func (h *BookingHandler) Confirm(c *gin.Context) {
	h.transition(c, model.BookingStatusConfirmed, "Confirm")
}

func (h *BookingHandler) Activate(c *gin.Context) {
	h.transition(c, model.BookingStatusActivated, "Activate")
}

func (h *BookingHandler) Use(c *gin.Context) {
	h.transition(c, model.BookingStatusUsed, "Use")
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	booking, err := h.service.CancelBooking(c, id)
	if err != nil {
		HandleError(c, err, "Cancel")
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) transition(c *gin.Context, target model.BookingStatus, operation string) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	booking, err := h.service.TransitionStatus(c, id, target)
	if err != nil {
		HandleError(c, err, operation)
		return
	}

	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) RegenerateReference(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	booking, err := h.service.RegenerateReference(c, id)
	if err != nil {
		HandleError(c, err, "RegenerateReference")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"booking_id":        booking.ID,
		"booking_reference": booking.BookingReference,
	})
}

func (h *BookingHandler) ShowtimeAvailability(c *gin.Context) {
	id, ok := ParamInt64(c, "id")
	if !ok {
		return
	}

	seats, err := h.service.ShowtimeAvailability(c, id)
	if err != nil {
		HandleError(c, err, "ShowtimeAvailability")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"showtime_id": id,
		"seats":       seats,
	})
}
