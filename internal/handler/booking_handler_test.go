package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cinema-booking-engine/internal/model"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type BookingServiceMock struct {
	mock.Mock
}

func (m *BookingServiceMock) CreateBooking(ctx context.Context, req model.CreateBookingRequest, idempotencyKey string) (*model.Booking, error) {
	args := m.Called(ctx, req, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Booking, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) TransitionStatus(ctx context.Context, id int64, target model.BookingStatus) (*model.Booking, error) {
	args := m.Called(ctx, id, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) CancelBooking(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) RegenerateReference(ctx context.Context, id int64) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *BookingServiceMock) ShowtimeAvailability(ctx context.Context, showtimeID int64) ([]*model.SeatAvailability, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SeatAvailability), args.Error(1)
}

func setupBookingTestRouter(mockService *BookingServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewBookingHandler(mockService).RegisterRoutes(router)
	return router
}

func createJSONHTTPRequest(method, url string, body interface{}) *http.Request {
	payload, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, url, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func sampleBooking() *model.Booking {
	return &model.Booking{
		ID:               1,
		OrganizationID:   1,
		CustomerID:       10,
		ShowtimeID:       3,
		Status:           model.BookingStatusPending,
		BookingReference: "ABCD2345",
		Subtotal:         decimal.NewFromFloat(25.00),
		TotalAmount:      decimal.NewFromFloat(25.00),
	}
}

func TestBookingHandler_CreateBooking(t *testing.T) {
	validRequest := model.CreateBookingRequest{
		OrganizationID: 1,
		CustomerID:     10,
		ShowtimeID:     3,
		Seats:          []string{"A-1", "A-2"},
	}

	t.Run("Success", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		mockService.On("CreateBooking", mock.Anything, mock.Anything, "key-1").Return(sampleBooking(), nil).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", validRequest)
		req.Header.Set("Idempotency-Key", "key-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingSeatsRejectedByBinding", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", model.CreateBookingRequest{
			OrganizationID: 1, CustomerID: 10, ShowtimeID: 3,
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "CreateBooking")
	})

	t.Run("SeatUnavailableCarriesSeatList", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		mockService.On("CreateBooking", mock.Anything, mock.Anything, "").Return(nil, &apperrors.SeatUnavailableError{
			ShowtimeID: 3,
			Seats:      []string{"A-1"},
		}).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", validRequest)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var body struct {
			Seats []string `json:"seats"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, []string{"A-1"}, body.Seats)
		mockService.AssertExpectations(t)
	})

	t.Run("ConcurrencyConflictIsRetryable", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		mockService.On("CreateBooking", mock.Anything, mock.Anything, "").Return(nil, apperrors.ErrConcurrencyConflict).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/bookings", validRequest)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var body struct {
			Retryable bool `json:"retryable"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.True(t, body.Retryable)
		mockService.AssertExpectations(t)
	})
}

func TestBookingHandler_Transitions(t *testing.T) {
	t.Run("Pay", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		paid := sampleBooking()
		paid.Status = model.BookingStatusPaid
		mockService.On("TransitionStatus", mock.Anything, int64(1), model.BookingStatusPaid).Return(paid, nil).Once()

		req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/pay", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidTransition", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		mockService.On("TransitionStatus", mock.Anything, int64(1), model.BookingStatusUsed).Return(nil, apperrors.ErrInvalidBookingStatus).Once()

		req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/use", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("CancelGoesThroughCancelBooking", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		cancelled := sampleBooking()
		cancelled.Status = model.BookingStatusCancelled
		mockService.On("CancelBooking", mock.Anything, int64(1)).Return(cancelled, nil).Once()

		req, _ := http.NewRequest("PUT", "/api/v1/bookings/1/cancel", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("BadIDParameter", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		req, _ := http.NewRequest("PUT", "/api/v1/bookings/abc/pay", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "TransitionStatus")
	})
}

func TestBookingHandler_GetBooking(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		mockService := new(BookingServiceMock)
		router := setupBookingTestRouter(mockService)

		mockService.On("GetBooking", mock.Anything, int64(9)).Return(nil, apperrors.ErrBookingNotFound).Once()

		req, _ := http.NewRequest("GET", "/api/v1/bookings/9", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestBookingHandler_ShowtimeAvailability(t *testing.T) {
	mockService := new(BookingServiceMock)
	router := setupBookingTestRouter(mockService)

	mockService.On("ShowtimeAvailability", mock.Anything, int64(3)).Return([]*model.SeatAvailability{
		{Seat: "A-1", SeatType: "standard", Price: "12.50", Booked: false},
		{Seat: "A-2", SeatType: "standard", Price: "12.50", Booked: true},
	}, nil).Once()

	req, _ := http.NewRequest("GET", "/api/v1/showtimes/3/availability", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ShowtimeID int64                     `json:"showtime_id"`
		Seats      []*model.SeatAvailability `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.ShowtimeID)
	assert.Len(t, body.Seats, 2)
	mockService.AssertExpectations(t)
}
