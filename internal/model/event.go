package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingCancelled EventType = "booking.cancelled"
	EventLowStock         EventType = "stock.low"
)

// NotificationEvent is published to the notification queue after a
// transaction commits. It is consumed by the notification worker and must
// never influence the outcome of the transaction that produced it.
type NotificationEvent struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

type BookingConfirmedPayload struct {
	BookingID        int64    `json:"booking_id"`
	OrganizationID   int64    `json:"organization_id"`
	CustomerID       int64    `json:"customer_id"`
	BookingReference string   `json:"booking_reference"`
	Seats            []string `json:"seats"`
	TotalAmount      string   `json:"total_amount"`
}

type BookingCancelledPayload struct {
	BookingID        int64    `json:"booking_id"`
	BookingReference string   `json:"booking_reference"`
	Seats            []string `json:"seats"`
}

type LowStockPayload struct {
	ItemID            int64  `json:"item_id"`
	Name              string `json:"name"`
	RemainingQuantity int    `json:"remaining_quantity"`
	Threshold         int    `json:"threshold"`
}

func NewNotificationEvent(eventType EventType, payload interface{}) (*NotificationEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &NotificationEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}
