package worker

import (
	"context"
	"encoding/json"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/queue"
	"cinema-booking-engine/pkg/logger"

	"go.uber.org/zap"
)

// Notifier dispatches committed events to the outside world: email, PDF
// tickets, staff alerts. Implementations live behind this interface because
// delivery channels are external to the engine.
type Notifier interface {
	BookingConfirmed(ctx context.Context, p *model.BookingConfirmedPayload) error
	BookingCancelled(ctx context.Context, p *model.BookingCancelledPayload) error
	LowStock(ctx context.Context, p *model.LowStockPayload) error
}

type NotificationWorker interface {
	Start(ctx context.Context) error
}

type NotificationWorkerImpl struct {
	queue    queue.NotificationQueue
	notifier Notifier
}

func NewNotificationWorker(q queue.NotificationQueue, notifier Notifier) NotificationWorker {
	return &NotificationWorkerImpl{queue: q, notifier: notifier}
}

func (w *NotificationWorkerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeEvents(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.dispatch(ctx, msg.Event); err != nil {
				// Delivery failures requeue; the engine's transaction already
				// committed and is unaffected either way.
				msg.Nack(true)
			} else {
				msg.Ack()
			}
		}
	}()
	return nil
}

func (w *NotificationWorkerImpl) dispatch(ctx context.Context, event *model.NotificationEvent) error {
	log := logger.WithComponent("worker").With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	switch event.Type {
	case model.EventBookingConfirmed:
		var p model.BookingConfirmedPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			log.Warn("malformed booking.confirmed payload, dropping", zap.Error(err))
			return nil
		}
		return w.notifier.BookingConfirmed(ctx, &p)
	case model.EventBookingCancelled:
		var p model.BookingCancelledPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			log.Warn("malformed booking.cancelled payload, dropping", zap.Error(err))
			return nil
		}
		return w.notifier.BookingCancelled(ctx, &p)
	case model.EventLowStock:
		var p model.LowStockPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil {
			log.Warn("malformed stock.low payload, dropping", zap.Error(err))
			return nil
		}
		return w.notifier.LowStock(ctx, &p)
	default:
		log.Warn("unknown event type, dropping")
		return nil
	}
}

// LogNotifier writes notifications to the structured log. The real email/PDF
// channels are external collaborators; this is the in-process stand-in.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) BookingConfirmed(ctx context.Context, p *model.BookingConfirmedPayload) error {
	logger.WithComponent("notifier").Info("booking confirmed",
		zap.Int64("booking_id", p.BookingID),
		zap.String("reference", p.BookingReference),
		zap.Strings("seats", p.Seats),
		zap.String("total_amount", p.TotalAmount),
	)
	return nil
}

func (n *LogNotifier) BookingCancelled(ctx context.Context, p *model.BookingCancelledPayload) error {
	logger.WithComponent("notifier").Info("booking cancelled",
		zap.Int64("booking_id", p.BookingID),
		zap.String("reference", p.BookingReference),
		zap.Strings("seats", p.Seats),
	)
	return nil
}

func (n *LogNotifier) LowStock(ctx context.Context, p *model.LowStockPayload) error {
	logger.WithComponent("notifier").Warn("low stock",
		zap.Int64("item_id", p.ItemID),
		zap.String("name", p.Name),
		zap.Int("remaining", p.RemainingQuantity),
		zap.Int("threshold", p.Threshold),
	)
	return nil
}
