package queue

import (
	"context"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/pkg/logger"

	"go.uber.org/zap"
)

type Delivery struct {
	Event *model.NotificationEvent
	Ack   func()
	Nack  func(requeue bool)
}

// NotificationQueue carries fire-and-forget events out of committed booking
// transactions. Publishing happens strictly after commit; a publish failure
// is logged, never propagated into the transaction's outcome.
type NotificationQueue interface {
	PublishEvent(ctx context.Context, event *model.NotificationEvent) error
	SubscribeEvents(ctx context.Context) (<-chan Delivery, error)
}

// MemoryNotificationQueue backs the interface with a Go channel. Used in
// tests and single-process deployments.
type MemoryNotificationQueue struct {
	ch chan *model.NotificationEvent
}

func NewMemoryNotificationQueue(bufferSize int) *MemoryNotificationQueue {
	return &MemoryNotificationQueue{
		ch: make(chan *model.NotificationEvent, bufferSize),
	}
}

func (q *MemoryNotificationQueue) PublishEvent(ctx context.Context, event *model.NotificationEvent) error {
	select {
	case q.ch <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryNotificationQueue) SubscribeEvents(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-q.ch:
				if !ok {
					return
				}

				out <- Delivery{
					Event: event,
					Ack:   func() {},
					Nack: func(requeue bool) {
						if !requeue {
							return
						}
						// Never block the worker: a full buffer drops
						// the event instead of wedging the pipeline.
						select {
						case q.ch <- event:
						default:
							logger.WithComponent("mq").Warn("requeue dropped: buffer full", zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
						}
					},
				}
			}
		}
	}()

	return out, nil
}
