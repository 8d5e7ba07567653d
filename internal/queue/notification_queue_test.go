package queue

import (
	"context"
	"testing"
	"time"

	"cinema-booking-engine/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T) *model.NotificationEvent {
	t.Helper()
	event, err := model.NewNotificationEvent(model.EventBookingConfirmed, &model.BookingConfirmedPayload{
		BookingID:        1,
		BookingReference: "TESTREF1",
	})
	require.NoError(t, err)
	return event
}

func TestMemoryNotificationQueue_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewMemoryNotificationQueue(10)
	msgs, err := q.SubscribeEvents(ctx)
	require.NoError(t, err)

	published := mustEvent(t)
	require.NoError(t, q.PublishEvent(ctx, published))

	select {
	case msg := <-msgs:
		assert.Equal(t, published.ID, msg.Event.ID)
		assert.Equal(t, model.EventBookingConfirmed, msg.Event.Type)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("no delivery within deadline")
	}
}

func TestMemoryNotificationQueue_NackRequeues(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewMemoryNotificationQueue(10)
	msgs, err := q.SubscribeEvents(ctx)
	require.NoError(t, err)

	require.NoError(t, q.PublishEvent(ctx, mustEvent(t)))

	first := <-msgs
	first.Nack(true)

	select {
	case second := <-msgs:
		assert.Equal(t, first.Event.ID, second.Event.ID)
		second.Ack()
	case <-time.After(time.Second):
		t.Fatal("nacked event was not redelivered")
	}
}

func TestMemoryNotificationQueue_NackDropsWhenBufferFull(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := NewMemoryNotificationQueue(1)
	require.NoError(t, q.PublishEvent(ctx, mustEvent(t)))

	msgs, err := q.SubscribeEvents(ctx)
	require.NoError(t, err)

	first := <-msgs

	// The second event gets picked up by the subscriber goroutine, which
	// then blocks on delivery; the third fills the buffer.
	second := mustEvent(t)
	third := mustEvent(t)
	require.NoError(t, q.PublishEvent(ctx, second))
	require.NoError(t, q.PublishEvent(ctx, third))

	// Requeue has nowhere to go. It must return instead of blocking.
	done := make(chan struct{})
	go func() {
		first.Nack(true)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("nack blocked on a full buffer")
	}

	for _, want := range []*model.NotificationEvent{second, third} {
		select {
		case msg := <-msgs:
			assert.Equal(t, want.ID, msg.Event.ID)
			msg.Ack()
		case <-time.After(time.Second):
			t.Fatal("no delivery within deadline")
		}
	}

	select {
	case msg := <-msgs:
		t.Fatalf("dropped event was redelivered: %s", msg.Event.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestMemoryNotificationQueue_PublishBlockedByCancelledContext(t *testing.T) {
	q := NewMemoryNotificationQueue(0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.PublishEvent(ctx, mustEvent(t))
	assert.ErrorIs(t, err, context.Canceled)
}
