package service

import (
	"context"
	"testing"
	"time"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/queue"
	"cinema-booking-engine/internal/repository"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInventoryService(t *testing.T, q queue.NotificationQueue) InventoryService {
	t.Helper()
	if q == nil {
		q = queue.NewMemoryNotificationQueue(100)
	}
	return NewInventoryService(testDB, repository.NewInventoryRepository(testDB), q)
}

func TestInventoryService_Restock(t *testing.T) {
	ctx := context.Background()

	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	svc := newTestInventoryService(t, nil)
	itemID := createTestItem(t, 1, "Popcorn", intPtr(2), 3, true)

	history, err := svc.Restock(ctx, itemID, 10)
	require.NoError(t, err)
	assert.Equal(t, 12, history.NewQuantity)

	_, err = svc.Restock(ctx, itemID, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestInventoryService_Adjust(t *testing.T) {
	ctx := context.Background()

	t.Run("DownwardAdjustmentBelowThresholdNotifies", func(t *testing.T) {
		cleanup := setupTestWithTruncate(t)
		defer cleanup()

		q := queue.NewMemoryNotificationQueue(10)
		svc := newTestInventoryService(t, q)

		subCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		msgs, err := q.SubscribeEvents(subCtx)
		require.NoError(t, err)

		itemID := createTestItem(t, 1, "Popcorn", intPtr(5), 3, true)

		history, err := svc.Adjust(ctx, itemID, -3)
		require.NoError(t, err)
		assert.Equal(t, 2, history.NewQuantity)

		select {
		case msg := <-msgs:
			assert.Equal(t, model.EventLowStock, msg.Event.Type)
			msg.Ack()
		case <-time.After(time.Second):
			t.Fatal("expected stock.low event")
		}
	})

	t.Run("UnderflowRejected", func(t *testing.T) {
		cleanup := setupTestWithTruncate(t)
		defer cleanup()

		svc := newTestInventoryService(t, nil)
		itemID := createTestItem(t, 1, "Popcorn", intPtr(2), 0, true)

		_, err := svc.Adjust(ctx, itemID, -5)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientStock)
	})

	t.Run("ZeroDeltaRejected", func(t *testing.T) {
		cleanup := setupTestWithTruncate(t)
		defer cleanup()

		svc := newTestInventoryService(t, nil)
		itemID := createTestItem(t, 1, "Popcorn", intPtr(2), 0, true)

		_, err := svc.Adjust(ctx, itemID, 0)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})
}

func TestInventoryService_History(t *testing.T) {
	ctx := context.Background()

	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	svc := newTestInventoryService(t, nil)
	itemID := createTestItem(t, 1, "Popcorn", intPtr(5), 0, true)

	_, err := svc.Restock(ctx, itemID, 5)
	require.NoError(t, err)

	history, err := svc.History(ctx, itemID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.History(ctx, 99999, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrItemNotFound)
}
