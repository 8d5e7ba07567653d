package service

import (
	"context"

	"cinema-booking-engine/internal/database"
	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/queue"
	"cinema-booking-engine/internal/repository"
	apperrors "cinema-booking-engine/pkg/app_errors"
	"cinema-booking-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type InventoryService interface {
	GetItem(ctx context.Context, itemID int64) (*model.ConcessionItem, error)
	Restock(ctx context.Context, itemID int64, quantity int) (*model.InventoryHistory, error)
	// Adjust applies a signed manual correction. It fails with
	// InsufficientStock when the delta would drive quantity negative.
	Adjust(ctx context.Context, itemID int64, delta int) (*model.InventoryHistory, error)
	History(ctx context.Context, itemID int64, limit int) ([]*model.InventoryHistory, error)
}

type InventoryServiceImpl struct {
	pool      *pgxpool.Pool
	inventory repository.InventoryRepository
	queue     queue.NotificationQueue
}

func NewInventoryService(pool *pgxpool.Pool, inventory repository.InventoryRepository, notificationQueue queue.NotificationQueue) InventoryService {
	return &InventoryServiceImpl{pool: pool, inventory: inventory, queue: notificationQueue}
}

func (s *InventoryServiceImpl) GetItem(ctx context.Context, itemID int64) (*model.ConcessionItem, error) {
	return s.inventory.FindByID(ctx, itemID)
}

func (s *InventoryServiceImpl) Restock(ctx context.Context, itemID int64, quantity int) (*model.InventoryHistory, error) {
	if quantity <= 0 {
		return nil, &apperrors.ValidationError{Field: "quantity", Reason: "restock quantity must be positive"}
	}

	var history *model.InventoryHistory
	err := database.WithTransaction(ctx, s.pool, database.DefaultTxOptions(), func(tx pgx.Tx) error {
		var err error
		history, err = s.inventory.Restock(ctx, tx, itemID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (s *InventoryServiceImpl) Adjust(ctx context.Context, itemID int64, delta int) (*model.InventoryHistory, error) {
	if delta == 0 {
		return nil, &apperrors.ValidationError{Field: "delta", Reason: "adjustment delta must be non-zero"}
	}

	var history *model.InventoryHistory
	err := database.WithTransaction(ctx, s.pool, database.DefaultTxOptions(), func(tx pgx.Tx) error {
		var err error
		history, err = s.inventory.Adjust(ctx, tx, itemID, delta, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifyIfLow(ctx, itemID, history)
	return history, nil
}

// notifyIfLow publishes a stock.low event when a downward adjustment leaves
// the item at or below its threshold. Sale-driven low-stock events are
// published by the booking flow.
func (s *InventoryServiceImpl) notifyIfLow(ctx context.Context, itemID int64, history *model.InventoryHistory) {
	if history.NewQuantity >= history.PreviousQuantity {
		return
	}

	item, err := s.inventory.FindByID(ctx, itemID)
	if err != nil || !item.TrackInventory || history.NewQuantity > item.LowStockThreshold {
		return
	}

	event, err := model.NewNotificationEvent(model.EventLowStock, &model.LowStockPayload{
		ItemID:            itemID,
		Name:              item.Name,
		RemainingQuantity: history.NewQuantity,
		Threshold:         item.LowStockThreshold,
	})
	if err != nil {
		return
	}
	if err := s.queue.PublishEvent(ctx, event); err != nil {
		logger.WithComponent("inventory").Error("publish low stock event failed", zap.Int64("item_id", itemID), zap.Error(err))
	}
}

func (s *InventoryServiceImpl) History(ctx context.Context, itemID int64, limit int) ([]*model.InventoryHistory, error) {
	if _, err := s.inventory.FindByID(ctx, itemID); err != nil {
		return nil, err
	}
	return s.inventory.History(ctx, itemID, limit)
}
