package repository

import (
	"context"
	"time"

	"cinema-booking-engine/internal/model"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DecrementResult reports the outcome of a sale decrement. For untracked
// items Tracked is false and no history row is written.
type DecrementResult struct {
	Tracked  bool
	History  *model.InventoryHistory
	LowStock bool
}

// InventoryRepository is the only writer of concession stock. Every stock
// mutation is a single conditional UPDATE paired with one inventory_history
// row in the same transaction.
type InventoryRepository interface {
	FindByID(ctx context.Context, id int64) (*model.ConcessionItem, error)
	History(ctx context.Context, itemID int64, limit int) ([]*model.InventoryHistory, error)

	// Transaction methods
	DecrementStock(ctx context.Context, tx pgx.Tx, itemID int64, quantity int, bookingID int64) (*DecrementResult, error)
	Restock(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) (*model.InventoryHistory, error)
	Adjust(ctx context.Context, tx pgx.Tx, itemID int64, delta int, bookingID *int64) (*model.InventoryHistory, error)
	// SalesByBooking returns the sale entries a booking produced, used by
	// cancellation to put stock back.
	SalesByBooking(ctx context.Context, tx pgx.Tx, bookingID int64) ([]*model.InventoryHistory, error)
}

type InventoryRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewInventoryRepository(pool *pgxpool.Pool) InventoryRepository {
	return &InventoryRepositoryImpl{pool: pool}
}

func (r *InventoryRepositoryImpl) FindByID(ctx context.Context, id int64) (*model.ConcessionItem, error) {
	query := `
		SELECT id, organization_id, name, price, stock_quantity,
		       low_stock_threshold, track_inventory, created_at, updated_at
		FROM concession_items
		WHERE id = $1
	`

	var item model.ConcessionItem
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&item.ID,
		&item.OrganizationID,
		&item.Name,
		&item.Price,
		&item.StockQuantity,
		&item.LowStockThreshold,
		&item.TrackInventory,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, err
	}

	return &item, nil
}

// DecrementStock decrements tracked stock only when enough remains. The
// condition lives in the UPDATE itself, never in a prior read, so concurrent
// sales cannot oversell. Zero rows affected means either the item is
// untracked (succeeds without mutation) or stock is insufficient.
func (r *InventoryRepositoryImpl) DecrementStock(ctx context.Context, tx pgx.Tx, itemID int64, quantity int, bookingID int64) (*DecrementResult, error) {
	if quantity <= 0 {
		return nil, &apperrors.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	query := `
		UPDATE concession_items
		SET stock_quantity = stock_quantity - $2, updated_at = $3
		WHERE id = $1
		  AND track_inventory
		  AND stock_quantity IS NOT NULL
		  AND stock_quantity >= $2
		RETURNING stock_quantity, low_stock_threshold
	`

	var newQuantity, threshold int
	err := tx.QueryRow(ctx, query, itemID, quantity, time.Now().UTC()).Scan(&newQuantity, &threshold)
	if err == nil {
		history, err := r.appendHistory(ctx, tx, &model.InventoryHistory{
			ItemID:           itemID,
			PreviousQuantity: newQuantity + quantity,
			NewQuantity:      newQuantity,
			ChangeAmount:     -quantity,
			ChangeType:       model.InventoryChangeSale,
			BookingID:        &bookingID,
		})
		if err != nil {
			return nil, err
		}
		return &DecrementResult{
			Tracked:  true,
			History:  history,
			LowStock: newQuantity <= threshold,
		}, nil
	}
	if err != pgx.ErrNoRows {
		return nil, err
	}

	var tracked bool
	err = tx.QueryRow(ctx, `SELECT track_inventory AND stock_quantity IS NOT NULL FROM concession_items WHERE id = $1`, itemID).Scan(&tracked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrItemNotFound
		}
		return nil, err
	}
	if !tracked {
		return &DecrementResult{Tracked: false}, nil
	}

	return nil, &apperrors.InsufficientStockError{ItemID: itemID, Requested: quantity}
}

func (r *InventoryRepositoryImpl) Restock(ctx context.Context, tx pgx.Tx, itemID int64, quantity int) (*model.InventoryHistory, error) {
	if quantity <= 0 {
		return nil, &apperrors.ValidationError{Field: "quantity", Reason: "must be positive"}
	}

	query := `
		UPDATE concession_items
		SET stock_quantity = COALESCE(stock_quantity, 0) + $2, updated_at = $3
		WHERE id = $1 AND track_inventory
		RETURNING COALESCE(stock_quantity, 0)
	`

	var newQuantity int
	err := tx.QueryRow(ctx, query, itemID, quantity, time.Now().UTC()).Scan(&newQuantity)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, r.classifyMissingOrUntracked(ctx, tx, itemID)
		}
		return nil, err
	}

	return r.appendHistory(ctx, tx, &model.InventoryHistory{
		ItemID:           itemID,
		PreviousQuantity: newQuantity - quantity,
		NewQuantity:      newQuantity,
		ChangeAmount:     quantity,
		ChangeType:       model.InventoryChangeRestock,
	})
}

// Adjust applies a signed correction. Negative deltas are conditional so an
// adjustment can never push stock below zero.
func (r *InventoryRepositoryImpl) Adjust(ctx context.Context, tx pgx.Tx, itemID int64, delta int, bookingID *int64) (*model.InventoryHistory, error) {
	if delta == 0 {
		return nil, &apperrors.ValidationError{Field: "delta", Reason: "must be non-zero"}
	}

	query := `
		UPDATE concession_items
		SET stock_quantity = COALESCE(stock_quantity, 0) + $2, updated_at = $3
		WHERE id = $1
		  AND track_inventory
		  AND COALESCE(stock_quantity, 0) + $2 >= 0
		RETURNING COALESCE(stock_quantity, 0)
	`

	var newQuantity int
	err := tx.QueryRow(ctx, query, itemID, delta, time.Now().UTC()).Scan(&newQuantity)
	if err != nil {
		if err == pgx.ErrNoRows {
			if cause := r.classifyMissingOrUntracked(ctx, tx, itemID); cause != nil {
				return nil, cause
			}
			return nil, &apperrors.InsufficientStockError{ItemID: itemID, Requested: -delta}
		}
		return nil, err
	}

	return r.appendHistory(ctx, tx, &model.InventoryHistory{
		ItemID:           itemID,
		PreviousQuantity: newQuantity - delta,
		NewQuantity:      newQuantity,
		ChangeAmount:     delta,
		ChangeType:       model.InventoryChangeAdjustment,
		BookingID:        bookingID,
	})
}

func (r *InventoryRepositoryImpl) History(ctx context.Context, itemID int64, limit int) ([]*model.InventoryHistory, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, item_id, previous_quantity, new_quantity, change_amount, change_type, booking_id, created_at
		FROM inventory_history
		WHERE item_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]*model.InventoryHistory, 0)

	for rows.Next() {
		var h model.InventoryHistory
		err := rows.Scan(
			&h.ID,
			&h.ItemID,
			&h.PreviousQuantity,
			&h.NewQuantity,
			&h.ChangeAmount,
			&h.ChangeType,
			&h.BookingID,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		history = append(history, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

func (r *InventoryRepositoryImpl) SalesByBooking(ctx context.Context, tx pgx.Tx, bookingID int64) ([]*model.InventoryHistory, error) {
	query := `
		SELECT id, item_id, previous_quantity, new_quantity, change_amount, change_type, booking_id, created_at
		FROM inventory_history
		WHERE booking_id = $1 AND change_type = 'sale'
		ORDER BY id
	`

	rows, err := tx.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]*model.InventoryHistory, 0)
	for rows.Next() {
		var h model.InventoryHistory
		err := rows.Scan(
			&h.ID,
			&h.ItemID,
			&h.PreviousQuantity,
			&h.NewQuantity,
			&h.ChangeAmount,
			&h.ChangeType,
			&h.BookingID,
			&h.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		sales = append(sales, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sales, nil
}

func (r *InventoryRepositoryImpl) appendHistory(ctx context.Context, tx pgx.Tx, h *model.InventoryHistory) (*model.InventoryHistory, error) {
	query := `
		INSERT INTO inventory_history (item_id, previous_quantity, new_quantity, change_amount, change_type, booking_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		h.ItemID, h.PreviousQuantity, h.NewQuantity, h.ChangeAmount, h.ChangeType, h.BookingID,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return nil, err
	}

	return h, nil
}

func (r *InventoryRepositoryImpl) classifyMissingOrUntracked(ctx context.Context, tx pgx.Tx, itemID int64) error {
	var tracked bool
	err := tx.QueryRow(ctx, `SELECT track_inventory FROM concession_items WHERE id = $1`, itemID).Scan(&tracked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrItemNotFound
		}
		return err
	}
	if !tracked {
		return &apperrors.ValidationError{Field: "item_id", Reason: "inventory not tracked for this item"}
	}
	return nil
}
