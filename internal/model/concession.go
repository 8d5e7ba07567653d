package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConcessionItem stock is mutated only through the inventory repository's
// conditional updates; every mutation leaves an InventoryHistory row.
// StockQuantity is nil for untracked items.
type ConcessionItem struct {
	ID                int64           `json:"id" db:"id"`
	OrganizationID    int64           `json:"organization_id" db:"organization_id"`
	Name              string          `json:"name" db:"name"`
	Price             decimal.Decimal `json:"price" db:"price"`
	StockQuantity     *int            `json:"stock_quantity,omitempty" db:"stock_quantity"`
	LowStockThreshold int             `json:"low_stock_threshold" db:"low_stock_threshold"`
	TrackInventory    bool            `json:"track_inventory" db:"track_inventory"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

type InventoryChangeType string

const (
	InventoryChangeInitial    InventoryChangeType = "initial"
	InventoryChangeSale       InventoryChangeType = "sale"
	InventoryChangeRestock    InventoryChangeType = "restock"
	InventoryChangeAdjustment InventoryChangeType = "adjustment"
)

// InventoryHistory is append-only. Invariant:
// previous_quantity + change_amount == new_quantity.
type InventoryHistory struct {
	ID               int64               `json:"id" db:"id"`
	ItemID           int64               `json:"item_id" db:"item_id"`
	PreviousQuantity int                 `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int                 `json:"new_quantity" db:"new_quantity"`
	ChangeAmount     int                 `json:"change_amount" db:"change_amount"`
	ChangeType       InventoryChangeType `json:"change_type" db:"change_type"`
	BookingID        *int64              `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

type AdjustStockRequest struct {
	// Delta may be negative; an adjustment below zero stock is rejected.
	Delta int `json:"delta" binding:"required"`
}
