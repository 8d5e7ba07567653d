package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoyaltyTransactionType string

const (
	LoyaltyEarned       LoyaltyTransactionType = "earned"
	LoyaltyRedeemed     LoyaltyTransactionType = "redeemed"
	LoyaltyWelcomeBonus LoyaltyTransactionType = "welcome_bonus"
	LoyaltyAdjustment   LoyaltyTransactionType = "adjustment"
	LoyaltyExpired      LoyaltyTransactionType = "expired"
)

// LoyaltyTransaction is one row of the append-only points ledger. A
// customer's balance is always SUM(points) over their rows; there is no
// stored balance column that could drift from the ledger.
type LoyaltyTransaction struct {
	ID              int64                  `json:"id" db:"id"`
	OrganizationID  int64                  `json:"organization_id" db:"organization_id"`
	CustomerID      int64                  `json:"customer_id" db:"customer_id"`
	Points          int                    `json:"points" db:"points"`
	TransactionType LoyaltyTransactionType `json:"transaction_type" db:"transaction_type"`
	BookingID       *int64                 `json:"booking_id,omitempty" db:"booking_id"`
	RewardID        *int64                 `json:"reward_id,omitempty" db:"reward_id"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
}

type RewardType string

const (
	RewardPercentage RewardType = "percentage"
	RewardFixed      RewardType = "fixed"
	RewardFreeTicket RewardType = "free_ticket"
)

// LoyaltyReward is a redeemable reward from the organization's catalog.
// RewardValue is a percentage for percentage rewards, otherwise a currency
// amount (for free_ticket, the ticket-price equivalent).
type LoyaltyReward struct {
	ID             int64           `json:"id" db:"id"`
	OrganizationID int64           `json:"organization_id" db:"organization_id"`
	Name           string          `json:"name" db:"name"`
	PointsRequired int             `json:"points_required" db:"points_required"`
	RewardType     RewardType      `json:"reward_type" db:"reward_type"`
	RewardValue    decimal.Decimal `json:"reward_value" db:"reward_value"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Discount mirrors the promo engine's per-type logic, applied to whatever
// amount remains after earlier discounts.
func (r *LoyaltyReward) Discount(remaining decimal.Decimal) decimal.Decimal {
	switch r.RewardType {
	case RewardPercentage:
		return computeDiscount(DiscountPercentage, r.RewardValue, remaining)
	case RewardFixed, RewardFreeTicket:
		return computeDiscount(DiscountFixed, r.RewardValue, remaining)
	}
	return decimal.Zero
}

// LoyaltyAccount is a derived view, never stored.
type LoyaltyAccount struct {
	CustomerID   int64                 `json:"customer_id"`
	Points       int                   `json:"points"`
	Transactions []*LoyaltyTransaction `json:"transactions,omitempty"`
}
