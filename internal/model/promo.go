package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
	DiscountFreeItem   DiscountType = "free_item"
)

// PromoCode usage is capped by max_uses; nil means unlimited. current_uses is
// mutated only through the promo repository's conditional increment, so it
// can never exceed max_uses under concurrent redemption.
type PromoCode struct {
	ID             int64           `json:"id" db:"id"`
	OrganizationID int64           `json:"organization_id" db:"organization_id"`
	Code           string          `json:"code" db:"code"`
	MaxUses        *int            `json:"max_uses,omitempty" db:"max_uses"`
	CurrentUses    int             `json:"current_uses" db:"current_uses"`
	DiscountType   DiscountType    `json:"discount_type" db:"discount_type"`
	DiscountValue  decimal.Decimal `json:"discount_value" db:"discount_value"`
	ValidFrom      time.Time       `json:"valid_from" db:"valid_from"`
	ValidUntil     time.Time       `json:"valid_until" db:"valid_until"`
	MinOrderValue  decimal.Decimal `json:"min_order_value" db:"min_order_value"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// IsActiveAt reports whether the promo's validity window covers t.
func (p *PromoCode) IsActiveAt(t time.Time) bool {
	return !t.Before(p.ValidFrom) && !t.After(p.ValidUntil)
}

// Discount computes the discount for a given subtotal. Percentage discounts
// apply to the subtotal; fixed and free-item discounts are capped at the
// subtotal so the total never goes negative.
func (p *PromoCode) Discount(subtotal decimal.Decimal) decimal.Decimal {
	return computeDiscount(p.DiscountType, p.DiscountValue, subtotal)
}

func computeDiscount(kind DiscountType, value, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch kind {
	case DiscountPercentage:
		d = subtotal.Mul(value).Div(decimal.NewFromInt(100))
	case DiscountFixed, DiscountFreeItem:
		d = value
	default:
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}

type PromoPreviewRequest struct {
	OrganizationID int64  `json:"organization_id" binding:"required"`
	Code           string `json:"code" binding:"required"`
	Subtotal       string `json:"subtotal" binding:"required"`
}

type PromoPreviewResponse struct {
	Code           string       `json:"code"`
	DiscountType   DiscountType `json:"discount_type"`
	DiscountAmount string       `json:"discount_amount"`
	Total          string       `json:"total"`
	RemainingUses  *int         `json:"remaining_uses,omitempty"`
}
