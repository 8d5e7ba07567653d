package service

import (
	"context"
	"time"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/repository"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/shopspring/decimal"
)

type PromoService interface {
	// Preview computes the discount a code would give on a subtotal without
	// consuming a usage slot. The answer can go stale by checkout time; the
	// booking transaction revalidates.
	Preview(ctx context.Context, organizationID int64, code string, subtotal decimal.Decimal) (*model.PromoPreviewResponse, error)
}

type PromoServiceImpl struct {
	promos repository.PromoRepository
}

func NewPromoService(promos repository.PromoRepository) PromoService {
	return &PromoServiceImpl{promos: promos}
}

func (s *PromoServiceImpl) Preview(ctx context.Context, organizationID int64, code string, subtotal decimal.Decimal) (*model.PromoPreviewResponse, error) {
	if subtotal.IsNegative() {
		return nil, &apperrors.ValidationError{Field: "subtotal", Reason: "subtotal cannot be negative"}
	}

	promo, err := s.promos.FindByCode(ctx, organizationID, code)
	if err != nil {
		return nil, err
	}
	if !promo.IsActiveAt(time.Now().UTC()) {
		return nil, apperrors.ErrPromoExpired
	}
	if promo.MaxUses != nil && promo.CurrentUses >= *promo.MaxUses {
		return nil, apperrors.ErrPromoExhausted
	}
	if subtotal.LessThan(promo.MinOrderValue) {
		return nil, apperrors.ErrPromoMinimumNotMet
	}

	discount := promo.Discount(subtotal)
	resp := &model.PromoPreviewResponse{
		Code:           promo.Code,
		DiscountType:   promo.DiscountType,
		DiscountAmount: discount.StringFixed(2),
		Total:          subtotal.Sub(discount).StringFixed(2),
	}
	if promo.MaxUses != nil {
		remaining := *promo.MaxUses - promo.CurrentUses
		resp.RemainingUses = &remaining
	}
	return resp, nil
}
