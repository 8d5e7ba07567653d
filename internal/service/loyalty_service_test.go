package service

import (
	"context"
	"testing"

	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/repository"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoyaltyService_Account(t *testing.T) {
	ctx := context.Background()

	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	svc := NewLoyaltyService(testDB, repository.NewLoyaltyRepository(testDB))

	appendTestLoyalty(t, 1, 10, 100, model.LoyaltyWelcomeBonus)
	appendTestLoyalty(t, 1, 10, -30, model.LoyaltyRedeemed)

	account, err := svc.Account(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 70, account.Points)
	assert.Len(t, account.Transactions, 2)

	empty, err := svc.Account(ctx, 999)
	require.NoError(t, err)
	assert.Zero(t, empty.Points)
	assert.Empty(t, empty.Transactions)
}

func TestLoyaltyService_GrantWelcomeBonus(t *testing.T) {
	ctx := context.Background()

	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	svc := NewLoyaltyService(testDB, repository.NewLoyaltyRepository(testDB))

	first, err := svc.GrantWelcomeBonus(ctx, 1, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, model.LoyaltyWelcomeBonus, first.TransactionType)

	second, err := svc.GrantWelcomeBonus(ctx, 1, 10, 100)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 100, loyaltyBalance(t, 10))
}

func TestPromoService_Preview(t *testing.T) {
	ctx := context.Background()

	cleanup := setupTestWithTruncate(t)
	defer cleanup()

	svc := NewPromoService(repository.NewPromoRepository(testDB))

	createTestPromoWithUses(t, 1, "TEN", intPtr(100), 40, model.DiscountPercentage, 10)

	t.Run("Success", func(t *testing.T) {
		preview, err := svc.Preview(ctx, 1, "TEN", decimal.NewFromFloat(50.00))
		require.NoError(t, err)
		assert.Equal(t, "5.00", preview.DiscountAmount)
		assert.Equal(t, "45.00", preview.Total)
		require.NotNil(t, preview.RemainingUses)
		assert.Equal(t, 60, *preview.RemainingUses)
	})

	t.Run("UnknownCode", func(t *testing.T) {
		_, err := svc.Preview(ctx, 1, "NOPE", decimal.NewFromFloat(50.00))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrPromoNotFound)
	})

	t.Run("ExhaustedCode", func(t *testing.T) {
		createTestPromoWithUses(t, 1, "DONE", intPtr(5), 5, model.DiscountFixed, 1)

		_, err := svc.Preview(ctx, 1, "DONE", decimal.NewFromFloat(50.00))
		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrPromoExhausted)
	})

	t.Run("PreviewDoesNotConsume", func(t *testing.T) {
		before := promoUsesOf(t, 1)
		_, err := svc.Preview(ctx, 1, "TEN", decimal.NewFromFloat(50.00))
		require.NoError(t, err)
		assert.Equal(t, before, promoUsesOf(t, 1))
	})
}
