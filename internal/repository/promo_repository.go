package repository

import (
	"context"
	"time"

	"cinema-booking-engine/internal/model"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PromoRepository is the only writer of promo_codes.current_uses. The cap is
// enforced by the conditional increment, never by a read followed by a
// separate write.
type PromoRepository interface {
	FindByCode(ctx context.Context, organizationID int64, code string) (*model.PromoCode, error)

	// Transaction methods
	FindByCodeTx(ctx context.Context, tx pgx.Tx, organizationID int64, code string) (*model.PromoCode, error)
	IncrementUsage(ctx context.Context, tx pgx.Tx, promoID int64) error
}

type PromoRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewPromoRepository(pool *pgxpool.Pool) PromoRepository {
	return &PromoRepositoryImpl{pool: pool}
}

const promoColumns = `
	id, organization_id, code, max_uses, current_uses, discount_type,
	discount_value, valid_from, valid_until, min_order_value, created_at, updated_at
`

func (r *PromoRepositoryImpl) FindByCode(ctx context.Context, organizationID int64, code string) (*model.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE organization_id = $1 AND code = $2`
	return scanPromo(r.pool.QueryRow(ctx, query, organizationID, code))
}

func (r *PromoRepositoryImpl) FindByCodeTx(ctx context.Context, tx pgx.Tx, organizationID int64, code string) (*model.PromoCode, error) {
	query := `SELECT ` + promoColumns + ` FROM promo_codes WHERE organization_id = $1 AND code = $2`
	return scanPromo(tx.QueryRow(ctx, query, organizationID, code))
}

// IncrementUsage bumps current_uses only while under the cap. Zero rows
// affected means concurrent redemptions used up the last slot: PromoExhausted.
func (r *PromoRepositoryImpl) IncrementUsage(ctx context.Context, tx pgx.Tx, promoID int64) error {
	query := `
		UPDATE promo_codes
		SET current_uses = current_uses + 1, updated_at = $2
		WHERE id = $1
		  AND (max_uses IS NULL OR current_uses < max_uses)
	`

	result, err := tx.Exec(ctx, query, promoID, time.Now().UTC())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrPromoExhausted
	}

	return nil
}

func scanPromo(row pgx.Row) (*model.PromoCode, error) {
	var promo model.PromoCode
	err := row.Scan(
		&promo.ID,
		&promo.OrganizationID,
		&promo.Code,
		&promo.MaxUses,
		&promo.CurrentUses,
		&promo.DiscountType,
		&promo.DiscountValue,
		&promo.ValidFrom,
		&promo.ValidUntil,
		&promo.MinOrderValue,
		&promo.CreatedAt,
		&promo.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrPromoNotFound
		}
		return nil, err
	}

	return &promo, nil
}
