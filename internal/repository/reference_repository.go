package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferenceRepository owns the booking_references table. Every code ever
// issued stays in the table forever, active or retired, so a retired code
// can never be drawn again: the primary key refuses the re-insert.
type ReferenceRepository interface {
	// TryClaim records a candidate code, returning false if it was ever
	// issued before. Race-safe through the primary key, not a lookup.
	TryClaim(ctx context.Context, tx pgx.Tx, code string) (bool, error)
	// Attach links a claimed code to its booking once the booking row exists.
	Attach(ctx context.Context, tx pgx.Tx, code string, bookingID int64) error
	// RetireOthers deactivates every code of the booking except the given
	// one. Retired rows remain in the table permanently.
	RetireOthers(ctx context.Context, tx pgx.Tx, bookingID int64, keep string) error
}

type ReferenceRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewReferenceRepository(pool *pgxpool.Pool) ReferenceRepository {
	return &ReferenceRepositoryImpl{pool: pool}
}

func (r *ReferenceRepositoryImpl) TryClaim(ctx context.Context, tx pgx.Tx, code string) (bool, error) {
	query := `
		INSERT INTO booking_references (code, active, issued_at)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (code) DO NOTHING
	`

	result, err := tx.Exec(ctx, query, code, time.Now().UTC())
	if err != nil {
		return false, err
	}

	return result.RowsAffected() == 1, nil
}

func (r *ReferenceRepositoryImpl) Attach(ctx context.Context, tx pgx.Tx, code string, bookingID int64) error {
	query := `UPDATE booking_references SET booking_id = $2 WHERE code = $1`
	_, err := tx.Exec(ctx, query, code, bookingID)
	return err
}

func (r *ReferenceRepositoryImpl) RetireOthers(ctx context.Context, tx pgx.Tx, bookingID int64, keep string) error {
	query := `
		UPDATE booking_references
		SET active = FALSE
		WHERE booking_id = $1 AND code <> $2 AND active
	`
	_, err := tx.Exec(ctx, query, bookingID, keep)
	return err
}
