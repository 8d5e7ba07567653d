package repository

import (
	"context"
	"time"

	"cinema-booking-engine/internal/model"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	FindByID(ctx context.Context, id int64) (*model.Booking, error)
	FindByIdempotencyKey(ctx context.Context, organizationID int64, key string) (*model.Booking, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*model.Booking, error)

	// Transaction methods
	Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.BookingStatus) (*model.Booking, error)
	UpdateReference(ctx context.Context, tx pgx.Tx, id int64, reference string) error
}

type BookingRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &BookingRepositoryImpl{pool: pool}
}

const bookingColumns = `
	id, organization_id, customer_id, showtime_id, status, booking_reference,
	subtotal, discount_amount, total_amount, promo_code_id, loyalty_reward_id,
	shift_id, idempotency_key, request_hash, created_at, updated_at
`

func (r *BookingRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, booking *model.Booking) (*model.Booking, error) {
	query := `
		INSERT INTO bookings (
			organization_id, customer_id, showtime_id, status, booking_reference,
			subtotal, discount_amount, total_amount, promo_code_id, loyalty_reward_id,
			shift_id, idempotency_key, request_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		booking.OrganizationID, booking.CustomerID, booking.ShowtimeID, booking.Status,
		booking.BookingReference, booking.Subtotal, booking.DiscountAmount, booking.TotalAmount,
		booking.PromoCodeID, booking.LoyaltyRewardID, booking.ShiftID,
		booking.IdempotencyKey, booking.RequestHash,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return booking, nil
}

func (r *BookingRepositoryImpl) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.pool.QueryRow(ctx, query, id))
}

func (r *BookingRepositoryImpl) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	return scanBooking(tx.QueryRow(ctx, query, id))
}

func (r *BookingRepositoryImpl) FindByIdempotencyKey(ctx context.Context, organizationID int64, key string) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE organization_id = $1 AND idempotency_key = $2`
	return scanBooking(r.pool.QueryRow(ctx, query, organizationID, key))
}

func (r *BookingRepositoryImpl) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]*model.Booking, 0)

	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *BookingRepositoryImpl) UpdateStatus(ctx context.Context, tx pgx.Tx, id int64, status model.BookingStatus) (*model.Booking, error) {
	query := `
		UPDATE bookings
		SET status = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + bookingColumns

	return scanBooking(tx.QueryRow(ctx, query, id, status, time.Now().UTC()))
}

func (r *BookingRepositoryImpl) UpdateReference(ctx context.Context, tx pgx.Tx, id int64, reference string) error {
	query := `
		UPDATE bookings
		SET booking_reference = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := tx.Exec(ctx, query, id, reference, time.Now().UTC())
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return apperrors.ErrBookingNotFound
	}

	return nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var booking model.Booking
	err := row.Scan(
		&booking.ID,
		&booking.OrganizationID,
		&booking.CustomerID,
		&booking.ShowtimeID,
		&booking.Status,
		&booking.BookingReference,
		&booking.Subtotal,
		&booking.DiscountAmount,
		&booking.TotalAmount,
		&booking.PromoCodeID,
		&booking.LoyaltyRewardID,
		&booking.ShiftID,
		&booking.IdempotencyKey,
		&booking.RequestHash,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrBookingNotFound
		}
		return nil, err
	}

	return &booking, nil
}
