package repository

import (
	"context"

	"cinema-booking-engine/internal/database"
	"cinema-booking-engine/internal/model"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActiveSeatConstraint is the partial unique index over
// (showtime_id, seat_row, seat_number) WHERE status = 'active'. It is the
// final guarantee that a seat is assigned at most once; application code
// never check-then-inserts around it.
const ActiveSeatConstraint = "booked_seats_active_seat_key"

type SeatRepository interface {
	FindByBooking(ctx context.Context, bookingID int64) ([]*model.BookedSeat, error)
	// FindActive returns which of the given seats currently hold an active
	// claim. Used to name contested seats after a failed reservation.
	FindActive(ctx context.Context, showtimeID int64, seats []model.SeatID) ([]model.SeatID, error)
	ListActiveByShowtime(ctx context.Context, showtimeID int64) ([]model.SeatID, error)

	// Transaction methods
	Reserve(ctx context.Context, tx pgx.Tx, seats []*model.BookedSeat) error
	CancelByBooking(ctx context.Context, tx pgx.Tx, bookingID int64) ([]*model.BookedSeat, error)
}

type SeatRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewSeatRepository(pool *pgxpool.Pool) SeatRepository {
	return &SeatRepositoryImpl{pool: pool}
}

// Reserve inserts one active booked_seats row per seat in a single
// statement. A unique violation on the active-seat index means at least one
// seat already belongs to another booking; the whole insert, and therefore
// the caller's transaction, fails with ErrSeatUnavailable.
func (r *SeatRepositoryImpl) Reserve(ctx context.Context, tx pgx.Tx, seats []*model.BookedSeat) error {
	if len(seats) == 0 {
		return &apperrors.ValidationError{Field: "seats", Reason: "at least one seat required"}
	}

	query := `
		INSERT INTO booked_seats (booking_id, showtime_id, seat_row, seat_number, price, seat_type, status)
		SELECT b.booking_id, b.showtime_id, b.seat_row, b.seat_number, b.price, b.seat_type, 'active'
		FROM unnest($1::bigint[], $2::bigint[], $3::text[], $4::int[], $5::numeric[], $6::text[])
			AS b(booking_id, showtime_id, seat_row, seat_number, price, seat_type)
	`

	bookingIDs := make([]int64, len(seats))
	showtimeIDs := make([]int64, len(seats))
	rows := make([]string, len(seats))
	numbers := make([]int, len(seats))
	prices := make([]string, len(seats))
	types := make([]string, len(seats))
	for i, s := range seats {
		bookingIDs[i] = s.BookingID
		showtimeIDs[i] = s.ShowtimeID
		rows[i] = s.SeatRow
		numbers[i] = s.SeatNumber
		prices[i] = s.Price.String()
		types[i] = s.SeatType
	}

	_, err := tx.Exec(ctx, query, bookingIDs, showtimeIDs, rows, numbers, prices, types)
	if err != nil {
		if database.IsUniqueViolation(err, ActiveSeatConstraint) {
			return apperrors.ErrSeatUnavailable
		}
		return err
	}

	return nil
}

func (r *SeatRepositoryImpl) FindByBooking(ctx context.Context, bookingID int64) ([]*model.BookedSeat, error) {
	query := `
		SELECT id, booking_id, showtime_id, seat_row, seat_number, price, seat_type, status, created_at
		FROM booked_seats
		WHERE booking_id = $1
		ORDER BY seat_row, seat_number
	`

	result, err := r.pool.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	seats := make([]*model.BookedSeat, 0)

	for result.Next() {
		var seat model.BookedSeat
		err := result.Scan(
			&seat.ID,
			&seat.BookingID,
			&seat.ShowtimeID,
			&seat.SeatRow,
			&seat.SeatNumber,
			&seat.Price,
			&seat.SeatType,
			&seat.Status,
			&seat.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		seats = append(seats, &seat)
	}

	if err := result.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (r *SeatRepositoryImpl) FindActive(ctx context.Context, showtimeID int64, seats []model.SeatID) ([]model.SeatID, error) {
	if len(seats) == 0 {
		return nil, nil
	}

	rows := make([]string, 0, len(seats))
	numbers := make([]int, 0, len(seats))
	for _, s := range seats {
		rows = append(rows, s.Row)
		numbers = append(numbers, s.Number)
	}

	query := `
		SELECT seat_row, seat_number
		FROM booked_seats
		WHERE showtime_id = $1
		  AND status = 'active'
		  AND (seat_row, seat_number) IN (
			SELECT unnest($2::text[]), unnest($3::int[])
		  )
		ORDER BY seat_row, seat_number
	`

	result, err := r.pool.Query(ctx, query, showtimeID, rows, numbers)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	return scanSeatIDs(result)
}

func (r *SeatRepositoryImpl) ListActiveByShowtime(ctx context.Context, showtimeID int64) ([]model.SeatID, error) {
	query := `
		SELECT seat_row, seat_number
		FROM booked_seats
		WHERE showtime_id = $1 AND status = 'active'
		ORDER BY seat_row, seat_number
	`

	result, err := r.pool.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	return scanSeatIDs(result)
}

// CancelByBooking flips the booking's active seats to cancelled, which drops
// them out of the partial unique index and frees the seats for rebooking.
func (r *SeatRepositoryImpl) CancelByBooking(ctx context.Context, tx pgx.Tx, bookingID int64) ([]*model.BookedSeat, error) {
	query := `
		UPDATE booked_seats
		SET status = 'cancelled'
		WHERE booking_id = $1 AND status = 'active'
		RETURNING id, booking_id, showtime_id, seat_row, seat_number, price, seat_type, status, created_at
	`

	result, err := tx.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	seats := make([]*model.BookedSeat, 0)
	for result.Next() {
		var seat model.BookedSeat
		err := result.Scan(
			&seat.ID,
			&seat.BookingID,
			&seat.ShowtimeID,
			&seat.SeatRow,
			&seat.SeatNumber,
			&seat.Price,
			&seat.SeatType,
			&seat.Status,
			&seat.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		seats = append(seats, &seat)
	}

	if err := result.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func scanSeatIDs(rows pgx.Rows) ([]model.SeatID, error) {
	seats := make([]model.SeatID, 0)

	for rows.Next() {
		var seat model.SeatID
		if err := rows.Scan(&seat.Row, &seat.Number); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
