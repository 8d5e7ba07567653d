package repository

import (
	"context"

	"cinema-booking-engine/internal/model"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogRepository is the read-only view of showtime and seat-map data the
// booking engine validates against. The catalog is owned by external systems;
// nothing here writes to it.
type CatalogRepository interface {
	FindShowtime(ctx context.Context, id int64) (*model.Showtime, error)
	// FindShowtimeSeats returns the catalog rows for the requested seats.
	// Seats missing from the result do not exist in the hall.
	FindShowtimeSeats(ctx context.Context, showtimeID int64, seats []model.SeatID) ([]*model.ShowtimeSeat, error)
	ListShowtimeSeats(ctx context.Context, showtimeID int64) ([]*model.ShowtimeSeat, error)
}

type CatalogRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &CatalogRepositoryImpl{pool: pool}
}

func (r *CatalogRepositoryImpl) FindShowtime(ctx context.Context, id int64) (*model.Showtime, error) {
	query := `
		SELECT id, organization_id, movie_title, starts_at, capacity
		FROM showtimes
		WHERE id = $1
	`

	var showtime model.Showtime
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.OrganizationID,
		&showtime.MovieTitle,
		&showtime.StartsAt,
		&showtime.Capacity,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrShowtimeNotFound
		}
		return nil, err
	}

	return &showtime, nil
}

func (r *CatalogRepositoryImpl) FindShowtimeSeats(ctx context.Context, showtimeID int64, seats []model.SeatID) ([]*model.ShowtimeSeat, error) {
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
		SELECT showtime_id, seat_row, seat_number, seat_type, price
		FROM showtime_seats
		WHERE showtime_id = $1
		  AND (seat_row, seat_number) IN (
			SELECT unnest($2::text[]), unnest($3::int[])
		  )
	`

	result, err := r.pool.Query(ctx, query, showtimeID, rows, numbers)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	return scanShowtimeSeats(result)
}

func (r *CatalogRepositoryImpl) ListShowtimeSeats(ctx context.Context, showtimeID int64) ([]*model.ShowtimeSeat, error) {
	query := `
		SELECT showtime_id, seat_row, seat_number, seat_type, price
		FROM showtime_seats
		WHERE showtime_id = $1
		ORDER BY seat_row, seat_number
	`

	result, err := r.pool.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	return scanShowtimeSeats(result)
}

func scanShowtimeSeats(rows pgx.Rows) ([]*model.ShowtimeSeat, error) {
	seats := make([]*model.ShowtimeSeat, 0)

	for rows.Next() {
		var seat model.ShowtimeSeat
		err := rows.Scan(
			&seat.ShowtimeID,
			&seat.SeatRow,
			&seat.SeatNumber,
			&seat.SeatType,
			&seat.Price,
		)
		if err != nil {
			return nil, err
		}
		seats = append(seats, &seat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
