package repository

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"cinema-booking-engine/config"
	"cinema-booking-engine/internal/database"
	"cinema-booking-engine/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var testDB *pgxpool.Pool

func TestMain(m *testing.M) {
	cfg := config.LoadTestConfig()

	var err error
	testDB, err = database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize test database: %v", err)
	}

	if err := testDB.Ping(context.Background()); err != nil {
		log.Fatalf("Failed to ping test database: %v", err)
	}

	code := m.Run()
	testDB.Close()

	os.Exit(code)
}

func setupTestWithTruncate(t *testing.T) func() {
	t.Helper()
	ctx := context.Background()

	_, err := testDB.Exec(ctx, `
		TRUNCATE loyalty_transactions, inventory_history, booked_seats,
		         booking_references, bookings, concession_items,
		         loyalty_rewards, promo_codes, showtime_seats, showtimes
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}

	return func() {}
}

// setupTestWithTransaction wraps a test in a rolled-back transaction, for
// exercising the tx-taking repository methods.
func setupTestWithTransaction(t *testing.T) (pgx.Tx, func()) {
	t.Helper()
	ctx := context.Background()

	tx, err := testDB.Begin(ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	cleanup := func() {
		if err := tx.Rollback(ctx); err != nil && err != pgx.ErrTxClosed {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}

	return tx, cleanup
}

func getTestDB() *pgxpool.Pool {
	if testDB == nil {
		panic("testDB is not initialized. Make sure TestMain has run.")
	}
	return testDB
}

func createTestShowtime(t *testing.T, organizationID int64) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := testDB.QueryRow(ctx, `
		INSERT INTO showtimes (organization_id, movie_title, starts_at, capacity)
		VALUES ($1, 'Test Screening', $2, 100)
		RETURNING id
	`, organizationID, time.Now().Add(24*time.Hour)).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test showtime: %v", err)
	}

	return id
}

func createTestShowtimeSeats(t *testing.T, showtimeID int64, seats []model.SeatID, price float64) {
	t.Helper()
	ctx := context.Background()

	for _, seat := range seats {
		_, err := testDB.Exec(ctx, `
			INSERT INTO showtime_seats (showtime_id, seat_row, seat_number, seat_type, price)
			VALUES ($1, $2, $3, 'standard', $4)
		`, showtimeID, seat.Row, seat.Number, price)
		if err != nil {
			t.Fatalf("Failed to create test seat %s: %v", seat, err)
		}
	}
}

func createTestBooking(t *testing.T, organizationID, customerID, showtimeID int64, reference string) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := testDB.QueryRow(ctx, `
		INSERT INTO bookings (organization_id, customer_id, showtime_id, status, booking_reference, subtotal, total_amount)
		VALUES ($1, $2, $3, 'pending', $4, 20.00, 20.00)
		RETURNING id
	`, organizationID, customerID, showtimeID, reference).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test booking: %v", err)
	}

	return id
}

func createTestItem(t *testing.T, organizationID int64, name string, stock *int, threshold int, tracked bool) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := testDB.QueryRow(ctx, `
		INSERT INTO concession_items (organization_id, name, price, stock_quantity, low_stock_threshold, track_inventory)
		VALUES ($1, $2, 5.50, $3, $4, $5)
		RETURNING id
	`, organizationID, name, stock, threshold, tracked).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test item: %v", err)
	}

	return id
}

func createTestPromo(t *testing.T, organizationID int64, code string, maxUses *int, discountType model.DiscountType, value float64) int64 {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	var id int64
	err := testDB.QueryRow(ctx, `
		INSERT INTO promo_codes (organization_id, code, max_uses, discount_type, discount_value, valid_from, valid_until, min_order_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING id
	`, organizationID, code, maxUses, discountType, decimal.NewFromFloat(value), now.Add(-time.Hour), now.Add(time.Hour)).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test promo: %v", err)
	}

	return id
}

func createTestReward(t *testing.T, organizationID int64, pointsRequired int, rewardType model.RewardType, value float64) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := testDB.QueryRow(ctx, `
		INSERT INTO loyalty_rewards (organization_id, name, points_required, reward_type, reward_value)
		VALUES ($1, 'Test Reward', $2, $3, $4)
		RETURNING id
	`, organizationID, pointsRequired, rewardType, decimal.NewFromFloat(value)).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test reward: %v", err)
	}

	return id
}

func appendTestLoyalty(t *testing.T, organizationID, customerID int64, points int, txnType model.LoyaltyTransactionType) {
	t.Helper()
	ctx := context.Background()

	_, err := testDB.Exec(ctx, `
		INSERT INTO loyalty_transactions (organization_id, customer_id, points, transaction_type)
		VALUES ($1, $2, $3, $4)
	`, organizationID, customerID, points, txnType)
	if err != nil {
		t.Fatalf("Failed to append test loyalty transaction: %v", err)
	}
}
