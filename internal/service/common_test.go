package service

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"cinema-booking-engine/config"
	"cinema-booking-engine/internal/database"
	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/queue"
	"cinema-booking-engine/internal/repository"

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

// noopAvailabilityCache stands in for Redis. Service tests exercise the
// database paths; the cache contract has its own tests.
type noopAvailabilityCache struct{}

func (noopAvailabilityCache) Warm(ctx context.Context, showtimeID int64, seats []*model.SeatAvailability) error {
	return nil
}

func (noopAvailabilityCache) Get(ctx context.Context, showtimeID int64) ([]*model.SeatAvailability, bool, error) {
	return nil, false, nil
}

func (noopAvailabilityCache) MarkBooked(ctx context.Context, showtimeID int64, seats []string) error {
	return nil
}

func (noopAvailabilityCache) Invalidate(ctx context.Context, showtimeID int64) error {
	return nil
}

func newTestBookingService(t *testing.T, q queue.NotificationQueue) BookingService {
	t.Helper()
	if q == nil {
		q = queue.NewMemoryNotificationQueue(100)
	}

	return NewBookingService(
		testDB,
		config.GetBookingConfig(),
		repository.NewBookingRepository(testDB),
		repository.NewSeatRepository(testDB),
		repository.NewCatalogRepository(testDB),
		repository.NewInventoryRepository(testDB),
		repository.NewPromoRepository(testDB),
		repository.NewLoyaltyRepository(testDB),
		repository.NewReferenceRepository(testDB),
		q,
		noopAvailabilityCache{},
	)
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

func createTestPromoWithUses(t *testing.T, organizationID int64, code string, maxUses *int, currentUses int, discountType model.DiscountType, value float64) int64 {
	t.Helper()
	ctx := context.Background()

	now := time.Now().UTC()
	var id int64
	err := testDB.QueryRow(ctx, `
		INSERT INTO promo_codes (organization_id, code, max_uses, current_uses, discount_type, discount_value, valid_from, valid_until, min_order_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
		RETURNING id
	`, organizationID, code, maxUses, currentUses, discountType, decimal.NewFromFloat(value), now.Add(-time.Hour), now.Add(time.Hour)).Scan(&id)
	if err != nil {
		t.Fatalf("Failed to create test promo: %v", err)
	}

	return id
}

func createTestPromoWindow(t *testing.T, organizationID int64, code string, validFrom, validUntil time.Time, minOrder float64) int64 {
	t.Helper()
	ctx := context.Background()

	var id int64
	err := testDB.QueryRow(ctx, `
		INSERT INTO promo_codes (organization_id, code, discount_type, discount_value, valid_from, valid_until, min_order_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, organizationID, code, model.DiscountPercentage, decimal.NewFromInt(10), validFrom, validUntil, decimal.NewFromFloat(minOrder)).Scan(&id)
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

func loyaltyBalance(t *testing.T, customerID int64) int {
	t.Helper()
	ctx := context.Background()

	var balance int
	err := testDB.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM loyalty_transactions WHERE customer_id = $1
	`, customerID).Scan(&balance)
	if err != nil {
		t.Fatalf("Failed to read loyalty balance: %v", err)
	}

	return balance
}

func stockOf(t *testing.T, itemID int64) int {
	t.Helper()
	ctx := context.Background()

	var stock int
	err := testDB.QueryRow(ctx, `SELECT stock_quantity FROM concession_items WHERE id = $1`, itemID).Scan(&stock)
	if err != nil {
		t.Fatalf("Failed to read stock: %v", err)
	}

	return stock
}

func promoUsesOf(t *testing.T, promoID int64) int {
	t.Helper()
	ctx := context.Background()

	var uses int
	err := testDB.QueryRow(ctx, `SELECT current_uses FROM promo_codes WHERE id = $1`, promoID).Scan(&uses)
	if err != nil {
		t.Fatalf("Failed to read promo uses: %v", err)
	}

	return uses
}

func intPtr(v int) *int          { return &v }
func strPtr(v string) *string    { return &v }
func int64Ptr(v int64) *int64    { return &v }
