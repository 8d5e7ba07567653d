package repository

import (
	"context"

	"cinema-booking-engine/internal/model"
	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LoyaltyRepository is the only writer of the loyalty_transactions ledger.
// The ledger is append-only; a balance is always derived by summing it.
type LoyaltyRepository interface {
	Balance(ctx context.Context, customerID int64) (int, error)
	Transactions(ctx context.Context, customerID int64, limit int) ([]*model.LoyaltyTransaction, error)
	FindReward(ctx context.Context, rewardID int64) (*model.LoyaltyReward, error)

	// Transaction methods
	TransactionsByBooking(ctx context.Context, tx pgx.Tx, bookingID int64) ([]*model.LoyaltyTransaction, error)
	Append(ctx context.Context, tx pgx.Tx, txn *model.LoyaltyTransaction) (*model.LoyaltyTransaction, error)
	// AppendRedemption appends a negative entry only if the ledger-derived
	// balance at this instant covers requiredPoints.
	AppendRedemption(ctx context.Context, tx pgx.Tx, txn *model.LoyaltyTransaction, requiredPoints int) (*model.LoyaltyTransaction, error)
	// AppendWelcomeBonus appends the signup bonus only if the customer has
	// no welcome_bonus entry yet within the organization.
	AppendWelcomeBonus(ctx context.Context, tx pgx.Tx, organizationID, customerID int64, points int) (*model.LoyaltyTransaction, error)
}

type LoyaltyRepositoryImpl struct {
	pool *pgxpool.Pool
}

func NewLoyaltyRepository(pool *pgxpool.Pool) LoyaltyRepository {
	return &LoyaltyRepositoryImpl{pool: pool}
}

func (r *LoyaltyRepositoryImpl) Balance(ctx context.Context, customerID int64) (int, error) {
	query := `
		SELECT COALESCE(SUM(points), 0)
		FROM loyalty_transactions
		WHERE customer_id = $1
	`

	var balance int
	err := r.pool.QueryRow(ctx, query, customerID).Scan(&balance)
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (r *LoyaltyRepositoryImpl) Transactions(ctx context.Context, customerID int64, limit int) ([]*model.LoyaltyTransaction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, organization_id, customer_id, points, transaction_type, booking_id, reward_id, created_at
		FROM loyalty_transactions
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*model.LoyaltyTransaction, 0)

	for rows.Next() {
		var txn model.LoyaltyTransaction
		err := rows.Scan(
			&txn.ID,
			&txn.OrganizationID,
			&txn.CustomerID,
			&txn.Points,
			&txn.TransactionType,
			&txn.BookingID,
			&txn.RewardID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txns, nil
}

func (r *LoyaltyRepositoryImpl) FindReward(ctx context.Context, rewardID int64) (*model.LoyaltyReward, error) {
	query := `
		SELECT id, organization_id, name, points_required, reward_type, reward_value, created_at
		FROM loyalty_rewards
		WHERE id = $1
	`

	var reward model.LoyaltyReward
	err := r.pool.QueryRow(ctx, query, rewardID).Scan(
		&reward.ID,
		&reward.OrganizationID,
		&reward.Name,
		&reward.PointsRequired,
		&reward.RewardType,
		&reward.RewardValue,
		&reward.CreatedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrRewardNotFound
		}
		return nil, err
	}

	return &reward, nil
}

func (r *LoyaltyRepositoryImpl) TransactionsByBooking(ctx context.Context, tx pgx.Tx, bookingID int64) ([]*model.LoyaltyTransaction, error) {
	query := `
		SELECT id, organization_id, customer_id, points, transaction_type, booking_id, reward_id, created_at
		FROM loyalty_transactions
		WHERE booking_id = $1
		ORDER BY id
	`

	rows, err := tx.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*model.LoyaltyTransaction, 0)
	for rows.Next() {
		var txn model.LoyaltyTransaction
		err := rows.Scan(
			&txn.ID,
			&txn.OrganizationID,
			&txn.CustomerID,
			&txn.Points,
			&txn.TransactionType,
			&txn.BookingID,
			&txn.RewardID,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, &txn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txns, nil
}

func (r *LoyaltyRepositoryImpl) Append(ctx context.Context, tx pgx.Tx, txn *model.LoyaltyTransaction) (*model.LoyaltyTransaction, error) {
	query := `
		INSERT INTO loyalty_transactions (organization_id, customer_id, points, transaction_type, booking_id, reward_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		txn.OrganizationID, txn.CustomerID, txn.Points, txn.TransactionType, txn.BookingID, txn.RewardID,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return nil, err
	}

	return txn, nil
}

// AppendRedemption guards the insert with the balance check in the statement
// itself. Under serializable isolation a concurrent entry that would change
// the outcome forces a serialization failure instead of a silent overdraw.
func (r *LoyaltyRepositoryImpl) AppendRedemption(ctx context.Context, tx pgx.Tx, txn *model.LoyaltyTransaction, requiredPoints int) (*model.LoyaltyTransaction, error) {
	query := `
		INSERT INTO loyalty_transactions (organization_id, customer_id, points, transaction_type, booking_id, reward_id)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE (
			SELECT COALESCE(SUM(points), 0)
			FROM loyalty_transactions
			WHERE customer_id = $2
		) >= $7
		RETURNING id, created_at
	`

	err := tx.QueryRow(ctx, query,
		txn.OrganizationID, txn.CustomerID, txn.Points, txn.TransactionType, txn.BookingID, txn.RewardID,
		requiredPoints,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrInsufficientLoyaltyPoints
		}
		return nil, err
	}

	return txn, nil
}

// AppendWelcomeBonus uses the same guarded-insert shape as AppendRedemption,
// keyed on the absence of a prior welcome_bonus row. A repeat grant returns
// the existing entry unchanged.
func (r *LoyaltyRepositoryImpl) AppendWelcomeBonus(ctx context.Context, tx pgx.Tx, organizationID, customerID int64, points int) (*model.LoyaltyTransaction, error) {
	query := `
		INSERT INTO loyalty_transactions (organization_id, customer_id, points, transaction_type)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1
			FROM loyalty_transactions
			WHERE organization_id = $1 AND customer_id = $2 AND transaction_type = $4
		)
		RETURNING id, created_at
	`

	txn := &model.LoyaltyTransaction{
		OrganizationID:  organizationID,
		CustomerID:      customerID,
		Points:          points,
		TransactionType: model.LoyaltyWelcomeBonus,
	}

	err := tx.QueryRow(ctx, query,
		organizationID, customerID, points, model.LoyaltyWelcomeBonus,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return r.findWelcomeBonus(ctx, tx, organizationID, customerID)
		}
		return nil, err
	}

	return txn, nil
}

func (r *LoyaltyRepositoryImpl) findWelcomeBonus(ctx context.Context, tx pgx.Tx, organizationID, customerID int64) (*model.LoyaltyTransaction, error) {
	query := `
		SELECT id, organization_id, customer_id, points, transaction_type, booking_id, reward_id, created_at
		FROM loyalty_transactions
		WHERE organization_id = $1 AND customer_id = $2 AND transaction_type = $3
	`

	txn := &model.LoyaltyTransaction{}
	err := tx.QueryRow(ctx, query, organizationID, customerID, model.LoyaltyWelcomeBonus).Scan(
		&txn.ID, &txn.OrganizationID, &txn.CustomerID, &txn.Points, &txn.TransactionType,
		&txn.BookingID, &txn.RewardID, &txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return txn, nil
}
