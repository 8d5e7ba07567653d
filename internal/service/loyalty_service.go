package service

import (
	"context"

	"cinema-booking-engine/internal/database"
	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const accountHistoryLimit = 50

type LoyaltyService interface {
	// Account returns the derived balance plus recent ledger entries. The
	// balance is always SUM(points); nothing stores it.
	Account(ctx context.Context, customerID int64) (*model.LoyaltyAccount, error)
	// GrantWelcomeBonus awards the signup bonus at most once per customer
	// per organization.
	GrantWelcomeBonus(ctx context.Context, organizationID, customerID int64, points int) (*model.LoyaltyTransaction, error)
}

type LoyaltyServiceImpl struct {
	pool    *pgxpool.Pool
	loyalty repository.LoyaltyRepository
}

func NewLoyaltyService(pool *pgxpool.Pool, loyalty repository.LoyaltyRepository) LoyaltyService {
	return &LoyaltyServiceImpl{pool: pool, loyalty: loyalty}
}

func (s *LoyaltyServiceImpl) Account(ctx context.Context, customerID int64) (*model.LoyaltyAccount, error) {
	balance, err := s.loyalty.Balance(ctx, customerID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.loyalty.Transactions(ctx, customerID, accountHistoryLimit)
	if err != nil {
		return nil, err
	}
	return &model.LoyaltyAccount{
		CustomerID:   customerID,
		Points:       balance,
		Transactions: transactions,
	}, nil
}

func (s *LoyaltyServiceImpl) GrantWelcomeBonus(ctx context.Context, organizationID, customerID int64, points int) (*model.LoyaltyTransaction, error) {
	var txn *model.LoyaltyTransaction
	err := database.WithTransaction(ctx, s.pool, database.DefaultTxOptions(), func(tx pgx.Tx) error {
		var err error
		txn, err = s.loyalty.AppendWelcomeBonus(ctx, tx, organizationID, customerID, points)
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}
