package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cinema-booking-engine/config"
	"cinema-booking-engine/internal/cache"
	"cinema-booking-engine/internal/database"
	"cinema-booking-engine/internal/model"
	"cinema-booking-engine/internal/queue"
	"cinema-booking-engine/internal/reference"
	"cinema-booking-engine/internal/repository"
	apperrors "cinema-booking-engine/pkg/app_errors"
	"cinema-booking-engine/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyKeyConstraint is the unique index over
// (organization_id, idempotency_key). Concurrent submissions of the same key
// race on it; the loser returns the winner's booking.
const IdempotencyKeyConstraint = "bookings_org_idempotency_key"

type BookingService interface {
	// CreateBooking turns a cart into a booking in one atomic transaction.
	// idempotencyKey may be empty; when set, a repeat call with the same key
	// and payload returns the previously committed booking.
	CreateBooking(ctx context.Context, req model.CreateBookingRequest, idempotencyKey string) (*model.Booking, error)
	GetBooking(ctx context.Context, id int64) (*model.Booking, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*model.Booking, error)
	TransitionStatus(ctx context.Context, id int64, target model.BookingStatus) (*model.Booking, error)
	CancelBooking(ctx context.Context, id int64) (*model.Booking, error)
	RegenerateReference(ctx context.Context, id int64) (*model.Booking, error)
	ShowtimeAvailability(ctx context.Context, showtimeID int64) ([]*model.SeatAvailability, error)
}

type BookingServiceImpl struct {
	pool          *pgxpool.Pool
	cfg           config.BookingConfig
	bookings      repository.BookingRepository
	seats         repository.SeatRepository
	catalog       repository.CatalogRepository
	inventory     repository.InventoryRepository
	promos        repository.PromoRepository
	loyalty       repository.LoyaltyRepository
	references    repository.ReferenceRepository
	generator     *reference.Generator
	queue         queue.NotificationQueue
	availability  cache.SeatAvailabilityCache
}

func NewBookingService(
	pool *pgxpool.Pool,
	cfg config.BookingConfig,
	bookings repository.BookingRepository,
	seats repository.SeatRepository,
	catalog repository.CatalogRepository,
	inventory repository.InventoryRepository,
	promos repository.PromoRepository,
	loyalty repository.LoyaltyRepository,
	references repository.ReferenceRepository,
	notificationQueue queue.NotificationQueue,
	availability cache.SeatAvailabilityCache,
) BookingService {
	return &BookingServiceImpl{
		pool:         pool,
		cfg:          cfg,
		bookings:     bookings,
		seats:        seats,
		catalog:      catalog,
		inventory:    inventory,
		promos:       promos,
		loyalty:      loyalty,
		references:   references,
		generator:    reference.NewGenerator(references, cfg.ReferenceLength, cfg.ReferenceMaxAttempts),
		queue:        notificationQueue,
		availability: availability,
	}
}

func (s *BookingServiceImpl) CreateBooking(ctx context.Context, req model.CreateBookingRequest, idempotencyKey string) (*model.Booking, error) {
	seatIDs, err := parseSeats(req.Seats)
	if err != nil {
		return nil, err
	}
	for _, line := range req.Concessions {
		if line.Quantity <= 0 {
			return nil, &apperrors.ValidationError{Field: "concessions", Reason: fmt.Sprintf("quantity for item %d must be positive", line.ItemID)}
		}
	}

	requestHash := hashRequest(req)
	if idempotencyKey != "" {
		existing, err := s.findByIdempotencyKey(ctx, req.OrganizationID, idempotencyKey, requestHash)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	// Catalog validation happens against read-only data before the write
	// transaction; the unique index and conditional updates inside the
	// transaction remain the correctness guarantees.
	showtime, err := s.catalog.FindShowtime(ctx, req.ShowtimeID)
	if err != nil {
		return nil, err
	}
	if showtime.OrganizationID != req.OrganizationID {
		return nil, &apperrors.ValidationError{Field: "showtime_id", Reason: "showtime belongs to another organization"}
	}

	catalogSeats, err := s.catalog.FindShowtimeSeats(ctx, req.ShowtimeID, seatIDs)
	if err != nil {
		return nil, err
	}
	seatsByID := make(map[model.SeatID]*model.ShowtimeSeat, len(catalogSeats))
	for _, cs := range catalogSeats {
		seatsByID[cs.SeatID()] = cs
	}
	for _, id := range seatIDs {
		if _, ok := seatsByID[id]; !ok {
			return nil, &apperrors.ValidationError{Field: "seats", Reason: fmt.Sprintf("seat %s does not exist for this showtime", id)}
		}
	}

	items := make(map[int64]*model.ConcessionItem, len(req.Concessions))
	for _, line := range req.Concessions {
		item, err := s.inventory.FindByID(ctx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if item.OrganizationID != req.OrganizationID {
			return nil, &apperrors.ValidationError{Field: "concessions", Reason: fmt.Sprintf("item %d belongs to another organization", line.ItemID)}
		}
		items[line.ItemID] = item
	}

	var reward *model.LoyaltyReward
	if req.LoyaltyRewardID != nil {
		reward, err = s.loyalty.FindReward(ctx, *req.LoyaltyRewardID)
		if err != nil {
			return nil, err
		}
		if reward.OrganizationID != req.OrganizationID {
			return nil, &apperrors.ValidationError{Field: "loyalty_reward_id", Reason: "reward belongs to another organization"}
		}
	}

	subtotal := decimal.Zero
	for _, id := range seatIDs {
		subtotal = subtotal.Add(seatsByID[id].Price)
	}
	for _, line := range req.Concessions {
		subtotal = subtotal.Add(items[line.ItemID].Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	var booking *model.Booking
	var events []*model.NotificationEvent

	txErr := database.WithRetry(ctx, s.pool, database.SerializableTxOptions(s.cfg.TxMaxRetries), func(tx pgx.Tx) error {
		events = events[:0]

		// Discount stacking order: promo applies to the full subtotal,
		// loyalty redemption to what remains after the promo.
		discount := decimal.Zero
		var promoID *int64
		if req.PromoCode != nil && *req.PromoCode != "" {
			promo, err := s.applyPromo(ctx, tx, req.OrganizationID, *req.PromoCode, subtotal)
			if err != nil {
				return err
			}
			discount = promo.Discount(subtotal)
			promoID = &promo.ID
		}

		rewardDiscount := decimal.Zero
		if reward != nil {
			rewardDiscount = reward.Discount(subtotal.Sub(discount))
		}

		total := subtotal.Sub(discount).Sub(rewardDiscount)

		code, err := s.generator.Generate(ctx, tx)
		if err != nil {
			return err
		}

		b := &model.Booking{
			OrganizationID:   req.OrganizationID,
			CustomerID:       req.CustomerID,
			ShowtimeID:       req.ShowtimeID,
			Status:           model.BookingStatusPending,
			BookingReference: code,
			Subtotal:         subtotal,
			DiscountAmount:   discount.Add(rewardDiscount),
			TotalAmount:      total,
			PromoCodeID:      promoID,
			ShiftID:          req.ShiftID,
		}
		if reward != nil {
			b.LoyaltyRewardID = &reward.ID
		}
		if idempotencyKey != "" {
			key, hash := idempotencyKey, requestHash
			b.IdempotencyKey = &key
			b.RequestHash = &hash
		}

		if _, err := s.bookings.Create(ctx, tx, b); err != nil {
			return err
		}
		if err := s.references.Attach(ctx, tx, code, b.ID); err != nil {
			return err
		}

		bookedSeats := make([]*model.BookedSeat, 0, len(seatIDs))
		for _, id := range seatIDs {
			cs := seatsByID[id]
			bookedSeats = append(bookedSeats, &model.BookedSeat{
				BookingID:  b.ID,
				ShowtimeID: req.ShowtimeID,
				SeatRow:    id.Row,
				SeatNumber: id.Number,
				Price:      cs.Price,
				SeatType:   cs.SeatType,
				Status:     model.BookedSeatStatusActive,
			})
		}
		if err := s.seats.Reserve(ctx, tx, bookedSeats); err != nil {
			return err
		}
		b.Seats = bookedSeats

		for _, line := range req.Concessions {
			result, err := s.inventory.DecrementStock(ctx, tx, line.ItemID, line.Quantity, b.ID)
			if err != nil {
				return err
			}
			if result.Tracked && result.LowStock {
				event, err := model.NewNotificationEvent(model.EventLowStock, &model.LowStockPayload{
					ItemID:            line.ItemID,
					Name:              items[line.ItemID].Name,
					RemainingQuantity: result.History.NewQuantity,
					Threshold:         items[line.ItemID].LowStockThreshold,
				})
				if err != nil {
					return err
				}
				events = append(events, event)
			}
		}

		if reward != nil {
			_, err := s.loyalty.AppendRedemption(ctx, tx, &model.LoyaltyTransaction{
				OrganizationID:  req.OrganizationID,
				CustomerID:      req.CustomerID,
				Points:          -reward.PointsRequired,
				TransactionType: model.LoyaltyRedeemed,
				BookingID:       &b.ID,
				RewardID:        &reward.ID,
			}, reward.PointsRequired)
			if err != nil {
				return err
			}
		}

		if earned := earnedPoints(total, s.cfg.LoyaltyEarnRate); earned > 0 {
			_, err := s.loyalty.Append(ctx, tx, &model.LoyaltyTransaction{
				OrganizationID:  req.OrganizationID,
				CustomerID:      req.CustomerID,
				Points:          earned,
				TransactionType: model.LoyaltyEarned,
				BookingID:       &b.ID,
			})
			if err != nil {
				return err
			}
		}

		event, err := model.NewNotificationEvent(model.EventBookingConfirmed, &model.BookingConfirmedPayload{
			BookingID:        b.ID,
			OrganizationID:   b.OrganizationID,
			CustomerID:       b.CustomerID,
			BookingReference: b.BookingReference,
			Seats:            req.Seats,
			TotalAmount:      b.TotalAmount.StringFixed(2),
		})
		if err != nil {
			return err
		}
		events = append(events, event)

		booking = b
		return nil
	})

	if txErr != nil {
		if errors.Is(txErr, apperrors.ErrSeatUnavailable) {
			return nil, s.resolveSeatConflict(ctx, req.ShowtimeID, seatIDs)
		}
		if database.IsUniqueViolation(txErr, IdempotencyKeyConstraint) && idempotencyKey != "" {
			return s.findByIdempotencyKey(ctx, req.OrganizationID, idempotencyKey, requestHash)
		}
		return nil, txErr
	}

	s.afterCommit(ctx, booking, events, req.Seats)
	return booking, nil
}

// afterCommit runs the fire-and-forget side effects. Failures are logged and
// swallowed: the booking is already durable.
func (s *BookingServiceImpl) afterCommit(ctx context.Context, booking *model.Booking, events []*model.NotificationEvent, seats []string) {
	log := logger.WithComponent("booking").With(zap.Int64("booking_id", booking.ID))

	for _, event := range events {
		if err := s.queue.PublishEvent(ctx, event); err != nil {
			log.Error("publish notification event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}

	if err := s.availability.MarkBooked(ctx, booking.ShowtimeID, seats); err != nil {
		log.Warn("availability cache update failed", zap.Error(err))
	}
}

func (s *BookingServiceImpl) applyPromo(ctx context.Context, tx pgx.Tx, organizationID int64, code string, subtotal decimal.Decimal) (*model.PromoCode, error) {
	promo, err := s.promos.FindByCodeTx(ctx, tx, organizationID, code)
	if err != nil {
		return nil, err
	}
	if !promo.IsActiveAt(time.Now().UTC()) {
		return nil, apperrors.ErrPromoExpired
	}
	if subtotal.LessThan(promo.MinOrderValue) {
		return nil, apperrors.ErrPromoMinimumNotMet
	}
	if err := s.promos.IncrementUsage(ctx, tx, promo.ID); err != nil {
		return nil, err
	}
	return promo, nil
}

// resolveSeatConflict names the seats that are actually contested. The
// failed transaction left no trace, so this reads committed state; if the
// conflict vanished in the meantime the requested seats are reported as-is.
func (s *BookingServiceImpl) resolveSeatConflict(ctx context.Context, showtimeID int64, requested []model.SeatID) error {
	contested, err := s.seats.FindActive(ctx, showtimeID, requested)
	if err != nil || len(contested) == 0 {
		contested = requested
	}

	names := make([]string, len(contested))
	for i, seat := range contested {
		names[i] = seat.String()
	}
	return &apperrors.SeatUnavailableError{ShowtimeID: showtimeID, Seats: names}
}

func (s *BookingServiceImpl) findByIdempotencyKey(ctx context.Context, organizationID int64, key, requestHash string) (*model.Booking, error) {
	existing, err := s.bookings.FindByIdempotencyKey(ctx, organizationID, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrBookingNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if existing.RequestHash == nil || *existing.RequestHash != requestHash {
		return nil, apperrors.ErrIdempotencyKeyReused
	}
	existing.Seats, err = s.seats.FindByBooking(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *BookingServiceImpl) GetBooking(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	booking.Seats, err = s.seats.FindByBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingServiceImpl) ListByCustomer(ctx context.Context, customerID int64) ([]*model.Booking, error) {
	return s.bookings.ListByCustomer(ctx, customerID)
}

func (s *BookingServiceImpl) TransitionStatus(ctx context.Context, id int64, target model.BookingStatus) (*model.Booking, error) {
	if target == model.BookingStatusCancelled {
		return s.CancelBooking(ctx, id)
	}

	var updated *model.Booking
	err := database.WithRetry(ctx, s.pool, database.DefaultTxOptions(), func(tx pgx.Tx) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransitionTo(target) {
			return fmt.Errorf("%s -> %s: %w", booking.Status, target, apperrors.ErrInvalidBookingStatus)
		}
		updated, err = s.bookings.UpdateStatus(ctx, tx, id, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelBooking releases the seats and reverses the booking's stock and
// loyalty ledger entries with compensating rows. Promo usage stays consumed:
// a redeemed slot is not returned on cancellation.
func (s *BookingServiceImpl) CancelBooking(ctx context.Context, id int64) (*model.Booking, error) {
	var cancelled *model.Booking
	var releasedSeats []*model.BookedSeat

	err := database.WithRetry(ctx, s.pool, database.SerializableTxOptions(s.cfg.TxMaxRetries), func(tx pgx.Tx) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !booking.Status.CanTransitionTo(model.BookingStatusCancelled) {
			return fmt.Errorf("%s -> %s: %w", booking.Status, model.BookingStatusCancelled, apperrors.ErrInvalidBookingStatus)
		}

		cancelled, err = s.bookings.UpdateStatus(ctx, tx, id, model.BookingStatusCancelled)
		if err != nil {
			return err
		}

		releasedSeats, err = s.seats.CancelByBooking(ctx, tx, id)
		if err != nil {
			return err
		}

		sales, err := s.inventory.SalesByBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, sale := range sales {
			if _, err := s.inventory.Adjust(ctx, tx, sale.ItemID, -sale.ChangeAmount, &id); err != nil {
				return err
			}
		}

		txns, err := s.loyalty.TransactionsByBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, txn := range txns {
			if txn.TransactionType != model.LoyaltyEarned && txn.TransactionType != model.LoyaltyRedeemed {
				continue
			}
			_, err := s.loyalty.Append(ctx, tx, &model.LoyaltyTransaction{
				OrganizationID:  txn.OrganizationID,
				CustomerID:      txn.CustomerID,
				Points:          -txn.Points,
				TransactionType: model.LoyaltyAdjustment,
				BookingID:       &id,
				RewardID:        txn.RewardID,
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	seatNames := make([]string, len(releasedSeats))
	for i, seat := range releasedSeats {
		seatNames[i] = seat.SeatID().String()
	}

	event, err := model.NewNotificationEvent(model.EventBookingCancelled, &model.BookingCancelledPayload{
		BookingID:        cancelled.ID,
		BookingReference: cancelled.BookingReference,
		Seats:            seatNames,
	})
	if err == nil {
		if err := s.queue.PublishEvent(ctx, event); err != nil {
			logger.WithComponent("booking").Error("publish cancellation event failed", zap.Int64("booking_id", id), zap.Error(err))
		}
	}
	if err := s.availability.Invalidate(ctx, cancelled.ShowtimeID); err != nil {
		logger.WithComponent("booking").Warn("availability cache invalidation failed", zap.Int64("showtime_id", cancelled.ShowtimeID), zap.Error(err))
	}

	cancelled.Seats = releasedSeats
	return cancelled, nil
}

// RegenerateReference issues a fresh code and retires the old one. The old
// code stays in booking_references forever, so it can never come back.
func (s *BookingServiceImpl) RegenerateReference(ctx context.Context, id int64) (*model.Booking, error) {
	var updated *model.Booking
	err := database.WithRetry(ctx, s.pool, database.DefaultTxOptions(), func(tx pgx.Tx) error {
		booking, err := s.bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking.Status == model.BookingStatusCancelled || booking.Status == model.BookingStatusUsed {
			return fmt.Errorf("reference regeneration on %s booking: %w", booking.Status, apperrors.ErrInvalidBookingStatus)
		}

		code, err := s.generator.Generate(ctx, tx)
		if err != nil {
			return err
		}
		if err := s.references.Attach(ctx, tx, code, id); err != nil {
			return err
		}
		if err := s.references.RetireOthers(ctx, tx, id, code); err != nil {
			return err
		}
		if err := s.bookings.UpdateReference(ctx, tx, id, code); err != nil {
			return err
		}

		booking.BookingReference = code
		updated = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *BookingServiceImpl) ShowtimeAvailability(ctx context.Context, showtimeID int64) ([]*model.SeatAvailability, error) {
	cached, found, err := s.availability.Get(ctx, showtimeID)
	if err != nil {
		logger.WithComponent("booking").Warn("availability cache read failed", zap.Int64("showtime_id", showtimeID), zap.Error(err))
	} else if found {
		return cached, nil
	}

	if _, err := s.catalog.FindShowtime(ctx, showtimeID); err != nil {
		return nil, err
	}

	catalogSeats, err := s.catalog.ListShowtimeSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	booked, err := s.seats.ListActiveByShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	bookedSet := make(map[model.SeatID]bool, len(booked))
	for _, seat := range booked {
		bookedSet[seat] = true
	}

	seats := make([]*model.SeatAvailability, 0, len(catalogSeats))
	for _, cs := range catalogSeats {
		seats = append(seats, &model.SeatAvailability{
			Seat:     cs.SeatID().String(),
			SeatType: cs.SeatType,
			Price:    cs.Price.StringFixed(2),
			Booked:   bookedSet[cs.SeatID()],
		})
	}

	if err := s.availability.Warm(ctx, showtimeID, seats); err != nil {
		logger.WithComponent("booking").Warn("availability cache warm failed", zap.Int64("showtime_id", showtimeID), zap.Error(err))
	}

	return seats, nil
}

func parseSeats(raw []string) ([]model.SeatID, error) {
	if len(raw) == 0 {
		return nil, &apperrors.ValidationError{Field: "seats", Reason: "at least one seat required"}
	}

	seen := make(map[model.SeatID]bool, len(raw))
	seats := make([]model.SeatID, 0, len(raw))
	for _, r := range raw {
		seat, err := model.ParseSeatID(r)
		if err != nil {
			return nil, &apperrors.ValidationError{Field: "seats", Reason: err.Error()}
		}
		if seen[seat] {
			return nil, &apperrors.ValidationError{Field: "seats", Reason: fmt.Sprintf("seat %s listed twice", seat)}
		}
		seen[seat] = true
		seats = append(seats, seat)
	}
	return seats, nil
}

// earnedPoints floors total * rate; partial points are not awarded.
func earnedPoints(total decimal.Decimal, rate decimal.Decimal) int {
	return int(total.Mul(rate).IntPart())
}

func hashRequest(req model.CreateBookingRequest) string {
	payload, _ := json.Marshal(req)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
