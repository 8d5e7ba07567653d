package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cinema-booking-engine/internal/model"

	"github.com/redis/go-redis/v9"
)

const availabilityTTL = 5 * time.Minute

// SeatAvailabilityCache is a read model over Redis for the availability
// endpoint. It is never authoritative: the booked_seats unique index decides
// who gets a seat, and the cache is refreshed after commits and expires on
// its own.
type SeatAvailabilityCache interface {
	// Warm stores the full seat map for a showtime.
	Warm(ctx context.Context, showtimeID int64, seats []*model.SeatAvailability) error
	// Get returns the cached seat map, or found=false on a miss.
	Get(ctx context.Context, showtimeID int64) ([]*model.SeatAvailability, bool, error)
	// MarkBooked flips cached seats to booked after a commit.
	MarkBooked(ctx context.Context, showtimeID int64, seats []string) error
	// Invalidate drops the cached map, forcing the next read through the DB.
	Invalidate(ctx context.Context, showtimeID int64) error
}

type RedisSeatAvailabilityCache struct {
	client *redis.Client
}

func NewRedisSeatAvailabilityCache(client *redis.Client) SeatAvailabilityCache {
	return &RedisSeatAvailabilityCache{client: client}
}

func (c *RedisSeatAvailabilityCache) key(showtimeID int64) string {
	return fmt.Sprintf("showtime:%d:seats", showtimeID)
}

func (c *RedisSeatAvailabilityCache) Warm(ctx context.Context, showtimeID int64, seats []*model.SeatAvailability) error {
	key := c.key(showtimeID)

	fields := make(map[string]interface{}, len(seats))
	for _, s := range seats {
		fields[s.Seat] = encodeSeat(s)
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	pipe.Expire(ctx, key, availabilityTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisSeatAvailabilityCache) Get(ctx context.Context, showtimeID int64) ([]*model.SeatAvailability, bool, error) {
	result, err := c.client.HGetAll(ctx, c.key(showtimeID)).Result()
	if err != nil {
		return nil, false, err
	}
	if len(result) == 0 {
		return nil, false, nil
	}

	seats := make([]*model.SeatAvailability, 0, len(result))
	for seat, encoded := range result {
		decoded, err := decodeSeat(seat, encoded)
		if err != nil {
			// A malformed entry means the cache is stale beyond repair.
			return nil, false, c.Invalidate(ctx, showtimeID)
		}
		seats = append(seats, decoded)
	}

	return seats, true, nil
}

func (c *RedisSeatAvailabilityCache) MarkBooked(ctx context.Context, showtimeID int64, seats []string) error {
	key := c.key(showtimeID)

	// Only touch seats that are already cached; a miss repopulates anyway.
	script := `
		local key = KEYS[1]
		if redis.call('EXISTS', key) == 0 then
			return 0
		end
		for i = 1, #ARGV do
			local seat = ARGV[i]
			local current = redis.call('HGET', key, seat)
			if current then
				local sep = string.find(current, '|')
				if sep then
					redis.call('HSET', key, seat, 'booked' .. string.sub(current, sep))
				end
			end
		end
		return 1
	`

	args := make([]interface{}, len(seats))
	for i, s := range seats {
		args[i] = s
	}

	return c.client.Eval(ctx, script, []string{key}, args...).Err()
}

func (c *RedisSeatAvailabilityCache) Invalidate(ctx context.Context, showtimeID int64) error {
	return c.client.Del(ctx, c.key(showtimeID)).Err()
}

func encodeSeat(s *model.SeatAvailability) string {
	state := "free"
	if s.Booked {
		state = "booked"
	}
	return fmt.Sprintf("%s|%s|%s", state, s.SeatType, s.Price)
}

func decodeSeat(seat, encoded string) (*model.SeatAvailability, error) {
	parts := strings.SplitN(encoded, "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed seat entry %q", encoded)
	}

	return &model.SeatAvailability{
		Seat:     seat,
		SeatType: parts[1],
		Price:    parts[2],
		Booked:   parts[0] == "booked",
	}, nil
}
