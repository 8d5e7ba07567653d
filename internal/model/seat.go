package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookedSeatStatus string

const (
	BookedSeatStatusActive    BookedSeatStatus = "active"
	BookedSeatStatusCancelled BookedSeatStatus = "cancelled"
)

// SeatID identifies a seat within a showtime's hall by row label and number,
// e.g. "A-12".
type SeatID struct {
	Row    string
	Number int
}

func (s SeatID) String() string {
	return fmt.Sprintf("%s-%d", s.Row, s.Number)
}

// ParseSeatID parses "A-12" style identifiers. The row label is upper-cased.
func ParseSeatID(raw string) (SeatID, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 || parts[0] == "" {
		return SeatID{}, fmt.Errorf("malformed seat identifier %q", raw)
	}
	number, err := strconv.Atoi(parts[1])
	if err != nil || number <= 0 {
		return SeatID{}, fmt.Errorf("malformed seat identifier %q", raw)
	}
	return SeatID{Row: strings.ToUpper(parts[0]), Number: number}, nil
}

// BookedSeat is an exclusive claim on one seat for one showtime. At most one
// active row may exist per (showtime_id, seat_row, seat_number); the partial
// unique index in the schema is the enforcement mechanism.
type BookedSeat struct {
	ID         int64            `json:"id" db:"id"`
	BookingID  int64            `json:"booking_id" db:"booking_id"`
	ShowtimeID int64            `json:"showtime_id" db:"showtime_id"`
	SeatRow    string           `json:"seat_row" db:"seat_row"`
	SeatNumber int              `json:"seat_number" db:"seat_number"`
	Price      decimal.Decimal  `json:"price" db:"price"`
	SeatType   string           `json:"seat_type" db:"seat_type"`
	Status     BookedSeatStatus `json:"status" db:"status"`
	CreatedAt  time.Time        `json:"created_at" db:"created_at"`
}

func (b *BookedSeat) SeatID() SeatID {
	return SeatID{Row: b.SeatRow, Number: b.SeatNumber}
}

// ShowtimeSeat is read-only catalog data: a seat that exists in the hall of a
// showtime together with its price and type.
type ShowtimeSeat struct {
	ShowtimeID int64           `json:"showtime_id" db:"showtime_id"`
	SeatRow    string          `json:"seat_row" db:"seat_row"`
	SeatNumber int             `json:"seat_number" db:"seat_number"`
	SeatType   string          `json:"seat_type" db:"seat_type"`
	Price      decimal.Decimal `json:"price" db:"price"`
}

func (s *ShowtimeSeat) SeatID() SeatID {
	return SeatID{Row: s.SeatRow, Number: s.SeatNumber}
}

// Showtime is read-only catalog data validated against during booking.
type Showtime struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	MovieTitle     string    `json:"movie_title" db:"movie_title"`
	StartsAt       time.Time `json:"starts_at" db:"starts_at"`
	Capacity       int       `json:"capacity" db:"capacity"`
}

// SeatAvailability is the read model served by the availability endpoint.
type SeatAvailability struct {
	Seat     string `json:"seat"`
	SeatType string `json:"seat_type"`
	Price    string `json:"price"`
	Booked   bool   `json:"booked"`
}
