package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeatID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		seat, err := ParseSeatID("A-12")
		require.NoError(t, err)
		assert.Equal(t, SeatID{Row: "A", Number: 12}, seat)
		assert.Equal(t, "A-12", seat.String())
	})

	t.Run("LowercaseRowNormalized", func(t *testing.T) {
		seat, err := ParseSeatID("b-3")
		require.NoError(t, err)
		assert.Equal(t, SeatID{Row: "B", Number: 3}, seat)
	})

	t.Run("MultiCharacterRow", func(t *testing.T) {
		seat, err := ParseSeatID("AA-1")
		require.NoError(t, err)
		assert.Equal(t, SeatID{Row: "AA", Number: 1}, seat)
	})

	t.Run("Malformed", func(t *testing.T) {
		for _, raw := range []string{"", "A", "A-", "-12", "A-x", "A-0", "A--3"} {
			_, err := ParseSeatID(raw)
			assert.Error(t, err, "expected %q to be rejected", raw)
		}
	})
}
