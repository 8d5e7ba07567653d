package reference

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	apperrors "cinema-booking-engine/pkg/app_errors"

	"github.com/jackc/pgx/v5"
)

// Alphabet excludes visually ambiguous characters (0/O, 1/I/L) so references
// survive being read over the phone. 31^8 is roughly 8.5e11 codes, which
// makes retry exhaustion a defined error rather than a practical outcome.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Store claims candidate codes. A claim must be race-safe: backed by a
// uniqueness constraint, not an existence check.
type Store interface {
	TryClaim(ctx context.Context, tx pgx.Tx, code string) (bool, error)
}

type Generator struct {
	store       Store
	length      int
	maxAttempts int
}

func NewGenerator(store Store, length, maxAttempts int) *Generator {
	if length <= 0 {
		length = 8
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &Generator{store: store, length: length, maxAttempts: maxAttempts}
}

// Generate draws random codes until one is claimed or attempts run out.
// Exhaustion returns ErrReferenceExhausted; it signals either an operational
// problem or a code space far fuller than it should ever be.
func (g *Generator) Generate(ctx context.Context, tx pgx.Tx) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.randomCode()
		if err != nil {
			return "", fmt.Errorf("draw reference: %w", err)
		}

		claimed, err := g.store.TryClaim(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if claimed {
			return code, nil
		}
	}

	return "", apperrors.ErrReferenceExhausted
}

func (g *Generator) randomCode() (string, error) {
	max := big.NewInt(int64(len(Alphabet)))
	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code), nil
}
