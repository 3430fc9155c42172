// Package otp implements the cache-backed one-time-code gate used for
// signup and password reset. Codes are 6 decimal digits, live for 180
// seconds, and are deleted on first successful verification.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/NotJalaAl00/Flint/internal/stores/cache"
)

const (
	keyPrefix = "otp:"
	ttl       = 180 * time.Second
)

var ErrInvalidOTP = errors.New("otp expired or incorrect")

// Cache is the slice of the cache surface this package needs.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

type Service struct {
	cache Cache
}

func NewService(c Cache) *Service {
	return &Service{cache: c}
}

// Generate stages a fresh uniformly random code for the email, overwriting
// any earlier one, and returns it for mailing.
func (s *Service) Generate(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	if err := s.cache.Set(ctx, keyPrefix+email, code, ttl); err != nil {
		return "", fmt.Errorf("staging otp: %w", err)
	}
	return code, nil
}

// Verify checks the supplied code against the staged one. The entry is
// deleted only on a match, so a wrong guess cannot burn a valid code, while
// a successful verification consumes it.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	staged, err := s.cache.Get(ctx, keyPrefix+email)
	if errors.Is(err, cache.ErrNotFound) {
		return ErrInvalidOTP
	}
	if err != nil {
		return fmt.Errorf("fetching otp: %w", err)
	}
	if code == "" || staged != code {
		return ErrInvalidOTP
	}

	if err := s.cache.Del(ctx, keyPrefix+email); err != nil {
		return fmt.Errorf("consuming otp: %w", err)
	}
	return nil
}
