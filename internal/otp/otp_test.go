package otp

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/NotJalaAl00/Flint/internal/stores/cache"

	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	entries map[string]string
	ttls    map[string]time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	f.entries[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	v, ok := f.entries[key]
	if !ok {
		return "", cache.ErrNotFound
	}
	return v, nil
}

func (f *fakeCache) Del(_ context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

func TestGenerateStagesSixDigitCode(t *testing.T) {
	fc := newFakeCache()
	svc := NewService(fc)

	code, err := svc.Generate(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
	require.Equal(t, code, fc.entries["otp:alice@example.com"])
	require.Equal(t, 180*time.Second, fc.ttls["otp:alice@example.com"])
}

func TestGenerateOverwritesPreviousCode(t *testing.T) {
	fc := newFakeCache()
	svc := NewService(fc)

	first, err := svc.Generate(context.Background(), "alice@example.com")
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "alice@example.com")
	require.NoError(t, err)

	require.Equal(t, second, fc.entries["otp:alice@example.com"])
	if first != second {
		require.ErrorIs(t, svc.Verify(context.Background(), "alice@example.com", first), ErrInvalidOTP)
	}
}

func TestVerifyConsumesOnMatch(t *testing.T) {
	fc := newFakeCache()
	svc := NewService(fc)

	code, err := svc.Generate(context.Background(), "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Verify(context.Background(), "alice@example.com", code))
	// consumed: the same code no longer works
	require.ErrorIs(t, svc.Verify(context.Background(), "alice@example.com", code), ErrInvalidOTP)
}

func TestVerifyWrongCodeDoesNotBurnStagedCode(t *testing.T) {
	fc := newFakeCache()
	svc := NewService(fc)

	code, err := svc.Generate(context.Background(), "alice@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	require.ErrorIs(t, svc.Verify(context.Background(), "alice@example.com", wrong), ErrInvalidOTP)
	require.NoError(t, svc.Verify(context.Background(), "alice@example.com", code))
}

func TestVerifyMissingEntry(t *testing.T) {
	svc := NewService(newFakeCache())
	require.ErrorIs(t, svc.Verify(context.Background(), "nobody@example.com", "123456"), ErrInvalidOTP)
}

func TestVerifyEmptyCode(t *testing.T) {
	fc := newFakeCache()
	svc := NewService(fc)
	fc.entries["otp:alice@example.com"] = ""

	require.ErrorIs(t, svc.Verify(context.Background(), "alice@example.com", ""), ErrInvalidOTP)
}
