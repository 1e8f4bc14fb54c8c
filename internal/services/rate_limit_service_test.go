package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(now *time.Time) *RateLimitService {
	s := NewRateLimitService(RateLimitConfig{
		MaxEmailFailures: 3,
		EmailWindow:      10 * time.Minute,
		MaxIPFailures:    5,
		IPWindow:         time.Hour,
	})
	s.now = func() time.Time { return *now }
	return s
}

func TestCheckLogin_NoFailures(t *testing.T) {
	now := testNow
	s := newTestLimiter(&now)

	assert.NoError(t, s.CheckLogin("a@example.com", "10.0.0.1"))
	assert.NoError(t, s.CheckLogin("", ""))
}

func TestCheckLogin_EmailExceeded(t *testing.T) {
	now := testNow
	s := newTestLimiter(&now)

	for i := 0; i < 3; i++ {
		s.RecordFailure("A@Example.com ", "10.0.0.1")
		now = now.Add(time.Minute)
	}

	err := s.CheckLogin("a@example.com", "")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "email", rateErr.Type)
	assert.Equal(t, testNow.Add(10*time.Minute), rateErr.RetryAfter)

	// Another account from the same IP is still allowed.
	assert.NoError(t, s.CheckLogin("b@example.com", "10.0.0.1"))

	now = testNow.Add(10*time.Minute + time.Second)
	assert.NoError(t, s.CheckLogin("a@example.com", ""))
}

func TestCheckLogin_IPExceeded(t *testing.T) {
	now := testNow
	s := newTestLimiter(&now)

	for i := 0; i < 5; i++ {
		s.RecordFailure("", "10.0.0.9")
	}

	err := s.CheckLogin("fresh@example.com", "10.0.0.9")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "ip", rateErr.Type)
	assert.Contains(t, rateErr.Error(), "IP address")
}

func TestReset_KeepsIPCount(t *testing.T) {
	now := testNow
	s := newTestLimiter(&now)

	for i := 0; i < 5; i++ {
		s.RecordFailure("a@example.com", "10.0.0.1")
	}
	s.Reset("a@example.com")

	err := s.CheckLogin("a@example.com", "10.0.0.1")
	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, "ip", rateErr.Type)
}

func TestCleanupExpired(t *testing.T) {
	now := testNow
	s := newTestLimiter(&now)

	s.RecordFailure("a@example.com", "10.0.0.1")
	now = now.Add(30 * time.Minute)

	// The email entry is past its window, the IP entry is not.
	assert.Equal(t, 1, s.CleanupExpired())
	assert.Len(t, s.failures, 1)

	now = now.Add(time.Hour)
	assert.Equal(t, 1, s.CleanupExpired())
	assert.Empty(t, s.failures)
}
