package services

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig holds login throttling limits.
type RateLimitConfig struct {
	MaxEmailFailures int           // Failed logins allowed per email
	EmailWindow      time.Duration // Time window for the email limit
	MaxIPFailures    int           // Failed logins allowed per IP
	IPWindow         time.Duration // Time window for the IP limit
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxEmailFailures: 5,
		EmailWindow:      15 * time.Minute,
		MaxIPFailures:    20,
		IPWindow:         time.Hour,
	}
}

// RateLimitError is returned while an email or IP is locked out.
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
	Type       string // "email" or "ip"
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// RateLimitService counts failed logins in memory. Counts are lost on
// restart, which only ever loosens the limit.
type RateLimitService struct {
	config RateLimitConfig
	now    func() time.Time

	mu       sync.Mutex
	failures map[string][]time.Time
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(config RateLimitConfig) *RateLimitService {
	return &RateLimitService{
		config:   config,
		now:      time.Now,
		failures: make(map[string][]time.Time),
	}
}

func limitKey(identifierType, identifier string) string {
	return identifierType + ":" + strings.ToLower(strings.TrimSpace(identifier))
}

// CheckLogin returns a *RateLimitError if email or ip has too many recent
// failures. Empty identifiers are not checked.
func (s *RateLimitService) CheckLogin(email, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if email != "" {
		if err := s.check(limitKey("email", email), "email", s.config.MaxEmailFailures, s.config.EmailWindow); err != nil {
			return err
		}
	}
	if ip != "" {
		if err := s.check(limitKey("ip", ip), "ip", s.config.MaxIPFailures, s.config.IPWindow); err != nil {
			return err
		}
	}
	return nil
}

func (s *RateLimitService) check(key, identifierType string, max int, window time.Duration) error {
	recent := s.prune(key, window)
	if len(recent) < max {
		return nil
	}

	retryAfter := recent[len(recent)-max].Add(window)
	what := "this account"
	if identifierType == "ip" {
		what = "this IP address"
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("Too many failed logins for %s. Please try again after %s", what, retryAfter.Format("15:04:05")),
		RetryAfter: retryAfter,
		Type:       identifierType,
	}
}

// prune drops failures older than window and returns what is left.
// Caller holds mu.
func (s *RateLimitService) prune(key string, window time.Duration) []time.Time {
	cutoff := s.now().Add(-window)
	times := s.failures[key]
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	times = times[i:]
	if len(times) == 0 {
		delete(s.failures, key)
		return nil
	}
	s.failures[key] = times
	return times
}

// RecordFailure counts one failed login against email and ip.
func (s *RateLimitService) RecordFailure(email, ip string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if email != "" {
		key := limitKey("email", email)
		s.failures[key] = append(s.failures[key], now)
	}
	if ip != "" {
		key := limitKey("ip", ip)
		s.failures[key] = append(s.failures[key], now)
	}
}

// Reset forgets failures for email after a successful login. IP counts
// are kept so one good account cannot unlock guessing at others.
func (s *RateLimitService) Reset(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, limitKey("email", email))
}

// CleanupExpired drops every failure outside its window and returns how
// many identifiers were forgotten.
func (s *RateLimitService) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.failures {
		window := s.config.EmailWindow
		if strings.HasPrefix(key, "ip:") {
			window = s.config.IPWindow
		}
		if s.prune(key, window) == nil {
			removed++
		}
	}
	return removed
}
