// Package breaker builds the circuit breakers that guard outbound collaborator calls.
package breaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Config controls when a breaker opens and how long it stays open.
type Config struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
	OpenTimeout         time.Duration `koanf:"open_timeout"`
	HalfOpenRequests    uint32        `koanf:"half_open_requests"`
	Interval            time.Duration `koanf:"interval"`
}

func DefaultConfig() Config {
	return Config{
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
		HalfOpenRequests:    1,
		Interval:            time.Minute,
	}
}

// New returns a breaker named after the collaborator it protects.
func New[T any](name string, cfg Config, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	def := DefaultConfig()
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	threshold := cfg.ConsecutiveFailures
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// IsOpen reports whether err came from a breaker rejecting the call.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
