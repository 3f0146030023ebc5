package inference

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"caregate/internal/domain"
)

// Circuit breaker defaults.
const (
	defaultCBMaxFailures uint32 = 5
	defaultCBOpenFor            = 30 * time.Second
	defaultCBInterval           = 60 * time.Second
)

// BreakerSettings configures the circuit breaker around an inference client.
type BreakerSettings struct {
	MaxFailures uint32        // consecutive failures before the circuit opens
	OpenFor     time.Duration // how long the circuit stays open before half-open
	Interval    time.Duration // closed-state cycle for clearing failure counts
}

// BreakerService wraps an InferenceService with circuit breaker protection.
// When the wrapped service fails repeatedly, the circuit opens and calls
// fail fast without reaching the provider, preventing retry storms while
// agents serve their static fallbacks.
type BreakerService struct {
	inner   domain.InferenceService
	breaker *gobreaker.CircuitBreaker[*domain.GenerateResult]
	logger  *slog.Logger
}

// NewBreakerService wraps inner with a circuit breaker. Zero-valued
// settings use defaults.
func NewBreakerService(inner domain.InferenceService, settings BreakerSettings, logger *slog.Logger) *BreakerService {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	openFor := settings.OpenFor
	if openFor == 0 {
		openFor = defaultCBOpenFor
	}
	interval := settings.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[*domain.GenerateResult](gobreaker.Settings{
		Name:        "inference:" + inner.Name(),
		MaxRequests: 1, // one probe in half-open state
		Interval:    interval,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BreakerService{inner: inner, breaker: cb, logger: logger}
}

// Generate implements domain.InferenceService through the breaker.
func (s *BreakerService) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	res, err := s.breaker.Execute(func() (*domain.GenerateResult, error) {
		return s.inner.Generate(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: provider %q circuit open: %v",
				domain.ErrInferenceFailed, s.inner.Name(), err)
		}
		return nil, err
	}
	return res, nil
}

// Name implements domain.InferenceService.
func (s *BreakerService) Name() string { return s.inner.Name() }

// State exposes the breaker state for monitoring.
func (s *BreakerService) State() gobreaker.State { return s.breaker.State() }

var _ domain.InferenceService = (*BreakerService)(nil)
