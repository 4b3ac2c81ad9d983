// Package resilience wraps provider calls with one bounded retry and a
// circuit breaker per provider.
//
// Only ProviderUnavailable is retried, once, after a fixed backoff. Timeouts
// and caller errors surface immediately. While a breaker is open calls fail
// fast with ProviderUnavailable and are not retried.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/PortfolioRAG/internal/config"
	"github.com/akolanti/PortfolioRAG/internal/domain/ragErrors"
	"github.com/akolanti/PortfolioRAG/pkg/logger_i"
	"github.com/sony/gobreaker"
)

type Options struct {
	Backoff          time.Duration
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

func DefaultOptions() Options {
	return Options{
		Backoff:          config.RetryBackoff,
		FailureThreshold: config.BreakerFailureThreshold,
		OpenTimeout:      config.BreakerOpenTimeout,
	}
}

type Guard struct {
	name    string
	backoff time.Duration
	breaker *gobreaker.CircuitBreaker
	logger  *logger_i.Logger
}

func NewGuard(name string, opts Options) *Guard {
	logger := logger_i.NewLogger("resilience").With("provider", name)
	threshold := opts.FailureThreshold
	return &Guard{
		name:    name,
		backoff: opts.Backoff,
		logger:  logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// caller mistakes must not open the breaker
			IsSuccessful: func(err error) bool {
				return err == nil || !(errors.Is(err, ragErrors.ErrProviderUnavailable) || errors.Is(err, ragErrors.ErrTimeout))
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (g *Guard) Do(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	err := g.attempt(ctx, step, fn)
	if !retryable(err) {
		return err
	}
	g.logger.WithTrace(ctx, config.TRACE_ID_KEY).Warn("Provider call failed, retrying once", "step", step, "backoff", g.backoff, "error", err)

	timer := time.NewTimer(g.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ragErrors.FromProvider(step, ctx.Err())
	case <-timer.C:
	}
	return g.attempt(ctx, step, fn)
}

func (g *Guard) attempt(ctx context.Context, step string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return ragErrors.FromProvider(step, err)
	}
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ragErrors.New(ragErrors.ProviderUnavailable, step, fmt.Errorf("%s: %w", g.name, err))
	}
	return err
}

func retryable(err error) bool {
	if err == nil || !errors.Is(err, ragErrors.ErrProviderUnavailable) {
		return false
	}
	return !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}
