// internal/platform/resilience/retry.go
package resilience

import (
	"context"
	"fmt"
	"math"
	"time"

	"reconmcp/internal/platform/logx"
)

// RetryPolicy configura reintentos con backoff exponencial.
type RetryPolicy struct {
	MaxRetries        int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration

	// Retryable decide si un error merece otro intento. nil = ninguno.
	Retryable func(error) bool
}

// DefaultRetryPolicy: 2 reintentos, 1s, 2s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        2,
		BackoffBase:       time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = time.Second
	}
	if p.BackoffMultiplier < 1.0 {
		p.BackoffMultiplier = 2.0
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 60 * time.Second
	}
	return p
}

// Retrier ejecuta una operación con reintentos y, opcionalmente, un
// circuit breaker compartido entre llamadas.
type Retrier struct {
	name    string
	policy  RetryPolicy
	breaker *CircuitBreaker
	logger  logx.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRetrier crea un Retrier. breaker puede ser nil.
func NewRetrier(name string, policy RetryPolicy, breaker *CircuitBreaker, logger logx.Logger) *Retrier {
	if logger == nil {
		logger = logx.NewDiscard()
	}
	return &Retrier{
		name:    name,
		policy:  policy.withDefaults(),
		breaker: breaker,
		logger:  logger.With("component", "retrier", "name", name),
		sleep:   sleepCtx,
	}
}

// Breaker retorna el circuit breaker (útil para testing/monitoring).
func (r *Retrier) Breaker() *CircuitBreaker { return r.breaker }

// Do ejecuta fn hasta que tenga éxito, devuelva un error no reintentable
// o se agoten los reintentos. El circuit breaker registra un único
// resultado por llamada a Do.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.breaker != nil && !r.breaker.Allow() {
		r.logger.Warn("circuit breaker open, skipping call")
		return fmt.Errorf("%s: %w", r.name, ErrCircuitOpen)
	}

	var lastErr error
	attempt := 0
	for {
		if attempt > 0 {
			r.logger.Debug("retrying", "attempt", attempt, "max_retries", r.policy.MaxRetries)
		}

		err := fn(ctx)
		if err == nil {
			if r.breaker != nil {
				r.breaker.RecordSuccess()
			}
			return nil
		}
		lastErr = err

		retryable := r.policy.Retryable != nil && r.policy.Retryable(err)
		if !retryable || attempt >= r.policy.MaxRetries {
			break
		}

		backoff := r.backoff(attempt)
		r.logger.Debug("backing off before retry", "delay_ms", backoff.Milliseconds(), "error", err.Error())
		if err := r.sleep(ctx, backoff); err != nil {
			lastErr = fmt.Errorf("cancelled during backoff: %w", err)
			break
		}
		attempt++
	}

	if r.breaker != nil {
		r.breaker.RecordFailure()
	}
	if attempt > 0 {
		return fmt.Errorf("%s failed after %d attempts: %w", r.name, attempt+1, lastErr)
	}
	return lastErr
}

// backoff: base * multiplier^attempt, con tope MaxBackoff.
func (r *Retrier) backoff(attempt int) time.Duration {
	multiplier := math.Pow(r.policy.BackoffMultiplier, float64(attempt))
	d := time.Duration(float64(r.policy.BackoffBase) * multiplier)
	if d > r.policy.MaxBackoff {
		d = r.policy.MaxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
