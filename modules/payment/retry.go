package payment

import (
	"context"
	"log"
	"math"
	"time"
)

// RetryConfig bounds the retries for transient gateway failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns the retry policy used in production.
func DefaultRetryConfig(maxRetries int) RetryConfig {
	return RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
	}
}

// retryingGateway retries transient failures. Callers supply the idempotency
// key, so every attempt of a mutating call is the same request to the gateway.
type retryingGateway struct {
	next   Gateway
	config RetryConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

// WithRetry wraps g with bounded exponential backoff.
func WithRetry(g Gateway, cfg RetryConfig) Gateway {
	return &retryingGateway{next: g, config: cfg, sleep: sleepContext}
}

func (r *retryingGateway) CreateIntent(ctx context.Context, p CreateIntentParams) (*Intent, error) {
	var intent *Intent
	err := r.do(ctx, "create-intent", func() error {
		var err error
		intent, err = r.next.CreateIntent(ctx, p)
		return err
	})
	return intent, err
}

func (r *retryingGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	var intent *Intent
	err := r.do(ctx, "get-intent", func() error {
		var err error
		intent, err = r.next.GetIntent(ctx, id)
		return err
	})
	return intent, err
}

func (r *retryingGateway) Refund(ctx context.Context, p RefundParams) (*Refund, error) {
	var refund *Refund
	err := r.do(ctx, "refund", func() error {
		var err error
		refund, err = r.next.Refund(ctx, p)
		return err
	})
	return refund, err
}

func (r *retryingGateway) do(ctx context.Context, op string, call func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = call()
		if err == nil || !IsTransient(err) || attempt >= r.config.MaxRetries {
			return err
		}

		delay := r.retryDelay(attempt + 1)
		log.Printf("[payment] %s failed (attempt %d/%d), retrying in %v: %v",
			op, attempt+1, r.config.MaxRetries+1, delay, err)
		if serr := r.sleep(ctx, delay); serr != nil {
			return err
		}
	}
}

// retryDelay is BaseDelay * 2^(retry-1), capped at MaxDelay.
func (r *retryingGateway) retryDelay(retry int) time.Duration {
	delay := float64(r.config.BaseDelay) * math.Pow(2, float64(retry-1))
	if r.config.MaxDelay > 0 && time.Duration(delay) > r.config.MaxDelay {
		return r.config.MaxDelay
	}
	return time.Duration(delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
