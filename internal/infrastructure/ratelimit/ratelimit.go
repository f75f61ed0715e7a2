package ratelimit

import (
	"context"
	"sync"
	"time"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
)

// TokenBucket enforces a calls-per-minute budget with a small burst.
type TokenBucket struct {
	rate     float64 // tokens per second
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(callsPerMinute, burst int) *TokenBucket {
	if callsPerMinute <= 0 {
		callsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     float64(callsPerMinute) / 60.0,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// Wait blocks until one token is available or the context is canceled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
			tb.tokens += elapsed * tb.rate
			if tb.tokens > tb.capacity {
				tb.tokens = tb.capacity
			}
			tb.last = now
		}
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		deficit := 1 - tb.tokens
		tb.mu.Unlock()

		wait := time.Duration(deficit / tb.rate * float64(time.Second))
		if wait <= 0 {
			wait = time.Millisecond
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Limited gates a provider behind a token bucket so concurrent symbol workers
// collectively respect the provider's call budget.
type Limited struct {
	Next application.MarketDataProvider
	TB   *TokenBucket
}

var _ application.MarketDataProvider = (*Limited)(nil)

func (l *Limited) Fetch(ctx context.Context, symbol domain.Symbol) ([]domain.PriceRecord, []domain.Warning, error) {
	if l.TB != nil {
		if err := l.TB.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	return l.Next.Fetch(ctx, symbol)
}
