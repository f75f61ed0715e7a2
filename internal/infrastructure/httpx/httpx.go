package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop: attempts, exponential delay curve and jitter.
type Policy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       8 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		exp.InitialInterval = p.BaseDelay
	}
	if p.MaxDelay > 0 {
		exp.MaxInterval = p.MaxDelay
	}
	if p.Multiplier > 0 {
		exp.Multiplier = p.Multiplier
	}
	exp.RandomizationFactor = p.JitterFraction
	exp.MaxElapsedTime = 0

	var b backoff.BackOff = exp
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	return backoff.WithContext(b, ctx)
}

// Permanent marks err as not worth retrying; Retry stops immediately and
// returns the wrapped error as-is.
func Permanent(err error) error { return backoff.Permanent(err) }

// Retry runs op under p, sleeping between attempts. It returns how many
// attempts were made along with the final error, and stops early on context
// cancellation or a Permanent error.
func Retry(ctx context.Context, p Policy, op func() error) (int, error) {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return op()
	}, p.backOff(ctx))
	return attempts, err
}

// StatusError reports a non-200 response so callers can classify it.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("unexpected status %d", e.Code) }

type Client struct {
	HTTP *http.Client
}

// GetJSON issues a single GET and decodes the JSON body into out. It performs
// no retries itself; wrap calls in Retry with a Policy.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
