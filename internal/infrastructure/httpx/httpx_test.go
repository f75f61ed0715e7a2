package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:    maxAttempts,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
}

func Test_Retry_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()
	var calls int
	attempts, err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		if calls <= 2 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Equal(t, 3, calls)
}

func Test_Retry_PermanentStopsImmediately(t *testing.T) {
	t.Parallel()
	terminal := errors.New("terminal")
	var calls int
	attempts, err := Retry(context.Background(), fastPolicy(3), func() error {
		calls++
		return Permanent(terminal)
	})
	require.ErrorIs(t, err, terminal)
	require.Equal(t, 1, attempts)
	require.Equal(t, 1, calls)
}

func Test_Retry_ExhaustsBudget(t *testing.T) {
	t.Parallel()
	transient := errors.New("transient")
	attempts, err := Retry(context.Background(), fastPolicy(3), func() error {
		return transient
	})
	require.ErrorIs(t, err, transient)
	require.Equal(t, 3, attempts)
}

func Test_Retry_ContextCancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	attempts, err := Retry(ctx, fastPolicy(5), func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
	require.Equal(t, 1, calls)
}

func Test_GetJSON_Decodes(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	var out struct {
		Value int `json:"value"`
	}
	c := &Client{HTTP: srv.Client()}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
	require.Equal(t, 42, out.Value)
}

func Test_GetJSON_StatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	var out map[string]any
	c := &Client{HTTP: srv.Client()}
	err := c.GetJSON(context.Background(), srv.URL, &out)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	require.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func Test_GetJSON_DecodeError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	var out map[string]any
	c := &Client{HTTP: srv.Client()}
	require.Error(t, c.GetJSON(context.Background(), srv.URL, &out))
}
