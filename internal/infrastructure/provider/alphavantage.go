package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
	"stockprices-service/internal/infrastructure/httpx"
	"stockprices-service/internal/infrastructure/logx"
)

const (
	dailyFunction     = "TIME_SERIES_DAILY"
	defaultOutputSize = "compact"
)

// AlphaVantage fetches end-of-day series from the Alpha Vantage query
// endpoint. One Fetch issues at most Policy.MaxAttempts HTTP calls for one
// symbol and is safe to invoke concurrently for distinct symbols.
type AlphaVantage struct {
	BaseURL    string
	APIKey     string
	OutputSize string
	Client     *httpx.Client
	Policy     httpx.Policy
}

var _ application.MarketDataProvider = (*AlphaVantage)(nil)

// dailyResponse mirrors the provider's payload. The series is a map of
// date-string to labelled numeric-string fields; errors and throttling come
// back as 200s with a message body.
type dailyResponse struct {
	Meta         map[string]string            `json:"Meta Data"`
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
}

func (p *AlphaVantage) Fetch(ctx context.Context, symbol domain.Symbol) ([]domain.PriceRecord, []domain.Warning, error) {
	if p.BaseURL == "" || p.APIKey == "" {
		return nil, nil, errors.New("alphavantage: missing configuration")
	}
	if !domain.ValidateSymbol(string(symbol)) {
		return nil, nil, fmt.Errorf("alphavantage: %w: %s", domain.ErrInvalidSymbol, symbol)
	}

	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("alphavantage: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("function", dailyFunction)
	q.Set("symbol", string(symbol))
	q.Set("apikey", p.APIKey)
	outputSize := p.OutputSize
	if outputSize == "" {
		outputSize = defaultOutputSize
	}
	q.Set("outputsize", outputSize)
	u.RawQuery = q.Encode()

	log := logx.L().With(zap.String("provider", "alphavantage"), zap.String("symbol", string(symbol)))

	client := p.Client
	if client == nil {
		client = &httpx.Client{}
	}

	var body dailyResponse
	attempts, err := httpx.Retry(ctx, p.Policy, func() error {
		body = dailyResponse{}
		if err := client.GetJSON(ctx, u.String(), &body); err != nil {
			return classifyTransport(err)
		}
		return classifyBody(body)
	})
	if err != nil {
		log.Warn("fetch.failed", zap.Int("attempts", attempts), zap.Error(err))
		return nil, nil, fmt.Errorf("alphavantage: fetch %s: %w", symbol, err)
	}
	log.Info("fetch.ok", zap.Int("attempts", attempts), zap.Int("entries", len(body.Series)))

	return parseDaily(symbol, body.Series)
}

// classifyTransport splits HTTP-level failures into retryable and terminal.
// Network faults, 5xx and throttling are transient; auth and unknown-resource
// statuses cannot be fixed by retrying.
func classifyTransport(err error) error {
	var se *httpx.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == 401 || se.Code == 403:
			return httpx.Permanent(fmt.Errorf("status %d: %w", se.Code, application.ErrAuth))
		case se.Code == 404:
			return httpx.Permanent(fmt.Errorf("status %d: %w", se.Code, application.ErrUnknownSymbol))
		case se.Code == 429:
			return fmt.Errorf("status %d: %w", se.Code, application.ErrRateLimited)
		case se.Code >= 500:
			return err
		default:
			return httpx.Permanent(err)
		}
	}
	// Network error or a malformed body that may be transient.
	return err
}

// classifyBody handles the provider's habit of reporting errors inside a 200.
func classifyBody(body dailyResponse) error {
	if msg := body.ErrorMessage; msg != "" {
		if strings.Contains(strings.ToLower(msg), "apikey") || strings.Contains(strings.ToLower(msg), "api key") {
			return httpx.Permanent(fmt.Errorf("%s: %w", msg, application.ErrAuth))
		}
		return httpx.Permanent(fmt.Errorf("%s: %w", msg, application.ErrUnknownSymbol))
	}
	if body.Note != "" || body.Information != "" {
		return fmt.Errorf("throttle notice: %w", application.ErrRateLimited)
	}
	return nil
}
