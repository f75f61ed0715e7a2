package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
)

func aaplRecord(day string, closing float64) domain.PriceRecord {
	d, _ := time.Parse(domain.DayFormat, day)
	c := decimal.NewFromFloat(closing)
	return domain.PriceRecord{
		Symbol: "AAPL",
		Day:    d,
		Open:   c,
		High:   c.Add(decimal.NewFromInt(1)),
		Low:    c.Sub(decimal.NewFromInt(1)),
		Close:  c,
		Volume: 52455980,
	}
}

func newTestRouter(t *testing.T, opts ...ServerOption) (http.Handler, *fakePriceRepo, *fakeRunRepo) {
	t.Helper()
	provider := &fakeProvider{records: map[domain.Symbol][]domain.PriceRecord{
		"AAPL": {aaplRecord("2024-01-15", 185.14)},
	}}
	svc, pr, rr := NewInMemoryService(provider)
	opts = append([]ServerOption{WithDefaultSymbols([]domain.Symbol{"AAPL"})}, opts...)
	return NewRouter(NewServer(svc, opts...)), pr, rr
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func Test_Healthz(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "OK", rec.Body.String())
}

func Test_Readyz_DBDown(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t, WithPing(func(context.Context) error { return errors.New("down") }))
	rec := doJSON(t, h, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func Test_TriggerRun_DefaultSymbols(t *testing.T) {
	t.Parallel()
	h, _, rr := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/runs", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary domain.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.NotEmpty(t, summary.RunID)
	require.Len(t, summary.PerSymbol, 1)
	require.Equal(t, domain.OutcomeOK, summary.PerSymbol[0].Status)
	require.Equal(t, 1, summary.PerSymbol[0].Inserted)

	run, err := rr.GetByID(context.Background(), summary.RunID)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusCompleted, run.Status)
}

func Test_TriggerRun_ExplicitSymbolsAndAsOf(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)

	body := `{"symbols": ["AAPL"], "as_of": "2024-01-15"}`
	rec := doJSON(t, h, http.MethodPost, "/v1/runs", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary domain.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	require.Equal(t, "2024-01-15", summary.AsOf.Format(domain.DayFormat))
}

func Test_TriggerRun_BadAsOf(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodPost, "/v1/runs", `{"as_of": "15/01/2024"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_TriggerRun_IdempotencyConflict(t *testing.T) {
	t.Parallel()
	provider := &fakeProvider{records: map[domain.Symbol][]domain.PriceRecord{
		"AAPL": {aaplRecord("2024-01-15", 185.14)},
	}}
	pr := &fakePriceRepo{store: map[string]domain.PriceRecord{}}
	rr := &fakeRunRepo{runs: map[string]domain.RunRecord{}}
	svc := application.NewIngestionService(pr, rr, provider, application.NoopUoW{}, &onceIdem{})
	h := NewRouter(NewServer(svc, WithDefaultSymbols([]domain.Symbol{"AAPL"})))

	hdr := map[string]string{"X-Idempotency-Key": "2024-01-15-eod"}
	first := doJSON(t, h, http.MethodPost, "/v1/runs", "", hdr)
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, h, http.MethodPost, "/v1/runs", "", hdr)
	require.Equal(t, http.StatusConflict, second.Code)
}

func Test_GetRun_NotFound(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/runs/no-such-run", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_LatestPrice(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodGet, "/v1/prices/AAPL/latest", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/v1/runs", "", nil).Code)

	rec = doJSON(t, h, http.MethodGet, "/v1/prices/AAPL/latest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got priceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "AAPL", got.Symbol)
	require.Equal(t, "2024-01-15", got.Day)
	require.Equal(t, "185.14", got.Close)
}

func Test_LatestPrice_InvalidSymbol(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)
	rec := doJSON(t, h, http.MethodGet, "/v1/prices/bogus!/latest", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_PriceHistory(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/v1/runs", "", nil).Code)

	rec := doJSON(t, h, http.MethodGet, "/v1/prices/AAPL?from=2024-01-01&to=2024-01-31", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []priceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
}

func Test_Verify(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestRouter(t)
	require.Equal(t, http.StatusOK, doJSON(t, h, http.MethodPost, "/v1/runs", `{"as_of": "2024-01-15"}`, nil).Code)

	rec := doJSON(t, h, http.MethodGet, "/v1/verify?date=2024-01-15", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Date    string                    `json:"date"`
		Symbols []application.SymbolCheck `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "2024-01-15", got.Date)
	require.Equal(t, []application.SymbolCheck{{Symbol: "AAPL", Rows: 1, LatestDay: "2024-01-15"}}, got.Symbols)
}

type onceIdem struct{ seen map[string]bool }

func (o *onceIdem) TryReserve(_ context.Context, key string) (bool, error) {
	if o.seen == nil {
		o.seen = map[string]bool{}
	}
	if o.seen[key] {
		return false, nil
	}
	o.seen[key] = true
	return true, nil
}
