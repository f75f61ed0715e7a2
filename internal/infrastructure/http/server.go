package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
)

type Server struct {
	svc            *application.IngestionService
	ping           func(ctx context.Context) error
	defaultSymbols []domain.Symbol
	runTimeout     time.Duration
}

type ServerOption func(*Server)

func WithPing(fn func(ctx context.Context) error) ServerOption {
	return func(s *Server) { s.ping = fn }
}

func WithDefaultSymbols(symbols []domain.Symbol) ServerOption {
	return func(s *Server) { s.defaultSymbols = symbols }
}

func WithRunTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.runTimeout = d }
}

func NewServer(svc *application.IngestionService, opts ...ServerOption) *Server {
	s := &Server{svc: svc, runTimeout: 10 * time.Minute}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type runRequest struct {
	Symbols []string `json:"symbols,omitempty"`
	AsOf    string   `json:"as_of,omitempty"`
}

func (s *Server) triggerRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	symbols := make([]domain.Symbol, 0, len(body.Symbols))
	for _, sym := range body.Symbols {
		symbols = append(symbols, domain.Symbol(sym))
	}
	if len(symbols) == 0 {
		symbols = s.defaultSymbols
	}
	if len(symbols) == 0 {
		badRequest(w, "no symbols configured or supplied")
		return
	}

	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if body.AsOf != "" {
		day, err := time.ParseInLocation(domain.DayFormat, body.AsOf, time.UTC)
		if err != nil {
			badRequest(w, "as_of must be YYYY-MM-DD")
			return
		}
		asOf = day
	}

	var idem *string
	if key := r.Header.Get("X-Idempotency-Key"); key != "" {
		idem = &key
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.runTimeout)
	defer cancel()

	summary, err := s.svc.Run(ctx, symbols, asOf, idem)
	switch {
	case errors.Is(err, application.ErrConflict):
		writeError(w, http.StatusConflict, "duplicate idempotency key")
		return
	case errors.Is(err, application.ErrBadRequest):
		badRequest(w, "bad request")
		return
	case err != nil:
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, id string) {
	run, err := s.svc.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			notFound(w)
			return
		}
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, runResponse(run))
}

type priceResponse struct {
	Symbol    string    `json:"symbol"`
	Day       string    `json:"day"`
	Open      string    `json:"open"`
	High      string    `json:"high"`
	Low       string    `json:"low"`
	Close     string    `json:"close"`
	Volume    int64     `json:"volume"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toPriceResponse(rec domain.PriceRecord) priceResponse {
	return priceResponse{
		Symbol:    string(rec.Symbol),
		Day:       rec.DayString(),
		Open:      rec.Open.String(),
		High:      rec.High.String(),
		Low:       rec.Low.String(),
		Close:     rec.Close.String(),
		Volume:    rec.Volume,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (s *Server) latestPrice(w http.ResponseWriter, r *http.Request, symbol string) {
	rec, err := s.svc.LatestPrice(r.Context(), domain.Symbol(symbol))
	switch {
	case errors.Is(err, application.ErrBadRequest):
		badRequest(w, "invalid symbol")
	case errors.Is(err, application.ErrNotFound):
		notFound(w)
	case err != nil:
		internalError(w)
	default:
		writeJSON(w, http.StatusOK, toPriceResponse(rec))
	}
}

func (s *Server) priceHistory(w http.ResponseWriter, r *http.Request, symbol string) {
	from, err := parseDayParam(r, "from", time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		badRequest(w, "from must be YYYY-MM-DD")
		return
	}
	to, err := parseDayParam(r, "to", time.Now().UTC())
	if err != nil {
		badRequest(w, "to must be YYYY-MM-DD")
		return
	}
	recs, err := s.svc.PriceHistory(r.Context(), domain.Symbol(symbol), from, to)
	switch {
	case errors.Is(err, application.ErrBadRequest):
		badRequest(w, "invalid symbol")
		return
	case err != nil:
		internalError(w)
		return
	}
	out := make([]priceResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toPriceResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) verifyDay(w http.ResponseWriter, r *http.Request) {
	day, err := parseDayParam(r, "date", time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		badRequest(w, "date must be YYYY-MM-DD")
		return
	}
	checks, err := s.svc.Verify(r.Context(), s.defaultSymbols, day)
	if err != nil {
		internalError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    day.Format(domain.DayFormat),
		"symbols": checks,
	})
}

func parseDayParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return time.ParseInLocation(domain.DayFormat, v, time.UTC)
}

type runDetails struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	AsOf            string     `json:"as_of"`
	SymbolsTotal    int        `json:"symbols_total"`
	SymbolsFailed   int        `json:"symbols_failed"`
	RecordsFetched  int        `json:"records_fetched"`
	RecordsInserted int        `json:"records_inserted"`
	RecordsUpdated  int        `json:"records_updated"`
	Error           *string    `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

func runResponse(run domain.RunRecord) runDetails {
	return runDetails{
		ID:              run.ID,
		Status:          string(run.Status),
		AsOf:            run.AsOf.Format(domain.DayFormat),
		SymbolsTotal:    run.SymbolsTotal,
		SymbolsFailed:   run.SymbolsFailed,
		RecordsFetched:  run.RecordsFetched,
		RecordsInserted: run.RecordsInserted,
		RecordsUpdated:  run.RecordsUpdated,
		Error:           run.Error,
		StartedAt:       run.StartedAt,
		FinishedAt:      run.FinishedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func badRequest(w http.ResponseWriter, msg string) { writeError(w, http.StatusBadRequest, msg) }
func notFound(w http.ResponseWriter)               { writeError(w, http.StatusNotFound, "not found") }
func internalError(w http.ResponseWriter)          { writeError(w, http.StatusInternalServerError, "internal error") }
