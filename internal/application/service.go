package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stockprices-service/internal/domain"
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type IDGen interface {
	NewID() string
}

// IngestionService sequences fetch -> validate -> persist for single symbols
// and fans a whole run out across a bounded worker pool.
type IngestionService struct {
	prices   PriceRepo
	runs     RunRepo
	provider MarketDataProvider
	uow      UnitOfWork
	idem     IdempotencyStore

	validator      Validator
	abortOnQuality bool
	maxParallel    int
	clock          Clock
	idgen          IDGen
}

type Option func(*IngestionService)

func WithClock(c Clock) Option { return func(s *IngestionService) { s.clock = c } }
func WithIDGen(g IDGen) Option { return func(s *IngestionService) { s.idgen = g } }

// WithQualityPolicy configures the validation threshold and whether a batch
// exceeding it is aborted (default: persist the valid subset and warn).
func WithQualityPolicy(maxRejectFraction float64, abort bool) Option {
	return func(s *IngestionService) {
		s.validator = Validator{MaxRejectFraction: maxRejectFraction}
		s.abortOnQuality = abort
	}
}

func WithMaxParallel(n int) Option {
	return func(s *IngestionService) {
		if n > 0 {
			s.maxParallel = n
		}
	}
}

func NewIngestionService(prices PriceRepo, runs RunRepo, provider MarketDataProvider, uow UnitOfWork, idem IdempotencyStore, opts ...Option) *IngestionService {
	s := &IngestionService{
		prices:      prices,
		runs:        runs,
		provider:    provider,
		uow:         uow,
		idem:        idem,
		maxParallel: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.uow == nil {
		s.uow = NoopUoW{}
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	return s
}

// Ingest processes one symbol end to end. Every failure is captured in the
// returned outcome; this method never propagates an error past its boundary
// so a caller iterating over many symbols can keep going.
func (s *IngestionService) Ingest(ctx context.Context, symbol domain.Symbol) domain.FetchOutcome {
	out := domain.FetchOutcome{Symbol: symbol, Status: domain.OutcomeOK}

	if !domain.ValidateSymbol(string(symbol)) {
		out.Status = domain.OutcomeFailed
		out.Error = "invalid_symbol"
		return out
	}

	recs, parseWarnings, err := s.provider.Fetch(ctx, symbol)
	out.Warnings = append(out.Warnings, parseWarnings...)
	if err != nil {
		return s.failed(ctx, out, err)
	}
	out.Fetched = len(recs)

	valid, qualityWarnings, err := s.validator.Validate(recs)
	out.Warnings = append(out.Warnings, qualityWarnings...)
	if err != nil {
		// Low-quality batch: always surfaced, optionally fatal.
		out.Warnings = append(out.Warnings, domain.Warning{Symbol: symbol, Reason: FailureReason(err)})
		if s.abortOnQuality {
			return s.failed(ctx, out, err)
		}
	}

	var summary WriteSummary
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		var werr error
		summary, werr = s.prices.UpsertBatch(ctx, valid)
		return werr
	})
	if err != nil {
		return s.failed(ctx, out, err)
	}

	out.Inserted = summary.Inserted
	out.Updated = summary.Updated
	out.Unchanged = summary.Unchanged
	return out
}

func (s *IngestionService) failed(ctx context.Context, out domain.FetchOutcome, err error) domain.FetchOutcome {
	out.Status = domain.OutcomeFailed
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		out.Status = domain.OutcomeCancelled
	}
	out.Error = FailureReason(err)
	return out
}

// Run ingests the given symbols with bounded parallelism, records the run in
// the audit table, and returns the aggregate. One bad symbol never aborts the
// rest. idemKey, when present, deduplicates scheduler double-triggers.
func (s *IngestionService) Run(ctx context.Context, symbols []domain.Symbol, asOf time.Time, idemKey *string) (domain.RunSummary, error) {
	if len(symbols) == 0 {
		return domain.RunSummary{}, ErrBadRequest
	}
	if idemKey != nil && *idemKey != "" {
		ok, err := s.idem.TryReserve(ctx, "run:"+*idemKey)
		if err != nil {
			return domain.RunSummary{}, err
		}
		if !ok {
			return domain.RunSummary{}, ErrConflict
		}
	}

	runID := s.newID()
	started := s.clock.Now()
	_ = s.runs.Create(ctx, domain.RunRecord{
		ID:           runID,
		Status:       domain.RunStatusRunning,
		AsOf:         asOf,
		SymbolsTotal: len(symbols),
		StartedAt:    started,
	})

	outcomes := make([]domain.FetchOutcome, len(symbols))
	g := new(errgroup.Group)
	g.SetLimit(s.maxParallel)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			outcomes[i] = s.Ingest(ctx, sym)
			return nil
		})
	}
	_ = g.Wait()

	summary := domain.RunSummary{
		RunID:     runID,
		AsOf:      asOf,
		StartedAt: started,
		Finished:  s.clock.Now(),
		PerSymbol: outcomes,
	}

	record := domain.RunRecord{
		ID:              runID,
		Status:          domain.RunStatusCompleted,
		AsOf:            asOf,
		SymbolsTotal:    len(symbols),
		SymbolsFailed:   summary.Failed(),
		RecordsFetched:  summary.Fetched(),
		RecordsInserted: summary.Inserted(),
		RecordsUpdated:  summary.Updated(),
		StartedAt:       started,
		FinishedAt:      &summary.Finished,
	}
	if record.SymbolsFailed == len(symbols) {
		record.Status = domain.RunStatusFailed
		msg := firstError(outcomes)
		record.Error = &msg
	}
	_ = s.runs.Complete(ctx, record)

	return summary, nil
}

func (s *IngestionService) newID() string {
	if s.idgen != nil {
		return s.idgen.NewID()
	}
	return uuid.NewString()
}

func firstError(outcomes []domain.FetchOutcome) string {
	for _, o := range outcomes {
		if o.Error != "" {
			return o.Error
		}
	}
	return ""
}

func (s *IngestionService) GetRun(ctx context.Context, id string) (domain.RunRecord, error) {
	return s.runs.GetByID(ctx, id)
}

func (s *IngestionService) LatestPrice(ctx context.Context, symbol domain.Symbol) (domain.PriceRecord, error) {
	if !domain.ValidateSymbol(string(symbol)) {
		return domain.PriceRecord{}, ErrBadRequest
	}
	return s.prices.Latest(ctx, symbol)
}

func (s *IngestionService) PriceHistory(ctx context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceRecord, error) {
	if !domain.ValidateSymbol(string(symbol)) {
		return nil, ErrBadRequest
	}
	return s.prices.Range(ctx, symbol, from, to)
}

// SymbolCheck is one row of a day-level completeness report.
type SymbolCheck struct {
	Symbol     domain.Symbol `json:"symbol"`
	Rows       int           `json:"rows"`
	NullPrices int           `json:"null_prices"`
	LatestDay  string        `json:"latest_day,omitempty"`
}

// Verify reports per-symbol row presence and price completeness for a trading
// day, plus the latest stored day as a staleness watermark, so operators can
// spot symbols the last run left without data.
func (s *IngestionService) Verify(ctx context.Context, symbols []domain.Symbol, day time.Time) ([]SymbolCheck, error) {
	counts, err := s.prices.CountOnDay(ctx, day)
	if err != nil {
		return nil, err
	}
	checks := make([]SymbolCheck, 0, len(symbols))
	for _, sym := range symbols {
		check := SymbolCheck{Symbol: sym, Rows: counts[sym].Rows, NullPrices: counts[sym].NullPrices}
		switch latest, err := s.prices.LatestDay(ctx, sym); {
		case err == nil:
			check.LatestDay = latest.Format(domain.DayFormat)
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
		checks = append(checks, check)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Symbol < checks[j].Symbol })
	return checks, nil
}
