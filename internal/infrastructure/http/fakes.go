package httpserver

import (
	"context"
	"sync"
	"time"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
)

var _ application.PriceRepo = (*fakePriceRepo)(nil)
var _ application.RunRepo = (*fakeRunRepo)(nil)
var _ application.MarketDataProvider = (*fakeProvider)(nil)

type fakePriceRepo struct {
	mu    sync.Mutex
	store map[string]domain.PriceRecord
}

func priceKey(sym domain.Symbol, day time.Time) string {
	return string(sym) + "|" + day.Format(domain.DayFormat)
}

func (f *fakePriceRepo) UpsertBatch(_ context.Context, recs []domain.PriceRecord) (application.WriteSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.store == nil {
		f.store = map[string]domain.PriceRecord{}
	}
	var out application.WriteSummary
	now := time.Now().UTC()
	for _, rec := range recs {
		key := priceKey(rec.Symbol, rec.Day)
		prev, ok := f.store[key]
		switch {
		case !ok:
			rec.CreatedAt, rec.UpdatedAt = now, now
			f.store[key] = rec
			out.Inserted++
		case prev.SameValues(rec):
			out.Unchanged++
		default:
			rec.CreatedAt, rec.UpdatedAt = prev.CreatedAt, now
			f.store[key] = rec
			out.Updated++
		}
	}
	return out, nil
}

func (f *fakePriceRepo) Latest(_ context.Context, symbol domain.Symbol) (domain.PriceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		best  domain.PriceRecord
		found bool
	)
	for _, rec := range f.store {
		if rec.Symbol == symbol && (!found || rec.Day.After(best.Day)) {
			best, found = rec, true
		}
	}
	if !found {
		return domain.PriceRecord{}, application.ErrNotFound
	}
	return best, nil
}

func (f *fakePriceRepo) Range(_ context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.PriceRecord
	for _, rec := range f.store {
		if rec.Symbol == symbol && !rec.Day.Before(from) && !rec.Day.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakePriceRepo) LatestDay(ctx context.Context, symbol domain.Symbol) (time.Time, error) {
	rec, err := f.Latest(ctx, symbol)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Day, nil
}

func (f *fakePriceRepo) CountOnDay(_ context.Context, day time.Time) (map[domain.Symbol]application.DayCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.Symbol]application.DayCount{}
	for _, rec := range f.store {
		if rec.Day.Equal(day) {
			c := out[rec.Symbol]
			c.Rows++
			out[rec.Symbol] = c
		}
	}
	return out, nil
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs map[string]domain.RunRecord
}

func (f *fakeRunRepo) Create(_ context.Context, run domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = map[string]domain.RunRecord{}
	}
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRunRepo) Complete(_ context.Context, run domain.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		return application.ErrNotFound
	}
	if _, ok := f.runs[run.ID]; !ok {
		return application.ErrNotFound
	}
	f.runs[run.ID] = run
	return nil
}

func (f *fakeRunRepo) GetByID(_ context.Context, id string) (domain.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return domain.RunRecord{}, application.ErrNotFound
	}
	return run, nil
}

type fakeProvider struct {
	records map[domain.Symbol][]domain.PriceRecord
	errs    map[domain.Symbol]error
}

func (f *fakeProvider) Fetch(_ context.Context, symbol domain.Symbol) ([]domain.PriceRecord, []domain.Warning, error) {
	if err := f.errs[symbol]; err != nil {
		return nil, nil, err
	}
	return f.records[symbol], nil, nil
}

// NewInMemoryService wires an IngestionService onto in-memory fakes for
// handler tests.
func NewInMemoryService(provider application.MarketDataProvider) (*application.IngestionService, *fakePriceRepo, *fakeRunRepo) {
	pr := &fakePriceRepo{store: map[string]domain.PriceRecord{}}
	rr := &fakeRunRepo{runs: map[string]domain.RunRecord{}}
	if provider == nil {
		provider = &fakeProvider{}
	}
	svc := application.NewIngestionService(pr, rr, provider, application.NoopUoW{}, application.NoopIdempotency{})
	return svc, pr, rr
}
