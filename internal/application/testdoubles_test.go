package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockprices-service/internal/domain"
)

type memPriceRepo struct {
	mu      sync.Mutex
	store   map[string]domain.PriceRecord
	failAll bool
}

func memKey(sym domain.Symbol, day time.Time) string {
	return string(sym) + "|" + day.Format(domain.DayFormat)
}

func (m *memPriceRepo) UpsertBatch(_ context.Context, recs []domain.PriceRecord) (WriteSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return WriteSummary{}, ErrStorage
	}
	if m.store == nil {
		m.store = map[string]domain.PriceRecord{}
	}
	var out WriteSummary
	for _, rec := range recs {
		key := memKey(rec.Symbol, rec.Day)
		prev, ok := m.store[key]
		switch {
		case !ok:
			m.store[key] = rec
			out.Inserted++
		case prev.SameValues(rec):
			out.Unchanged++
		default:
			m.store[key] = rec
			out.Updated++
		}
	}
	return out, nil
}

func (m *memPriceRepo) Latest(_ context.Context, symbol domain.Symbol) (domain.PriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		best  domain.PriceRecord
		found bool
	)
	for _, rec := range m.store {
		if rec.Symbol == symbol && (!found || rec.Day.After(best.Day)) {
			best, found = rec, true
		}
	}
	if !found {
		return domain.PriceRecord{}, ErrNotFound
	}
	return best, nil
}

func (m *memPriceRepo) Range(_ context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PriceRecord
	for _, rec := range m.store {
		if rec.Symbol == symbol && !rec.Day.Before(from) && !rec.Day.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memPriceRepo) LatestDay(ctx context.Context, symbol domain.Symbol) (time.Time, error) {
	rec, err := m.Latest(ctx, symbol)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Day, nil
}

func (m *memPriceRepo) CountOnDay(_ context.Context, day time.Time) (map[domain.Symbol]DayCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[domain.Symbol]DayCount{}
	for _, rec := range m.store {
		if rec.Day.Equal(day) {
			c := out[rec.Symbol]
			c.Rows++
			out[rec.Symbol] = c
		}
	}
	return out, nil
}

type memRunRepo struct {
	mu   sync.Mutex
	runs map[string]domain.RunRecord
}

func (m *memRunRepo) Create(_ context.Context, run domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = map[string]domain.RunRecord{}
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memRunRepo) Complete(_ context.Context, run domain.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return ErrNotFound
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memRunRepo) GetByID(_ context.Context, id string) (domain.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return domain.RunRecord{}, ErrNotFound
	}
	return run, nil
}

type stubProvider struct {
	mu      sync.Mutex
	records map[domain.Symbol][]domain.PriceRecord
	errs    map[domain.Symbol]error
	calls   map[domain.Symbol]int
}

func (s *stubProvider) Fetch(_ context.Context, symbol domain.Symbol) ([]domain.PriceRecord, []domain.Warning, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = map[domain.Symbol]int{}
	}
	s.calls[symbol]++
	s.mu.Unlock()
	if err := s.errs[symbol]; err != nil {
		return nil, nil, err
	}
	return s.records[symbol], nil, nil
}

type memIdem struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memIdem) TryReserve(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

type seqIDGen struct{ next int }

func (g *seqIDGen) NewID() string {
	g.next++
	return fmt.Sprintf("run-%d", g.next)
}
