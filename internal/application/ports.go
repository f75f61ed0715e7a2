package application

import (
	"context"
	"time"

	"stockprices-service/internal/domain"
)

// WriteSummary reports how a persisted batch landed: fresh rows, corrected
// rows, and rows whose stored values already matched.
type WriteSummary struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// DayCount is a per-symbol tally for one trading day: stored rows plus rows
// with at least one NULL price column.
type DayCount struct {
	Rows       int
	NullPrices int
}

type PriceRepo interface {
	// UpsertBatch persists records keyed on (symbol, day). It must run inside
	// the transaction carried by ctx when one is present.
	UpsertBatch(ctx context.Context, recs []domain.PriceRecord) (WriteSummary, error)
	Latest(ctx context.Context, symbol domain.Symbol) (domain.PriceRecord, error)
	Range(ctx context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceRecord, error)
	LatestDay(ctx context.Context, symbol domain.Symbol) (time.Time, error)
	CountOnDay(ctx context.Context, day time.Time) (map[domain.Symbol]DayCount, error)
}

type RunRepo interface {
	Create(ctx context.Context, run domain.RunRecord) error
	Complete(ctx context.Context, run domain.RunRecord) error
	GetByID(ctx context.Context, id string) (domain.RunRecord, error)
}

// MarketDataProvider fetches the daily series for one symbol. Implementations
// retry transient faults internally and return parse warnings for entries
// they had to drop. Must be safe for concurrent use across symbols.
type MarketDataProvider interface {
	Fetch(ctx context.Context, symbol domain.Symbol) ([]domain.PriceRecord, []domain.Warning, error)
}
