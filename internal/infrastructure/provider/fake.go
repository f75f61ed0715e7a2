package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
)

// Ensure Fake implements application.MarketDataProvider.
var _ application.MarketDataProvider = (*Fake)(nil)

// Fake returns one synthetic bar per symbol for yesterday; handy for local
// runs without an API key.
type Fake struct {
	close decimal.Decimal
}

func NewFake(closePrice float64) *Fake {
	return &Fake{close: decimal.NewFromFloat(closePrice)}
}

func (f *Fake) Fetch(_ context.Context, symbol domain.Symbol) ([]domain.PriceRecord, []domain.Warning, error) {
	day := time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour)
	spread := decimal.NewFromFloat(0.5)
	rec := domain.PriceRecord{
		Symbol: symbol,
		Day:    day,
		Open:   f.close.Sub(spread),
		High:   f.close.Add(spread),
		Low:    f.close.Sub(spread.Mul(decimal.NewFromInt(2))),
		Close:  f.close,
		Volume: 1_000_000,
	}
	return []domain.PriceRecord{rec}, nil, nil
}
