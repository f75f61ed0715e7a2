package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one trading day of OHLCV data for a symbol.
// The pair (Symbol, Day) is the idempotency key across the whole store.
type PriceRecord struct {
	Symbol    Symbol
	Day       time.Time // trading day at UTC midnight
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SameValues reports whether two records carry identical market data,
// ignoring audit timestamps.
func (r PriceRecord) SameValues(o PriceRecord) bool {
	return r.Open.Equal(o.Open) &&
		r.High.Equal(o.High) &&
		r.Low.Equal(o.Low) &&
		r.Close.Equal(o.Close) &&
		r.Volume == o.Volume
}

const DayFormat = "2006-01-02"

// DayString renders the trading day the way the provider and the store key it.
func (r PriceRecord) DayString() string { return r.Day.Format(DayFormat) }
