package provider

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
)

// The provider prefixes each field with an ordinal label. The table below is
// the only place that knows about this quirk; everything past the parser
// deals in plain records.
const (
	labelOpen   = "1. open"
	labelHigh   = "2. high"
	labelLow    = "3. low"
	labelClose  = "4. close"
	labelVolume = "5. volume"
)

// parseDaily converts the raw series into records sorted by day. Entries with
// a bad date or a missing/non-numeric field are dropped and reported as
// warnings; only a batch with zero usable entries fails.
func parseDaily(symbol domain.Symbol, series map[string]map[string]string) ([]domain.PriceRecord, []domain.Warning, error) {
	var (
		records  []domain.PriceRecord
		warnings []domain.Warning
	)
	for dayStr, fields := range series {
		day, err := time.ParseInLocation(domain.DayFormat, dayStr, time.UTC)
		if err != nil {
			warnings = append(warnings, domain.Warning{Symbol: symbol, Day: dayStr, Reason: "invalid date key"})
			continue
		}
		rec, reason := recordFromFields(symbol, day, fields)
		if reason != "" {
			warnings = append(warnings, domain.Warning{Symbol: symbol, Day: dayStr, Reason: reason})
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, warnings, application.ErrEmptyResult
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Day.Before(records[j].Day) })
	return records, warnings, nil
}

func recordFromFields(symbol domain.Symbol, day time.Time, fields map[string]string) (domain.PriceRecord, string) {
	open, reason := priceField(fields, labelOpen)
	if reason != "" {
		return domain.PriceRecord{}, reason
	}
	high, reason := priceField(fields, labelHigh)
	if reason != "" {
		return domain.PriceRecord{}, reason
	}
	low, reason := priceField(fields, labelLow)
	if reason != "" {
		return domain.PriceRecord{}, reason
	}
	closing, reason := priceField(fields, labelClose)
	if reason != "" {
		return domain.PriceRecord{}, reason
	}

	raw, ok := fields[labelVolume]
	if !ok {
		return domain.PriceRecord{}, fmt.Sprintf("missing field %q", labelVolume)
	}
	volume, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return domain.PriceRecord{}, fmt.Sprintf("field %q is not an integer", labelVolume)
	}

	return domain.PriceRecord{
		Symbol: symbol,
		Day:    day,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closing,
		Volume: volume,
	}, ""
}

func priceField(fields map[string]string, label string) (decimal.Decimal, string) {
	raw, ok := fields[label]
	if !ok {
		return decimal.Decimal{}, fmt.Sprintf("missing field %q", label)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Sprintf("field %q is not numeric", label)
	}
	return d, ""
}
