package application

import (
	"fmt"

	"stockprices-service/internal/domain"
)

// Validator applies the per-record quality checks to a parsed batch.
// Records failing a check are excluded and reported as warnings; they never
// abort the batch by themselves. When the excluded fraction exceeds
// MaxRejectFraction the whole batch is flagged with ErrLowQuality so the
// caller can decide whether a suspect dataset should be persisted at all.
type Validator struct {
	// MaxRejectFraction is the tolerated share of rejected records, (0,1].
	// Zero means use the default of one half.
	MaxRejectFraction float64
}

const defaultMaxRejectFraction = 0.5

func (v Validator) Validate(recs []domain.PriceRecord) ([]domain.PriceRecord, []domain.Warning, error) {
	threshold := v.MaxRejectFraction
	if threshold <= 0 {
		threshold = defaultMaxRejectFraction
	}

	valid := make([]domain.PriceRecord, 0, len(recs))
	var warnings []domain.Warning
	for _, r := range recs {
		if reason := domain.CheckRecord(r); reason != "" {
			warnings = append(warnings, domain.Warning{
				Symbol: r.Symbol,
				Day:    r.DayString(),
				Reason: reason,
			})
			continue
		}
		valid = append(valid, r)
	}

	if len(recs) > 0 {
		rejected := len(recs) - len(valid)
		if frac := float64(rejected) / float64(len(recs)); frac > threshold {
			return valid, warnings, fmt.Errorf("%d of %d records rejected: %w", rejected, len(recs), ErrLowQuality)
		}
	}
	return valid, warnings, nil
}
