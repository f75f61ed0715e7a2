package application

import (
	"testing"

	"github.com/stretchr/testify/require"

	"stockprices-service/internal/domain"
)

func Test_Validator_ExcludesBadRecords(t *testing.T) {
	t.Parallel()
	recs := []domain.PriceRecord{
		bar("AAPL", "2024-01-15", 185.14),
		badBar("AAPL", "2024-01-12"),
		bar("AAPL", "2024-01-11", 184.50),
	}

	valid, warnings, err := Validator{}.Validate(recs)
	require.NoError(t, err)
	require.Len(t, valid, 2)
	require.Len(t, warnings, 1)
	require.Equal(t, domain.Symbol("AAPL"), warnings[0].Symbol)
	require.Equal(t, "2024-01-12", warnings[0].Day)
	require.Equal(t, "high below low", warnings[0].Reason)
}

func Test_Validator_LowQualityThreshold(t *testing.T) {
	t.Parallel()
	recs := []domain.PriceRecord{
		bar("AAPL", "2024-01-15", 185.14),
		badBar("AAPL", "2024-01-12"),
		badBar("AAPL", "2024-01-11"),
	}

	valid, warnings, err := Validator{MaxRejectFraction: 0.5}.Validate(recs)
	require.ErrorIs(t, err, ErrLowQuality)
	require.Len(t, valid, 1)
	require.Len(t, warnings, 2)
}

func Test_Validator_EmptyBatch(t *testing.T) {
	t.Parallel()
	valid, warnings, err := Validator{}.Validate(nil)
	require.NoError(t, err)
	require.Empty(t, valid)
	require.Empty(t, warnings)
}
