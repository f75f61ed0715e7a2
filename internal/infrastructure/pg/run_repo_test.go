package pg_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
	"stockprices-service/internal/infrastructure/pg"
)

func TestRunLifecycle(t *testing.T) {
	t.Parallel()
	db, teardown := withPostgres(t)
	defer teardown()

	ctx := context.Background()
	repo := pg.NewRunRepo(db)

	id := uuid.NewString()
	started := time.Now().UTC().Truncate(time.Microsecond)
	asOf := mustDay(t, "2024-01-15")

	require.NoError(t, repo.Create(ctx, domain.RunRecord{
		ID:           id,
		Status:       domain.RunStatusRunning,
		AsOf:         asOf,
		SymbolsTotal: 5,
		StartedAt:    started,
	}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusRunning, got.Status)
	require.Equal(t, 5, got.SymbolsTotal)
	require.Nil(t, got.FinishedAt)

	finished := started.Add(3 * time.Second)
	require.NoError(t, repo.Complete(ctx, domain.RunRecord{
		ID:              id,
		Status:          domain.RunStatusCompleted,
		SymbolsFailed:   1,
		RecordsFetched:  500,
		RecordsInserted: 480,
		RecordsUpdated:  15,
		FinishedAt:      &finished,
	}))

	got, err = repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.RunStatusCompleted, got.Status)
	require.Equal(t, 1, got.SymbolsFailed)
	require.Equal(t, 480, got.RecordsInserted)
	require.NotNil(t, got.FinishedAt)
	require.Equal(t, "2024-01-15", got.AsOf.Format(domain.DayFormat))
}

func TestCompleteUnknownRun(t *testing.T) {
	t.Parallel()
	db, teardown := withPostgres(t)
	defer teardown()

	err := pg.NewRunRepo(db).Complete(context.Background(), domain.RunRecord{
		ID:     uuid.NewString(),
		Status: domain.RunStatusFailed,
	})
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestGetUnknownRun(t *testing.T) {
	t.Parallel()
	db, teardown := withPostgres(t)
	defer teardown()

	_, err := pg.NewRunRepo(db).GetByID(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, application.ErrNotFound)
}
