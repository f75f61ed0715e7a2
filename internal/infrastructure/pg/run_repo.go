package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
	"stockprices-service/internal/infrastructure/logx"
)

type RunRepo struct{ db *DB }

func NewRunRepo(db *DB) *RunRepo { return &RunRepo{db: db} }

var _ application.RunRepo = (*RunRepo)(nil)

func (r *RunRepo) Create(ctx context.Context, run domain.RunRecord) error {
	const ins = `
        INSERT INTO ingestion_runs(id, status, as_of, symbols_total, started_at)
        VALUES ($1, $2, $3, $4, $5)`
	log := logx.L().With(
		zap.String("repo", "run"),
		zap.String("operation", "Create"),
		zap.String("id", run.ID),
	)
	log.Info("sql.exec_start")
	_, err := r.db.q(ctx).Exec(ctx, ins, run.ID, run.Status, run.AsOf, run.SymbolsTotal, run.StartedAt)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	return nil
}

func (r *RunRepo) Complete(ctx context.Context, run domain.RunRecord) error {
	const up = `
        UPDATE ingestion_runs
        SET status=$2,
            symbols_failed=$3,
            records_fetched=$4,
            records_inserted=$5,
            records_updated=$6,
            error=$7,
            finished_at=$8
        WHERE id=$1`
	log := logx.L().With(
		zap.String("repo", "run"),
		zap.String("operation", "Complete"),
		zap.String("id", run.ID),
		zap.String("status", string(run.Status)),
	)
	tag, err := r.db.q(ctx).Exec(ctx, up,
		run.ID, run.Status, run.SymbolsFailed,
		run.RecordsFetched, run.RecordsInserted, run.RecordsUpdated,
		run.Error, run.FinishedAt,
	)
	if err != nil {
		log.Error("sql.exec_failed", zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Warn("sql.exec_no_rows")
		return application.ErrNotFound
	}
	return nil
}

func (r *RunRepo) GetByID(ctx context.Context, id string) (domain.RunRecord, error) {
	const q = `
        SELECT id::text, status, as_of, symbols_total, symbols_failed,
               records_fetched, records_inserted, records_updated,
               error, started_at, finished_at
        FROM ingestion_runs WHERE id=$1`
	var (
		out    domain.RunRecord
		status string
	)
	err := r.db.q(ctx).QueryRow(ctx, q, id).Scan(
		&out.ID, &status, &out.AsOf, &out.SymbolsTotal, &out.SymbolsFailed,
		&out.RecordsFetched, &out.RecordsInserted, &out.RecordsUpdated,
		&out.Error, &out.StartedAt, &out.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RunRecord{}, application.ErrNotFound
	}
	if err != nil {
		return domain.RunRecord{}, err
	}
	out.AsOf = out.AsOf.UTC()
	switch status {
	case "running":
		out.Status = domain.RunStatusRunning
	case "completed":
		out.Status = domain.RunStatusCompleted
	default:
		out.Status = domain.RunStatusFailed
	}
	return out, nil
}
