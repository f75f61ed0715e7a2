package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stockprices-service/internal/application"
	"stockprices-service/internal/domain"
	"stockprices-service/internal/infrastructure/logx"
)

type PriceRepo struct{ db *DB }

func NewPriceRepo(db *DB) *PriceRepo { return &PriceRepo{db: db} }

var _ application.PriceRepo = (*PriceRepo)(nil)

// The DO UPDATE ... WHERE guard turns a same-values conflict into a no-op
// (no row returned), so inserted/updated/unchanged are counted by the
// database itself and stay correct under concurrent writers. xmax = 0 only
// holds for freshly inserted rows.
const upsertSQL = `
    INSERT INTO stock_prices (symbol, ts, open, high, low, close, volume)
    VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, $7)
    ON CONFLICT (symbol, ts) DO UPDATE SET
        open = EXCLUDED.open,
        high = EXCLUDED.high,
        low = EXCLUDED.low,
        close = EXCLUDED.close,
        volume = EXCLUDED.volume,
        updated_at = NOW()
    WHERE (stock_prices.open, stock_prices.high, stock_prices.low, stock_prices.close, stock_prices.volume)
          IS DISTINCT FROM (EXCLUDED.open, EXCLUDED.high, EXCLUDED.low, EXCLUDED.close, EXCLUDED.volume)
    RETURNING (xmax = 0) AS inserted`

func (r *PriceRepo) UpsertBatch(ctx context.Context, recs []domain.PriceRecord) (application.WriteSummary, error) {
	var out application.WriteSummary
	if len(recs) == 0 {
		return out, nil
	}

	log := logx.L().With(
		zap.String("repo", "price"),
		zap.String("operation", "UpsertBatch"),
		zap.String("symbol", string(recs[0].Symbol)),
		zap.Int("records", len(recs)),
	)

	b := &pgx.Batch{}
	for _, rec := range recs {
		b.Queue(upsertSQL,
			rec.Symbol,
			rec.Day,
			rec.Open.String(),
			rec.High.String(),
			rec.Low.String(),
			rec.Close.String(),
			rec.Volume,
		)
	}
	br := r.db.q(ctx).SendBatch(ctx, b)
	for i := 0; i < len(recs); i++ {
		var inserted bool
		err := br.QueryRow().Scan(&inserted)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			out.Unchanged++
		case err != nil:
			_ = br.Close()
			log.Error("sql.batch_failed", zap.Error(err))
			return application.WriteSummary{}, fmt.Errorf("upsert batch of %d records: %v: %w", len(recs), err, application.ErrStorage)
		case inserted:
			out.Inserted++
		default:
			out.Updated++
		}
	}
	if err := br.Close(); err != nil {
		log.Error("sql.batch_close_failed", zap.Error(err))
		return application.WriteSummary{}, fmt.Errorf("upsert batch of %d records: %v: %w", len(recs), err, application.ErrStorage)
	}
	log.Info("sql.batch_success",
		zap.Int("inserted", out.Inserted),
		zap.Int("updated", out.Updated),
		zap.Int("unchanged", out.Unchanged),
	)
	return out, nil
}

const selectColumns = `symbol, ts, open::text, high::text, low::text, close::text, volume, created_at, updated_at`

func (r *PriceRepo) Latest(ctx context.Context, symbol domain.Symbol) (domain.PriceRecord, error) {
	q := `SELECT ` + selectColumns + ` FROM stock_prices WHERE symbol=$1 ORDER BY ts DESC LIMIT 1`
	rec, err := scanRecord(r.db.q(ctx).QueryRow(ctx, q, symbol))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PriceRecord{}, application.ErrNotFound
	}
	return rec, err
}

func (r *PriceRepo) Range(ctx context.Context, symbol domain.Symbol, from, to time.Time) ([]domain.PriceRecord, error) {
	q := `SELECT ` + selectColumns + ` FROM stock_prices WHERE symbol=$1 AND ts BETWEEN $2 AND $3 ORDER BY ts`
	rows, err := r.db.q(ctx).Query(ctx, q, symbol, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.PriceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PriceRepo) LatestDay(ctx context.Context, symbol domain.Symbol) (time.Time, error) {
	const q = `SELECT MAX(ts) FROM stock_prices WHERE symbol=$1`
	var day *time.Time
	if err := r.db.q(ctx).QueryRow(ctx, q, symbol).Scan(&day); err != nil {
		return time.Time{}, err
	}
	if day == nil {
		return time.Time{}, application.ErrNotFound
	}
	return day.UTC(), nil
}

func (r *PriceRepo) CountOnDay(ctx context.Context, day time.Time) (map[domain.Symbol]application.DayCount, error) {
	const q = `
        SELECT symbol,
               COUNT(*),
               COUNT(*) FILTER (WHERE open IS NULL OR high IS NULL OR low IS NULL OR close IS NULL)
        FROM stock_prices WHERE ts = $1 GROUP BY symbol`
	rows, err := r.db.q(ctx).Query(ctx, q, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[domain.Symbol]application.DayCount{}
	for rows.Next() {
		var sym string
		var c application.DayCount
		if err := rows.Scan(&sym, &c.Rows, &c.NullPrices); err != nil {
			return nil, err
		}
		out[domain.Symbol(sym)] = c
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (domain.PriceRecord, error) {
	var (
		rec                       domain.PriceRecord
		sym                       string
		open, high, low, closeTxt string
	)
	err := row.Scan(&sym, &rec.Day, &open, &high, &low, &closeTxt, &rec.Volume, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return domain.PriceRecord{}, err
	}
	rec.Symbol = domain.Symbol(sym)
	rec.Day = rec.Day.UTC()
	if rec.Open, err = decimal.NewFromString(open); err != nil {
		return domain.PriceRecord{}, err
	}
	if rec.High, err = decimal.NewFromString(high); err != nil {
		return domain.PriceRecord{}, err
	}
	if rec.Low, err = decimal.NewFromString(low); err != nil {
		return domain.PriceRecord{}, err
	}
	if rec.Close, err = decimal.NewFromString(closeTxt); err != nil {
		return domain.PriceRecord{}, err
	}
	return rec, nil
}
