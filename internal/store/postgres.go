package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-etl/internal/db"
	"github.com/sells-group/listing-etl/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresDialect.migrations() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(w Warehouse) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&pgWarehouse{q: tx}); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

// StageListings loads listings into the staging table: a full replace uses
// TRUNCATE + COPY, otherwise rows are upserted by listing URL.
func (s *PostgresStore) StageListings(ctx context.Context, listings []model.Listing, replace bool) (int64, error) {
	rows := make([][]any, len(listings))
	for i := range listings {
		rows[i] = listings[i].StagingRow()
	}

	if replace {
		n, err := db.ReplaceTable(ctx, s.pool, stagingTable, model.StagingColumns, rows)
		return n, eris.Wrap(err, "postgres: stage")
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        stagingTable,
		Columns:      model.StagingColumns,
		ConflictKeys: []string{"listing_url"},
	}, rows)
	return n, eris.Wrap(err, "postgres: stage")
}

func (s *PostgresStore) StartRun(ctx context.Context, run *model.Run) error {
	_, err := s.pool.Exec(ctx, postgresDialect.startRunSQL(),
		run.ID, string(run.Status), run.StartedAt, run.RowsRead, run.RowsProcessed, run.RowsSkipped,
	)
	return eris.Wrapf(err, "postgres: insert run %s", run.ID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, run *model.Run) error {
	tag, err := s.pool.Exec(ctx, postgresDialect.finishRunSQL(),
		string(run.Status), run.FinishedAt, run.RowsRead, run.RowsProcessed, run.RowsSkipped, nullString(run.Error), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.pool.Query(ctx, postgresDialect.listRunsSQL(), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var status string
		var errText *string
		if err := rows.Scan(&r.ID, &status, &r.StartedAt, &r.FinishedAt, &r.RowsRead, &r.RowsProcessed, &r.RowsSkipped, &errText); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Status = model.RunStatus(status)
		if errText != nil {
			r.Error = *errText
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

type pgWarehouse struct {
	q db.Querier
}

func (w *pgWarehouse) LookupDimension(ctx context.Context, dim *model.Dimension, businessKey string) (*model.DimensionRow, error) {
	row := &model.DimensionRow{Attributes: make([]any, len(dim.Columns))}
	dest := []any{&row.SurrogateKey, &row.BusinessKey}
	for i := range row.Attributes {
		dest = append(dest, &row.Attributes[i])
	}

	err := w.q.QueryRow(ctx, postgresDialect.lookupSQL(dim), businessKey).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: lookup %s", dim.Table)
	}
	return row, nil
}

func (w *pgWarehouse) InsertDimension(ctx context.Context, dim *model.Dimension, businessKey string, attrs []any) (int64, error) {
	args := append([]any{businessKey}, attrs...)
	var key int64
	err := w.q.QueryRow(ctx, postgresDialect.insertDimensionSQL(dim), args...).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrDuplicateKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return 0, ErrDuplicateKey
	}
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: insert %s", dim.Table)
	}
	return key, nil
}

func (w *pgWarehouse) UpdateDimension(ctx context.Context, dim *model.Dimension, surrogateKey int64, attrs []any) error {
	args := append(append([]any{}, attrs...), surrogateKey)
	tag, err := w.q.Exec(ctx, postgresDialect.updateDimensionSQL(dim), args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update %s", dim.Table)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("%s not found: %d", dim.Name, surrogateKey)
	}
	return nil
}

func (w *pgWarehouse) InsertFact(ctx context.Context, fact *model.FactRow) error {
	_, err := w.q.Exec(ctx, postgresDialect.insertFactSQL(), fact.Args()...)
	return eris.Wrapf(err, "postgres: insert fact %s", fact.ListingURL)
}
