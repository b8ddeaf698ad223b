package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/sells-group/listing-etl/internal/model"
)

// SQLStore implements Store on database/sql for the SQLite and MySQL
// warehouses.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLStore{db: db, d: sqliteDialect}, nil
}

// NewMySQL opens a MySQL warehouse. The DSN must set parseTime=true.
func NewMySQL(ctx context.Context, dsn string, poolCfg *PoolConfig) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "mysql: open")
	}

	maxConns := 10
	if poolCfg != nil && poolCfg.MaxConns > 0 {
		maxConns = int(poolCfg.MaxConns)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "mysql: ping")
	}
	return &SQLStore{db: db, d: mysqlDialect}, nil
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "%s: migrate", s.d.name)
		}
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) WithTx(ctx context.Context, fn func(w Warehouse) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "%s: begin tx", s.d.name)
	}
	if err := fn(&sqlWarehouse{tx: tx, d: s.d}); err != nil {
		tx.Rollback() //nolint:errcheck
		return err
	}
	return eris.Wrapf(tx.Commit(), "%s: commit tx", s.d.name)
}

func (s *SQLStore) StageListings(ctx context.Context, listings []model.Listing, replace bool) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: stage: begin tx", s.d.name)
	}
	defer tx.Rollback() //nolint:errcheck

	if replace {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+stagingTable); err != nil {
			return 0, eris.Wrapf(err, "%s: stage: clear %s", s.d.name, stagingTable)
		}
	}

	stmt, err := tx.PrepareContext(ctx, s.d.stageSQL())
	if err != nil {
		return 0, eris.Wrapf(err, "%s: stage: prepare", s.d.name)
	}
	defer stmt.Close() //nolint:errcheck

	for i := range listings {
		if _, err := stmt.ExecContext(ctx, bindDates(listings[i].StagingRow())...); err != nil {
			return 0, eris.Wrapf(err, "%s: stage %s", s.d.name, listings[i].URL)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "%s: stage: commit tx", s.d.name)
	}
	return int64(len(listings)), nil
}

func (s *SQLStore) StartRun(ctx context.Context, run *model.Run) error {
	_, err := s.db.ExecContext(ctx, s.d.startRunSQL(),
		run.ID, string(run.Status), run.StartedAt.UTC(), run.RowsRead, run.RowsProcessed, run.RowsSkipped,
	)
	return eris.Wrapf(err, "%s: insert run %s", s.d.name, run.ID)
}

func (s *SQLStore) FinishRun(ctx context.Context, run *model.Run) error {
	var finished any
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx, s.d.finishRunSQL(),
		string(run.Status), finished, run.RowsRead, run.RowsProcessed, run.RowsSkipped, nullString(run.Error), run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "%s: finish run %s", s.d.name, run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = defaultRunLimit
	}
	rows, err := s.db.QueryContext(ctx, s.d.listRunsSQL(), limit)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: list runs", s.d.name)
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrapf(rows.Err(), "%s: iterate runs", s.d.name)
}

type sqlWarehouse struct {
	tx *sql.Tx
	d  dialect
}

func (w *sqlWarehouse) LookupDimension(ctx context.Context, dim *model.Dimension, businessKey string) (*model.DimensionRow, error) {
	row := &model.DimensionRow{Attributes: make([]any, len(dim.Columns))}
	dest := []any{&row.SurrogateKey, &row.BusinessKey}
	for i := range row.Attributes {
		dest = append(dest, &row.Attributes[i])
	}

	err := w.tx.QueryRowContext(ctx, w.d.lookupSQL(dim), businessKey).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s: lookup %s", w.d.name, dim.Table)
	}
	return row, nil
}

func (w *sqlWarehouse) InsertDimension(ctx context.Context, dim *model.Dimension, businessKey string, attrs []any) (int64, error) {
	args := append([]any{businessKey}, attrs...)
	res, err := w.tx.ExecContext(ctx, w.d.insertDimensionSQL(dim), args...)
	if err != nil {
		return 0, eris.Wrapf(err, "%s: insert %s", w.d.name, dim.Table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return 0, ErrDuplicateKey
	}
	id, err := res.LastInsertId()
	return id, eris.Wrapf(err, "%s: insert %s: last insert id", w.d.name, dim.Table)
}

func (w *sqlWarehouse) UpdateDimension(ctx context.Context, dim *model.Dimension, surrogateKey int64, attrs []any) error {
	args := append(append([]any{}, attrs...), surrogateKey)
	res, err := w.tx.ExecContext(ctx, w.d.updateDimensionSQL(dim), args...)
	if err != nil {
		return eris.Wrapf(err, "%s: update %s", w.d.name, dim.Table)
	}
	return checkRowsAffected(res, dim.Name, surrogateKey)
}

func (w *sqlWarehouse) InsertFact(ctx context.Context, fact *model.FactRow) error {
	_, err := w.tx.ExecContext(ctx, w.d.insertFactSQL(), bindDates(fact.Args())...)
	return eris.Wrapf(err, "%s: insert fact %s", w.d.name, fact.ListingURL)
}

// helpers

const defaultRunLimit = 20

// bindDates renders date arguments as ISO dates, the form both SQL dialects
// store in their posting_date columns.
func bindDates(args []any) []any {
	for i, a := range args {
		if t, ok := a.(time.Time); ok {
			args[i] = t.Format(time.DateOnly)
		}
	}
	return args
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func checkRowsAffected(res sql.Result, entity string, id any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %v", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var finished sql.NullTime
	var errText sql.NullString

	err := row.Scan(&r.ID, &status, &r.StartedAt, &finished, &r.RowsRead, &r.RowsProcessed, &r.RowsSkipped, &errText)
	if err != nil {
		return nil, eris.Wrap(err, "scan run")
	}
	r.Status = model.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	r.Error = errText.String
	return &r, nil
}
