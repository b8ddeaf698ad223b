package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-etl/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	for range postgresDialect.migrations() {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupDimension_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT surrogate_key, business_key, location FROM dim_location WHERE business_key = \$1`).
		WithArgs("bk").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(w Warehouse) error {
		row, err := w.LookupDimension(context.Background(), model.Location, "bk")
		assert.Nil(t, row)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LookupDimension_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM dim_seller WHERE business_key`).
		WithArgs("bk").
		WillReturnRows(pgxmock.NewRows([]string{"surrogate_key", "business_key", "contact"}).
			AddRow(int64(7), "bk", "Anh Tuấn 0912"))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(w Warehouse) error {
		row, err := w.LookupDimension(context.Background(), model.Seller, "bk")
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, int64(7), row.SurrogateKey)
		assert.Equal(t, "Anh Tuấn 0912", row.Attributes[0])
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertDimension(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO dim_origin \(business_key, origin\) VALUES \(\$1, \$2\) ON CONFLICT \(business_key\) DO NOTHING RETURNING surrogate_key`).
		WithArgs("bk", "Lắp ráp trong nước").
		WillReturnRows(pgxmock.NewRows([]string{"surrogate_key"}).AddRow(int64(3)))
	mock.ExpectCommit()

	var key int64
	err := s.WithTx(context.Background(), func(w Warehouse) error {
		var err error
		key, err = w.InsertDimension(context.Background(), model.Origin, "bk", []any{"Lắp ráp trong nước"})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), key)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertDimension_Conflict(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"do nothing", pgx.ErrNoRows},
		{"unique violation", &pgconn.PgError{Code: "23505"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockPostgresStore(t)

			mock.ExpectBegin()
			mock.ExpectQuery(`INSERT INTO dim_origin`).
				WithArgs("bk", "Nhập khẩu").
				WillReturnError(tt.err)
			mock.ExpectRollback()

			err := s.WithTx(context.Background(), func(w Warehouse) error {
				_, err := w.InsertDimension(context.Background(), model.Origin, "bk", []any{"Nhập khẩu"})
				return err
			})
			assert.ErrorIs(t, err, ErrDuplicateKey)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_UpdateDimension_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE dim_body_style SET body_style = \$1, updated_at = now\(\) WHERE surrogate_key = \$2`).
		WithArgs("Sedan", int64(9)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := s.WithTx(context.Background(), func(w Warehouse) error {
		return w.UpdateDimension(context.Background(), model.BodyStyle, 9, []any{"Sedan"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body_style not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_InsertFact(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	fact := &model.FactRow{
		VehicleModelKey: 1, LocationKey: 2, SellerKey: 3, OriginKey: 4, ConditionKey: 5, BodyStyleKey: 6,
		ListingURL: "https://bonbanh.com/xe-1", RunID: "run-1",
	}
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO fact_listing \(vehicle_model_key, .*run_id\) VALUES \(\$1, .*\$12\)`).
		WithArgs(fact.Args()...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.WithTx(context.Background(), func(w Warehouse) error {
		return w.InsertFact(context.Background(), fact)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StageListings_Replace(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`TRUNCATE "stg_listing"`).WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"stg_listing"}, model.StagingColumns).WillReturnResult(1)
	mock.ExpectCommit()

	n, err := s.StageListings(context.Background(), []model.Listing{{URL: "https://bonbanh.com/a"}}, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_RunLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	started := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	run := &model.Run{ID: "run-1", Status: model.RunStatusRunning, StartedAt: started, RowsRead: 2}

	mock.ExpectExec(`INSERT INTO etl_runs`).
		WithArgs("run-1", "running", started, 2, 0, 0).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, s.StartRun(ctx, run))

	finished := started.Add(time.Minute)
	run.Status = model.RunStatusFailed
	run.FinishedAt = &finished
	run.Error = "store unreachable"
	mock.ExpectExec(`UPDATE etl_runs SET status = \$1`).
		WithArgs("failed", run.FinishedAt, 2, 0, 0, "store unreachable", "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, s.FinishRun(ctx, run))

	errText := "store unreachable"
	mock.ExpectQuery(`SELECT id, status, started_at, finished_at, .* FROM etl_runs ORDER BY started_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "status", "started_at", "finished_at", "rows_read", "rows_processed", "rows_skipped", "error"}).
			AddRow("run-1", "failed", started, &finished, 2, 0, 0, &errText))
	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunStatusFailed, runs[0].Status)
	assert.Equal(t, "store unreachable", runs[0].Error)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE etl_runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), &model.Run{ID: "missing", Status: model.RunStatusComplete})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
