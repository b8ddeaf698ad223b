package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-etl/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "warehouse.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func ptr[T any](v T) *T { return &v }

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_DimensionLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var key int64
	err := st.WithTx(ctx, func(w Warehouse) error {
		row, err := w.LookupDimension(ctx, model.Location, "bk-hanoi")
		require.NoError(t, err)
		assert.Nil(t, row)

		key, err = w.InsertDimension(ctx, model.Location, "bk-hanoi", []any{"Hà Nội"})
		return err
	})
	require.NoError(t, err)
	assert.Positive(t, key)

	err = st.WithTx(ctx, func(w Warehouse) error {
		_, err := w.InsertDimension(ctx, model.Location, "bk-hanoi", []any{"Hà Nội"})
		assert.ErrorIs(t, err, ErrDuplicateKey)

		require.NoError(t, w.UpdateDimension(ctx, model.Location, key, []any{"TP HCM"}))

		row, err := w.LookupDimension(ctx, model.Location, "bk-hanoi")
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, key, row.SurrogateKey)
		assert.Equal(t, "bk-hanoi", row.BusinessKey)
		assert.Equal(t, []any{"TP HCM"}, row.Attributes)
		return nil
	})
	require.NoError(t, err)
}

func TestSQLite_UpdateMissingMember(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.WithTx(ctx, func(w Warehouse) error {
		return w.UpdateDimension(ctx, model.Seller, 999, []any{"0901 234 567"})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seller not found")
}

func TestSQLite_IntAttributes(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	attrs := []any{"Toyota Vios 1.5G", "Xe cũ 2019", int64(2019), "Xăng 1.5 L", "Trắng", "Be", int64(5), nil}
	err := st.WithTx(ctx, func(w Warehouse) error {
		key, err := w.InsertDimension(ctx, model.VehicleModel, "bk-vios", attrs)
		require.NoError(t, err)

		row, err := w.LookupDimension(ctx, model.VehicleModel, "bk-vios")
		require.NoError(t, err)
		require.NotNil(t, row)
		assert.Equal(t, key, row.SurrogateKey)
		assert.Equal(t, int64(2019), row.Attributes[2])
		assert.Nil(t, row.Attributes[7])
		return nil
	})
	require.NoError(t, err)
}

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	boom := assert.AnError
	err := st.WithTx(ctx, func(w Warehouse) error {
		_, err := w.InsertDimension(ctx, model.Origin, "bk-jp", []any{"Nhập khẩu"})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = st.WithTx(ctx, func(w Warehouse) error {
		row, err := w.LookupDimension(ctx, model.Origin, "bk-jp")
		require.NoError(t, err)
		assert.Nil(t, row)
		return nil
	})
	require.NoError(t, err)
}

func TestSQLite_InsertFact(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	posted := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	err := st.WithTx(ctx, func(w Warehouse) error {
		keys := make([]int64, 0, 6)
		for _, dim := range model.Dimensions() {
			attrs := make([]any, len(dim.Columns))
			for i := range attrs {
				attrs[i] = "x"
			}
			k, err := w.InsertDimension(ctx, dim, "bk", attrs)
			require.NoError(t, err)
			keys = append(keys, k)
		}
		return w.InsertFact(ctx, &model.FactRow{
			VehicleModelKey: keys[0], LocationKey: keys[1], SellerKey: keys[2],
			OriginKey: keys[3], ConditionKey: keys[4], BodyStyleKey: keys[5],
			Price:      ptr(int64(4350000000)),
			PostedOn:   &posted,
			ListingURL: "https://bonbanh.com/xe-1",
			RunID:      "run-1",
		})
	})
	require.NoError(t, err)

	var (
		price   int64
		mileage *int64
		date    string
	)
	row := st.db.QueryRowContext(ctx, "SELECT price, mileage, posting_date FROM fact_listing WHERE listing_url = ?", "https://bonbanh.com/xe-1")
	require.NoError(t, row.Scan(&price, &mileage, &date))
	assert.Equal(t, int64(4350000000), price)
	assert.Nil(t, mileage)
	assert.Equal(t, "2024-03-05", date)
}

func TestSQLite_StageListings(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	listings := []model.Listing{
		{URL: "https://bonbanh.com/a", Name: "Kia Morning", Price: ptr(int64(250000000))},
		{URL: "https://bonbanh.com/b", Name: "Mazda 3"},
	}
	n, err := st.StageListings(ctx, listings, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// upsert overwrites by URL
	listings[0].Name = "Kia Morning Si"
	_, err = st.StageListings(ctx, listings[:1], false)
	require.NoError(t, err)

	var name string
	require.NoError(t, st.db.QueryRowContext(ctx, "SELECT name FROM stg_listing WHERE listing_url = ?", "https://bonbanh.com/a").Scan(&name))
	assert.Equal(t, "Kia Morning Si", name)
	assert.Equal(t, 2, countRows(t, st, "stg_listing"))

	// replace drops rows missing from the new batch
	_, err = st.StageListings(ctx, listings[1:], true)
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, st, "stg_listing"))
}

func TestSQLite_RunLog(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	first := &model.Run{ID: "run-1", Status: model.RunStatusRunning, StartedAt: started, RowsRead: 3}
	require.NoError(t, st.StartRun(ctx, first))

	second := &model.Run{ID: "run-2", Status: model.RunStatusRunning, StartedAt: started.Add(30 * time.Second)}
	require.NoError(t, st.StartRun(ctx, second))

	finished := time.Now().UTC()
	first.Status = model.RunStatusComplete
	first.FinishedAt = &finished
	first.RowsProcessed = 2
	first.RowsSkipped = 1
	require.NoError(t, st.FinishRun(ctx, first))

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, model.RunStatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)

	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, model.RunStatusComplete, runs[1].Status)
	require.NotNil(t, runs[1].FinishedAt)
	assert.Equal(t, 3, runs[1].RowsRead)
	assert.Equal(t, 2, runs[1].RowsProcessed)
	assert.Equal(t, 1, runs[1].RowsSkipped)
	assert.Empty(t, runs[1].Error)

	limited, err := st.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_FinishRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.FinishRun(context.Background(), &model.Run{ID: "missing", Status: model.RunStatusFailed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
}

func countRows(t *testing.T, st *SQLStore, table string) int {
	t.Helper()
	var n int
	require.NoError(t, st.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}
