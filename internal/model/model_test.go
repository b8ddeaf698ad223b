package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

func TestLoadColumns_Defaults(t *testing.T) {
	cols, err := LoadColumns("")
	require.NoError(t, err)
	assert.Equal(t, DefaultColumns(), cols)
	assert.Equal(t, "Link xe", cols.URL)
}

func TestLoadColumns_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "columns.yaml")
	yaml := `
columns:
  url: "Listing URL"
  raw_price: "Price"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cols, err := LoadColumns(path)
	require.NoError(t, err)
	assert.Equal(t, "Listing URL", cols.URL)
	assert.Equal(t, "Price", cols.RawPrice)
	// Untouched labels keep their defaults.
	assert.Equal(t, "Tên xe", cols.Name)
}

func TestLoadColumns_MissingFile(t *testing.T) {
	_, err := LoadColumns(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "columns: read")
}

func TestSnapshotHeader_UsesNormalizedLabels(t *testing.T) {
	h := DefaultColumns().SnapshotHeader()
	assert.Contains(t, h, "Giá xe (VNĐ)")
	assert.Contains(t, h, "Số Km (số)")
	assert.NotContains(t, h, "Giá xe")
	assert.Len(t, h, 18)
}

func TestStagingRow_MatchesColumns(t *testing.T) {
	price := int64(695000000)
	posted := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	l := Listing{URL: "https://bonbanh.com/xe-1", Price: &price, PostedOn: &posted}

	row := l.StagingRow()
	require.Len(t, row, len(StagingColumns))
	assert.Equal(t, "https://bonbanh.com/xe-1", row[0])
	assert.Equal(t, int64(695000000), row[4])
	assert.Nil(t, row[5])
	assert.Equal(t, posted, row[8])
}

func TestFactArgs_NullMeasures(t *testing.T) {
	f := FactRow{VehicleModelKey: 1, BodyStyleKey: 6, ListingURL: "u", RunID: "r"}
	args := f.Args()
	require.Len(t, args, len(FactColumns))
	assert.Equal(t, int64(1), args[0])
	assert.Equal(t, int64(6), args[5])
	assert.Nil(t, args[6])
	assert.Nil(t, args[8])
	assert.Equal(t, "u", args[10])
}

func TestDimensions_Order(t *testing.T) {
	dims := Dimensions()
	require.Len(t, dims, 6)
	assert.Equal(t, "vehicle_model", dims[0].Name)
	assert.True(t, dims[0].Required)
	assert.Equal(t, []string{"location"}, dims[1].ColumnNames())
}
