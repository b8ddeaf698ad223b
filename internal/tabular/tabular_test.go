package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				cell := row.AddCell()
				cell.SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "staging.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestDecodeCSV_StripsBOM(t *testing.T) {
	in := "\ufeffTên xe,Link xe\nCamry,https://bonbanh.com/a\n"
	tbl, err := DecodeCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, "Tên xe", tbl.Header[0])
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "Camry", tbl.Get(tbl.Rows[0], "Tên xe"))
	assert.Equal(t, "https://bonbanh.com/a", tbl.Get(tbl.Rows[0], "link xe"))
}

func TestDecodeCSV_RaggedRows(t *testing.T) {
	in := "a,b,c\n1,2\n4,5,6,7\n"
	tbl, err := DecodeCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "", tbl.Get(tbl.Rows[0], "c"))
	assert.Equal(t, "6", tbl.Get(tbl.Rows[1], "c"))
	assert.Equal(t, "", tbl.Get(tbl.Rows[1], "missing"))
}

func TestDecodeCSV_Empty(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.csv")
	header := []string{"Tên xe", "Giá xe (VNĐ)"}
	rows := [][]string{{"Kia Morning", "350000000"}, {"VinFast, Lux", ""}}

	require.NoError(t, WriteCSV(path, header, rows))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "\ufeff"), "snapshot should carry a BOM")

	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, header, tbl.Header)
	assert.Equal(t, rows, tbl.Rows)

	// No temp files are left next to the snapshot.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteCSV_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.csv")
	require.NoError(t, WriteCSV(path, []string{"a"}, [][]string{{"1"}, {"2"}}))
	require.NoError(t, WriteCSV(path, []string{"a"}, [][]string{{"3"}}))

	tbl, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"3"}}, tbl.Rows)
}

func TestReadCSV_MissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "none.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "csv: open")
}

func TestRead_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Tên xe", "Giá xe", "Link xe"},
			{"Mazda CX-5", "695 Triệu", "https://bonbanh.com/b"},
		},
	})

	tbl, err := Read(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.True(t, tbl.Has("giá xe"))
	assert.Equal(t, "695 Triệu", tbl.Get(tbl.Rows[0], "Giá xe"))
}

func TestReadXLSX_SheetByName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"listings": {{"h"}, {"v"}},
	})

	rows, err := ReadXLSX(path, XLSXOptions{SheetName: "listings"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"h"}, {"v"}}, rows)

	_, err = ReadXLSX(path, XLSXOptions{SheetName: "other"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := Read("listings.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}
