package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadCSV reads a UTF-8 CSV file with an optional byte-order mark. The first
// record is the header. Short or long records are tolerated.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return DecodeCSV(f)
}

// DecodeCSV reads a CSV table from r, stripping a leading BOM.
func DecodeCSV(r io.Reader) (*Table, error) {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	reader := csv.NewReader(dec)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("csv: empty file")
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "csv: read row %d", len(rows)+2)
		}
		rows = append(rows, record)
	}

	return NewTable(header, rows), nil
}

// WriteCSV replaces path with a UTF-8 (with BOM) CSV of header and rows.
// The file is written to a temporary sibling and renamed into place so a
// crash never leaves a truncated snapshot behind.
func WriteCSV(path string, header []string, rows [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "csv: create dir %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return eris.Wrap(err, "csv: create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	enc := transform.NewWriter(tmp, unicode.UTF8BOM.NewEncoder())
	w := csv.NewWriter(enc)
	if err := w.Write(header); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "csv: write header")
	}
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "csv: write rows")
	}
	if err := enc.Close(); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "csv: flush encoder")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "csv: close temp file")
	}

	if err := os.Rename(tmpName, path); err != nil {
		return eris.Wrapf(err, "csv: replace %s", path)
	}
	return nil
}
