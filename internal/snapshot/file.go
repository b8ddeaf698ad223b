package snapshot

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-etl/internal/model"
	"github.com/sells-group/listing-etl/internal/normalize"
	"github.com/sells-group/listing-etl/internal/tabular"
)

// Read loads the snapshot file. A missing file is an empty snapshot. Rows
// without a listing URL are dropped; their count is returned.
func Read(path string, cols model.Columns) ([]model.Listing, int, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, 0, nil
	}

	tbl, err := tabular.ReadCSV(path)
	if err != nil {
		return nil, 0, eris.Wrap(err, "snapshot: read")
	}
	if !tbl.Has(cols.URL) {
		return nil, 0, eris.Errorf("snapshot: %s has no %q column", path, cols.URL)
	}

	out := make([]model.Listing, 0, len(tbl.Rows))
	dropped := 0
	for _, row := range tbl.Rows {
		l, ok := fromRow(tbl, row, cols)
		if !ok {
			dropped++
			continue
		}
		out = append(out, l)
	}
	if dropped > 0 {
		zap.L().Warn("snapshot: dropped rows without listing URL",
			zap.String("path", path), zap.Int("dropped", dropped))
	}
	return out, dropped, nil
}

// Write replaces the snapshot file with listings.
func Write(path string, listings []model.Listing, cols model.Columns) error {
	rows := make([][]string, len(listings))
	for i := range listings {
		rows[i] = toRow(&listings[i])
	}
	return eris.Wrap(tabular.WriteCSV(path, cols.SnapshotHeader(), rows), "snapshot: write")
}

// fromRow rebuilds a normalized listing from a snapshot row. Numeric cells are
// parsed leniently so files written by older tooling ("5 chỗ", "2019.0") load.
func fromRow(tbl *tabular.Table, row []string, cols model.Columns) (model.Listing, bool) {
	get := func(col string) string { return tbl.Get(row, col) }

	url := strings.TrimSpace(get(cols.URL))
	if url == "" {
		return model.Listing{}, false
	}
	return model.Listing{
		URL:           url,
		Name:          normalize.Text(get(cols.Name)),
		TypeAndYear:   normalize.Text(get(cols.TypeAndYear)),
		Year:          normalize.ParseCount(get(cols.Year)),
		Price:         normalize.ParseCount64(get(cols.Price)),
		Mileage:       normalize.ParseCount64(get(cols.Mileage)),
		Location:      normalize.Text(get(cols.Location)),
		Contact:       normalize.Text(get(cols.Contact)),
		PostedOn:      normalize.ParseDate(get(cols.PostedOn)),
		Views:         normalize.ParseCount64(get(cols.Views)),
		Condition:     normalize.Text(get(cols.Condition)),
		Origin:        normalize.Text(get(cols.Origin)),
		BodyStyle:     normalize.Text(get(cols.BodyStyle)),
		Engine:        normalize.Text(get(cols.Engine)),
		ExteriorColor: normalize.Text(get(cols.ExteriorColor)),
		InteriorColor: normalize.Text(get(cols.InteriorColor)),
		Seats:         normalize.ParseCount(get(cols.Seats)),
		Doors:         normalize.ParseCount(get(cols.Doors)),
	}, true
}

// toRow renders a listing in SnapshotHeader order.
func toRow(l *model.Listing) []string {
	return []string{
		l.Name, l.TypeAndYear, fmtInt(l.Year), fmtInt64(l.Price), fmtInt64(l.Mileage),
		l.Location, l.Contact, normalize.FormatDate(l.PostedOn), fmtInt64(l.Views), l.URL,
		l.Condition, l.Origin, l.BodyStyle, l.Engine, l.ExteriorColor, l.InteriorColor,
		fmtInt(l.Seats), fmtInt(l.Doors),
	}
}

func fmtInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func fmtInt64(p *int64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatInt(*p, 10)
}
