// Package pipeline runs the listing ETL: staging file to canonical snapshot,
// snapshot to staging table, and snapshot to the warehouse.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-etl/internal/model"
	"github.com/sells-group/listing-etl/internal/normalize"
	"github.com/sells-group/listing-etl/internal/snapshot"
	"github.com/sells-group/listing-etl/internal/tabular"
)

// TransformOpts configures a Transform.
type TransformOpts struct {
	StagingPath  string // CSV or XLSX written by the extractor
	SnapshotPath string
	Columns      model.Columns
}

// TransformResult reports what a Transform did.
type TransformResult struct {
	Read         int // staging rows
	Dropped      int // staging rows without a listing URL
	Prior        int // listings in the previous snapshot
	PriorDropped int // previous snapshot rows without a listing URL
	Snapshot     []model.Listing
}

// Transform normalizes the staging file, merges it into the prior snapshot
// and writes the result back. Any read or write failure is fatal.
func Transform(ctx context.Context, opts TransformOpts) (*TransformResult, error) {
	log := zap.L().With(zap.String("component", "transform"))

	tbl, err := tabular.Read(opts.StagingPath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read staging file")
	}
	if !tbl.Has(opts.Columns.URL) {
		return nil, eris.Errorf("pipeline: staging file %s has no %q column", opts.StagingPath, opts.Columns.URL)
	}

	raws := make([]model.RawListing, len(tbl.Rows))
	for i, row := range tbl.Rows {
		raws[i] = rawFromRow(tbl, row, opts.Columns)
	}
	batch, dropped := normalize.Listings(raws)
	if dropped > 0 {
		log.Warn("pipeline: dropped rows without listing URL", zap.Int("dropped", dropped))
	}

	prior, priorDropped, err := snapshot.Read(opts.SnapshotPath, opts.Columns)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read snapshot")
	}

	merged := snapshot.Merge(prior, batch)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: transform")
	}
	if err := snapshot.Write(opts.SnapshotPath, merged, opts.Columns); err != nil {
		return nil, eris.Wrap(err, "pipeline: write snapshot")
	}

	log.Info("pipeline: snapshot written",
		zap.String("path", opts.SnapshotPath),
		zap.Int("read", len(raws)),
		zap.Int("prior", len(prior)),
		zap.Int("prior_dropped", priorDropped),
		zap.Int("listings", len(merged)),
	)
	return &TransformResult{
		Read:         len(raws),
		Dropped:      dropped,
		Prior:        len(prior),
		PriorDropped: priorDropped,
		Snapshot:     merged,
	}, nil
}

// rawFromRow maps a staging row onto the extractor fields by header label.
// Columns absent from the file read as empty.
func rawFromRow(tbl *tabular.Table, row []string, cols model.Columns) model.RawListing {
	get := func(col string) string { return tbl.Get(row, col) }
	return model.RawListing{
		TypeAndYear:   get(cols.TypeAndYear),
		Name:          get(cols.Name),
		Price:         get(cols.RawPrice),
		Location:      get(cols.Location),
		Contact:       get(cols.Contact),
		URL:           get(cols.URL),
		PostedOn:      get(cols.PostedOn),
		Views:         get(cols.Views),
		Year:          get(cols.Year),
		Mileage:       get(cols.RawMileage),
		Condition:     get(cols.Condition),
		Origin:        get(cols.Origin),
		BodyStyle:     get(cols.BodyStyle),
		Engine:        get(cols.Engine),
		ExteriorColor: get(cols.ExteriorColor),
		InteriorColor: get(cols.InteriorColor),
		Seats:         get(cols.Seats),
		Doors:         get(cols.Doors),
	}
}
