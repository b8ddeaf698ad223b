package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-etl/internal/model"
	"github.com/sells-group/listing-etl/internal/resilience"
	"github.com/sells-group/listing-etl/internal/store"
	"github.com/sells-group/listing-etl/internal/tabular"
	"github.com/sells-group/listing-etl/internal/warehouse"
)

// LoadOpts configures a warehouse load.
type LoadOpts struct {
	Retry resilience.RetryConfig
	// RejectsPath, when set, receives the skipped rows as CSV.
	RejectsPath string
}

// Load appends listings to the warehouse in order, one transaction per row.
// Permanent row failures are skipped and reported in the summary; a
// transient failure that outlasts the retry policy or a cancelled context
// stops the run. Rows committed before the stop stay committed. The summary
// is returned in every case once the run has been recorded.
func Load(ctx context.Context, st store.Store, listings []model.Listing, opts LoadOpts) (*model.RunSummary, error) {
	start := time.Now()
	run := &model.Run{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		StartedAt: start.UTC(),
		RowsRead:  len(listings),
	}
	log := zap.L().With(zap.String("component", "load"), zap.String("run_id", run.ID))

	if err := st.StartRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "pipeline: start run")
	}
	log.Info("pipeline: load started", zap.Int("rows", len(listings)))

	summary := &model.RunSummary{RunID: run.ID, Read: len(listings)}
	loader := warehouse.NewFactLoader(st, run.ID)

	var fatal error
	for i := range listings {
		l := &listings[i]

		retry := opts.Retry
		retry.OnRetry = resilience.RetryLogger("load_row",
			zap.String("run_id", run.ID), zap.String("listing_url", l.URL))

		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return loader.Load(ctx, l)
		})
		if err == nil {
			summary.Processed++
			continue
		}
		if ctx.Err() != nil || resilience.IsTransient(err) {
			fatal = eris.Wrapf(err, "pipeline: load %s", l.URL)
			log.Error("pipeline: load aborted", zap.String("listing_url", l.URL), zap.Error(err))
			break
		}

		summary.Skipped++
		summary.SkipDetail = append(summary.SkipDetail, model.SkippedRow{
			ListingURL: l.URL,
			Error:      err.Error(),
			ErrorType:  resilience.ClassifyError(err),
		})
		log.Warn("pipeline: row skipped", zap.String("listing_url", l.URL), zap.Error(err))
	}

	summary.Dimensions = loader.Stats()
	summary.Duration = time.Since(start).Milliseconds()
	summary.Status = model.RunStatusComplete
	if fatal != nil {
		summary.Status = model.RunStatusFailed
	}

	finished := time.Now().UTC()
	run.Status = summary.Status
	run.FinishedAt = &finished
	run.RowsProcessed = summary.Processed
	run.RowsSkipped = summary.Skipped
	if fatal != nil {
		run.Error = fatal.Error()
	}
	// The run log is closed even when ctx was cancelled.
	if err := st.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("pipeline: failed to finish run", zap.Error(err))
	}

	if opts.RejectsPath != "" && len(summary.SkipDetail) > 0 {
		if err := WriteRejects(opts.RejectsPath, summary.SkipDetail); err != nil {
			log.Warn("pipeline: failed to write rejects", zap.String("path", opts.RejectsPath), zap.Error(err))
		}
	}

	log.Info("pipeline: load finished",
		zap.String("status", string(summary.Status)),
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("dim_inserted", summary.Dimensions.Inserted),
		zap.Int("dim_updated", summary.Dimensions.Updated),
		zap.Int64("duration_ms", summary.Duration),
	)
	return summary, fatal
}

// Stage loads listings into the staging table, upserting by listing URL or
// replacing the table contents.
func Stage(ctx context.Context, st store.Store, listings []model.Listing, replace bool) (int64, error) {
	n, err := st.StageListings(ctx, listings, replace)
	if err != nil {
		return 0, eris.Wrap(err, "pipeline: stage")
	}
	zap.L().Info("pipeline: staged listings",
		zap.Int64("rows", n), zap.Bool("replace", replace))
	return n, nil
}

var rejectsHeader = []string{"listing_url", "error", "error_type"}

// WriteRejects writes skipped rows to a CSV file.
func WriteRejects(path string, rows []model.SkippedRow) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.ListingURL, r.Error, r.ErrorType}
	}
	return eris.Wrap(tabular.WriteCSV(path, rejectsHeader, out), "pipeline: write rejects")
}
