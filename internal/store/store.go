// Package store persists the listing warehouse: dimension and fact tables,
// the staging table and the run log.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-etl/internal/model"
)

// ErrDuplicateKey is returned by InsertDimension when another writer already
// holds the business key.
var ErrDuplicateKey = eris.New("store: duplicate business key")

// Warehouse is the per-transaction view of the star schema.
type Warehouse interface {
	// LookupDimension returns the member with the business key, or nil if
	// none exists.
	LookupDimension(ctx context.Context, dim *model.Dimension, businessKey string) (*model.DimensionRow, error)
	InsertDimension(ctx context.Context, dim *model.Dimension, businessKey string, attrs []any) (int64, error)
	UpdateDimension(ctx context.Context, dim *model.Dimension, surrogateKey int64, attrs []any) error
	InsertFact(ctx context.Context, fact *model.FactRow) error
}

// Store defines the persistence interface for the load pipeline.
type Store interface {
	// WithTx runs fn in one transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(w Warehouse) error) error

	// Staging
	StageListings(ctx context.Context, listings []model.Listing, replace bool) (int64, error)

	// Run log
	StartRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const (
	stagingTable = "stg_listing"
	factTable    = "fact_listing"
	runsTable    = "etl_runs"
)
