package warehouse

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-etl/internal/model"
	"github.com/sells-group/listing-etl/internal/store"
)

// RowError reports a listing whose transaction was rolled back.
type RowError struct {
	ListingURL string
	Err        error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("listing %s: %v", e.ListingURL, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// binding extracts a dimension's key fields and attributes from a listing.
type binding struct {
	dim     *model.Dimension
	extract func(l *model.Listing) ([]string, []any)
}

func single(dim *model.Dimension, field func(l *model.Listing) string) binding {
	return binding{dim: dim, extract: func(l *model.Listing) ([]string, []any) {
		v := field(l)
		return []string{v}, []any{v}
	}}
}

// bindings are in model.Dimensions order.
var bindings = []binding{
	{dim: model.VehicleModel, extract: func(l *model.Listing) ([]string, []any) {
		year := ""
		if l.Year != nil {
			year = strconv.Itoa(*l.Year)
		}
		return []string{l.Name, year}, []any{
			l.Name, l.TypeAndYear, model.OptInt(l.Year), l.Engine,
			l.ExteriorColor, l.InteriorColor, model.OptInt(l.Seats), model.OptInt(l.Doors),
		}
	}},
	single(model.Location, func(l *model.Listing) string { return l.Location }),
	single(model.Seller, func(l *model.Listing) string { return l.Contact }),
	single(model.Origin, func(l *model.Listing) string { return l.Origin }),
	single(model.Condition, func(l *model.Listing) string { return l.Condition }),
	single(model.BodyStyle, func(l *model.Listing) string { return l.BodyStyle }),
}

// FactLoader appends listings to the fact table, one transaction per row.
type FactLoader struct {
	store store.Store
	runID string
	stats model.ResolveStats
}

// NewFactLoader creates a FactLoader tagging facts with runID.
func NewFactLoader(s store.Store, runID string) *FactLoader {
	return &FactLoader{store: s, runID: runID}
}

// Stats returns resolver counters of committed rows.
func (l *FactLoader) Stats() model.ResolveStats {
	return l.stats
}

// Load resolves the six dimensions of listing and inserts its fact. On any
// error the row's dimension writes are rolled back and a *RowError returned.
func (l *FactLoader) Load(ctx context.Context, listing *model.Listing) error {
	res := NewResolver()
	err := l.store.WithTx(ctx, func(w store.Warehouse) error {
		keys := make([]int64, len(bindings))
		for i, b := range bindings {
			keyFields, attrs := b.extract(listing)
			key, err := res.Resolve(ctx, w, b.dim, keyFields, attrs)
			if err != nil {
				return eris.Wrapf(err, "resolve %s", b.dim.Name)
			}
			keys[i] = key
		}

		return w.InsertFact(ctx, &model.FactRow{
			VehicleModelKey: keys[0],
			LocationKey:     keys[1],
			SellerKey:       keys[2],
			OriginKey:       keys[3],
			ConditionKey:    keys[4],
			BodyStyleKey:    keys[5],
			Price:           listing.Price,
			Mileage:         listing.Mileage,
			PostedOn:        listing.PostedOn,
			Views:           listing.Views,
			ListingURL:      listing.URL,
			RunID:           l.runID,
		})
	})
	if err != nil {
		return &RowError{ListingURL: listing.URL, Err: err}
	}

	s := res.Stats()
	l.stats.Inserted += s.Inserted
	l.stats.Updated += s.Updated
	l.stats.Unchanged += s.Unchanged
	return nil
}
