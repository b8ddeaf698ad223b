// Package warehouse resolves listings against the SCD Type 1 dimensions and
// appends them to the fact table.
package warehouse

import (
	"context"
	"crypto/md5" //nolint:gosec // business keys are identifiers, not secrets
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-etl/internal/model"
	"github.com/sells-group/listing-etl/internal/normalize"
	"github.com/sells-group/listing-etl/internal/store"
)

// ErrMissingBusinessKey is returned when a required dimension has no
// identifying value for the row.
var ErrMissingBusinessKey = eris.New("warehouse: missing business key")

// BusinessKey is the hex MD5 of the key fields joined by "_".
func BusinessKey(fields ...string) string {
	sum := md5.Sum([]byte(strings.Join(fields, "_"))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Resolver performs SCD Type 1 upserts and counts what it did.
type Resolver struct {
	stats model.ResolveStats
	log   *zap.Logger
}

// NewResolver creates a Resolver with zeroed counters.
func NewResolver() *Resolver {
	return &Resolver{log: zap.L().With(zap.String("component", "resolver"))}
}

// Stats returns the counters accumulated so far.
func (r *Resolver) Stats() model.ResolveStats {
	return r.stats
}

// Resolve returns the surrogate key of the dimension member identified by
// keyFields, inserting it if absent and overwriting its attributes in place
// when they differ from attrs.
func (r *Resolver) Resolve(ctx context.Context, w store.Warehouse, dim *model.Dimension, keyFields []string, attrs []any) (int64, error) {
	if dim.Required && (len(keyFields) == 0 || strings.TrimSpace(keyFields[0]) == "") {
		return 0, eris.Wrapf(ErrMissingBusinessKey, "dimension %s", dim.Name)
	}
	if len(attrs) != len(dim.Columns) {
		return 0, eris.Errorf("warehouse: %s: got %d attributes, want %d", dim.Name, len(attrs), len(dim.Columns))
	}

	bk := BusinessKey(keyFields...)
	row, err := w.LookupDimension(ctx, dim, bk)
	if err != nil {
		return 0, err
	}

	if row == nil {
		key, err := w.InsertDimension(ctx, dim, bk, attrs)
		if err == nil {
			r.stats.Inserted++
			return key, nil
		}
		if !errors.Is(err, store.ErrDuplicateKey) {
			return 0, err
		}

		r.log.Debug("business key inserted concurrently, re-reading",
			zap.String("dimension", dim.Name), zap.String("business_key", bk))
		row, err = w.LookupDimension(ctx, dim, bk)
		if err != nil {
			return 0, err
		}
		if row == nil {
			return 0, eris.Errorf("warehouse: %s member %s missing after conflict", dim.Name, bk)
		}
	}

	if !attrsChanged(row.Attributes, attrs) {
		r.stats.Unchanged++
		return row.SurrogateKey, nil
	}
	if err := w.UpdateDimension(ctx, dim, row.SurrogateKey, attrs); err != nil {
		return 0, err
	}
	r.stats.Updated++
	return row.SurrogateKey, nil
}

func attrsChanged(stored, incoming []any) bool {
	if len(stored) != len(incoming) {
		return true
	}
	for i := range stored {
		if attrText(stored[i]) != attrText(incoming[i]) {
			return true
		}
	}
	return false
}

// attrText renders a driver value as normalized text. NULL and the empty
// string compare equal.
func attrText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return normalize.Text(x)
	case []byte:
		return normalize.Text(string(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case *int64:
		if x == nil {
			return ""
		}
		return strconv.FormatInt(*x, 10)
	default:
		return normalize.Text(fmt.Sprint(x))
	}
}
