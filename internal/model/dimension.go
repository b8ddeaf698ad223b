package model

import "time"

// ColumnKind is the storage type of a dimension attribute.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
)

// Column is a typed dimension attribute column.
type Column struct {
	Name string
	Kind ColumnKind
}

// Dimension describes one dimension table of the star schema.
type Dimension struct {
	Name    string
	Table   string
	Columns []Column
	// Required dimensions reject rows whose primary identity field is blank.
	Required bool
}

// ColumnNames returns the attribute column names in order.
func (d *Dimension) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

var (
	VehicleModel = &Dimension{
		Name:  "vehicle_model",
		Table: "dim_vehicle_model",
		Columns: []Column{
			{Name: "name", Kind: KindText},
			{Name: "type_and_year", Kind: KindText},
			{Name: "production_year", Kind: KindInt},
			{Name: "engine", Kind: KindText},
			{Name: "exterior_color", Kind: KindText},
			{Name: "interior_color", Kind: KindText},
			{Name: "seats", Kind: KindInt},
			{Name: "doors", Kind: KindInt},
		},
		Required: true,
	}
	Location = &Dimension{
		Name:    "location",
		Table:   "dim_location",
		Columns: []Column{{Name: "location", Kind: KindText}},
	}
	Seller = &Dimension{
		Name:    "seller",
		Table:   "dim_seller",
		Columns: []Column{{Name: "contact", Kind: KindText}},
	}
	Origin = &Dimension{
		Name:    "origin",
		Table:   "dim_origin",
		Columns: []Column{{Name: "origin", Kind: KindText}},
	}
	Condition = &Dimension{
		Name:    "condition",
		Table:   "dim_condition",
		Columns: []Column{{Name: "condition_label", Kind: KindText}},
	}
	BodyStyle = &Dimension{
		Name:    "body_style",
		Table:   "dim_body_style",
		Columns: []Column{{Name: "body_style", Kind: KindText}},
	}
)

// Dimensions returns every dimension in fact-column order.
func Dimensions() []*Dimension {
	return []*Dimension{VehicleModel, Location, Seller, Origin, Condition, BodyStyle}
}

// DimensionRow is a stored dimension member. Attributes are in the
// dimension's column order, as returned by the driver.
type DimensionRow struct {
	SurrogateKey int64
	BusinessKey  string
	Attributes   []any
}

// FactRow is one listing appended to the fact table.
type FactRow struct {
	VehicleModelKey int64
	LocationKey     int64
	SellerKey       int64
	OriginKey       int64
	ConditionKey    int64
	BodyStyleKey    int64
	Price           *int64
	Mileage         *int64
	PostedOn        *time.Time
	Views           *int64
	ListingURL      string
	RunID           string
}

// FactColumns is the insert column order matching FactRow.Args.
var FactColumns = []string{
	"vehicle_model_key", "location_key", "seller_key", "origin_key", "condition_key", "body_style_key",
	"price", "mileage", "posting_date", "view_count", "listing_url", "run_id",
}

// Args returns the fact as insert arguments in FactColumns order.
func (f *FactRow) Args() []any {
	return []any{
		f.VehicleModelKey, f.LocationKey, f.SellerKey, f.OriginKey, f.ConditionKey, f.BodyStyleKey,
		OptInt64(f.Price), OptInt64(f.Mileage), OptDate(f.PostedOn), OptInt64(f.Views), f.ListingURL, f.RunID,
	}
}
