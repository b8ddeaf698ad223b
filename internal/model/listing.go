package model

import "time"

// RawListing is one scraped listing as emitted by the extractor: every field
// is free text exactly as it appeared on the page.
type RawListing struct {
	TypeAndYear   string `json:"type_and_year"`
	Name          string `json:"name"`
	Price         string `json:"price"`
	Location      string `json:"location"`
	Contact       string `json:"contact"`
	URL           string `json:"url"`
	PostedOn      string `json:"posted_on"`
	Views         string `json:"views"`
	Year          string `json:"year"`
	Mileage       string `json:"mileage"`
	Condition     string `json:"condition"`
	Origin        string `json:"origin"`
	BodyStyle     string `json:"body_style"`
	Engine        string `json:"engine"`
	ExteriorColor string `json:"exterior_color"`
	InteriorColor string `json:"interior_color"`
	Seats         string `json:"seats"`
	Doors         string `json:"doors"`
}

// Listing is a normalized listing. Numeric fields are nil when the source
// text could not be parsed. URL is the natural key.
type Listing struct {
	URL           string     `json:"url"`
	Name          string     `json:"name"`
	TypeAndYear   string     `json:"type_and_year"`
	Year          *int       `json:"year,omitempty"`
	Price         *int64     `json:"price,omitempty"`
	Mileage       *int64     `json:"mileage,omitempty"`
	Location      string     `json:"location"`
	Contact       string     `json:"contact"`
	PostedOn      *time.Time `json:"posted_on,omitempty"`
	Views         *int64     `json:"views,omitempty"`
	Condition     string     `json:"condition"`
	Origin        string     `json:"origin"`
	BodyStyle     string     `json:"body_style"`
	Engine        string     `json:"engine"`
	ExteriorColor string     `json:"exterior_color"`
	InteriorColor string     `json:"interior_color"`
	Seats         *int       `json:"seats,omitempty"`
	Doors         *int       `json:"doors,omitempty"`
}

// StagingColumns is the column order of the staging table, matching
// Listing.StagingRow.
var StagingColumns = []string{
	"listing_url", "name", "type_and_year", "production_year", "price", "mileage",
	"location", "contact", "posting_date", "view_count", "condition_label", "origin",
	"body_style", "engine", "exterior_color", "interior_color", "seats", "doors",
}

// StagingRow returns the listing as a staging table row.
func (l *Listing) StagingRow() []any {
	return []any{
		l.URL, l.Name, l.TypeAndYear, OptInt(l.Year), OptInt64(l.Price), OptInt64(l.Mileage),
		l.Location, l.Contact, OptDate(l.PostedOn), OptInt64(l.Views), l.Condition, l.Origin,
		l.BodyStyle, l.Engine, l.ExteriorColor, l.InteriorColor, OptInt(l.Seats), OptInt(l.Doors),
	}
}

// OptInt converts an optional int into a driver argument (nil or int64).
func OptInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}

// OptInt64 converts an optional int64 into a driver argument.
func OptInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// OptDate converts an optional date into a driver argument.
func OptDate(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
