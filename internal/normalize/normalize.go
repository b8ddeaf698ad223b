// Package normalize converts free-text listing fields into typed values.
// Parsers never fail: unparseable input yields nil.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/listing-etl/internal/model"
)

const (
	billion = 1_000_000_000
	million = 1_000_000

	dateLayout = "2/1/2006"
)

var (
	// billionRe matches "4 Tỷ" and the unaccented "4 Ti".
	billionRe = regexp.MustCompile(`(\d+)[\s.\x{00A0}]*T[ỷi]`)
	// millionRe matches "350 Tr." and also the "Tr" prefix of "Triệu".
	millionRe = regexp.MustCompile(`(\d+)[\s.\x{00A0}]*Tr`)
	digitsRe  = regexp.MustCompile(`\d+`)
)

// Text trims s, collapses internal whitespace and applies NFC so that
// composed and decomposed Vietnamese diacritics compare equal.
func Text(s string) string {
	s = norm.NFC.String(s)
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// ParsePrice converts a price such as "4 Tỷ 350 Tr." or "695 Triệu" into VND.
func ParsePrice(s string) *int64 {
	s = Text(s)
	if s == "" {
		return nil
	}

	var total int64
	if m := billionRe.FindStringSubmatch(s); m != nil {
		v, ok := scaled(m[1], billion)
		if !ok {
			return nil
		}
		total = v
	}
	if m := millionRe.FindStringSubmatch(s); m != nil {
		v, ok := scaled(m[1], million)
		if !ok || v > math.MaxInt64-total {
			return nil
		}
		total += v
	}

	if total == 0 && strings.Contains(s, "Triệu") {
		if m := digitsRe.FindString(s); m != "" {
			v, ok := scaled(m, million)
			if !ok {
				return nil
			}
			total = v
		}
	}

	if total <= 0 {
		return nil
	}
	return &total
}

// ParseMileage converts "64,000 Km" into 64000.
func ParseMileage(s string) *int64 {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return nil
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseDate parses a d/m/yyyy posting date.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

// FormatDate renders a date the way ParseDate reads it, zero-padded.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

// ParseCount64 returns the first run of digits in s ("Xem 120 lượt" → 120,
// "2019.0" → 2019).
func ParseCount64(s string) *int64 {
	m := digitsRe.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

// ParseCount is ParseCount64 for small counts such as seats, doors or years.
func ParseCount(s string) *int {
	v := ParseCount64(s)
	if v == nil || *v > int64(^uint32(0)>>1) {
		return nil
	}
	n := int(*v)
	return &n
}

// Listing normalizes one raw listing. It reports false when the listing has
// no URL and therefore no natural key.
func Listing(raw model.RawListing) (model.Listing, bool) {
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return model.Listing{}, false
	}

	return model.Listing{
		URL:           url,
		Name:          Text(raw.Name),
		TypeAndYear:   Text(raw.TypeAndYear),
		Year:          ParseCount(raw.Year),
		Price:         ParsePrice(raw.Price),
		Mileage:       ParseMileage(raw.Mileage),
		Location:      Text(raw.Location),
		Contact:       Text(raw.Contact),
		PostedOn:      ParseDate(raw.PostedOn),
		Views:         ParseCount64(raw.Views),
		Condition:     Text(raw.Condition),
		Origin:        Text(raw.Origin),
		BodyStyle:     Text(raw.BodyStyle),
		Engine:        Text(raw.Engine),
		ExteriorColor: Text(raw.ExteriorColor),
		InteriorColor: Text(raw.InteriorColor),
		Seats:         ParseCount(raw.Seats),
		Doors:         ParseCount(raw.Doors),
	}, true
}

// Listings normalizes a batch, dropping rows without a URL.
func Listings(raws []model.RawListing) ([]model.Listing, int) {
	out := make([]model.Listing, 0, len(raws))
	dropped := 0
	for _, r := range raws {
		l, ok := Listing(r)
		if !ok {
			dropped++
			continue
		}
		out = append(out, l)
	}
	return out, dropped
}

// scaled returns digits*unit, or false when the product does not fit in an
// int64.
func scaled(digits string, unit int64) (int64, bool) {
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || v > math.MaxInt64/unit {
		return 0, false
	}
	return v * unit, true
}
