package model

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Columns maps listing fields to the header labels used by the extractor and
// the snapshot file. Raw* labels only appear in staging files; Price and
// Mileage hold the normalized numbers in the snapshot.
type Columns struct {
	TypeAndYear   string `yaml:"type_and_year"`
	Name          string `yaml:"name"`
	RawPrice      string `yaml:"raw_price"`
	Price         string `yaml:"price"`
	Location      string `yaml:"location"`
	Contact       string `yaml:"contact"`
	URL           string `yaml:"url"`
	PostedOn      string `yaml:"posted_on"`
	Views         string `yaml:"views"`
	Year          string `yaml:"year"`
	RawMileage    string `yaml:"raw_mileage"`
	Mileage       string `yaml:"mileage"`
	Condition     string `yaml:"condition"`
	Origin        string `yaml:"origin"`
	BodyStyle     string `yaml:"body_style"`
	Engine        string `yaml:"engine"`
	ExteriorColor string `yaml:"exterior_color"`
	InteriorColor string `yaml:"interior_color"`
	Seats         string `yaml:"seats"`
	Doors         string `yaml:"doors"`
}

// DefaultColumns returns the labels produced by the bonbanh extractor.
func DefaultColumns() Columns {
	return Columns{
		TypeAndYear:   "Loại xe + Năm SX",
		Name:          "Tên xe",
		RawPrice:      "Giá xe",
		Price:         "Giá xe (VNĐ)",
		Location:      "Nơi bán",
		Contact:       "Liên hệ",
		URL:           "Link xe",
		PostedOn:      "Ngày đăng",
		Views:         "Lượt xem",
		Year:          "Năm sản xuất:",
		RawMileage:    "Số Km đã đi:",
		Mileage:       "Số Km (số)",
		Condition:     "Tình trạng:",
		Origin:        "Xuất xứ:",
		BodyStyle:     "Kiểu dáng:",
		Engine:        "Động cơ:",
		ExteriorColor: "Màu ngoại thất:",
		InteriorColor: "Màu nội thất:",
		Seats:         "Số chỗ ngồi:",
		Doors:         "Số cửa:",
	}
}

// SnapshotHeader is the header row written to the snapshot file.
func (c Columns) SnapshotHeader() []string {
	return []string{
		c.Name, c.TypeAndYear, c.Year, c.Price, c.Mileage, c.Location, c.Contact,
		c.PostedOn, c.Views, c.URL, c.Condition, c.Origin, c.BodyStyle, c.Engine,
		c.ExteriorColor, c.InteriorColor, c.Seats, c.Doors,
	}
}

// LoadColumns reads label overrides from a YAML file on top of the defaults.
// An empty path returns the defaults.
func LoadColumns(path string) (Columns, error) {
	cols := DefaultColumns()
	if path == "" {
		return cols, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cols, eris.Wrapf(err, "columns: read %s", path)
	}

	var wrapper struct {
		Columns Columns `yaml:"columns"`
	}
	// Unmarshalling into a pre-filled struct keeps defaults for absent keys.
	wrapper.Columns = cols
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return cols, eris.Wrap(err, "columns: parse")
	}
	return wrapper.Columns, nil
}
