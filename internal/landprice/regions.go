package landprice

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/kozan-lab/landgain/internal/model"
)

//go:embed regions.yaml
var regionsYAML []byte

// Region is one prefecture's lookup entry: the API area code, an approximate
// bounding box, and fallback average prices per square meter.
type Region struct {
	Code    string   `yaml:"code"`
	Name    string   `yaml:"name"`
	BBox    *BBox    `yaml:"bbox"`
	Average Averages `yaml:"average"`
}

// BBox is a latitude/longitude bounding box.
type BBox struct {
	MinLat float64 `yaml:"min_lat"`
	MaxLat float64 `yaml:"max_lat"`
	MinLng float64 `yaml:"min_lng"`
	MaxLng float64 `yaml:"max_lng"`
}

// Contains reports whether the coordinate falls inside the box.
func (b *BBox) Contains(c model.Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// Averages holds prefecture-wide average prices in yen per square meter.
type Averages struct {
	Commercial  float64 `yaml:"commercial"`
	Residential float64 `yaml:"residential"`
}

// RegionTable resolves coordinates to prefectures.
type RegionTable struct {
	Regions []Region `yaml:"regions"`
	Default Region   `yaml:"default"`
}

// LoadRegions parses the embedded prefecture table.
func LoadRegions() (*RegionTable, error) {
	var t RegionTable
	if err := yaml.Unmarshal(regionsYAML, &t); err != nil {
		return nil, eris.Wrap(err, "parsing region table")
	}
	if len(t.Regions) == 0 {
		return nil, eris.New("region table is empty")
	}
	return &t, nil
}

// FromCoordinate returns the first region whose bounding box contains the
// coordinate. Table order is significant where boxes overlap. Coordinates
// outside every box fall back to the default region.
func (t *RegionTable) FromCoordinate(c model.Coordinate) Region {
	for _, r := range t.Regions {
		if r.BBox != nil && r.BBox.Contains(c) {
			return r
		}
	}
	return t.Default
}

// ByCode returns the region with the given area code, or the default.
func (t *RegionTable) ByCode(code string) Region {
	for _, r := range t.Regions {
		if r.Code == code {
			return r
		}
	}
	return t.Default
}
