package shapefile_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"

	"property_insights/internal/adapters/shapefile"
	"property_insights/internal/domain"
)

func columns() domain.PropertyColumns {
	c := domain.NewPropertyColumns(3)
	nan := math.NaN()
	c.Zpid = []int64{101, 102, 103}
	c.Price = []float64{350000, nan, 125000.5}
	c.Bedrooms = []float64{3, 2, nan}
	c.Bathrooms = []float64{2, 1, 1.5}
	c.LivingArea = []float64{1800, 900, nan}
	c.Latitude = []float64{30.27, nan, 35.78}
	c.Longitude = []float64{-97.74, -80.1, -78.64}
	c.PricePerSqft = []float64{194.44, nan, nan}
	c.City = []string{"Austin", "Miami", "Raleigh"}
	c.State = []string{"TX", "FL", "NC"}
	c.HomeType = []string{"SINGLE_FAMILY", "CONDO", "Unknown"}
	return c
}

func TestExport_WritesPointsWithAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "props.shp")

	n, err := shapefile.New().Export(path, columns())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected the row without latitude to be skipped, wrote %d", n)
	}
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		if _, err := os.Stat(filepath.Join(filepath.Dir(path), "props"+ext)); err != nil {
			t.Fatalf("missing %s: %v", ext, err)
		}
	}

	r, err := shp.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if got := len(r.Fields()); got != 9 {
		t.Fatalf("fields: %d", got)
	}

	var rows int
	for r.Next() {
		i, s := r.Shape()
		p, ok := s.(*shp.Point)
		if !ok {
			t.Fatalf("row %d: unexpected shape %T", i, s)
		}
		switch i {
		case 0:
			if p.X != -97.74 || p.Y != 30.27 {
				t.Fatalf("row 0 point: %+v", p)
			}
			if r.ReadAttribute(i, 0) != "101" || r.ReadAttribute(i, 6) != "Austin" {
				t.Fatalf("row 0 attrs: %q %q", r.ReadAttribute(i, 0), r.ReadAttribute(i, 6))
			}
			if r.ReadAttribute(i, 1) != "350000.00" {
				t.Fatalf("row 0 price: %q", r.ReadAttribute(i, 1))
			}
		case 1:
			if r.ReadAttribute(i, 0) != "103" || r.ReadAttribute(i, 6) != "Raleigh" {
				t.Fatalf("row 1 attrs: %q %q", r.ReadAttribute(i, 0), r.ReadAttribute(i, 6))
			}
			// missing bedrooms stay blank
			if r.ReadAttribute(i, 2) != "" {
				t.Fatalf("row 1 bedrooms: %q", r.ReadAttribute(i, 2))
			}
		}
		rows++
	}
	if rows != 2 {
		t.Fatalf("read %d rows", rows)
	}
}

func TestExport_AppendsExtension(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out")
	if _, err := shapefile.New().Export(base, domain.NewPropertyColumns(0)); err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(base + ".shp"); err != nil {
		t.Fatalf("expected %s.shp: %v", base, err)
	}
	if _, err := os.Stat(base + ".dbf"); err != nil {
		t.Fatalf("expected %s.dbf: %v", base, err)
	}
}
