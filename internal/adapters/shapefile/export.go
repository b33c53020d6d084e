// Package shapefile writes the archived properties as ESRI point shapefiles.
package shapefile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"

	"property_insights/internal/domain"
)

// DBF column names are limited to 10 bytes.
var fields = []shp.Field{
	shp.NumberField("ZPID", 18),
	shp.FloatField("PRICE", 18, 2),
	shp.FloatField("BEDROOMS", 6, 1),
	shp.FloatField("BATHROOMS", 6, 1),
	shp.FloatField("LIVAREA", 14, 1),
	shp.FloatField("PPSQFT", 14, 2),
	shp.StringField("CITY", 64),
	shp.StringField("STATE", 16),
	shp.StringField("HOMETYPE", 32),
}

const (
	colZpid = iota
	colPrice
	colBedrooms
	colBathrooms
	colLivingArea
	colPricePerSqft
	colCity
	colState
	colHomeType
)

type Exporter struct{}

func New() *Exporter { return &Exporter{} }

// Export writes one point per row with finite coordinates and returns how
// many were written. Missing numeric attributes are left blank.
func (e *Exporter) Export(path string, cols domain.PropertyColumns) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".shp") {
		path += ".shp"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, fmt.Errorf("create shapefile: %w", err)
	}
	if err := w.SetFields(fields); err != nil {
		w.Close()
		return 0, fmt.Errorf("set fields: %w", err)
	}

	n, werr := writeRows(w, cols)
	w.Close()
	if err := fixDbfName(path); err != nil {
		return 0, err
	}
	if werr != nil {
		return 0, werr
	}
	return n, nil
}

func writeRows(w *shp.Writer, cols domain.PropertyColumns) (int, error) {
	n := 0
	for i := 0; i < cols.Len(); i++ {
		lat, lon := cols.Latitude[i], cols.Longitude[i]
		if !finite(lat) || !finite(lon) {
			continue
		}
		row := int(w.Write(&shp.Point{X: lon, Y: lat}))

		values := [...]any{
			colZpid:         cols.Zpid[i],
			colPrice:        cols.Price[i],
			colBedrooms:     cols.Bedrooms[i],
			colBathrooms:    cols.Bathrooms[i],
			colLivingArea:   cols.LivingArea[i],
			colPricePerSqft: cols.PricePerSqft[i],
			colCity:         cols.City[i],
			colState:        cols.State[i],
			colHomeType:     cols.HomeType[i],
		}
		for f, v := range values {
			if err := w.WriteAttribute(row, f, cell(fields[f], v)); err != nil {
				return n, fmt.Errorf("row %d field %s: %w", i, fields[f], err)
			}
		}
		n++
	}
	return n, nil
}

// cell renders v at the field's full width: numbers right-aligned, text
// left-aligned, missing values as blanks.
func cell(f shp.Field, v any) string {
	width := int(f.Size)
	switch v := v.(type) {
	case int64:
		return pad(strconv.FormatInt(v, 10), width, true)
	case float64:
		if !finite(v) {
			return strings.Repeat(" ", width)
		}
		return pad(strconv.FormatFloat(v, 'f', int(f.Precision), 64), width, true)
	case string:
		return pad(clip(v, f.Size), width, false)
	}
	return strings.Repeat(" ", width)
}

// pad returns s unchanged when it does not fit, so the writer reports it.
func pad(s string, width int, right bool) string {
	if len(s) >= width {
		return s
	}
	fill := strings.Repeat(" ", width-len(s))
	if right {
		return fill + s
	}
	return s + fill
}

// fixDbfName moves the attribute table to <base>.dbf; the writer names it
// <base>dbf.
func fixDbfName(path string) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	err := os.Rename(base+"dbf", base+".dbf")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("rename dbf: %w", err)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// clip truncates s to at most n bytes without splitting a rune.
func clip(s string, n uint8) string {
	if len(s) <= int(n) {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
