package domain

import "math"

// PropertyRecord is one loosely-typed listing as decoded from the input JSON.
// Every field is optional; values are read through the coercion helpers in app.
type PropertyRecord map[string]any

// Field names read from a PropertyRecord, in archive column order.
const (
	FieldZpid         = "zpid"
	FieldPrice        = "price"
	FieldBedrooms     = "bedrooms"
	FieldBathrooms    = "bathrooms"
	FieldLivingArea   = "livingArea"
	FieldLatitude     = "latitude"
	FieldLongitude    = "longitude"
	FieldPricePerSqft = "pricePerSqft"
	FieldCity         = "city"
	FieldState        = "state"
	FieldHomeType     = "homeType"
)

// PropertyColumns is the raw coerced property data laid out one slice per field.
// All slices have the same length; row i of every slice is input record i.
type PropertyColumns struct {
	Zpid         []int64
	Price        []float64
	Bedrooms     []float64
	Bathrooms    []float64
	LivingArea   []float64
	Latitude     []float64
	Longitude    []float64
	PricePerSqft []float64
	City         []string
	State        []string
	HomeType     []string
}

// NewPropertyColumns allocates empty columns with room for n rows.
func NewPropertyColumns(n int) PropertyColumns {
	return PropertyColumns{
		Zpid:         make([]int64, 0, n),
		Price:        make([]float64, 0, n),
		Bedrooms:     make([]float64, 0, n),
		Bathrooms:    make([]float64, 0, n),
		LivingArea:   make([]float64, 0, n),
		Latitude:     make([]float64, 0, n),
		Longitude:    make([]float64, 0, n),
		PricePerSqft: make([]float64, 0, n),
		City:         make([]string, 0, n),
		State:        make([]string, 0, n),
		HomeType:     make([]string, 0, n),
	}
}

// Len returns the number of rows.
func (c PropertyColumns) Len() int { return len(c.Zpid) }

// Missing is the on-disk and in-memory marker for an absent numeric value.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether f is the missing-value marker.
func IsMissing(f float64) bool { return math.IsNaN(f) }
