// Package archive stores insights as a signature followed by one BSON
// document. The file is not HDF5; the ".h5" default path is kept only so
// existing callers keep finding it.
package archive

import "errors"

// signature prefixes every archive file; the rest of the file is one BSON
// document holding the three sections.
const signature = "\x89EWI\r\n\x1a\n"

// Section names.
const (
	sectionProperties    = "properties"
	sectionAggregations  = "aggregations"
	sectionGlobalMetrics = "global_metrics"
)

var ErrBadSignature = errors.New("not an insights archive")

// -----------------------------------------------------------------------------
// SECTION DOCUMENTS (field order is the on-disk order)
// -----------------------------------------------------------------------------

// propertiesDoc holds one typed column per raw property field.
type propertiesDoc struct {
	Zpid         []int64   `bson:"zpid"`
	Price        []float64 `bson:"price"`
	Bedrooms     []float64 `bson:"bedrooms"`
	Bathrooms    []float64 `bson:"bathrooms"`
	LivingArea   []float64 `bson:"livingArea"`
	Latitude     []float64 `bson:"latitude"`
	Longitude    []float64 `bson:"longitude"`
	PricePerSqft []float64 `bson:"pricePerSqft"`
	City         []string  `bson:"city"`
	State        []string  `bson:"state"`
	HomeType     []string  `bson:"homeType"`
}

type aggregationsDoc struct {
	CityNames        []string  `bson:"city_names"`
	CityCounts       []int64   `bson:"city_counts"`
	CityAvgPrice     []float64 `bson:"city_avg_price"`
	CityAvgSqft      []float64 `bson:"city_avg_sqft"`
	HomeTypes        []string  `bson:"home_types"`
	HomeTypeCounts   []int64   `bson:"home_type_counts"`
	HomeTypeAvgPrice []float64 `bson:"home_type_avg_price"`
	BedroomBands     []string  `bson:"bedroom_bands"`
	BedroomCounts    []int64   `bson:"bedroom_counts"`
	PriceQuartiles   []float64 `bson:"price_quartiles"`
	PricePerSqftMean []float64 `bson:"price_per_sqft_mean"`
}

// globalMetricsDoc is written as scalar attributes; reads walk the attributes
// generically so every stored one reaches the summary.
type globalMetricsDoc struct {
	TotalProperties     int64   `bson:"total_properties"`
	AveragePrice        float64 `bson:"average_price"`
	MedianPrice         float64 `bson:"median_price"`
	AverageLivingArea   float64 `bson:"average_living_area"`
	AveragePricePerSqft float64 `bson:"average_price_per_sqft"`
}

type archiveDoc struct {
	Properties    propertiesDoc    `bson:"properties"`
	Aggregations  aggregationsDoc  `bson:"aggregations"`
	GlobalMetrics globalMetricsDoc `bson:"global_metrics"`
}
