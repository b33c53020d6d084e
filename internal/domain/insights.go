package domain

import "time"

// CityStat is one row of the per-city table.
type CityStat struct {
	City              string
	Count             int64
	AveragePrice      float64 // NaN when no valid price in the group
	AverageLivingArea float64 // NaN when no valid area, or the areas sum to 0
}

type HomeTypeStat struct {
	HomeType     string
	Count        int64
	AveragePrice float64
}

type BedroomBand struct {
	Band  string
	Count int64
}

// Quartiles holds the 0/25/50/75/100th percentiles of the valid prices.
type Quartiles [5]float64

func (q Quartiles) Min() float64    { return q[0] }
func (q Quartiles) Q1() float64     { return q[1] }
func (q Quartiles) Median() float64 { return q[2] }
func (q Quartiles) Q3() float64     { return q[3] }
func (q Quartiles) Max() float64    { return q[4] }

// Aggregations are the precomputed grouped tables stored in the archive.
type Aggregations struct {
	Cities           []CityStat
	HomeTypes        []HomeTypeStat
	BedroomBands     []BedroomBand
	PriceQuartiles   Quartiles
	PricePerSqftMean float64 // mean of the records' own pricePerSqft field
}

// Global metric attribute names.
const (
	MetricTotalProperties     = "total_properties"
	MetricAveragePrice        = "average_price"
	MetricMedianPrice         = "median_price"
	MetricAverageLivingArea   = "average_living_area"
	MetricAveragePricePerSqft = "average_price_per_sqft"
)

// GlobalMetrics are the scalar market totals.
type GlobalMetrics struct {
	TotalProperties   int64
	AveragePrice      float64
	MedianPrice       float64
	AverageLivingArea float64
	// AveragePricePerSqft is derived from price/livingArea per record, unlike
	// Aggregations.PricePerSqftMean which averages the pricePerSqft field.
	AveragePricePerSqft float64
}

// Archive is everything persisted by one build.
type Archive struct {
	Properties   PropertyColumns
	Aggregations Aggregations
	Metrics      GlobalMetrics
}

// ArchiveInfo identifies an archive on disk.
type ArchiveInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// BuildResult is returned by a successful build.
type BuildResult struct {
	Status           string `json:"status"`
	PropertiesStored int    `json:"propertiesStored"`
}

// ExportResult is returned by a successful shapefile export.
type ExportResult struct {
	Status          string `json:"status"`
	FeaturesWritten int    `json:"featuresWritten"`
	Path            string `json:"path"`
}

/********** read models (JSON boundary, nil = no value) **********/

type CitySummary struct {
	City              string   `json:"city"`
	Properties        int64    `json:"properties"`
	AveragePrice      *float64 `json:"averagePrice"`
	AverageLivingArea *float64 `json:"averageLivingArea"`
}

type HomeTypeSummary struct {
	HomeType     string   `json:"homeType"`
	Properties   int64    `json:"properties"`
	AveragePrice *float64 `json:"averagePrice"`
}

type BedroomSummary struct {
	Band       string `json:"band"`
	Properties int64  `json:"properties"`
}

type QuartileSummary struct {
	Min    *float64 `json:"min"`
	Q1     *float64 `json:"q1"`
	Median *float64 `json:"median"`
	Q3     *float64 `json:"q3"`
	Max    *float64 `json:"max"`
}

// InsightsSummary is the JSON document produced by a read.
type InsightsSummary struct {
	CityPriceSummary    []CitySummary       `json:"cityPriceSummary"`
	HomeTypeSummary     []HomeTypeSummary   `json:"homeTypeSummary"`
	BedroomDistribution []BedroomSummary    `json:"bedroomDistribution"`
	PriceQuartiles      QuartileSummary     `json:"priceQuartiles"`
	AveragePricePerSqft *float64            `json:"averagePricePerSqft"`
	MarketTotals        map[string]*float64 `json:"marketTotals"`
}

// StoredAggregates is what a read decodes: the aggregation tables plus every
// global_metrics attribute as a float.
type StoredAggregates struct {
	Aggregations Aggregations
	MarketTotals map[string]float64
}
