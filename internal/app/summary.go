package app

import (
	"math"

	"property_insights/internal/domain"
)

// maybe maps the missing marker (and infinities) to nil; this is the only
// place stored floats become JSON nulls.
func maybe(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Summarize projects stored aggregates into the read-side JSON document.
func Summarize(s domain.StoredAggregates) domain.InsightsSummary {
	agg := s.Aggregations

	cities := make([]domain.CitySummary, 0, len(agg.Cities))
	for _, c := range agg.Cities {
		cities = append(cities, domain.CitySummary{
			City:              c.City,
			Properties:        c.Count,
			AveragePrice:      maybe(c.AveragePrice),
			AverageLivingArea: maybe(c.AverageLivingArea),
		})
	}

	homeTypes := make([]domain.HomeTypeSummary, 0, len(agg.HomeTypes))
	for _, h := range agg.HomeTypes {
		homeTypes = append(homeTypes, domain.HomeTypeSummary{
			HomeType:     h.HomeType,
			Properties:   h.Count,
			AveragePrice: maybe(h.AveragePrice),
		})
	}

	bands := make([]domain.BedroomSummary, 0, len(agg.BedroomBands))
	for _, b := range agg.BedroomBands {
		bands = append(bands, domain.BedroomSummary{Band: b.Band, Properties: b.Count})
	}

	totals := make(map[string]*float64, len(s.MarketTotals))
	for k, v := range s.MarketTotals {
		totals[k] = maybe(v)
	}

	q := agg.PriceQuartiles
	return domain.InsightsSummary{
		CityPriceSummary:    cities,
		HomeTypeSummary:     homeTypes,
		BedroomDistribution: bands,
		PriceQuartiles: domain.QuartileSummary{
			Min:    maybe(q.Min()),
			Q1:     maybe(q.Q1()),
			Median: maybe(q.Median()),
			Q3:     maybe(q.Q3()),
			Max:    maybe(q.Max()),
		},
		AveragePricePerSqft: maybe(agg.PricePerSqftMean),
		MarketTotals:        totals,
	}
}
