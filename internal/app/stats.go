package app

import (
	"math"
	"sort"

	"property_insights/internal/domain"
)

// validValues drops missing entries.
func validValues(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !domain.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}

// mean of vals, or missing when vals is empty.
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return domain.Missing()
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// percentile returns the p-th percentile (0..100) of an ascending slice using
// linear interpolation between the closest ranks.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return domain.Missing()
	}
	pos := p / 100 * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// quartiles computes min/q1/median/q3/max over the valid values.
func quartiles(vals []float64) domain.Quartiles {
	valid := validValues(vals)
	var q domain.Quartiles
	if len(valid) == 0 {
		for i := range q {
			q[i] = domain.Missing()
		}
		return q
	}
	sort.Float64s(valid)
	for i, p := range []float64{0, 25, 50, 75, 100} {
		q[i] = percentile(valid, p)
	}
	return q
}

// ComputeGlobalMetrics derives the market totals over the whole collection.
func ComputeGlobalMetrics(cols domain.PropertyColumns) domain.GlobalMetrics {
	prices := validValues(cols.Price)
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	var ratios []float64
	for i := range cols.Price {
		price, area := cols.Price[i], cols.LivingArea[i]
		if domain.IsMissing(price) || domain.IsMissing(area) || area <= 0 {
			continue
		}
		ratios = append(ratios, price/area)
	}

	return domain.GlobalMetrics{
		TotalProperties:     int64(cols.Len()),
		AveragePrice:        mean(prices),
		MedianPrice:         percentile(sorted, 50),
		AverageLivingArea:   mean(validValues(cols.LivingArea)),
		AveragePricePerSqft: mean(ratios),
	}
}
