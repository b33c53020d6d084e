package app

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"property_insights/internal/domain"
)

const (
	bedroomCap     = 5
	bedroomCapBand = "5+"
	unrankedBand   = 99 // sorts after every numeric band
)

// Aggregate builds the grouped tables stored in the aggregations section.
func Aggregate(cols domain.PropertyColumns) domain.Aggregations {
	return domain.Aggregations{
		Cities:           cityStats(cols),
		HomeTypes:        homeTypeStats(cols),
		BedroomBands:     bedroomBands(cols),
		PriceQuartiles:   quartiles(cols.Price),
		PricePerSqftMean: mean(validValues(cols.PricePerSqft)),
	}
}

/********** grouping **********/

// running accumulates one group; only valid values enter the sums.
type running struct {
	count    int64
	priceSum float64
	priceN   int64
	sqftSum  float64
	sqftN    int64
}

func (r *running) add(price, sqft float64) {
	r.count++
	if !domain.IsMissing(price) {
		r.priceSum += price
		r.priceN++
	}
	if !domain.IsMissing(sqft) {
		r.sqftSum += sqft
		r.sqftN++
	}
}

func (r *running) avgPrice() float64 {
	if r.priceN == 0 {
		return domain.Missing()
	}
	return r.priceSum / float64(r.priceN)
}

func (r *running) avgSqft() float64 {
	if r.sqftN == 0 || r.sqftSum == 0 {
		return domain.Missing()
	}
	return r.sqftSum / float64(r.sqftN)
}

// groupOrdered groups row indexes by key, remembering first-occurrence order.
func groupOrdered(keys []string, add func(g *running, row int)) ([]string, map[string]*running) {
	groups := make(map[string]*running)
	order := make([]string, 0)
	for i, k := range keys {
		g, ok := groups[k]
		if !ok {
			g = &running{}
			groups[k] = g
			order = append(order, k)
		}
		add(g, i)
	}
	return order, groups
}

func cityStats(cols domain.PropertyColumns) []domain.CityStat {
	order, groups := groupOrdered(cols.City, func(g *running, i int) {
		g.add(cols.Price[i], cols.LivingArea[i])
	})
	out := make([]domain.CityStat, 0, len(order))
	for _, city := range order {
		g := groups[city]
		out = append(out, domain.CityStat{
			City:              city,
			Count:             g.count,
			AveragePrice:      g.avgPrice(),
			AverageLivingArea: g.avgSqft(),
		})
	}
	return out
}

func homeTypeStats(cols domain.PropertyColumns) []domain.HomeTypeStat {
	order, groups := groupOrdered(cols.HomeType, func(g *running, i int) {
		g.add(cols.Price[i], domain.Missing())
	})
	out := make([]domain.HomeTypeStat, 0, len(order))
	for _, ht := range order {
		g := groups[ht]
		out = append(out, domain.HomeTypeStat{
			HomeType:     ht,
			Count:        g.count,
			AveragePrice: g.avgPrice(),
		})
	}
	return out
}

/********** bedroom bands **********/

// bedroomLabel bands a coerced bedroom count. Absent and unparseable values
// share the fallback label.
func bedroomLabel(bedrooms float64) string {
	if domain.IsMissing(bedrooms) || math.IsInf(bedrooms, 0) {
		return DefaultLabel
	}
	n := math.RoundToEven(bedrooms)
	if n >= bedroomCap {
		return bedroomCapBand
	}
	if n == 0 {
		return "0" // not "-0"
	}
	return strconv.FormatFloat(n, 'f', 0, 64)
}

// bandRank orders "0".."4" numerically, "N+" by N, anything else last.
func bandRank(label string) int {
	if prefix, ok := strings.CutSuffix(label, "+"); ok {
		label = prefix
	}
	if isDigits(label) {
		if n, err := strconv.Atoi(label); err == nil {
			return n
		}
	}
	return unrankedBand
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func bedroomBands(cols domain.PropertyColumns) []domain.BedroomBand {
	counts := make(map[string]int64)
	order := make([]string, 0)
	for _, b := range cols.Bedrooms {
		label := bedroomLabel(b)
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	sort.SliceStable(order, func(i, j int) bool { return bandRank(order[i]) < bandRank(order[j]) })

	out := make([]domain.BedroomBand, 0, len(order))
	for _, label := range order {
		out = append(out, domain.BedroomBand{Band: label, Count: counts[label]})
	}
	return out
}
