package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"property_insights/internal/adapters/observability"
	"property_insights/internal/app"
	"property_insights/internal/domain"
)

// ---- fakes ----

type fakeStore struct {
	written   map[string]domain.Archive
	info      domain.ArchiveInfo
	reads     int
	writeErr  error
	aggregate domain.StoredAggregates
}

func (f *fakeStore) Write(path string, a domain.Archive) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.written == nil {
		f.written = map[string]domain.Archive{}
	}
	f.written[path] = a
	return nil
}

func (f *fakeStore) Info(path string) (domain.ArchiveInfo, error) {
	if _, ok := f.written[path]; !ok {
		return domain.ArchiveInfo{}, domain.ErrArchiveNotFound
	}
	return f.info, nil
}

func (f *fakeStore) ReadAggregates(path string) (domain.StoredAggregates, error) {
	a, ok := f.written[path]
	if !ok {
		return domain.StoredAggregates{}, domain.ErrArchiveNotFound
	}
	f.reads++
	if f.aggregate.MarketTotals != nil {
		return f.aggregate, nil
	}
	return domain.StoredAggregates{
		Aggregations: a.Aggregations,
		MarketTotals: map[string]float64{
			domain.MetricTotalProperties: float64(a.Metrics.TotalProperties),
			domain.MetricAveragePrice:    a.Metrics.AveragePrice,
		},
	}, nil
}

func (f *fakeStore) ReadProperties(path string) (domain.PropertyColumns, error) {
	a, ok := f.written[path]
	if !ok {
		return domain.PropertyColumns{}, domain.ErrArchiveNotFound
	}
	return a.Properties, nil
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

// ---- tests ----

func TestSummary_NullsNeverZeros(t *testing.T) {
	store := &fakeStore{}
	props := []domain.PropertyRecord{
		{"city": "Austin", "homeType": "CONDO"},
		{"city": "Austin", "homeType": "CONDO", "bedrooms": 2.0},
	}
	if _, err := app.NewBuildService(store, nil).Build(context.Background(), props, "a.h5"); err != nil {
		t.Fatalf("build: %v", err)
	}

	out, err := app.NewQueryService(store, nil, time.Minute).Summary(context.Background(), "a.h5")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if out.CityPriceSummary[0].AveragePrice != nil || out.HomeTypeSummary[0].AveragePrice != nil {
		t.Fatalf("expected null averages: %+v", out)
	}
	if out.PriceQuartiles.Min != nil || out.PriceQuartiles.Max != nil || out.AveragePricePerSqft != nil {
		t.Fatalf("expected null distribution: %+v", out.PriceQuartiles)
	}
	if v := out.MarketTotals[domain.MetricTotalProperties]; v == nil || *v != 2 {
		t.Fatalf("total_properties: %v", v)
	}
	if out.MarketTotals[domain.MetricAveragePrice] != nil {
		t.Fatalf("average_price should be null")
	}

	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("summary must be JSON-serializable: %v", err)
	}
	var generic map[string]any
	if err := json.Unmarshal(b, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if generic["averagePricePerSqft"] != nil {
		t.Fatalf("expected explicit null, got %v", generic["averagePricePerSqft"])
	}
}

func TestSummary_InfinityBecomesNull(t *testing.T) {
	store := &fakeStore{
		written: map[string]domain.Archive{"x.h5": {}},
		aggregate: domain.StoredAggregates{
			Aggregations: domain.Aggregations{
				Cities:           []domain.CityStat{{City: "X", Count: 1, AveragePrice: math.Inf(1), AverageLivingArea: 10}},
				PriceQuartiles:   domain.Quartiles{math.Inf(-1), 1, 2, 3, math.NaN()},
				PricePerSqftMean: math.Inf(1),
			},
			MarketTotals: map[string]float64{"average_price": math.Inf(1)},
		},
	}
	out, err := app.NewQueryService(store, nil, time.Minute).Summary(context.Background(), "x.h5")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if out.CityPriceSummary[0].AveragePrice != nil || *out.CityPriceSummary[0].AverageLivingArea != 10 {
		t.Fatalf("city: %+v", out.CityPriceSummary[0])
	}
	if out.PriceQuartiles.Min != nil || out.PriceQuartiles.Max != nil || *out.PriceQuartiles.Median != 2 {
		t.Fatalf("quartiles: %+v", out.PriceQuartiles)
	}
	if out.AveragePricePerSqft != nil || out.MarketTotals["average_price"] != nil {
		t.Fatalf("infinities leaked: %+v", out)
	}
	if _, err := json.Marshal(out); err != nil {
		t.Fatalf("marshal: %v", err)
	}
}

func TestSummary_NotFound(t *testing.T) {
	q := app.NewQueryService(&fakeStore{}, &fakeCache{}, time.Minute)
	if _, err := q.Summary(context.Background(), "missing.h5"); !errors.Is(err, domain.ErrArchiveNotFound) {
		t.Fatalf("expected ErrArchiveNotFound, got %v", err)
	}
}

func TestSummary_CacheMissThenHit(t *testing.T) {
	mtime := time.Unix(1700000000, 0)
	store := &fakeStore{info: domain.ArchiveInfo{Path: "c.h5", Size: 100, ModTime: mtime}}
	cache := &fakeCache{}
	b := app.NewBuildService(store, cache)
	q := app.NewQueryService(store, cache, 10*time.Minute)
	ctx := context.Background()

	if _, err := b.Build(ctx, []domain.PropertyRecord{{"city": "Boise", "price": 10.0}}, "c.h5"); err != nil {
		t.Fatalf("build: %v", err)
	}

	// Miss (first time, populates cache)
	first, err := q.Summary(ctx, "c.h5")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	// Hit (served from cache)
	second, err := q.Summary(ctx, "c.h5")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if store.reads != 1 {
		t.Fatalf("expected one archive read, got %d", store.reads)
	}
	if second.CityPriceSummary[0].City != first.CityPriceSummary[0].City || *second.CityPriceSummary[0].AveragePrice != 10 {
		t.Fatalf("cached summary differs: %+v", second)
	}

	// archive changed on disk -> cached entry no longer matches
	store.info.ModTime = mtime.Add(time.Second)
	if _, err := q.Summary(ctx, "c.h5"); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if store.reads != 2 {
		t.Fatalf("expected a fresh read after mtime change, got %d reads", store.reads)
	}
}

func TestSummary_StaleEntryIsNotCountedAsHit(t *testing.T) {
	events := func(event string) float64 {
		return testutil.ToFloat64(observability.CacheEvents.WithLabelValues("summary", event))
	}
	mtime := time.Unix(1700000000, 0)
	store := &fakeStore{info: domain.ArchiveInfo{Path: "s.h5", Size: 10, ModTime: mtime}}
	cache := &fakeCache{}
	q := app.NewQueryService(store, cache, time.Minute)
	ctx := context.Background()
	if _, err := app.NewBuildService(store, nil).Build(ctx, nil, "s.h5"); err != nil {
		t.Fatalf("build: %v", err)
	}

	hits, misses, stale := events("hit"), events("miss"), events("stale")
	if _, err := q.Summary(ctx, "s.h5"); err != nil { // miss
		t.Fatalf("summary: %v", err)
	}
	if _, err := q.Summary(ctx, "s.h5"); err != nil { // hit
		t.Fatalf("summary: %v", err)
	}
	store.info.Size = 11
	if _, err := q.Summary(ctx, "s.h5"); err != nil { // stale
		t.Fatalf("summary: %v", err)
	}

	if d := events("hit") - hits; d != 1 {
		t.Fatalf("hits: +%v, want +1", d)
	}
	if d := events("miss") - misses; d != 1 {
		t.Fatalf("misses: +%v, want +1", d)
	}
	if d := events("stale") - stale; d != 1 {
		t.Fatalf("stale: +%v, want +1", d)
	}
}
