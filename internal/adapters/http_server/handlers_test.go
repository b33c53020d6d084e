package httpserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	httpserver "property_insights/internal/adapters/http_server"
	"property_insights/internal/app"
	"property_insights/internal/storage/archive"
)

func newAPI(t *testing.T, maxBody int64, limit *rate.Limiter) http.Handler {
	t.Helper()
	return newLoggedAPI(t, maxBody, limit, zerolog.Nop())
}

func newLoggedAPI(t *testing.T, maxBody int64, limit *rate.Limiter, l zerolog.Logger) http.Handler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "insights.h5")
	store := archive.New()
	h := httpserver.NewHandlers(
		app.NewBuildService(store, nil),
		app.NewQueryService(store, nil, time.Minute),
		path, maxBody, 1,
	)
	srv := httpserver.New(5*time.Second, l)
	var mw func(http.Handler) http.Handler
	if limit != nil {
		mw = httpserver.RateLimit(limit)
	}
	srv.MountHandlers(h, mw)
	return srv.Mux()
}

func do(h http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSummaryBeforeBuildIs404(t *testing.T) {
	h := newAPI(t, 0, nil)
	rec := do(h, http.MethodGet, "/v1/insights", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content type: %s", ct)
	}
}

func TestBuildThenSummary(t *testing.T) {
	h := newAPI(t, 0, nil)
	body := `{"properties":[
		{"zpid":1,"city":"Austin","price":300000,"livingArea":1500,"bedrooms":3},
		{"zpid":2,"city":"Austin","price":"500000","livingArea":2500,"bedrooms":6},
		{"zpid":3,"city":"Dallas","homeType":"CONDO"}
	]}`

	rec := do(h, http.MethodPost, "/v1/insights", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("build status %d: %s", rec.Code, rec.Body)
	}
	var res struct {
		Status           string `json:"status"`
		PropertiesStored int    `json:"propertiesStored"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil || res.Status != "ok" || res.PropertiesStored != 3 {
		t.Fatalf("build result %+v err %v", res, err)
	}

	rec = do(h, http.MethodGet, "/v1/insights", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status %d: %s", rec.Code, rec.Body)
	}
	var sum struct {
		CityPriceSummary []struct {
			City         string   `json:"city"`
			Properties   int      `json:"properties"`
			AveragePrice *float64 `json:"averagePrice"`
		} `json:"cityPriceSummary"`
		BedroomDistribution []struct {
			Band string `json:"band"`
		} `json:"bedroomDistribution"`
		MarketTotals map[string]*float64 `json:"marketTotals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sum.CityPriceSummary) != 2 || *sum.CityPriceSummary[0].AveragePrice != 400000 {
		t.Fatalf("cities: %+v", sum.CityPriceSummary)
	}
	if sum.CityPriceSummary[1].AveragePrice != nil {
		t.Fatalf("dallas has no prices, want null")
	}
	if got := sum.BedroomDistribution; len(got) != 3 || got[0].Band != "3" || got[1].Band != "5+" || got[2].Band != "Unknown" {
		t.Fatalf("bands: %+v", got)
	}
	if v := sum.MarketTotals["total_properties"]; v == nil || *v != 3 {
		t.Fatalf("totals: %+v", sum.MarketTotals)
	}

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	rec = do(h, http.MethodGet, "/v1/insights", "", map[string]string{"If-None-Match": etag})
	if rec.Code != http.StatusNotModified {
		t.Fatalf("conditional GET: %d", rec.Code)
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	h := newAPI(t, 64, nil)

	if rec := do(h, http.MethodPost, "/v1/insights", `{"properties": 5}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rec.Code)
	}
	big := `{"properties":[` + strings.Repeat(`{"city":"x"},`, 20) + `{}]}`
	if rec := do(h, http.MethodPost, "/v1/insights", big, nil); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body: %d", rec.Code)
	}
}

func TestBuildRateLimited(t *testing.T) {
	h := newAPI(t, 0, rate.NewLimiter(rate.Every(time.Hour), 1))

	if rec := do(h, http.MethodPost, "/v1/insights", `{"properties":[]}`, nil); rec.Code != http.StatusOK {
		t.Fatalf("first build: %d %s", rec.Code, rec.Body)
	}
	rec := do(h, http.MethodPost, "/v1/insights", `{"properties":[]}`, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second build: %d", rec.Code)
	}
	// reads are not limited
	if rec := do(h, http.MethodGet, "/v1/insights", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("summary after limit: %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	rec := do(newAPI(t, 0, nil), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body)
	}
}

func TestRequestLogCarriesRequestIDAndOp(t *testing.T) {
	var buf bytes.Buffer
	h := newLoggedAPI(t, 0, rate.NewLimiter(rate.Every(time.Hour), 1), zerolog.New(&buf))

	do(h, http.MethodPost, "/v1/insights", `{"properties":[]}`, map[string]string{"X-Request-Id": "req-42"})
	do(h, http.MethodPost, "/v1/insights", `{"properties":[]}`, nil) // rate limited
	do(h, http.MethodGet, "/v1/insights", "", nil)
	do(h, http.MethodGet, "/healthz", "", nil)

	var lines []map[string]any
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			t.Fatalf("log line: %v", err)
		}
		if m["message"] == "http_request" {
			lines = append(lines, m)
		}
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 request lines, got %d", len(lines))
	}
	if lines[0]["request_id"] != "req-42" || lines[0]["op"] != "build" || lines[0]["status"] != 200.0 {
		t.Fatalf("build line: %v", lines[0])
	}
	if lines[1]["op"] != "build" || lines[1]["status"] != 429.0 || lines[1]["request_id"] == "" {
		t.Fatalf("limited line: %v", lines[1])
	}
	if lines[2]["op"] != "summary" || lines[2]["route"] != "/v1/insights" {
		t.Fatalf("summary line: %v", lines[2])
	}
	if lines[3]["op"] != "none" {
		t.Fatalf("healthz line: %v", lines[3])
	}
}
