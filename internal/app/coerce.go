package app

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"property_insights/internal/domain"
)

// DefaultLabel is the fallback for missing text fields.
const DefaultLabel = "Unknown"

/********** coercion (the only boundary between raw input and typed columns) **********/

// CoerceFloat returns v as a float64, or the missing marker (NaN) when v is
// absent, not numeric, or NaN. Infinities are kept.
func CoerceFloat(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return domain.Missing()
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		n, ok := parseFloat(string(x))
		if !ok {
			return domain.Missing()
		}
		f = n
	case string:
		n, ok := parseFloat(strings.TrimSpace(x))
		if !ok {
			return domain.Missing()
		}
		f = n
	default:
		return domain.Missing()
	}
	if math.IsNaN(f) {
		return domain.Missing()
	}
	return f
}

// parseFloat accepts out-of-range literals as the ±Inf ParseFloat returns
// alongside ErrRange.
func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return f, true
}

// CoerceInt returns v truncated toward zero, or 0 when v is absent, not
// numeric, non-finite, or outside the int64 range.
func CoerceInt(v any) int64 {
	// exact path for integer literals so large ids keep every digit
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return n
		}
	}

	f := CoerceFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	if t >= math.MaxInt64 || t < math.MinInt64 {
		return 0
	}
	return int64(t)
}

// CoerceString returns the trimmed string when v is a non-blank string, and
// fallback otherwise.
func CoerceString(v any, fallback string) string {
	if s, ok := v.(string); ok {
		if t := strings.TrimSpace(s); t != "" {
			return t
		}
	}
	return fallback
}
