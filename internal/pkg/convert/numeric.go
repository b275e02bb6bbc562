// Package convert provides type conversion utilities.
package convert

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ToFloat64 converts various numeric types to float64.
// Returns 0 for unsupported types, parse failures and non-finite values.
func ToFloat64(v any) float64 {
	var f float64
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case int32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		f, _ = t.Float64()
	case decimal.Decimal:
		f = t.InexactFloat64()
	case gjson.Result:
		return Number(t)
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Number coerces a gjson value that may be a JSON number or a numeric
// string. Missing, boolean, object and malformed values yield 0.
func Number(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return ToFloat64(r.Num)
	case gjson.String:
		return ToFloat64(r.Str)
	default:
		return 0
	}
}

// Int64 is Number truncated to an integer, used for epoch timestamps.
func Int64(r gjson.Result) int64 {
	switch r.Type {
	case gjson.Number:
		return r.Int()
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		return int64(ToFloat64(s))
	default:
		return 0
	}
}

// FromFixed scales an integer string carrying `decimals` implied decimal
// places, e.g. GMX prices are USD * 10^30 / 10^tokenDecimals.
func FromFixed(raw string, decimals int32) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return d.Shift(-decimals).InexactFloat64()
}
