package utils

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`-?[\d.]+`)

// ParsePrice converts a price string such as "$1,299.00" to float64.
// Unparseable input yields 0.
func ParsePrice(priceStr string) float64 {
	if priceStr == "" {
		return 0
	}

	// Remove currency symbols and clean up
	cleanPrice := strings.ReplaceAll(priceStr, "$", "")
	cleanPrice = strings.ReplaceAll(cleanPrice, ",", "")
	cleanPrice = strings.TrimSpace(cleanPrice)

	match := numberPattern.FindString(cleanPrice)
	if match == "" {
		return 0
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0
	}

	return price
}

// Float coerces a decoded JSON value to float64. Numbers pass through,
// numeric strings go through ParsePrice, everything else is 0.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	case float32:
		return Float(float64(n))
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return Float(f)
	case string:
		return ParsePrice(n)
	default:
		return 0
	}
}

// OptionalFloat is Float for fields where absence matters.
func OptionalFloat(v any) *float64 {
	if v == nil {
		return nil
	}
	switch v.(type) {
	case float64, float32, int, int64, json.Number, string:
		f := Float(v)
		return &f
	default:
		return nil
	}
}

// Int coerces a decoded JSON value to a non-negative int.
func Int(v any) int {
	f := Float(v)
	if f <= 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// Bool coerces a decoded JSON value to bool. Only true and "true" are true.
func Bool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	default:
		return false
	}
}

// String coerces a decoded JSON value to its textual representation.
// Missing and structured values yield "".
func String(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// List turns a comma separated string or a JSON array into a slice of
// strings. String segments are trimmed and empty ones dropped. Array
// elements are coerced with String and dropped only when that yields "".
// Order is kept and duplicates are not removed.
func List(v any) []string {
	switch l := v.(type) {
	case string:
		return SplitList(l)
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		return out
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s := String(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return []string{}
	}
}

// SplitList splits a comma separated list.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
