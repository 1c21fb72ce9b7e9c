package form

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Coercion converts raw input into the value stored for a field.
type Coercion int

const (
	// CoerceNone stores input unchanged.
	CoerceNone Coercion = iota
	// CoerceNumber parses input as float64. Empty or malformed input becomes
	// NaN, which required rules treat as missing.
	CoerceNumber
	// CoerceDate parses input as a calendar date (2006-01-02, UTC) or RFC 3339
	// timestamp. Empty or malformed input becomes the zero time.
	CoerceDate
)

// DateLayout is the layout used for date inputs.
const DateLayout = "2006-01-02"

// Apply converts raw according to the coercion.
func (c Coercion) Apply(raw any) any {
	switch c {
	case CoerceNumber:
		return toNumber(raw)
	case CoerceDate:
		return toDate(raw)
	default:
		return raw
	}
}

func (c Coercion) String() string {
	switch c {
	case CoerceNumber:
		return "number"
	case CoerceDate:
		return "date"
	default:
		return "none"
	}
}

func toNumber(raw any) any {
	switch v := raw.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return math.NaN()
		}
		n, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return n
	default:
		return math.NaN()
	}
}

func toDate(raw any) any {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return time.Time{}
		}
		if t, err := time.ParseInLocation(DateLayout, trimmed, time.UTC); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return t
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}
