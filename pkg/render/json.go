package render

import (
	"math"
)

// JSONValues returns a copy of values that encoding/json accepts: NaN numbers
// (empty or unparsable number inputs) become null.
func JSONValues(values map[string]any) map[string]any {
	out, _ := jsonSafe(values).(map[string]any)
	return out
}

func jsonSafe(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, entry := range v {
			out[key] = jsonSafe(entry)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for idx, entry := range v {
			out[idx] = jsonSafe(entry)
		}
		return out
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	default:
		return v
	}
}
