package shared

import (
	"fmt"
	"strconv"
	"strings"
)

// Str reads a string field from a decoded payload, tolerating both the
// JSON-body form (already a string) and the GET-query form (also always
// a string, per controller.parsePayload), returning ok=false if absent.
func Str(payload map[string]any, key string) (string, bool) {
	v, ok := payload[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float reads a numeric field, accepting both JSON numbers (float64)
// and the string form query parameters arrive as.
func Float(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Int reads an integer field via Float, truncating any fractional part.
func Int(payload map[string]any, key string) (int, bool) {
	f, ok := Float(payload, key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Bool reads a boolean field, accepting the JSON bool form and the
// common string/numeric spellings validation.Validator.Bool accepts.
func Bool(payload map[string]any, key string, fallback bool) bool {
	v, ok := payload[key]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(t) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	case int:
		return t != 0
	case float64:
		return t != 0
	}
	return fallback
}

// Floats3 reads a 3-component numeric tuple field (position/rotation/
// scale/target), accepting a JSON array of numbers or, as with Float/
// Bool, the string form GET query parameters arrive as: a single
// comma-separated string ("5,0,2") or a repeated-key []string.
func Floats3(payload map[string]any, key string) ([3]float64, error) {
	v, ok := payload[key]
	if !ok {
		return [3]float64{}, fmt.Errorf("%s: missing", key)
	}

	var parts []string
	switch t := v.(type) {
	case []any:
		var out [3]float64
		if len(t) != 3 {
			return [3]float64{}, fmt.Errorf("%s: must have exactly 3 components, got %d", key, len(t))
		}
		for i, c := range t {
			f, ok := c.(float64)
			if !ok {
				return [3]float64{}, fmt.Errorf("%s[%d]: must be numeric", key, i)
			}
			out[i] = f
		}
		return out, nil
	case []string:
		parts = t
	case string:
		parts = strings.Split(t, ",")
	default:
		return [3]float64{}, fmt.Errorf("%s: must be a 3-element array", key)
	}

	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("%s: must have exactly 3 components, got %d", key, len(parts))
	}
	var out [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [3]float64{}, fmt.Errorf("%s[%d]: must be numeric", key, i)
		}
		out[i] = f
	}
	return out, nil
}

// StringSlice reads a field as a list of strings, accepting a JSON
// array of strings or a single comma-free string (the common GET-query
// shape for a one-element list).
func StringSlice(payload map[string]any, key string) []string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

// Metadata reads an optional metadata map field.
func Metadata(payload map[string]any, key string) map[string]any {
	if v, ok := payload[key].(map[string]any); ok {
		return v
	}
	return nil
}
