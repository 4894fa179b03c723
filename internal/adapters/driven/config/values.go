// Package config holds helpers shared by the config store adapters.
package config

// Decoded config values arrive with whatever types the decoder chose:
// TOML yields int64, YAML yields int, JSON-ish sources yield float64.
// These helpers fold them into the types the settings layer reads and
// return the zero value for anything else.

func String(v any) string {
	s, _ := v.(string)
	return s
}

func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// StringSlice accepts []string or []any; non-string elements are dropped.
func StringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}
