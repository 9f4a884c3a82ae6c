package dispatch

import "strconv"

// Params is the untyped parameter bag of one command, as decoded from JSON
// or a url-encoded form. Numeric accessors are permissive: absent or
// non-numeric values fall back to the default instead of failing, matching
// the dispatcher's documented contract (a tap with no coordinates lands at
// the origin rather than being rejected).
type Params map[string]any

// Int returns the named parameter as an int, or def when absent.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// Float returns the named parameter as a float64, or def when absent.
func (p Params) Float(key string, def float64) float64 {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

// String returns the named parameter as a string, or def when absent.
func (p Params) String(key, def string) string {
	if v, ok := p[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the named parameter as a bool, or def when absent.
func (p Params) Bool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}
