package workflow

import (
	"fmt"
)

// Params is a node's kind-specific parameter bag (label, code, prompt,
// model, url, method, headers, body). Every key is optional.
type Params map[string]any

// String returns the value under key as a string. Non-string scalars are
// formatted with fmt; missing keys and nil yield "".
func (p Params) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// StringOr is String with a fallback for missing or empty values.
func (p Params) StringOr(key, fallback string) string {
	if s := p.String(key); s != "" {
		return s
	}
	return fallback
}

// Raw returns the untyped value under key.
func (p Params) Raw(key string) (any, bool) {
	v, ok := p[key]
	return v, ok && v != nil
}
