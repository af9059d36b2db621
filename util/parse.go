package util

import (
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix string
	shift  uint
}{
	{"GB", 30},
	{"MB", 20},
	{"KB", 10},
	{"B", 0},
}

// ParseSize reads sizes such as "10MB", "512kb" or "100". Unknown units,
// negative values and empty input yield fallback.
func ParseSize(s string, fallback int64) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, u := range sizeUnits {
		if num, ok := strings.CutSuffix(s, u.suffix); ok {
			s, shift = strings.TrimSpace(num), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n << shift
}

// MaskSecret keeps the first keep bytes of a secret and replaces the rest
// with "***". Secrets no longer than keep are masked entirely.
func MaskSecret(secret string, keep int) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= keep:
		return "***"
	}
	return secret[:keep] + "***"
}

// Truncate cuts s to n runes and marks the cut with "...".
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}
