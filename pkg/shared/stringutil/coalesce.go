package stringutil

import (
	"strconv"
	"strings"
)

// EnvOr returns value (trimmed) if non-empty, otherwise returns existing.
func EnvOr(existing, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return existing
	}
	return value
}

// FirstNonEmpty returns the first non-empty string after trimming.
func FirstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

// ParseBoolDefault parses value with strconv.ParseBool, returning fallback
// when value is blank.
func ParseBoolDefault(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.ParseBool(value)
}

// ParseIntDefault parses a base-10 integer, returning fallback when value is blank.
func ParseIntDefault(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

// SplitCSV splits a comma-separated list, dropping blank entries.
func SplitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
