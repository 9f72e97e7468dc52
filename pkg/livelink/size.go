package livelink

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

var sizeMultipliers = map[string]float64{
	"":   1,
	"B":  1,
	"K":  1 << 10,
	"KB": 1 << 10,
	"M":  1 << 20,
	"MB": 1 << 20,
	"G":  1 << 30,
	"GB": 1 << 30,
	"T":  1 << 40,
	"TB": 1 << 40,
}

// ParseSize converts a backend size value and its unit suffix to bytes using
// binary multiples. A blank or unknown suffix multiplies by 1. When suffix is
// blank a unit trailing the value ("12 KB") is honoured.
func ParseSize(value, suffix string) (int64, bool) {
	value = strings.TrimSpace(value)
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		value, suffix = splitUnit(value)
	}
	value = strings.ReplaceAll(value, ",", "")
	if value == "" {
		return 0, false
	}
	number, err := strconv.ParseFloat(value, 64)
	if err != nil || number < 0 || math.IsInf(number, 0) || math.IsNaN(number) {
		return 0, false
	}
	multiplier, ok := sizeMultipliers[strings.ToUpper(suffix)]
	if !ok {
		multiplier = 1
	}
	bytes := math.Round(number * multiplier)
	if bytes >= math.MaxInt64 {
		return 0, false
	}
	return int64(bytes), true
}

func splitUnit(value string) (number, unit string) {
	idx := strings.LastIndexFunc(value, func(r rune) bool {
		return unicode.IsDigit(r) || r == '.' || r == ','
	})
	if idx < 0 || idx == len(value)-1 {
		return value, ""
	}
	return strings.TrimSpace(value[:idx+1]), strings.TrimSpace(value[idx+1:])
}
