package bridge

import (
	"math"
	"strconv"
	"strings"
)

// CoerceAttributes converts a string-keyed attribute map into typed values.
// The platform only carries strings, but the vendor's campaign-triggering
// and aggregation logic works better with real booleans and numbers.
// A nil input stays nil.
func CoerceAttributes(attributes map[string]string) map[string]any {
	if attributes == nil {
		return nil
	}
	converted := make(map[string]any, len(attributes))
	for key, value := range attributes {
		converted[key] = coerceValue(value)
	}
	return converted
}

// coerceValue maps one string to exactly one typed value: empty strings pass
// through, "true"/"false" become booleans (case-insensitive), numerics with
// no fractional part become integers, other numerics become floats, and
// anything unparseable stays a string.
func coerceValue(value string) any {
	if value == "" {
		return value
	}
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	// Integers that survive a float round trip stay integers; beyond 2^53
	// the round trip is lossy, so keep the float.
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
