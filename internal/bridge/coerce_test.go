package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"true", "true", true},
		{"true uppercase", "TRUE", true},
		{"false", "false", false},
		{"false mixed case", "False", false},
		{"integer", "3", int64(3)},
		{"negative integer", "-12", int64(-12)},
		{"float", "3.5", 3.5},
		{"float with no fraction", "3.0", int64(3)},
		{"negative float", "-0.25", -0.25},
		{"empty passes through", "", ""},
		{"non-numeric passes through", "abc", "abc"},
		{"mixed passes through", "3 apples", "3 apples"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, coerceValue(tc.input))
		})
	}
}

func TestCoerceAttributes(t *testing.T) {
	converted := CoerceAttributes(map[string]string{
		"vip":      "true",
		"visits":   "42",
		"score":    "9.75",
		"nickname": "slim",
	})

	assert.Equal(t, map[string]any{
		"vip":      true,
		"visits":   int64(42),
		"score":    9.75,
		"nickname": "slim",
	}, converted)
}

func TestCoerceAttributesNil(t *testing.T) {
	assert.Nil(t, CoerceAttributes(nil))
}
