package handler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
		ok    bool
	}{
		{"whole amount", "1299", 129900, true},
		{"two decimal places", "1299.50", 129950, true},
		{"one decimal place", "0.5", 50, true},
		{"zero", "0", 0, true},
		{"smallest unit", "0.01", 1, true},
		{"three decimal places", "1.005", 0, false},
		{"sub-cent fraction", "0.001", 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tc.input)
			assert.NoError(t, err)

			got, ok := toMinorUnits(d)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestToMajorUnits(t *testing.T) {
	assert.Equal(t, "1299.5", toMajorUnits(129950).String())
	assert.Equal(t, "0.01", toMajorUnits(1).String())
	assert.Equal(t, "0", toMajorUnits(0).String())
}
