package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDebtHours(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"days and hours combined", "5d 3h", 123},
		{"hours only", "7h", 7},
		{"days only", "2d", 48},
		{"empty string", "", 0},
		{"unparseable string", "soon", 0},
		{"minutes are not part of the grammar", "30min", 0},
		{"hours with trailing minutes", "3h 30min", 3},
		{"no separator between components", "1d2h", 26},
		{"zero hours", "0h", 0},
		{"large day count", "100d", 2400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseDebtHours(tt.input))
		})
	}
}
