package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatPopulation(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{2_500_000, "2.5M"},
		{45_000, "45.0k"},
		{900, "900"},
		{0, "0"},
		{999, "999"},
		{1_000, "1.0k"},
		{999_999, "1000.0k"},
		{1_000_000, "1.0M"},
		{13_960_000, "14.0M"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatPopulation(tt.n), "n=%d", tt.n)
	}
}
