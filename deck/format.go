package deck

import (
	"fmt"
	"strconv"
)

// FormatPopulation renders a population count the way the card fronts show
// it: millions and thousands with one decimal, small numbers untouched.
// 2,500,000 becomes "2.5M", 45,000 becomes "45.0k", 900 stays "900".
func FormatPopulation(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return strconv.FormatInt(n, 10)
	}
}
