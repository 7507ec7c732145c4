package geo

import (
	"fmt"
	"math"
)

// FormatDistance renders km as "850 m" below one kilometre and "1.3 km" otherwise.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}
