package sanitizer

import "math"

// RoundToPaise rounds a rupee amount to two decimal places, half away from zero.
func RoundToPaise(amount float64) float64 {
	return math.Round(amount*100) / 100
}
