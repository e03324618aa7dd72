package utils

import "fmt"

// FormatCents formats an integer cent amount as a dollar string.
// Example: 24700 -> "$247.00"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
