package currency

import (
	"fmt"
	"math"
)

var symbols = map[string]string{
	"USD": "$",
	"GBP": "£",
	"EUR": "€",
}

// Format renders a cash fee for display, e.g. "$1,234.56" or "SGD 89.00".
// An empty currency means the amount's currency is unknown upstream.
func Format(amount float64, code string) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	whole := math.Floor(amount)
	cents := int(math.Round((amount - whole) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}
	intStr := fmt.Sprintf("%.0f", whole)
	formatted := fmt.Sprintf("%s.%02d", addThousandsSeparator(intStr, ","), cents)

	var result string
	if symbol, ok := symbols[code]; ok {
		result = symbol + formatted
	} else if code != "" {
		result = code + " " + formatted
	} else {
		result = formatted
	}

	if negative {
		result = "-" + result
	}
	return result
}

func addThousandsSeparator(s string, sep string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	numSeps := (n - 1) / 3
	result := make([]byte, n+numSeps)

	j := len(result) - 1
	for i := n - 1; i >= 0; i-- {
		result[j] = s[i]
		j--

		pos := n - i
		if pos%3 == 0 && i > 0 {
			result[j] = sep[0]
			j--
		}
	}

	return string(result)
}
