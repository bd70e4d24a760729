package utils

import (
	"log"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// mojibakeRupee is how "₹" reads when UTF-8 bytes are decoded as Windows-1252.
const mojibakeRupee = "â‚¹"

// CleanPrice strips currency symbols, thousands separators and whitespace
// from a listed price, leaving only the text that should be a number.
func CleanPrice(priceStr string) string {
	priceStr = strings.ReplaceAll(priceStr, mojibakeRupee, "")
	return strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) || unicode.Is(unicode.Sc, r) {
			return -1
		}
		return r
	}, priceStr)
}

// ParsePrice cleans a price string and converts it to a float64.
// Empty, unparseable and non-finite prices all come back as 0.
func ParsePrice(priceStr string) float64 {
	cleanedStr := CleanPrice(priceStr)
	if cleanedStr == "" {
		return 0.0
	}

	price, err := strconv.ParseFloat(cleanedStr, 64)
	if err != nil {
		log.Printf("ParsePrice: Failed to parse '%s' from original string '%s': %v", cleanedStr, priceStr, err)
		return 0.0
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		log.Printf("ParsePrice: Ignoring non-finite price '%s'", priceStr)
		return 0.0
	}

	return price
}
