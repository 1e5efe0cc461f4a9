package currency

import (
	"math"
	"strconv"
	"strings"

	"github.com/storefront-api/internal/domain"
)

// FormatAmount renders amount in cur. A nil amount formats as zero.
//
//	INR  ₹1,23,456.00  (lakh/crore grouping)
//	EUR  1.234,56 €
//	else $1,234.56
func FormatAmount(amount *float64, cur domain.Currency) string {
	v := 0.0
	if amount != nil && !math.IsNaN(*amount) && !math.IsInf(*amount, 0) {
		v = *amount
	}

	digits := strconv.FormatFloat(math.Abs(v), 'f', 2, 64)
	intPart, frac, _ := strings.Cut(digits, ".")
	negative := v < 0 && strings.Trim(digits, "0.") != ""

	var body string
	switch cur.Code {
	case "INR":
		body = cur.Symbol + groupIndian(intPart) + "." + frac
	case "EUR":
		body = groupThousands(intPart, '.') + "," + frac + " " + cur.Symbol
	default:
		body = cur.Symbol + groupThousands(intPart, ',') + "." + frac
	}
	if negative {
		return "-" + body
	}
	return body
}

// groupThousands inserts sep every three digits from the right.
func groupThousands(digits string, sep byte) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// groupIndian groups the last three digits, then every two: 12,34,56,789.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	rest, last := digits[:len(digits)-3], digits[len(digits)-3:]
	var b strings.Builder
	head := len(rest) % 2
	if head > 0 {
		b.WriteString(rest[:head])
	}
	for i := head; i < len(rest); i += 2 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(rest[i : i+2])
	}
	b.WriteByte(',')
	b.WriteString(last)
	return b.String()
}
