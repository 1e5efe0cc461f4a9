package currency

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestFormatAmount(t *testing.T) {
	c := NewCatalog(nil)
	cases := []struct {
		code   string
		amount *float64
		want   string
	}{
		{"USD", ptr(1234.56), "$1,234.56"},
		{"USD", ptr(0), "$0.00"},
		{"USD", nil, "$0.00"},
		{"USD", ptr(999), "$999.00"},
		{"USD", ptr(1234567.891), "$1,234,567.89"},
		{"USD", ptr(-1234.5), "-$1,234.50"},
		{"USD", ptr(-0.001), "$0.00"},
		{"GBP", ptr(1000), "£1,000.00"},
		{"CAD", ptr(12.3), "C$12.30"},
		{"AUD", ptr(1000000), "A$1,000,000.00"},
		{"INR", ptr(123456), "₹1,23,456.00"},
		{"INR", ptr(12345678.9), "₹1,23,45,678.90"},
		{"INR", ptr(1234), "₹1,234.00"},
		{"INR", ptr(999), "₹999.00"},
		{"INR", nil, "₹0.00"},
		{"EUR", ptr(1234.56), "1.234,56 €"},
		{"EUR", ptr(1234567), "1.234.567,00 €"},
		{"EUR", ptr(-5), "-5,00 €"},
		{"EUR", nil, "0,00 €"},
		{"USD", ptr(math.NaN()), "$0.00"},
	}
	for _, tc := range cases {
		currency, ok := c.Lookup(tc.code)
		if !assert.True(t, ok, tc.code) {
			continue
		}
		assert.Equal(t, tc.want, FormatAmount(tc.amount, currency), "%s %v", tc.code, tc.amount)
	}
}

func TestGrouping(t *testing.T) {
	assert.Equal(t, "1", groupThousands("1", ','))
	assert.Equal(t, "123,456", groupThousands("123456", ','))
	assert.Equal(t, "12.345.678", groupThousands("12345678", '.'))
	assert.Equal(t, "10,00,00,000", groupIndian("100000000"))
	assert.Equal(t, "12,345", groupIndian("12345"))
}
