package currency

import (
	"context"
	"sort"
	"strings"

	"github.com/storefront-api/internal/domain"
	"go.uber.org/zap"
)

// DefaultCode is used whenever nothing better is known.
const DefaultCode = "USD"

var builtin = []domain.Currency{
	{Code: "USD", Symbol: "$", Name: "US Dollar", Rate: 1.0},
	{Code: "INR", Symbol: "₹", Name: "Indian Rupee", Rate: 83.12},
	{Code: "EUR", Symbol: "€", Name: "Euro", Rate: 0.92},
	{Code: "GBP", Symbol: "£", Name: "British Pound", Rate: 0.79},
	{Code: "CAD", Symbol: "C$", Name: "Canadian Dollar", Rate: 1.36},
	{Code: "AUD", Symbol: "A$", Name: "Australian Dollar", Rate: 1.52},
}

// RateSource supplies exchange rates relative to USD, keyed by currency code.
type RateSource interface {
	Rates(ctx context.Context) (map[string]float64, error)
}

// Catalog is the immutable set of supported currencies.
type Catalog struct {
	byCode map[string]domain.Currency
	order  []string
}

// NewCatalog builds the catalog from the built-in table, replacing rates found in
// overrides. Unknown codes, non-positive rates and any USD override are ignored.
func NewCatalog(overrides map[string]float64) *Catalog {
	c := &Catalog{byCode: make(map[string]domain.Currency, len(builtin))}
	for _, cur := range builtin {
		c.byCode[cur.Code] = cur
		c.order = append(c.order, cur.Code)
	}
	for code, rate := range overrides {
		code = strings.ToUpper(strings.TrimSpace(code))
		cur, ok := c.byCode[code]
		if !ok || code == DefaultCode || !(rate > 0) {
			continue
		}
		cur.Rate = rate
		c.byCode[code] = cur
	}
	return c
}

// LoadCatalog builds the catalog with rates from src. Any failure keeps the built-in rates.
func LoadCatalog(ctx context.Context, src RateSource, log *zap.Logger) *Catalog {
	if src == nil {
		return NewCatalog(nil)
	}
	rates, err := src.Rates(ctx)
	if err != nil {
		log.Warn("exchange rate override unavailable, using built-in rates", zap.Error(err))
		return NewCatalog(nil)
	}
	log.Info("exchange rates loaded", zap.Int("entries", len(rates)))
	return NewCatalog(rates)
}

// Lookup finds a currency by code, ignoring case.
func (c *Catalog) Lookup(code string) (domain.Currency, bool) {
	cur, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return cur, ok
}

// Default returns USD.
func (c *Catalog) Default() domain.Currency {
	return c.byCode[DefaultCode]
}

// List returns the currencies in display order.
func (c *Catalog) List() []domain.Currency {
	out := make([]domain.Currency, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.byCode[code])
	}
	return out
}

// Codes returns the supported codes sorted alphabetically.
func (c *Catalog) Codes() []string {
	codes := append([]string(nil), c.order...)
	sort.Strings(codes)
	return codes
}

// Convert converts amount between two supported currencies through USD.
func (c *Catalog) Convert(amount float64, from, to string) (float64, error) {
	src, ok := c.Lookup(from)
	if !ok {
		return 0, invalidCurrency(from)
	}
	dst, ok := c.Lookup(to)
	if !ok {
		return 0, invalidCurrency(to)
	}
	if src.Code == dst.Code {
		return amount, nil
	}
	return amount / src.Rate * dst.Rate, nil
}

func invalidCurrency(code string) *domain.Error {
	return domain.Validation(domain.CodeInvalidCurrency, "Unsupported currency code: "+code)
}
