package domain

// Currency is a display currency. Rate is the multiplier relative to USD (USD = 1.0).
type Currency struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Rate   float64 `json:"exchangeRate"`
}

// Selection sources.
const (
	SourcePreference = "preference"
	SourceDetected   = "detected"
	SourceDefault    = "default"
)

// LocationHints carries whatever the request tells us about where the client is.
// CountryCode usually comes from a CDN header, Timezone from the client (IANA name).
type LocationHints struct {
	CountryCode string
	Country     string
	Timezone    string
}

type SetCurrencyRequest struct {
	Code string `json:"code" validate:"required,notblank"`
}
