package currency

import (
	"context"
	"errors"
	"strings"

	"github.com/storefront-api/internal/domain"
)

// DefaultLocation is reported when neither geolocation nor the timezone says anything.
const DefaultLocation = "United States"

// ErrUnknownLocation is returned by a Geolocator that cannot place the client.
var ErrUnknownLocation = errors.New("location unknown")

// Geolocator resolves a country name from request hints.
type Geolocator interface {
	Locate(ctx context.Context, hints domain.LocationHints) (string, error)
}

// CountryCodeGeolocator places the client from an explicit country name or an
// ISO 3166-1 alpha-2 code such as the CF-IPCountry header.
type CountryCodeGeolocator struct{}

func (CountryCodeGeolocator) Locate(_ context.Context, hints domain.LocationHints) (string, error) {
	if name := strings.TrimSpace(hints.Country); name != "" {
		return name, nil
	}
	if name, ok := countryNames[strings.ToUpper(strings.TrimSpace(hints.CountryCode))]; ok {
		return name, nil
	}
	return "", ErrUnknownLocation
}

var countryNames = map[string]string{
	"US": "United States",
	"IN": "India",
	"GB": "United Kingdom",
	"UK": "United Kingdom",
	"CA": "Canada",
	"AU": "Australia",
	"AT": "Austria",
	"BE": "Belgium",
	"CY": "Cyprus",
	"DE": "Germany",
	"EE": "Estonia",
	"ES": "Spain",
	"FI": "Finland",
	"FR": "France",
	"GR": "Greece",
	"HR": "Croatia",
	"IE": "Ireland",
	"IT": "Italy",
	"LT": "Lithuania",
	"LU": "Luxembourg",
	"LV": "Latvia",
	"MT": "Malta",
	"NL": "Netherlands",
	"PT": "Portugal",
	"SI": "Slovenia",
	"SK": "Slovakia",
}

var locationCurrency = map[string]string{
	"united states":            "USD",
	"united states of america": "USD",
	"usa":                      "USD",
	"india":                    "INR",
	"united kingdom":           "GBP",
	"uk":                       "GBP",
	"great britain":            "GBP",
	"england":                  "GBP",
	"scotland":                 "GBP",
	"wales":                    "GBP",
	"canada":                   "CAD",
	"australia":                "AUD",
	"europe":                   "EUR",
	"austria":                  "EUR",
	"belgium":                  "EUR",
	"croatia":                  "EUR",
	"cyprus":                   "EUR",
	"estonia":                  "EUR",
	"finland":                  "EUR",
	"france":                   "EUR",
	"germany":                  "EUR",
	"greece":                   "EUR",
	"ireland":                  "EUR",
	"italy":                    "EUR",
	"latvia":                   "EUR",
	"lithuania":                "EUR",
	"luxembourg":               "EUR",
	"malta":                    "EUR",
	"netherlands":              "EUR",
	"portugal":                 "EUR",
	"slovakia":                 "EUR",
	"slovenia":                 "EUR",
	"spain":                    "EUR",
}

// MapLocationToCurrency returns the currency code for a location name, ignoring case.
// Unmapped locations get USD.
func MapLocationToCurrency(location string) string {
	if code, ok := locationCurrency[strings.ToLower(strings.TrimSpace(location))]; ok {
		return code
	}
	return DefaultCode
}

var canadianZones = map[string]bool{
	"America/Toronto":    true,
	"America/Vancouver":  true,
	"America/Montreal":   true,
	"America/Edmonton":   true,
	"America/Winnipeg":   true,
	"America/Halifax":    true,
	"America/Regina":     true,
	"America/St_Johns":   true,
	"America/Moncton":    true,
	"America/Whitehorse": true,
}

// locationFromTimezone guesses a location from an IANA timezone name. It returns ""
// when the zone says nothing useful.
func locationFromTimezone(tz string) string {
	tz = strings.TrimSpace(tz)
	switch {
	case tz == "":
		return ""
	case tz == "Asia/Kolkata" || tz == "Asia/Calcutta":
		return "India"
	case tz == "Europe/London" || tz == "Europe/Belfast" || tz == "GB":
		return "United Kingdom"
	case canadianZones[tz] || strings.HasPrefix(tz, "Canada/"):
		return "Canada"
	case strings.HasPrefix(tz, "Australia/"):
		return "Australia"
	case strings.HasPrefix(tz, "Europe/"):
		return "Europe"
	case strings.HasPrefix(tz, "America/") || strings.HasPrefix(tz, "US/"):
		return DefaultLocation
	}
	return ""
}
