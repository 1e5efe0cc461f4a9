package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/storefront-api/internal/application/currency"
	"github.com/storefront-api/internal/application/otp"
	"github.com/storefront-api/internal/infrastructure/metrics"
	jwtinfra "github.com/storefront-api/internal/infrastructure/jwt"
	"go.uber.org/zap"
)

// Deps holds all infrastructure dependencies for the router.
// SMSSender, JWTProvider and Dispatch are optional.
type Deps struct {
	OTPStore    otp.Store
	Mailer      otp.Mailer
	SMSSender   otp.SMSSender
	JWTProvider *jwtinfra.Provider

	Preferences currency.PreferenceStore
	Catalog     *currency.Catalog
	Geolocator  currency.Geolocator

	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	// Dispatch runs OTP delivery; nil means a goroutine per issuance.
	Dispatch func(func())
}
