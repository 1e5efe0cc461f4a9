package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service counters. Build it with New against the registry the
// /metrics endpoint serves; tests use a fresh registry each.
type Metrics struct {
	// OTPIssued counts successful issuances.
	OTPIssued prometheus.Counter
	// OTPVerifications counts verification outcomes by result code ("success", "INVALID_OTP", ...).
	OTPVerifications *prometheus.CounterVec
	// OTPSessionsClosed counts sessions leaving the pending state, by final state.
	OTPSessionsClosed *prometheus.CounterVec
	// OTPDeliveries counts delivery attempts by channel and status.
	OTPDeliveries *prometheus.CounterVec
	// CurrencyResolutions counts how the display currency was chosen.
	CurrencyResolutions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OTPIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_otp_issued_total",
			Help: "Number of OTP codes issued",
		}),
		OTPVerifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_otp_verifications_total",
			Help: "Number of OTP verification calls by result",
		}, []string{"result"}),
		OTPSessionsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_otp_sessions_closed_total",
			Help: "Number of OTP sessions closed by final state",
		}, []string{"state"}),
		OTPDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_otp_deliveries_total",
			Help: "Number of OTP delivery attempts by channel and status",
		}, []string{"channel", "status"}),
		CurrencyResolutions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_currency_resolutions_total",
			Help: "Number of display currency resolutions by source",
		}, []string{"source"}),
	}
}

// Nop returns Metrics registered against a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
