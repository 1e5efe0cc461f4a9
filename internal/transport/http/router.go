package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/storefront-api/internal/application/currency"
	"github.com/storefront-api/internal/application/otp"
	"github.com/storefront-api/internal/config"
	"github.com/storefront-api/internal/transport/http/handler"
	appmiddleware "github.com/storefront-api/internal/transport/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// NewRouter builds the application router. The returned stop func releases the
// rate limiter's background cleanup and must be called once the server is done.
func NewRouter(cfg *config.Config, deps *Deps) (http.Handler, func()) {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Client-ID", "X-Timezone", "X-Country-Code"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	otpDeps := otp.ServiceDeps{
		Store:       deps.OTPStore,
		Mailer:      deps.Mailer,
		SMSSender:   deps.SMSSender,
		Logger:      log.Named("otp"),
		Metrics:     deps.Metrics,
		TTL:         cfg.OTPTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		ExposeCode:  !cfg.IsProduction(),
		Dispatch:    deps.Dispatch,
	}
	var verifier appmiddleware.TokenVerifier
	if deps.JWTProvider != nil {
		otpDeps.Signer = deps.JWTProvider
		verifier = deps.JWTProvider
	}
	otpSvc := otp.NewService(otpDeps)
	currencySvc := currency.NewService(currency.ServiceDeps{
		Catalog:     deps.Catalog,
		Preferences: deps.Preferences,
		Geolocator:  deps.Geolocator,
		Logger:      log.Named("currency"),
		Metrics:     deps.Metrics,
	})

	trusted, err := appmiddleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Warn("ignoring TRUSTED_PROXIES, forwarding headers will not be honoured", zap.Error(err))
		trusted = nil
	}
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, trusted...)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(otpSvc, log)
	currencyH := handler.NewCurrencyHandler(currencySvc, log, cfg.IsProduction())

	r.Get("/health-check/{action}", healthH.Ping)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(sensitiveRL.Limit)
			r.Post("/send-otp", otpH.Send)
			r.Post("/verify-otp", otpH.Verify)
			r.Delete("/verify-otp", otpH.Cleanup)
		})

		r.Route("/currency", func(r chi.Router) {
			r.Use(appmiddleware.OptionalAuth(verifier))
			r.Get("/", currencyH.Get)
			r.Put("/", currencyH.Set)
			r.Get("/list", currencyH.List)
			r.Get("/convert", currencyH.Convert)
			r.Get("/format", currencyH.Format)
		})
	})

	return r, sensitiveRL.Stop
}
