package currency

import (
	"context"
	"errors"
	"sync"

	"github.com/storefront-api/internal/domain"
	"github.com/storefront-api/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

// PreferenceStore persists a client's chosen currency code.
// Get returns domain.ErrNotFound when nothing was stored for key.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

type Service interface {
	// Resolve builds the currency selection for one client. It never fails:
	// store and geolocation problems degrade to detection and then to USD.
	Resolve(ctx context.Context, clientKey string, hints domain.LocationHints) *Selection
	DetectLocation(ctx context.Context, hints domain.LocationHints) string
	Currencies() []domain.Currency
	Lookup(code string) (domain.Currency, error)
	Convert(amount float64, from, to string) (float64, error)
	// FormatPrice formats amount in code; an empty or unknown code formats in USD.
	FormatPrice(amount *float64, code string) string
}

type ServiceDeps struct {
	Catalog     *Catalog
	Preferences PreferenceStore
	Geolocator  Geolocator
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

type service struct {
	catalog *Catalog
	prefs   PreferenceStore
	geo     Geolocator
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(d ServiceDeps) Service {
	s := &service{
		catalog: d.Catalog,
		prefs:   d.Preferences,
		geo:     d.Geolocator,
		log:     d.Logger,
		metrics: d.Metrics,
	}
	if s.catalog == nil {
		s.catalog = NewCatalog(nil)
	}
	if s.geo == nil {
		s.geo = CountryCodeGeolocator{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	return s
}

func (s *service) DetectLocation(ctx context.Context, hints domain.LocationHints) string {
	loc, _ := s.detect(ctx, hints)
	return loc
}

// detect reports the location and whether it came from an actual signal.
func (s *service) detect(ctx context.Context, hints domain.LocationHints) (string, bool) {
	loc, err := s.geo.Locate(ctx, hints)
	if err == nil && loc != "" {
		return loc, true
	}
	if err != nil && !errors.Is(err, ErrUnknownLocation) {
		s.log.Debug("geolocation failed", zap.Error(err))
	}
	if loc := locationFromTimezone(hints.Timezone); loc != "" {
		return loc, true
	}
	return DefaultLocation, false
}

func (s *service) Resolve(ctx context.Context, clientKey string, hints domain.LocationHints) *Selection {
	location, detected := s.detect(ctx, hints)
	sel := &Selection{
		svc:      s,
		key:      clientKey,
		location: location,
		currency: s.catalog.Default(),
		source:   domain.SourceDefault,
	}

	if cur, ok := s.preferred(ctx, clientKey); ok {
		sel.currency = cur
		sel.source = domain.SourcePreference
	} else if detected {
		if cur, ok := s.catalog.Lookup(MapLocationToCurrency(location)); ok {
			sel.currency = cur
			sel.source = domain.SourceDetected
		}
	}
	s.metrics.CurrencyResolutions.WithLabelValues(sel.source).Inc()
	return sel
}

func (s *service) preferred(ctx context.Context, clientKey string) (domain.Currency, bool) {
	if clientKey == "" || s.prefs == nil {
		return domain.Currency{}, false
	}
	code, err := s.prefs.Get(ctx, clientKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Warn("currency preference unavailable", zap.String("client", clientKey), zap.Error(err))
		}
		return domain.Currency{}, false
	}
	cur, ok := s.catalog.Lookup(code)
	if !ok {
		s.log.Debug("ignoring stored currency preference", zap.String("client", clientKey), zap.String("code", code))
	}
	return cur, ok
}

func (s *service) Currencies() []domain.Currency {
	return s.catalog.List()
}

func (s *service) Lookup(code string) (domain.Currency, error) {
	cur, ok := s.catalog.Lookup(code)
	if !ok {
		return domain.Currency{}, invalidCurrency(code)
	}
	return cur, nil
}

func (s *service) Convert(amount float64, from, to string) (float64, error) {
	return s.catalog.Convert(amount, from, to)
}

func (s *service) FormatPrice(amount *float64, code string) string {
	cur, ok := s.catalog.Lookup(code)
	if !ok {
		cur = s.catalog.Default()
	}
	return FormatAmount(amount, cur)
}

// Selection is the display currency of one client. It is created per request by
// Service.Resolve and is safe for concurrent use.
type Selection struct {
	svc      *service
	key      string
	location string

	mu       sync.RWMutex
	currency domain.Currency
	source   string
}

func (sel *Selection) Current() domain.Currency {
	sel.mu.RLock()
	defer sel.mu.RUnlock()
	return sel.currency
}

func (sel *Selection) Source() string {
	sel.mu.RLock()
	defer sel.mu.RUnlock()
	return sel.source
}

func (sel *Selection) DetectedLocation() string {
	return sel.location
}

// Set switches the selection to code and persists it for the client. The switch
// succeeds even if persisting fails; the failure is only logged.
func (sel *Selection) Set(ctx context.Context, code string) error {
	cur, ok := sel.svc.catalog.Lookup(code)
	if !ok {
		return invalidCurrency(code)
	}
	sel.mu.Lock()
	sel.currency = cur
	sel.source = domain.SourcePreference
	sel.mu.Unlock()

	if sel.key == "" || sel.svc.prefs == nil {
		return nil
	}
	if err := sel.svc.prefs.Set(ctx, sel.key, cur.Code); err != nil {
		sel.svc.log.Warn("failed to persist currency preference",
			zap.String("client", sel.key),
			zap.String("code", cur.Code),
			zap.Error(err),
		)
	}
	return nil
}

// Convert converts amount; an empty from means USD and an empty to means the current currency.
func (sel *Selection) Convert(amount float64, from, to string) (float64, error) {
	if from == "" {
		from = DefaultCode
	}
	if to == "" {
		to = sel.Current().Code
	}
	return sel.svc.catalog.Convert(amount, from, to)
}

// FormatPrice formats amount in code, or in the current currency when code is empty or unknown.
func (sel *Selection) FormatPrice(amount *float64, code string) string {
	cur, ok := sel.svc.catalog.Lookup(code)
	if !ok {
		cur = sel.Current()
	}
	return FormatAmount(amount, cur)
}
