package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/storefront-api/internal/application/currency"
	"github.com/storefront-api/internal/domain"
	"github.com/storefront-api/internal/pkg/id"
	"github.com/storefront-api/internal/pkg/validate"
	"github.com/storefront-api/internal/transport/http/middleware"
	"go.uber.org/zap"
)

const (
	clientCookie    = "currency_client"
	clientHeader    = "X-Client-ID"
	clientCookieAge = 365 * 24 * time.Hour
	maxClientIDLen  = 64
)

// CurrencyHandler serves display-currency endpoints under /api/currency.
type CurrencyHandler struct {
	svc          currency.Service
	log          *zap.Logger
	secureCookie bool
}

func NewCurrencyHandler(svc currency.Service, log *zap.Logger, secureCookie bool) *CurrencyHandler {
	return &CurrencyHandler{svc: svc, log: log, secureCookie: secureCookie}
}

func (h *CurrencyHandler) Get(w http.ResponseWriter, r *http.Request) {
	sel := h.resolve(w, r)
	writeJSON(w, http.StatusOK, CurrencyEnvelope{
		Success:          true,
		Currency:         sel.Current(),
		DetectedLocation: sel.DetectedLocation(),
		Source:           sel.Source(),
	})
}

func (h *CurrencyHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req domain.SetCurrencyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeMissingParams, "Missing required fields: code")
		return
	}
	sel := h.resolve(w, r)
	if err := sel.Set(r.Context(), req.Code); err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, CurrencyEnvelope{
		Success:  true,
		Currency: sel.Current(),
		Source:   sel.Source(),
	})
}

func (h *CurrencyHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CurrencyListEnvelope{Success: true, Currencies: h.svc.Currencies()})
}

// Convert handles ?amount=&from=&to=. from defaults to USD, to to the client's currency.
func (h *CurrencyHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("amount"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, domain.CodeMissingParams, "Missing required fields: amount")
		return
	}
	amount, ok := parseAmount(w, raw)
	if !ok {
		return
	}

	from := strings.ToUpper(strings.TrimSpace(q.Get("from")))
	if from == "" {
		from = currency.DefaultCode
	}
	to := strings.ToUpper(strings.TrimSpace(q.Get("to")))
	if to == "" {
		to = h.resolve(w, r).Current().Code
	}

	result, err := h.svc.Convert(amount, from, to)
	if err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ConvertEnvelope{
		Success:   true,
		Amount:    amount,
		From:      from,
		To:        to,
		Result:    result,
		Formatted: h.svc.FormatPrice(&result, to),
	})
}

// Format handles ?amount=&code=. A missing amount formats as zero; a missing code
// uses the client's currency.
func (h *CurrencyHandler) Format(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var amount *float64
	if raw := strings.TrimSpace(q.Get("amount")); raw != "" {
		v, ok := parseAmount(w, raw)
		if !ok {
			return
		}
		amount = &v
	}

	code := strings.TrimSpace(q.Get("code"))
	if code == "" {
		writeJSON(w, http.StatusOK, FormatEnvelope{Success: true, Formatted: h.resolve(w, r).FormatPrice(amount, "")})
		return
	}
	if _, err := h.svc.Lookup(code); err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, FormatEnvelope{Success: true, Formatted: h.svc.FormatPrice(amount, code)})
}

func (h *CurrencyHandler) resolve(w http.ResponseWriter, r *http.Request) *currency.Selection {
	return h.svc.Resolve(r.Context(), h.clientKey(w, r), locationHints(r))
}

// clientKey identifies whose preference to use: the authenticated user, else the
// client id from the header or cookie. New clients get a fresh id cookie.
// Session tokens from the OTP flow do not authenticate a user.
func (h *CurrencyHandler) clientKey(w http.ResponseWriter, r *http.Request) string {
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		if uid := claims.Identity(); uid != "" {
			return "user:" + uid
		}
	}
	if v := cleanClientID(r.Header.Get(clientHeader)); v != "" {
		return "client:" + v
	}
	if c, err := r.Cookie(clientCookie); err == nil {
		if v := cleanClientID(c.Value); v != "" {
			return "client:" + v
		}
	}

	cid := id.New()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    cid,
		Path:     "/",
		MaxAge:   int(clientCookieAge / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return "client:" + cid
}

func cleanClientID(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > maxClientIDLen {
		return ""
	}
	for _, c := range v {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_') {
			return ""
		}
	}
	return v
}

// locationHints collects location signals from CDN headers, client headers and the query.
func locationHints(r *http.Request) domain.LocationHints {
	q := r.URL.Query()
	hints := domain.LocationHints{
		CountryCode: firstNonEmpty(r.Header.Get("CF-IPCountry"), r.Header.Get("X-Country-Code")),
		Timezone:    firstNonEmpty(q.Get("timezone"), r.Header.Get("X-Timezone")),
	}
	if country := strings.TrimSpace(q.Get("country")); country != "" {
		if len(country) == 2 {
			hints.CountryCode = country
		} else {
			hints.Country = country
		}
	}
	// Cloudflare reports XX for unknown and T1 for Tor exits.
	if cc := strings.ToUpper(hints.CountryCode); cc == "XX" || cc == "T1" {
		hints.CountryCode = ""
	}
	return hints
}

func parseAmount(w http.ResponseWriter, raw string) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.Abs(v) > 1e15 {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidFormat, "amount must be a number")
		return 0, false
	}
	return v, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
