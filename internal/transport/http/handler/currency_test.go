package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/storefront-api/internal/application/currency"
	"github.com/storefront-api/internal/domain"
	"github.com/storefront-api/internal/infrastructure/memory"
	jwtinfra "github.com/storefront-api/internal/infrastructure/jwt"
	"github.com/storefront-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newCurrencyHandler(t *testing.T) (*CurrencyHandler, *memory.PreferenceStore) {
	t.Helper()
	prefs := memory.NewPreferenceStore()
	svc := currency.NewService(currency.ServiceDeps{Preferences: prefs})
	return NewCurrencyHandler(svc, zap.NewNop(), false), prefs
}

func withClaims(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ClaimsKey, &jwtinfra.Claims{UserID: userID})
	return r.WithContext(ctx)
}

func TestCurrencyGet_DetectsFromCDNHeader(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/api/currency", nil)
	r.Header.Set("CF-IPCountry", "IN")
	r.Header.Set(clientHeader, "abc")
	rr := httptest.NewRecorder()
	h.Get(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var env CurrencyEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Equal(t, "INR", env.Currency.Code)
	assert.Equal(t, 83.12, env.Currency.Rate)
	assert.Equal(t, "India", env.DetectedLocation)
	assert.Equal(t, domain.SourceDetected, env.Source)
	assert.Empty(t, rr.Result().Cookies(), "header-identified clients get no cookie")
}

func TestCurrencyGet_TimezoneQuery(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/currency?timezone=Europe/London", nil))

	var env CurrencyEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "GBP", env.Currency.Code)
}

func TestCurrencyGet_IssuesClientCookie(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	rr := httptest.NewRecorder()
	h.Get(rr, httptest.NewRequest(http.MethodGet, "/api/currency", nil))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, clientCookie, cookies[0].Name)
	assert.Len(t, cookies[0].Value, 26)
	assert.True(t, cookies[0].HttpOnly)

	var env CurrencyEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "USD", env.Currency.Code)
	assert.Equal(t, domain.SourceDefault, env.Source)
	assert.Equal(t, currency.DefaultLocation, env.DetectedLocation)
}

func TestCurrencySet_PersistsForCookieClient(t *testing.T) {
	h, prefs := newCurrencyHandler(t)

	r := jsonReq(t, http.MethodPut, "/api/currency", map[string]string{"code": "eur"})
	r.AddCookie(&http.Cookie{Name: clientCookie, Value: "01HZZZZZZZZZZZZZZZZZZZZZZZ"})
	rr := httptest.NewRecorder()
	h.Set(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var env CurrencyEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "EUR", env.Currency.Code)
	assert.Equal(t, domain.SourcePreference, env.Source)

	stored, err := prefs.Get(context.Background(), "client:01HZZZZZZZZZZZZZZZZZZZZZZZ")
	require.NoError(t, err)
	assert.Equal(t, "EUR", stored)

	// The preference wins over detection on the next request.
	r = httptest.NewRequest(http.MethodGet, "/api/currency", nil)
	r.AddCookie(&http.Cookie{Name: clientCookie, Value: "01HZZZZZZZZZZZZZZZZZZZZZZZ"})
	r.Header.Set("CF-IPCountry", "AU")
	rr = httptest.NewRecorder()
	h.Get(rr, r)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "EUR", env.Currency.Code)
	assert.Equal(t, "Australia", env.DetectedLocation)
}

func TestCurrencySet_AuthenticatedUserKey(t *testing.T) {
	h, prefs := newCurrencyHandler(t)

	r := withClaims(jsonReq(t, http.MethodPut, "/api/currency", map[string]string{"code": "CAD"}), "u1")
	r.Header.Set(clientHeader, "ignored")
	rr := httptest.NewRecorder()
	h.Set(rr, r)
	require.Equal(t, http.StatusOK, rr.Code)

	stored, err := prefs.Get(context.Background(), "user:u1")
	require.NoError(t, err)
	assert.Equal(t, "CAD", stored)
	_, err = prefs.Get(context.Background(), "client:ignored")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCurrencySet_SessionTokenDoesNotActAsUser(t *testing.T) {
	h, prefs := newCurrencyHandler(t)

	r := jsonReq(t, http.MethodPut, "/api/currency", map[string]string{"code": "INR"})
	r = r.WithContext(context.WithValue(r.Context(), middleware.ClaimsKey, &jwtinfra.Claims{UserID: "victim", MFA: true}))
	r.Header.Set(clientHeader, "caller1")
	rr := httptest.NewRecorder()
	h.Set(rr, r)
	require.Equal(t, http.StatusOK, rr.Code)

	_, err := prefs.Get(context.Background(), "user:victim")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	stored, err := prefs.Get(context.Background(), "client:caller1")
	require.NoError(t, err)
	assert.Equal(t, "INR", stored)
}

func TestCurrencySet_Errors(t *testing.T) {
	h, _ := newCurrencyHandler(t)

	rr := httptest.NewRecorder()
	h.Set(rr, jsonReq(t, http.MethodPut, "/api/currency", map[string]string{"code": "XYZ"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.CodeInvalidCurrency, decodeError(t, rr).Error)

	rr = httptest.NewRecorder()
	h.Set(rr, jsonReq(t, http.MethodPut, "/api/currency", map[string]string{}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, domain.CodeMissingParams, decodeError(t, rr).Error)
}

func TestCurrencyList(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/currency/list", nil))

	var env CurrencyListEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.True(t, env.Success)
	require.Len(t, env.Currencies, 6)
	assert.Equal(t, "USD", env.Currencies[0].Code)
}

func TestCurrencyConvert(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	rr := httptest.NewRecorder()
	h.Convert(rr, httptest.NewRequest(http.MethodGet, "/api/currency/convert?amount=100&from=usd&to=INR", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var env ConvertEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "USD", env.From)
	assert.Equal(t, "INR", env.To)
	assert.InDelta(t, 8312, env.Result, 1e-9)
	assert.Equal(t, "₹8,312.00", env.Formatted)
}

func TestCurrencyConvert_DefaultsToClientCurrency(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/api/currency/convert?amount=10", nil)
	r.Header.Set("X-Country-Code", "GB")
	r.Header.Set(clientHeader, "abc")
	rr := httptest.NewRecorder()
	h.Convert(rr, r)

	var env ConvertEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "GBP", env.To)
	assert.InDelta(t, 7.9, env.Result, 1e-9)
	assert.Equal(t, "£7.90", env.Formatted)
}

func TestCurrencyConvert_Errors(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	cases := map[string]string{
		"/api/currency/convert":                          domain.CodeMissingParams,
		"/api/currency/convert?amount=ten":               domain.CodeInvalidFormat,
		"/api/currency/convert?amount=NaN":               domain.CodeInvalidFormat,
		"/api/currency/convert?amount=1&from=XYZ&to=USD": domain.CodeInvalidCurrency,
	}
	for target, code := range cases {
		rr := httptest.NewRecorder()
		h.Convert(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, code, decodeError(t, rr).Error, target)
	}
}

func TestCurrencyFormat(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	cases := map[string]string{
		"/api/currency/format?amount=123456&code=INR":  "₹1,23,456.00",
		"/api/currency/format?amount=1234.56&code=EUR": "1.234,56 €",
		"/api/currency/format?amount=1234.56&code=usd": "$1,234.56",
		"/api/currency/format?code=GBP":                "£0.00",
	}
	for target, want := range cases {
		rr := httptest.NewRecorder()
		h.Format(rr, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rr.Code, target)
		var env FormatEnvelope
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
		assert.Equal(t, want, env.Formatted, target)
	}

	rr := httptest.NewRecorder()
	h.Format(rr, httptest.NewRequest(http.MethodGet, "/api/currency/format?amount=1&code=XYZ", nil))
	assert.Equal(t, domain.CodeInvalidCurrency, decodeError(t, rr).Error)
}

func TestCurrencyFormat_UsesClientCurrencyWithoutCode(t *testing.T) {
	h, _ := newCurrencyHandler(t)
	r := httptest.NewRequest(http.MethodGet, "/api/currency/format?amount=5", nil)
	r.Header.Set("CF-IPCountry", "CA")
	r.Header.Set(clientHeader, "abc")
	rr := httptest.NewRecorder()
	h.Format(rr, r)

	var env FormatEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "C$5.00", env.Formatted)
}

func TestLocationHints(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?country=Atlantis", nil)
	r.Header.Set("CF-IPCountry", "XX")
	r.Header.Set("X-Timezone", "Asia/Kolkata")
	hints := locationHints(r)
	assert.Equal(t, "Atlantis", hints.Country)
	assert.Empty(t, hints.CountryCode)
	assert.Equal(t, "Asia/Kolkata", hints.Timezone)

	r = httptest.NewRequest(http.MethodGet, "/?country=de", nil)
	assert.Equal(t, "de", locationHints(r).CountryCode)
}

func TestCleanClientID(t *testing.T) {
	assert.Equal(t, "abc-123_X", cleanClientID(" abc-123_X "))
	assert.Empty(t, cleanClientID("a b"))
	assert.Empty(t, cleanClientID("user:evil"))
	assert.Empty(t, cleanClientID(string(make([]byte, 65))))
}
