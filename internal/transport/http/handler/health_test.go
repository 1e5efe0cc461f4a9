package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withAction(r *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestPing(t *testing.T) {
	h := NewHealthHandler()
	rr := httptest.NewRecorder()
	h.Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/health-check/ping", nil), "ping"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var env PingEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "pong", env.Message)
}

func TestPing_UnknownAction(t *testing.T) {
	h := NewHealthHandler()
	rr := httptest.NewRecorder()
	h.Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/health-check/nope", nil), "nope"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
