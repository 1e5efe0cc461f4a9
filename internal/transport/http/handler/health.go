package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/storefront-api/internal/domain"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "action") == "ping" {
		writeJSON(w, http.StatusOK, PingEnvelope{Message: "pong"})
		return
	}
	writeError(w, http.StatusNotFound, domain.CodeInvalidFormat, "unknown action")
}
