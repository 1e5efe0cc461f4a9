package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/storefront-api/internal/domain"
)

// maxBodyBytes bounds request bodies; every accepted body is a handful of short strings.
const maxBodyBytes = 1 << 20

// ErrorEnvelope is the body of every failed API call.
type ErrorEnvelope struct {
	Success           bool   `json:"success"`
	Error             string `json:"error"`
	Message           string `json:"message"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
}

// MessageEnvelope is the generic success wrapper.
type MessageEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SendOTPEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	ExpiresIn int    `json:"expiresIn"`
	DevOTP    string `json:"devOTP,omitempty"`
}

type VerifyOTPEnvelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	Verified  bool   `json:"verified"`
	Token     string `json:"token,omitempty"`
}

type CurrencyEnvelope struct {
	Success          bool            `json:"success"`
	Currency         domain.Currency `json:"currency"`
	DetectedLocation string          `json:"detectedLocation,omitempty"`
	Source           string          `json:"source,omitempty"`
}

type CurrencyListEnvelope struct {
	Success    bool              `json:"success"`
	Currencies []domain.Currency `json:"currencies"`
}

type ConvertEnvelope struct {
	Success   bool    `json:"success"`
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Result    float64 `json:"result"`
	Formatted string  `json:"formatted"`
}

type FormatEnvelope struct {
	Success   bool   `json:"success"`
	Formatted string `json:"formatted"`
}

type PingEnvelope struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorEnvelope{Error: code, Message: msg})
}

// decodeBody decodes a JSON request body into dst. An empty body leaves dst zeroed
// so that required-field validation reports what is missing.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, domain.CodeInvalidBody, "Request body must be valid JSON")
	return false
}
