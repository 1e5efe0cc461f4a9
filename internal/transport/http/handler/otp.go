package handler

import (
	"net/http"

	"github.com/storefront-api/internal/application/otp"
	"github.com/storefront-api/internal/domain"
	"go.uber.org/zap"
)

// OTPHandler serves the second-factor endpoints under /api/auth.
type OTPHandler struct {
	svc otp.Service
	log *zap.Logger
}

func NewOTPHandler(svc otp.Service, log *zap.Logger) *OTPHandler {
	return &OTPHandler{svc: svc, log: log}
}

func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Issue(r.Context(), req)
	if err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, SendOTPEnvelope{
		Success:   true,
		Message:   "OTP sent to your email",
		SessionID: res.SessionID,
		ExpiresIn: res.ExpiresIn,
		DevOTP:    res.DevOTP,
	})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyOTPEnvelope{
		Success:   true,
		Message:   "OTP verified successfully",
		SessionID: res.SessionID,
		Verified:  res.Verified,
		Token:     res.Token,
	})
}

func (h *OTPHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req domain.CleanupOTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Cleanup(r.Context(), req); err != nil {
		httpError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "OTP session cleaned up"})
}
