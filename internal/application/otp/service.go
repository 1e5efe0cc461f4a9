package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/storefront-api/internal/domain"
	"github.com/storefront-api/internal/infrastructure/metrics"
	"github.com/storefront-api/internal/infrastructure/smtp"
	"github.com/storefront-api/internal/pkg/logger"
	"github.com/storefront-api/internal/pkg/token"
	"github.com/storefront-api/internal/pkg/validate"
	"go.uber.org/zap"
)

const (
	codeLength         = 6
	defaultTTL         = 5 * time.Minute
	defaultMaxAttempts = 5
	deliveryTimeout    = 30 * time.Second
	// storeGrace keeps expired records around long enough to report OTP_EXPIRED
	// before the backing store's TTL sweeper removes them.
	storeGrace = time.Hour
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// Store persists OTP records keyed by session id.
// Get returns domain.ErrNotFound for unknown sessions; MarkVerified returns
// domain.ErrConflict when the record is already verified.
type Store interface {
	Create(ctx context.Context, r *domain.OTPRecord) error
	Get(ctx context.Context, sessionID string) (*domain.OTPRecord, error)
	DeleteByUser(ctx context.Context, userID string) error
	Delete(ctx context.Context, sessionID string) error
	IncrementAttempts(ctx context.Context, sessionID string) (int, error)
	MarkVerified(ctx context.Context, sessionID string, at int64) error
}

type Mailer interface {
	Send(ctx context.Context, msg smtp.Message) error
}

type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// TokenSigner issues the token that proves the code of a session was entered.
// The token is scoped to the session; userId is caller input and never signed.
type TokenSigner interface {
	SignSession(sessionID string) (string, error)
}

type IssueResult struct {
	SessionID string
	ExpiresIn int
	DevOTP    string
}

type VerifyResult struct {
	SessionID  string
	Verified   bool
	VerifiedAt int64
	Token      string
}

type Service interface {
	Issue(ctx context.Context, req domain.SendOTPRequest) (*IssueResult, error)
	Verify(ctx context.Context, req domain.VerifyOTPRequest) (*VerifyResult, error)
	Cleanup(ctx context.Context, req domain.CleanupOTPRequest) error
}

// ServiceDeps wires the OTP service. SMSSender and Signer are optional.
type ServiceDeps struct {
	Store     Store
	Mailer    Mailer
	SMSSender SMSSender
	Signer    TokenSigner
	Logger    *zap.Logger
	Metrics   *metrics.Metrics

	TTL         time.Duration
	MaxAttempts int
	// ExposeCode echoes the plaintext code in IssueResult.DevOTP (non-production only).
	ExposeCode bool

	Now func() time.Time
	// Dispatch runs delivery work. Defaults to a new goroutine per issuance.
	Dispatch func(func())
}

type service struct {
	store       Store
	mailer      Mailer
	sms         SMSSender
	signer      TokenSigner
	log         *zap.Logger
	metrics     *metrics.Metrics
	ttl         time.Duration
	maxAttempts int
	exposeCode  bool
	now         func() time.Time
	dispatch    func(func())
}

func NewService(d ServiceDeps) Service {
	s := &service{
		store:       d.Store,
		mailer:      d.Mailer,
		sms:         d.SMSSender,
		signer:      d.Signer,
		log:         d.Logger,
		metrics:     d.Metrics,
		ttl:         d.TTL,
		maxAttempts: d.MaxAttempts,
		exposeCode:  d.ExposeCode,
		now:         d.Now,
		dispatch:    d.Dispatch,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	if s.ttl <= 0 {
		s.ttl = defaultTTL
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = defaultMaxAttempts
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.dispatch == nil {
		s.dispatch = func(f func()) { go f() }
	}
	return s
}

func (s *service) Issue(ctx context.Context, req domain.SendOTPRequest) (*IssueResult, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, missingParams(err)
	}

	code, err := token.Digits(codeLength)
	if err != nil {
		return nil, err
	}
	suffix, err := token.Random(16)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	rec := &domain.OTPRecord{
		SessionID: fmt.Sprintf("otp_%s_%d_%s", req.UserID, now.UnixMilli(), suffix),
		UserID:    req.UserID,
		Email:     req.Email,
		Code:      code,
		CreatedAt: now.UnixMilli(),
		ExpiresAt: expiresAt.UnixMilli(),
		Attempts:  0,
		Verified:  false,
		TTL:       expiresAt.Add(storeGrace).Unix(),
	}

	// Supersede every earlier session of this user before the new one becomes visible.
	if err := s.store.DeleteByUser(ctx, req.UserID); err != nil {
		return nil, domain.Dependency("delete previous otp sessions", err)
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, domain.Dependency("store otp session", err)
	}
	s.metrics.OTPIssued.Inc()
	s.log.Info("otp issued",
		zap.String("user_id", req.UserID),
		zap.String("session_id", rec.SessionID),
		zap.String("state", domain.OTPStatePending),
		zap.String("email", logger.MaskEmail(req.Email)),
	)

	s.deliver(ctx, *rec, req.UserName, req.Phone)

	res := &IssueResult{
		SessionID: rec.SessionID,
		ExpiresIn: int(s.ttl / time.Second),
	}
	if s.exposeCode {
		res.DevOTP = code
	}
	return res, nil
}

// deliver sends the code out of band. Failures are logged and counted, never returned:
// the caller already holds a valid session and can request a new code.
func (s *service) deliver(ctx context.Context, rec domain.OTPRecord, userName, phone string) {
	base := context.WithoutCancel(ctx)
	minutes := int(s.ttl / time.Minute)
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(base, deliveryTimeout)
		defer cancel()

		html, err := renderEmail(userName, rec.Code, minutes)
		if err == nil {
			err = s.mailer.Send(ctx, smtp.Message{
				To:      rec.Email,
				Subject: "Your verification code",
				HTML:    html,
			})
		}
		s.recordDelivery("email", rec, err)

		if phone != "" && s.sms != nil {
			msg := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", rec.Code, minutes)
			s.recordDelivery("sms", rec, s.sms.SendSMS(ctx, phone, msg))
		}
	})
}

func (s *service) recordDelivery(channel string, rec domain.OTPRecord, err error) {
	if err != nil {
		s.metrics.OTPDeliveries.WithLabelValues(channel, "failed").Inc()
		s.log.Warn("otp delivery failed",
			zap.String("channel", channel),
			zap.String("user_id", rec.UserID),
			zap.String("session_id", rec.SessionID),
			zap.Error(err),
		)
		return
	}
	s.metrics.OTPDeliveries.WithLabelValues(channel, "sent").Inc()
}

func (s *service) Verify(ctx context.Context, req domain.VerifyOTPRequest) (res *VerifyResult, err error) {
	defer func() {
		result := "success"
		if err != nil {
			result = domain.CodeOf(err)
		}
		s.metrics.OTPVerifications.WithLabelValues(result).Inc()
	}()

	if err := validate.Struct(&req); err != nil {
		return nil, missingParams(err)
	}
	if !codePattern.MatchString(req.OTP) {
		return nil, domain.Validation(domain.CodeInvalidFormat, "OTP must be a 6-digit number")
	}

	rec, err := s.lookup(ctx, req.UserID, req.SessionID)
	if err != nil {
		return nil, err
	}

	// Terminal conditions are checked before the code itself so the most final state wins.
	if rec.Verified {
		return nil, domain.StateConflict(domain.CodeAlreadyVerified, "OTP has already been verified")
	}
	now := s.now().UnixMilli()
	if now > rec.ExpiresAt {
		s.discard(ctx, rec, domain.OTPStateExpired)
		return nil, domain.StateConflict(domain.CodeOTPExpired, "OTP has expired, please request a new one")
	}
	if rec.Attempts >= s.maxAttempts {
		s.discard(ctx, rec, domain.OTPStateExhausted)
		return nil, domain.StateConflict(domain.CodeMaxAttempts, "Maximum verification attempts exceeded, please request a new OTP")
	}

	if subtle.ConstantTimeCompare([]byte(req.OTP), []byte(rec.Code)) != 1 {
		attempts, err := s.store.IncrementAttempts(ctx, rec.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, sessionNotFound()
			}
			return nil, domain.Dependency("record failed attempt", err)
		}
		remaining := s.maxAttempts - attempts
		if remaining < 0 {
			remaining = 0
		}
		e := domain.StateConflict(domain.CodeInvalidOTP, "Invalid OTP code")
		e.RemainingAttempts = &remaining
		return nil, e
	}

	if err := s.store.MarkVerified(ctx, rec.SessionID, now); err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			return nil, domain.StateConflict(domain.CodeAlreadyVerified, "OTP has already been verified")
		case errors.Is(err, domain.ErrNotFound):
			return nil, sessionNotFound()
		default:
			return nil, domain.Dependency("mark otp verified", err)
		}
	}
	s.metrics.OTPSessionsClosed.WithLabelValues(domain.OTPStateVerified).Inc()
	s.log.Info("otp verified",
		zap.String("user_id", rec.UserID),
		zap.String("session_id", rec.SessionID),
		zap.String("state", domain.OTPStateVerified),
	)

	res = &VerifyResult{SessionID: rec.SessionID, Verified: true, VerifiedAt: now}
	if s.signer != nil {
		tok, err := s.signer.SignSession(rec.SessionID)
		if err != nil {
			s.log.Error("failed to sign session token", zap.String("session_id", rec.SessionID), zap.Error(err))
		} else {
			res.Token = tok
		}
	}
	return res, nil
}

func (s *service) Cleanup(ctx context.Context, req domain.CleanupOTPRequest) error {
	if err := validate.Struct(&req); err != nil {
		return missingParams(err)
	}
	rec, err := s.store.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return domain.Dependency("load otp session", err)
	}
	if rec.UserID != req.UserID {
		return nil
	}
	if err := s.store.Delete(ctx, req.SessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Dependency("delete otp session", err)
	}
	if !rec.Verified {
		s.metrics.OTPSessionsClosed.WithLabelValues(domain.OTPStateInvalidated).Inc()
	}
	s.log.Info("otp session cleaned up", zap.String("session_id", req.SessionID), zap.String("user_id", req.UserID))
	return nil
}

// lookup resolves the session owned by userID. A session of another user is
// reported exactly like a missing one.
func (s *service) lookup(ctx context.Context, userID, sessionID string) (*domain.OTPRecord, error) {
	rec, err := s.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, sessionNotFound()
		}
		return nil, domain.Dependency("load otp session", err)
	}
	if rec.UserID != userID {
		return nil, sessionNotFound()
	}
	return rec, nil
}

func (s *service) discard(ctx context.Context, rec *domain.OTPRecord, state string) {
	s.metrics.OTPSessionsClosed.WithLabelValues(state).Inc()
	if err := s.store.Delete(ctx, rec.SessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("failed to delete terminal otp session",
			zap.String("state", state),
			zap.String("session_id", rec.SessionID),
			zap.Error(err),
		)
	}
}

func sessionNotFound() *domain.Error {
	return domain.NotFound(domain.CodeSessionNotFound, "OTP session not found or already invalidated")
}

func missingParams(err error) *domain.Error {
	var fe *validate.FieldsError
	if errors.As(err, &fe) {
		return domain.Validation(domain.CodeMissingParams, "Missing required fields: "+strings.Join(fe.Fields, ", "))
	}
	return domain.Validation(domain.CodeMissingParams, err.Error())
}
