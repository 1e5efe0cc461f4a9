package domain

// OTPRecord is a one-time code issued for a single verification session.
// PK: session_id. GSI: user_id-index (used to supersede prior sessions).
// Times are epoch milliseconds; TTL is epoch seconds and only drives DynamoDB garbage collection.
type OTPRecord struct {
	SessionID  string `json:"sessionId" dynamodbav:"session_id"`
	UserID     string `json:"userId" dynamodbav:"user_id"`
	Email      string `json:"email" dynamodbav:"email"`
	Code       string `json:"-" dynamodbav:"code"`
	CreatedAt  int64  `json:"createdAt" dynamodbav:"created_at"`
	ExpiresAt  int64  `json:"expiresAt" dynamodbav:"expires_at"`
	Attempts   int    `json:"attempts" dynamodbav:"attempts"`
	Verified   bool   `json:"verified" dynamodbav:"verified"`
	VerifiedAt int64  `json:"verifiedAt,omitempty" dynamodbav:"verified_at"`
	TTL        int64  `json:"-" dynamodbav:"ttl"`
}

// OTP session states, used as metric labels and log fields. A session starts
// pending and closes in exactly one of the other states.
const (
	OTPStatePending     = "pending"
	OTPStateVerified    = "verified"
	OTPStateExpired     = "expired"
	OTPStateExhausted   = "exhausted"
	OTPStateInvalidated = "invalidated"
)

type SendOTPRequest struct {
	UserID   string `json:"userId" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,notblank"`
	UserName string `json:"userName"`
	Phone    string `json:"phone"`
}

type VerifyOTPRequest struct {
	UserID    string `json:"userId" validate:"required,notblank"`
	OTP       string `json:"otp" validate:"required,notblank"`
	SessionID string `json:"sessionId" validate:"required,notblank"`
}

type CleanupOTPRequest struct {
	UserID    string `json:"userId" validate:"required,notblank"`
	SessionID string `json:"sessionId" validate:"required,notblank"`
}
