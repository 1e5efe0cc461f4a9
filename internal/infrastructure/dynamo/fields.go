package dynamo

// DynamoDB attribute names used in key, condition and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldSessionID  = "session_id"
	fieldUserID     = "user_id"
	fieldAttempts   = "attempts"
	fieldVerified   = "verified"
	fieldVerifiedAt = "verified_at"
	fieldTTL        = "ttl"

	indexUserID = "user_id-index"
)
