package errors

// Error codes for standardized error responses
const (
	// Identity errors
	ErrCodeInvalidToken     = "invalid_token"
	ErrCodeTokenExpired     = "token_expired"
	ErrCodeMissingRequester = "missing_requester"

	// Validation errors
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidPolicy  = "invalid_policy"
	ErrCodeInvalidQuota   = "invalid_quota"
	ErrCodeMissingField   = "missing_field"

	// Resource errors
	ErrCodeAllocationNotFound = "allocation_not_found"

	// Allocation errors
	ErrCodeInsufficientPool = "insufficient_pool"
	ErrCodeQuizBusy         = "quiz_busy"
	ErrCodeAllocationFailed = "allocation_failed"
	ErrCodeResetFailed      = "reset_failed"

	// Server errors
	ErrCodeInternalError = "internal_error"
	ErrCodeUpstreamError = "upstream_error"
)
