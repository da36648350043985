package errors

// ErrorCode is a machine-readable error identifier returned to clients.
type ErrorCode string

// Availability errors. These are safe to retry.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Request errors.
const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField     ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidToken     ErrorCode = "INVALID_TOKEN"
	ErrCodeTooLarge         ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeUnsupportedMedia ErrorCode = "UNSUPPORTED_MEDIA"
)

// Transcription pipeline errors. Each maps to one stage of a job.
const (
	// ErrCodeUploadFailed means the audio could not be relayed to the provider.
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"
	// ErrCodeSubmitFailed means the provider refused to create a job.
	ErrCodeSubmitFailed ErrorCode = "SUBMIT_FAILED"
	// ErrCodePollFailed means a status query could not be completed.
	ErrCodePollFailed ErrorCode = "POLL_FAILED"
	// ErrCodePollTimeout means the job did not finish within the polling bound.
	ErrCodePollTimeout ErrorCode = "POLL_TIMEOUT"
	// ErrCodeProviderError means the provider reported the job as failed.
	ErrCodeProviderError ErrorCode = "PROVIDER_ERROR"
	// ErrCodeSummarizeFailed means the summarization request failed.
	ErrCodeSummarizeFailed ErrorCode = "SUMMARIZE_FAILED"
	// ErrCodeExportFailed means the transcript could not be exported.
	ErrCodeExportFailed ErrorCode = "EXPORT_FAILED"
)

// Internal errors.
const (
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeUploadFailed:       true,
	ErrCodeSubmitFailed:       true,
	ErrCodePollFailed:         true,
	ErrCodeSummarizeFailed:    true,
}

// IsRetryableCode reports whether a failure with this code may succeed on a
// later attempt.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
