package errors

import (
	"fmt"
	"net/http"
)

// NoFileSelected is returned when a transcription is requested without audio.
// It is raised before any network call is made.
func NoFileSelected() *AppError {
	return New(ErrCodeMissingField, "Please select an audio file first.", http.StatusBadRequest).
		WithDetail("field", "file")
}

// UnsupportedMedia is returned when the uploaded bytes are not an audio container.
func UnsupportedMedia(detected string) *AppError {
	return New(ErrCodeUnsupportedMedia, "The selected file is not a supported audio format.",
		http.StatusUnsupportedMediaType).WithDetail("detected", detected)
}

// FileTooLarge is returned when the upload exceeds the configured limit.
func FileTooLarge(limit int64) *AppError {
	return New(ErrCodeTooLarge, "The selected file is too large.", http.StatusRequestEntityTooLarge).
		WithDetail("limit_bytes", limit)
}

// UploadFailed wraps a failed relay of audio bytes to the provider.
func UploadFailed(provider string, cause error) *AppError {
	return New(ErrCodeUploadFailed, "Uploading the audio failed. Please try again.", http.StatusBadGateway).
		WithDetail("provider", provider).WithCause(cause)
}

// SubmitFailed wraps a rejected transcription job request.
func SubmitFailed(provider string, cause error) *AppError {
	return New(ErrCodeSubmitFailed, "Starting the transcription failed. Please try again.", http.StatusBadGateway).
		WithDetail("provider", provider).WithCause(cause)
}

// PollFailed wraps a status query that could not complete.
func PollFailed(jobID string, cause error) *AppError {
	return New(ErrCodePollFailed, "Checking the transcription status failed.", http.StatusBadGateway).
		WithDetail("job_id", jobID).WithCause(cause)
}

// PollTimeout is returned when a job is still pending after the polling bound.
func PollTimeout(jobID string, attempts int) *AppError {
	return New(ErrCodePollTimeout, "The transcription is taking too long. Please try again later.",
		http.StatusGatewayTimeout).WithDetails(map[string]any{"job_id": jobID, "attempts": attempts})
}

// ProviderFailed carries the message the provider attached to a failed job.
func ProviderFailed(jobID, message string) *AppError {
	if message == "" {
		message = "unknown provider error"
	}
	return New(ErrCodeProviderError, fmt.Sprintf("Transcription failed: %s", message), http.StatusBadGateway).
		WithDetails(map[string]any{"job_id": jobID, "provider_message": message})
}

// SummarizeFailed wraps a failed summarization call.
func SummarizeFailed(cause error) *AppError {
	return New(ErrCodeSummarizeFailed, "Summarizing the transcript failed. Please try again.", http.StatusBadGateway).
		WithCause(cause)
}

// NothingToExport is returned when copy or download is requested before a
// transcript exists.
func NothingToExport(action string) *AppError {
	return New(ErrCodeExportFailed, "There is no transcript to export yet.", http.StatusConflict).
		WithDetail("action", action)
}
