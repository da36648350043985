package transcription

import (
	"context"
	"io"

	"github.com/kbukum/transcribe/provider"
)

// Provider is implemented by speech-to-text backends that work as
// upload, submit, then poll.
type Provider interface {
	provider.Provider

	// Upload relays raw audio and returns a URL the provider can fetch it from.
	Upload(ctx context.Context, audio io.Reader, contentType string) (string, error)
	// Submit starts a job for previously uploaded audio.
	Submit(ctx context.Context, req SubmitRequest) (*Job, error)
	// Status queries a job once.
	Status(ctx context.Context, jobID string) (*StatusReport, error)
}
