package assemblyai

import (
	"encoding/json"
	"fmt"

	"github.com/kbukum/transcribe/httpclient"
)

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// withBody appends the provider's "error" field, when present, to err.
func withBody(err error, resp *httpclient.Response) error {
	if resp == nil || len(resp.Body) == 0 {
		return err
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(resp.Body, &body) == nil && body.Error != "" {
		return fmt.Errorf("%w: %s", err, body.Error)
	}
	return err
}

// failureReason names the class of a failed call for error details.
func failureReason(err error) string {
	switch {
	case httpclient.IsAuth(err):
		return "auth"
	case httpclient.IsRateLimit(err):
		return "rate_limited"
	case httpclient.IsNotFound(err):
		return "not_found"
	case httpclient.IsTimeout(err):
		return "timeout"
	case httpclient.IsCanceled(err):
		return "canceled"
	case httpclient.IsUpstreamFailure(err):
		return "unavailable"
	}
	return "rejected"
}
