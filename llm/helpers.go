package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kbukum/transcribe/provider"
)

// Completer is anything that turns a completion request into a response,
// including middleware-wrapped adapters.
type Completer = provider.RequestResponse[CompletionRequest, CompletionResponse]

// Complete sends an optional system prompt and one user message and returns
// the reply text. An empty reply is an error.
func Complete(ctx context.Context, c Completer, system, user string) (string, error) {
	resp, err := c.Execute(ctx, CompletionRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return "", fmt.Errorf("llm: %s returned an empty completion", c.Name())
	}
	return text, nil
}
