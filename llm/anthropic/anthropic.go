// Package anthropic registers the "anthropic" llm dialect for the Messages API.
package anthropic

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/llm"
)

const (
	DialectName = "anthropic"
	APIVersion  = "2023-06-01"
	// DefaultMaxTokens applies when neither the request nor the config sets one;
	// the Messages API requires the field.
	DefaultMaxTokens = 1024
)

func init() {
	llm.RegisterDialect(DialectName, &Dialect{})
}

// Dialect implements llm.Dialect.
type Dialect struct{}

var _ llm.Dialect = (*Dialect)(nil)

func (d *Dialect) Name() string           { return DialectName }
func (d *Dialect) ChatPath() string       { return "/v1/messages" }
func (d *Dialect) DefaultBaseURL() string { return "https://api.anthropic.com" }

func (d *Dialect) Auth(apiKey string) *httpclient.AuthConfig {
	return httpclient.APIKeyAuthHeader(apiKey, "x-api-key")
}

func (d *Dialect) Headers() map[string]string {
	return map[string]string{"anthropic-version": APIVersion}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

func (d *Dialect) BuildRequest(req llm.CompletionRequest) (any, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("anthropic: at least one message is required")
	}
	out := request{Model: req.Model, MaxTokens: req.MaxTokens, System: req.SystemPrompt}
	if out.MaxTokens == 0 {
		out.MaxTokens = DefaultMaxTokens
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			out.System = strings.TrimSpace(out.System + "\n" + m.Content)
			continue
		}
		out.Messages = append(out.Messages, message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

type response struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ParseResponse concatenates the text blocks of the reply.
func (d *Dialect) ParseResponse(body []byte) (*llm.CompletionResponse, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("anthropic: decode: %w", err)
	}
	var sb strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" || block.Type == "" {
			sb.WriteString(block.Text)
		}
	}
	return &llm.CompletionResponse{
		Content: sb.String(),
		Model:   r.Model,
		Usage: llm.Usage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}, nil
}
