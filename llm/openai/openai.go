// Package openai provides a completion backend on the go-openai SDK.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kbukum/transcribe/llm"
	"github.com/kbukum/transcribe/provider"
)

const ProviderName = "openai"

// Completer implements llm.Completer with the Chat Completions API.
type Completer struct {
	client    *goopenai.Client
	model     string
	temp      float64
	maxTokens int
	hasKey    bool
}

var _ llm.Completer = (*Completer)(nil)

// New builds a Completer from cfg. Dialect is ignored.
func New(cfg llm.Config) (*Completer, error) {
	cfg.Dialect = ProviderName
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Completer{
		client:    goopenai.NewClientWithConfig(oc),
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
		hasKey:    cfg.APIKey != "",
	}, nil
}

// Factory builds completers from the keys api_key, model, base_url, max_tokens.
func Factory() llm.Factory {
	return func(m map[string]any) (llm.Completer, error) {
		cfg := llm.Config{
			APIKey:  provider.ConfigString(m, "api_key", ""),
			Model:   provider.ConfigString(m, "model", goopenai.GPT4oMini),
			BaseURL: provider.ConfigString(m, "base_url", ""),
		}
		if n, ok := m["max_tokens"].(int); ok {
			cfg.MaxTokens = n
		}
		if d, ok := m["timeout"].(time.Duration); ok {
			cfg.Timeout = d
		}
		return New(cfg)
	}
}

func (c *Completer) Name() string                     { return ProviderName }
func (c *Completer) IsAvailable(context.Context) bool { return c.hasKey }

func (c *Completer) Execute(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temp
	}

	var msgs []goopenai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, goopenai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: float32(temp),
	})
	if err != nil {
		return llm.CompletionResponse{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.CompletionResponse{}, fmt.Errorf("openai: response has no choices")
	}
	return llm.CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
