// Package summarize turns a finished transcript into a short summary using a
// language-model completer.
package summarize

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/llm"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/provider"
)

// PromptPrefix precedes the transcript text in the user message.
const PromptPrefix = "Summarize the following transcription:\n\n"

// Config selects and tunes the summarization backend.
type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Provider string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=anthropic openai"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Model    string `yaml:"model" mapstructure:"model"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	// MaxTokens caps the summary length.
	MaxTokens int           `yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=0"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MaxInputChars truncates very long transcripts before sending. Zero sends
	// everything.
	MaxInputChars int `yaml:"max_input_chars" mapstructure:"max_input_chars" validate:"gte=0"`
}

func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = "anthropic"
	}
	if c.Model == "" && c.Provider == "anthropic" {
		c.Model = "claude-3-5-sonnet-latest"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 500
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// FactoryConfig is the map handed to an llm.Registry factory.
func (c Config) FactoryConfig() map[string]any {
	m := map[string]any{
		"api_key":    c.APIKey,
		"model":      c.Model,
		"max_tokens": c.MaxTokens,
		"timeout":    c.Timeout,
	}
	if c.BaseURL != "" {
		m["base_url"] = c.BaseURL
	}
	return m
}

// Summarizer produces summaries through a completer.
type Summarizer struct {
	completer llm.Completer
	maxInput  int
	log       *logger.Logger
}

// Option configures a Summarizer.
type Option func(*options)

type options struct {
	maxInput    int
	metrics     *observability.Metrics
	serviceName string
	log         *logger.Logger
}

func WithMaxInputChars(n int) Option { return func(o *options) { o.maxInput = n } }

func WithMetrics(m *observability.Metrics) Option { return func(o *options) { o.metrics = m } }

func WithTracing(serviceName string) Option { return func(o *options) { o.serviceName = serviceName } }

func WithLogger(log *logger.Logger) Option { return func(o *options) { o.log = log } }

// New wraps completer with logging, and with tracing and metrics when
// configured.
func New(completer llm.Completer, opts ...Option) *Summarizer {
	o := options{log: logger.Get("summarizer")}
	for _, opt := range opts {
		opt(&o)
	}
	mws := []provider.Middleware[llm.CompletionRequest, llm.CompletionResponse]{
		provider.WithLogging[llm.CompletionRequest, llm.CompletionResponse](o.log),
	}
	if o.serviceName != "" {
		mws = append(mws, provider.WithTracing[llm.CompletionRequest, llm.CompletionResponse](o.serviceName))
	}
	if o.metrics != nil {
		mws = append(mws, provider.WithMetrics[llm.CompletionRequest, llm.CompletionResponse](o.metrics))
	}
	return &Summarizer{
		completer: provider.Chain(mws...)(completer),
		maxInput:  o.maxInput,
		log:       o.log,
	}
}

// Name returns the backend name.
func (s *Summarizer) Name() string { return s.completer.Name() }

// Summarize returns a summary of text. Failures are SUMMARIZE_FAILED errors.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NothingToExport("summarize")
	}
	if s.maxInput > 0 && len(text) > s.maxInput {
		text = truncate(text, s.maxInput)
	}
	summary, err := llm.Complete(ctx, s.completer, "", PromptPrefix+text)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", errors.SummarizeFailed(err).WithDetail("provider", s.completer.Name())
	}
	return summary, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	for n > 0 && n < len(s) && (s[n]&0xC0) == 0x80 {
		n--
	}
	return s[:n]
}
