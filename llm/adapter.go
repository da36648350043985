package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/httpclient/rest"
	"github.com/kbukum/transcribe/provider"
)

// ErrNoDialect is returned by NewWithDialect for a nil dialect.
var ErrNoDialect = errors.New("llm: dialect is required")

// Adapter sends completions through a Dialect. It never retries.
type Adapter struct {
	name      string
	rest      *rest.Client
	dialect   Dialect
	model     string
	temp      float64
	maxTokens int
	hasKey    bool
}

var _ provider.RequestResponse[CompletionRequest, CompletionResponse] = (*Adapter)(nil)

// New builds an Adapter for the dialect registered as cfg.Dialect.
func New(cfg Config) (*Adapter, error) {
	dialect, err := GetDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	return NewWithDialect(dialect, cfg)
}

func NewWithDialect(dialect Dialect, cfg Config) (*Adapter, error) {
	if dialect == nil {
		return nil, ErrNoDialect
	}
	if cfg.Dialect == "" {
		cfg.Dialect = dialect.Name()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = dialect.DefaultBaseURL()
	}

	headers := make(map[string]string, len(cfg.Headers)+2)
	for k, v := range dialect.Headers() {
		headers[k] = v
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	client, err := rest.New(httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		Headers:        headers,
		Auth:           dialect.Auth(cfg.APIKey),
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(cfg.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create rest client: %w", err)
	}
	return &Adapter{
		name:      cfg.Name,
		rest:      client,
		dialect:   dialect,
		model:     cfg.Model,
		temp:      cfg.Temperature,
		maxTokens: cfg.MaxTokens,
		hasKey:    cfg.APIKey != "",
	}, nil
}

func (a *Adapter) Name() string { return a.name }

// IsAvailable reports whether a credential is configured; hosted completion
// APIs expose no free health route.
func (a *Adapter) IsAvailable(context.Context) bool { return a.hasKey }

// Dialect returns the dialect in use.
func (a *Adapter) Dialect() Dialect { return a.dialect }

// Execute sends one completion request.
func (a *Adapter) Execute(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	a.applyDefaults(&req)

	body, err := a.dialect.BuildRequest(req)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: build request: %w", err)
	}
	resp, err := rest.Post[json.RawMessage](ctx, a.rest, a.dialect.ChatPath(), body)
	if err != nil {
		if resp != nil && len(resp.Data) > 0 {
			return CompletionResponse{}, fmt.Errorf("llm: execute: %w: %s", err, resp.Data)
		}
		return CompletionResponse{}, fmt.Errorf("llm: execute: %w", err)
	}
	result, err := a.dialect.ParseResponse(resp.Data)
	if err != nil {
		return CompletionResponse{}, fmt.Errorf("llm: parse response: %w", err)
	}
	return *result, nil
}

func (a *Adapter) applyDefaults(req *CompletionRequest) {
	if req.Model == "" {
		req.Model = a.model
	}
	if req.Temperature == 0 {
		req.Temperature = a.temp
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = a.maxTokens
	}
}
