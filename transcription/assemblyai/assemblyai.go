// Package assemblyai implements transcription.Provider against the
// AssemblyAI v2 REST API.
package assemblyai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/httpclient"
	"github.com/kbukum/transcribe/httpclient/rest"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/transcription"
)

const (
	// ProviderName is the registered name for this backend.
	ProviderName = "assemblyai"

	defaultBaseURL = "https://api.assemblyai.com"
	defaultTimeout = 60 * time.Second
)

// Config holds AssemblyAI settings. APIKey stays on the server.
type Config struct {
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// SpeakerLabels is on unless explicitly set to false.
	SpeakerLabels     *bool  `yaml:"speaker_labels" mapstructure:"speaker_labels"`
	SentimentAnalysis bool   `yaml:"sentiment_analysis" mapstructure:"sentiment_analysis"`
	LanguageCode      string `yaml:"language_code" mapstructure:"language_code"`
}

func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.SpeakerLabels == nil {
		on := true
		c.SpeakerLabels = &on
	}
}

func (c Config) speakerLabels() bool { return c.SpeakerLabels == nil || *c.SpeakerLabels }

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("assemblyai: api_key is required")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		return fmt.Errorf("assemblyai: invalid base_url %q: %w", c.BaseURL, err)
	}
	return nil
}

// FactoryConfig is the map handed to a provider registry factory.
func (c Config) FactoryConfig() map[string]any {
	m := map[string]any{
		"api_key":            c.APIKey,
		"speaker_labels":     c.speakerLabels(),
		"sentiment_analysis": c.SentimentAnalysis,
		"timeout":            c.Timeout,
	}
	if c.BaseURL != "" {
		m["base_url"] = c.BaseURL
	}
	if c.LanguageCode != "" {
		m["language_code"] = c.LanguageCode
	}
	return m
}

// Provider talks to AssemblyAI. Calls are never retried here.
type Provider struct {
	cfg    Config
	client *rest.Client
}

var _ transcription.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := rest.New(httpclient.Config{
		BaseURL:        cfg.BaseURL,
		Timeout:        cfg.Timeout,
		Auth:           httpclient.APIKeyAuthHeader(cfg.APIKey, "authorization"),
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig(ProviderName),
	})
	if err != nil {
		return nil, fmt.Errorf("assemblyai: %w", err)
	}
	return &Provider{cfg: cfg, client: client}, nil
}

// Factory builds providers from a loosely typed config map.
func Factory() provider.Factory[transcription.Provider] {
	return func(m map[string]any) (transcription.Provider, error) {
		key, err := provider.RequireString(m, "api_key")
		if err != nil {
			return nil, err
		}
		labels := provider.ConfigBool(m, "speaker_labels", true)
		cfg := Config{
			APIKey:            key,
			BaseURL:           provider.ConfigString(m, "base_url", ""),
			SpeakerLabels:     &labels,
			SentimentAnalysis: provider.ConfigBool(m, "sentiment_analysis", false),
			LanguageCode:      provider.ConfigString(m, "language_code", ""),
		}
		if d, ok := m["timeout"].(time.Duration); ok {
			cfg.Timeout = d
		}
		return New(cfg)
	}
}

// Register adds this backend to reg under ProviderName.
func Register(reg *provider.Registry[transcription.Provider]) {
	reg.RegisterFactory(ProviderName, Factory())
}

func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether a key is configured. AssemblyAI has no
// unauthenticated health route.
func (p *Provider) IsAvailable(context.Context) bool { return p.cfg.APIKey != "" }

// Defaults returns the submit options configured for this provider.
func (p *Provider) Defaults(audioURL string) transcription.SubmitRequest {
	return transcription.SubmitRequest{
		AudioURL:          audioURL,
		SpeakerLabels:     p.cfg.speakerLabels(),
		SentimentAnalysis: p.cfg.SentimentAnalysis,
		LanguageCode:      p.cfg.LanguageCode,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
	Error     string `json:"error"`
}

func (p *Provider) Upload(ctx context.Context, audio io.Reader, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := p.client.HTTP().Do(ctx, httpclient.Request{
		Method:      http.MethodPost,
		Path:        "/v2/upload",
		Body:        audio,
		ContentType: contentType,
	})
	if err != nil {
		return "", errors.UploadFailed(ProviderName, withBody(err, resp)).WithDetail("reason", failureReason(err))
	}
	var out uploadResponse
	if err := decode(resp.Body, &out); err != nil {
		return "", errors.UploadFailed(ProviderName, err)
	}
	if out.UploadURL == "" {
		return "", errors.UploadFailed(ProviderName, fmt.Errorf("response carried no upload_url"))
	}
	return out.UploadURL, nil
}

type submitRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	SentimentAnalysis bool   `json:"sentiment_analysis,omitempty"`
	LanguageCode      string `json:"language_code,omitempty"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (p *Provider) Submit(ctx context.Context, req transcription.SubmitRequest) (*transcription.Job, error) {
	if req.AudioURL == "" {
		return nil, errors.MissingField("audio_url")
	}
	resp, err := rest.Post[jobResponse](ctx, p.client, "/v2/transcript", submitRequest{
		AudioURL:          req.AudioURL,
		SpeakerLabels:     req.SpeakerLabels,
		SentimentAnalysis: req.SentimentAnalysis,
		LanguageCode:      req.LanguageCode,
	})
	if err != nil {
		if resp != nil && resp.Data.Error != "" {
			err = fmt.Errorf("%w: %s", err, resp.Data.Error)
		}
		return nil, errors.SubmitFailed(ProviderName, err).WithDetail("reason", failureReason(err))
	}
	if resp.Data.ID == "" {
		return nil, errors.SubmitFailed(ProviderName, fmt.Errorf("response carried no job id"))
	}
	status := transcription.JobStatus(resp.Data.Status)
	if status == "" {
		status = transcription.StatusQueued
	}
	return &transcription.Job{ID: resp.Data.ID, Status: status, AudioURL: req.AudioURL}, nil
}

type utterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
}

type sentimentResult struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Speaker    *string `json:"speaker"`
}

type statusResponse struct {
	ID                       string            `json:"id"`
	Status                   string            `json:"status"`
	Text                     *string           `json:"text"`
	Utterances               []utterance       `json:"utterances"`
	Error                    string            `json:"error"`
	SentimentAnalysisResults []sentimentResult `json:"sentiment_analysis_results"`
	AudioDuration            *float64          `json:"audio_duration"`
}

func (p *Provider) Status(ctx context.Context, jobID string) (*transcription.StatusReport, error) {
	resp, err := rest.Get[statusResponse](ctx, p.client, "/v2/transcript/"+url.PathEscape(jobID))
	if err != nil {
		if resp != nil && resp.Data.Error != "" {
			err = fmt.Errorf("%w: %s", err, resp.Data.Error)
		}
		return nil, errors.PollFailed(jobID, err).WithDetail("reason", failureReason(err))
	}
	return toReport(jobID, &resp.Data)
}

func toReport(jobID string, r *statusResponse) (*transcription.StatusReport, error) {
	report := &transcription.StatusReport{JobID: jobID, Status: transcription.JobStatus(r.Status)}
	switch report.Status {
	case transcription.StatusQueued, transcription.StatusProcessing:
		return report, nil
	case transcription.StatusError:
		report.ErrorMessage = r.Error
		return report, nil
	case transcription.StatusCompleted:
	default:
		return nil, errors.PollFailed(jobID, fmt.Errorf("unknown job status %q", r.Status))
	}

	if len(r.Utterances) > 0 {
		us := make([]transcription.Utterance, len(r.Utterances))
		for i, u := range r.Utterances {
			us[i] = transcription.Utterance{
				Speaker: u.Speaker, Text: u.Text, Start: u.Start, End: u.End, Confidence: u.Confidence,
			}
		}
		report.Transcript = transcription.NewSpeakerTranscript(us)
	} else if r.Text != nil {
		report.Transcript = transcription.NewTextTranscript(*r.Text)
	}
	if r.AudioDuration != nil {
		report.AudioDuration = *r.AudioDuration
	}
	for _, s := range r.SentimentAnalysisResults {
		res := transcription.SentimentResult{
			Text: s.Text, Sentiment: transcription.Sentiment(s.Sentiment),
			Start: s.Start, End: s.End, Confidence: s.Confidence,
		}
		if s.Speaker != nil {
			res.Speaker = *s.Speaker
		}
		report.Sentiments = append(report.Sentiments, res)
	}
	return report, nil
}
