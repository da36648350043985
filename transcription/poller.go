package transcription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/resilience"
)

// PollerConfig bounds the status loop.
type PollerConfig struct {
	Interval      time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxInterval   time.Duration `yaml:"max_interval" mapstructure:"max_interval"`
	BackoffFactor float64       `yaml:"backoff_factor" mapstructure:"backoff_factor" validate:"gte=0"`
	// MaxAttempts caps status queries per job. Unbounded disables the cap.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts" validate:"gte=-1"`
	// Timeout caps the wall-clock wait per job. Unbounded disables the cap.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=-1"`
}

// Unbounded switches off MaxAttempts or Timeout. Zero means the default.
const Unbounded = -1

// DefaultPollerConfig polls every five seconds for up to an hour.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Interval:      5 * time.Second,
		MaxInterval:   30 * time.Second,
		BackoffFactor: 1,
		MaxAttempts:   720,
		Timeout:       time.Hour,
	}
}

// ApplyDefaults fills unset fields from DefaultPollerConfig.
func (c *PollerConfig) ApplyDefaults() {
	def := DefaultPollerConfig()
	if c.MaxAttempts == 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = def.MaxInterval
	}
	if c.MaxInterval < c.Interval {
		c.MaxInterval = c.Interval
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = def.BackoffFactor
	}
}

func (c PollerConfig) backoff() resilience.Backoff {
	return resilience.Backoff{Initial: c.Interval, Max: c.MaxInterval, Factor: c.BackoffFactor}
}

// StatusFunc observes every status report while a job is pending.
type StatusFunc func(report *StatusReport, attempt int)

// Poller waits for submitted jobs to finish, one status query per tick.
type Poller struct {
	provider Provider
	cfg      PollerConfig
	log      *logger.Logger
	metrics  *observability.Metrics
	onStatus StatusFunc
	sleep    func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	inflight map[string]struct{}
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

func WithPollerLogger(log *logger.Logger) PollerOption {
	return func(p *Poller) { p.log = log }
}

func WithPollerMetrics(m *observability.Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// WithStatusHook registers fn to be called after each non-terminal report.
func WithStatusHook(fn StatusFunc) PollerOption {
	return func(p *Poller) { p.onStatus = fn }
}

func NewPoller(provider Provider, cfg PollerConfig, opts ...PollerOption) *Poller {
	cfg.ApplyDefaults()
	p := &Poller{
		provider: provider,
		cfg:      cfg,
		log:      logger.Get("poller"),
		sleep:    resilience.Sleep,
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait queries jobID until it completes or fails. The first query is issued
// immediately. A completed job yields its report; every other outcome is an
// *errors.AppError, except cancellation of ctx which is returned as ctx.Err().
func (p *Poller) Wait(ctx context.Context, jobID string) (*StatusReport, error) {
	if !p.claim(jobID) {
		return nil, errors.Conflict(fmt.Sprintf("job %s is already being polled", jobID)).
			WithDetail("job_id", jobID)
	}
	defer p.release(jobID)

	ctx, span := observability.StartSpan(ctx, "transcription.wait")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrJobID, jobID)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, p.provider.Name())

	parent := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	log := p.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldJobID, jobID))
	start := time.Now()
	backoff := p.cfg.backoff()

	for attempt := 1; ; attempt++ {
		report, err := p.provider.Status(ctx, jobID)
		if err != nil {
			if perr := parent.Err(); perr != nil {
				p.finish(ctx, "cancelled", start)
				return nil, perr
			}
			if ctx.Err() != nil {
				return nil, p.timedOut(ctx, jobID, attempt, start)
			}
			observability.SetSpanError(ctx, err)
			p.finish(ctx, "poll_failed", start)
			if app, ok := errors.AsAppError(err); ok && app.Code == errors.ErrCodePollFailed {
				return nil, app
			}
			return nil, errors.PollFailed(jobID, err)
		}
		if p.metrics != nil {
			p.metrics.RecordPoll(ctx, p.provider.Name(), string(report.Status))
		}
		log.Debug("job status", logger.Fields(logger.FieldStatus, string(report.Status), logger.FieldAttempt, attempt))

		switch report.Status {
		case StatusCompleted:
			if report.Transcript.IsEmpty() {
				p.finish(ctx, "empty", start)
				return nil, errors.ProviderFailed(jobID, "empty transcript")
			}
			p.finish(ctx, "completed", start)
			log.Info("job completed", logger.Fields(logger.FieldAttempt, attempt), logger.DurationFields("wait", time.Since(start)))
			return report, nil
		case StatusError:
			p.finish(ctx, "error", start)
			log.Warn("job failed", logger.Fields(logger.FieldError, report.ErrorMessage))
			return nil, errors.ProviderFailed(jobID, report.ErrorMessage)
		}

		if p.onStatus != nil {
			p.onStatus(report, attempt)
		}
		if p.cfg.MaxAttempts > 0 && attempt >= p.cfg.MaxAttempts {
			return nil, p.timedOut(ctx, jobID, attempt, start)
		}
		if err := p.sleep(ctx, backoff.Delay(attempt)); err != nil {
			if perr := parent.Err(); perr != nil {
				p.finish(ctx, "cancelled", start)
				return nil, perr
			}
			return nil, p.timedOut(ctx, jobID, attempt, start)
		}
	}
}

func (p *Poller) timedOut(ctx context.Context, jobID string, attempts int, start time.Time) error {
	err := errors.PollTimeout(jobID, attempts)
	observability.SetSpanError(ctx, err)
	p.finish(ctx, "timeout", start)
	return err
}

func (p *Poller) finish(ctx context.Context, outcome string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordJob(context.WithoutCancel(ctx), p.provider.Name(), outcome, time.Since(start))
	}
}

func (p *Poller) claim(jobID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[jobID]; busy {
		return false
	}
	p.inflight[jobID] = struct{}{}
	return true
}

func (p *Poller) release(jobID string) {
	p.mu.Lock()
	delete(p.inflight, jobID)
	p.mu.Unlock()
}
