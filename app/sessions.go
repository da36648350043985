package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/llm"
	"github.com/kbukum/transcribe/llm/anthropic"
	"github.com/kbukum/transcribe/llm/openai"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/redis"
	"github.com/kbukum/transcribe/server"
	"github.com/kbukum/transcribe/server/middleware"
	"github.com/kbukum/transcribe/session"
	"github.com/kbukum/transcribe/sse"
	"github.com/kbukum/transcribe/storage"
	"github.com/kbukum/transcribe/summarize"
	"github.com/kbukum/transcribe/transcription"
	"github.com/kbukum/transcribe/transcription/assemblyai"
	"github.com/kbukum/transcribe/util"
	"github.com/kbukum/transcribe/web"
)

const (
	sweepInterval = time.Minute
	pruneInterval = 5 * time.Minute
	storeName     = "session"
)

var (
	_ component.Component   = (*sessions)(nil)
	_ component.Describable = (*sessions)(nil)
)

// sessions builds the session service once its infrastructure is running and
// mounts the web handler on the server. It must be registered after redis,
// storage and sse and before the server.
type sessions struct {
	cfg     *Config
	redis   *redis.Component
	storage *storage.Component
	events  *sse.Component
	server  *server.Server
	metrics *observability.Metrics
	log     *logger.Logger

	transcriber transcription.Provider
	svc         *session.Service
	storeKind   string
	cancel      context.CancelFunc
}

func (s *sessions) Name() string { return "sessions" }

func (s *sessions) Start(ctx context.Context) error {
	p, err := newTranscriber(s.cfg)
	if err != nil {
		return err
	}
	s.transcriber = p

	opts := []session.Option{
		session.WithPublisher(s.events.Hub()),
		session.WithMetrics(s.metrics),
		session.WithLogger(s.log),
	}
	sum, err := newSummarizer(s.cfg, s.metrics)
	if err != nil {
		return err
	}
	if sum != nil {
		opts = append(opts, session.WithSummarizer(sum))
	}
	if st := s.storage.Storage(); st != nil {
		opts = append(opts, session.WithArchive(st, s.storage.Prefix()))
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	store := s.newStore(bg)
	s.svc = session.NewService(s.cfg.Session, p, s.cfg.Poller, store, opts...)

	issuer, err := session.NewTokenIssuer(s.cfg.Session.Cookie)
	if err != nil {
		cancel()
		return err
	}
	if s.cfg.Session.Cookie.Secret == "" {
		s.log.Warn("session.cookie.secret is not set; sessions will not survive a restart")
	}

	handlerOpts := []web.Option{
		web.WithTempDir(s.cfg.Session.SpoolDir),
		web.WithKeepAlive(s.cfg.Session.KeepAlive),
	}
	if rl := s.cfg.Server.RateLimit; rl.Enabled {
		limiter := middleware.NewRateLimiter(rl, middleware.ClientIPKey)
		go limiter.PruneEvery(bg, pruneInterval)
		handlerOpts = append(handlerOpts, web.WithRateLimit(limiter.Handler()))
	}
	web.NewHandler(s.svc, s.events.Hub(), issuer, handlerOpts...).Register(s.server.GinEngine())
	return nil
}

// newStore picks redis when it is running and falls back to memory.
func (s *sessions) newStore(ctx context.Context) session.Store {
	if s.redis != nil && s.redis.Client() != nil {
		s.storeKind = "redis"
		return redis.NewTypedStore[session.State](s.redis.Client(), storeName)
	}
	s.storeKind = "memory"
	mem := provider.NewMemoryStore[session.State]()
	go func() {
		t := time.NewTicker(sweepInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := mem.Sweep(); n > 0 {
					s.log.Debug("expired sessions swept", logger.Fields("count", n))
				}
			}
		}
	}()
	return mem
}

func (s *sessions) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.svc == nil {
		return nil
	}
	return s.svc.Shutdown(ctx)
}

func (s *sessions) Health(ctx context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	switch {
	case s.svc == nil:
		h.Status, h.Message = component.StatusUnhealthy, "not started"
	case !s.transcriber.IsAvailable(ctx):
		h.Status, h.Message = component.StatusDegraded, s.transcriber.Name()+" unavailable"
	default:
		h.Message = fmt.Sprintf("%d active", s.svc.Active())
	}
	return h
}

func (s *sessions) Describe() component.Description {
	details := fmt.Sprintf("transcriber=%s key=%s store=%s",
		s.cfg.Transcriber, util.MaskSecret(s.cfg.AssemblyAI.APIKey, 4), s.storeKind)
	if s.cfg.Summarizer.Enabled {
		details += " summarizer=" + s.cfg.Summarizer.Provider
	}
	return component.Description{Name: s.Name(), Type: "session", Details: details}
}

func newTranscriber(cfg *Config) (transcription.Provider, error) {
	reg := transcription.NewRegistry()
	assemblyai.Register(reg)
	p, err := reg.Create(cfg.Transcriber, cfg.AssemblyAI.FactoryConfig())
	if err != nil {
		return nil, fmt.Errorf("transcriber %q: %w", cfg.Transcriber, err)
	}
	return p, nil
}

// newSummarizer returns nil when summarization is disabled.
func newSummarizer(cfg *Config, metrics *observability.Metrics) (*summarize.Summarizer, error) {
	if !cfg.Summarizer.Enabled {
		return nil, nil
	}
	reg := llm.NewRegistry()
	reg.RegisterFactory(anthropic.DialectName, llm.DialectFactory(anthropic.DialectName))
	reg.RegisterFactory(openai.ProviderName, openai.Factory())
	completer, err := reg.Create(cfg.Summarizer.Provider, cfg.Summarizer.FactoryConfig())
	if err != nil {
		return nil, fmt.Errorf("summarizer %q: %w", cfg.Summarizer.Provider, err)
	}
	return summarize.New(completer,
		summarize.WithMaxInputChars(cfg.Summarizer.MaxInputChars),
		summarize.WithMetrics(metrics),
		summarize.WithTracing(cfg.Name),
		summarize.WithLogger(logger.WithComponent("summarizer")),
	), nil
}
