// Package app assembles the transcription service from its configuration.
package app

import (
	"context"
	"fmt"

	"github.com/kbukum/transcribe/bootstrap"
	"github.com/kbukum/transcribe/component"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/redis"
	"github.com/kbukum/transcribe/server"
	"github.com/kbukum/transcribe/sse"
	"github.com/kbukum/transcribe/storage"

	// Storage backends register themselves.
	_ "github.com/kbukum/transcribe/storage/local"
	_ "github.com/kbukum/transcribe/storage/s3"
)

const eventsPath = "/api/session/events"

// App is the running service.
type App = bootstrap.App[*Config]

// New builds the app. Components start in this order: redis (when enabled),
// storage, the event hub, sessions, then the HTTP server.
func New(ctx context.Context, cfg *Config, opts ...bootstrap.Option) (*App, error) {
	a, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, err
	}

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	metrics, err := observability.NewMetrics(observability.Meter(cfg.Name))
	if err != nil {
		_ = shutdownTelemetry(ctx)
		return nil, fmt.Errorf("metrics: %w", err)
	}

	var redisComp *redis.Component
	if cfg.Redis.Enabled {
		redisComp = redis.NewComponent(cfg.Redis, a.Logger)
	}
	storageComp := storage.NewComponent(cfg.Storage, a.Logger)
	events := sse.NewComponent(eventsPath)
	srv := server.New(cfg.Server, a.Logger, server.WithMetrics(metrics))
	srv.RegisterDefaultEndpoints(cfg.Name, cfg.Version, a.Components.HealthAll)

	sess := &sessions{
		cfg:     cfg,
		redis:   redisComp,
		storage: storageComp,
		events:  events,
		server:  srv,
		metrics: metrics,
		log:     a.Logger.WithComponent("session"),
	}

	comps := []component.Component{storageComp, events, sess, server.NewComponent(srv)}
	if redisComp != nil {
		comps = append([]component.Component{redisComp}, comps...)
	}
	for _, c := range comps {
		if err := a.RegisterComponent(c); err != nil {
			_ = shutdownTelemetry(ctx)
			return nil, err
		}
	}

	a.OnStop(shutdownTelemetry)
	a.OnReady(func(context.Context) error {
		a.Summary.AddNote("listening on %s", srv.Addr())
		return nil
	})
	a.Logger.Debug("components registered", logger.Fields("redis", redisComp != nil, "storage", cfg.Storage.Enabled))
	return a, nil
}
