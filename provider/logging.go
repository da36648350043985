package provider

import (
	"context"
	"time"

	"github.com/kbukum/transcribe/logger"
)

// WithLogging logs every call with its duration; failures at error level.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{inner: inner, log: log}
	}
}

type loggingRR[I, O any] struct {
	inner RequestResponse[I, O]
	log   *logger.Logger
}

func (l *loggingRR[I, O]) Name() string                         { return l.inner.Name() }
func (l *loggingRR[I, O]) IsAvailable(ctx context.Context) bool { return l.inner.IsAvailable(ctx) }

func (l *loggingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	out, err := l.inner.Execute(ctx, input)
	fields := logger.Fields(logger.FieldProvider, l.inner.Name(), logger.FieldDuration, time.Since(start).Milliseconds())
	if err != nil {
		fields[logger.FieldError] = err.Error()
		l.log.WithContext(ctx).Error("provider call failed", fields)
	} else {
		l.log.WithContext(ctx).Debug("provider call ok", fields)
	}
	return out, err
}
