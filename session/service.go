package session

import (
	"context"
	stderrors "errors"
	"hash/fnv"
	"io"
	"sync"
	"time"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/export"
	"github.com/kbukum/transcribe/insights"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/observability"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/resilience"
	"github.com/kbukum/transcribe/sse"
	"github.com/kbukum/transcribe/storage"
	"github.com/kbukum/transcribe/transcription"
	"github.com/kbukum/transcribe/validation"
)

// Store persists session state between requests.
type Store = provider.ContextStore[State]

// Summarizer condenses a transcript.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// RequestDefaulter is implemented by providers that know how a job should be
// submitted for a given audio URL.
type RequestDefaulter interface {
	Defaults(audioURL string) transcription.SubmitRequest
}

// Submission is one uploaded file. The service owns Audio and closes it when
// the pipeline ends.
type Submission struct {
	SourceName  string
	ContentType string
	Audio       io.ReadCloser
}

// errStale marks a write from a pipeline that was reset or replaced.
var errStale = stderrors.New("session: stale pipeline")

const lockStripes = 64

type run struct {
	generation int64
	cancel     context.CancelFunc
	done       chan struct{}
}

type jobRef struct {
	sessionID  string
	generation int64
}

// Service drives sessions: it runs one pipeline per session in the
// background and keeps the store and event stream current.
type Service struct {
	cfg        Config
	provider   transcription.Provider
	poller     *transcription.Poller
	store      Store
	publisher  sse.Publisher
	summarizer Summarizer
	archive    storage.Storage
	prefix     string
	defaults   func(audioURL string) transcription.SubmitRequest
	bulkhead   *resilience.Bulkhead
	metrics    *observability.Metrics
	log        *logger.Logger
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	locks [lockStripes]sync.Mutex

	mu   sync.Mutex
	runs map[string]*run
	jobs map[string]jobRef
}

// Option configures a Service.
type Option func(*Service)

func WithPublisher(p sse.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithSummarizer enables Summarize.
func WithSummarizer(sum Summarizer) Option { return func(s *Service) { s.summarizer = sum } }

// WithArchive stores every finished transcript under prefix in st.
func WithArchive(st storage.Storage, prefix string) Option {
	return func(s *Service) {
		s.archive = st
		s.prefix = prefix
	}
}

func WithMetrics(m *observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(log *logger.Logger) Option { return func(s *Service) { s.log = log } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// NewService builds a Service. The poller is created here so its status
// reports can be routed back to sessions.
func NewService(cfg Config, p transcription.Provider, pollCfg transcription.PollerConfig, store Store, opts ...Option) *Service {
	cfg.ApplyDefaults()
	s := &Service{
		cfg:      cfg,
		provider: p,
		store:    store,
		log:      logger.Get("session"),
		now:      time.Now,
		runs:     make(map[string]*run),
		jobs:     make(map[string]jobRef),
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "pipelines",
			MaxConcurrent: cfg.MaxConcurrentJobs,
		}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if d, ok := p.(RequestDefaulter); ok {
		s.defaults = d.Defaults
	} else {
		s.defaults = func(audioURL string) transcription.SubmitRequest {
			return transcription.SubmitRequest{AudioURL: audioURL, SpeakerLabels: true}
		}
	}
	pollOpts := []transcription.PollerOption{
		transcription.WithStatusHook(s.onStatus),
		transcription.WithPollerLogger(s.log.WithComponent("poller")),
	}
	if s.metrics != nil {
		pollOpts = append(pollOpts, transcription.WithPollerMetrics(s.metrics))
	}
	s.poller = transcription.NewPoller(p, pollCfg, pollOpts...)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// ProviderName names the transcription backend.
func (s *Service) ProviderName() string { return s.provider.Name() }

// CanSummarize reports whether a summarizer is configured.
func (s *Service) CanSummarize() bool { return s.summarizer != nil }

// Get returns the session's state, or a fresh idle state for an unknown id.
func (s *Service) Get(ctx context.Context, id string) (State, error) {
	st, err := s.store.Load(ctx, id)
	if err != nil {
		return State{}, errors.Internal(err).WithDetail("operation", "load session")
	}
	if st == nil {
		return NewState(id), nil
	}
	return *st, nil
}

// Submit starts transcribing sub for session id. An active pipeline for the
// same session is cancelled first and the session restarts from idle.
func (s *Service) Submit(ctx context.Context, id string, sub Submission) (State, error) {
	if sub.Audio == nil || sub.SourceName == "" {
		if sub.Audio != nil {
			_ = sub.Audio.Close()
		}
		return State{}, errors.NoFileSelected()
	}
	if s.ctx.Err() != nil {
		_ = sub.Audio.Close()
		return State{}, errors.ServiceUnavailable("transcription")
	}

	if done := s.cancelRun(id); done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		case <-time.After(s.cfg.StoreTimeout):
		}
	}

	release, err := s.bulkhead.Acquire(ctx)
	if err != nil {
		_ = sub.Audio.Close()
		if stderrors.Is(err, resilience.ErrBulkheadFull) || stderrors.Is(err, resilience.ErrBulkheadTimeout) {
			return State{}, errors.ServiceUnavailable("transcription").
				WithCause(err).
				WithDetail("reason", "too many transcriptions in progress")
		}
		return State{}, err
	}

	var gen int64
	st, err := s.update(ctx, id, 0, func(m *Machine) error {
		if m.Phase() != PhaseIdle {
			m.Reset()
		}
		var err error
		gen, err = m.Begin(sub.SourceName)
		return err
	})
	if err != nil {
		release()
		_ = sub.Audio.Close()
		return State{}, err
	}

	// The pipeline outlives the request but keeps its values (request id, span).
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.ctx, cancel)
	r := &run{generation: gen, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.runs[id] = r
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(r.done)
		defer stop()
		defer cancel()
		defer release()
		defer func() { _ = sub.Audio.Close() }()
		defer s.forgetRun(id, r)
		s.pipeline(runCtx, id, gen, sub)
	}()

	s.log.WithContext(ctx).Info("transcription started", logger.Fields(
		logger.FieldSessionID, id,
		logger.FieldFile, sub.SourceName,
	))
	return st, nil
}

// Reset cancels any pipeline and returns the session to idle.
func (s *Service) Reset(ctx context.Context, id string) (State, error) {
	s.cancelRun(id)
	return s.update(ctx, id, 0, func(m *Machine) error {
		m.Reset()
		return nil
	})
}

// Ready returns the state of a session that holds a transcript. action names
// the caller's intent for the error message.
func (s *Service) Ready(ctx context.Context, id, action string) (State, error) {
	st, err := s.Get(ctx, id)
	if err != nil {
		return State{}, err
	}
	if st.Phase != PhaseReady || st.Result == nil {
		return State{}, errors.NothingToExport(action)
	}
	return st, nil
}

// Summarize asks the summarizer for a summary of the session's transcript
// and stores it on the session.
func (s *Service) Summarize(ctx context.Context, id string) (string, error) {
	if s.summarizer == nil {
		return "", errors.ServiceUnavailable("summarizer")
	}
	st, err := s.Ready(ctx, id, "summarize")
	if err != nil {
		return "", err
	}

	ctx, span := observability.StartSpan(ctx, "session.summarize")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSessionID, id)

	start := s.now()
	summary, err := s.summarizer.Summarize(ctx, st.Result.PlainText())
	if err != nil {
		observability.SetSpanError(ctx, err)
		s.recordOperation(ctx, "summarize", "error", start)
		return "", err
	}
	s.recordOperation(ctx, "summarize", "success", start)

	_, err = s.update(ctx, id, st.Generation, func(m *Machine) error {
		return m.SetSummary(summary)
	})
	if err != nil {
		if stderrors.Is(err, errStale) || stderrors.Is(err, errExpired) {
			return "", errors.NothingToExport("summarize")
		}
		return "", err
	}
	s.publish(id, sse.Event{Type: sse.EventTypeSummary, Data: map[string]string{"summary": summary}})
	return summary, nil
}

// Document is a downloadable rendering of a transcript.
type Document struct {
	FileName    string
	ContentType string
	Body        []byte
}

// Export formats.
const (
	FormatText     = "text"
	FormatMarkdown = "md"
)

// Export renders the session's transcript. The text format is byte-identical
// to what the copy action returns.
func (s *Service) Export(ctx context.Context, id, format string) (*Document, error) {
	if err := validation.New().OneOf("format", format, "", FormatText, FormatMarkdown).Validate(); err != nil {
		return nil, err
	}
	st, err := s.Ready(ctx, id, "download")
	if err != nil {
		return nil, err
	}
	if format != FormatMarkdown {
		return &Document{
			FileName:    export.FileName(st.SourceName),
			ContentType: "text/plain; charset=utf-8",
			Body:        s.textBody(ctx, st),
		}, nil
	}
	meta := export.Meta{
		Title:     "Transcript",
		Source:    st.SourceName,
		Provider:  s.provider.Name(),
		Duration:  time.Duration(st.AudioDuration * float64(time.Second)),
		Generated: st.UpdatedAt,
		Summary:   st.Summary,
	}
	return &Document{
		FileName:    export.MarkdownFileName(st.SourceName),
		ContentType: "text/markdown; charset=utf-8",
		Body:        []byte(export.Markdown(meta, *st.Result)),
	}, nil
}

// Text returns the rendered transcript for the copy action.
func (s *Service) Text(ctx context.Context, id string) (string, error) {
	st, err := s.Ready(ctx, id, "copy")
	if err != nil {
		return "", err
	}
	return string(s.textBody(ctx, st)), nil
}

// textBody prefers the archived copy and falls back to rendering.
func (s *Service) textBody(ctx context.Context, st State) []byte {
	if s.archive != nil && st.ArchivePath != "" {
		data, err := storage.ReadBytes(ctx, s.archive, st.ArchivePath)
		if err == nil {
			return data
		}
		s.log.WithContext(ctx).Warn("archived transcript unavailable", logger.Fields(
			logger.FieldSessionID, st.ID,
			logger.FieldFile, st.ArchivePath,
			logger.FieldError, err.Error(),
		))
	}
	return []byte(export.Render(*st.Result))
}

// Active reports how many pipelines are running.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}

// Shutdown cancels every pipeline and waits for them to stop.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) pipeline(ctx context.Context, id string, gen int64, sub Submission) {
	ctx, span := observability.StartSpan(ctx, "session.pipeline")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrSessionID, id)
	observability.SetSpanAttribute(ctx, observability.AttrProvider, s.provider.Name())

	log := s.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSessionID, id))

	start := s.now()
	audioURL, err := s.provider.Upload(ctx, sub.Audio, sub.ContentType)
	if err != nil {
		s.recordOperation(ctx, "upload", "error", start)
		s.fail(ctx, id, gen, err)
		return
	}
	s.recordOperation(ctx, "upload", "success", start)
	if _, err := s.update(ctx, id, gen, func(m *Machine) error { return m.Uploaded() }); err != nil {
		s.abandon(ctx, id, gen, err)
		return
	}

	start = s.now()
	job, err := s.provider.Submit(ctx, s.defaults(audioURL))
	if err != nil {
		s.recordOperation(ctx, "submit", "error", start)
		s.fail(ctx, id, gen, err)
		return
	}
	s.recordOperation(ctx, "submit", "success", start)
	observability.SetSpanAttribute(ctx, observability.AttrJobID, job.ID)

	s.trackJob(job.ID, id, gen)
	defer s.untrackJob(job.ID)
	if _, err := s.update(ctx, id, gen, func(m *Machine) error { return m.Submitted(job) }); err != nil {
		s.abandon(ctx, id, gen, err)
		return
	}
	log.Info("job submitted", logger.Fields(logger.FieldJobID, job.ID))

	report, err := s.poller.Wait(ctx, job.ID)
	if err != nil {
		s.fail(ctx, id, gen, err)
		return
	}

	in := insights.Compute(report.Transcript, report.Sentiments)
	st, err := s.update(ctx, id, gen, func(m *Machine) error { return m.Complete(report, in) })
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeProviderError) {
			s.fail(ctx, id, gen, err)
			return
		}
		s.abandon(ctx, id, gen, err)
		return
	}
	log.Info("transcription ready", logger.Fields(logger.FieldJobID, job.ID))

	s.archiveTranscript(ctx, st)
}

// archiveTranscript writes the rendered transcript to storage and records its
// path. Failures are logged; the session stays ready either way.
func (s *Service) archiveTranscript(ctx context.Context, st State) {
	if s.archive == nil || st.Result == nil {
		return
	}
	path := storage.Join(s.prefix, st.ID, export.FileName(st.SourceName))
	body := []byte(export.Render(*st.Result))
	log := s.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSessionID, st.ID, logger.FieldFile, path))

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = s.cfg.ArchiveAttempts
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("archive write failed, retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			logger.FieldDuration, wait.Milliseconds(),
		))
	}
	err := resilience.RetryFunc(ctx, retry, func() error {
		return storage.WriteBytes(ctx, s.archive, path, body, "text/plain; charset=utf-8")
	})
	if err != nil {
		log.Error("archive write failed", logger.ErrorFields("archive", err))
		return
	}
	if _, err := s.update(ctx, st.ID, st.Generation, func(m *Machine) error { return m.SetArchivePath(path) }); err != nil {
		s.abandon(ctx, st.ID, st.Generation, err)
		return
	}
	log.Debug("transcript archived", logger.Fields(logger.FieldBytes, len(body)))
}

// fail moves the session to failed with a user-facing message, unless the
// pipeline was cancelled, in which case whoever cancelled it owns the state.
func (s *Service) fail(ctx context.Context, id string, gen int64, cause error) {
	if ctx.Err() != nil {
		s.log.WithContext(ctx).Debug("pipeline cancelled", logger.Fields(logger.FieldSessionID, id))
		return
	}
	observability.SetSpanError(ctx, cause)
	s.log.WithContext(ctx).Warn("transcription failed", logger.Fields(
		logger.FieldSessionID, id,
		logger.FieldError, cause.Error(),
	))
	if s.metrics != nil {
		code := "internal"
		if appErr, ok := errors.AsAppError(cause); ok {
			code = string(appErr.Code)
		}
		s.metrics.RecordError(ctx, code, "session")
	}
	msg := errors.UserMessage(cause)
	if _, err := s.update(ctx, id, gen, func(m *Machine) error { return m.Fail(msg) }); err != nil {
		s.abandon(ctx, id, gen, err)
	}
}

func (s *Service) abandon(ctx context.Context, id string, gen int64, err error) {
	if stderrors.Is(err, errStale) || ctx.Err() != nil {
		return
	}
	s.log.WithContext(ctx).Error("session update failed", logger.Fields(
		logger.FieldSessionID, id,
		logger.FieldError, err.Error(),
		"generation", gen,
	))
}

// onStatus receives pending reports from the poller.
func (s *Service) onStatus(report *transcription.StatusReport, _ int) {
	s.mu.Lock()
	ref, ok := s.jobs[report.JobID]
	s.mu.Unlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.StoreTimeout)
	defer cancel()
	_, err := s.update(ctx, ref.sessionID, ref.generation, func(m *Machine) error {
		changed, err := m.Progress(report.Status)
		if err == nil && !changed {
			return errUnchanged
		}
		return err
	})
	if err != nil && !stderrors.Is(err, errUnchanged) {
		s.abandon(ctx, ref.sessionID, ref.generation, err)
	}
}

var (
	errUnchanged = stderrors.New("session: unchanged")
	errExpired   = stderrors.New("session: expired while its job was running")
)

// update applies fn to the session under its lock, then saves and publishes
// the result. A non-zero gen must match the stored generation.
func (s *Service) update(ctx context.Context, id string, gen int64, fn func(*Machine) error) (State, error) {
	lock := &s.locks[stripe(id)]
	lock.Lock()
	defer lock.Unlock()

	if ctx.Err() != nil && gen != 0 {
		return State{}, errStale
	}
	// Store writes must land even when the triggering request is gone.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.StoreTimeout)
	defer cancel()

	cur, err := s.store.Load(storeCtx, id)
	if err != nil {
		return State{}, errors.Internal(err).WithDetail("operation", "load session")
	}
	st := NewState(id)
	if cur != nil {
		st = *cur
	}
	if gen != 0 && cur == nil {
		return State{}, errExpired
	}
	if gen != 0 && st.Generation != gen {
		return State{}, errStale
	}

	m := NewMachine(st, s.now)
	if err := fn(m); err != nil {
		if stderrors.Is(err, errUnchanged) {
			// A pending job keeps its session alive.
			if serr := s.store.Save(storeCtx, id, &st, s.cfg.TTL); serr != nil {
				return State{}, errors.Internal(serr).WithDetail("operation", "refresh session")
			}
		}
		return State{}, err
	}
	next := m.State()
	if err := s.store.Save(storeCtx, id, &next, s.cfg.TTL); err != nil {
		return State{}, errors.Internal(err).WithDetail("operation", "save session")
	}
	if next.Phase != st.Phase {
		s.log.WithContext(ctx).Debug("session transition", logger.Fields(
			logger.FieldSessionID, id,
			logger.FieldPhase, string(next.Phase),
			"from", string(st.Phase),
		))
	}
	s.publish(id, sse.Event{Type: sse.EventTypeState, Data: NewSnapshot(next)})
	return next, nil
}

func (s *Service) publish(id string, ev sse.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(sse.Topic(id), ev); err != nil {
		s.log.Warn("publish failed", logger.Fields(logger.FieldSessionID, id, logger.FieldError, err.Error()))
	}
}

func (s *Service) recordOperation(ctx context.Context, op, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordOperation(ctx, s.provider.Name(), op, status, s.now().Sub(start))
	}
}

// cancelRun cancels the session's pipeline and returns a channel closed when
// it has stopped, or nil if none was running.
func (s *Service) cancelRun(id string) <-chan struct{} {
	s.mu.Lock()
	r := s.runs[id]
	delete(s.runs, id)
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	r.cancel()
	return r.done
}

func (s *Service) forgetRun(id string, r *run) {
	s.mu.Lock()
	if s.runs[id] == r {
		delete(s.runs, id)
	}
	s.mu.Unlock()
}

func (s *Service) trackJob(jobID, sessionID string, gen int64) {
	s.mu.Lock()
	s.jobs[jobID] = jobRef{sessionID: sessionID, generation: gen}
	s.mu.Unlock()
}

func (s *Service) untrackJob(jobID string) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}

func stripe(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % lockStripes)
}
