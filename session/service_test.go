package session

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/export"
	"github.com/kbukum/transcribe/logger"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/redis"
	"github.com/kbukum/transcribe/sse"
	"github.com/kbukum/transcribe/storage"
	"github.com/kbukum/transcribe/storage/local"
	"github.com/kbukum/transcribe/transcription"
)

// fakeProvider scripts a transcription backend. Status answers come from
// script in order; the last entry repeats.
type fakeProvider struct {
	mu        sync.Mutex
	script    []*transcription.StatusReport
	uploadErr error
	submitErr error
	// blockUploads holds the first n uploads until their context ends.
	blockUploads int
	// blockStatus holds every status call until its context ends.
	blockStatus bool

	uploads     atomic.Int32
	statusCalls atomic.Int32
	received    []string
}

func (f *fakeProvider) Name() string                     { return "fake" }
func (f *fakeProvider) IsAvailable(context.Context) bool { return true }

func (f *fakeProvider) Upload(ctx context.Context, audio io.Reader, _ string) (string, error) {
	n := int(f.uploads.Add(1))
	data, _ := io.ReadAll(audio)
	f.mu.Lock()
	f.received = append(f.received, string(data))
	f.mu.Unlock()
	if n <= f.blockUploads {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return "https://cdn.example/audio", nil
}

func (f *fakeProvider) Submit(_ context.Context, req transcription.SubmitRequest) (*transcription.Job, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if !req.SpeakerLabels {
		return nil, stderrors.New("speaker labels not requested")
	}
	return &transcription.Job{ID: "job-1", Status: transcription.StatusQueued, AudioURL: req.AudioURL}, nil
}

func (f *fakeProvider) Status(ctx context.Context, jobID string) (*transcription.StatusReport, error) {
	n := int(f.statusCalls.Add(1))
	if f.blockStatus {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *f.script[min(n-1, len(f.script)-1)]
	r.JobID = jobID
	return &r, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []sse.Event
}

func (p *recordingPublisher) Publish(topic string, ev sse.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !strings.HasPrefix(topic, "session:") {
		return stderrors.New("unexpected topic " + topic)
	}
	p.events = append(p.events, ev)
	return nil
}

// phases returns the distinct phases published, in order.
func (p *recordingPublisher) phases() []Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Phase
	for _, ev := range p.events {
		snap, ok := ev.Data.(Snapshot)
		if !ok {
			continue
		}
		if len(out) == 0 || out[len(out)-1] != snap.State.Phase {
			out = append(out, snap.State.Phase)
		}
	}
	return out
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

type fakeSummarizer struct {
	calls atomic.Int32
	text  atomic.Value
}

func (f *fakeSummarizer) Summarize(_ context.Context, text string) (string, error) {
	f.calls.Add(1)
	f.text.Store(text)
	return "a short summary", nil
}

func audio(s string) io.ReadCloser { return io.NopCloser(strings.NewReader(s)) }

func fastPoller() transcription.PollerConfig {
	return transcription.PollerConfig{Interval: time.Millisecond, MaxInterval: time.Millisecond, BackoffFactor: 1, MaxAttempts: 100}
}

func newTestService(t *testing.T, p *fakeProvider, store Store, opts ...Option) (*Service, *recordingPublisher) {
	t.Helper()
	if store == nil {
		store = provider.NewMemoryStore[State]()
	}
	pub := &recordingPublisher{}
	opts = append([]Option{WithPublisher(pub), WithLogger(logger.NewDefault("session-test"))}, opts...)
	svc := NewService(Config{}, p, fastPoller(), store, opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return svc, pub
}

// waitFor polls the session until cond holds.
func waitFor(t *testing.T, svc *Service, id string, cond func(State) bool) State {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		st, err := svc.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out; last state %+v", st)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func inPhase(p Phase) func(State) bool { return func(st State) bool { return st.Phase == p } }

func queuedThen(last *transcription.StatusReport, n int) []*transcription.StatusReport {
	script := make([]*transcription.StatusReport, 0, n+1)
	for range n {
		script = append(script, &transcription.StatusReport{Status: transcription.StatusQueued})
	}
	script = append(script, &transcription.StatusReport{Status: transcription.StatusProcessing})
	return append(script, last)
}

func TestService_SpeakerTranscript(t *testing.T) {
	p := &fakeProvider{script: queuedThen(speakerReport(transcription.Utterance{Speaker: "A", Text: "Hi. This is a test.", Start: 0, End: 1500}), 2)}
	svc, pub := newTestService(t, p, nil)
	ctx := context.Background()

	st, err := svc.Submit(ctx, "s1", Submission{SourceName: "meeting.mp3", ContentType: "audio/mpeg", Audio: audio("RIFF")})
	if err != nil {
		t.Fatal(err)
	}
	if st.Phase != PhaseUploading || st.SourceName != "meeting.mp3" {
		t.Errorf("initial state = %+v", st)
	}

	st = waitFor(t, svc, "s1", inPhase(PhaseReady))
	if got := p.statusCalls.Load(); got != 4 {
		t.Errorf("%d status calls, want 4", got)
	}
	v := NewView(st)
	if len(v.Lines) != 1 || v.Lines[0] != "Speaker A: Hi. This is a test." || v.Text != "" {
		t.Errorf("view = %+v", v)
	}
	if v.FileName != "meeting_transcript.txt" {
		t.Errorf("FileName = %q", v.FileName)
	}
	if st.Insights == nil || len(st.Insights.Shares) != 1 {
		t.Errorf("insights = %+v", st.Insights)
	}

	want := []Phase{PhaseUploading, PhaseSubmitting, PhasePolling, PhaseReady}
	got := pub.phases()
	if len(got) != len(want) {
		t.Fatalf("published phases = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("published phases = %v, want %v", got, want)
		}
	}
	if svc.Active() != 0 {
		waitFor(t, svc, "s1", func(State) bool { return svc.Active() == 0 })
	}
}

func TestService_CopyAndDownloadMatch(t *testing.T) {
	p := &fakeProvider{script: []*transcription.StatusReport{speakerReport(
		transcription.Utterance{Speaker: "A", Text: "One."},
		transcription.Utterance{Speaker: "B", Text: "Two."},
	)}}
	svc, _ := newTestService(t, p, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "s1", Submission{SourceName: "x.wav", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, svc, "s1", inPhase(PhaseReady))

	text, err := svc.Text(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := svc.Export(ctx, "s1", FormatText)
	if err != nil {
		t.Fatal(err)
	}
	if string(doc.Body) != text || text != "Speaker A: One.\n\nSpeaker B: Two." {
		t.Errorf("copy %q, download %q", text, doc.Body)
	}
	if doc.FileName != "x_transcript.txt" || !strings.HasPrefix(doc.ContentType, "text/plain") {
		t.Errorf("doc = %+v", doc)
	}

	md, err := svc.Export(ctx, "s1", FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if md.FileName != "x_transcript.md" || !strings.Contains(string(md.Body), "**Speaker B:** Two.") {
		t.Errorf("markdown = %+v", md)
	}
	if _, err := svc.Export(ctx, "s1", "pdf"); !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown format: %v", err)
	}
}

func TestService_ProviderError(t *testing.T) {
	p := &fakeProvider{script: []*transcription.StatusReport{
		{Status: transcription.StatusQueued},
		{Status: transcription.StatusError, ErrorMessage: "audio too short"},
	}}
	svc, _ := newTestService(t, p, nil)

	if _, err := svc.Submit(context.Background(), "s1", Submission{SourceName: "x.wav", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, svc, "s1", inPhase(PhaseFailed))
	if st.ErrorMessage == "" || st.Result != nil {
		t.Errorf("state = %+v", st)
	}
	v := NewView(st)
	if v.Lines != nil || v.Text != "" || v.CanExport {
		t.Errorf("failed view renders a transcript: %+v", v)
	}
	if _, err := svc.Text(context.Background(), "s1"); !errors.IsCode(err, errors.ErrCodeExportFailed) {
		t.Errorf("copy after failure: %v", err)
	}
}

func TestService_UploadError(t *testing.T) {
	p := &fakeProvider{uploadErr: errors.UploadFailed("fake", stderrors.New("connection reset"))}
	svc, _ := newTestService(t, p, nil)

	if _, err := svc.Submit(context.Background(), "s1", Submission{SourceName: "x.wav", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, svc, "s1", inPhase(PhaseFailed))
	if st.ErrorMessage != errors.UploadFailed("fake", nil).Message {
		t.Errorf("ErrorMessage = %q", st.ErrorMessage)
	}
	if p.statusCalls.Load() != 0 {
		t.Error("status polled after failed upload")
	}
}

func TestService_NoFileSelected(t *testing.T) {
	p := &fakeProvider{}
	svc, _ := newTestService(t, p, nil)

	_, err := svc.Submit(context.Background(), "s1", Submission{})
	if !errors.IsCode(err, errors.ErrCodeMissingField) && !errors.IsCode(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if p.uploads.Load() != 0 {
		t.Error("upload attempted without a file")
	}
	st, _ := svc.Get(context.Background(), "s1")
	if st.Phase != PhaseIdle {
		t.Errorf("phase = %s", st.Phase)
	}
}

func TestService_ResubmitRestarts(t *testing.T) {
	p := &fakeProvider{
		blockUploads: 1,
		script:       []*transcription.StatusReport{{Status: transcription.StatusCompleted, Transcript: transcription.NewTextTranscript("second")}},
	}
	svc, _ := newTestService(t, p, nil)
	ctx := context.Background()

	first, err := svc.Submit(ctx, "s1", Submission{SourceName: "first.wav", Audio: audio("1")})
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, svc, "s1", func(State) bool { return p.uploads.Load() == 1 })

	second, err := svc.Submit(ctx, "s1", Submission{SourceName: "second.wav", Audio: audio("2")})
	if err != nil {
		t.Fatal(err)
	}
	if second.Generation <= first.Generation {
		t.Errorf("generation %d did not advance past %d", second.Generation, first.Generation)
	}

	st := waitFor(t, svc, "s1", inPhase(PhaseReady))
	if st.SourceName != "second.wav" || st.Result.Text() != "second" {
		t.Errorf("state = %+v", st)
	}
	if got := p.uploads.Load(); got != 2 {
		t.Errorf("uploads = %d", got)
	}
}

func TestService_ResetCancelsPolling(t *testing.T) {
	p := &fakeProvider{blockStatus: true}
	svc, _ := newTestService(t, p, nil)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "s1", Submission{SourceName: "x.wav", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, svc, "s1", inPhase(PhasePolling))
	waitFor(t, svc, "s1", func(State) bool { return p.statusCalls.Load() > 0 })

	st, err := svc.Reset(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Phase != PhaseIdle || st.JobID != "" {
		t.Errorf("reset state = %+v", st)
	}
	waitFor(t, svc, "s1", func(State) bool { return svc.Active() == 0 })

	st, _ = svc.Get(ctx, "s1")
	if st.Phase != PhaseIdle {
		t.Errorf("cancelled pipeline overwrote reset: %+v", st)
	}
}

func TestService_Summarize(t *testing.T) {
	p := &fakeProvider{script: []*transcription.StatusReport{{Status: transcription.StatusCompleted, Transcript: transcription.NewTextTranscript("long talk")}}}
	sum := &fakeSummarizer{}
	svc, pub := newTestService(t, p, nil, WithSummarizer(sum))
	ctx := context.Background()

	if _, err := svc.Summarize(ctx, "s1"); !errors.IsCode(err, errors.ErrCodeExportFailed) {
		t.Errorf("summarize before transcript: %v", err)
	}

	if _, err := svc.Submit(ctx, "s1", Submission{SourceName: "x.wav", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, svc, "s1", inPhase(PhaseReady))

	summary, err := svc.Summarize(ctx, "s1")
	if err != nil || summary != "a short summary" {
		t.Fatalf("Summarize = %q, %v", summary, err)
	}
	if got := sum.text.Load(); got != "long talk" {
		t.Errorf("summarizer got %v", got)
	}
	st, _ := svc.Get(ctx, "s1")
	if st.Summary != summary {
		t.Errorf("summary not stored: %+v", st)
	}
	if pub.count(sse.EventTypeSummary) != 1 {
		t.Errorf("summary events = %d", pub.count(sse.EventTypeSummary))
	}
}

func TestService_SummarizerDisabled(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{}, nil)
	if svc.CanSummarize() {
		t.Error("CanSummarize without a summarizer")
	}
	if _, err := svc.Summarize(context.Background(), "s1"); !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("err = %v", err)
	}
}

func TestService_Archive(t *testing.T) {
	dir := t.TempDir()
	st, err := local.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	p := &fakeProvider{script: []*transcription.StatusReport{{Status: transcription.StatusCompleted, Transcript: transcription.NewTextTranscript("kept")}}}
	svc, _ := newTestService(t, p, nil, WithArchive(st, "transcripts"))
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "s1", Submission{SourceName: "talk.ogg", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	state := waitFor(t, svc, "s1", func(s State) bool { return s.ArchivePath != "" })
	if state.ArchivePath != "transcripts/s1/talk_transcript.txt" {
		t.Errorf("ArchivePath = %q", state.ArchivePath)
	}
	data, err := storage.ReadBytes(ctx, st, state.ArchivePath)
	if err != nil || string(data) != export.Render(*state.Result) {
		t.Errorf("archived = %q, %v", data, err)
	}

	// Download serves the archived bytes.
	if err := storage.WriteBytes(ctx, st, state.ArchivePath, []byte("kept"), ""); err != nil {
		t.Fatal(err)
	}
	doc, err := svc.Export(ctx, "s1", FormatText)
	if err != nil || string(doc.Body) != "kept" {
		t.Errorf("Export = %q, %v", doc.Body, err)
	}
}

func TestService_RedisStore(t *testing.T) {
	mini := miniredis.RunT(t)
	client, err := redis.New(redis.Config{Enabled: true, Addr: mini.Addr(), KeyPrefix: "tx"}, logger.NewDefault("redis-test"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = client.Close() })

	p := &fakeProvider{script: []*transcription.StatusReport{speakerReport(transcription.Utterance{Speaker: "A", Text: "stored"})}}
	svc, _ := newTestService(t, p, redis.NewTypedStore[State](client, "session"))

	if _, err := svc.Submit(context.Background(), "s1", Submission{SourceName: "x.wav", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	st := waitFor(t, svc, "s1", inPhase(PhaseReady))
	if st.Result == nil || !st.Result.HasSpeakers() || st.Result.Utterances()[0].Text != "stored" {
		t.Errorf("state after redis round trip = %+v", st)
	}
	if !mini.Exists("tx:session:s1") {
		t.Errorf("keys = %v", mini.Keys())
	}
	if ttl := mini.TTL("tx:session:s1"); ttl <= 0 {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestService_ShutdownStopsPipelines(t *testing.T) {
	p := &fakeProvider{blockStatus: true}
	svc, _ := newTestService(t, p, nil)

	if _, err := svc.Submit(context.Background(), "s1", Submission{SourceName: "x.wav", Audio: audio("a")}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, svc, "s1", inPhase(PhasePolling))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if svc.Active() != 0 {
		t.Errorf("%d pipelines still active", svc.Active())
	}
	_, err := svc.Submit(context.Background(), "s2", Submission{SourceName: "y.wav", Audio: audio("b")})
	if !errors.IsCode(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("submit after shutdown: %v", err)
	}
}

// savingStore counts writes that go through to the wrapped store.
type savingStore struct {
	Store
	saves atomic.Int32
}

func (s *savingStore) Save(ctx context.Context, key string, val *State, ttl time.Duration) error {
	s.saves.Add(1)
	return s.Store.Save(ctx, key, val, ttl)
}

func TestService_PendingJobRefreshesTTL(t *testing.T) {
	const pending = 20
	p := &fakeProvider{script: queuedThen(speakerReport(transcription.Utterance{Speaker: "A", Text: "done"}), pending)}
	store := &savingStore{Store: provider.NewMemoryStore[State]()}
	svc, pub := newTestService(t, p, store)

	if _, err := svc.Submit(context.Background(), "s1", Submission{SourceName: "a.wav", Audio: audio("RIFF")}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, svc, "s1", inPhase(PhaseReady))

	if got := store.saves.Load(); got < pending {
		t.Errorf("saves = %d over %d unchanged polls; the session TTL is not refreshed", got, pending)
	}
	if got := pub.count(sse.EventTypeState); got >= int(store.saves.Load()) {
		t.Errorf("unchanged polls should not publish: %d events for %d saves", got, store.saves.Load())
	}
}

func TestService_ExpiredSessionIsNotRevived(t *testing.T) {
	p := &fakeProvider{script: queuedThen(speakerReport(transcription.Utterance{Speaker: "A", Text: "done"}), 0)}
	store := provider.NewMemoryStore[State]()
	svc, _ := newTestService(t, p, store)

	st, err := svc.update(context.Background(), "s1", 0, func(m *Machine) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Delete(context.Background(), "s1")
	if _, err := svc.update(context.Background(), "s1", st.Generation+1, func(*Machine) error { return nil }); !stderrors.Is(err, errExpired) {
		t.Errorf("update of a vanished session = %v, want errExpired", err)
	}
}
