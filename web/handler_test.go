package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/transcribe/errors"
	"github.com/kbukum/transcribe/provider"
	"github.com/kbukum/transcribe/session"
	"github.com/kbukum/transcribe/sse"
	"github.com/kbukum/transcribe/transcription"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// wavHeader is enough of a RIFF/WAVE file for content sniffing.
var wavHeader = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 64)...)

type stubProvider struct {
	transcript transcription.Transcript
}

func (s *stubProvider) Name() string                     { return "stub" }
func (s *stubProvider) IsAvailable(context.Context) bool { return true }
func (s *stubProvider) Upload(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://cdn.example/a", nil
}
func (s *stubProvider) Submit(context.Context, transcription.SubmitRequest) (*transcription.Job, error) {
	return &transcription.Job{ID: "job-1", Status: transcription.StatusQueued}, nil
}
func (s *stubProvider) Status(_ context.Context, id string) (*transcription.StatusReport, error) {
	return &transcription.StatusReport{JobID: id, Status: transcription.StatusCompleted, Transcript: s.transcript}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, string) (string, error) { return "gist", nil }

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
}

func newEnv(t *testing.T, cfg session.Config, opts ...session.Option) *testEnv {
	t.Helper()
	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	p := &stubProvider{transcript: transcription.NewSpeakerTranscript([]transcription.Utterance{
		{Speaker: "A", Text: "Hi. This is a test."},
	})}
	poll := transcription.PollerConfig{Interval: time.Millisecond, MaxInterval: time.Millisecond, MaxAttempts: 10}
	opts = append([]session.Option{session.WithPublisher(hub)}, opts...)
	svc := session.NewService(cfg, p, poll, provider.NewMemoryStore[session.State](), opts...)
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	issuer, err := session.NewTokenIssuer(session.CookieConfig{Name: "sid", TTL: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	engine := gin.New()
	NewHandler(svc, hub, issuer, WithTempDir(t.TempDir()), WithKeepAlive(time.Hour)).Register(engine)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	jar, _ := cookiejar.New(nil)
	return &testEnv{srv: srv, client: &http.Client{Jar: jar, Timeout: 5 * time.Second}}
}

func (e *testEnv) do(t *testing.T, method, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) upload(t *testing.T, name string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if name != "" {
		part, _ := w.CreateFormFile("file", name)
		_, _ = part.Write(data)
	} else {
		_ = w.WriteField("note", "no file")
	}
	_ = w.Close()
	return e.do(t, http.MethodPost, "/api/session/transcribe", &buf, w.FormDataContentType())
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (e *testEnv) waitReady(t *testing.T) StateResponse {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		st := decode[StateResponse](t, e.do(t, http.MethodGet, "/api/session", nil, ""))
		if st.State.Phase == session.PhaseReady {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("session never became ready: %+v", st.State)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func errorCode(t *testing.T, resp *http.Response) errors.ErrorCode {
	t.Helper()
	return decode[errors.ErrorResponse](t, resp).Error.Code
}

func TestIndex(t *testing.T) {
	env := newEnv(t, session.Config{})
	resp := env.do(t, http.MethodGet, "/", nil, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		"<title>Transcribe.io</title>",
		"Upload an Audio File for Transcription",
		"Upload audio file",
		`accept="audio/*"`,
		">Transcribe<",
		"Transcribing...",
		"Transcription:",
		">Copy<", ">Download<", ">Clear<",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page is missing %q", want)
		}
	}
	if strings.Contains(string(body), ">Summarize<") {
		t.Error("Summarize shown without a summarizer")
	}
	if len(resp.Cookies()) == 0 {
		t.Error("no session cookie set")
	}
}

func TestTranscribe_FullFlow(t *testing.T) {
	env := newEnv(t, session.Config{}, session.WithSummarizer(stubSummarizer{}))

	resp := env.upload(t, "meeting.wav", wavHeader)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	accepted := decode[StateResponse](t, resp)
	if !accepted.View.Busy || !accepted.CanSummarize {
		t.Errorf("accepted = %+v", accepted)
	}

	ready := env.waitReady(t)
	if len(ready.View.Lines) != 1 || ready.View.Lines[0] != "Speaker A: Hi. This is a test." {
		t.Errorf("lines = %q", ready.View.Lines)
	}

	copied, _ := io.ReadAll(env.do(t, http.MethodGet, "/api/session/transcript", nil, "").Body)
	dl := env.do(t, http.MethodGet, "/api/session/download", nil, "")
	downloaded, _ := io.ReadAll(dl.Body)
	if !bytes.Equal(copied, downloaded) || len(copied) == 0 {
		t.Errorf("copy %q != download %q", copied, downloaded)
	}
	_, params, err := mime.ParseMediaType(dl.Header.Get("Content-Disposition"))
	if err != nil || params["filename"] != "meeting_transcript.txt" {
		t.Errorf("Content-Disposition = %q", dl.Header.Get("Content-Disposition"))
	}

	md := env.do(t, http.MethodGet, "/api/session/download?format=md", nil, "")
	if _, params, _ := mime.ParseMediaType(md.Header.Get("Content-Disposition")); params["filename"] != "meeting_transcript.md" {
		t.Errorf("markdown disposition = %q", md.Header.Get("Content-Disposition"))
	}

	sum := decode[SummaryResponse](t, env.do(t, http.MethodPost, "/api/session/summarize", nil, ""))
	if sum.Summary != "gist" {
		t.Errorf("summary = %+v", sum)
	}

	reset := decode[StateResponse](t, env.do(t, http.MethodDelete, "/api/session", nil, ""))
	if reset.State.Phase != session.PhaseIdle || reset.View.CanExport {
		t.Errorf("reset = %+v", reset)
	}
}

func TestTranscribe_Rejections(t *testing.T) {
	env := newEnv(t, session.Config{MaxUploadSize: "1KB"})

	tests := []struct {
		name   string
		file   string
		data   []byte
		status int
		code   errors.ErrorCode
	}{
		{"no file", "", nil, http.StatusBadRequest, errors.ErrCodeMissingField},
		{"empty", "a.wav", nil, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"not audio", "notes.wav", []byte("just some text, not audio at all"), http.StatusUnsupportedMediaType, errors.ErrCodeUnsupportedMedia},
		{"too large", "big.wav", append(append([]byte{}, wavHeader...), make([]byte, 2048)...), http.StatusRequestEntityTooLarge, errors.ErrCodeTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.upload(t, tc.file, tc.data)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if code := errorCode(t, resp); code != tc.code {
				t.Errorf("code = %s, want %s", code, tc.code)
			}
		})
	}

	st := decode[StateResponse](t, env.do(t, http.MethodGet, "/api/session", nil, ""))
	if st.State.Phase != session.PhaseIdle {
		t.Errorf("rejected uploads changed the session: %+v", st.State)
	}
}

func TestExport_NothingYet(t *testing.T) {
	env := newEnv(t, session.Config{})
	for _, path := range []string{"/api/session/transcript", "/api/session/download"} {
		resp := env.do(t, http.MethodGet, path, nil, "")
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
	resp := env.do(t, http.MethodPost, "/api/session/summarize", nil, "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("summarize without summarizer = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/session/download?format=pdf", nil, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown format status = %d", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != errors.ErrCodeInvalidInput {
		t.Errorf("unknown format code = %s", code)
	}
}

func TestEvents(t *testing.T) {
	env := newEnv(t, session.Config{})
	resp := env.do(t, http.MethodGet, "/api/session/events", nil, "")
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	scanner := bufio.NewScanner(resp.Body)
	var types []string
	for len(types) < 2 && scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
			types = append(types, strings.TrimPrefix(line, "event: "))
		}
	}
	if len(types) != 2 || types[0] != sse.EventTypeConnected || types[1] != sse.EventTypeState {
		t.Errorf("event types = %v", types)
	}
}

func TestIsAudioAllowsContainers(t *testing.T) {
	env := newEnv(t, session.Config{})
	// ID3-tagged MP3.
	mp3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)
	if resp := env.upload(t, "song.mp3", mp3); resp.StatusCode != http.StatusAccepted {
		t.Errorf("mp3 status = %d", resp.StatusCode)
	}
}
