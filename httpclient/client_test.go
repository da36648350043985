package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/transcribe/resilience"
)

func TestClient_Do_JoinsBaseURLAndAppliesAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcript/abc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("authorization"); got != "secret" {
			t.Errorf("expected api key header, got %q", got)
		}
		if got := r.Header.Get("X-Default"); got != "yes" {
			t.Errorf("expected default header, got %q", got)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, err := New(Config{
		BaseURL: srv.URL + "/",
		Auth:    APIKeyAuthHeader("secret", "authorization"),
		Headers: map[string]string{"X-Default": "yes"},
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v2/transcript/abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.IsSuccess() || string(resp.Body) != `{"ok":true}` {
		t.Errorf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}

func TestClient_Do_BodyEncoding(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		contentType string
		body        string
	}{
		{"json", Request{Body: map[string]bool{"speaker_labels": true}}, "application/json", `{"speaker_labels":true}`},
		{"reader", Request{Body: strings.NewReader("RIFF"), ContentType: "audio/wav"}, "audio/wav", "RIFF"},
		{"bytes", Request{Body: []byte{1, 2}}, "application/octet-stream", "\x01\x02"},
		{"string", Request{Body: "hi"}, "text/plain; charset=utf-8", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Content-Type"); got != tt.contentType {
					t.Errorf("content type = %q, want %q", got, tt.contentType)
				}
				b, _ := io.ReadAll(r.Body)
				if string(b) != tt.body {
					t.Errorf("body = %q, want %q", b, tt.body)
				}
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			tt.req.Method = http.MethodPost
			tt.req.Path = "/"
			if _, err := c.Do(context.Background(), tt.req); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestClient_Do_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusUnauthorized, ErrCodeAuth},
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusTooManyRequests, ErrCodeRateLimit},
		{http.StatusBadRequest, ErrCodeValidation},
		{http.StatusBadGateway, ErrCodeServer},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"nope"}`))
			}))
			defer srv.Close()

			c, _ := New(Config{BaseURL: srv.URL})
			resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
			if err == nil {
				t.Fatal("expected error")
			}
			code, ok := codeOf(err)
			if !ok || code != tt.code {
				t.Errorf("code = %v, want %v", code, tt.code)
			}
			if resp == nil || string(resp.Body) != `{"error":"nope"}` {
				t.Error("expected response body alongside the error")
			}
		})
	}
}

func TestClient_Do_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url, Timeout: time.Second})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsUpstreamFailure(err) {
		t.Errorf("expected connection failure, got %v", err)
	}
}

func TestClient_Do_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	c, _ := New(Config{BaseURL: srv.URL})
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/"})
	if !IsTimeout(err) {
		t.Errorf("expected timeout, got %v", err)
	}
}

func TestClient_CircuitBreakerIgnoresClientErrors(t *testing.T) {
	var calls, status atomic.Int32
	status.Store(http.StatusBadRequest)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	cb := DefaultCircuitBreakerConfig("assemblyai")
	cb.MaxFailures = 1
	cb.Timeout = time.Hour
	c, _ := New(Config{BaseURL: srv.URL, CircuitBreaker: cb})

	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if calls.Load() != 2 {
		t.Fatalf("4xx must not open the circuit, calls=%d", calls.Load())
	}

	status.Store(http.StatusServiceUnavailable)
	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	code, _ := codeOf(err)
	if code != ErrCodeCircuitOpen {
		t.Errorf("expected circuit open, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("open circuit must not reach upstream, calls=%d", calls.Load())
	}
	if c.cb.State() != resilience.StateOpen {
		t.Errorf("expected open state, got %s", c.cb.State())
	}
}

func TestClient_CircuitBreakerIgnoresCancelledCalls(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		_, _ = w.Write([]byte(`{"status":"processing"}`))
	}))
	defer srv.Close()
	defer close(release)

	cb := DefaultCircuitBreakerConfig("assemblyai")
	cb.MaxFailures = 2
	cb.Timeout = time.Hour
	c, _ := New(Config{BaseURL: srv.URL, CircuitBreaker: cb})

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/slow"})
		cancel()
		if !IsCanceled(err) || IsUpstreamFailure(err) {
			t.Fatalf("call %d: expected a cancellation, got %v", i, err)
		}
	}
	if c.cb.State() != resilience.StateClosed {
		t.Fatalf("cancelled calls opened the circuit: %s", c.cb.State())
	}
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/v2/transcript/job-9"})
	if err != nil || !strings.Contains(string(resp.Body), "processing") {
		t.Errorf("healthy call after cancellations failed: %v", err)
	}
}

func TestAuth_Apply(t *testing.T) {
	tests := []struct {
		name  string
		auth  *AuthConfig
		check func(*http.Request) bool
	}{
		{"bearer", BearerAuth("tok"), func(r *http.Request) bool { return r.Header.Get("Authorization") == "Bearer tok" }},
		{"header", APIKeyAuthHeader("k", "x-api-key"), func(r *http.Request) bool { return r.Header.Get("x-api-key") == "k" }},
		{"default header", &AuthConfig{Type: AuthAPIKey, Key: "k"}, func(r *http.Request) bool { return r.Header.Get("X-API-Key") == "k" }},
		{"query", APIKeyAuthQuery("k", "token"), func(r *http.Request) bool { return r.URL.Query().Get("token") == "k" }},
		{"nil", nil, func(r *http.Request) bool { return len(r.Header) == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "http://example.com/", nil)
			tt.auth.apply(req)
			if !tt.check(req) {
				t.Errorf("auth not applied as expected: %v %v", req.Header, req.URL)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Timeout != defaultTimeout {
		t.Errorf("expected default timeout, got %v", c.Timeout)
	}
	if err := c.Validate(); err != nil {
		t.Error(err)
	}
}
