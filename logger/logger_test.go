package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "transcribe", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info")
	l.Info("job submitted", Fields(FieldJobID, "abc", FieldAttempt, 2))

	m := decodeLine(t, &buf)
	if m["message"] != "job submitted" {
		t.Errorf("unexpected message %v", m["message"])
	}
	if m[FieldJobID] != "abc" {
		t.Errorf("expected job_id=abc, got %v", m[FieldJobID])
	}
	if m[FieldService] != "transcribe" {
		t.Errorf("expected service field, got %v", m[FieldService])
	}
}

func TestLogger_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden too")
	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected warn line")
	}
}

func TestLogger_WithComponentAndContext(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").WithComponent("poller")
	ctx := ContextWithRequestID(context.Background(), "req-1")
	l.WithContext(ctx).Info("tick")

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "poller" {
		t.Errorf("expected component=poller, got %v", m[FieldComponent])
	}
	if m[FieldRequestID] != "req-1" {
		t.Errorf("expected request_id=req-1, got %v", m[FieldRequestID])
	}
}

func TestLogger_WithContextWithoutRequestID(t *testing.T) {
	l := NewDefault("svc")
	if got := l.WithContext(context.Background()); got != l {
		t.Error("expected same logger when context carries no request id")
	}
}

func TestLogger_WithErrorAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info").WithError(fmt.Errorf("boom")).WithFields(map[string]interface{}{FieldPhase: "polling"})
	l.Error("failed")

	m := decodeLine(t, &buf)
	if m["error"] != "boom" {
		t.Errorf("expected error=boom, got %v", m["error"])
	}
	if m[FieldPhase] != "polling" {
		t.Errorf("expected phase=polling, got %v", m[FieldPhase])
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, 2, "skipped", "b", true, "dangling")
	if len(m) != 2 {
		t.Fatalf("expected 2 fields, got %v", m)
	}
	if m["a"] != 1 || m["b"] != true {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("upload", fmt.Errorf("refused"))
	if ef[FieldOperation] != "upload" || ef[FieldError] != "refused" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("poll", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration fields %v", df)
	}
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Level != "info" || c.Format != "console" || c.Output != "stdout" {
		t.Errorf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	c.Level = "loud"
	if err := c.Validate(); err == nil {
		t.Error("expected invalid level error")
	}
	c.Level = "info"
	c.Format = "xml"
	if err := c.Validate(); err == nil {
		t.Error("expected invalid format error")
	}
}

func TestRegistry_GetFallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	SetGlobalLogger(jsonLogger(&buf, "info"))
	defer SetGlobalLogger(nil)

	Get("unregistered").Info("hello")
	m := decodeLine(t, &buf)
	if m[FieldComponent] != "unregistered" {
		t.Errorf("expected component tag, got %v", m[FieldComponent])
	}

	custom := NewDefault("custom")
	Register("custom", custom)
	if Get("custom") != custom {
		t.Error("expected registered logger")
	}
}
