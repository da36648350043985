package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/transcribe/httpclient"
)

type job struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func TestPostAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("missing Accept header")
		}
		switch r.Method {
		case http.MethodPost:
			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in["audio_url"] != "https://cdn/x" {
				t.Errorf("unexpected body %v", in)
			}
			_ = json.NewEncoder(w).Encode(job{ID: "j1", Status: "queued"})
		case http.MethodGet:
			if r.URL.Path != "/jobs/j1" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(job{ID: "j1", Status: "completed"})
		}
	}))
	defer srv.Close()

	c, err := New(httpclient.Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	created, err := Post[job](context.Background(), c, "/jobs", map[string]string{"audio_url": "https://cdn/x"})
	if err != nil || created.Data.ID != "j1" || created.Data.Status != "queued" {
		t.Fatalf("post: %+v %v", created, err)
	}
	got, err := Get[job](context.Background(), c, "/jobs/j1")
	if err != nil || got.Data.Status != "completed" {
		t.Fatalf("get: %+v %v", got, err)
	}
}

func TestErrorBodyDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Invalid audio_url"}`))
	}))
	defer srv.Close()

	c, _ := New(httpclient.Config{BaseURL: srv.URL})
	resp, err := Post[job](context.Background(), c, "/jobs", map[string]string{})
	if err == nil {
		t.Fatal("expected error")
	}
	if resp == nil || resp.Data.Error != "Invalid audio_url" {
		t.Errorf("expected decoded error body, got %+v", resp)
	}
}

func TestNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c, _ := New(httpclient.Config{BaseURL: srv.URL})
	_, err := Get[job](context.Background(), c, "/missing")
	if !httpclient.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
