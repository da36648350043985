package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/transcribe/storage"
)

// fakeS3 is a path-style object server good enough for Put/Get/Head/Delete.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[key] = data
		f.types[key] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet, http.MethodHead:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method == http.MethodGet {
				fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
			}
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(data)
		}
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFake(t *testing.T) (*Storage, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	s, err := New(context.Background(), storage.Config{
		Bucket:    "archive",
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s, fake
}

func TestStorage_RoundTrip(t *testing.T) {
	s, fake := newFake(t)
	ctx := context.Background()

	if err := s.Upload(ctx, "transcripts/s1/a.txt", strings.NewReader("Speaker A: Hi."), "text/plain; charset=utf-8"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if got := string(fake.objects["archive/transcripts/s1/a.txt"]); got != "Speaker A: Hi." {
		t.Fatalf("stored %q (keys %v)", got, fake.objects)
	}
	if ct := fake.types["archive/transcripts/s1/a.txt"]; !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}

	ok, err := s.Exists(ctx, "transcripts/s1/a.txt")
	if err != nil || !ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}

	rc, err := s.Download(ctx, "transcripts/s1/a.txt")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "Speaker A: Hi." {
		t.Errorf("downloaded %q", data)
	}

	if err := s.Delete(ctx, "transcripts/s1/a.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Download(ctx, "transcripts/s1/a.txt"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("download after delete = %v", err)
	}
}
