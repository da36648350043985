package storage

import (
	"bytes"
	"context"
	"io"
	"path"
	"strings"
)

// maxObjectRead bounds ReadBytes.
const maxObjectRead = 64 << 20

// WriteBytes uploads data.
func WriteBytes(ctx context.Context, s Storage, p string, data []byte, contentType string) error {
	return s.Upload(ctx, p, bytes.NewReader(data), contentType)
}

// ReadBytes downloads a whole object.
func ReadBytes(ctx context.Context, s Storage, p string) ([]byte, error) {
	rc, err := s.Download(ctx, p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, maxObjectRead))
}

// Join builds a clean object path from segments. Empty segments are skipped
// and ".." cannot climb above the root.
func Join(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.TrimPrefix(path.Clean("/"+strings.Join(kept, "/")), "/")
}
