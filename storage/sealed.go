package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/kbukum/transcribe/encryption"
)

// sealed encrypts objects on the way in and decrypts them on the way out.
// Sizes reported by List are ciphertext sizes.
type sealed struct {
	Storage
	sealer *encryption.Sealer
}

// Sealed wraps s so every object is stored encrypted.
func Sealed(s Storage, sealer *encryption.Sealer) Storage {
	return &sealed{Storage: s, sealer: sealer}
}

func (s *sealed) Upload(ctx context.Context, path string, r io.Reader, _ string) error {
	plain, err := io.ReadAll(io.LimitReader(r, maxObjectRead))
	if err != nil {
		return fmt.Errorf("storage: read %s: %w", path, err)
	}
	ct, err := s.sealer.Seal(plain)
	if err != nil {
		return err
	}
	return s.Storage.Upload(ctx, path, bytes.NewReader(ct), "application/octet-stream")
}

func (s *sealed) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	ct, err := ReadBytes(ctx, s.Storage, path)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(ct)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(plain)), nil
}
