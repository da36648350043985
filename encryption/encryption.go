// Package encryption seals byte payloads with an AEAD cipher keyed from a
// passphrase. Sealed output is the nonce followed by the ciphertext.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm names a supported cipher.
type Algorithm string

const (
	AlgorithmAESGCM   Algorithm = "aes-256-gcm"
	AlgorithmChaCha20 Algorithm = "chacha20-poly1305"
)

// ErrCiphertext is returned by Open for input that was not sealed with the
// same key and algorithm.
var ErrCiphertext = errors.New("encryption: invalid ciphertext")

// Sealer encrypts and authenticates payloads.
type Sealer struct {
	alg  Algorithm
	aead cipher.AEAD
}

// New derives a 256-bit key from passphrase with SHA-256. An empty alg means
// AES-256-GCM.
func New(passphrase string, alg Algorithm) (*Sealer, error) {
	if passphrase == "" {
		return nil, errors.New("encryption: empty key")
	}
	key := sha256.Sum256([]byte(passphrase))

	var (
		aead cipher.AEAD
		err  error
	)
	switch alg {
	case "", AlgorithmAESGCM:
		alg = AlgorithmAESGCM
		var block cipher.Block
		if block, err = aes.NewCipher(key[:]); err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case AlgorithmChaCha20:
		aead, err = chacha20poly1305.New(key[:])
	default:
		return nil, fmt.Errorf("encryption: unsupported algorithm %q", alg)
	}
	if err != nil {
		return nil, fmt.Errorf("encryption: %s: %w", alg, err)
	}
	return &Sealer{alg: alg, aead: aead}, nil
}

func (s *Sealer) Algorithm() Algorithm { return s.alg }

// Seal encrypts plaintext under a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("encryption: nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrCiphertext
	}
	plaintext, err := s.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return plaintext, nil
}
