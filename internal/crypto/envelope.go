// Package crypto implements the token envelope (C1): authenticated
// encryption of credential material with a versioned wire format and
// associated-data binding.
package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Version is the single supported envelope version. Any ciphertext not
// beginning with this byte is treated as legacy plaintext by Decrypt.
const Version byte = 0x01

const (
	nonceSize = chacha20poly1305.NonceSize // 12 bytes
	keySize   = chacha20poly1305.KeySize   // 32 bytes
)

// ErrInvalidFormat is returned when a supposedly versioned ciphertext is
// truncated or otherwise structurally malformed.
var ErrInvalidFormat = errors.New("crypto: invalid envelope format")

// ErrDecryptionFailed is returned when the AEAD tag or associated data does
// not authenticate — wrong key, tampered ciphertext, or mismatched AAD.
var ErrDecryptionFailed = errors.New("crypto: decryption failed")

// ErrInvalidKeySize is returned when a key is not exactly 32 bytes.
var ErrInvalidKeySize = errors.New("crypto: key must be 32 bytes")

// Envelope encrypts and decrypts values under a single process-wide key.
// It is safe for concurrent use; the key is read-only after construction.
type Envelope struct {
	aead cipherAEAD
}

// cipherAEAD is the subset of cipher.AEAD the envelope needs, named so the
// concrete construction (chacha20poly1305) stays an implementation detail.
type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
	Overhead() int
}

// NewEnvelope builds an Envelope from a raw 32-byte key.
func NewEnvelope(key []byte) (*Envelope, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: constructing aead: %w", err)
	}
	return &Envelope{aead: aead}, nil
}

// Encrypt produces a versioned ciphertext: [0x01][12-byte nonce][ciphertext+tag].
// A fresh random nonce is drawn for every call.
func (e *Envelope) Encrypt(aad, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	out := make([]byte, 0, 1+nonceSize+len(plaintext)+e.aead.Overhead())
	out = append(out, Version)
	out = append(out, nonce...)
	out = e.aead.Seal(out, nonce, plaintext, aad)
	return out, nil
}

// Decrypt reverses Encrypt. If b does not begin with the version byte it is
// treated as legacy plaintext and returned unchanged — callers migrating
// off an earlier, unencrypted storage format rely on this passthrough; see
// IsEncrypted to detect the case explicitly instead of relying on this
// behavior in new code paths.
func (e *Envelope) Decrypt(aad, b []byte) ([]byte, error) {
	if len(b) == 0 || b[0] != Version {
		return b, nil
	}
	if len(b) < 1+nonceSize+e.aead.Overhead() {
		return nil, ErrInvalidFormat
	}

	nonce := b[1 : 1+nonceSize]
	ciphertext := b[1+nonceSize:]

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// IsEncrypted reports whether b carries the envelope's version prefix and a
// plausible minimum length, without attempting to decrypt it.
func IsEncrypted(b []byte) bool {
	return len(b) >= 1+nonceSize+16 && b[0] == Version
}
