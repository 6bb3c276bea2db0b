// sealer.go -- XChaCha20-Poly1305 implementation of Sealer.
package token

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// MinPasswordLength is the shortest cookie password NewAEADSealer accepts.
const MinPasswordLength = 32

// ErrWeakPassword is returned by NewAEADSealer for passwords under MinPasswordLength.
var ErrWeakPassword = fmt.Errorf("cookie password must be at least %d bytes", MinPasswordLength)

// errShortCiphertext is returned by Open when input can't hold a nonce + tag.
var errShortCiphertext = errors.New("ciphertext too short")

// keySalt domain-separates the derived key from any other use of the password.
const keySalt = "ferry/transaction-token/v1"

// Argon2id parameters for stretching the cookie password.
// Runs once at startup, not per request.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// AEADSealer seals tokens with XChaCha20-Poly1305 under a key derived from
// the configured cookie password. Safe for concurrent use.
type AEADSealer struct {
	aead cipher.AEAD
}

// NewAEADSealer stretches password with Argon2id and returns a ready sealer.
func NewAEADSealer(password string) (*AEADSealer, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	key := argon2.IDKey([]byte(password), []byte(keySalt), argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("creating aead: %w", err)
	}
	return &AEADSealer{aead: aead}, nil
}

// Seal returns nonce || ciphertext || tag with a fresh random 24-byte nonce.
func (s *AEADSealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce with rand: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open authenticates and decrypts a value produced by Seal.
func (s *AEADSealer) Open(ciphertext []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(ciphertext) < ns+s.aead.Overhead() {
		return nil, errShortCiphertext
	}
	return s.aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
}
