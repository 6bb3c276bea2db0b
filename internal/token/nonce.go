// nonce.go
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewNonce returns 256 bits of crypto/rand entropy, base64url encoded.
func NewNonce() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating nonce with rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
