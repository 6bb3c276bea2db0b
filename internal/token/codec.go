// Package token encodes and decodes the short-lived transaction token that
// carries handshake state through the user-agent.
//
// codec.go -- CBOR serialization, sealing, and TTL enforcement.
// The codec does no I/O; authenticated encryption is delegated to a Sealer.
package token

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// ErrInvalidToken is returned by Decode when the token fails its integrity check.
// Undecodable transport encoding counts as an integrity failure too.
var ErrInvalidToken = errors.New("invalid transaction token")

// ErrExpiredToken is returned by Decode when the token is older than the codec TTL.
var ErrExpiredToken = errors.New("expired transaction token")

// ErrMalformedToken is returned by Decode when the token opens cleanly but its
// payload does not have the expected shape.
var ErrMalformedToken = errors.New("malformed transaction token")

// Sealer is the authenticated-encryption boundary.
// Satisfied by *AEADSealer -- defined here so tests can swap in fakes.
type Sealer interface {
	// Seal encrypts and authenticates plaintext.
	Seal(plaintext []byte) ([]byte, error)

	// Open reverses Seal. Returns a non-nil error if ciphertext was tampered with.
	Open(ciphertext []byte) ([]byte, error)
}

// Codec turns State into a cookie-safe token and back.
// Safe for concurrent use; holds no mutable state.
type Codec struct {
	sealer Sealer
	ttl    time.Duration
	now    func() time.Time
	enc    cbor.EncMode
	dec    cbor.DecMode
}

// NewCodec returns a Codec sealing with s and rejecting tokens older than ttl.
func NewCodec(s Sealer, ttl time.Duration) (*Codec, error) {
	if s == nil {
		return nil, errors.New("token: sealer is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: ttl must be positive, got %s", ttl)
	}
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("token: building cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("token: building cbor decoder: %w", err)
	}
	return &Codec{sealer: s, ttl: ttl, now: time.Now, enc: enc, dec: dec}, nil
}

// WithClock returns a copy of c that reads the current time from now.
// Expiry is the only place wall-clock time enters the handshake.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

// TTL returns how long a minted token stays valid.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Encode stamps s with the current time, seals it, and returns a base64url token.
func (c *Codec) Encode(s State) (string, error) {
	payload, err := c.enc.Marshal(envelope{
		Version:  envelopeVersion,
		IssuedAt: c.now().UnixMilli(),
		State:    s,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling transaction state: %w", err)
	}
	sealed, err := c.sealer.Seal(payload)
	if err != nil {
		return "", fmt.Errorf("sealing transaction state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode opens tok and returns the State inside.
// Errors wrap ErrInvalidToken, ErrExpiredToken, or ErrMalformedToken.
func (c *Codec) Decode(tok string) (State, error) {
	sealed, err := base64.RawURLEncoding.Strict().DecodeString(tok)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	payload, err := c.sealer.Open(sealed)
	if err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var env envelope
	if err := c.dec.Unmarshal(payload, &env); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if env.Version != envelopeVersion {
		return State{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedToken, env.Version)
	}
	if env.IssuedAt <= 0 || env.State.Provider == "" || env.State.Nonce == "" {
		return State{}, fmt.Errorf("%w: missing required fields", ErrMalformedToken)
	}

	if c.now().Sub(time.UnixMilli(env.IssuedAt)) > c.ttl {
		return State{}, ErrExpiredToken
	}
	return env.State, nil
}
