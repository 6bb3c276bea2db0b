// stores.go
//
// Shared fakes for the audit trail and replay guard.
// Imported by test files across packages to avoid duplicate mock definitions.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MGallo-Code/ferry/internal/store"
	"github.com/MGallo-Code/ferry/internal/token"
)

// CookiePassword is a fixed sealing password long enough for token.NewAEADSealer.
const CookiePassword = "test-cookie-password-0123456789abcdef"

// NewCodec returns a codec sealing with CookiePassword.
func NewCodec(t *testing.T, ttl time.Duration) *token.Codec {
	t.Helper()
	sealer, err := token.NewAEADSealer(CookiePassword)
	if err != nil {
		t.Fatalf("NewAEADSealer: %v", err)
	}
	codec, err := token.NewCodec(sealer, ttl)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

// MockAuditor records handshake events in memory.
// Set RecordErr to make every write fail.
type MockAuditor struct {
	RecordErr error

	mu     sync.Mutex
	Events []store.HandshakeEvent
}

func (m *MockAuditor) RecordHandshake(_ context.Context, ev store.HandshakeEvent) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, ev)
	return nil
}

// Snapshot returns a copy of the recorded events.
func (m *MockAuditor) Snapshot() []store.HandshakeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.HandshakeEvent(nil), m.Events...)
}

// MockReplayGuard fails every ConsumeNonce with Err and counts calls.
// Use store.NewMemoryStore for a working guard.
type MockReplayGuard struct {
	Err error

	mu    sync.Mutex
	Calls int
}

func (m *MockReplayGuard) ConsumeNonce(context.Context, string, time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	return m.Err
}

// MockHealth is a health checker returning Err.
type MockHealth struct {
	Err error
}

func (m MockHealth) CheckHealth(context.Context) error { return m.Err }
