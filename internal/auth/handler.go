// handler.go -- Dependencies for the /login/* and /health handlers.
package auth

import (
	"context"
	"net/url"

	"github.com/MGallo-Code/ferry/internal/handshake"
	"github.com/MGallo-Code/ferry/internal/store"
)

// Engine is the handshake surface the login handler drives.
// Satisfied by *handshake.Engine; defined at the consumer.
type Engine interface {
	// Has reports whether name is a configured provider.
	Has(name string) bool

	// IsCallback reports whether q is a provider redirect back to us.
	IsCallback(name string, q url.Values) bool

	// Authenticate runs the start or callback leg for name.
	Authenticate(ctx context.Context, name string, req handshake.Request) (*handshake.Result, error)
}

// Auditor records handshake outcomes.
// Satisfied by *store.PostgresStore and store.NoopAuditStore.
type Auditor interface {
	RecordHandshake(ctx context.Context, ev store.HandshakeEvent) error
}

// HealthChecker is anything /health can ping.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// LoginHandler holds dependencies for the login and health handlers.
type LoginHandler struct {
	Engine Engine
	Audit  Auditor

	// CallbackURL maps a provider name to its absolute redirect URI.
	CallbackURL func(provider string) string

	// Redis is nil when the in-memory replay guard is in use.
	Redis    HealthChecker
	Postgres HealthChecker
}
