// models.go -- Shared types and sentinels for the store package.
// Used by the Redis and in-memory replay guards and the Postgres audit trail.
package store

import (
	"errors"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrNonceReused is returned by ConsumeNonce when the key was already consumed
// inside its TTL. Callers use errors.Is to tell a replay from an infrastructure failure.
var ErrNonceReused = errors.New("nonce already used")

// ErrAuditDisabled is returned by NoopAuditStore.CheckHealth when no database is configured.
var ErrAuditDisabled = errors.New("audit disabled")

// Phases recorded in handshake_events.phase.
const (
	PhaseStart    = "start"
	PhaseCallback = "callback"
)

// HandshakeEvent is one row of the handshake_events table.
// Only transport metadata is kept; profile data and credentials never are.
// Nullable columns are pointers, nil means SQL NULL.
type HandshakeEvent struct {
	ID        uuid.UUID
	Provider  string
	Phase     string
	Outcome   string
	IPAddress *string
	UserAgent *string
	CreatedAt time.Time
}
