// replay.go -- Single-use enforcement for transaction tokens.
package handshake

import (
	"context"
	"errors"
	"time"

	"github.com/MGallo-Code/ferry/internal/store"
	"github.com/MGallo-Code/ferry/internal/token"
)

// ReplayGuard records consumed nonces.
// Satisfied by *store.RedisStore and *store.MemoryStore.
type ReplayGuard interface {
	// ConsumeNonce claims key for ttl. Returns store.ErrNonceReused when the
	// key was already claimed.
	ConsumeNonce(ctx context.Context, key string, ttl time.Duration) error
}

// consume claims st's nonce once its state has been validated and before any
// exchange. A guard outage fails open: the token's TTL and AEAD still hold.
func (e *Engine) consume(ctx context.Context, p *provider, st token.State) error {
	if e.cfg.Replay == nil {
		return nil
	}
	err := e.cfg.Replay.ConsumeNonce(ctx, p.desc.Name+":"+st.Nonce, e.cfg.Codec.TTL())
	switch {
	case errors.Is(err, store.ErrNonceReused):
		return newError(KindInvalidToken, p.desc.Name, "transaction token already used", err)
	case err != nil:
		e.log.Warn("replay guard unavailable, continuing", "provider", p.desc.Name, "error", err)
	}
	return nil
}
