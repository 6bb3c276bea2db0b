// oidc.go -- ID-token verifier construction for OIDC-capable providers.
package handshake

import (
	"context"

	"github.com/MGallo-Code/ferry/internal/oauth"
	"github.com/coreos/go-oidc/v3/oidc"
)

// newVerifier builds d's verifier. Keys come from Config.KeySets when an
// override is registered, otherwise from d's JWKS URL, fetched lazily through
// the engine's HTTP client.
func (e *Engine) newVerifier(d *oauth.Descriptor) *oidc.IDTokenVerifier {
	keys, ok := e.cfg.KeySets[d.Name]
	if !ok {
		// The key set keeps this context for every JWKS fetch.
		ctx := oidc.ClientContext(context.Background(), e.cfg.HTTPClient)
		keys = oidc.NewRemoteKeySet(ctx, d.OIDC.JWKSURL)
	}
	return oidc.NewVerifier(d.OIDC.Issuer, keys, &oidc.Config{
		ClientID: d.ClientID,
		Now:      e.cfg.Now,
	})
}
