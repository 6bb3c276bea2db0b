// state.go -- Transaction state carried client side between the two legs of a handshake.
package token

// State is the per-handshake record sealed into the transaction cookie.
// Nothing here is persisted server side; it lives only inside the token.
type State struct {
	// Provider names the descriptor that minted the token. A callback for a
	// different provider must reject it.
	Provider string `cbor:"1,keyasint"`

	// Nonce is the CSRF anchor. OAuth2 echoes it back as the state param.
	Nonce string `cbor:"2,keyasint"`

	// Next is where the host should send the user-agent once login completes.
	Next string `cbor:"3,keyasint,omitempty"`

	// AppState is an opaque blob supplied by the host application.
	AppState string `cbor:"4,keyasint,omitempty"`

	// Query holds the query params of the initiating request.
	// Not omitempty: nil and empty must decode back as they were encoded.
	Query map[string][]string `cbor:"5,keyasint"`

	// Token and TokenSecret hold the OAuth1 temporary credentials.
	// Empty for OAuth2 handshakes.
	Token       string `cbor:"6,keyasint,omitempty"`
	TokenSecret string `cbor:"7,keyasint,omitempty"`
}

// envelope wraps State with the metadata the codec needs for TTL checks.
type envelope struct {
	Version  uint8 `cbor:"1,keyasint"`
	IssuedAt int64 `cbor:"2,keyasint"` // unix millis
	State    State `cbor:"3,keyasint"`
}

// envelopeVersion is bumped whenever the envelope layout changes.
const envelopeVersion uint8 = 1
