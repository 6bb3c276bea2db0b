// Package handshake drives OAuth1 and OAuth2 login handshakes for a set of
// provider descriptors.
//
// engine.go -- Engine construction, the host-facing Request/Result boundary,
// transaction cookies, and the shared start/callback plumbing.
// The engine never writes to a ResponseWriter: every side effect the host must
// apply (cookies, redirect) is returned in a Result.
package handshake

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/MGallo-Code/ferry/internal/metrics"
	"github.com/MGallo-Code/ferry/internal/oauth"
	"github.com/MGallo-Code/ferry/internal/oauth1"
	"github.com/MGallo-Code/ferry/internal/token"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultCookiePrefix is prepended to the provider name to form the
// transaction cookie name.
const DefaultCookiePrefix = "ferry-"

// DefaultHTTPTimeout bounds every outbound provider call when Config.HTTPClient is nil.
const DefaultHTTPTimeout = 10 * time.Second

// Metric phase labels.
const (
	phaseStart    = "start"
	phaseCallback = "callback"
)

// Config holds engine-wide collaborators. Only Codec is required.
type Config struct {
	Codec *token.Codec

	// HTTPClient is used for every outbound provider call.
	// Defaults to a client with DefaultHTTPTimeout.
	HTTPClient *http.Client

	CookiePrefix string
	CookieSecure bool

	// Replay, when set, makes each transaction token single-use.
	Replay ReplayGuard

	// Metrics may be nil.
	Metrics *metrics.Recorder

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// KeySets overrides remote JWKS fetching for OIDC providers, keyed by
	// provider name.
	KeySets map[string]oidc.KeySet

	// Now is the clock used for ID-token expiry. Defaults to time.Now.
	Now func() time.Time

	// Nonce generates transaction nonces. Defaults to token.NewNonce.
	Nonce func() (string, error)
}

// Request is everything the engine reads from an incoming HTTP request.
type Request struct {
	Query   url.Values
	Cookies []*http.Cookie

	// RedirectURI is the absolute callback URL registered with the provider.
	// Its path scopes the transaction cookie.
	RedirectURI string

	// Next and AppState are carried through the handshake untouched.
	Next     string
	AppState string
}

// Result is what the host must apply to its response.
type Result struct {
	// Redirect is set by Start: send the user-agent here.
	Redirect string
	Cookies  []*http.Cookie
	// Credentials is set by a successful Callback.
	Credentials *Credentials
}

// Credentials is the outcome of a completed handshake.
type Credentials struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
	// RefreshToken and Expiry are OAuth2 only, when the provider sends them.
	RefreshToken *string    `json:"refreshToken,omitempty"`
	Expiry       *time.Time `json:"expiresAt,omitempty"`
	// Secret is the OAuth1 token secret.
	Secret *string `json:"secret,omitempty"`
	// Query is the query of the request that started the handshake. Never nil.
	Query    url.Values     `json:"query"`
	Next     string         `json:"next,omitempty"`
	AppState string         `json:"appState,omitempty"`
	Profile  *oauth.Profile `json:"profile"`
}

// provider is a validated descriptor plus its protocol client.
type provider struct {
	desc     *oauth.Descriptor
	exchange *oauth2.Config        // OAuth2
	verifier *oidc.IDTokenVerifier // OAuth2 with OIDC
	signer   *oauth1.Client        // OAuth1
}

// Engine runs handshakes for a fixed set of providers.
// Safe for concurrent use; nothing is mutated after New.
type Engine struct {
	cfg       Config
	log       *slog.Logger
	providers map[string]*provider
}

// New validates every descriptor and returns a ready engine.
// Any problem is reported as a KindConfiguration error.
func New(cfg Config, descs ...*oauth.Descriptor) (*Engine, error) {
	if cfg.Codec == nil {
		return nil, newError(KindConfiguration, "", "token codec is required", nil)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if cfg.CookiePrefix == "" {
		cfg.CookiePrefix = DefaultCookiePrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Nonce == nil {
		cfg.Nonce = token.NewNonce
	}

	e := &Engine{cfg: cfg, log: cfg.Logger, providers: make(map[string]*provider, len(descs))}
	for _, d := range descs {
		if err := d.Validate(); err != nil {
			return nil, newError(KindConfiguration, "", "invalid provider", err)
		}
		if _, dup := e.providers[d.Name]; dup {
			return nil, newError(KindConfiguration, d.Name, "duplicate provider name", nil)
		}

		p := &provider{desc: d}
		switch d.Protocol {
		case oauth.OAuth1:
			p.signer = &oauth1.Client{
				ConsumerKey:    d.ClientID,
				ConsumerSecret: d.ClientSecret,
				HTTPClient:     cfg.HTTPClient,
			}
		case oauth.OAuth2:
			p.exchange = newOAuth2Config(d)
			if d.OIDC != nil {
				p.verifier = e.newVerifier(d)
			}
		}
		e.providers[d.Name] = p
	}
	return e, nil
}

// Providers returns the configured provider names, sorted.
func (e *Engine) Providers() []string {
	names := make([]string, 0, len(e.providers))
	for name := range e.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a configured provider.
func (e *Engine) Has(name string) bool {
	_, ok := e.providers[name]
	return ok
}

// Authenticate runs whichever leg req represents: a callback when the query
// carries the provider's callback params, a start otherwise.
func (e *Engine) Authenticate(ctx context.Context, name string, req Request) (*Result, error) {
	p, err := e.provider(name)
	if err != nil {
		return nil, err
	}
	if isCallback(p.desc.Protocol, req.Query) {
		return e.Callback(ctx, name, req)
	}
	return e.Start(ctx, name, req)
}

// IsCallback reports whether Authenticate would treat q as a callback for
// name. False for unknown providers.
func (e *Engine) IsCallback(name string, q url.Values) bool {
	p, ok := e.providers[name]
	return ok && isCallback(p.desc.Protocol, q)
}

// isCallback reports whether q looks like a provider redirect back to us.
func isCallback(proto oauth.Protocol, q url.Values) bool {
	switch proto {
	case oauth.OAuth1:
		return q.Has("oauth_token") || q.Has("denied")
	case oauth.OAuth2:
		return q.Has("code") || q.Has("error")
	}
	return false
}

// Start begins a handshake: it mints a transaction token and returns the
// provider redirect plus the cookie carrying the token.
func (e *Engine) Start(ctx context.Context, name string, req Request) (*Result, error) {
	p, err := e.provider(name)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch {
	case req.RedirectURI == "":
		err = newError(KindConfiguration, name, "redirect uri is required", nil)
	case p.desc.Protocol == oauth.OAuth1:
		res, err = e.startOAuth1(ctx, p, req)
	default:
		res, err = e.startOAuth2(p, req)
	}
	e.observe(name, phaseStart, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Callback completes a handshake. The returned Result is never nil for a
// known provider: it always carries a cookie clearing the transaction token,
// which the host must apply whether or not err is nil.
func (e *Engine) Callback(ctx context.Context, name string, req Request) (*Result, error) {
	p, err := e.provider(name)
	if err != nil {
		return nil, err
	}
	res := &Result{Cookies: []*http.Cookie{e.cookie(p, req, "", -1)}}

	creds, err := e.callback(ctx, p, req)
	e.observe(name, phaseCallback, err)
	if err != nil {
		return res, err
	}
	res.Credentials = creds
	return res, nil
}

func (e *Engine) callback(ctx context.Context, p *provider, req Request) (*Credentials, error) {
	st, err := e.loadState(p, req)
	if err != nil {
		return nil, err
	}
	if p.desc.Protocol == oauth.OAuth1 {
		return e.callbackOAuth1(ctx, p, req, st)
	}
	return e.callbackOAuth2(ctx, p, req, st)
}

func (e *Engine) provider(name string) (*provider, error) {
	p, ok := e.providers[name]
	if !ok {
		return nil, newError(KindConfiguration, name, "unknown provider", oauth.ErrUnknownProvider)
	}
	return p, nil
}

// newState builds the transaction state for a start request.
func (e *Engine) newState(p *provider, req Request) (token.State, error) {
	nonce, err := e.cfg.Nonce()
	if err != nil {
		return token.State{}, newError(KindConfiguration, p.desc.Name, "generating nonce", err)
	}
	return token.State{
		Provider: p.desc.Name,
		Nonce:    nonce,
		Next:     req.Next,
		AppState: req.AppState,
		Query:    copyQuery(req.Query),
	}, nil
}

// stateCookie seals st into the transaction cookie.
func (e *Engine) stateCookie(p *provider, req Request, st token.State) (*http.Cookie, error) {
	tok, err := e.cfg.Codec.Encode(st)
	if err != nil {
		return nil, newError(KindConfiguration, p.desc.Name, "sealing transaction token", err)
	}
	return e.cookie(p, req, tok, int(e.cfg.Codec.TTL()/time.Second)), nil
}

// loadState reads and decodes the transaction cookie. Runs before any
// outbound call so a request without a cookie never reaches the provider.
func (e *Engine) loadState(p *provider, req Request) (token.State, error) {
	name := p.desc.Name
	var raw string
	for _, c := range req.Cookies {
		if c.Name == e.cookieName(p) {
			raw = c.Value
			break
		}
	}
	if raw == "" {
		return token.State{}, newError(KindMissingState, name, "transaction cookie missing", nil)
	}

	st, err := e.cfg.Codec.Decode(raw)
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return token.State{}, newError(KindExpiredToken, name, "login took too long", err)
	case errors.Is(err, token.ErrMalformedToken):
		return token.State{}, newError(KindMalformedToken, name, "transaction token malformed", err)
	case err != nil:
		return token.State{}, newError(KindInvalidToken, name, "transaction token rejected", err)
	}

	if st.Provider != name {
		return token.State{}, newError(KindInvalidToken, name, "transaction token minted for another provider", nil)
	}
	return st, nil
}

func (e *Engine) cookieName(p *provider) string {
	return e.cfg.CookiePrefix + p.desc.Name
}

// cookie builds the transaction cookie scoped to the callback path.
// maxAge -1 clears it.
func (e *Engine) cookie(p *provider, req Request, value string, maxAge int) *http.Cookie {
	path := "/"
	if u, err := url.Parse(req.RedirectURI); err == nil && u.Path != "" {
		path = u.Path
	}
	return &http.Cookie{
		Name:     e.cookieName(p),
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   e.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// upstream times one outbound provider call.
func (e *Engine) upstream(p *provider, call string, fn func() error) error {
	start := time.Now()
	err := fn()
	e.cfg.Metrics.ObserveUpstream(p.desc.Name, call, time.Since(start))
	return err
}

// observe records the outcome of one handshake leg.
func (e *Engine) observe(name, phase string, err error) {
	outcome := Outcome(err)
	e.cfg.Metrics.Handshake(name, phase, outcome)
	if err != nil {
		e.log.Debug("handshake failed", "provider", name, "phase", phase, "outcome", outcome, "error", err)
		return
	}
	e.log.Debug("handshake step complete", "provider", name, "phase", phase)
}

// secureEqual compares two callback values in constant time.
func secureEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func copyQuery(q url.Values) map[string][]string {
	if len(q) == 0 {
		return nil
	}
	out := make(map[string][]string, len(q))
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
