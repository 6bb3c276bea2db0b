// providers.go
//
// httptest-backed OAuth1 and OAuth2 providers. Each one checks client
// credentials and signatures the way a real provider would, and counts hits
// per path so tests can assert which upstream calls happened.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/MGallo-Code/ferry/internal/oauth"
	"github.com/MGallo-Code/ferry/internal/oauth1"
)

// hitCounter records requests per path.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (h *hitCounter) hit(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hits == nil {
		h.hits = make(map[string]int)
	}
	h.hits[path]++
}

// Hits returns how many requests reached path.
func (h *hitCounter) Hits(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

// Total returns the number of requests across all paths.
func (h *hitCounter) Total() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.hits {
		n += c
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// --- OAuth2 ---

// OAuth2Provider serves /authorize, /token and /me.
// Zero-value status fields mean 200.
type OAuth2Provider struct {
	hitCounter
	Server *httptest.Server

	ClientID     string
	ClientSecret string
	Code         string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	// IDToken is added to the token response when set.
	IDToken string
	Profile map[string]any

	TokenStatus   int
	ProfileStatus int

	// LastRedirectURI is the redirect_uri sent to /token.
	LastRedirectURI string
}

// NewOAuth2Provider starts a provider with default credentials.
// The server is closed when the test ends.
func NewOAuth2Provider(t *testing.T) *OAuth2Provider {
	t.Helper()
	m := &OAuth2Provider{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Code:         "auth-code",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresIn:    3600,
		Profile:      map[string]any{"id": "1234"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/authorize", m.authorize)
	mux.HandleFunc("/token", m.token)
	mux.HandleFunc("/me", m.me)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)
	return m
}

// Descriptor returns an OAuth2 descriptor pointed at this provider.
func (m *OAuth2Provider) Descriptor(name string, profile oauth.ProfileFunc) *oauth.Descriptor {
	return &oauth.Descriptor{
		Name:         name,
		Protocol:     oauth.OAuth2,
		ClientID:     m.ClientID,
		ClientSecret: m.ClientSecret,
		AuthURL:      m.Server.URL + "/authorize",
		TokenURL:     m.Server.URL + "/token",
		ProfileURL:   m.Server.URL + "/me",
		Scope:        []string{"email"},
		Profile:      profile,
	}
}

// authorize plays the user approving: it redirects straight back with code and state.
func (m *OAuth2Provider) authorize(w http.ResponseWriter, r *http.Request) {
	m.hit("/authorize")
	q := r.URL.Query()
	back, err := url.Parse(q.Get("redirect_uri"))
	if err != nil || q.Get("client_id") != m.ClientID || q.Get("response_type") != "code" {
		http.Error(w, "bad authorize request", http.StatusBadRequest)
		return
	}
	bq := back.Query()
	bq.Set("code", m.Code)
	bq.Set("state", q.Get("state"))
	back.RawQuery = bq.Encode()
	http.Redirect(w, r, back.String(), http.StatusFound)
}

func (m *OAuth2Provider) token(w http.ResponseWriter, r *http.Request) {
	m.hit("/token")
	if m.TokenStatus != 0 {
		writeJSON(w, m.TokenStatus, map[string]string{"error": "invalid_grant"})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	id, secret, ok := r.BasicAuth()
	if !ok {
		id, secret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	} else {
		// Basic auth credentials are form-encoded per RFC 6749 2.3.1
		id, _ = url.QueryUnescape(id)
		secret, _ = url.QueryUnescape(secret)
	}
	if id != m.ClientID || secret != m.ClientSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != m.Code {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		return
	}
	m.mu.Lock()
	m.LastRedirectURI = r.PostForm.Get("redirect_uri")
	m.mu.Unlock()

	resp := map[string]any{
		"access_token": m.AccessToken,
		"token_type":   "bearer",
	}
	if m.RefreshToken != "" {
		resp["refresh_token"] = m.RefreshToken
	}
	if m.ExpiresIn > 0 {
		resp["expires_in"] = m.ExpiresIn
	}
	if m.IDToken != "" {
		resp["id_token"] = m.IDToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *OAuth2Provider) me(w http.ResponseWriter, r *http.Request) {
	m.hit("/me")
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer != m.AccessToken && r.URL.Query().Get("oauth_token") != m.AccessToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
		return
	}
	if m.ProfileStatus != 0 {
		writeJSON(w, m.ProfileStatus, map[string]string{"error": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, m.Profile)
}

// --- OAuth1 ---

// OAuth1Provider serves /request_token, /authorize, /access_token and
// /profile, verifying the HMAC-SHA1 signature on every signed call.
type OAuth1Provider struct {
	hitCounter
	Server *httptest.Server

	ConsumerKey    string
	ConsumerSecret string
	RequestToken   string
	RequestSecret  string
	Verifier       string
	AccessToken    string
	AccessSecret   string
	// TokenParams are extra params in the access token response.
	TokenParams url.Values
	Profile     map[string]any

	RequestTokenStatus int
	ProfileStatus      int

	// LastCallback is the oauth_callback sent to /request_token.
	LastCallback string
	// LastProfileQuery is the query of the last /profile request.
	LastProfileQuery url.Values
}

// NewOAuth1Provider starts a provider with default credentials.
// The server is closed when the test ends.
func NewOAuth1Provider(t *testing.T) *OAuth1Provider {
	t.Helper()
	m := &OAuth1Provider{
		ConsumerKey:    "consumer-key",
		ConsumerSecret: "consumer-secret",
		RequestToken:   "request-token",
		RequestSecret:  "request-secret",
		Verifier:       "verifier",
		AccessToken:    "access-token",
		AccessSecret:   "access-secret",
		TokenParams:    url.Values{"user_id": {"1234"}, "screen_name": {"Steve Stevens"}},
		Profile:        map[string]any{"name": "Steve"},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/request_token", m.requestToken)
	mux.HandleFunc("/authorize", m.authorize)
	mux.HandleFunc("/access_token", m.accessToken)
	mux.HandleFunc("/profile", m.profile)
	m.Server = httptest.NewServer(mux)
	t.Cleanup(m.Server.Close)
	return m
}

// Descriptor returns an OAuth1 descriptor pointed at this provider.
func (m *OAuth1Provider) Descriptor(name string, extended bool, profile oauth.ProfileFunc) *oauth.Descriptor {
	return &oauth.Descriptor{
		Name:            name,
		Protocol:        oauth.OAuth1,
		ClientID:        m.ConsumerKey,
		ClientSecret:    m.ConsumerSecret,
		TemporaryURL:    m.Server.URL + "/request_token",
		AuthURL:         m.Server.URL + "/authorize",
		TokenURL:        m.Server.URL + "/access_token",
		ProfileURL:      m.Server.URL + "/profile",
		ExtendedProfile: extended,
		Profile:         profile,
	}
}

func (m *OAuth1Provider) requestToken(w http.ResponseWriter, r *http.Request) {
	m.hit("/request_token")
	oauthParams, ok := m.verify(r, "")
	if !ok {
		http.Error(w, "bad signature", http.StatusUnauthorized)
		return
	}
	if m.RequestTokenStatus != 0 {
		http.Error(w, "refused", m.RequestTokenStatus)
		return
	}
	m.mu.Lock()
	m.LastCallback = oauthParams["oauth_callback"]
	m.mu.Unlock()
	writeForm(w, url.Values{
		"oauth_token":              {m.RequestToken},
		"oauth_token_secret":       {m.RequestSecret},
		"oauth_callback_confirmed": {"true"},
	})
}

// authorize plays the user approving: it redirects to the registered callback.
func (m *OAuth1Provider) authorize(w http.ResponseWriter, r *http.Request) {
	m.hit("/authorize")
	m.mu.Lock()
	cb := m.LastCallback
	m.mu.Unlock()
	back, err := url.Parse(cb)
	if err != nil || r.URL.Query().Get("oauth_token") != m.RequestToken {
		http.Error(w, "bad authorize request", http.StatusBadRequest)
		return
	}
	q := back.Query()
	q.Set("oauth_token", m.RequestToken)
	q.Set("oauth_verifier", m.Verifier)
	back.RawQuery = q.Encode()
	http.Redirect(w, r, back.String(), http.StatusFound)
}

func (m *OAuth1Provider) accessToken(w http.ResponseWriter, r *http.Request) {
	m.hit("/access_token")
	oauthParams, ok := m.verify(r, m.RequestSecret)
	if !ok || oauthParams["oauth_token"] != m.RequestToken || oauthParams["oauth_verifier"] != m.Verifier {
		http.Error(w, "bad token request", http.StatusUnauthorized)
		return
	}
	resp := url.Values{
		"oauth_token":        {m.AccessToken},
		"oauth_token_secret": {m.AccessSecret},
	}
	for k, vs := range m.TokenParams {
		resp[k] = vs
	}
	writeForm(w, resp)
}

func (m *OAuth1Provider) profile(w http.ResponseWriter, r *http.Request) {
	m.hit("/profile")
	oauthParams, ok := m.verify(r, m.AccessSecret)
	if !ok || oauthParams["oauth_token"] != m.AccessToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad signature"})
		return
	}
	m.mu.Lock()
	m.LastProfileQuery = r.URL.Query()
	m.mu.Unlock()
	if m.ProfileStatus != 0 {
		writeJSON(w, m.ProfileStatus, map[string]string{"error": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, m.Profile)
}

// verify checks r's OAuth signature against the consumer secret and
// tokenSecret, returning the parsed oauth_* header params.
func (m *OAuth1Provider) verify(r *http.Request, tokenSecret string) (map[string]string, bool) {
	oauthParams := ParseOAuthHeader(r.Header.Get("Authorization"))
	if oauthParams == nil || oauthParams["oauth_consumer_key"] != m.ConsumerKey {
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		return nil, false
	}

	params := url.Values{}
	for k, v := range oauthParams {
		if k != "oauth_signature" {
			params.Set(k, v)
		}
	}
	for k, vs := range r.PostForm {
		params[k] = append(params[k], vs...)
	}
	// Sign folds the query of the full URL in itself
	full := "http://" + r.Host + r.URL.RequestURI()
	want, err := oauth1.Sign(r.Method, full, params, m.ConsumerSecret, tokenSecret)
	if err != nil {
		return nil, false
	}
	return oauthParams, want == oauthParams["oauth_signature"]
}

// ParseOAuthHeader decodes an `OAuth k="v", ...` Authorization header.
// Returns nil when the header is not an OAuth header.
func ParseOAuthHeader(h string) map[string]string {
	rest, ok := strings.CutPrefix(h, "OAuth ")
	if !ok {
		return nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return nil
		}
		k, err1 := url.PathUnescape(k)
		v, err2 := url.PathUnescape(strings.Trim(v, `"`))
		if err1 != nil || err2 != nil {
			return nil
		}
		out[k] = v
	}
	return out
}

func writeForm(w http.ResponseWriter, v url.Values) {
	w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
	w.Write([]byte(v.Encode()))
}
