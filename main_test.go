// main_test.go
//
// Level 3 smoke tests
// Boots run() against httptest providers with the in-memory replay guard and
// no audit database. Exercises chi wiring, real cookies, and redirects across
// both handshake protocols.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MGallo-Code/ferry/internal/config"
	"github.com/MGallo-Code/ferry/internal/testutil"
)

// --- Smoke helpers ---

// smokeProviders holds the mock upstreams a smoke server is configured against.
type smokeProviders struct {
	facebook *testutil.OAuth2Provider
	twitter  *testutil.OAuth1Provider
}

// newSmokeProviders starts one OAuth2 and one OAuth1 mock provider.
func newSmokeProviders(t *testing.T) *smokeProviders {
	t.Helper()
	fb := testutil.NewOAuth2Provider(t)
	fb.Profile = map[string]any{"id": "1234", "name": "Steve Smith", "email": "steve@example.com"}
	return &smokeProviders{facebook: fb, twitter: testutil.NewOAuth1Provider(t)}
}

// writeProvidersFile writes a providers.yaml pointing the builtins at the mocks.
func (p *smokeProviders) writeProvidersFile(t *testing.T) string {
	t.Helper()
	yml := fmt.Sprintf(`providers:
  - name: facebook
    client_id: %s
    client_secret: %s
    auth_url: %s/authorize
    token_url: %s/token
    profile_url: %s/me
  - name: twitter
    client_id: %s
    client_secret: %s
    extended_profile: true
    temporary_url: %s/request_token
    auth_url: %s/authorize
    token_url: %s/access_token
    profile_url: %s/profile
`,
		p.facebook.ClientID, p.facebook.ClientSecret,
		p.facebook.Server.URL, p.facebook.Server.URL, p.facebook.Server.URL,
		p.twitter.ConsumerKey, p.twitter.ConsumerSecret,
		p.twitter.Server.URL, p.twitter.Server.URL, p.twitter.Server.URL, p.twitter.Server.URL,
	)
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("writing providers file: %v", err)
	}
	return path
}

// smokeConfig returns a config with no Redis and no Postgres.
func smokeConfig(providersFile string) *config.Config {
	return &config.Config{
		Port:           "0", // OS picks a free port
		LogLevel:       slog.LevelWarn,
		CookiePassword: testutil.CookiePassword,
		CookieSecure:   false,
		TokenTTL:       10 * time.Minute,
		HTTPTimeout:    5 * time.Second,
		AuditRetention: time.Hour,
		ProvidersFile:  providersFile,
	}
}

// startServer runs run() until the test ends and returns its base URL.
// Fatals if the server fails to start.
func startServer(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	runErr := make(chan error, 1)

	go func() {
		runErr <- run(ctx, cfg, ready)
	}()

	select {
	case addr := <-ready:
		t.Cleanup(func() {
			cancel()
			// Wait for run() so deferred closes complete before the next test.
			if err := <-runErr; err != nil {
				t.Errorf("run: %v", err)
			}
		})
		return addr
	case err := <-runErr:
		cancel()
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}
	return ""
}

// noRedirectClient returns a client that surfaces 3xx responses instead of following them.
func noRedirectClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// step issues a GET with cookies and returns the response with its body read.
func step(t *testing.T, c *http.Client, target string, cookies []*http.Cookie) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		t.Fatalf("building request for %s: %v", target, err)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", target, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", target, err)
	}
	return resp, body
}

// beginLogin starts a handshake and plays the provider leg, returning the
// callback URL the provider sent the user back to and the transaction cookie.
func beginLogin(t *testing.T, c *http.Client, base, path string) (string, *http.Cookie) {
	t.Helper()
	resp, _ := step(t, c, base+path, nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("start: expected 302, got %d", resp.StatusCode)
	}
	var tx *http.Cookie
	for _, ck := range resp.Cookies() {
		if strings.HasPrefix(ck.Name, "ferry-") {
			tx = ck
		}
	}
	if tx == nil {
		t.Fatal("start: no transaction cookie set")
	}

	resp, _ = step(t, c, resp.Header.Get("Location"), nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("provider authorize: expected 302, got %d", resp.StatusCode)
	}
	return resp.Header.Get("Location"), tx
}

// credentialsBody mirrors the JSON credentials response.
type credentialsBody struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
	Secret   string `json:"secret"`
	Next     string `json:"next"`
	AppState string `json:"appState"`
	Profile  struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	} `json:"profile"`
}

// --- Smoke tests ---

func TestSmoke_OAuth2Login(t *testing.T) {
	p := newSmokeProviders(t)
	base := startServer(t, smokeConfig(p.writeProvidersFile(t)))
	c := noRedirectClient()

	callback, tx := beginLogin(t, c, base, "/login/facebook?next=/dashboard&state=app-123")
	if !strings.HasPrefix(callback, base+"/login/facebook?") {
		t.Fatalf("provider redirected to %q, want the facebook callback", callback)
	}

	resp, body := step(t, c, callback, []*http.Cookie{tx})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var creds credentialsBody
	if err := json.Unmarshal(body, &creds); err != nil {
		t.Fatalf("decoding credentials: %v", err)
	}
	if creds.Provider != "facebook" || creds.Token != p.facebook.AccessToken {
		t.Errorf("provider/token = %q/%q", creds.Provider, creds.Token)
	}
	if creds.Profile.ID != "1234" || creds.Profile.Email != "steve@example.com" {
		t.Errorf("profile = %+v", creds.Profile)
	}
	if creds.Next != "/dashboard" || creds.AppState != "app-123" {
		t.Errorf("next/appState = %q/%q", creds.Next, creds.AppState)
	}
	if p.facebook.LastRedirectURI != base+"/login/facebook" {
		t.Errorf("token exchange redirect_uri = %q", p.facebook.LastRedirectURI)
	}

	cleared := false
	for _, ck := range resp.Cookies() {
		if ck.Name == tx.Name && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("callback did not clear the transaction cookie")
	}
}

func TestSmoke_OAuth1Login(t *testing.T) {
	p := newSmokeProviders(t)
	base := startServer(t, smokeConfig(p.writeProvidersFile(t)))
	c := noRedirectClient()

	callback, tx := beginLogin(t, c, base, "/login/twitter")
	resp, body := step(t, c, callback, []*http.Cookie{tx})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback: expected 200, got %d: %s", resp.StatusCode, body)
	}
	var creds credentialsBody
	if err := json.Unmarshal(body, &creds); err != nil {
		t.Fatalf("decoding credentials: %v", err)
	}
	if creds.Token != p.twitter.AccessToken || creds.Secret != p.twitter.AccessSecret {
		t.Errorf("token/secret = %q/%q", creds.Token, creds.Secret)
	}
	if creds.Profile.ID != "1234" || creds.Profile.Username != "Steve Stevens" || creds.Profile.DisplayName != "Steve" {
		t.Errorf("profile = %+v", creds.Profile)
	}
	if got := p.twitter.LastProfileQuery.Get("user_id"); got != "1234" {
		t.Errorf("profile request user_id = %q", got)
	}
}

func TestSmoke_CallbackReplayRejected(t *testing.T) {
	p := newSmokeProviders(t)
	base := startServer(t, smokeConfig(p.writeProvidersFile(t)))
	c := noRedirectClient()

	callback, tx := beginLogin(t, c, base, "/login/facebook")
	if resp, body := step(t, c, callback, []*http.Cookie{tx}); resp.StatusCode != http.StatusOK {
		t.Fatalf("first callback: expected 200, got %d: %s", resp.StatusCode, body)
	}
	tokenCalls := p.facebook.Hits("/token")

	resp, _ := step(t, c, callback, []*http.Cookie{tx})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("replayed callback: expected 400, got %d", resp.StatusCode)
	}
	if got := p.facebook.Hits("/token"); got != tokenCalls {
		t.Errorf("replay reached the token endpoint (%d calls, want %d)", got, tokenCalls)
	}
}

func TestSmoke_CallbackWithoutCookie(t *testing.T) {
	p := newSmokeProviders(t)
	base := startServer(t, smokeConfig(p.writeProvidersFile(t)))
	c := noRedirectClient()

	callback, _ := beginLogin(t, c, base, "/login/facebook")
	resp, _ := step(t, c, callback, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if p.facebook.Hits("/token") != 0 {
		t.Error("token endpoint called without a transaction cookie")
	}
}

func TestSmoke_ProviderDenied(t *testing.T) {
	p := newSmokeProviders(t)
	base := startServer(t, smokeConfig(p.writeProvidersFile(t)))
	c := noRedirectClient()

	_, tx := beginLogin(t, c, base, "/login/facebook")
	q := url.Values{"error": {"access_denied"}, "error_description": {"user said no"}}
	resp, _ := step(t, c, base+"/login/facebook?"+q.Encode(), []*http.Cookie{tx})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
}

func TestSmoke_UnknownProvider(t *testing.T) {
	p := newSmokeProviders(t)
	base := startServer(t, smokeConfig(p.writeProvidersFile(t)))

	resp, _ := step(t, noRedirectClient(), base+"/login/myspace", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSmoke_HealthAndMetrics(t *testing.T) {
	p := newSmokeProviders(t)
	base := startServer(t, smokeConfig(p.writeProvidersFile(t)))
	c := noRedirectClient()

	resp, body := step(t, c, base+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.StatusCode)
	}
	var health map[string]string
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if health["redis"] != "disabled" || health["postgres"] != "disabled" {
		t.Errorf("health = %v, want both disabled", health)
	}
	if resp.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("health missing Cache-Control: no-store")
	}

	// One start so the handshake counter has a sample.
	step(t, c, base+"/login/facebook", nil)

	resp, body = step(t, c, base+"/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "ferry_handshakes_total") {
		t.Error("metrics output missing ferry_handshakes_total")
	}
}

func TestRun_BadProvidersFile(t *testing.T) {
	cfg := smokeConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	err := run(context.Background(), cfg, nil)
	if err == nil {
		t.Fatal("expected error for missing providers file")
	}
}
