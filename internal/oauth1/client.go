// client.go -- signed OAuth1 requests: temporary credentials, token exchange, resources.
package oauth1

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxResponseBytes caps how much of a provider response is read into memory.
const maxResponseBytes = 1 << 20

// ErrMissingCredentials is returned when a credentials response lacks
// oauth_token or oauth_token_secret.
var ErrMissingCredentials = errors.New("response missing oauth_token or oauth_token_secret")

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider responded %d: %s", e.Code, e.Body)
}

// Credentials is a token/secret pair: temporary or permanent.
type Credentials struct {
	Token  string
	Secret string
}

// Client signs requests with one consumer key/secret pair.
// Zero-value Now, Nonce, and HTTPClient fall back to defaults.
type Client struct {
	ConsumerKey    string
	ConsumerSecret string
	HTTPClient     *http.Client
	Now            func() time.Time
	Nonce          func() (string, error)
}

// RequestTemporaryCredentials obtains a request token signed with the consumer
// secret only. Returns the credentials plus every param the provider sent.
func (c *Client) RequestTemporaryCredentials(ctx context.Context, endpoint, callbackURL string) (*Credentials, url.Values, error) {
	body, err := c.do(ctx, http.MethodPost, endpoint, nil, nil, map[string]string{"oauth_callback": callbackURL})
	if err != nil {
		return nil, nil, err
	}
	return parseCredentials(body)
}

// RequestToken exchanges temporary credentials plus the user's verifier for
// permanent token credentials. Signed with both consumer and temporary secrets.
func (c *Client) RequestToken(ctx context.Context, endpoint string, temp Credentials, verifier string) (*Credentials, url.Values, error) {
	body, err := c.do(ctx, http.MethodPost, endpoint, nil, &temp, map[string]string{"oauth_verifier": verifier})
	if err != nil {
		return nil, nil, err
	}
	return parseCredentials(body)
}

// Get fetches a protected resource, signing with tok.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, tok Credentials) ([]byte, error) {
	return c.do(ctx, http.MethodGet, rawURL, params, &tok, nil)
}

// AuthorizationHeader builds the signed "OAuth ..." header value for a request.
// extra carries protocol params such as oauth_callback or oauth_verifier.
func (c *Client) AuthorizationHeader(method, rawURL string, params url.Values, tok *Credentials, extra map[string]string) (string, error) {
	nonce, err := c.nonce()
	if err != nil {
		return "", err
	}
	oauthParams := map[string]string{
		"oauth_consumer_key":     c.ConsumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": SignatureMethod,
		"oauth_timestamp":        strconv.FormatInt(c.now().Unix(), 10),
		"oauth_version":          "1.0",
	}
	tokenSecret := ""
	if tok != nil {
		oauthParams["oauth_token"] = tok.Token
		tokenSecret = tok.Secret
	}
	for k, v := range extra {
		oauthParams[k] = v
	}

	all := url.Values{}
	for k, vs := range params {
		all[k] = append([]string(nil), vs...)
	}
	for k, v := range oauthParams {
		all.Set(k, v)
	}
	sig, err := Sign(method, rawURL, all, c.ConsumerSecret, tokenSecret)
	if err != nil {
		return "", err
	}
	oauthParams["oauth_signature"] = sig

	keys := make([]string, 0, len(oauthParams))
	for k := range oauthParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = Encode(k) + `="` + Encode(oauthParams[k]) + `"`
	}
	return "OAuth " + strings.Join(parts, ", "), nil
}

// do signs and sends one request, returning the body of a 2xx response.
// GET params go in the query string, POST params in a form body.
func (c *Client) do(ctx context.Context, method, rawURL string, params url.Values, tok *Credentials, extra map[string]string) ([]byte, error) {
	auth, err := c.AuthorizationHeader(method, rawURL, params, tok, extra)
	if err != nil {
		return nil, fmt.Errorf("signing request: %w", err)
	}

	target := rawURL
	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			u, err := url.Parse(rawURL)
			if err != nil {
				return nil, fmt.Errorf("parsing url: %w", err)
			}
			q := u.Query()
			for k, vs := range params {
				for _, v := range vs {
					q.Add(k, v)
				}
			}
			u.RawQuery = q.Encode()
			target = u.String()
		}
	} else if len(params) > 0 {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", auth)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

// parseCredentials reads a form-encoded credentials response.
func parseCredentials(body []byte) (*Credentials, url.Values, error) {
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing credentials response: %w", err)
	}
	creds := &Credentials{Token: vals.Get("oauth_token"), Secret: vals.Get("oauth_token_secret")}
	if creds.Token == "" || creds.Secret == "" {
		return nil, vals, ErrMissingCredentials
	}
	return creds, vals, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) nonce() (string, error) {
	if c.Nonce != nil {
		return c.Nonce()
	}
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("generating nonce with rand: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b[:]), nil
}
