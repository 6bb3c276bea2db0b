// oauth2.go -- Authorization-code handshake.
package handshake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/MGallo-Code/ferry/internal/oauth"
	"github.com/MGallo-Code/ferry/internal/token"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// maxProfileBytes caps how much of a profile response is read into memory.
const maxProfileBytes = 1 << 20

// newOAuth2Config builds the exchange config for d. RedirectURL is filled per
// request; Scopes stays empty because scope is sent pre-joined with the
// descriptor's separator.
func newOAuth2Config(d *oauth.Descriptor) *oauth2.Config {
	style := oauth2.AuthStyleInParams
	if d.BasicAuth {
		style = oauth2.AuthStyleInHeader
	}
	return &oauth2.Config{
		ClientID:     d.ClientID,
		ClientSecret: d.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   d.AuthURL,
			TokenURL:  d.TokenURL,
			AuthStyle: style,
		},
	}
}

// exchangeConfig returns a copy of p's config bound to redirectURI.
func (p *provider) exchangeConfig(redirectURI string) *oauth2.Config {
	cfg := *p.exchange
	cfg.RedirectURL = redirectURI
	return &cfg
}

func (e *Engine) startOAuth2(p *provider, req Request) (*Result, error) {
	d := p.desc
	st, err := e.newState(p, req)
	if err != nil {
		return nil, err
	}
	cookie, err := e.stateCookie(p, req, st)
	if err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if scope := d.ScopeString(); scope != "" {
		opts = append(opts, oauth2.SetAuthURLParam("scope", scope))
	}
	for k, v := range d.AuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	return &Result{
		Redirect: p.exchangeConfig(req.RedirectURI).AuthCodeURL(st.Nonce, opts...),
		Cookies:  []*http.Cookie{cookie},
	}, nil
}

func (e *Engine) callbackOAuth2(ctx context.Context, p *provider, req Request, st token.State) (*Credentials, error) {
	d := p.desc
	q := req.Query

	if q.Has("error") {
		msg := q.Get("error_description")
		if msg == "" {
			msg = q.Get("error")
		}
		return nil, newError(KindCallbackDenied, d.Name, msg, nil)
	}
	if !secureEqual(q.Get("state"), st.Nonce) {
		return nil, newError(KindStateMismatch, d.Name, "state does not match transaction", nil)
	}
	code := q.Get("code")
	if code == "" {
		return nil, newError(KindUpstreamRejected, d.Name, "callback missing authorization code", nil)
	}
	if err := e.consume(ctx, p, st); err != nil {
		return nil, err
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.cfg.HTTPClient)
	var tok *oauth2.Token
	err := e.upstream(p, "token", func() (err error) {
		tok, err = p.exchangeConfig(req.RedirectURI).Exchange(ctx, code)
		return err
	})
	if err != nil {
		return nil, newError(KindTokenExchangeFailed, d.Name, "code exchange failed", err)
	}

	subject, err := e.verifyIDToken(ctx, p, tok)
	if err != nil {
		return nil, newError(KindTokenExchangeFailed, d.Name, "id token rejected", err)
	}

	var raw map[string]any
	err = e.upstream(p, "profile", func() (err error) {
		raw, err = e.fetchProfile(ctx, d, tok.AccessToken)
		return err
	})
	if err != nil {
		return nil, newError(KindProfileFetchFailed, d.Name, "profile request failed", err)
	}
	prof, err := oauth.Normalize(d, raw, nil)
	if err != nil {
		return nil, newError(KindProfileFetchFailed, d.Name, "profile unusable", err)
	}
	if subject != "" && subject != prof.ID {
		return nil, newError(KindProfileFetchFailed, d.Name, "profile does not match id token subject", nil)
	}

	creds := &Credentials{
		Provider: d.Name,
		Token:    tok.AccessToken,
		Query:    nonNilQuery(st.Query),
		Next:     st.Next,
		AppState: st.AppState,
		Profile:  prof,
	}
	if tok.RefreshToken != "" {
		rt := tok.RefreshToken
		creds.RefreshToken = &rt
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry
		creds.Expiry = &exp
	}
	return creds, nil
}

// fetchProfile requests d's profile endpoint with accessToken and decodes
// the JSON object it returns.
func (e *Engine) fetchProfile(ctx context.Context, d *oauth.Descriptor, accessToken string) (map[string]any, error) {
	target, extra := d.ProfileTarget(nil)
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing profile url: %w", err)
	}
	q := u.Query()
	for k, vs := range extra {
		q[k] = vs
	}
	if d.TokenParam != "" {
		q.Set(d.TokenParam, accessToken)
	}
	u.RawQuery = q.Encode()

	method := d.ProfileMethod
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building profile request: %w", err)
	}
	if d.TokenParam == "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting profile: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("profile endpoint responded %d", resp.StatusCode)
	}
	return decodeProfile(body)
}

// decodeProfile parses a JSON object, keeping numbers as json.Number so large
// numeric ids survive intact.
func decodeProfile(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	if raw == nil {
		return nil, errors.New("profile is not a json object")
	}
	return raw, nil
}

// verifyIDToken checks the id_token in tok when p has OIDC configured and
// returns its subject. Returns "" when there is nothing to verify.
func (e *Engine) verifyIDToken(ctx context.Context, p *provider, tok *oauth2.Token) (string, error) {
	if p.verifier == nil {
		return "", nil
	}
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return "", nil
	}
	idt, err := p.verifier.Verify(oidc.ClientContext(ctx, e.cfg.HTTPClient), raw)
	if err != nil {
		return "", err
	}
	return idt.Subject, nil
}

func nonNilQuery(q map[string][]string) url.Values {
	if q == nil {
		return url.Values{}
	}
	return url.Values(q)
}
