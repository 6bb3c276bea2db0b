// oauth1.go -- Three-legged OAuth 1.0a handshake.
package handshake

import (
	"context"
	"net/http"
	"net/url"

	"github.com/MGallo-Code/ferry/internal/oauth"
	"github.com/MGallo-Code/ferry/internal/oauth1"
	"github.com/MGallo-Code/ferry/internal/token"
)

func (e *Engine) startOAuth1(ctx context.Context, p *provider, req Request) (*Result, error) {
	d := p.desc

	var temp *oauth1.Credentials
	err := e.upstream(p, "temporary", func() (err error) {
		temp, _, err = p.signer.RequestTemporaryCredentials(ctx, d.TemporaryURL, req.RedirectURI)
		return err
	})
	if err != nil {
		return nil, newError(KindUpstreamRejected, d.Name, "request token refused", err)
	}

	st, err := e.newState(p, req)
	if err != nil {
		return nil, err
	}
	st.Token = temp.Token
	st.TokenSecret = temp.Secret
	cookie, err := e.stateCookie(p, req, st)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(d.AuthURL)
	if err != nil {
		return nil, newError(KindConfiguration, d.Name, "auth url", err)
	}
	q := u.Query()
	for k, v := range d.AuthParams {
		q.Set(k, v)
	}
	q.Set("oauth_token", temp.Token)
	u.RawQuery = q.Encode()

	return &Result{Redirect: u.String(), Cookies: []*http.Cookie{cookie}}, nil
}

func (e *Engine) callbackOAuth1(ctx context.Context, p *provider, req Request, st token.State) (*Credentials, error) {
	d := p.desc
	q := req.Query

	if q.Has("denied") {
		return nil, newError(KindCallbackDenied, d.Name, "user denied access", nil)
	}
	if st.Token == "" || st.TokenSecret == "" {
		return nil, newError(KindMalformedToken, d.Name, "transaction token carries no request token", nil)
	}
	if !secureEqual(q.Get("oauth_token"), st.Token) {
		return nil, newError(KindStateMismatch, d.Name, "oauth_token does not match transaction", nil)
	}
	verifier := q.Get("oauth_verifier")
	if verifier == "" {
		return nil, newError(KindCallbackDenied, d.Name, "callback missing oauth_verifier", nil)
	}
	if err := e.consume(ctx, p, st); err != nil {
		return nil, err
	}

	var (
		perm   *oauth1.Credentials
		params url.Values
	)
	err := e.upstream(p, "token", func() (err error) {
		perm, params, err = p.signer.RequestToken(ctx, d.TokenURL, oauth1.Credentials{Token: st.Token, Secret: st.TokenSecret}, verifier)
		return err
	})
	if err != nil {
		return nil, newError(KindTokenExchangeFailed, d.Name, "access token exchange failed", err)
	}

	var raw map[string]any
	if d.ExtendedProfile {
		target, extra := d.ProfileTarget(params)
		err := e.upstream(p, "profile", func() error {
			body, err := p.signer.Get(ctx, target, extra, *perm)
			if err != nil {
				return err
			}
			raw, err = decodeProfile(body)
			return err
		})
		if err != nil {
			return nil, newError(KindProfileFetchFailed, d.Name, "profile request failed", err)
		}
	}

	prof, err := oauth.Normalize(d, raw, params)
	if err != nil {
		return nil, newError(KindProfileFetchFailed, d.Name, "profile unusable", err)
	}

	secret := perm.Secret
	return &Credentials{
		Provider: d.Name,
		Token:    perm.Token,
		Secret:   &secret,
		Query:    nonNilQuery(st.Query),
		Next:     st.Next,
		AppState: st.AppState,
		Profile:  prof,
	}, nil
}
