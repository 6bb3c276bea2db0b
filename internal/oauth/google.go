// google.go -- Google (OAuth2 + OIDC).
package oauth

import (
	"net/url"

	"golang.org/x/oauth2/endpoints"
)

// Google returns the Google descriptor. Requests the openid scope so the
// token response carries an id_token, which handshakes verify against
// Google's JWKS before trusting the profile.
func Google(o Options) *Descriptor {
	return &Descriptor{
		Name:         "google",
		Protocol:     OAuth2,
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		AuthURL:      endpoints.Google.AuthURL,
		TokenURL:     endpoints.Google.TokenURL,
		ProfileURL:   "https://www.googleapis.com/oauth2/v1/userinfo",
		Scope:        o.scope("openid", "email", "profile"),
		AuthParams:   map[string]string{"access_type": "offline"},
		OIDC: &OIDC{
			Issuer:  "https://accounts.google.com",
			JWKSURL: "https://www.googleapis.com/oauth2/v3/certs",
		},
		Profile: googleProfile,
	}
}

func googleProfile(raw map[string]any, _ url.Values) (*Profile, error) {
	return &Profile{
		ID:          idOf(Str(raw, "id")),
		Username:    Str(raw, "username"),
		DisplayName: Str(raw, "name"),
		Name:        NameOf(Str(raw, "given_name"), nil, Str(raw, "family_name")),
		Email:       Str(raw, "email"),
		Raw:         raw,
	}, nil
}
