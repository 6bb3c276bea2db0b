// bitbucket.go -- Bitbucket Cloud (OAuth2).
package oauth

import (
	"net/url"

	"golang.org/x/oauth2/endpoints"
)

// Bitbucket returns the Bitbucket descriptor. Bitbucket expects client
// credentials via HTTP basic auth on the token endpoint.
func Bitbucket(o Options) *Descriptor {
	return &Descriptor{
		Name:         "bitbucket",
		Protocol:     OAuth2,
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		AuthURL:      endpoints.Bitbucket.AuthURL,
		TokenURL:     endpoints.Bitbucket.TokenURL,
		ProfileURL:   "https://api.bitbucket.org/2.0/user",
		Scope:        o.scope("account"),
		BasicAuth:    true,
		Profile:      bitbucketProfile,
	}
}

func bitbucketProfile(raw map[string]any, _ url.Values) (*Profile, error) {
	return &Profile{
		ID:          idOf(FirstOf(Str(raw, "uuid"), Str(raw, "account_id"))),
		Username:    Str(raw, "username"),
		DisplayName: Str(raw, "display_name"),
		Raw:         raw,
	}, nil
}
