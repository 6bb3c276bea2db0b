// dropbox.go -- Dropbox (OAuth2).
package oauth

import (
	"net/http"
	"net/url"

	"golang.org/x/oauth2/endpoints"
)

// Dropbox returns the Dropbox descriptor. The account endpoint is an RPC
// call and only accepts POST.
func Dropbox(o Options) *Descriptor {
	return &Descriptor{
		Name:          "dropbox",
		Protocol:      OAuth2,
		ClientID:      o.ClientID,
		ClientSecret:  o.ClientSecret,
		AuthURL:       endpoints.Dropbox.AuthURL,
		TokenURL:      endpoints.Dropbox.TokenURL,
		ProfileURL:    "https://api.dropboxapi.com/2/users/get_current_account",
		ProfileMethod: http.MethodPost,
		Scope:         o.scope(),
		Profile:       dropboxProfile,
	}
}

func dropboxProfile(raw map[string]any, _ url.Values) (*Profile, error) {
	return &Profile{
		ID:          idOf(Str(raw, "account_id")),
		DisplayName: Str(raw, "name", "display_name"),
		Name:        NameOf(Str(raw, "name", "given_name"), nil, Str(raw, "name", "surname")),
		Email:       Str(raw, "email"),
		Raw:         raw,
	}, nil
}
