// facebook.go -- Facebook Graph API (OAuth2).
package oauth

import (
	"net/url"

	"golang.org/x/oauth2/endpoints"
)

// Facebook returns the Facebook descriptor.
func Facebook(o Options) *Descriptor {
	return &Descriptor{
		Name:         "facebook",
		Protocol:     OAuth2,
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		AuthURL:      endpoints.Facebook.AuthURL,
		TokenURL:     endpoints.Facebook.TokenURL,
		ProfileURL:   "https://graph.facebook.com/me",
		Scope:        o.scope("email"),
		Profile:      facebookProfile,
	}
}

func facebookProfile(raw map[string]any, _ url.Values) (*Profile, error) {
	return &Profile{
		ID:          idOf(Str(raw, "id")),
		Username:    Str(raw, "username"),
		DisplayName: Str(raw, "name"),
		Name:        NameOf(Str(raw, "first_name"), Str(raw, "middle_name"), Str(raw, "last_name")),
		Email:       Str(raw, "email"),
		Raw:         raw,
	}, nil
}
