// foursquare.go -- Foursquare (OAuth2).
package oauth

import (
	"net/url"

	"golang.org/x/oauth2/endpoints"
)

// foursquareAPIVersion pins the response format of the v2 API.
const foursquareAPIVersion = "20140101"

// Foursquare returns the Foursquare descriptor. The v2 API takes the access
// token as an oauth_token query param, not a bearer header.
func Foursquare(o Options) *Descriptor {
	return &Descriptor{
		Name:         "foursquare",
		Protocol:     OAuth2,
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		AuthURL:      endpoints.Foursquare.AuthURL,
		TokenURL:     endpoints.Foursquare.TokenURL,
		ProfileURL:   "https://api.foursquare.com/v2/users/self",
		ProfileRequest: func(profileURL string, _ url.Values) (string, url.Values) {
			return profileURL, url.Values{"v": {foursquareAPIVersion}}
		},
		TokenParam: "oauth_token",
		Scope:      o.scope(),
		Profile:    foursquareProfile,
	}
}

func foursquareProfile(raw map[string]any, _ url.Values) (*Profile, error) {
	first := Str(raw, "response", "user", "firstName")
	last := Str(raw, "response", "user", "lastName")
	return &Profile{
		ID:          idOf(Str(raw, "response", "user", "id")),
		DisplayName: JoinNonNil(" ", first, last),
		Name:        NameOf(first, nil, last),
		Email:       Str(raw, "response", "user", "contact", "email"),
		Raw:         raw,
	}, nil
}
