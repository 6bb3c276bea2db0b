// twitter.go -- Twitter (OAuth1).
package oauth

import (
	"net/url"
)

// Twitter returns the Twitter descriptor. The id and screen name come back
// in the access token response; the extended profile adds the display name.
func Twitter(o Options) *Descriptor {
	return &Descriptor{
		Name:            "twitter",
		Protocol:        OAuth1,
		ClientID:        o.ClientID,
		ClientSecret:    o.ClientSecret,
		TemporaryURL:    "https://api.twitter.com/oauth/request_token",
		AuthURL:         "https://api.twitter.com/oauth/authenticate",
		TokenURL:        "https://api.twitter.com/oauth/access_token",
		ProfileURL:      "https://api.twitter.com/1.1/users/show.json",
		ProfileRequest:  twitterProfileRequest,
		ExtendedProfile: o.extended(),
		Profile:         twitterProfile,
	}
}

func twitterProfileRequest(profileURL string, params url.Values) (string, url.Values) {
	return profileURL, url.Values{"user_id": {params.Get("user_id")}}
}

func twitterProfile(raw map[string]any, params url.Values) (*Profile, error) {
	p := &Profile{
		ID:       idOf(Param(params, "user_id")),
		Username: Param(params, "screen_name"),
	}
	if raw != nil {
		p.DisplayName = Str(raw, "name")
		p.Raw = raw
	}
	return p, nil
}
