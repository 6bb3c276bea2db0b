// yahoo.go -- Yahoo (OAuth1).
package oauth

import (
	"net/url"
	"strings"
)

// Yahoo returns the Yahoo descriptor. The profile URL embeds the guid the
// token endpoint returns as xoauth_yahoo_guid.
func Yahoo(o Options) *Descriptor {
	return &Descriptor{
		Name:            "yahoo",
		Protocol:        OAuth1,
		ClientID:        o.ClientID,
		ClientSecret:    o.ClientSecret,
		TemporaryURL:    "https://api.login.yahoo.com/oauth/v2/get_request_token",
		AuthURL:         "https://api.login.yahoo.com/oauth/v2/request_auth",
		TokenURL:        "https://api.login.yahoo.com/oauth/v2/get_token",
		ProfileURL:      "https://social.yahooapis.com/v1/user/",
		ProfileRequest:  yahooProfileRequest,
		ExtendedProfile: o.extended(),
		Profile:         yahooProfile,
	}
}

func yahooProfileRequest(profileURL string, params url.Values) (string, url.Values) {
	base := strings.TrimRight(profileURL, "/")
	return base + "/" + url.PathEscape(params.Get("xoauth_yahoo_guid")) + "/profile", url.Values{"format": {"json"}}
}

func yahooProfile(raw map[string]any, params url.Values) (*Profile, error) {
	if raw == nil {
		return &Profile{ID: idOf(Param(params, "xoauth_yahoo_guid"))}, nil
	}
	first := Str(raw, "profile", "givenName")
	last := Str(raw, "profile", "familyName")
	return &Profile{
		ID:          idOf(FirstOf(Str(raw, "profile", "guid"), Param(params, "xoauth_yahoo_guid"))),
		DisplayName: JoinNonNil(" ", first, last),
		Name:        NameOf(first, nil, last),
		Raw:         raw,
	}, nil
}
