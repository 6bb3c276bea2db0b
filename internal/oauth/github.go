// github.go -- GitHub (OAuth2), with optional self-hosted base URI.
package oauth

import (
	"net/url"
	"strings"

	"golang.org/x/oauth2/endpoints"
)

// GitHub returns the GitHub descriptor. Options.URI points it at a
// self-hosted instance: <uri>/login/oauth/* for auth, <uri>/user for the profile.
func GitHub(o Options) *Descriptor {
	d := &Descriptor{
		Name:           "github",
		Protocol:       OAuth2,
		ClientID:       o.ClientID,
		ClientSecret:   o.ClientSecret,
		AuthURL:        endpoints.GitHub.AuthURL,
		TokenURL:       endpoints.GitHub.TokenURL,
		ProfileURL:     "https://api.github.com/user",
		Scope:          o.scope("user:email"),
		ScopeSeparator: ",",
		Profile:        githubProfile,
	}
	if o.URI != "" {
		base := strings.TrimRight(o.URI, "/")
		d.AuthURL = base + "/login/oauth/authorize"
		d.TokenURL = base + "/login/oauth/access_token"
		d.ProfileURL = base + "/user"
	}
	return d
}

func githubProfile(raw map[string]any, _ url.Values) (*Profile, error) {
	return &Profile{
		ID:          idOf(Str(raw, "id")),
		Username:    Str(raw, "login"),
		DisplayName: Str(raw, "name"),
		Email:       Str(raw, "email"),
		Raw:         raw,
	}, nil
}
