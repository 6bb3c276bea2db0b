// live.go -- Windows Live (OAuth2).
package oauth

import (
	"net/url"

	"golang.org/x/oauth2/microsoft"
)

// Live returns the Windows Live descriptor.
func Live(o Options) *Descriptor {
	return &Descriptor{
		Name:         "live",
		Protocol:     OAuth2,
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		AuthURL:      microsoft.LiveConnectEndpoint.AuthURL,
		TokenURL:     microsoft.LiveConnectEndpoint.TokenURL,
		ProfileURL:   "https://apis.live.net/v5.0/me",
		Scope:        o.scope("wl.basic", "wl.emails"),
		Profile:      liveProfile,
	}
}

// liveProfile prefers emails.preferred over emails.account.
// An empty emails object yields no email.
func liveProfile(raw map[string]any, _ url.Values) (*Profile, error) {
	return &Profile{
		ID:          idOf(Str(raw, "id")),
		Username:    Str(raw, "username"),
		DisplayName: Str(raw, "name"),
		Name:        NameOf(Str(raw, "first_name"), nil, Str(raw, "last_name")),
		Email:       FirstOf(Str(raw, "emails", "preferred"), Str(raw, "emails", "account")),
		Raw:         raw,
	}, nil
}
