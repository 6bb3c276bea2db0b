// descriptor.go -- Provider descriptors: static, per-provider protocol configuration.
//
// A Descriptor is built once at startup, validated, and then shared read-only
// across every concurrent handshake. Nothing in it is mutated after Validate.
package oauth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Protocol selects which handshake a descriptor drives.
type Protocol int

const (
	OAuth1 Protocol = iota + 1
	OAuth2
)

// String returns "oauth1" or "oauth2".
func (p Protocol) String() string {
	switch p {
	case OAuth1:
		return "oauth1"
	case OAuth2:
		return "oauth2"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ErrInvalidDescriptor is wrapped by every Validate failure.
var ErrInvalidDescriptor = errors.New("invalid provider descriptor")

// ProfileFunc maps a provider's raw profile payload to a Profile.
// raw is nil when no profile was fetched (OAuth1 without extended profile);
// params holds the token endpoint's response params.
// Must not fail on missing optional fields.
type ProfileFunc func(raw map[string]any, params url.Values) (*Profile, error)

// ProfileRequestFunc builds the profile request URL and query when they depend
// on the token response (e.g. a user id the provider only returns there).
type ProfileRequestFunc func(profileURL string, params url.Values) (string, url.Values)

// OIDC enables ID-token verification for providers that return one.
type OIDC struct {
	Issuer  string
	JWKSURL string
}

// Descriptor describes one provider.
type Descriptor struct {
	// Name identifies the provider in URLs, cookies, and credentials.
	Name     string
	Protocol Protocol

	ClientID     string
	ClientSecret string

	// TemporaryURL is the OAuth1 temporary-credentials (request token) endpoint.
	TemporaryURL string
	AuthURL      string
	TokenURL     string
	ProfileURL   string

	// ProfileMethod defaults to GET.
	ProfileMethod string

	// ProfileRequest overrides how ProfileURL is turned into a request.
	ProfileRequest ProfileRequestFunc

	Scope []string

	// ScopeSeparator joins Scope; defaults to a single space.
	ScopeSeparator string

	// AuthParams are extra query params for the authorization redirect.
	AuthParams map[string]string

	// BasicAuth sends OAuth2 client credentials in an Authorization header
	// instead of the token request body.
	BasicAuth bool

	// TokenParam, when set, passes the OAuth2 access token to the profile
	// endpoint as this query param instead of a bearer header.
	TokenParam string

	// ExtendedProfile makes OAuth1 handshakes fetch ProfileURL after the token
	// exchange. When false only the token response params are normalized.
	ExtendedProfile bool

	// OIDC, when set, verifies an id_token in the OAuth2 token response.
	OIDC *OIDC

	Profile ProfileFunc
}

// Validate reports whether d is usable. Errors wrap ErrInvalidDescriptor.
func (d *Descriptor) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil descriptor", ErrInvalidDescriptor)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDescriptor, d.Name, fmt.Sprintf(format, args...))
	}

	if d.Protocol != OAuth1 && d.Protocol != OAuth2 {
		return invalid("unknown protocol %s", d.Protocol)
	}
	if d.ClientID == "" {
		return invalid("client id is required")
	}
	if d.ClientSecret == "" {
		return invalid("client secret is required")
	}
	if d.Profile == nil {
		return invalid("profile mapping is required")
	}

	urls := map[string]string{"auth url": d.AuthURL, "token url": d.TokenURL}
	if d.Protocol == OAuth1 {
		urls["temporary url"] = d.TemporaryURL
	}
	if d.Protocol == OAuth2 || d.ExtendedProfile {
		urls["profile url"] = d.ProfileURL
	}
	for label, raw := range urls {
		if err := checkAbsolute(raw); err != nil {
			return invalid("%s: %v", label, err)
		}
	}

	if d.OIDC != nil {
		if d.Protocol != OAuth2 {
			return invalid("oidc requires oauth2")
		}
		if d.OIDC.Issuer == "" || d.OIDC.JWKSURL == "" {
			return invalid("oidc needs issuer and jwks url")
		}
	}
	return nil
}

// ScopeString joins Scope with ScopeSeparator.
func (d *Descriptor) ScopeString() string {
	sep := d.ScopeSeparator
	if sep == "" {
		sep = " "
	}
	return strings.Join(d.Scope, sep)
}

// ProfileTarget returns the URL and query for the profile request.
func (d *Descriptor) ProfileTarget(params url.Values) (string, url.Values) {
	if d.ProfileRequest != nil {
		return d.ProfileRequest(d.ProfileURL, params)
	}
	return d.ProfileURL, nil
}

func checkAbsolute(raw string) error {
	if raw == "" {
		return errors.New("missing")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) url", raw)
	}
	return nil
}
