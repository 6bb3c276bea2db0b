// builtin.go -- Registry of built-in provider descriptors.
// Adding a new provider: write a constructor returning *Descriptor and list it in builtins.
package oauth

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownProvider is returned by Builtin for names not in the registry.
var ErrUnknownProvider = errors.New("unknown provider")

// Options customizes a built-in descriptor.
type Options struct {
	ClientID     string
	ClientSecret string

	// URI replaces the provider's base URI (self-hosted deployments).
	// Only providers that support it read this.
	URI string

	// Scope replaces the default scope when non-nil.
	Scope []string

	// ExtendedProfile toggles the OAuth1 profile fetch; nil keeps the default (on).
	ExtendedProfile *bool
}

func (o Options) extended() bool {
	return o.ExtendedProfile == nil || *o.ExtendedProfile
}

func (o Options) scope(def ...string) []string {
	if o.Scope != nil {
		return o.Scope
	}
	return def
}

var builtins = map[string]func(Options) *Descriptor{
	"bitbucket":  Bitbucket,
	"dropbox":    Dropbox,
	"facebook":   Facebook,
	"foursquare": Foursquare,
	"github":     GitHub,
	"google":     Google,
	"live":       Live,
	"twitter":    Twitter,
	"yahoo":      Yahoo,
}

// Builtin returns the named built-in descriptor configured with o.
// The descriptor is not validated; callers validate after applying overrides.
func Builtin(name string, o Options) (*Descriptor, error) {
	build, ok := builtins[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return build(o), nil
}

// BuiltinNames lists the registry in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
