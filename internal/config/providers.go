// providers.go

// YAML provider list: which built-in providers are enabled and with what
// credentials and overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/MGallo-Code/ferry/internal/oauth"
	"gopkg.in/yaml.v3"
)

// ProviderEntry is one item under `providers:`.
//
//	providers:
//	  - name: github
//	    client_id: ${GITHUB_CLIENT_ID}
//	    client_secret: ${GITHUB_CLIENT_SECRET}
//	  - name: ghe
//	    builtin: github
//	    uri: https://github.example.com
type ProviderEntry struct {
	// Name is the URL/cookie name. Also the built-in to use unless Builtin is set.
	Name    string `yaml:"name"`
	Builtin string `yaml:"builtin"`

	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	URI             string   `yaml:"uri"`
	Scope           []string `yaml:"scope"`
	ExtendedProfile *bool    `yaml:"extended_profile"`

	// Endpoint overrides, mostly for staging or mock providers.
	TemporaryURL string `yaml:"temporary_url"`
	AuthURL      string `yaml:"auth_url"`
	TokenURL     string `yaml:"token_url"`
	ProfileURL   string `yaml:"profile_url"`
}

type providerFile struct {
	Providers []ProviderEntry `yaml:"providers"`
}

// LoadProviders reads path and returns one validated descriptor per entry.
func LoadProviders(path string) ([]*oauth.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading providers file: %w", err)
	}
	return ParseProviders(data)
}

// envRef matches a ${NAME} reference. Bare $NAME is left alone.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ParseProviders decodes a providers document. ${VAR} references in string
// values are expanded from the environment after decoding, so secrets can stay
// out of the file and expanded values are never re-read as YAML.
// Unknown keys and unset variables are rejected.
func ParseProviders(data []byte) ([]*oauth.Descriptor, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f providerFile
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing providers file: %w", err)
	}
	if len(f.Providers) == 0 {
		return nil, errors.New("providers file lists no providers")
	}

	descs := make([]*oauth.Descriptor, 0, len(f.Providers))
	seen := make(map[string]bool, len(f.Providers))
	for i, e := range f.Providers {
		if err := e.expandEnv(); err != nil {
			return nil, fmt.Errorf("provider %d (%s): %w", i, e.Name, err)
		}
		d, err := e.Descriptor()
		if err != nil {
			return nil, fmt.Errorf("provider %d (%s): %w", i, e.Name, err)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("provider %d: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
		descs = append(descs, d)
	}
	return descs, nil
}

// Descriptor builds and validates the descriptor for e.
func (e ProviderEntry) Descriptor() (*oauth.Descriptor, error) {
	if e.Name == "" {
		return nil, errors.New("name is required")
	}
	builtin := e.Builtin
	if builtin == "" {
		builtin = e.Name
	}
	d, err := oauth.Builtin(builtin, oauth.Options{
		ClientID:        e.ClientID,
		ClientSecret:    e.ClientSecret,
		URI:             e.URI,
		Scope:           e.Scope,
		ExtendedProfile: e.ExtendedProfile,
	})
	if err != nil {
		return nil, err
	}

	d.Name = e.Name
	for dst, v := range map[*string]string{
		&d.TemporaryURL: e.TemporaryURL,
		&d.AuthURL:      e.AuthURL,
		&d.TokenURL:     e.TokenURL,
		&d.ProfileURL:   e.ProfileURL,
	} {
		if v != "" {
			*dst = v
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// expandEnv replaces ${NAME} references in every string field of e.
func (e *ProviderEntry) expandEnv() error {
	fields := []*string{
		&e.Name, &e.Builtin, &e.ClientID, &e.ClientSecret, &e.URI,
		&e.TemporaryURL, &e.AuthURL, &e.TokenURL, &e.ProfileURL,
	}
	for i := range e.Scope {
		fields = append(fields, &e.Scope[i])
	}
	for _, f := range fields {
		v, err := expandRefs(*f)
		if err != nil {
			return err
		}
		*f = v
	}
	return nil
}

// expandRefs substitutes ${NAME} with its environment value.
// A reference to an unset variable is an error.
func expandRefs(s string) (string, error) {
	var missing string
	out := envRef.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRef.FindStringSubmatch(ref)[1]
		v, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("environment variable %s is not set", missing)
	}
	return out, nil
}
