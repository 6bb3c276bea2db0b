// descriptor_test.go -- Validate, Builtin, and scope handling.
package oauth

import (
	"errors"
	"strings"
	"testing"
)

func validOAuth2() *Descriptor {
	return Facebook(Options{ClientID: "id", ClientSecret: "secret"})
}

func TestDescriptor_Validate(t *testing.T) {
	t.Run("every builtin validates with credentials", func(t *testing.T) {
		for _, name := range BuiltinNames() {
			d, err := Builtin(name, Options{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("Builtin(%q) failed: %v", name, err)
			}
			if err := d.Validate(); err != nil {
				t.Errorf("%s: Validate failed: %v", name, err)
			}
		}
	})

	cases := []struct {
		name   string
		mutate func(d *Descriptor)
		want   string
	}{
		{"missing name", func(d *Descriptor) { d.Name = "" }, "name is required"},
		{"bad protocol", func(d *Descriptor) { d.Protocol = 0 }, "unknown protocol"},
		{"missing client id", func(d *Descriptor) { d.ClientID = "" }, "client id"},
		{"missing client secret", func(d *Descriptor) { d.ClientSecret = "" }, "client secret"},
		{"missing mapping", func(d *Descriptor) { d.Profile = nil }, "profile mapping"},
		{"relative auth url", func(d *Descriptor) { d.AuthURL = "/oauth" }, "auth url"},
		{"missing token url", func(d *Descriptor) { d.TokenURL = "" }, "token url"},
		{"missing profile url", func(d *Descriptor) { d.ProfileURL = "" }, "profile url"},
		{"oidc without jwks", func(d *Descriptor) { d.OIDC = &OIDC{Issuer: "https://issuer"} }, "oidc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d := validOAuth2()
			c.mutate(d)
			err := d.Validate()
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q: expected to mention %q", err.Error(), c.want)
			}
		})
	}

	t.Run("oauth1 requires temporary url", func(t *testing.T) {
		d := Twitter(Options{ClientID: "id", ClientSecret: "secret"})
		d.TemporaryURL = ""
		if err := d.Validate(); !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("expected ErrInvalidDescriptor, got %v", err)
		}
	})

	t.Run("oauth1 without extended profile needs no profile url", func(t *testing.T) {
		off := false
		d := Twitter(Options{ClientID: "id", ClientSecret: "secret", ExtendedProfile: &off})
		d.ProfileURL = ""
		if err := d.Validate(); err != nil {
			t.Errorf("Validate failed: %v", err)
		}
	})

	t.Run("nil descriptor", func(t *testing.T) {
		var d *Descriptor
		if err := d.Validate(); !errors.Is(err, ErrInvalidDescriptor) {
			t.Errorf("expected ErrInvalidDescriptor, got %v", err)
		}
	})
}

func TestBuiltin(t *testing.T) {
	t.Run("unknown name", func(t *testing.T) {
		_, err := Builtin("myspace", Options{})
		if !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})

	t.Run("name lookup is case insensitive", func(t *testing.T) {
		d, err := Builtin("GitHub", Options{})
		if err != nil || d.Name != "github" {
			t.Errorf("expected github descriptor, got %v, %v", d, err)
		}
	})

	t.Run("extended profile defaults on", func(t *testing.T) {
		if !Twitter(Options{}).ExtendedProfile {
			t.Error("ExtendedProfile: expected true by default")
		}
		off := false
		if Twitter(Options{ExtendedProfile: &off}).ExtendedProfile {
			t.Error("ExtendedProfile: expected false when disabled")
		}
	})

	t.Run("scope override", func(t *testing.T) {
		d := Facebook(Options{Scope: []string{"public_profile", "email"}})
		if d.ScopeString() != "public_profile email" {
			t.Errorf("ScopeString: got %q", d.ScopeString())
		}
		if GitHub(Options{Scope: []string{"a", "b"}}).ScopeString() != "a,b" {
			t.Error("ScopeString: expected github scopes joined by comma")
		}
	})
}
