// profile_test.go -- mapping tests for every built-in provider.
package oauth

import (
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"testing"
)

func sp(s string) *string { return &s }

// assertProfile compares two profiles field by field so failures point at the field.
func assertProfile(t *testing.T, got, want *Profile) {
	t.Helper()
	if got.ID != want.ID {
		t.Errorf("ID: expected %q, got %q", want.ID, got.ID)
	}
	assertStr(t, "Username", got.Username, want.Username)
	assertStr(t, "DisplayName", got.DisplayName, want.DisplayName)
	assertStr(t, "Email", got.Email, want.Email)
	if (got.Name == nil) != (want.Name == nil) {
		t.Fatalf("Name: expected %+v, got %+v", want.Name, got.Name)
	}
	if want.Name != nil {
		assertStr(t, "Name.First", got.Name.First, want.Name.First)
		assertStr(t, "Name.Middle", got.Name.Middle, want.Name.Middle)
		assertStr(t, "Name.Last", got.Name.Last, want.Name.Last)
	}
	if !reflect.DeepEqual(got.Raw, want.Raw) {
		t.Errorf("Raw: expected %v, got %v", want.Raw, got.Raw)
	}
}

func assertStr(t *testing.T, field string, got, want *string) {
	t.Helper()
	switch {
	case want == nil && got != nil:
		t.Errorf("%s: expected absent, got %q", field, *got)
	case want != nil && got == nil:
		t.Errorf("%s: expected %q, got absent", field, *want)
	case want != nil && *got != *want:
		t.Errorf("%s: expected %q, got %q", field, *want, *got)
	}
}

func normalize(t *testing.T, name string, raw map[string]any, params url.Values) *Profile {
	t.Helper()
	d, err := Builtin(name, Options{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("Builtin(%q) failed: %v", name, err)
	}
	p, err := Normalize(d, raw, params)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	return p
}

func TestFacebookProfile(t *testing.T) {
	raw := map[string]any{
		"id":         "1234567890",
		"username":   "steve",
		"name":       "steve",
		"first_name": "steve",
		"last_name":  "smith",
		"email":      "steve@example.com",
	}
	assertProfile(t, normalize(t, "facebook", raw, nil), &Profile{
		ID:          "1234567890",
		Username:    sp("steve"),
		DisplayName: sp("steve"),
		Name:        &Name{First: sp("steve"), Last: sp("smith")},
		Email:       sp("steve@example.com"),
		Raw:         raw,
	})
}

func TestGitHubProfile(t *testing.T) {
	raw := map[string]any{"id": "1234567890", "login": "steve", "name": "steve", "email": "steve@example.com"}
	assertProfile(t, normalize(t, "github", raw, nil), &Profile{
		ID:          "1234567890",
		Username:    sp("steve"),
		DisplayName: sp("steve"),
		Email:       sp("steve@example.com"),
		Raw:         raw,
	})

	t.Run("numeric id keeps its digits", func(t *testing.T) {
		raw := map[string]any{"id": json.Number("583231"), "login": "octocat"}
		if got := normalize(t, "github", raw, nil).ID; got != "583231" {
			t.Errorf("ID: expected 583231, got %q", got)
		}
		raw = map[string]any{"id": float64(12345678901), "login": "octocat"}
		if got := normalize(t, "github", raw, nil).ID; got != "12345678901" {
			t.Errorf("ID: expected 12345678901, got %q", got)
		}
	})

	t.Run("custom uri rewrites endpoints", func(t *testing.T) {
		d := GitHub(Options{URI: "http://example.com/"})
		if d.AuthURL != "http://example.com/login/oauth/authorize" {
			t.Errorf("AuthURL: got %q", d.AuthURL)
		}
		if d.TokenURL != "http://example.com/login/oauth/access_token" {
			t.Errorf("TokenURL: got %q", d.TokenURL)
		}
		if d.ProfileURL != "http://example.com/user" {
			t.Errorf("ProfileURL: got %q", d.ProfileURL)
		}
	})
}

func TestGoogleProfile(t *testing.T) {
	raw := map[string]any{
		"id":          "1234567890",
		"username":    "steve",
		"name":        "steve",
		"given_name":  "steve",
		"family_name": "smith",
		"email":       "steve@example.com",
	}
	assertProfile(t, normalize(t, "google", raw, nil), &Profile{
		ID:          "1234567890",
		Username:    sp("steve"),
		DisplayName: sp("steve"),
		Name:        &Name{First: sp("steve"), Last: sp("smith")},
		Email:       sp("steve@example.com"),
		Raw:         raw,
	})
}

func TestLiveProfile_Emails(t *testing.T) {
	base := func(emails any) map[string]any {
		raw := map[string]any{
			"id":         "1234567890",
			"username":   "steve",
			"name":       "steve",
			"first_name": "steve",
			"last_name":  "smith",
		}
		if emails != nil {
			raw["emails"] = emails
		}
		return raw
	}

	cases := []struct {
		name   string
		emails any
		want   *string
	}{
		{"preferred wins over account", map[string]any{"preferred": "steve@example.com", "account": "steve@example.net"}, sp("steve@example.com")},
		{"account when no preferred", map[string]any{"account": "steve@example.net"}, sp("steve@example.net")},
		{"absent when no emails key", nil, nil},
		{"absent when emails is empty object", map[string]any{}, nil},
		{"absent when preferred is blank and no account", map[string]any{"preferred": ""}, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := base(c.emails)
			p := normalize(t, "live", raw, nil)
			assertProfile(t, p, &Profile{
				ID:          "1234567890",
				Username:    sp("steve"),
				DisplayName: sp("steve"),
				Name:        &Name{First: sp("steve"), Last: sp("smith")},
				Email:       c.want,
				Raw:         raw,
			})
		})
	}
}

func TestTwitterProfile(t *testing.T) {
	params := url.Values{"user_id": {"1234567890"}, "screen_name": {"Steve Stevens"}}

	t.Run("with extended profile", func(t *testing.T) {
		raw := map[string]any{"property": "something"}
		assertProfile(t, normalize(t, "twitter", raw, params), &Profile{
			ID:       "1234567890",
			Username: sp("Steve Stevens"),
			Raw:      raw,
		})
	})

	t.Run("without extended profile", func(t *testing.T) {
		p := normalize(t, "twitter", nil, params)
		assertProfile(t, p, &Profile{ID: "1234567890", Username: sp("Steve Stevens")})
		if p.Raw != nil {
			t.Errorf("Raw: expected nil, got %v", p.Raw)
		}
	})

	t.Run("profile request carries user_id", func(t *testing.T) {
		u, q := Twitter(Options{}).ProfileTarget(params)
		if u != "https://api.twitter.com/1.1/users/show.json" || q.Get("user_id") != "1234567890" {
			t.Errorf("ProfileTarget: got %q %v", u, q)
		}
	})
}

func TestYahooProfile(t *testing.T) {
	params := url.Values{"xoauth_yahoo_guid": {"1234567890"}}
	raw := map[string]any{
		"profile": map[string]any{"guid": "1234567890", "givenName": "steve", "familyName": "smith"},
	}
	assertProfile(t, normalize(t, "yahoo", raw, params), &Profile{
		ID:          "1234567890",
		DisplayName: sp("steve smith"),
		Name:        &Name{First: sp("steve"), Last: sp("smith")},
		Raw:         raw,
	})

	t.Run("profile url embeds guid", func(t *testing.T) {
		u, q := Yahoo(Options{}).ProfileTarget(params)
		if u != "https://social.yahooapis.com/v1/user/1234567890/profile" {
			t.Errorf("url: got %q", u)
		}
		if q.Get("format") != "json" {
			t.Errorf("format: expected json, got %q", q.Get("format"))
		}
	})

	t.Run("without extended profile uses guid param", func(t *testing.T) {
		p := normalize(t, "yahoo", nil, params)
		assertProfile(t, p, &Profile{ID: "1234567890"})
	})
}

func TestBitbucketDropboxFoursquareProfiles(t *testing.T) {
	t.Run("bitbucket", func(t *testing.T) {
		raw := map[string]any{"uuid": "{abc}", "username": "steve", "display_name": "Steve Smith"}
		assertProfile(t, normalize(t, "bitbucket", raw, nil), &Profile{
			ID: "{abc}", Username: sp("steve"), DisplayName: sp("Steve Smith"), Raw: raw,
		})
	})

	t.Run("dropbox", func(t *testing.T) {
		raw := map[string]any{
			"account_id": "dbid:1",
			"email":      "steve@example.com",
			"name":       map[string]any{"display_name": "Steve Smith", "given_name": "Steve", "surname": "Smith"},
		}
		assertProfile(t, normalize(t, "dropbox", raw, nil), &Profile{
			ID:          "dbid:1",
			DisplayName: sp("Steve Smith"),
			Name:        &Name{First: sp("Steve"), Last: sp("Smith")},
			Email:       sp("steve@example.com"),
			Raw:         raw,
		})
	})

	t.Run("foursquare", func(t *testing.T) {
		raw := map[string]any{"response": map[string]any{"user": map[string]any{
			"id": "42", "firstName": "Steve", "contact": map[string]any{"email": "steve@example.com"},
		}}}
		assertProfile(t, normalize(t, "foursquare", raw, nil), &Profile{
			ID:          "42",
			DisplayName: sp("Steve"),
			Name:        &Name{First: sp("Steve")},
			Email:       sp("steve@example.com"),
			Raw:         raw,
		})
	})
}

func TestNormalize_MissingID(t *testing.T) {
	for _, name := range []string{"facebook", "github", "google", "live", "bitbucket", "dropbox", "foursquare"} {
		t.Run(name, func(t *testing.T) {
			d, _ := Builtin(name, Options{})
			_, err := Normalize(d, map[string]any{"name": "steve"}, nil)
			if !errors.Is(err, ErrMissingID) {
				t.Errorf("expected ErrMissingID, got %v", err)
			}
		})
	}

	t.Run("twitter without user_id", func(t *testing.T) {
		_, err := Normalize(Twitter(Options{}), nil, url.Values{"screen_name": {"steve"}})
		if !errors.Is(err, ErrMissingID) {
			t.Errorf("expected ErrMissingID, got %v", err)
		}
	})
}

func TestStr(t *testing.T) {
	m := map[string]any{
		"s":     "v",
		"blank": "   ",
		"obj":   map[string]any{"inner": "x"},
		"arr":   []any{"a"},
		"null":  nil,
		"bool":  true,
	}
	if got := Str(m, "s"); got == nil || *got != "v" {
		t.Errorf("s: got %v", got)
	}
	if got := Str(m, "obj", "inner"); got == nil || *got != "x" {
		t.Errorf("obj.inner: got %v", got)
	}
	for _, path := range [][]string{{"blank"}, {"obj"}, {"arr"}, {"null"}, {"bool"}, {"missing"}, {"s", "deeper"}, {"obj", "missing"}} {
		if got := Str(m, path...); got != nil {
			t.Errorf("%v: expected absent, got %q", path, *got)
		}
	}
}

func TestJoinNonNilAndNameOf(t *testing.T) {
	if JoinNonNil(" ", nil, nil) != nil {
		t.Error("JoinNonNil: expected nil when all parts absent")
	}
	if got := JoinNonNil(" ", nil, sp("smith")); got == nil || *got != "smith" {
		t.Errorf("JoinNonNil: got %v", got)
	}
	if NameOf(nil, nil, nil) != nil {
		t.Error("NameOf: expected nil when all parts absent")
	}
}

func TestProfile_JSONOmitsAbsentFields(t *testing.T) {
	b, err := json.Marshal(&Profile{ID: "1", Username: sp("")})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `{"id":"1","username":""}` {
		t.Errorf("json: got %s", b)
	}
}
