// profile.go -- Canonical profile shape and the normalizer entry point.
package oauth

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
)

// ErrMissingID is returned by Normalize when a mapping produced no identifier.
// Handshakes report it as a profile fetch failure.
var ErrMissingID = errors.New("profile missing id")

// Name is a structured personal name. Nil fields were not supplied.
type Name struct {
	First  *string `json:"first,omitempty"`
	Middle *string `json:"middle,omitempty"`
	Last   *string `json:"last,omitempty"`
}

// Profile is the provider-independent identity record.
// ID is always set on success. Every other field is best effort: nil means the
// provider did not supply it, never "supplied but empty".
type Profile struct {
	ID          string         `json:"id"`
	Username    *string        `json:"username,omitempty"`
	DisplayName *string        `json:"displayName,omitempty"`
	Name        *Name          `json:"name,omitempty"`
	Email       *string        `json:"email,omitempty"`
	Raw         map[string]any `json:"raw,omitempty"`
}

// Normalize runs d's mapping over raw and params and enforces the ID invariant.
func Normalize(d *Descriptor, raw map[string]any, params url.Values) (*Profile, error) {
	p, err := d.Profile(raw, params)
	if err != nil {
		return nil, err
	}
	if p == nil || p.ID == "" {
		return nil, ErrMissingID
	}
	return p, nil
}

// --- Field extraction helpers shared by the mappings ---

// Str walks nested objects in m along path and returns the leaf as a string.
// Missing keys, non-objects along the way, blank strings, and non-scalar
// leaves all count as absent.
func Str(m map[string]any, path ...string) *string {
	var cur any = m
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		if cur, ok = obj[key]; !ok {
			return nil
		}
	}
	switch v := cur.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return &v
	case json.Number:
		s := v.String()
		return &s
	case float64:
		s := formatFloat(v)
		return &s
	default:
		return nil
	}
}

// Param returns params[key] or nil when missing or blank.
func Param(params url.Values, key string) *string {
	v := params.Get(key)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

// FirstOf returns the first non-nil value.
func FirstOf(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// JoinNonNil joins the present parts with sep; nil when none are present.
func JoinNonNil(sep string, parts ...*string) *string {
	var present []string
	for _, p := range parts {
		if p != nil {
			present = append(present, *p)
		}
	}
	if len(present) == 0 {
		return nil
	}
	s := strings.Join(present, sep)
	return &s
}

// NameOf builds a Name, or nil when every part is absent.
func NameOf(first, middle, last *string) *Name {
	if first == nil && middle == nil && last == nil {
		return nil
	}
	return &Name{First: first, Middle: middle, Last: last}
}

// idOf returns *p or "" for nil, for the mandatory ID field.
func idOf(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// formatFloat renders integral JSON numbers without an exponent,
// so numeric ids decoded as float64 keep their digits.
func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
