// Package oauth1 implements the client side of OAuth 1.0a (RFC 5849):
// HMAC-SHA1 request signing and the temporary-credential, token, and
// protected-resource requests built on it.
//
// signer.go -- signature base string construction and HMAC-SHA1 signing.
package oauth1

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// SignatureMethod is the only method this package produces.
const SignatureMethod = "HMAC-SHA1"

// Encode percent-encodes s per RFC 3986 section 2.1: everything except
// ALPHA, DIGIT, '-', '.', '_', '~' becomes %XX with uppercase hex.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02X", c)
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}

// BaseURL normalizes rawURL for the base string: lowercase scheme and host,
// default ports dropped, query and fragment removed.
func BaseURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path, nil
}

// BaseString builds the signature base string for a request.
// Query params already on rawURL are folded into params before sorting.
func BaseString(method, rawURL string, params url.Values) (string, error) {
	base, err := BaseURL(rawURL)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(rawURL)

	type pair struct{ k, v string }
	var pairs []pair
	add := func(vals url.Values) {
		for k, vs := range vals {
			if k == "oauth_signature" {
				continue
			}
			for _, v := range vs {
				pairs = append(pairs, pair{Encode(k), Encode(v)})
			}
		}
	}
	add(u.Query())
	add(params)

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}

	return strings.ToUpper(method) + "&" + Encode(base) + "&" + Encode(strings.Join(parts, "&")), nil
}

// Sign returns the base64 HMAC-SHA1 signature of the request.
// tokenSecret may be empty when no token has been issued yet.
// Identical inputs always yield the identical signature.
func Sign(method, rawURL string, params url.Values, consumerSecret, tokenSecret string) (string, error) {
	base, err := BaseString(method, rawURL, params)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha1.New, []byte(Encode(consumerSecret)+"&"+Encode(tokenSecret)))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
