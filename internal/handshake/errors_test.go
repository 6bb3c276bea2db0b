package handshake

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := newError(KindStateMismatch, "github", "state does not match transaction", nil)
	wrapped := fmt.Errorf("handling callback: %w", err)

	if !errors.Is(wrapped, ErrStateMismatch) {
		t.Error("expected wrapped error to match ErrStateMismatch")
	}
	if errors.Is(wrapped, ErrInvalidToken) {
		t.Error("state mismatch must not match ErrInvalidToken")
	}
	if KindOf(wrapped) != KindStateMismatch {
		t.Errorf("KindOf: expected state_mismatch, got %s", KindOf(wrapped))
	}
}

func TestError_Unwrap(t *testing.T) {
	err := newError(KindTokenExchangeFailed, "twitter", "access token exchange failed", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected cause to be reachable")
	}
	want := "twitter: token_exchange_failed: access token exchange failed: unexpected EOF"
	if err.Error() != want {
		t.Errorf("Error(): expected %q, got %q", want, err.Error())
	}
}

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrMissingState, "missing_state"},
		{newError(KindProfileFetchFailed, "x", "", nil), "profile_fetch_failed"},
		{io.EOF, "internal_error"},
	}
	for _, c := range cases {
		if got := Outcome(c.err); got != c.want {
			t.Errorf("Outcome(%v): expected %q, got %q", c.err, c.want, got)
		}
	}
}

func TestKind_String(t *testing.T) {
	for k := KindCallbackDenied; k <= KindConfiguration; k++ {
		if _, ok := kindNames[k]; !ok {
			t.Errorf("kind %d has no name", int(k))
		}
	}
	if got := Kind(99).String(); got != "kind(99)" {
		t.Errorf("unknown kind: got %q", got)
	}
}
