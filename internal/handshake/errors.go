// errors.go -- Failure taxonomy for login handshakes.
//
// Every error returned by Start, Callback and Authenticate is an *Error.
// Hosts branch on the kind with errors.Is against the ErrX sentinels or
// with KindOf; the wrapped cause is kept for logs only.
package handshake

import (
	"errors"
	"fmt"
)

// Kind classifies a handshake failure.
type Kind int

const (
	KindCallbackDenied Kind = iota + 1
	KindStateMismatch
	KindMissingState
	KindInvalidToken
	KindExpiredToken
	KindMalformedToken
	KindUpstreamRejected
	KindTokenExchangeFailed
	KindProfileFetchFailed
	KindConfiguration
)

var kindNames = map[Kind]string{
	KindCallbackDenied:      "callback_denied",
	KindStateMismatch:       "state_mismatch",
	KindMissingState:        "missing_state",
	KindInvalidToken:        "invalid_token",
	KindExpiredToken:        "expired_token",
	KindMalformedToken:      "malformed_token",
	KindUpstreamRejected:    "upstream_rejected",
	KindTokenExchangeFailed: "token_exchange_failed",
	KindProfileFetchFailed:  "profile_fetch_failed",
	KindConfiguration:       "configuration_error",
}

// String returns the snake_case name used in logs, metrics and audit rows.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a classified handshake failure.
type Error struct {
	Kind     Kind
	Provider string
	// Message is safe to show to an end user.
	Message string
	// Err is the underlying cause, if any. Not safe to show to end users.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels compare by kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrCallbackDenied      = &Error{Kind: KindCallbackDenied}
	ErrStateMismatch       = &Error{Kind: KindStateMismatch}
	ErrMissingState        = &Error{Kind: KindMissingState}
	ErrInvalidToken        = &Error{Kind: KindInvalidToken}
	ErrExpiredToken        = &Error{Kind: KindExpiredToken}
	ErrMalformedToken      = &Error{Kind: KindMalformedToken}
	ErrUpstreamRejected    = &Error{Kind: KindUpstreamRejected}
	ErrTokenExchangeFailed = &Error{Kind: KindTokenExchangeFailed}
	ErrProfileFetchFailed  = &Error{Kind: KindProfileFetchFailed}
	ErrConfiguration       = &Error{Kind: KindConfiguration}
)

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(kind Kind, provider, message string, cause error) *Error {
	return &Error{Kind: kind, Provider: provider, Message: message, Err: cause}
}

// Outcome returns "ok" for a nil error and the kind name otherwise.
// Used as the outcome label in metrics and audit rows.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := KindOf(err); k != 0 {
		return k.String()
	}
	return "internal_error"
}
