// login_handler.go -- GET /login/{provider}: both legs of every handshake.
//
// The first visit starts the handshake and redirects to the provider; the
// provider redirects back to the same URL with callback params, which
// completes it and renders the credentials as JSON.
package auth

import (
	"net/http"
	"strings"

	"github.com/MGallo-Code/ferry/internal/handshake"
	"github.com/MGallo-Code/ferry/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

// Login handles GET /login/{provider}.
// Query params on the first leg: next (relative path carried through) and
// state (opaque app state carried through).
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	if !h.Engine.Has(name) {
		logDebug(r, "login for unknown provider", "provider", name)
		NotFound(w)
		return
	}

	q := r.URL.Query()
	phase := store.PhaseStart
	req := handshake.Request{
		Query:       q,
		Cookies:     r.Cookies(),
		RedirectURI: h.CallbackURL(name),
	}
	if h.Engine.IsCallback(name, q) {
		phase = store.PhaseCallback
	} else {
		req.Next = safeNext(q.Get("next"))
		req.AppState = q.Get("state")
	}

	res, err := h.Engine.Authenticate(r.Context(), name, req)
	h.record(r, name, phase, err)

	// Callback results carry the clearing cookie even on failure
	if res != nil {
		for _, c := range res.Cookies {
			http.SetCookie(w, c)
		}
	}
	if err != nil {
		writeHandshakeError(w, r, name, err)
		return
	}

	if phase == store.PhaseStart {
		logDebug(r, "redirecting to provider", "provider", name)
		http.Redirect(w, r, res.Redirect, http.StatusFound)
		return
	}
	logInfo(r, "login complete", "provider", name)
	JSON(w, http.StatusOK, res.Credentials)
}

// writeHandshakeError maps a handshake failure to a status and generic message.
func writeHandshakeError(w http.ResponseWriter, r *http.Request, provider string, err error) {
	kind := handshake.KindOf(err)
	switch kind {
	case handshake.KindCallbackDenied:
		logInfo(r, "login denied at provider", "provider", provider)
		Forbidden(w, "login was cancelled")
	case handshake.KindMissingState, handshake.KindInvalidToken, handshake.KindExpiredToken,
		handshake.KindMalformedToken, handshake.KindStateMismatch:
		logWarn(r, "login rejected", "provider", provider, "kind", kind.String(), "error", err)
		BadRequest(w, "login session invalid or expired, please try again")
	case handshake.KindUpstreamRejected, handshake.KindTokenExchangeFailed, handshake.KindProfileFetchFailed:
		logWarn(r, "provider failure", "provider", provider, "kind", kind.String(), "error", err)
		BadGateway(w, "login provider error")
	default:
		InternalServerError(w, r, err)
	}
}

// record writes one audit row. Failures are logged, never surfaced.
func (h *LoginHandler) record(r *http.Request, provider, phase string, err error) {
	if h.Audit == nil {
		return
	}
	id, idErr := uuid.NewV7()
	if idErr != nil {
		logWarn(r, "generating audit id", "error", idErr)
		return
	}
	ip := clientIP(r)
	ua := r.UserAgent()
	ev := store.HandshakeEvent{
		ID:        id,
		Provider:  provider,
		Phase:     phase,
		Outcome:   handshake.Outcome(err),
		IPAddress: &ip,
	}
	if ua != "" {
		ev.UserAgent = &ua
	}
	if auditErr := h.Audit.RecordHandshake(r.Context(), ev); auditErr != nil {
		logWarn(r, "recording handshake event", "error", auditErr)
	}
}

// safeNext keeps next only when it is a same-origin absolute path.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return ""
	}
	return next
}
