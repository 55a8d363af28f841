package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/logging"
)

// ErrorFunc writes an error response. The web package passes its
// respondError so guard failures render like any other error.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error, status int)

var (
	errMissingKey = errors.New("missing API key")
	errInvalidKey = errors.New("invalid API key")
)

func statusFor(err error) int {
	if errors.Is(err, errMissingKey) {
		return http.StatusUnauthorized
	}
	return http.StatusForbidden
}

// multipartMemory is how much of a multipart body ParseMultipartForm keeps in
// memory; the body is already capped by the route's size limit.
const multipartMemory = 32 << 20

// Guard checks the capability and nonce of mutating requests before they
// reach a handler.
type Guard struct {
	Keys   *KeyRing
	Nonces *NonceSource
	Fail   ErrorFunc
}

// Require returns middleware for a route performing action. It runs the
// capability check first, then the nonce check, and on success stores the
// actor and client IP in the request context.
func (g *Guard) Require(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.FromContext(r.Context()).With("action", action, "capability", CapManageCatalog)

			actor, err := g.Keys.Actor(r)
			if err != nil {
				logger.Warn("guard: capability check failed", "reason", err.Error(), "ip", ClientIP(r))
				g.Fail(w, r, core.ErrForbidden, statusFor(err))
				return
			}

			nonce, err := requestNonce(r)
			if err != nil {
				var tooBig *http.MaxBytesError
				if errors.As(err, &tooBig) {
					g.Fail(w, r, core.ErrFileTooLarge, http.StatusRequestEntityTooLarge)
					return
				}
				g.Fail(w, r, err, http.StatusBadRequest)
				return
			}
			if !g.Nonces.Verify(r, action, nonce) {
				logger.Warn("guard: nonce check failed", "actor", actor, "ip", ClientIP(r))
				g.Fail(w, r, core.ErrBadNonce, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithRequestMetadata(r.Context(), r, actor)))
		})
	}
}

// requestNonce reads the nonce from NonceHeader, falling back to the
// NonceField form value.
func requestNonce(r *http.Request) (string, error) {
	if v := r.Header.Get(NonceHeader); v != "" {
		return v, nil
	}

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return "", err
	}
	return r.FormValue(NonceField), nil
}
