package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
)

// CapManageCatalog is the capability every mutating route requires.
const CapManageCatalog = "manage_catalog"

// OpenActor is the actor recorded for requests without a key in open mode.
const OpenActor = "open"

// APIKeyHeader carries the caller's key.
const APIKeyHeader = "X-API-Key"

// KeyRing resolves API keys to the names they were configured with.
type KeyRing struct {
	required bool
	keys     map[string]string // key -> name
}

// NewKeyRing builds a KeyRing from the security settings.
func NewKeyRing(cfg *config.SecurityConfig) *KeyRing {
	return &KeyRing{required: cfg.RequireAPIKey, keys: cfg.NamedKeys()}
}

// Actor returns who is calling and whether they hold CapManageCatalog.
//
// A valid key always grants the capability under its name. Without a key the
// caller is OpenActor, which holds the capability only when keys are not
// required. A key that matches nothing is refused in both modes.
func (k *KeyRing) Actor(r *http.Request) (string, error) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		if k.required {
			return "", errMissingKey
		}
		return OpenActor, nil
	}

	name, ok := k.lookup(key)
	if !ok {
		return "", errInvalidKey
	}
	return name, nil
}

// lookup compares against every configured key so the time taken does not
// depend on which key (if any) matched.
func (k *KeyRing) lookup(key string) (string, bool) {
	var name string
	found := 0
	for candidate, n := range k.keys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(candidate)) == 1 {
			name = n
			found = 1
		}
	}
	return name, found == 1
}

// APIKeyAuth returns middleware that refuses requests without a valid
// X-API-Key when keys are required. In open mode all requests pass through.
func APIKeyAuth(keys *KeyRing, fail ErrorFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keys.required {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := keys.Actor(r); err != nil {
				slog.Warn("auth: rejected API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"reason", err.Error(),
				)
				fail(w, r, core.ErrForbidden, statusFor(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
