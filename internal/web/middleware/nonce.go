package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName = "catalogsync_session"
	tokenKey    = "nonce_token"

	// NonceHeader and NonceField carry the nonce on mutating requests.
	NonceHeader = "X-Catalog-Nonce"
	NonceField  = "_nonce"
)

// Nonce actions.
const (
	ActionImport  = "import"
	ActionExport  = "export"
	ActionAddTerm = "add_term"
)

// Actions lists every action a nonce can be issued for.
var Actions = []string{ActionImport, ActionExport, ActionAddTerm}

// NonceSource issues and verifies per-action nonces. A nonce is the HMAC of a
// random session token and the action name; the token lives in a signed
// session cookie, so a nonce is only valid for the browser it was issued to.
type NonceSource struct {
	store  *sessions.CookieStore
	secret []byte
}

// NewNonceSource creates a NonceSource. An empty secret generates a random
// one, which invalidates outstanding nonces on every restart.
func NewNonceSource(secret string) (*NonceSource, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		slog.Warn("SESSION_SECRET not set; nonces will not survive a restart")
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &NonceSource{store: store, secret: key}, nil
}

// Issue returns the nonce for action, starting a session when the request
// has none. It must be called before the response body is written.
func (n *NonceSource) Issue(w http.ResponseWriter, r *http.Request, action string) (string, error) {
	session, _ := n.store.Get(r, sessionName) // a bad cookie yields a fresh session

	token, _ := session.Values[tokenKey].(string)
	if token == "" {
		token = uuid.NewString()
		session.Values[tokenKey] = token
		if err := session.Save(r, w); err != nil {
			return "", fmt.Errorf("save session: %w", err)
		}
	}
	return n.sign(token, action), nil
}

// Verify reports whether nonce was issued for action to this session.
func (n *NonceSource) Verify(r *http.Request, action, nonce string) bool {
	if nonce == "" {
		return false
	}
	session, err := n.store.Get(r, sessionName)
	if err != nil {
		return false
	}
	token, _ := session.Values[tokenKey].(string)
	if token == "" {
		return false
	}

	got, err := hex.DecodeString(nonce)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(n.sign(token, action))
	return hmac.Equal(got, want)
}

func (n *NonceSource) sign(token, action string) string {
	mac := hmac.New(sha256.New, n.secret)
	mac.Write([]byte(token))
	mac.Write([]byte{0})
	mac.Write([]byte(action))
	return hex.EncodeToString(mac.Sum(nil))
}

// ErrUnknownAction is returned when a nonce is requested for an action that
// no route checks.
var ErrUnknownAction = errors.New("unknown nonce action")

// KnownAction reports whether action is one of Actions.
func KnownAction(action string) bool {
	return slices.Contains(Actions, action)
}
