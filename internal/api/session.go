package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/session"
)

const (
	// sessionCookieName carries the signed browser session identifier.
	sessionCookieName = "sid"

	// cookieMaxAge is the session cookie lifetime in seconds (7 days).
	cookieMaxAge = 7 * 24 * 60 * 60
)

var errNoSession = errors.New("no valid session cookie")

// sessionManager issues and validates HMAC-signed session cookies and
// binds each browser to an entry in the conversation store.
type sessionManager struct {
	store  *session.Store
	secret []byte
	isDev  bool
	logger log.Logger
}

// SessionID extracts and verifies the session ID from the sid cookie.
func (sm *sessionManager) SessionID(r *http.Request) (uuid.UUID, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return uuid.Nil, errNoSession
	}
	raw, ok := verifySigned(cookie.Value, sm.secret)
	if !ok {
		return uuid.Nil, errNoSession
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errNoSession
	}
	return id, nil
}

// Establish returns the request's session ID, creating a new session and
// setting the cookie when the request carries none. The ID always has a
// conversation entry in the store afterwards.
func (sm *sessionManager) Establish(w http.ResponseWriter, r *http.Request) uuid.UUID {
	id, err := sm.SessionID(r)
	if err != nil {
		id = uuid.New()
		sm.setSessionCookie(w, id)
		sm.logger.Info("new session created", "session_id", id)
	}
	sm.store.Ensure(id)
	return id
}

func (sm *sessionManager) setSessionCookie(w http.ResponseWriter, id uuid.UUID) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sign(id.String(), sm.secret),
		Path:     "/",
		Secure:   !sm.isDev,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   cookieMaxAge,
	})
}

// sign creates a tamper-evident cookie value:
// "value.base64url(HMAC-SHA256(secret, value))".
func sign(value string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(value))
	sig := base64.URLEncoding.EncodeToString(h.Sum(nil))
	return value + "." + sig
}

// verifySigned splits a signed cookie value and checks the HMAC signature
// in constant time.
func verifySigned(value string, secret []byte) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx < 0 {
		return "", false
	}
	raw := value[:idx]
	sig, err := base64.URLEncoding.DecodeString(value[idx+1:])
	if err != nil {
		return "", false
	}

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(raw))
	expected := h.Sum(nil)

	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}
	return raw, true
}
