package shared

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager issues and resolves stateless encrypted cookie sessions.
// The payload travels entirely inside the cookie: it is serialised to JSON,
// sealed with AES-256-GCM under a key derived from the configured secret,
// and carries its own expiry. Nothing is persisted server side.
type SessionManager struct {
	cookieName string
	ttl        time.Duration
	secure     bool
	key        []byte
}

// Session holds per-request session data.
type Session struct {
	values    map[string]string
	userID    string
	role      string
	name      string
	loggedIn  bool
	flashes   []FlashMessage
	expiresAt time.Time
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values    map[string]string `json:"values,omitempty"`
	UserID    string            `json:"user_id"`
	Role      string            `json:"role"`
	Name      string            `json:"name"`
	LoggedIn  bool              `json:"is_logged_in"`
	Flashes   []FlashMessage    `json:"flashes,omitempty"`
	ExpiresAt int64             `json:"expires_at"`
}

// NewSessionManager constructs a SessionManager. The AES key is derived
// from the secret once at construction; an empty secret is a configuration
// error surfaced by the caller, not here.
func NewSessionManager(cookieName, secret string, ttl time.Duration, secure bool) *SessionManager {
	key := sha256.Sum256([]byte(secret))
	return &SessionManager{
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		key:        key[:],
	}
}

// Load resolves the session carried by the request cookie. A missing,
// tampered or expired cookie yields a fresh anonymous session, never an
// error: invalid proof of identity is indistinguishable from none.
func (sm *SessionManager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		return sm.newSession()
	}
	payload, err := sm.decode(cookie.Value)
	if err != nil {
		return sm.newSession()
	}
	if time.Now().Unix() >= payload.ExpiresAt {
		return sm.newSession()
	}
	return &Session{
		values:    payload.Values,
		userID:    payload.UserID,
		role:      payload.Role,
		name:      payload.Name,
		loggedIn:  payload.LoggedIn,
		flashes:   payload.Flashes,
		expiresAt: time.Unix(payload.ExpiresAt, 0),
	}
}

// Commit writes the cookie when the session changed during the request.
// Destroyed sessions clear the cookie immediately.
func (sm *SessionManager) Commit(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}
	if !sess.dirty {
		return nil
	}
	expires := time.Now().Add(sm.ttl)
	value, err := sm.encode(sessionPayload{
		Values:    sess.values,
		UserID:    sess.userID,
		Role:      sess.role,
		Name:      sess.name,
		LoggedIn:  sess.loggedIn,
		Flashes:   sess.flashes,
		ExpiresAt: expires.Unix(),
	})
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
	sess.dirty = false
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) encode(payload sessionPayload) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	gcm, err := sm.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, plaintext, []byte(sm.cookieName))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (sm *SessionManager) decode(value string) (sessionPayload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return sessionPayload{}, err
	}
	gcm, err := sm.aead()
	if err != nil {
		return sessionPayload{}, err
	}
	if len(raw) < gcm.NonceSize() {
		return sessionPayload{}, errors.New("session cookie too short")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(sm.cookieName))
	if err != nil {
		return sessionPayload{}, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return sessionPayload{}, err
	}
	return payload, nil
}

func (sm *SessionManager) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(sm.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		values: make(map[string]string),
		isNew:  true,
	}
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with an authenticated identity. The role
// slug is copied from the credential record at login and stays fixed for
// the lifetime of the session; a role change requires re-login.
func (s *Session) SetUser(id, role, name string) {
	s.userID = id
	s.role = role
	s.name = name
	s.loggedIn = true
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// Role returns the role slug carried by the session.
func (s *Session) Role() string {
	return s.role
}

// Name returns the display name carried by the session.
func (s *Session) Name() string {
	return s.name
}

// IsAuthenticated reports whether the session belongs to a logged-in user.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.loggedIn && !s.destroyed
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}
