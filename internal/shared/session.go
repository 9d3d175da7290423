package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const sessionKeyPrefix = "hp:session:"

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds the signed-in principal and the small amount of state the
// web flows carry between requests.
type Session struct {
	ID         string
	userID     string
	signedInAt time.Time
	csrfToken  string
	returnTo   string
	flashes    []FlashMessage
	isNew      bool
	dirty      bool
	destroyed  bool
	// previousID is the id dropped by Renew, deleted on Commit.
	previousID string
}

type sessionPayload struct {
	UserID     string         `json:"user_id,omitempty"`
	SignedInAt time.Time      `json:"signed_in_at,omitempty"`
	CSRFToken  string         `json:"csrf_token,omitempty"`
	ReturnTo   string         `json:"return_to,omitempty"`
	Flashes    []FlashMessage `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager. secure marks cookies
// Secure and should be set whenever the site is served over TLS.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load returns the session named by the request cookie, or a fresh one.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Expired or forged ids are never reused.
			return newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	return &Session{
		ID:         cookie.Value,
		userID:     stored.UserID,
		signedInAt: stored.SignedInAt,
		csrfToken:  stored.CSRFToken,
		returnTo:   stored.ReturnTo,
		flashes:    stored.Flashes,
	}, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}

	if sess.previousID != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.previousID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.previousID = ""
	}

	if sess.dirty || sess.isNew {
		if err := sm.persist(ctx, sess); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	}

	http.SetCookie(w, sm.cookie(sess.ID, int(sm.ttl.Seconds())))
	return nil
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (sm *SessionManager) persist(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sessionPayload{
		UserID:     sess.userID,
		SignedInAt: sess.signedInAt,
		CSRFToken:  sess.csrfToken,
		ReturnTo:   sess.returnTo,
		Flashes:    sess.flashes,
	})
	if err != nil {
		return err
	}
	return sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err()
}

// Renew issues a fresh session id, keeping the data. Call it when the
// principal signs in so a pre-login id cannot be replayed.
func (sm *SessionManager) Renew(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.isNew {
		sess.previousID = sess.ID
	}
	sess.ID = uuid.NewString()
	sess.dirty = true
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

func (sm *SessionManager) redisKey(id string) string {
	return sessionKeyPrefix + id
}

func newSession() *Session {
	return &Session{ID: uuid.NewString(), isNew: true, dirty: true}
}

// SetUser associates the session with a user ID and stamps the sign-in time.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.signedInAt = time.Now().UTC()
	s.dirty = true
}

// ClearUser drops the principal from the session.
func (s *Session) ClearUser() {
	s.userID = ""
	s.signedInAt = time.Time{}
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// SignedInAt returns when SetUser was last called, or the zero time.
func (s *Session) SignedInAt() time.Time {
	return s.signedInAt
}

// CSRFToken returns the token issued to this session, if any.
func (s *Session) CSRFToken() string {
	return s.csrfToken
}

func (s *Session) setCSRFToken(token string) {
	s.csrfToken = token
	s.dirty = true
}

// SetReturnTo remembers a local path to resume after sign-in. Anything that
// is not a site-relative path is ignored.
func (s *Session) SetReturnTo(path string) {
	if !isLocalPath(path) {
		return
	}
	s.returnTo = path
	s.dirty = true
}

// PopReturnTo returns and clears the remembered path.
func (s *Session) PopReturnTo() string {
	path := s.returnTo
	if path != "" {
		s.returnTo = ""
		s.dirty = true
	}
	return path
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

func isLocalPath(path string) bool {
	return strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "//") && !strings.Contains(path, `\`)
}
