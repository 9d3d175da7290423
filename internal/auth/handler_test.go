package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/humpahadi/humpahadi/internal/auth"
	"github.com/humpahadi/humpahadi/internal/shared"
	"github.com/humpahadi/humpahadi/internal/view"
	_ "github.com/humpahadi/humpahadi/testing"
)

type stubRepo struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	sessions map[string]uuid.UUID
	roles    map[uuid.UUID]string
	findErr  error
}

func newStubRepo(users ...*auth.User) *stubRepo {
	repo := &stubRepo{users: make(map[string]*auth.User), sessions: make(map[string]uuid.UUID)}
	for _, u := range users {
		repo.users[u.Email] = u
	}
	return repo
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	user, ok := s.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (s *stubRepo) CreateUser(ctx context.Context, user auth.User) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return nil, shared.ErrEmailTaken
	}
	s.users[user.Email] = &user
	return &user, nil
}

func (s *stubRepo) CreateUserWithRole(ctx context.Context, user auth.User, role string) (*auth.User, error) {
	created, err := s.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles == nil {
		s.roles = make(map[uuid.UUID]string)
	}
	s.roles[created.ID] = role
	return created, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type recordingNotifier struct {
	ids []uuid.UUID
}

func (n *recordingNotifier) NotifyPendingApproval(ctx context.Context, userID uuid.UUID, email string) error {
	n.ids = append(n.ids, userID)
	return nil
}

type authFixture struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
	repo     *stubRepo
	notifier *recordingNotifier
}

func newAuthFixture(t *testing.T, users ...*auth.User) authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	repo := newStubRepo(users...)
	notifier := &recordingNotifier{}
	handler := auth.NewHandler(nil, auth.NewService(repo, notifier, nil), templates, sessionManager, csrfManager)
	return authFixture{handler: handler, sessions: sessionManager, repo: repo, notifier: notifier}
}

// serve runs one request through the router with a loaded and committed session.
func (f authFixture) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := f.sessions.Load(req.Context(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	router := chi.NewRouter()
	f.handler.MountRoutes(router)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.NoError(t, f.sessions.Commit(ctx, res, req, sess))
	return res, sess
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestLoginPage(t *testing.T) {
	f := newAuthFixture(t)
	res, sess := f.serve(t, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.NotEmpty(t, sess.CSRFToken())
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newAuthFixture(t, &auth.User{ID: uuid.New(), Email: "user@test.local", PasswordHash: hashed(t, "correctpass"), Status: "active"})

	res, sess := f.serve(t, postForm("/login", url.Values{"email": {"user@test.local"}, "password": {"wrongpass"}}))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Invalid email or password.")
	assert.Empty(t, sess.User())
}

func TestLoginStoreFailureIsNotReportedAsBadPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.findErr = errors.New("connection refused")

	res, sess := f.serve(t, postForm("/login", url.Values{"email": {"user@test.local"}, "password": {"correctpass"}}))
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.NotContains(t, res.Body.String(), "Invalid email or password.")
	assert.Contains(t, res.Body.String(), "Something went wrong. Please try again.")
	assert.Empty(t, sess.User())
}

func TestLoginSuccessRenewsSession(t *testing.T) {
	id := uuid.New()
	f := newAuthFixture(t, &auth.User{ID: id, Email: "editor@test.local", PasswordHash: hashed(t, "correctpass"), Status: "disabled"})

	req := postForm("/login", url.Values{"email": {"Editor@Test.local"}, "password": {"correctpass"}})
	req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: "pre-login-id"})
	res, sess := f.serve(t, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, auth.AfterLoginPath, res.Header().Get("Location"))
	assert.Equal(t, id.String(), sess.User())
	assert.NotEqual(t, "pre-login-id", sess.ID)
	assert.Equal(t, id, f.repo.sessions[sess.ID])
}

func TestLoginResumesGuardedPath(t *testing.T) {
	id := uuid.New()
	f := newAuthFixture(t, &auth.User{ID: id, Email: "author@test.local", PasswordHash: hashed(t, "correctpass"), Status: "active"})

	pre, err := f.sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/admin/stories", nil))
	require.NoError(t, err)
	pre.SetReturnTo("/admin/stories")
	rec := httptest.NewRecorder()
	require.NoError(t, f.sessions.Commit(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil), pre))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := postForm("/login", url.Values{"email": {"author@test.local"}, "password": {"correctpass"}})
	req.AddCookie(cookies[0])
	res, sess := f.serve(t, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/admin/stories", res.Header().Get("Location"))
	assert.Empty(t, sess.PopReturnTo())
}

func TestSignupLandsOnPendingApproval(t *testing.T) {
	f := newAuthFixture(t)

	res, sess := f.serve(t, postForm("/signup", url.Values{
		"display_name": {"Asha"},
		"email":        {"asha@test.local"},
		"password":     {"longenough"},
	}))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, auth.AfterSignupPath, res.Header().Get("Location"))
	require.Len(t, f.notifier.ids, 1)
	assert.Equal(t, f.notifier.ids[0].String(), sess.User())

	created := f.repo.users["asha@test.local"]
	require.NotNil(t, created)
	assert.Equal(t, "active", created.Status)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("longenough")))
}

func TestSignupRejectsDuplicateAndInvalid(t *testing.T) {
	f := newAuthFixture(t, &auth.User{ID: uuid.New(), Email: "taken@test.local"})

	res, _ := f.serve(t, postForm("/signup", url.Values{
		"display_name": {"Dup"},
		"email":        {"taken@test.local"},
		"password":     {"longenough"},
	}))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "already exists")

	res, _ = f.serve(t, postForm("/signup", url.Values{"email": {"nope"}, "password": {"short"}}))
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Password is too short")
	assert.Empty(t, f.notifier.ids)
}

func TestLogoutDestroysSession(t *testing.T) {
	f := newAuthFixture(t)
	res, sess := f.serve(t, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login", res.Header().Get("Location"))
	var cleared bool
	for _, c := range res.Result().Cookies() {
		if c.Name == f.sessions.CookieName() && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie cleared for %s", sess.ID)
}

func TestTerminalPages(t *testing.T) {
	f := newAuthFixture(t)
	for path, text := range map[string]string{"/pending-approval": "Waiting for approval", "/unauthorized": "Not allowed"} {
		res, _ := f.serve(t, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, res.Code, path)
		assert.Contains(t, res.Body.String(), text, path)
	}
}
