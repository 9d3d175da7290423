package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/humpahadi/humpahadi/internal/auth"
	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/jobs"
)

type fakeDirectory struct {
	principals map[string]rbac.Principal
	granted    []string
	revoked    []string
	statuses   []string
}

func (f *fakeDirectory) PrincipalByEmail(_ context.Context, email string) (rbac.Principal, error) {
	p, ok := f.principals[email]
	if !ok {
		return rbac.Principal{}, rbac.ErrNotFound
	}
	return p, nil
}

func (f *fakeDirectory) ListPrincipals(context.Context) ([]rbac.Principal, error) {
	out := make([]rbac.Principal, 0, len(f.principals))
	for _, p := range f.principals {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeDirectory) AssignRole(_ context.Context, actor rbac.Actor, _ uuid.UUID, raw string) error {
	if !actor.System {
		return rbac.ErrForbiddenGrant
	}
	if _, err := rbac.ParseRole(raw); err != nil {
		return err
	}
	f.granted = append(f.granted, raw)
	return nil
}

func (f *fakeDirectory) RevokeRole(_ context.Context, _ rbac.Actor, _ uuid.UUID, raw string) error {
	f.revoked = append(f.revoked, raw)
	return nil
}

func (f *fakeDirectory) SetStatus(_ context.Context, _ rbac.Actor, _ uuid.UUID, raw string) error {
	f.statuses = append(f.statuses, raw)
	return nil
}

type fakeAccounts struct {
	input auth.SignupInput
	role  string
}

func (f *fakeAccounts) Bootstrap(_ context.Context, input auth.SignupInput, role string) (*auth.User, error) {
	f.input, f.role = input, role
	return &auth.User{ID: uuid.New(), Email: input.Email}, nil
}

type fakeQueue struct {
	days int
}

func (f *fakeQueue) Stats() ([]jobs.QueueStat, error) {
	return []jobs.QueueStat{{Queue: jobs.QueueDefault, Pending: 7}, {Queue: jobs.QueueLow}}, nil
}

func (f *fakeQueue) EnqueueAuditPrune(_ context.Context, days int) (*asynq.TaskInfo, error) {
	f.days = days
	return &asynq.TaskInfo{ID: "t1", Type: jobs.TaskAuditPrune, Queue: jobs.QueueLow}, nil
}

type harness struct {
	dir      *fakeDirectory
	accounts *fakeAccounts
	queue    *fakeQueue
	stdout   *bytes.Buffer
}

func newHarness() *harness {
	return &harness{
		dir: &fakeDirectory{principals: map[string]rbac.Principal{
			"mod@humpahadi.test": {ID: uuid.New(), Email: "mod@humpahadi.test", Status: rbac.StatusActive, Roles: rbac.NewRoleSet(rbac.RoleModerator)},
		}},
		accounts: &fakeAccounts{},
		queue:    &fakeQueue{},
		stdout:   new(bytes.Buffer),
	}
}

func (h *harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.stdout.Reset()
	root := NewRootCommand(Env{
		Stdout:    h.stdout,
		Stderr:    new(bytes.Buffer),
		Directory: func(context.Context) (Directory, error) { return h.dir, nil },
		Accounts:  func(context.Context) (Accounts, error) { return h.accounts, nil },
		Queue:     func(context.Context) (Queue, error) { return h.queue, nil },
	})
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestAccessCheckJSON(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "access", "check", "--path", "/admin/seo", "--role", "moderator", "--json"))

	var decision rbac.Decision
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &decision))
	assert.Equal(t, rbac.StateRedirectedToDefault, decision.State)
	assert.Equal(t, "/admin/community-submissions", decision.Redirect)
}

func TestAccessCheckAnonymous(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "access", "check", "--path", "/admin", "--anonymous"))
	assert.Contains(t, h.stdout.String(), "unauthenticated")
	assert.Contains(t, h.stdout.String(), "/login")
}

func TestAccessCheckRejectsUnknownRole(t *testing.T) {
	h := newHarness()
	err := h.run(t, "access", "check", "--path", "/admin", "--role", "overlord")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlord")

	assert.Error(t, h.run(t, "access", "check"))
}

func TestAccessSections(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "access", "sections"))
	assert.Contains(t, h.stdout.String(), "/admin/community-submissions")
	assert.Contains(t, h.stdout.String(), "(admins only)")
}

func TestRolesList(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "roles", "list", "--json"))

	var rows []roleRow
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &rows))
	require.NotEmpty(t, rows)
	assert.Equal(t, "super_admin", rows[0].Role)
	assert.Equal(t, 0, rows[0].Priority)
}

func TestRolesGrantAndRevoke(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "roles", "grant", "mod@humpahadi.test", "reviewer"))
	assert.Equal(t, []string{"reviewer"}, h.dir.granted)
	assert.Contains(t, h.stdout.String(), "grant reviewer")

	require.NoError(t, h.run(t, "roles", "revoke", "mod@humpahadi.test", "moderator"))
	assert.Equal(t, []string{"moderator"}, h.dir.revoked)

	err := h.run(t, "roles", "grant", "ghost@humpahadi.test", "reviewer")
	assert.ErrorIs(t, err, rbac.ErrNotFound)

	err = h.run(t, "roles", "grant", "mod@humpahadi.test", "overlord")
	assert.ErrorIs(t, err, rbac.ErrUnknownRole)
}

func TestUsersListAndStatus(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "users", "list"))
	assert.Contains(t, h.stdout.String(), "mod@humpahadi.test")
	assert.Contains(t, h.stdout.String(), "moderator")

	require.NoError(t, h.run(t, "users", "status", "mod@humpahadi.test", "disabled"))
	assert.Equal(t, []string{"disabled"}, h.dir.statuses)
}

func TestUsersBootstrap(t *testing.T) {
	h := newHarness()
	assert.Error(t, h.run(t, "users", "bootstrap", "--email", "root@humpahadi.test", "--password", "short"))

	t.Setenv(BootstrapPasswordEnv, "long-enough-secret")
	require.NoError(t, h.run(t, "users", "bootstrap", "--email", "root@humpahadi.test"))
	assert.Equal(t, "super_admin", h.accounts.role)
	assert.Equal(t, "long-enough-secret", h.accounts.input.Password)
	assert.Contains(t, h.stdout.String(), "created super admin root@humpahadi.test")
}

func TestJobsCommands(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.run(t, "jobs", "stats"))
	assert.Contains(t, h.stdout.String(), "default")
	assert.Contains(t, h.stdout.String(), "7")

	require.NoError(t, h.run(t, "jobs", "prune-audit", "--days", "30"))
	assert.Equal(t, 30, h.queue.days)
	assert.Contains(t, h.stdout.String(), jobs.TaskAuditPrune)
}
