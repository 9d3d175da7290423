package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/humpahadi/humpahadi/internal/auth"
	"github.com/humpahadi/humpahadi/internal/shared"
)

func TestBootstrapCreatesProfileWithRole(t *testing.T) {
	repo := newStubRepo()
	notifier := &recordingNotifier{}
	svc := auth.NewService(repo, notifier, nil)

	user, err := svc.Bootstrap(context.Background(), auth.SignupInput{
		DisplayName: " Root ",
		Email:       "Root@Humpahadi.test",
		Password:    "correct-horse",
	}, "super_admin")
	require.NoError(t, err)
	assert.Equal(t, "root@humpahadi.test", user.Email)
	assert.Equal(t, "Root", user.DisplayName)
	assert.Equal(t, "super_admin", repo.roles[user.ID])
	assert.Empty(t, notifier.ids, "seeded profiles skip the approval queue")
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))

	_, err = svc.Bootstrap(context.Background(), auth.SignupInput{Email: "root@humpahadi.test", Password: "another-one"}, "super_admin")
	assert.ErrorIs(t, err, shared.ErrEmailTaken)
}

func TestAuthenticateAllowsDisabledProfiles(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := newStubRepo(&auth.User{Email: "off@humpahadi.test", PasswordHash: string(hash), Status: "disabled"})
	svc := auth.NewService(repo, nil, nil)

	user, err := svc.Authenticate(context.Background(), " OFF@humpahadi.test ", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "disabled", user.Status)

	_, err = svc.Authenticate(context.Background(), "off@humpahadi.test", "wrong")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateSeparatesUnknownEmailFromStoreErrors(t *testing.T) {
	repo := newStubRepo()
	svc := auth.NewService(repo, nil, nil)

	_, err := svc.Authenticate(context.Background(), "nobody@humpahadi.test", "secret-pass")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	outage := errors.New("connection refused")
	repo.findErr = outage
	_, err = svc.Authenticate(context.Background(), "nobody@humpahadi.test", "secret-pass")
	assert.ErrorIs(t, err, outage)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}
