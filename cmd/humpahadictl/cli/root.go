// Package cli implements the humpahadictl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/humpahadi/humpahadi/internal/auth"
	"github.com/humpahadi/humpahadi/internal/rbac"
	"github.com/humpahadi/humpahadi/jobs"
)

// Directory is the role administration surface of rbac.Service.
type Directory interface {
	PrincipalByEmail(ctx context.Context, email string) (rbac.Principal, error)
	ListPrincipals(ctx context.Context) ([]rbac.Principal, error)
	AssignRole(ctx context.Context, actor rbac.Actor, userID uuid.UUID, raw string) error
	RevokeRole(ctx context.Context, actor rbac.Actor, userID uuid.UUID, raw string) error
	SetStatus(ctx context.Context, actor rbac.Actor, userID uuid.UUID, raw string) error
}

// Accounts seeds profiles outside the signup flow.
type Accounts interface {
	Bootstrap(ctx context.Context, input auth.SignupInput, role string) (*auth.User, error)
}

// Queue exposes job queue operations.
type Queue interface {
	Stats() ([]jobs.QueueStat, error)
	EnqueueAuditPrune(ctx context.Context, retentionDays int) (*asynq.TaskInfo, error)
}

// Env carries output streams and lazily opened backends. Backends are only
// opened by the commands that need them.
type Env struct {
	Stdout    io.Writer
	Stderr    io.Writer
	Directory func(ctx context.Context) (Directory, error)
	Accounts  func(ctx context.Context) (Accounts, error)
	Queue     func(ctx context.Context) (Queue, error)
}

type options struct {
	env  Env
	json bool
}

// NewRootCommand assembles the command tree.
func NewRootCommand(env Env) *cobra.Command {
	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}
	if env.Stderr == nil {
		env.Stderr = os.Stderr
	}
	opts := &options{env: env}
	root := &cobra.Command{
		Use:           "humpahadictl",
		Short:         "Operator tooling for the Humpahadi admin panel",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `humpahadictl manages role assignments, inspects route guard decisions
and looks after the background job queue.

Environment Variables:
  PG_DSN      Postgres connection string
  REDIS_ADDR  Redis address for the role cache and job queue`,
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "Output JSON instead of human-readable text")

	root.AddCommand(newAccessCommand(opts), newRolesCommand(opts), newUsersCommand(opts), newJobsCommand(opts))
	return root
}

func (o *options) directory(ctx context.Context) (Directory, error) {
	if o.env.Directory == nil {
		return nil, errors.New("profile directory not configured")
	}
	return o.env.Directory(ctx)
}

func (o *options) accounts(ctx context.Context) (Accounts, error) {
	if o.env.Accounts == nil {
		return nil, errors.New("account store not configured")
	}
	return o.env.Accounts(ctx)
}

func (o *options) queue(ctx context.Context) (Queue, error) {
	if o.env.Queue == nil {
		return nil, errors.New("job queue not configured")
	}
	return o.env.Queue(ctx)
}

func (o *options) printJSON(v any) error {
	enc := json.NewEncoder(o.env.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (o *options) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.env.Stdout, format, args...)
}
