package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/humpahadi/humpahadi/internal/rbac"
)

type roleRow struct {
	Role         string `json:"role"`
	Label        string `json:"label"`
	Priority     int    `json:"priority"`
	DefaultRoute string `json:"default_route"`
}

func newRolesCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List, grant and revoke roles",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the role catalog in priority order",
			RunE: func(cmd *cobra.Command, args []string) error {
				return listRoles(opts)
			},
		},
		newRoleChangeCommand(opts, "grant", "Grant a role to the profile with the given email",
			func(ctx context.Context, dir Directory, p rbac.Principal, role string) error {
				return dir.AssignRole(ctx, rbac.SystemActor(), p.ID, role)
			}),
		newRoleChangeCommand(opts, "revoke", "Revoke a role from the profile with the given email",
			func(ctx context.Context, dir Directory, p rbac.Principal, role string) error {
				return dir.RevokeRole(ctx, rbac.SystemActor(), p.ID, role)
			}),
	)
	return cmd
}

func listRoles(opts *options) error {
	var rows []roleRow
	for _, role := range rbac.AllRoles() {
		info, err := rbac.Info(role)
		if err != nil {
			return err
		}
		route, err := rbac.DefaultRouteFor(role)
		if err != nil {
			return err
		}
		rows = append(rows, roleRow{Role: string(role), Label: info.Label, Priority: info.Priority, DefaultRoute: route})
	}
	if opts.json {
		return opts.printJSON(rows)
	}
	w := newTable(opts.env.Stdout, "ROLE", "LABEL", "PRIORITY", "DEFAULT ROUTE")
	for _, row := range rows {
		w.row(row.Role, row.Label, strconv.Itoa(row.Priority), row.DefaultRoute)
	}
	return w.flush()
}

type roleChange func(ctx context.Context, dir Directory, p rbac.Principal, role string) error

func newRoleChangeCommand(opts *options, verb, short string, apply roleChange) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " EMAIL ROLE",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir, err := opts.directory(ctx)
			if err != nil {
				return err
			}
			principal, err := dir.PrincipalByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := apply(ctx, dir, principal, args[1]); err != nil {
				return fmt.Errorf("%s %s: %w", verb, args[1], err)
			}
			opts.printf("%s: %s %s\n", principal.Email, verb, args[1])
			return nil
		},
	}
}
