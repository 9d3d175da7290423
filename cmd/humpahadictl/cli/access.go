package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/humpahadi/humpahadi/internal/rbac"
)

func newAccessCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Inspect route guard decisions",
	}
	cmd.AddCommand(newAccessCheckCommand(opts), newAccessSectionsCommand(opts))
	return cmd
}

func newAccessCheckCommand(opts *options) *cobra.Command {
	var (
		path      string
		roles     []string
		status    string
		anonymous bool
		strict    bool
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate the guard for a path and a role set",
		Example: `  humpahadictl access check --path /admin/seo --role moderator
  humpahadictl access check --path /admin --anonymous`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return fmt.Errorf("--path is required")
			}
			set, ignored := rbac.ParseRoles(roles)
			if len(ignored) > 0 {
				return fmt.Errorf("unknown roles: %s", strings.Join(ignored, ", "))
			}
			snap := rbac.Snapshot{Loaded: true}
			if !anonymous {
				snap.Authenticated = true
				snap.Status = rbac.ProfileStatus(status)
				snap.Roles = set
			}
			guard, err := rbac.NewGuard(rbac.GuardConfig{Sections: rbac.DefaultSections, Strict: strict})
			if err != nil {
				return err
			}
			decision, err := guard.Decide(snap, path)
			if err != nil {
				return err
			}
			if opts.json {
				return opts.printJSON(decision)
			}
			opts.printf("state:    %s\n", decision.State)
			if decision.Redirect != "" {
				opts.printf("redirect: %s\n", decision.Redirect)
			}
			if decision.Cause != "" {
				opts.printf("cause:    %s\n", decision.Cause)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "Path to evaluate")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "Role held by the principal (repeatable)")
	cmd.Flags().StringVar(&status, "status", string(rbac.StatusActive), "Profile status")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Evaluate for a visitor without a session")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of falling back to the home page")
	return cmd
}

type sectionRow struct {
	Prefix string   `json:"prefix"`
	Name   string   `json:"name"`
	Roles  []string `json:"roles"`
}

func newAccessSectionsCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the guarded admin sections and the roles they admit",
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []sectionRow
			for _, section := range rbac.DefaultSections.Entries() {
				rows = append(rows, sectionRow{Prefix: section.Prefix, Name: section.Name, Roles: section.Allowed.Strings()})
			}
			if opts.json {
				return opts.printJSON(rows)
			}
			w := newTable(opts.env.Stdout, "PREFIX", "NAME", "ROLES")
			for _, row := range rows {
				allowed := strings.Join(row.Roles, ",")
				if allowed == "" {
					allowed = "(admins only)"
				}
				w.row(row.Prefix, row.Name, allowed)
			}
			return w.flush()
		},
	}
}
