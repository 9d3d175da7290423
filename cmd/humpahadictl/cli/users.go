package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/humpahadi/humpahadi/internal/auth"
	"github.com/humpahadi/humpahadi/internal/rbac"
)

// BootstrapPasswordEnv supplies the bootstrap password without a flag.
const BootstrapPasswordEnv = "HUMPAHADI_BOOTSTRAP_PASSWORD"

func newUsersCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and seed profiles",
	}
	cmd.AddCommand(newUsersListCommand(opts), newUsersBootstrapCommand(opts), newUsersStatusCommand(opts))
	return cmd
}

func newUsersListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List profiles with their roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dir, err := opts.directory(ctx)
			if err != nil {
				return err
			}
			principals, err := dir.ListPrincipals(ctx)
			if err != nil {
				return err
			}
			sort.Slice(principals, func(i, j int) bool { return principals[i].Email < principals[j].Email })
			views := make([]rbac.PrincipalView, 0, len(principals))
			for _, p := range principals {
				view, err := rbac.ViewOf(p)
				if err != nil {
					return err
				}
				views = append(views, view)
			}
			if opts.json {
				return opts.printJSON(views)
			}
			w := newTable(opts.env.Stdout, "EMAIL", "STATUS", "ROLES", "DEFAULT ROUTE")
			for _, v := range views {
				names := make([]string, 0, len(v.Roles))
				for _, role := range v.Roles {
					names = append(names, role.Role)
				}
				w.row(v.Email, v.Status, strings.Join(names, ","), v.DefaultRoute)
			}
			return w.flush()
		},
	}
}

func newUsersBootstrapCommand(opts *options) *cobra.Command {
	var input auth.SignupInput
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first super admin",
		Long: `Create an active profile holding the super_admin role. Nobody can grant
super_admin through the panel until one exists. The password is read from
--password or ` + BootstrapPasswordEnv + `.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input.Password == "" {
				input.Password = os.Getenv(BootstrapPasswordEnv)
			}
			if err := validator.New().Struct(input); err != nil {
				return fmt.Errorf("invalid bootstrap input: %w", err)
			}
			ctx := cmd.Context()
			accounts, err := opts.accounts(ctx)
			if err != nil {
				return err
			}
			user, err := accounts.Bootstrap(ctx, input, string(rbac.RoleSuperAdmin))
			if err != nil {
				return err
			}
			opts.printf("created super admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&input.DisplayName, "name", "Administrator", "Display name")
	cmd.Flags().StringVar(&input.Password, "password", "", "Password (min 8 characters)")
	return cmd
}

func newUsersStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status EMAIL STATUS",
		Short: "Set a profile status (active, disabled, pending)",
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
			if err := dir.SetStatus(ctx, rbac.SystemActor(), principal.ID, args[1]); err != nil {
				return err
			}
			opts.printf("%s: status %s\n", principal.Email, args[1])
			return nil
		},
	}
}
