package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/secure"
	"github.com/systmms/karafusers/internal/usersvc"
)

// NewUserEditCommand creates the 'user edit' command
func NewUserEditCommand(cfg *config.Config) *cobra.Command {
	var (
		name         string
		pass         string
		setPassword  bool
		addRoles     []string
		removeRoles  []string
		addGroups    []string
		removeGroups []string
	)

	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Change a user's roles, groups or password",
		Long: `Edit an existing user.

Removals are applied after additions, so naming a role in both
--add-roles and --remove-roles removes it. Use --set-password to be
prompted for a new password.

Passwords can only be written with bcrypt, pbkdf2 or scrypt. argon2 hashes
contain ',' which users.properties cannot hold, so with
encryption.algorithm=argon2 changing a password fails; run 'karaf-users check'
to see the configured algorithm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pass != "" && setPassword {
				return kuerrors.UsageError{
					Message:    "--password and --set-password are mutually exclusive",
					Suggestion: "Pass one of them",
				}
			}

			req := usersvc.EditRequest{
				AddRoles:     cleanList(addRoles),
				RemoveRoles:  cleanList(removeRoles),
				AddGroups:    cleanList(addGroups),
				RemoveGroups: cleanList(removeGroups),
			}
			wantPassword := pass != "" || setPassword
			if !wantPassword && len(req.AddRoles)+len(req.RemoveRoles)+len(req.AddGroups)+len(req.RemoveGroups) == 0 {
				return kuerrors.UsageError{
					Message:    "Nothing to change",
					Suggestion: "Use --add-roles, --remove-roles, --add-groups, --remove-groups or --set-password",
				}
			}

			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			user, err := username(cfg, p, name)
			if err != nil {
				return err
			}

			if wantPassword {
				var pw *secure.Password
				pw, err = password(cfg, p, pass, true)
				if err != nil {
					return err
				}
				defer pw.Destroy()
				req.Password = pw
			}

			return withService(cfg, func(svc *usersvc.Service) error {
				res, err := svc.EditUser(cmd.Context(), user, req)
				if err != nil {
					return err
				}
				printChanges(cmd.OutOrStdout(), res)
				if !res.DryRun {
					cfg.Logger.Info("User %s updated", user)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "username", "u", "", "User name")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "New password")
	cmd.Flags().BoolVar(&setPassword, "set-password", false, "Prompt for a new password")
	cmd.Flags().StringSliceVar(&addRoles, "add-roles", nil, "Roles to add")
	cmd.Flags().StringSliceVar(&removeRoles, "remove-roles", nil, "Roles to remove")
	cmd.Flags().StringSliceVar(&addGroups, "add-groups", nil, "Groups to join")
	cmd.Flags().StringSliceVar(&removeGroups, "remove-groups", nil, "Groups to leave")

	return cmd
}
