package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
	"github.com/systmms/karafusers/internal/usersvc"
)

// NewUserAddCommand creates the 'user add' command
func NewUserAddCommand(cfg *config.Config) *cobra.Command {
	var (
		name   string
		pass   string
		roles  []string
		groups []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a user with a hashed password",
		Long: `Add a user to users.properties.

The password is prompted for twice unless --password is given. Groups must
already exist in the file.

Passwords can only be written with bcrypt, pbkdf2 or scrypt. argon2 hashes
contain ',' which users.properties cannot hold, so with
encryption.algorithm=argon2 this command fails; run 'karaf-users check'
to see the configured algorithm.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

			user, err := username(cfg, p, name)
			if err != nil {
				return err
			}
			pw, err := password(cfg, p, pass, true)
			if err != nil {
				return err
			}
			defer pw.Destroy()

			return withService(cfg, func(svc *usersvc.Service) error {
				res, err := svc.AddUser(cmd.Context(), user, pw, cleanList(roles), cleanList(groups))
				if err != nil {
					return err
				}
				printChanges(cmd.OutOrStdout(), res)
				if !res.DryRun {
					cfg.Logger.Info("User %s added", user)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "username", "u", "", "User name")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "Comma-separated roles")
	cmd.Flags().StringSliceVar(&groups, "groups", nil, "Comma-separated groups to join")

	return cmd
}
