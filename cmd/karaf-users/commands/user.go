package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
)

// NewUserCommand creates the parent 'user' command
func NewUserCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Add, delete, edit and list users",
		Long: `Manage the principals of a Karaf users.properties file.

Passwords are hashed with the algorithm configured in
org.apache.karaf.jaas.cfg, so encryption must be enabled there.

Examples:
  karaf-users user add -u alice --roles admin,viewer --groups ops
  karaf-users user edit -u alice --add-roles manager --set-password
  karaf-users user del -u alice --force
  karaf-users user list --no-resolve-groups`,
	}

	cmd.AddCommand(
		NewUserAddCommand(cfg),
		NewUserDelCommand(cfg),
		NewUserEditCommand(cfg),
		NewUserListCommand(cfg),
	)

	return cmd
}
