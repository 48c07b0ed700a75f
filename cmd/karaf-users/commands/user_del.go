package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/usersvc"
)

// NewUserDelCommand creates the 'user del' command
func NewUserDelCommand(cfg *config.Config) *cobra.Command {
	var (
		name  string
		force bool
	)

	cmd := &cobra.Command{
		Use:     "del",
		Aliases: []string{"delete", "rm"},
		Short:   "Delete a user",
		Long: `Delete a user from users.properties.

Asks for confirmation unless --force is given. Group entries cannot be
deleted with this command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

			user, err := username(cfg, p, name)
			if err != nil {
				return err
			}

			if !force && !cfg.DryRun {
				if cfg.NonInteractive {
					return kuerrors.UsageError{
						Message:    "Refusing to delete without confirmation",
						Suggestion: "Use --force",
					}
				}
				ok, err := p.confirm(fmt.Sprintf("Delete user %s?", user))
				if err != nil {
					return err
				}
				if !ok {
					cfg.Logger.Info("Aborted")
					return nil
				}
			}

			return withService(cfg, func(svc *usersvc.Service) error {
				res, err := svc.DeleteUser(cmd.Context(), user)
				if err != nil {
					return err
				}
				printChanges(cmd.OutOrStdout(), res)
				if !res.DryRun {
					cfg.Logger.Info("User %s deleted", user)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "username", "u", "", "User name")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete without asking")

	return cmd
}
