package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/usersvc"
)

// NewVerifyCommand creates the verify command, which checks a password
// against the stored hash. A mismatch exits with the validation code.
func NewVerifyCommand(cfg *config.Config) *cobra.Command {
	var (
		name string
		pass string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check a user's password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

			user, err := username(cfg, p, name)
			if err != nil {
				return err
			}
			pw, err := password(cfg, p, pass, false)
			if err != nil {
				return err
			}
			defer pw.Destroy()

			return withService(cfg, func(svc *usersvc.Service) error {
				ok, err := svc.VerifyPassword(cmd.Context(), user, pw)
				if err != nil {
					return err
				}
				if !ok {
					return kuerrors.ValidationError{Kind: kuerrors.ErrPasswordMismatch, Subject: user}
				}
				cfg.Logger.Info("Password for %s matches", user)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "username", "u", "", "User name")
	cmd.Flags().StringVarP(&pass, "password", "p", "", "Password (prompted when omitted)")

	return cmd
}
