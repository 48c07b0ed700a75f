package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
	"github.com/systmms/karafusers/internal/usersvc"
)

// NewCheckCommand creates the check command
func NewCheckCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate users.properties and the encryption settings",
		Long: `Check that users.properties is safe to manage and parses cleanly, and
that org.apache.karaf.jaas.cfg enables a supported password hash.

Nothing is written. The exit code tells which check failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cfg, func(svc *usersvc.Service) error {
				report, err := svc.Check(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintf(w, "Users file:\t%s\n", report.UsersFile)
				_, _ = fmt.Fprintf(w, "JAAS config:\t%s\n", report.JaasCfg)
				_, _ = fmt.Fprintf(w, "Provider:\t%s\n", report.Provider)
				_, _ = fmt.Fprintf(w, "Algorithm:\t%s\n", report.Algorithm)
				_, _ = fmt.Fprintf(w, "Users:\t%d\n", report.Users)
				_, _ = fmt.Fprintf(w, "Groups:\t%d\n", report.Groups)
				_ = w.Flush()

				cfg.Logger.Info("All checks passed")
				return nil
			})
		},
	}

	return cmd
}
