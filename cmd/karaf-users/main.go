package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/cmd/karaf-users/commands"
	"github.com/systmms/karafusers/internal/config"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe enclaves if the process is interrupted mid-prompt.
	memguard.CatchInterrupt()

	err := run()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", kuerrors.SimplifyError(err))
		os.Exit(kuerrors.ExitCode(err))
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		verbose        bool
		nonInteractive bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "karaf-users",
		Short: "Manage Apache Karaf users.properties safely",
		Long: `karaf-users adds, removes, edits and lists users in an Apache Karaf
users.properties file, hashing passwords the way org.apache.karaf.jaas.cfg
tells Karaf to verify them.

Every change refuses to touch a file that is not a regular 0600 file owned by
the current user, and replaces it atomically.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(debug, noColor)
			logger.SetVerbose(verbose)

			env, err := config.EnvFromOS()
			if err != nil {
				return err
			}

			commands.LogInvocation(cmd, logger, os.Args)

			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
			cfg.Env = env
			cfg.Path = configFile

			if err := cfg.Load(cmd.Flags().Changed("config")); err != nil {
				return err
			}
			cfg.Merge(cmd.Flags().Changed)
			return nil
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return kuerrors.UsageError{Message: err.Error(), Suggestion: fmt.Sprintf("Run '%s --help'", cmd.CommandPath())}
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.UsersFile, "users-file", "", "Path to users.properties (default: $KARAF_ETC/users.properties or ./etc/users.properties)")
	flags.StringVar(&cfg.JaasCfg, "jaas-cfg", "", "Path to org.apache.karaf.jaas.cfg (default: $KARAF_JAAS_CFG or next to users.properties)")
	flags.BoolVar(&cfg.Backup, "backup", false, "Keep a timestamped backup before changing the file")
	flags.BoolVar(&cfg.DryRun, "dry-run", false, "Show what would change without writing")
	flags.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus metrics for this run to a textfile")
	flags.StringVar(&configFile, "config", config.DefaultPath(), "Tool config file path")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show backup paths and other details")
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&debug, "debug", false, "Enable debug logging")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "Never prompt; missing input is an error")

	rootCmd.AddCommand(
		commands.NewUserCommand(cfg),
		commands.NewVerifyCommand(cfg),
		commands.NewCheckCommand(cfg),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
