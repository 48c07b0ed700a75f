package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/logging"
	"github.com/systmms/karafusers/internal/secure"
	"github.com/systmms/karafusers/internal/usersvc"
	"github.com/systmms/karafusers/internal/userstore"
)

// LogInvocation writes argv at debug level with any --password value
// redacted.
func LogInvocation(cmd *cobra.Command, logger *logging.Logger, argv []string) {
	if !logger.DebugEnabled() {
		return
	}
	var secrets []string
	if f := cmd.Flags().Lookup("password"); f != nil && f.Changed {
		secrets = append(secrets, f.Value.String())
	}
	logger.Debug("Running: %s", logging.Redact(strings.Join(argv, " "), secrets))
}

// withService resolves the file paths, runs fn against a Service and writes
// the run's metrics when --metrics-file is set.
func withService(cfg *config.Config, fn func(svc *usersvc.Service) error) error {
	usersFile, jaasCfg := cfg.ResolvePaths()
	if err := config.AssertExists(usersFile, config.UsersFileName); err != nil {
		return err
	}
	cfg.Logger.Debug("Users file: %s", usersFile)
	cfg.Logger.Debug("JAAS config: %s", jaasCfg)

	var metrics *usersvc.Metrics
	if cfg.MetricsFile != "" {
		metrics = usersvc.NewMetrics()
	}

	svc := usersvc.New(usersvc.Options{
		UsersFile: usersFile,
		JaasCfg:   jaasCfg,
		Backup:    cfg.Backup,
		DryRun:    cfg.DryRun,
		Logger:    cfg.Logger,
		Metrics:   metrics,
	})

	err := fn(svc)
	if metrics != nil {
		if werr := metrics.WriteToTextfile(cfg.MetricsFile); werr != nil {
			cfg.Logger.Warn("Failed to write metrics: %v", werr)
		}
	}
	return err
}

// username returns the flag value or prompts for one.
func username(cfg *config.Config, p *prompter, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	if cfg.NonInteractive {
		return "", kuerrors.UsageError{Message: "Username is required", Suggestion: "Use --username"}
	}
	name, err := p.line("Username")
	if err != nil {
		return "", err
	}
	if name = strings.TrimSpace(name); name == "" {
		return "", kuerrors.UsageError{Message: "Username is required"}
	}
	return name, nil
}

// password returns the flag value, or prompts (twice when confirm is set).
func password(cfg *config.Config, p *prompter, value string, confirm bool) (*secure.Password, error) {
	if value != "" {
		cfg.Logger.Warn("Passing a password on the command line exposes it to other local users")
		return secure.PasswordFromString(value), nil
	}
	if cfg.NonInteractive {
		return nil, kuerrors.UsageError{Message: "Password is required", Suggestion: "Use --password"}
	}
	if confirm {
		return p.newPassword()
	}
	return p.password("Password")
}

// cleanList trims entries and drops empty ones, so "--roles a, b," works.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func printChanges(w io.Writer, res usersvc.Result) {
	if !res.DryRun {
		return
	}
	if len(res.Changes) == 0 {
		fmt.Fprintln(w, "Dry run: no changes")
		return
	}
	for _, c := range res.Changes {
		line := fmt.Sprintf("Dry run: would %s %s %s", verb(c.Op), c.Kind, c.Key)
		if c.CredentialChanged {
			line += " (password changed)"
		}
		fmt.Fprintln(w, line)
	}
}

func verb(op userstore.ChangeOp) string {
	switch op {
	case userstore.Added:
		return "add"
	case userstore.Removed:
		return "remove"
	}
	return "modify"
}
