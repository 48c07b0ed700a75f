package commands

import (
	"fmt"
	"io"
	"iter"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/systmms/karafusers/internal/config"
	kuerrors "github.com/systmms/karafusers/internal/errors"
	"github.com/systmms/karafusers/internal/usersvc"
	"github.com/systmms/karafusers/internal/userstore"
	"gopkg.in/yaml.v3"
)

type listItem struct {
	Name        string   `yaml:"name"`
	HasPassword bool     `yaml:"hasPassword"`
	Roles       []string `yaml:"roles"`
	Groups      []string `yaml:"groups,omitempty"`
}

// NewUserListCommand creates the 'user list' command
func NewUserListCommand(cfg *config.Config) *cobra.Command {
	var (
		noResolve  bool
		listGroups bool
		output     string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List users and their roles",
		Long: `List the users of users.properties.

By default group memberships are expanded into the group's roles. Use
--no-resolve-groups to show the raw entries, or --groups to list the
groups themselves. Credentials are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "table" && output != "yaml" {
				return kuerrors.UsageError{
					Message:    fmt.Sprintf("unknown output format %q", output),
					Suggestion: "Use --output table or --output yaml",
				}
			}

			return withService(cfg, func(svc *usersvc.Service) error {
				var (
					seq iter.Seq[userstore.Entry]
					err error
				)
				if listGroups {
					seq, err = svc.ListGroups(cmd.Context())
				} else {
					seq, err = svc.ListUsers(cmd.Context(), !noResolve)
				}
				if err != nil {
					return err
				}

				items := []listItem{}
				for e := range seq {
					roles := e.Roles
					if roles == nil {
						roles = []string{}
					}
					items = append(items, listItem{Name: e.Name, HasPassword: e.HasCredential, Roles: roles, Groups: e.Groups})
				}

				if output == "yaml" {
					enc := yaml.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent(2)
					if err := enc.Encode(items); err != nil {
						return fmt.Errorf("encoding yaml: %w", err)
					}
					return enc.Close()
				}
				printTable(cmd.OutOrStdout(), items, listGroups)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noResolve, "no-resolve-groups", false, "Show group references instead of their roles")
	cmd.Flags().BoolVar(&listGroups, "groups", false, "List groups instead of users")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or yaml")

	return cmd
}

func printTable(out io.Writer, items []listItem, groups bool) {
	if len(items) == 0 {
		if groups {
			_, _ = fmt.Fprintln(out, "No groups")
		} else {
			_, _ = fmt.Fprintln(out, "No users")
		}
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if groups {
		_, _ = fmt.Fprintf(w, "GROUP\tROLES\n")
		_, _ = fmt.Fprintf(w, "-----\t-----\n")
		for _, it := range items {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", it.Name, strings.Join(it.Roles, ","))
		}
	} else {
		_, _ = fmt.Fprintf(w, "USER\tPASSWORD\tROLES\tGROUPS\n")
		_, _ = fmt.Fprintf(w, "----\t--------\t-----\t------\n")
		for _, it := range items {
			pw := "set"
			if !it.HasPassword {
				pw = "none"
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.Name, pw, strings.Join(it.Roles, ","), strings.Join(it.Groups, ","))
		}
	}
	_ = w.Flush()
}
