package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/supabridge/supabridge/internal/config"
	"github.com/supabridge/supabridge/internal/supabase"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved credential profiles",
		Long: `Manage named credential profiles stored in the local data directory.
A profile bundles a project host, service key, and schema so batches can be
run with --profile instead of repeating credentials.`,
	}

	cmd.AddCommand(newProfileAddCmd())
	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileRemoveCmd())

	return cmd
}

func newProfileAddCmd() *cobra.Command {
	var (
		host       string
		serviceKey string
		schema     string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a credential profile",
		Example: `  supabridge profile add prod --host https://xyz.supabase.co
  supabridge profile add local --host http://localhost:54321 --schema public`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileAdd(cmd, args[0], host, serviceKey, schema)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Supabase project URL")
	cmd.Flags().StringVar(&serviceKey, "service-key", "", "service role key (prompted for when omitted)")
	cmd.Flags().StringVar(&schema, "schema", "public", "PostgreSQL schema")
	cmd.MarkFlagRequired("host")

	return cmd
}

func runProfileAdd(cmd *cobra.Command, name, host, serviceKey, schema string) error {
	if serviceKey == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Service key: ")
		keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return fmt.Errorf("read service key: %w", err)
		}
		serviceKey = strings.TrimSpace(string(keyBytes))
	}

	creds := supabase.Credentials{Host: host, ServiceKey: serviceKey, Schema: schema}
	warnings, err := config.ValidateCredentials(creds)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}

	store, err := openProfileStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveProfile(config.Profile{
		Name:       name,
		Host:       host,
		ServiceKey: serviceKey,
		Schema:     schema,
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Profile %q saved.\n", name)
	return nil
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openProfileStore()
			if err != nil {
				return err
			}
			defer store.Close()

			profiles, err := store.ListProfiles()
			if err != nil {
				return err
			}
			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles saved.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tHOST\tSCHEMA\tUPDATED")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					p.Name, p.Host, p.Schema, p.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newProfileRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openProfileStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteProfile(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile %q removed.\n", args[0])
			return nil
		},
	}
}
