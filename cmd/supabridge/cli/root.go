package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "supabridge",
		Short: "Batch operation gateway for Supabase",
		Long: `Supabridge executes batches of database and storage operations against a
Supabase project. Database operations go through the PostgREST API and the
exec_sql RPC pair; storage operations go through the storage object API.

Credentials come from flags, a saved profile, or SUPABRIDGE_HOST and
SUPABRIDGE_SERVICE_KEY environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./supabridge.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the profile store (default: ~/.supabridge)")
	cmd.PersistentFlags().StringVar(&flagHost, "host", "", "Supabase project URL (e.g. https://xyz.supabase.co)")
	cmd.PersistentFlags().StringVar(&flagServiceKey, "service-key", "", "Supabase service role key")
	cmd.PersistentFlags().StringVar(&flagSchema, "schema", "", "PostgreSQL schema (default: public)")
	cmd.PersistentFlags().StringVar(&flagProfile, "profile", "", "named credential profile to use")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newOpenAPICmd())
	cmd.AddCommand(newProfileCmd())
	cmd.AddCommand(newVersionCmd(version, commit, date))

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("supabridge")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.supabridge")
	}

	viper.SetEnvPrefix("SUPABRIDGE")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
