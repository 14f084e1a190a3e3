package cli

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/supabridge/supabridge/internal/config"
	"github.com/supabridge/supabridge/internal/supabase"
)

// Persistent flag values, set on the root command.
var (
	dataDir        string
	flagHost       string
	flagServiceKey string
	flagSchema     string
	flagProfile    string
)

// resolveDataDir returns the data directory from the --data-dir flag,
// SUPABRIDGE_DATA_DIR env var, or ~/.supabridge as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if envDir := os.Getenv("SUPABRIDGE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return home + "/.supabridge"
}

// openProfileStore opens the SQLite profile store under the data directory.
func openProfileStore() (*config.Store, error) {
	return config.NewStore(resolveDataDir())
}

// resolveCredentials assembles backend credentials from flags, the named
// profile, and environment/config values, in that precedence order.
// Non-fatal findings (unrecognized host, suspicious service key) come back
// as warnings.
func resolveCredentials() (supabase.Credentials, []string, error) {
	creds := supabase.Credentials{
		Host:       flagHost,
		ServiceKey: flagServiceKey,
		Schema:     flagSchema,
	}

	if flagProfile != "" {
		store, err := openProfileStore()
		if err != nil {
			return supabase.Credentials{}, nil, fmt.Errorf("open profile store: %w", err)
		}
		defer store.Close()

		profile, err := store.GetProfile(flagProfile)
		if err != nil {
			return supabase.Credentials{}, nil, fmt.Errorf("load profile %q: %w", flagProfile, err)
		}
		saved := profile.Credentials()
		if creds.Host == "" {
			creds.Host = saved.Host
		}
		if creds.ServiceKey == "" {
			creds.ServiceKey = saved.ServiceKey
		}
		if creds.Schema == "" {
			creds.Schema = saved.Schema
		}
	}

	if creds.Host == "" {
		creds.Host = viper.GetString("host")
	}
	if creds.ServiceKey == "" {
		creds.ServiceKey = viper.GetString("service_key")
	}
	if creds.Schema == "" {
		creds.Schema = viper.GetString("schema")
	}

	warnings, err := config.ValidateCredentials(creds)
	if err != nil {
		return supabase.Credentials{}, warnings, err
	}
	return creds, warnings, nil
}

// newClient resolves credentials and builds the backend client, printing
// credential warnings to stderr.
func newClient() (*supabase.Client, error) {
	creds, warnings, err := resolveCredentials()
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	return supabase.New(creds)
}
