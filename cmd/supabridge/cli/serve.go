package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/supabridge/supabridge/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Supabridge API server",
		Long:  "Start the HTTP server that executes operation batches on behalf of remote callers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host-addr", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging, CORS *)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host-addr"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	client, err := newClient()
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	if origins := viper.GetStringSlice("server.cors_origins"); len(origins) > 0 && !dev {
		cfg.CORSOrigins = origins
	}
	if rpm := viper.GetInt("server.requests_per_minute"); rpm > 0 {
		cfg.RequestsPerMinute = rpm
	}

	srv := server.New(cfg, client, logger)
	logger.Info("starting server", "host", host, "port", port)
	return srv.ListenAndServe()
}
