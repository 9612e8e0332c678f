package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ameliorate/infrastructure/config"
	"ameliorate/infrastructure/di"
	"ameliorate/interfaces/http/server"
	"ameliorate/pkg/auth"
)

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "ameliorate",
		Short:         "Topic service for problem and solution diagrams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (defaults to $CONFIG_FILE)")

	load := func() (*config.Config, error) {
		if configFile == "" {
			return config.LoadConfig()
		}
		_ = godotenv.Load(".env")
		return config.LoadFrom(configFile)
	}

	root.AddCommand(newServeCmd(load), newMigrateCmd(load), newTokenCmd(load))
	return root
}

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ServerAddress = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			container, cleanup, err := di.InitializeContainer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("initialize container: %w", err)
			}
			defer cleanup()
			defer container.Logger.Sync()

			return server.Run(ctx, server.New(cfg.ServerAddress, container.Router.Setup()), container.Logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides SERVER_ADDRESS")
	return cmd
}

func newMigrateCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the store schema up to date",
		Long: `Applies pending SQL migrations for the sqlite and postgres stores and
creates the table with its index for the dynamodb store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			logger, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			awsCfg, err := di.ProvideAWSConfig(ctx, cfg)
			if err != nil {
				return err
			}
			store, cleanup, err := di.ProvideStore(ctx, cfg, awsCfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			applied, err := store.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrate %s store: %w", store.Driver, err)
			}
			logger.Info("Migration complete", zap.String("store", store.Driver), zap.Int("applied", applied))
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s) applied\n", store.Driver, applied)
			return nil
		},
	}
}

func newTokenCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		userID string
		email  string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("tokens are issued by the identity provider in production")
			}

			logger, err := di.ProvideLogger(cfg)
			if err != nil {
				return err
			}
			generator, err := auth.NewJWTGenerator(di.ProvideJWTConfig(cfg, logger), ttl)
			if err != nil {
				return err
			}
			token, err := generator.GenerateToken(userID, email, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the sub claim")
	cmd.Flags().StringVar(&email, "email", "", "optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
