package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/tcprelay/internal/app"
	"github.com/vovakirdan/tcprelay/internal/auth"
	"github.com/vovakirdan/tcprelay/internal/config"
	applog "github.com/vovakirdan/tcprelay/internal/log"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tcprelay",
		Short:         "Shared-secret TCP chat relay",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newServeCmd(opts), newHashPasswordCmd(), newTokenCmd(opts))
	return root
}

func loadConfig(opts *rootOptions) (config.Config, error) {
	bootLogger := applog.New("info", "console")
	cfg, path, err := config.Load(bootLogger, opts.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(config.Config{LogLevel: opts.logLevel})
	bootLogger.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var overrides config.Config

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay and, if enabled, the admin API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := applog.New(cfg.LogLevel, cfg.LogFormat)
			if cfg.Relay.SharedKey == "" {
				logger.Warn().Msg("relay.shared_key is empty; only clients sending an empty key can join")
			}

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info().
				Str("address", cfg.Relay.Address).
				Int("port", cfg.Relay.Port).
				Bool("admin", cfg.Admin.Enabled).
				Msg("starting tcprelay")
			if err := application.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("server exited with error")
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&overrides.Relay.Address, "address", "", "relay bind address (IPv4 or host name)")
	flags.IntVar(&overrides.Relay.Port, "port", 0, "relay port")
	flags.StringVar(&overrides.Relay.SharedKey, "key", "", "shared secret clients must present")
	flags.StringVar(&overrides.Relay.OperatorName, "operator-name", "", "name shown on operator messages")
	flags.BoolVar(&overrides.Admin.Enabled, "admin", false, "enable the admin API")
	flags.StringVar(&overrides.Admin.Addr, "admin-addr", "", "admin API listen address")
	flags.DurationVar(&overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for admin.password_hash",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password to hash (read from stdin when empty)")
	return cmd
}

func newTokenCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API token using the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("admin.jwt_secret is not set")
			}
			svc := auth.NewService(cfg.Admin.Username, cfg.Admin.PasswordHash, app.JWTConfig(&cfg))
			token, err := svc.IssueToken()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}

