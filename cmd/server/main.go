package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/app"
	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/log"
	"github.com/vovakirdan/wirechat-relay/internal/store/sqlite"
)

type rootFlags struct {
	configPath string
	addr       string
	logLevel   string
	database   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "wirechat",
		Short:         "WebSocket chat relay with a global room and private messages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level override")
	root.PersistentFlags().StringVar(&flags.database, "db", "", "SQLite user directory path override")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
	serve.Flags().StringVar(&flags.addr, "addr", "", "HTTP listen address override")

	root.AddCommand(serve, newTokenCmd(flags), newUserCmd(flags))

	// Running the binary without a subcommand starts the server.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

// loadConfig resolves configuration and applies command line overrides.
// Only serve creates a missing config file; tooling commands read what exists.
func loadConfig(flags *rootFlags, writeMissing bool) (config.Config, *zerolog.Logger, error) {
	bootstrap := log.New("info")

	load := config.LoadExisting
	if writeMissing {
		load = config.Load
	}
	cfg, path, err := load(bootstrap, flags.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.database != "" {
		cfg.DatabasePath = flags.database
	}

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func runServe(ctx context.Context, flags *rootFlags) error {
	cfg, logger, err := loadConfig(flags, true)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newTokenCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "token <user_id> [username]",
		Short: "Issue a handshake token for a user",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(flags, false)
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return fmt.Errorf("jwt_secret is not configured")
			}

			username := args[0]
			if len(args) == 2 {
				username = args[1]
			}

			token, err := auth.NewService(cfg.JWT()).IssueToken(args[0], username)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newUserCmd(flags *rootFlags) *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}

	openStore := func() (*sqlite.SQLiteStore, error) {
		cfg, _, err := loadConfig(flags, false)
		if err != nil {
			return nil, err
		}
		if cfg.DatabasePath == "" {
			return nil, fmt.Errorf("database_path is not configured")
		}
		return sqlite.New(cfg.DatabasePath)
	}

	add := &cobra.Command{
		Use:   "add <user_id> <username>",
		Short: "Create or rename a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			u, err := st.UpsertUser(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u.ID, u.Username)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tCREATED")
			for _, u := range users {
				fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}

	remove := &cobra.Command{
		Use:   "remove <user_id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return st.DeleteUser(cmd.Context(), args[0])
		},
	}

	user.AddCommand(add, list, remove)
	return user
}
