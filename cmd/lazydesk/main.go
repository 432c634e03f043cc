package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazydesk/internal/config"
	"github.com/Joseda-hg/lazydesk/internal/db"
	"github.com/Joseda-hg/lazydesk/internal/filter"
	"github.com/Joseda-hg/lazydesk/internal/helpdesk"
	"github.com/Joseda-hg/lazydesk/internal/model"
	"github.com/Joseda-hg/lazydesk/internal/seed"
	"github.com/Joseda-hg/lazydesk/internal/tui"
	"github.com/Joseda-hg/lazydesk/internal/web"
)

type app struct {
	configPath string
	cfg        config.Config
	logger     *slog.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "lazydesk",
		Short:         "Helpdesk task filters from the terminal and over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().String("db-path", "", "sqlite db path")
	rootCmd.PersistentFlags().String("logging-level", "", "log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	serveCmd.Flags().Int("web-port", 0, "web server port")
	rootCmd.AddCommand(serveCmd)

	var username string
	consoleCmd := &cobra.Command{
		Use:   "console",
		Short: "Browse tasks through saved filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.console(cmd.Context(), username)
		},
	}
	consoleCmd.Flags().StringVar(&username, "user", "admin", "user id or username to act as")
	rootCmd.AddCommand(consoleCmd)

	checkCmd := &cobra.Command{
		Use:   "check expression",
		Short: "Parse a filter expression and print its canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clauses, err := filter.ParseExpression(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filter.Tasks.Format(clauses))
			return nil
		},
	}
	rootCmd.AddCommand(checkCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.seed(cmd.Context(), cmd)
		},
	}
	rootCmd.AddCommand(seedCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) load(cmd *cobra.Command) error {
	path, err := resolveConfigPath(a.configPath)
	if err != nil {
		return err
	}
	a.configPath = path

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.DB.Path == "" {
		cfg.DB.Path = filepath.Join(filepath.Dir(path), "lazydesk.db")
	}
	a.cfg = cfg
	a.logger = config.Logger(cfg, os.Stderr)
	slog.SetDefault(a.logger)
	return nil
}

func (a *app) serve(ctx context.Context) error {
	a.cfg.Web.Enabled = true
	if err := config.Save(a.configPath, a.cfg); err != nil {
		return err
	}

	store, closeStore, err := openStore(a.cfg.DB.Path)
	if err != nil {
		return err
	}
	defer closeStore()

	service := helpdesk.NewService(store, a.logger)
	return web.NewServer(service, a.logger).ListenAndServe(ctx, a.cfg.Web.Port)
}

func (a *app) console(ctx context.Context, who string) error {
	store, closeStore, err := openStore(a.cfg.DB.Path)
	if err != nil {
		return err
	}
	defer closeStore()

	user, err := findUser(ctx, store, who)
	if err != nil {
		return err
	}

	// The console owns the terminal; keep log output out of it.
	a.logger = slog.New(slog.DiscardHandler)
	service := helpdesk.NewService(store, a.logger)
	principal, err := service.Principal(ctx, user.ID)
	if err != nil {
		return err
	}
	return tui.Run(service, principal)
}

func (a *app) seed(ctx context.Context, cmd *cobra.Command) error {
	store, closeStore, err := openStore(a.cfg.DB.Path)
	if err != nil {
		return err
	}
	defer closeStore()

	users, err := store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return errors.New("database already has users, refusing to seed")
	}

	fx, err := seed.Demo(ctx, store, time.Now())
	if err != nil {
		return err
	}
	a.logger.Info("seeded database", "path", a.cfg.DB.Path, "tasks", len(fx.Tasks), "filters", len(fx.Filters))

	out := cmd.OutOrStdout()
	for _, user := range []model.User{fx.Admin, fx.Agent, fx.Customer} {
		fmt.Fprintf(out, "%-6s id=%d token=%s\n", user.Username, user.ID, fx.Tokens[user.Username])
	}
	return nil
}

func findUser(ctx context.Context, store *db.Store, who string) (model.User, error) {
	if id, err := strconv.ParseInt(who, 10, 64); err == nil {
		return store.GetUser(ctx, id)
	}
	users, err := store.ListUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, user := range users {
		if user.Username == who {
			return user, nil
		}
	}
	return model.User{}, fmt.Errorf("unknown user %q", who)
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func openStore(dbPath string) (*db.Store, func(), error) {
	if err := config.EnsureDir(dbPath); err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}

	return db.NewStore(sqlDB), func() { _ = sqlDB.Close() }, nil
}
