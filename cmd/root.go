package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/grit/internal/backup"
	"github.com/abhisek/grit/internal/clock"
	"github.com/abhisek/grit/internal/config"
	"github.com/abhisek/grit/internal/planner"
	"github.com/abhisek/grit/internal/store"
	"github.com/abhisek/grit/internal/study"
	"github.com/abhisek/grit/internal/timeline"
)

var rootCmd = &cobra.Command{
	Use:   "grit",
	Short: "Self-discipline tracker",
	Long: "grit tracks spaced-repetition study topics and a daily planner where\n" +
		"skipped tasks come back as costlier recovery tasks.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides GRIT_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (overrides GRIT_CONFIG env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(topicCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(versionCmd)
}

// env bundles the services a command runs against.
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	clock    clock.Clock
	store    *store.Store
	study    *study.Service
	planner  *planner.Service
	timeline *timeline.Recorder
	backup   *backup.Service
}

// openEnv loads configuration, opens the store and builds the services.
// Callers must Close the result.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, err
	}

	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	logger.Debug("store opened", "path", dbPath)

	clk := clock.Real()
	return &env{
		cfg:    cfg,
		logger: logger,
		clock:  clk,
		store:  st,
		study: study.NewService(st, study.Config{
			Policy:       cfg.SchedulePolicy(),
			DefaultModel: cfg.DefaultModel(),
			Clock:        clk,
			Logger:       logger.With("component", "study"),
		}),
		planner: planner.NewService(st, planner.Config{
			Policy: cfg.PlannerPolicy(),
			Clock:  clk,
			Logger: logger.With("component", "planner"),
		}),
		timeline: timeline.NewRecorder(st.Repos().Timeline, clk),
		backup: backup.NewService(st, backup.Config{
			Keep:   cfg.Backup.Keep,
			Clock:  clk,
			Logger: logger.With("component", "backup"),
		}),
	}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}

// withEnv adapts a function needing an env into a cobra RunE.
func withEnv(fn func(cmd *cobra.Command, e *env, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, e, args)
	}
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the config file or GRIT_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}
