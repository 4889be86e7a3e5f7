// Package cli implements mediabotctl, the operator CLI. It talks to the
// database directly, bypassing Telegram.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"mediabot/internal/clock"
	"mediabot/internal/config"
	"mediabot/internal/database"
	"mediabot/internal/repository"
	"mediabot/internal/search"
	"mediabot/internal/tier"
	"mediabot/internal/token"

	"github.com/spf13/cobra"
)

var (
	driverFlag string
	dbPath     string
	formatFlag string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "mediabotctl",
	Short:         "Operate the media bot's index, tokens and subscribers",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&driverFlag, "driver", "", "Database driver: postgres or sqlite (default: $DB_DRIVER)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "SQLite path (default: $DB_PATH)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level to stderr")
}

// app is the orchestrator plus what it needs to be closed.
type app struct {
	cfg   *config.Config
	svc   *search.Orchestrator
	close func()
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if driverFlag != "" {
		cfg.DBDriver = driverFlag
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	repos := repository.New(db, cfg.DBQueryTimeout)
	clk := clock.Real()

	svc := search.New(
		repos.Media,
		repos.Users,
		tier.NewResolver(repos.Subscribers, clk, logger),
		token.NewBroker(repos.Tokens, logger),
		clk,
		search.Options{SiteURL: cfg.SiteURL, VideoExtensions: cfg.VideoExtensions},
		logger,
	)
	return &app{
		cfg: cfg,
		svc: svc,
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}, nil
}

// output writes v as indented JSON, or text when --format=text.
func output(w io.Writer, v interface{}, text string) error {
	if formatFlag == "text" {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Execute runs the root command and reports the error on stderr.
func Execute(stderr io.Writer) int {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

