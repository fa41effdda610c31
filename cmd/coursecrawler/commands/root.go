package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/LouYuanbo1/coursecrawler/internal/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	configPath string
	headless   bool
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "coursecrawler",
	Short: "coursecrawler logs into a Moodle portal, maps its courses and downloads their resources.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("headless") {
			cfg.Browser.Headless = headless
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		level, err := parseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "JSON config file; MOODLE_USERNAME and MOODLE_PASSWORD fill missing credentials.")
	flags.BoolVar(&headless, "headless", true, "Run the browser without a window.")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error.")
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case config.LogLevelDebug:
		return slog.LevelDebug, nil
	case config.LogLevelInfo, "":
		return slog.LevelInfo, nil
	case config.LogLevelWarn:
		return slog.LevelWarn, nil
	case config.LogLevelError:
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level: %q", level)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
