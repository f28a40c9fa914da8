package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	dbPath      string
	mirrorPath  string
	configPaths []string
	logLevel    string

	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pitchstream",
	Short: "Streaming football match analytics engine",
	Long: "Ingest raw positional sensor samples of football matches and derive\n" +
		"events and statistics: possession, kicks, passes, shots, dribblings,\n" +
		"kickoffs, set plays, heatmaps and more.",
	PersistentPreRunE: setupLogger,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	home := filepath.Join(mustUserHome(), ".pitchstream")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", filepath.Join(home, "pitchstream.db"), "path to the derived-data SQLite database")
	rootCmd.PersistentFlags().StringVar(&mirrorPath, "mirror", filepath.Join(home, "state.db"), "path to the durable state mirror database")
	rootCmd.PersistentFlags().StringArrayVar(&configPaths, "config", nil, "property file(s), later files override earlier ones")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}

func setupLogger(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", logLevel)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func mustUserHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
