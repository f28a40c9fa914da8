package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-stream/internal/config"
	"github.com/pable/go-pitch-stream/internal/pipeline"
	"github.com/pable/go-pitch-stream/internal/sink"
	"github.com/pable/go-pitch-stream/internal/state"
	"github.com/pable/go-pitch-stream/internal/worker"
)

var replayTick time.Duration

var replayCmd = &cobra.Command{
	Use:   "replay <dump.ndjson>",
	Short: "Replay a recorded element dump into the database",
	Long: "Process a recorded sensor dump offline. State lives in memory only;\n" +
		"derived events and statistics are written to the database.",
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().DurationVar(&replayTick, "tick", time.Second, "window generation period")
}

func runReplay(cmd *cobra.Command, args []string) error {
	props, err := config.Load(configPaths...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pl, err := pipeline.Build(props, state.NewMemory())
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}
	db, err := sink.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	defer f.Close()

	src := worker.NewFileSource(f, logger)
	go func() {
		if err := src.Run(); err != nil {
			logger.Error("replay source failed", "err", err)
		}
	}()

	eng := worker.New("engine", pl.Graph, pl.Window, db, logger, worker.Options{Tick: replayTick})
	if err := eng.Run(context.Background(), src); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Replayed %s.\n", args[0])
	matches, err := db.ListMatches()
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Fprintf(os.Stdout, "  %s: %d events\n", m.MatchID, m.NumEvents)
	}
	return nil
}
