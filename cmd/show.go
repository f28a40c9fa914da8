package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-pitch-stream/internal/report"
	"github.com/pable/go-pitch-stream/internal/sink"
)

var showCmd = &cobra.Command{
	Use:   "show <match-id>",
	Short: "Show stored statistics of a match",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	matchID := args[0]

	db, err := sink.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	counts, err := db.EventCounts(matchID)
	if err != nil {
		return fmt.Errorf("get event counts: %w", err)
	}
	if len(counts) == 0 {
		fmt.Fprintf(os.Stderr, "No events stored for match %q\n", matchID)
		return nil
	}
	passStats, err := db.PassStats(matchID)
	if err != nil {
		return fmt.Errorf("get pass stats: %w", err)
	}
	shotStats, err := db.ShotStats(matchID)
	if err != nil {
		return fmt.Errorf("get shot stats: %w", err)
	}

	fmt.Fprintf(os.Stdout, "Match %s\n\nEvents:\n", matchID)
	if err := report.PrintEventCounts(os.Stdout, counts); err != nil {
		return err
	}
	if len(passStats) > 0 {
		fmt.Fprintln(os.Stdout, "\nPasses:")
		if err := report.PrintPassStats(os.Stdout, passStats); err != nil {
			return err
		}
	}
	if len(shotStats) > 0 {
		fmt.Fprintln(os.Stdout, "\nShots:")
		if err := report.PrintShotStats(os.Stdout, shotStats); err != nil {
			return err
		}
	}
	return nil
}
