// Package report renders the stored statistics snapshots as terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-pitch-stream/internal/sink"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMatches writes the match listing.
func PrintMatches(w io.Writer, matches []sink.MatchSummary) error {
	table := newTable(w)
	table.Header("MATCH", "EVENTS", "LAST_TS")
	for _, m := range matches {
		table.Append(m.MatchID, strconv.FormatInt(m.NumEvents, 10), strconv.FormatInt(m.LastTs, 10))
	}
	return table.Render()
}

// PrintPassStats writes the pass statistics table, teams before players.
// Team rows are marked with "*".
func PrintPassStats(w io.Writer, rows []sink.PassStatsRow) error {
	table := newTable(w)
	table.Header(" ", "ITEM", "TEAM", "OK", "INT", "MISS", "CLR", "PACK", "RATE")
	for _, r := range rows {
		marker := " "
		if r.IsTeam {
			marker = "*"
		}
		table.Append(
			marker,
			r.ItemID,
			r.TeamID,
			strconv.FormatInt(r.Successful, 10),
			strconv.FormatInt(r.Intercepted, 10),
			strconv.FormatInt(r.Misplaced, 10),
			strconv.FormatInt(r.Clearances, 10),
			strconv.FormatInt(r.PackingSum, 10),
			fmt.Sprintf("%.0f%%", r.SuccessRate*100),
		)
	}
	return table.Render()
}

// PrintShotStats writes the shot statistics table.
func PrintShotStats(w io.Writer, rows []sink.ShotStatsRow) error {
	table := newTable(w)
	table.Header(" ", "ITEM", "TEAM", "OFF_TARGET", "GOALS")
	for _, r := range rows {
		marker := " "
		if r.IsTeam {
			marker = "*"
		}
		table.Append(
			marker,
			r.ItemID,
			r.TeamID,
			strconv.FormatInt(r.ShotsOffTarget, 10),
			strconv.FormatInt(r.Goals, 10),
		)
	}
	return table.Render()
}

// PrintEventCounts writes the per-stream event volume of a match.
func PrintEventCounts(w io.Writer, counts []sink.EventCount) error {
	table := newTable(w)
	table.Header("STREAM", "COUNT")
	for _, c := range counts {
		table.Append(c.Stream, strconv.FormatInt(c.Count, 10))
	}
	return table.Render()
}
