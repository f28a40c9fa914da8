package sink

import "fmt"

// MatchSummary is one row of the match listing.
type MatchSummary struct {
	MatchID   string
	NumEvents int64
	LastTs    int64
}

// ListMatches summarizes every match that produced events.
func (db *DB) ListMatches() ([]MatchSummary, error) {
	rows, err := db.conn.Query(`
		SELECT match_id, COUNT(1), MAX(ts)
		FROM events GROUP BY match_id ORDER BY match_id`)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []MatchSummary
	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(&m.MatchID, &m.NumEvents, &m.LastTs); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PassStatsRow is the latest pass statistics snapshot of one item.
type PassStatsRow struct {
	ItemID      string
	TeamID      string
	IsTeam      bool
	Successful  int64
	Intercepted int64
	Misplaced   int64
	Clearances  int64
	PackingSum  int64
	SuccessRate float64
}

// PassStats returns the stored snapshots for a match, teams first.
func (db *DB) PassStats(matchID string) ([]PassStatsRow, error) {
	rows, err := db.conn.Query(`
		SELECT item_id, team_id, is_team, successful, intercepted, misplaced, clearances, packing_sum, success_rate
		FROM pass_stats WHERE match_id = ?
		ORDER BY is_team DESC, team_id, item_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("pass stats for %s: %w", matchID, err)
	}
	defer rows.Close()

	var out []PassStatsRow
	for rows.Next() {
		var r PassStatsRow
		var isTeam int
		if err := rows.Scan(&r.ItemID, &r.TeamID, &isTeam,
			&r.Successful, &r.Intercepted, &r.Misplaced, &r.Clearances, &r.PackingSum, &r.SuccessRate); err != nil {
			return nil, err
		}
		r.IsTeam = isTeam != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// ShotStatsRow is the latest shot statistics snapshot of one item.
type ShotStatsRow struct {
	ItemID         string
	TeamID         string
	IsTeam         bool
	ShotsOffTarget int64
	Goals          int64
}

func (db *DB) ShotStats(matchID string) ([]ShotStatsRow, error) {
	rows, err := db.conn.Query(`
		SELECT item_id, team_id, is_team, shots_off_target, goals
		FROM shot_stats WHERE match_id = ?
		ORDER BY is_team DESC, team_id, item_id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("shot stats for %s: %w", matchID, err)
	}
	defer rows.Close()

	var out []ShotStatsRow
	for rows.Next() {
		var r ShotStatsRow
		var isTeam int
		if err := rows.Scan(&r.ItemID, &r.TeamID, &isTeam, &r.ShotsOffTarget, &r.Goals); err != nil {
			return nil, err
		}
		r.IsTeam = isTeam != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// EventCount is the event volume of one stream within a match.
type EventCount struct {
	Stream string
	Count  int64
}

func (db *DB) EventCounts(matchID string) ([]EventCount, error) {
	rows, err := db.conn.Query(`
		SELECT stream, COUNT(1) FROM events
		WHERE match_id = ? GROUP BY stream ORDER BY COUNT(1) DESC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("event counts for %s: %w", matchID, err)
	}
	defer rows.Close()

	var out []EventCount
	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Stream, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
