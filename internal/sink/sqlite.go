// Package sink persists and fans out the elements a worker emits: a SQLite
// store keeping the latest statistics snapshot per item plus an event log,
// and a websocket hub pushing the live feed to subscribers.
package sink

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/pable/go-pitch-stream/internal/element"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a sql.DB for the derived-data store.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at the given path and applies
// the schema.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Emit routes one element: statistics snapshots are upserted, events are
// appended to the log, everything else is skipped.
func (db *DB) Emit(e *element.Element) error {
	switch e.StreamName {
	case element.StreamPassStatistics:
		return db.upsertPassStats(e)
	case element.StreamShotStatistics:
		return db.upsertShotStats(e)
	case element.StreamPassSequenceStats:
		return db.upsertSequenceStats(e)
	case element.StreamDribblingStats:
		return db.upsertDribbleStats(e)
	}
	if e.Category == element.CategoryEvent {
		return db.appendEvent(e)
	}
	return nil
}

// statsIdentity resolves the item id, team id and team-level flag of a
// statistics element.
func statsIdentity(e *element.Element) (itemID, teamID string, isTeam bool, err error) {
	teamID, err = e.GroupID(0)
	if err != nil {
		return "", "", false, err
	}
	if len(e.ObjectIDs) == 0 {
		return teamID, teamID, true, nil
	}
	return e.ObjectIDs[0], teamID, false, nil
}

func (db *DB) upsertPassStats(e *element.Element) error {
	itemID, teamID, isTeam, err := statsIdentity(e)
	if err != nil {
		return err
	}
	vals := make([]int64, 0, 9)
	for _, f := range []string{
		"numSuccessfulPasses", "numInterceptedPasses", "numMisplacedPasses", "numClearances",
		"numForwardPasses", "numBackwardPasses", "numLeftPasses", "numRightPasses", "packingSum",
	} {
		v, err := e.Long(f)
		if err != nil {
			return err
		}
		vals = append(vals, v)
	}
	rate, err := e.Double("passSuccessRate")
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO pass_stats(
			match_id, item_id, team_id, is_team, ts,
			successful, intercepted, misplaced, clearances,
			forward_passes, backward_passes, left_passes, right_passes,
			packing_sum, success_rate
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.Key, itemID, teamID, boolInt(isTeam), e.Timestamp,
		vals[0], vals[1], vals[2], vals[3], vals[4], vals[5], vals[6], vals[7], vals[8], rate,
	)
	return err
}

func (db *DB) upsertShotStats(e *element.Element) error {
	itemID, teamID, isTeam, err := statsIdentity(e)
	if err != nil {
		return err
	}
	shotsOff, err := e.Long("numShotsOffTarget")
	if err != nil {
		return err
	}
	goals, err := e.Long("numGoals")
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO shot_stats(match_id, item_id, team_id, is_team, ts, shots_off_target, goals)
		VALUES (?,?,?,?,?,?,?)`,
		e.Key, itemID, teamID, boolInt(isTeam), e.Timestamp, shotsOff, goals,
	)
	return err
}

func (db *DB) upsertSequenceStats(e *element.Element) error {
	itemID, teamID, isTeam, err := statsIdentity(e)
	if err != nil {
		return err
	}
	vals := make([]int64, 0, 4)
	for _, f := range []string{"numPassSequences", "sumPassSequenceLength", "maxPassSequenceLength", "numDoublePasses"} {
		v, err := e.Long(f)
		if err != nil {
			return err
		}
		vals = append(vals, v)
	}
	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO sequence_stats(
			match_id, item_id, team_id, is_team, ts,
			num_sequences, sum_length, max_length, num_double_passes
		) VALUES (?,?,?,?,?,?,?,?,?)`,
		e.Key, itemID, teamID, boolInt(isTeam), e.Timestamp, vals[0], vals[1], vals[2], vals[3],
	)
	return err
}

func (db *DB) upsertDribbleStats(e *element.Element) error {
	itemID, teamID, isTeam, err := statsIdentity(e)
	if err != nil {
		return err
	}
	num, err := e.Long("numDribblings")
	if err != nil {
		return err
	}
	sumLength, err := e.Double("sumLength")
	if err != nil {
		return err
	}
	sumDuration, err := e.Long("sumDurationMs")
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(`
		INSERT OR REPLACE INTO dribble_stats(
			match_id, item_id, team_id, is_team, ts,
			num_dribblings, sum_length, sum_duration_ms
		) VALUES (?,?,?,?,?,?,?,?)`,
		e.Key, itemID, teamID, boolInt(isTeam), e.Timestamp, num, sumLength, sumDuration,
	)
	return err
}

func (db *DB) appendEvent(e *element.Element) error {
	body, err := element.Marshal(e)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		`INSERT INTO events(match_id, stream, ts, body) VALUES (?,?,?,?)`,
		e.Key, e.StreamName, e.Timestamp, string(body),
	)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
