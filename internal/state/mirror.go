package state

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const mirrorSchema = `
CREATE TABLE IF NOT EXISTS state_mirror (
	store_name TEXT NOT NULL,
	match_id   TEXT NOT NULL,
	inner_key  TEXT NOT NULL,
	value      BLOB NOT NULL,
	PRIMARY KEY (store_name, match_id, inner_key)
);
CREATE INDEX IF NOT EXISTS idx_state_mirror_match ON state_mirror(match_id);
`

// SqliteMirror is the durable change log of the kv backend. Each Record
// upserts the latest value; Restore replays a match before its first element
// is processed after a restart.
type SqliteMirror struct {
	conn *sql.DB
}

// OpenMirror opens (or creates) the mirror database at path.
func OpenMirror(path string) (*SqliteMirror, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mirror db: %w", err)
	}
	if _, err := conn.Exec(mirrorSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("apply mirror schema: %w", err)
	}
	return &SqliteMirror{conn: conn}, nil
}

func (m *SqliteMirror) Record(store, match, inner string, encoded []byte) error {
	_, err := m.conn.Exec(`
		INSERT OR REPLACE INTO state_mirror(store_name, match_id, inner_key, value)
		VALUES (?, ?, ?, ?)`,
		store, match, inner, encoded)
	return err
}

func (m *SqliteMirror) Restore(match string, fn func(store, inner string, encoded []byte) error) error {
	rows, err := m.conn.Query(`
		SELECT store_name, inner_key, value FROM state_mirror WHERE match_id = ?`, match)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var store, inner string
		var value []byte
		if err := rows.Scan(&store, &inner, &value); err != nil {
			return err
		}
		if err := fn(store, inner, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (m *SqliteMirror) Close() error {
	return m.conn.Close()
}
