package history

import "database/sql"

var schema = []string{
	`PRAGMA journal_mode=WAL;`,
	`PRAGMA busy_timeout=5000;`,
	`
CREATE TABLE IF NOT EXISTS deletions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	tx_id       TEXT    NOT NULL,
	action      TEXT    NOT NULL,
	path        TEXT    NOT NULL,
	size        INTEGER NOT NULL,
	category    TEXT    NOT NULL,
	recorded_at TEXT    NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS idx_deletions_recorded_at ON deletions(recorded_at);`,
	`CREATE INDEX IF NOT EXISTS idx_deletions_tx ON deletions(tx_id);`,
}

func initSchema(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
