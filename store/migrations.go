package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Full activity documents
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// List index; seq keeps insertion order, newest last
		`CREATE TABLE IF NOT EXISTS activity_meta (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			date TEXT,
			date_unix REAL,
			sport TEXT NOT NULL,
			distance_km REAL NOT NULL,
			duration_sec REAL NOT NULL,
			avg_pace TEXT NOT NULL,
			pace_sec REAL,
			avg_heart_rate INTEGER,
			avg_cadence INTEGER,
			avg_power INTEGER,
			total_ascent REAL,
			available_fields TEXT NOT NULL,
			available_iq_fields TEXT NOT NULL,
			FOREIGN KEY (id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activity_meta_date ON activity_meta(date_unix)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_meta_sport ON activity_meta(sport)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
