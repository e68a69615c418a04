package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is one schema step. Up runs inside a transaction; either the
// whole step applies or none of it does.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// The relational invariants live here: cascade deletes are declared on the
// State -> City -> Place -> Review chain, user references are plain foreign
// keys (deleting a referenced user is a constraint violation), and the
// Place-Amenity association is a join table whose rows cascade away with
// either side while never touching the other.
var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create entity tables",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS states (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					name TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS cities (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					name TEXT NOT NULL,
					state_id TEXT NOT NULL,
					FOREIGN KEY(state_id) REFERENCES states(id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					email TEXT NOT NULL,
					password TEXT NOT NULL,
					first_name TEXT,
					last_name TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS places (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					city_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					description TEXT,
					number_rooms INTEGER NOT NULL DEFAULT 0,
					number_bathrooms INTEGER NOT NULL DEFAULT 0,
					max_guest INTEGER NOT NULL DEFAULT 0,
					price_by_night INTEGER NOT NULL DEFAULT 0,
					latitude REAL,
					longitude REAL,
					FOREIGN KEY(city_id) REFERENCES cities(id) ON DELETE CASCADE,
					FOREIGN KEY(user_id) REFERENCES users(id)
				)`,
				`CREATE TABLE IF NOT EXISTS reviews (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					text TEXT NOT NULL,
					place_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					FOREIGN KEY(place_id) REFERENCES places(id) ON DELETE CASCADE,
					FOREIGN KEY(user_id) REFERENCES users(id)
				)`,
				`CREATE TABLE IF NOT EXISTS amenities (
					id TEXT PRIMARY KEY,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL,
					name TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS place_amenity (
					place_id TEXT NOT NULL,
					amenity_id TEXT NOT NULL,
					PRIMARY KEY (place_id, amenity_id),
					FOREIGN KEY(place_id) REFERENCES places(id) ON DELETE CASCADE,
					FOREIGN KEY(amenity_id) REFERENCES amenities(id) ON DELETE CASCADE
				)`,
				`CREATE INDEX IF NOT EXISTS idx_cities_state_id ON cities(state_id)`,
				`CREATE INDEX IF NOT EXISTS idx_places_city_id ON places(city_id)`,
				`CREATE INDEX IF NOT EXISTS idx_places_user_id ON places(user_id)`,
				`CREATE INDEX IF NOT EXISTS idx_reviews_place_id ON reviews(place_id)`,
				`CREATE INDEX IF NOT EXISTS idx_reviews_user_id ON reviews(user_id)`,
			}
			for _, stmt := range statements {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("apply migration v1 statement: %w", err)
				}
			}
			return nil
		},
	},
}

// DefaultMigrations returns the schema migrations for the relational engine.
func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

// RunMigrations applies every migration newer than the recorded schema
// version, in order, each in its own transaction.
func RunMigrations(db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	current, err := appliedSchemaVersion(db)
	if err != nil {
		return err
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", migration.Version, err)
		}
		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_migrations(version, applied_at) VALUES (?, ?)`,
			migration.Version, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", migration.Version, err)
		}
	}
	return nil
}

func appliedSchemaVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
