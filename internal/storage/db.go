package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
	_ "modernc.org/sqlite"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode=WAL`
	pragmaForeignKeysOn  = `PRAGMA foreign_keys=ON`
	pragmaBusyTimeout    = `PRAGMA busy_timeout=5000`
)

// DBStore is the relational engine. The schema declares the foreign keys and
// cascade rules, so the database enforces the invariants the file engine has
// to walk by hand. A lazily begun transaction is the active session: New and
// Delete stage work in it, Save commits it, and reads run through it so
// staged rows are visible before commit.
type DBStore struct {
	db     *sql.DB
	tx     *sql.Tx
	closed bool
}

// OpenDB opens (creating if needed) the SQLite database at path and applies
// schema migrations.
func OpenDB(path string) (*DBStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: open db: empty path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &PersistenceError{Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}
	// The session model is a single long-lived transaction; more than one
	// connection would split it.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{pragmaJournalModeWAL, pragmaForeignKeysOn, pragmaBusyTimeout} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, &PersistenceError{Op: "open", Err: fmt.Errorf("%s: %w", stmt, err)}
		}
	}

	if err := RunMigrations(db, DefaultMigrations()); err != nil {
		_ = db.Close()
		return nil, &PersistenceError{Op: "open", Err: err}
	}

	return &DBStore{db: db}, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// session returns the active transaction, beginning one if needed.
func (s *DBStore) session(ctx context.Context) (*sql.Tx, error) {
	if s.closed {
		return nil, fmt.Errorf("storage: store is closed")
	}
	if s.tx == nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, &PersistenceError{Op: "begin session", Err: err}
		}
		s.tx = tx
	}
	return s.tx, nil
}

// rollbackSession discards the active session so subsequent operations start
// from the last committed state.
func (s *DBStore) rollbackSession() {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
}

// fail classifies an engine error: constraint violations become
// IntegrityError and roll the session back, everything else is a
// PersistenceError.
func (s *DBStore) fail(op string, err error) error {
	if isConstraintErr(err) {
		s.rollbackSession()
		return &IntegrityError{Op: op, Err: err}
	}
	return &PersistenceError{Op: op, Err: err}
}

// New stages an entity for insertion in the active session. Staging the same
// id again writes the entity's current field values, which is how mutations
// reach the database.
func (s *DBStore) New(ctx context.Context, e model.Entity) error {
	if e == nil {
		return fmt.Errorf("storage: new: entity is nil")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	tx, err := s.session(ctx)
	if err != nil {
		return err
	}
	if err := upsertEntity(ctx, tx, e); err != nil {
		return s.fail("new", err)
	}
	return nil
}

// Save commits the active session. With no session open it is a no-op.
func (s *DBStore) Save(_ context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		if isConstraintErr(err) {
			return &IntegrityError{Op: "save", Err: err}
		}
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Reload is a no-op: the session is the source of truth.
func (s *DBStore) Reload(_ context.Context) error { return nil }

// Get returns the entity with the given type and id, or ErrNotFound.
func (s *DBStore) Get(ctx context.Context, typeName, id string) (model.Entity, error) {
	table, ok := entityTables[typeName]
	if !ok {
		return nil, ErrNotFound
	}
	q, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	row := q.QueryRowContext(ctx,
		`SELECT `+selectColumns[typeName]+` FROM `+table+` WHERE id = ?`, id)
	e, err := scanEntity(typeName, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &PersistenceError{Op: "get", Err: err}
	}
	return e, nil
}

// All returns every entity, or every entity of the given type, keyed by
// composite key.
func (s *DBStore) All(ctx context.Context, typeName string) (map[string]model.Entity, error) {
	types := model.TypeNames()
	if typeName != "" {
		if _, ok := entityTables[typeName]; !ok {
			return map[string]model.Entity{}, nil
		}
		types = []string{typeName}
	}

	out := map[string]model.Entity{}
	for _, t := range types {
		entities, err := s.allOf(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, e := range entities {
			out[model.Key(e)] = e
		}
	}
	return out, nil
}

func (s *DBStore) allOf(ctx context.Context, typeName string) ([]model.Entity, error) {
	q, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+selectColumns[typeName]+` FROM `+entityTables[typeName])
	if err != nil {
		return nil, &PersistenceError{Op: "all", Err: err}
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		e, err := scanEntity(typeName, rows)
		if err != nil {
			return nil, &PersistenceError{Op: "all", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "all", Err: err}
	}
	return out, nil
}

// Count returns the number of rows, across all entity tables or one.
func (s *DBStore) Count(ctx context.Context, typeName string) (int, error) {
	q, err := s.reader(ctx)
	if err != nil {
		return 0, err
	}

	tables := make([]string, 0, len(entityTables))
	if typeName != "" {
		table, ok := entityTables[typeName]
		if !ok {
			return 0, nil
		}
		tables = append(tables, table)
	} else {
		for _, t := range model.TypeNames() {
			tables = append(tables, entityTables[t])
		}
	}

	total := 0
	for _, table := range tables {
		var n int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return 0, &PersistenceError{Op: "count", Err: err}
		}
		total += n
	}
	return total, nil
}

// Delete marks an entity for removal in the active session; declared cascade
// rules take care of dependents at commit. Deleting an entity that was never
// persisted (nor staged) is ErrNotFound.
func (s *DBStore) Delete(ctx context.Context, e model.Entity) error {
	if e == nil {
		return fmt.Errorf("storage: delete: entity is nil")
	}
	table, ok := entityTables[e.TypeName()]
	if !ok {
		return ErrNotFound
	}
	tx, err := s.session(ctx)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, e.EntityID())
	if err != nil {
		return s.fail("delete", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkAmenity inserts a join row. Linking twice is a no-op.
func (s *DBStore) LinkAmenity(ctx context.Context, placeID, amenityID string) error {
	if err := s.requireLinkEnds(ctx, placeID, amenityID); err != nil {
		return err
	}
	tx, err := s.session(ctx)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO place_amenity(place_id, amenity_id) VALUES (?, ?)`,
		placeID, amenityID)
	if err != nil {
		return s.fail("link amenity", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		if err := s.touchPlace(ctx, tx, placeID); err != nil {
			return err
		}
	}
	return nil
}

// UnlinkAmenity deletes the join row, or reports ErrNotFound if the amenity
// was never linked to the place.
func (s *DBStore) UnlinkAmenity(ctx context.Context, placeID, amenityID string) error {
	if err := s.requireLinkEnds(ctx, placeID, amenityID); err != nil {
		return err
	}
	tx, err := s.session(ctx)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM place_amenity WHERE place_id = ? AND amenity_id = ?`,
		placeID, amenityID)
	if err != nil {
		return s.fail("unlink amenity", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &PersistenceError{Op: "unlink amenity", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return s.touchPlace(ctx, tx, placeID)
}

// PlaceAmenities returns the amenities linked to a place via the join table.
func (s *DBStore) PlaceAmenities(ctx context.Context, placeID string) ([]*model.Amenity, error) {
	if _, err := s.Get(ctx, "Place", placeID); err != nil {
		return nil, err
	}
	q, err := s.reader(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT a.id, a.created_at, a.updated_at, a.name
		FROM amenities a
		INNER JOIN place_amenity pa ON pa.amenity_id = a.id
		WHERE pa.place_id = ?
		ORDER BY a.name ASC
	`, placeID)
	if err != nil {
		return nil, &PersistenceError{Op: "place amenities", Err: err}
	}
	defer rows.Close()

	var out []*model.Amenity
	for rows.Next() {
		e, err := scanAmenity(rows)
		if err != nil {
			return nil, &PersistenceError{Op: "place amenities", Err: err}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "place amenities", Err: err}
	}
	return out, nil
}

// Close rolls back any uncommitted session and releases the connection.
// Safe to call repeatedly, or without ever having opened a session.
func (s *DBStore) Close() error {
	if s.closed {
		return nil
	}
	s.rollbackSession()
	s.closed = true
	if err := s.db.Close(); err != nil {
		return &PersistenceError{Op: "close", Err: err}
	}
	return nil
}

// reader returns the active session if one is open, so staged work is
// visible, and the plain connection otherwise.
func (s *DBStore) reader(ctx context.Context) (querier, error) {
	if s.closed {
		return nil, fmt.Errorf("storage: store is closed")
	}
	if s.tx != nil {
		return s.tx, nil
	}
	return s.db, nil
}

func (s *DBStore) requireLinkEnds(ctx context.Context, placeID, amenityID string) error {
	if _, err := s.Get(ctx, "Place", placeID); err != nil {
		return err
	}
	if _, err := s.Get(ctx, "Amenity", amenityID); err != nil {
		return err
	}
	return nil
}

func (s *DBStore) touchPlace(ctx context.Context, tx *sql.Tx, placeID string) error {
	_, err := tx.ExecContext(ctx, `UPDATE places SET updated_at = ? WHERE id = ?`,
		fmtTime(time.Now().UTC()), placeID)
	if err != nil {
		return s.fail("touch place", err)
	}
	return nil
}

var entityTables = map[string]string{
	"State":   "states",
	"City":    "cities",
	"User":    "users",
	"Place":   "places",
	"Review":  "reviews",
	"Amenity": "amenities",
}

var selectColumns = map[string]string{
	"State":   "id, created_at, updated_at, name",
	"City":    "id, created_at, updated_at, name, state_id",
	"User":    "id, created_at, updated_at, email, password, first_name, last_name",
	"Place":   "id, created_at, updated_at, city_id, user_id, name, description, number_rooms, number_bathrooms, max_guest, price_by_night, latitude, longitude",
	"Review":  "id, created_at, updated_at, text, place_id, user_id",
	"Amenity": "id, created_at, updated_at, name",
}

func upsertEntity(ctx context.Context, q querier, e model.Entity) error {
	switch v := e.(type) {
	case *model.State:
		_, err := q.ExecContext(ctx, `
			INSERT INTO states(id, created_at, updated_at, name)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, name = excluded.name
		`, v.ID, fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt), v.Name)
		return err
	case *model.City:
		_, err := q.ExecContext(ctx, `
			INSERT INTO cities(id, created_at, updated_at, name, state_id)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, name = excluded.name, state_id = excluded.state_id
		`, v.ID, fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt), v.Name, v.StateID)
		return err
	case *model.User:
		_, err := q.ExecContext(ctx, `
			INSERT INTO users(id, created_at, updated_at, email, password, first_name, last_name)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, email = excluded.email,
				password = excluded.password, first_name = excluded.first_name, last_name = excluded.last_name
		`, v.ID, fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt), v.Email, v.Password, v.FirstName, v.LastName)
		return err
	case *model.Place:
		_, err := q.ExecContext(ctx, `
			INSERT INTO places(id, created_at, updated_at, city_id, user_id, name, description,
				number_rooms, number_bathrooms, max_guest, price_by_night, latitude, longitude)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, city_id = excluded.city_id,
				user_id = excluded.user_id, name = excluded.name, description = excluded.description,
				number_rooms = excluded.number_rooms, number_bathrooms = excluded.number_bathrooms,
				max_guest = excluded.max_guest, price_by_night = excluded.price_by_night,
				latitude = excluded.latitude, longitude = excluded.longitude
		`, v.ID, fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt), v.CityID, v.UserID, v.Name, v.Description,
			v.NumberRooms, v.NumberBathrooms, v.MaxGuest, v.PriceByNight, v.Latitude, v.Longitude)
		return err
	case *model.Review:
		_, err := q.ExecContext(ctx, `
			INSERT INTO reviews(id, created_at, updated_at, text, place_id, user_id)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, text = excluded.text,
				place_id = excluded.place_id, user_id = excluded.user_id
		`, v.ID, fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt), v.Text, v.PlaceID, v.UserID)
		return err
	case *model.Amenity:
		_, err := q.ExecContext(ctx, `
			INSERT INTO amenities(id, created_at, updated_at, name)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at, name = excluded.name
		`, v.ID, fmtTime(v.CreatedAt), fmtTime(v.UpdatedAt), v.Name)
		return err
	default:
		return fmt.Errorf("unsupported entity type %T", e)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(typeName string, row rowScanner) (model.Entity, error) {
	switch typeName {
	case "State":
		return scanState(row)
	case "City":
		return scanCity(row)
	case "User":
		return scanUser(row)
	case "Place":
		return scanPlace(row)
	case "Review":
		return scanReview(row)
	case "Amenity":
		e, err := scanAmenity(row)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unsupported entity type %q", typeName)
	}
}

func scanState(row rowScanner) (model.Entity, error) {
	var e model.State
	var createdAt, updated string
	if err := row.Scan(&e.ID, &createdAt, &updated, &e.Name); err != nil {
		return nil, err
	}
	if err := assignTimes(&e.Base, createdAt, updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanCity(row rowScanner) (model.Entity, error) {
	var e model.City
	var createdAt, updated string
	if err := row.Scan(&e.ID, &createdAt, &updated, &e.Name, &e.StateID); err != nil {
		return nil, err
	}
	if err := assignTimes(&e.Base, createdAt, updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanUser(row rowScanner) (model.Entity, error) {
	var e model.User
	var createdAt, updated string
	var firstName, lastName sql.NullString
	if err := row.Scan(&e.ID, &createdAt, &updated, &e.Email, &e.Password, &firstName, &lastName); err != nil {
		return nil, err
	}
	if err := assignTimes(&e.Base, createdAt, updated); err != nil {
		return nil, err
	}
	e.FirstName = firstName.String
	e.LastName = lastName.String
	return &e, nil
}

func scanPlace(row rowScanner) (model.Entity, error) {
	var e model.Place
	var createdAt, updated string
	var description sql.NullString
	var latitude, longitude sql.NullFloat64
	if err := row.Scan(&e.ID, &createdAt, &updated, &e.CityID, &e.UserID, &e.Name, &description,
		&e.NumberRooms, &e.NumberBathrooms, &e.MaxGuest, &e.PriceByNight, &latitude, &longitude); err != nil {
		return nil, err
	}
	if err := assignTimes(&e.Base, createdAt, updated); err != nil {
		return nil, err
	}
	e.Description = description.String
	e.Latitude = latitude.Float64
	e.Longitude = longitude.Float64
	return &e, nil
}

func scanReview(row rowScanner) (model.Entity, error) {
	var e model.Review
	var createdAt, updated string
	if err := row.Scan(&e.ID, &createdAt, &updated, &e.Text, &e.PlaceID, &e.UserID); err != nil {
		return nil, err
	}
	if err := assignTimes(&e.Base, createdAt, updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func scanAmenity(row rowScanner) (*model.Amenity, error) {
	var e model.Amenity
	var createdAt, updated string
	if err := row.Scan(&e.ID, &createdAt, &updated, &e.Name); err != nil {
		return nil, err
	}
	if err := assignTimes(&e.Base, createdAt, updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func assignTimes(b *model.Base, createdAt, updatedAt string) error {
	created, err := parseTime(createdAt)
	if err != nil {
		return err
	}
	updated, err := parseTime(updatedAt)
	if err != nil {
		return err
	}
	b.CreatedAt = created
	b.UpdatedAt = updated
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

// The driver reports every constraint class (foreign key, unique, not null)
// with "constraint" somewhere in the message.
func isConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "constraint")
}
