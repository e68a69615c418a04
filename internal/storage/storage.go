package storage

import (
	"context"
	"fmt"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// Engine type names accepted by Open.
const (
	EngineFile = "file"
	EngineDB   = "db"
)

// Store is the single storage contract consumed by the request layer.
//
// New stages an entity, Save persists everything staged, Reload replaces
// in-memory state from the persisted snapshot (a no-op for the relational
// engine, whose session is the source of truth). Get returns ErrNotFound
// when the entity is absent. All("") returns every entity keyed
// "<TypeName>.<id>"; a non-empty typeName restricts to that type.
//
// LinkAmenity is idempotent. UnlinkAmenity of a link that does not exist
// returns ErrNotFound and leaves the place untouched. Close is idempotent.
type Store interface {
	New(ctx context.Context, e model.Entity) error
	Save(ctx context.Context) error
	Reload(ctx context.Context) error
	Get(ctx context.Context, typeName, id string) (model.Entity, error)
	All(ctx context.Context, typeName string) (map[string]model.Entity, error)
	Count(ctx context.Context, typeName string) (int, error)
	Delete(ctx context.Context, e model.Entity) error
	LinkAmenity(ctx context.Context, placeID, amenityID string) error
	UnlinkAmenity(ctx context.Context, placeID, amenityID string) error
	PlaceAmenities(ctx context.Context, placeID string) ([]*model.Amenity, error)
	Close() error
}

// Open selects a storage engine by type name. path is the snapshot file for
// the file engine and the database file for the relational engine.
func Open(engine, path string) (Store, error) {
	switch engine {
	case EngineFile, "":
		return NewFileStore(path), nil
	case EngineDB:
		return OpenDB(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}
