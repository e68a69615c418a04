package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bryokim/AirBnB-clone-v3/internal/model"
)

// FileStore is the file-backed engine: one in-memory mapping from composite
// key to entity, snapshotted in full to a single JSON document on Save.
// Relationship traversal is an O(n) scan over the mapping; there is no
// secondary index because expected data volumes do not warrant one.
type FileStore struct {
	path    string
	objects map[string]model.Entity
}

// NewFileStore returns a file engine persisting to path. Nothing is read
// from disk until Reload.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:    path,
		objects: map[string]model.Entity{},
	}
}

// New inserts an entity into the in-memory mapping. Nothing is persisted
// until Save.
func (s *FileStore) New(_ context.Context, e model.Entity) error {
	if e == nil {
		return fmt.Errorf("storage: new: entity is nil")
	}
	if err := e.Validate(); err != nil {
		return err
	}
	s.objects[model.Key(e)] = e
	return nil
}

// Save serializes every entity to the snapshot, replacing the previous one
// entirely. The snapshot is written to a temp file in the same directory and
// renamed into place so a failed write never corrupts the previous snapshot.
func (s *FileStore) Save(_ context.Context) error {
	snapshot := make(map[string]map[string]any, len(s.objects))
	for key, e := range s.objects {
		fields, err := model.ToMap(e)
		if err != nil {
			return &PersistenceError{Op: "save", Err: err}
		}
		snapshot[key] = fields
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return &PersistenceError{Op: "save", Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// Reload reads the snapshot and fully replaces the in-memory mapping. A
// missing snapshot is not an error; an unreadable or corrupt one is.
func (s *FileStore) Reload(_ context.Context) error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.objects = map[string]model.Entity{}
			return nil
		}
		return &PersistenceError{Op: "reload", Err: err}
	}

	var snapshot map[string]map[string]any
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return &PersistenceError{Op: "reload", Err: err}
	}

	objects := make(map[string]model.Entity, len(snapshot))
	for key, fields := range snapshot {
		typeName, _, ok := strings.Cut(key, ".")
		if !ok {
			return &PersistenceError{Op: "reload", Err: fmt.Errorf("malformed key %q", key)}
		}
		e, err := model.New(typeName, fields)
		if err != nil {
			return &PersistenceError{Op: "reload", Err: err}
		}
		objects[key] = e
	}
	s.objects = objects
	return nil
}

// Get returns the entity with the given type and id, or ErrNotFound.
func (s *FileStore) Get(_ context.Context, typeName, id string) (model.Entity, error) {
	e, ok := s.objects[typeName+"."+id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

// All returns every entity, or every entity of the given type.
func (s *FileStore) All(_ context.Context, typeName string) (map[string]model.Entity, error) {
	out := map[string]model.Entity{}
	for key, e := range s.objects {
		if typeName != "" && e.TypeName() != typeName {
			continue
		}
		out[key] = e
	}
	return out, nil
}

// Count returns the number of entities, optionally of one type.
func (s *FileStore) Count(_ context.Context, typeName string) (int, error) {
	if typeName == "" {
		return len(s.objects), nil
	}
	n := 0
	for _, e := range s.objects {
		if e.TypeName() == typeName {
			n++
		}
	}
	return n, nil
}

// Delete removes an entity and everything that transitively belongs to it.
// With no foreign keys to lean on, the cascade is applied here explicitly,
// walking State -> City -> Place -> Review leaves-first. Deleting an Amenity
// removes only its links to places, never the places.
func (s *FileStore) Delete(_ context.Context, e model.Entity) error {
	if e == nil {
		return fmt.Errorf("storage: delete: entity is nil")
	}
	key := model.Key(e)
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}
	s.cascade(e)
	delete(s.objects, key)
	return nil
}

func (s *FileStore) cascade(e model.Entity) {
	switch v := e.(type) {
	case *model.State:
		for _, city := range s.citiesOf(v.ID) {
			s.cascade(city)
			delete(s.objects, model.Key(city))
		}
	case *model.City:
		for _, place := range s.placesOf(v.ID) {
			s.cascade(place)
			delete(s.objects, model.Key(place))
		}
	case *model.Place:
		for _, review := range s.reviewsOf(v.ID) {
			delete(s.objects, model.Key(review))
		}
	case *model.Amenity:
		for _, e := range s.objects {
			if place, ok := e.(*model.Place); ok {
				s.dropAmenityID(place, v.ID)
			}
		}
	}
}

func (s *FileStore) citiesOf(stateID string) []*model.City {
	var out []*model.City
	for _, e := range s.objects {
		if city, ok := e.(*model.City); ok && city.StateID == stateID {
			out = append(out, city)
		}
	}
	return out
}

func (s *FileStore) placesOf(cityID string) []*model.Place {
	var out []*model.Place
	for _, e := range s.objects {
		if place, ok := e.(*model.Place); ok && place.CityID == cityID {
			out = append(out, place)
		}
	}
	return out
}

func (s *FileStore) reviewsOf(placeID string) []*model.Review {
	var out []*model.Review
	for _, e := range s.objects {
		if review, ok := e.(*model.Review); ok && review.PlaceID == placeID {
			out = append(out, review)
		}
	}
	return out
}

// LinkAmenity records the association on the place's amenity id list.
// Linking twice is a no-op.
func (s *FileStore) LinkAmenity(ctx context.Context, placeID, amenityID string) error {
	place, err := s.place(ctx, placeID)
	if err != nil {
		return err
	}
	if _, err := s.Get(ctx, "Amenity", amenityID); err != nil {
		return err
	}
	for _, id := range place.AmenityIDs {
		if id == amenityID {
			return nil
		}
	}
	place.AmenityIDs = append(place.AmenityIDs, amenityID)
	place.Touch()
	return nil
}

// UnlinkAmenity removes the association, or reports ErrNotFound if the
// amenity was never linked.
func (s *FileStore) UnlinkAmenity(ctx context.Context, placeID, amenityID string) error {
	place, err := s.place(ctx, placeID)
	if err != nil {
		return err
	}
	if !s.dropAmenityID(place, amenityID) {
		return ErrNotFound
	}
	return nil
}

// PlaceAmenities resolves the place's amenity id list to amenities.
func (s *FileStore) PlaceAmenities(ctx context.Context, placeID string) ([]*model.Amenity, error) {
	place, err := s.place(ctx, placeID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Amenity, 0, len(place.AmenityIDs))
	for _, id := range place.AmenityIDs {
		if e, ok := s.objects["Amenity."+id]; ok {
			out = append(out, e.(*model.Amenity))
		}
	}
	return out, nil
}

// Close drops the in-memory mapping. The file engine holds no OS resources
// between calls, so Close never fails and may be called repeatedly.
func (s *FileStore) Close() error {
	s.objects = map[string]model.Entity{}
	return nil
}

func (s *FileStore) place(ctx context.Context, placeID string) (*model.Place, error) {
	e, err := s.Get(ctx, "Place", placeID)
	if err != nil {
		return nil, err
	}
	return e.(*model.Place), nil
}

func (s *FileStore) dropAmenityID(place *model.Place, amenityID string) bool {
	for i, id := range place.AmenityIDs {
		if id == amenityID {
			place.AmenityIDs = append(place.AmenityIDs[:i], place.AmenityIDs[i+1:]...)
			place.Touch()
			return true
		}
	}
	return false
}
