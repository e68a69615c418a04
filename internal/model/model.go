// Package model defines the six HBNB entity types and the mapping-based
// constructor/serializer the storage engines build on. Every entity embeds
// Base and is registered by type name so a persisted field mapping can be
// turned back into a typed value.
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClassKey is the type discriminator carried in serialized field mappings.
const ClassKey = "__class__"

// Base holds the identity and timestamps shared by every entity.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) EntityID() string { return b.ID }

// Touch refreshes the mutation timestamp.
func (b *Base) Touch() { b.UpdatedAt = time.Now().UTC() }

func (b *Base) ensureIdentity() {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = b.CreatedAt
	}
}

// Entity is implemented by all six record types.
type Entity interface {
	EntityID() string
	TypeName() string
	Touch()
	Validate() error
}

// ValidationError reports a required field missing from an entity.
type ValidationError struct {
	Type  string
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Type, e.Field)
}

var registry = map[string]func() Entity{
	"State":   func() Entity { return &State{} },
	"City":    func() Entity { return &City{} },
	"User":    func() Entity { return &User{} },
	"Place":   func() Entity { return &Place{} },
	"Review":  func() Entity { return &Review{} },
	"Amenity": func() Entity { return &Amenity{} },
}

// typeNames is the fixed walk order used by callers that iterate every type.
var typeNames = []string{"Amenity", "City", "Place", "Review", "State", "User"}

// TypeNames returns the registered entity type names in a stable order.
func TypeNames() []string {
	out := make([]string, len(typeNames))
	copy(out, typeNames)
	return out
}

// Known reports whether typeName is a registered entity type.
func Known(typeName string) bool {
	_, ok := registry[typeName]
	return ok
}

// New constructs an entity of the named type from a field mapping.
// A nil or partial mapping is fine: a missing id and missing timestamps are
// assigned at construction. The __class__ discriminator, if present, is
// ignored in favor of typeName.
func New(typeName string, attrs map[string]any) (Entity, error) {
	ctor, ok := registry[typeName]
	if !ok {
		return nil, fmt.Errorf("model: unknown type %q", typeName)
	}
	e := ctor()
	if len(attrs) > 0 {
		if err := decodeInto(e, attrs); err != nil {
			return nil, fmt.Errorf("model: construct %s: %w", typeName, err)
		}
	}
	e.(interface{ ensureIdentity() }).ensureIdentity()
	return e, nil
}

// Apply merges a field mapping into an existing entity, skipping the given
// keys. Identity and timestamps are always skipped; the caller decides when
// to Touch.
func Apply(e Entity, attrs map[string]any, ignore ...string) error {
	skip := map[string]struct{}{
		"id": {}, "created_at": {}, "updated_at": {}, ClassKey: {},
	}
	for _, key := range ignore {
		skip[key] = struct{}{}
	}
	filtered := make(map[string]any, len(attrs))
	for key, value := range attrs {
		if _, ok := skip[key]; ok {
			continue
		}
		filtered[key] = value
	}
	if len(filtered) == 0 {
		return nil
	}
	if err := decodeInto(e, filtered); err != nil {
		return fmt.Errorf("model: update %s: %w", e.TypeName(), err)
	}
	return nil
}

// ToMap serializes an entity to its field mapping, including the __class__
// discriminator.
func ToMap(e Entity) (map[string]any, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("model: serialize %s: %w", e.TypeName(), err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("model: serialize %s: %w", e.TypeName(), err)
	}
	out[ClassKey] = e.TypeName()
	return out, nil
}

// Key returns the composite lookup key for an entity, "<TypeName>.<id>".
func Key(e Entity) string {
	return e.TypeName() + "." + e.EntityID()
}

// Equal reports entity identity: same type name and same id.
func Equal(a, b Entity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.TypeName() == b.TypeName() && a.EntityID() == b.EntityID()
}

func decodeInto(e Entity, attrs map[string]any) error {
	clean := make(map[string]any, len(attrs))
	for key, value := range attrs {
		if key == ClassKey {
			continue
		}
		clean[key] = value
	}
	payload, err := json.Marshal(clean)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, e)
}
