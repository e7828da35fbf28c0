package ecs

import "strconv"

// Entity is an opaque identity that groups zero or more components.
// Entities are allocated by [Controller.CreateEntity] and never reused.
type Entity uint64

// String returns the decimal form of the entity identifier.
func (e Entity) String() string { return strconv.FormatUint(uint64(e), 10) }

// ParseEntity parses the decimal form produced by [Entity.String].
func ParseEntity(s string) (Entity, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Entity(v), nil
}
