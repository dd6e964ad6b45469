// Package domain holds the typed identifiers shared across modules. Keeping
// them in one dependency-free package lets stores, services and handlers agree
// on identity without importing each other.
package domain

import "github.com/google/uuid"

// EntityID identifies a record in one of the entity pools (organizations or
// the shared global pool).
type EntityID uuid.UUID

// AssociationID identifies a source-specific link row.
type AssociationID uuid.UUID

// ProgramID identifies the program (scope owner) an observation belongs to.
// Programs are managed by an external collaborator, so this stays an opaque
// string rather than a foreign key we could validate locally.
type ProgramID string

func NewEntityID() EntityID           { return EntityID(uuid.New()) }
func NewAssociationID() AssociationID { return AssociationID(uuid.New()) }

func (id EntityID) String() string      { return uuid.UUID(id).String() }
func (id AssociationID) String() string { return uuid.UUID(id).String() }
func (p ProgramID) String() string      { return string(p) }

func (id EntityID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (p ProgramID) IsZero() bool { return p == "" }

// ParseEntityID parses the textual form used on the HTTP boundary.
func ParseEntityID(s string) (EntityID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(u), nil
}

func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *EntityID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = EntityID(u)
	return nil
}

func (id AssociationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *AssociationID) UnmarshalText(text []byte) error {
	u, err := uuid.Parse(string(text))
	if err != nil {
		return err
	}
	*id = AssociationID(u)
	return nil
}
