// Package entity implements the entity pools: per-program organization
// records and the globally shared pool for every other category. Identity is
// value-based; resolution never duplicates a value inside its scope.
package entity

import (
	"context"

	"registrar/internal/registration/models"
	"registrar/pkg/domain"
)

// Store resolves observed values to entity records.
//
// ResolveOrCreate returns the existing record's id when the value is already
// known in its scope ((value, programID) for organizations, (category, value)
// globally otherwise), or inserts and returns a fresh id. The boolean reports
// whether a record was created. Implementations must make the lookup-or-insert
// atomic so concurrent creators of the same new value converge on one row.
//
// UpdateValue mutates a record's value in place. Organization updates are
// additionally scoped by programID so one program cannot steal another's row.
// It returns sentinel.ErrNoChange when the value is already current,
// sentinel.ErrNotFound when no record matches, and sentinel.ErrConflict when
// the new value would collide inside the record's scope.
type Store interface {
	ResolveOrCreate(ctx context.Context, category models.Category, value string, programID domain.ProgramID) (domain.EntityID, bool, error)
	UpdateValue(ctx context.Context, category models.Category, entityID domain.EntityID, newValue string, programID domain.ProgramID) error
	Get(ctx context.Context, category models.Category, entityID domain.EntityID) (*models.Entity, error)
	// DeleteOrganization removes an organization entity. Shared-pool entities
	// are never deleted; other programs may still reference them.
	DeleteOrganization(ctx context.Context, entityID domain.EntityID, programID domain.ProgramID) error
}
