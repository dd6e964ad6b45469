// Package association implements the source-tagged link rows tying resolved
// entities to programs and owning organizations. Both sources share one
// implementation; only the backing table differs.
package association

import (
	"context"

	"registrar/internal/registration/models"
	"registrar/pkg/domain"
)

// Store persists link rows for one source.
//
// Create inserts the association in a single statement carrying the org
// reference, so a successful non-org create is never observable with a null
// org ref. Uniqueness covers (category, entity, program, org): re-observing
// the exact same link is an idempotent success, while the same entity
// observed under another organization in the same program stores a second
// row.
//
// Delete removes every row matching (category, entityID, programID) and
// returns the removed rows' org refs so callers can invalidate per-org read
// state, or sentinel.ErrNotFound when nothing matched. DeleteByOrg detaches
// every dependent of an organization within a program and reports how many
// rows went away.
type Store interface {
	Create(ctx context.Context, assoc *models.Association) error
	Delete(ctx context.Context, category models.Category, entityID domain.EntityID, programID domain.ProgramID) ([]domain.EntityID, error)
	DeleteByOrg(ctx context.Context, orgID domain.EntityID, programID domain.ProgramID) (int64, error)
	ListByOrgAndCategory(ctx context.Context, orgID domain.EntityID, programID domain.ProgramID, category models.Category) ([]models.RelatedEntity, error)
	ListOrganizations(ctx context.Context, filter models.ListFilter) ([]models.Organization, int, error)
}
