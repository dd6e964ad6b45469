package association

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"registrar/internal/registration/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// entityLookup is the slice of the entity store the memory association store
// needs to join link rows to their values.
type entityLookup interface {
	Get(ctx context.Context, category models.Category, entityID domain.EntityID) (*models.Entity, error)
}

type linkKey struct {
	category  models.Category
	entityID  domain.EntityID
	programID domain.ProgramID
	orgID     domain.EntityID
}

func orgKeyOf(orgID *domain.EntityID) domain.EntityID {
	if orgID == nil {
		return domain.EntityID{}
	}
	return *orgID
}

// InMemory keeps one source's association rows under a single mutex.
type InMemory struct {
	mu       sync.RWMutex
	source   models.Source
	entities entityLookup
	rows     map[linkKey]*models.Association
}

func NewInMemory(source models.Source, entities entityLookup) *InMemory {
	return &InMemory{
		source:   source,
		entities: entities,
		rows:     make(map[linkKey]*models.Association),
	}
}

func (s *InMemory) Create(_ context.Context, assoc *models.Association) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey{assoc.Category, assoc.EntityID, assoc.ProgramID, orgKeyOf(assoc.OrgID)}
	if _, exists := s.rows[key]; exists {
		return nil
	}
	stored := *assoc
	stored.Source = s.source
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.rows[key] = &stored
	return nil
}

func (s *InMemory) Delete(_ context.Context, category models.Category, entityID domain.EntityID, programID domain.ProgramID) ([]domain.EntityID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orgRefs := make([]domain.EntityID, 0, 1)
	deleted := 0
	for key, row := range s.rows {
		if key.category != category || key.entityID != entityID || key.programID != programID {
			continue
		}
		delete(s.rows, key)
		deleted++
		if row.OrgID != nil {
			orgRefs = append(orgRefs, *row.OrgID)
		}
	}
	if deleted == 0 {
		return nil, sentinel.ErrNotFound
	}
	return orgRefs, nil
}

func (s *InMemory) DeleteByOrg(_ context.Context, orgID domain.EntityID, programID domain.ProgramID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, row := range s.rows {
		if row.OrgID != nil && *row.OrgID == orgID && row.ProgramID == programID {
			delete(s.rows, key)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemory) ListByOrgAndCategory(ctx context.Context, orgID domain.EntityID, programID domain.ProgramID, category models.Category) ([]models.RelatedEntity, error) {
	s.mu.RLock()
	matched := make([]*models.Association, 0)
	for _, row := range s.rows {
		if row.Category == category && row.ProgramID == programID && row.OrgID != nil && *row.OrgID == orgID {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	related := make([]models.RelatedEntity, 0, len(matched))
	for _, row := range matched {
		record, err := s.entities.Get(ctx, row.Category, row.EntityID)
		if err != nil {
			return nil, err
		}
		related = append(related, models.RelatedEntity{
			ID:       record.ID,
			Category: row.Category,
			Value:    record.Value,
		})
	}
	sort.Slice(related, func(i, j int) bool { return related[i].Value < related[j].Value })
	return related, nil
}

func (s *InMemory) ListOrganizations(ctx context.Context, filter models.ListFilter) ([]models.Organization, int, error) {
	s.mu.RLock()
	anchors := make([]*models.Association, 0)
	for _, row := range s.rows {
		if row.Category == models.CategoryOrg {
			anchors = append(anchors, row)
		}
	}
	s.mu.RUnlock()

	orgs := make([]models.Organization, 0, len(anchors))
	for _, row := range anchors {
		if !filter.ProgramID.IsZero() && row.ProgramID != filter.ProgramID {
			continue
		}
		record, err := s.entities.Get(ctx, models.CategoryOrg, row.EntityID)
		if err != nil {
			return nil, 0, err
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(record.Value), strings.ToLower(filter.Search)) {
			continue
		}
		orgs = append(orgs, models.Organization{
			ID:        record.ID,
			Value:     record.Value,
			ProgramID: row.ProgramID,
		})
	}

	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].ProgramID != orgs[j].ProgramID {
			return orgs[i].ProgramID < orgs[j].ProgramID
		}
		return orgs[i].Value < orgs[j].Value
	})

	total := len(orgs)
	if filter.Offset >= total {
		return []models.Organization{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return orgs[filter.Offset:end], total, nil
}
