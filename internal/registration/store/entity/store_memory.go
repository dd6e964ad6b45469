package entity

import (
	"context"
	"sync"
	"time"

	"registrar/internal/registration/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

type orgKey struct {
	programID domain.ProgramID
	value     string
}

type poolKey struct {
	category models.Category
	value    string
}

// InMemory keeps the entity pools in maps guarded by one mutex. The single
// lock makes lookup-or-insert atomic, matching the uniqueness constraints the
// Postgres schema enforces.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[domain.EntityID]*models.Entity
	orgKeys  map[orgKey]domain.EntityID
	poolKeys map[poolKey]domain.EntityID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[domain.EntityID]*models.Entity),
		orgKeys:  make(map[orgKey]domain.EntityID),
		poolKeys: make(map[poolKey]domain.EntityID),
	}
}

func (s *InMemory) ResolveOrCreate(_ context.Context, category models.Category, value string, programID domain.ProgramID) (domain.EntityID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category == models.CategoryOrg {
		if id, ok := s.orgKeys[orgKey{programID, value}]; ok {
			return id, false, nil
		}
		record := &models.Entity{
			ID:        domain.NewEntityID(),
			Category:  category,
			Value:     value,
			ProgramID: programID,
			CreatedAt: time.Now(),
		}
		s.byID[record.ID] = record
		s.orgKeys[orgKey{programID, value}] = record.ID
		return record.ID, true, nil
	}

	if id, ok := s.poolKeys[poolKey{category, value}]; ok {
		return id, false, nil
	}
	record := &models.Entity{
		ID:        domain.NewEntityID(),
		Category:  category,
		Value:     value,
		CreatedAt: time.Now(),
	}
	s.byID[record.ID] = record
	s.poolKeys[poolKey{category, value}] = record.ID
	return record.ID, true, nil
}

func (s *InMemory) UpdateValue(_ context.Context, category models.Category, entityID domain.EntityID, newValue string, programID domain.ProgramID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[entityID]
	if !ok || record.Category != category {
		return sentinel.ErrNotFound
	}
	if category == models.CategoryOrg && record.ProgramID != programID {
		return sentinel.ErrNotFound
	}
	if record.Value == newValue {
		return sentinel.ErrNoChange
	}

	if category == models.CategoryOrg {
		if other, exists := s.orgKeys[orgKey{programID, newValue}]; exists && other != entityID {
			return sentinel.ErrConflict
		}
		delete(s.orgKeys, orgKey{programID, record.Value})
		record.Value = newValue
		s.orgKeys[orgKey{programID, newValue}] = entityID
		return nil
	}

	if other, exists := s.poolKeys[poolKey{category, newValue}]; exists && other != entityID {
		return sentinel.ErrConflict
	}
	delete(s.poolKeys, poolKey{category, record.Value})
	record.Value = newValue
	s.poolKeys[poolKey{category, newValue}] = entityID
	return nil
}

func (s *InMemory) Get(_ context.Context, category models.Category, entityID domain.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.byID[entityID]
	if !ok || record.Category != category {
		return nil, sentinel.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *InMemory) DeleteOrganization(_ context.Context, entityID domain.EntityID, programID domain.ProgramID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.byID[entityID]
	if !ok || record.Category != models.CategoryOrg || record.ProgramID != programID {
		return sentinel.ErrNotFound
	}
	delete(s.byID, entityID)
	delete(s.orgKeys, orgKey{programID, record.Value})
	return nil
}
