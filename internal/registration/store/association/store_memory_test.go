package association

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"registrar/internal/registration/models"
	"registrar/internal/registration/store/entity"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

type AssociationStoreSuite struct {
	suite.Suite
	entities *entity.InMemory
	store    *InMemory
	ctx      context.Context
}

func (s *AssociationStoreSuite) SetupTest() {
	s.entities = entity.NewInMemory()
	s.store = NewInMemory(models.SourceWhois, s.entities)
	s.ctx = context.Background()
}

func TestAssociationStoreSuite(t *testing.T) {
	suite.Run(t, new(AssociationStoreSuite))
}

func (s *AssociationStoreSuite) resolve(category models.Category, value string, programID domain.ProgramID) domain.EntityID {
	id, _, err := s.entities.ResolveOrCreate(s.ctx, category, value, programID)
	s.Require().NoError(err)
	return id
}

func (s *AssociationStoreSuite) link(category models.Category, entityID domain.EntityID, programID domain.ProgramID, orgID *domain.EntityID) {
	err := s.store.Create(s.ctx, &models.Association{
		ID:        domain.NewAssociationID(),
		Category:  category,
		EntityID:  entityID,
		ProgramID: programID,
		OrgID:     orgID,
	})
	s.Require().NoError(err)
}

// TestCreate verifies idempotency on the unique triple.
func (s *AssociationStoreSuite) TestCreate() {
	s.Run("re-creating the same triple is a no-op", func() {
		orgID := s.resolve(models.CategoryOrg, "Acme Corp", "prog-1")
		emailID := s.resolve(models.CategoryEmail, "a@acme.com", "prog-1")

		s.link(models.CategoryOrg, orgID, "prog-1", nil)
		s.link(models.CategoryEmail, emailID, "prog-1", &orgID)
		s.link(models.CategoryEmail, emailID, "prog-1", &orgID)

		related, err := s.store.ListByOrgAndCategory(s.ctx, orgID, "prog-1", models.CategoryEmail)
		s.Require().NoError(err)
		s.Len(related, 1)
	})

	s.Run("same entity links to two orgs in one program", func() {
		org1 := s.resolve(models.CategoryOrg, "Hooli", "prog-3")
		org2 := s.resolve(models.CategoryOrg, "Pied Piper", "prog-3")
		emailID := s.resolve(models.CategoryEmail, "cto@hooli.com", "prog-3")

		s.link(models.CategoryOrg, org1, "prog-3", nil)
		s.link(models.CategoryOrg, org2, "prog-3", nil)
		s.link(models.CategoryEmail, emailID, "prog-3", &org1)
		s.link(models.CategoryEmail, emailID, "prog-3", &org2)

		first, err := s.store.ListByOrgAndCategory(s.ctx, org1, "prog-3", models.CategoryEmail)
		s.Require().NoError(err)
		second, err := s.store.ListByOrgAndCategory(s.ctx, org2, "prog-3", models.CategoryEmail)
		s.Require().NoError(err)
		s.Len(first, 1, "the first org keeps its link")
		s.Len(second, 1, "the second observation must not be swallowed")
	})

	s.Run("same entity links independently per program", func() {
		org1 := s.resolve(models.CategoryOrg, "Acme Corp", "prog-5")
		org2 := s.resolve(models.CategoryOrg, "Acme Corp", "prog-6")
		emailID := s.resolve(models.CategoryEmail, "shared@acme.com", "prog-5")

		s.link(models.CategoryOrg, org1, "prog-5", nil)
		s.link(models.CategoryOrg, org2, "prog-6", nil)
		s.link(models.CategoryEmail, emailID, "prog-5", &org1)
		s.link(models.CategoryEmail, emailID, "prog-6", &org2)

		first, err := s.store.ListByOrgAndCategory(s.ctx, org1, "prog-5", models.CategoryEmail)
		s.Require().NoError(err)
		second, err := s.store.ListByOrgAndCategory(s.ctx, org2, "prog-6", models.CategoryEmail)
		s.Require().NoError(err)
		s.Len(first, 1)
		s.Len(second, 1)
		s.Equal(first[0].ID, second[0].ID, "both programs see the same shared entity")
	})
}

// TestDelete verifies link removal and the returned org refs.
func (s *AssociationStoreSuite) TestDelete() {
	s.Run("returns the removed row's org ref", func() {
		orgID := s.resolve(models.CategoryOrg, "Acme Corp", "prog-1")
		nameID := s.resolve(models.CategoryName, "John Doe", "prog-1")
		s.link(models.CategoryName, nameID, "prog-1", &orgID)

		removed, err := s.store.Delete(s.ctx, models.CategoryName, nameID, "prog-1")
		s.Require().NoError(err)
		s.Require().Len(removed, 1)
		s.Equal(orgID, removed[0])
	})

	s.Run("removes every org's link and returns all refs", func() {
		org1 := s.resolve(models.CategoryOrg, "Hooli", "prog-4")
		org2 := s.resolve(models.CategoryOrg, "Pied Piper", "prog-4")
		emailID := s.resolve(models.CategoryEmail, "cto@hooli.com", "prog-4")
		s.link(models.CategoryEmail, emailID, "prog-4", &org1)
		s.link(models.CategoryEmail, emailID, "prog-4", &org2)

		removed, err := s.store.Delete(s.ctx, models.CategoryEmail, emailID, "prog-4")
		s.Require().NoError(err)
		s.ElementsMatch([]domain.EntityID{org1, org2}, removed)

		for _, org := range []domain.EntityID{org1, org2} {
			related, err := s.store.ListByOrgAndCategory(s.ctx, org, "prog-4", models.CategoryEmail)
			s.Require().NoError(err)
			s.Empty(related)
		}
	})

	s.Run("returns ErrNotFound when the triple is absent", func() {
		_, err := s.store.Delete(s.ctx, models.CategoryName, domain.NewEntityID(), "prog-1")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("is scoped by program", func() {
		orgID := s.resolve(models.CategoryOrg, "Acme Corp", "prog-1")
		phoneID := s.resolve(models.CategoryPhone, "+15550100", "prog-1")
		s.link(models.CategoryPhone, phoneID, "prog-1", &orgID)

		_, err := s.store.Delete(s.ctx, models.CategoryPhone, phoneID, "prog-2")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestDeleteByOrg verifies dependent detachment stays inside one program.
func (s *AssociationStoreSuite) TestDeleteByOrg() {
	org1 := s.resolve(models.CategoryOrg, "Acme Corp", "prog-1")
	org2 := s.resolve(models.CategoryOrg, "Acme Corp", "prog-2")
	emailID := s.resolve(models.CategoryEmail, "a@acme.com", "prog-1")
	nameID := s.resolve(models.CategoryName, "John Doe", "prog-1")

	s.link(models.CategoryOrg, org1, "prog-1", nil)
	s.link(models.CategoryOrg, org2, "prog-2", nil)
	s.link(models.CategoryEmail, emailID, "prog-1", &org1)
	s.link(models.CategoryName, nameID, "prog-1", &org1)
	s.link(models.CategoryEmail, emailID, "prog-2", &org2)

	removed, err := s.store.DeleteByOrg(s.ctx, org1, "prog-1")
	s.Require().NoError(err)
	s.Equal(int64(2), removed)

	// The other program's links survive.
	related, err := s.store.ListByOrgAndCategory(s.ctx, org2, "prog-2", models.CategoryEmail)
	s.Require().NoError(err)
	s.Len(related, 1)
}

// TestListByOrgAndCategory verifies the join and its ordering.
func (s *AssociationStoreSuite) TestListByOrgAndCategory() {
	orgID := s.resolve(models.CategoryOrg, "Acme Corp", "prog-1")
	s.link(models.CategoryOrg, orgID, "prog-1", nil)
	for _, value := range []string{"charlie@acme.com", "alice@acme.com", "bob@acme.com"} {
		id := s.resolve(models.CategoryEmail, value, "prog-1")
		s.link(models.CategoryEmail, id, "prog-1", &orgID)
	}

	related, err := s.store.ListByOrgAndCategory(s.ctx, orgID, "prog-1", models.CategoryEmail)
	s.Require().NoError(err)
	s.Require().Len(related, 3)
	s.Equal("alice@acme.com", related[0].Value)
	s.Equal("bob@acme.com", related[1].Value)
	s.Equal("charlie@acme.com", related[2].Value)
	for _, r := range related {
		s.Equal(models.CategoryEmail, r.Category)
	}
}

// TestListOrganizations verifies filtering, search and pagination.
func (s *AssociationStoreSuite) TestListOrganizations() {
	for _, org := range []struct {
		value   string
		program domain.ProgramID
	}{
		{"Acme Corp", "prog-1"},
		{"Globex", "prog-1"},
		{"Initech", "prog-1"},
		{"Acme Corp", "prog-2"},
	} {
		id := s.resolve(models.CategoryOrg, org.value, org.program)
		s.link(models.CategoryOrg, id, org.program, nil)
	}

	s.Run("filters by program", func() {
		orgs, total, err := s.store.ListOrganizations(s.ctx, models.ListFilter{ProgramID: "prog-1", Limit: 10})
		s.Require().NoError(err)
		s.Equal(3, total)
		s.Len(orgs, 3)
		for _, org := range orgs {
			s.Equal(domain.ProgramID("prog-1"), org.ProgramID)
		}
	})

	s.Run("searches case-insensitively", func() {
		orgs, total, err := s.store.ListOrganizations(s.ctx, models.ListFilter{Search: "acme", Limit: 10})
		s.Require().NoError(err)
		s.Equal(2, total)
		s.Len(orgs, 2)
	})

	s.Run("paginates with a stable order", func() {
		first, total, err := s.store.ListOrganizations(s.ctx, models.ListFilter{Offset: 0, Limit: 2})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Require().Len(first, 2)

		second, _, err := s.store.ListOrganizations(s.ctx, models.ListFilter{Offset: 2, Limit: 2})
		s.Require().NoError(err)
		s.Require().Len(second, 2)

		s.Equal("Acme Corp", first[0].Value)
		s.Equal("Globex", first[1].Value)
		s.Equal("Initech", second[0].Value)
		s.Equal(domain.ProgramID("prog-2"), second[1].ProgramID)
	})

	s.Run("offset past the end returns an empty page", func() {
		orgs, total, err := s.store.ListOrganizations(s.ctx, models.ListFilter{Offset: 10, Limit: 2})
		s.Require().NoError(err)
		s.Equal(4, total)
		s.Empty(orgs)
	})
}
