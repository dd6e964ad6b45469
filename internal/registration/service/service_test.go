package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"registrar/internal/registration/models"
	"registrar/internal/registration/store/association"
	"registrar/internal/registration/store/entity"
	"registrar/pkg/domain"
	"registrar/pkg/domainerrors"
	"registrar/pkg/platform/audit"
)

type LinkerSuite struct {
	suite.Suite
	entities *entity.InMemory
	events   *audit.InMemoryStore
	whois    *Linker
	rdap     *Linker
	ctx      context.Context
}

func (s *LinkerSuite) SetupTest() {
	s.entities = entity.NewInMemory()
	s.events = audit.NewInMemoryStore()
	s.whois = s.newLinker(models.SourceWhois)
	s.rdap = s.newLinker(models.SourceRdap)
	s.ctx = context.Background()
}

func (s *LinkerSuite) newLinker(source models.Source) *Linker {
	stores := Stores{
		Entities:     s.entities,
		Associations: association.NewInMemory(source, s.entities),
	}
	return NewLinker(source, stores, NewMemoryTx(stores),
		WithAudit(audit.NewPublisher(s.events)),
	)
}

func TestLinkerSuite(t *testing.T) {
	suite.Run(t, new(LinkerSuite))
}

func (s *LinkerSuite) createOrg(l *Linker, value string, programID domain.ProgramID) domain.EntityID {
	id, err := l.CreateAssociation(s.ctx, models.CategoryOrg, value, programID, nil)
	s.Require().NoError(err)
	return id
}

// TestCreateAssociationValidation verifies input rejection happens before any
// write.
func (s *LinkerSuite) TestCreateAssociationValidation() {
	orgID := s.createOrg(s.whois, "Acme Corp", "prog-1")

	s.Run("rejects an unknown category", func() {
		_, err := s.whois.CreateAssociation(s.ctx, "domainzz", "x", "prog-1", &orgID)
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
		s.Equal("invalid type", domainerrors.MessageOf(err))
	})

	s.Run("rejects group for whois", func() {
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryGroup, "admins", "prog-1", &orgID)
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
	})

	s.Run("accepts group for rdap", func() {
		rdapOrg := s.createOrg(s.rdap, "Acme Corp", "prog-1")
		_, err := s.rdap.CreateAssociation(s.ctx, models.CategoryGroup, "admins", "prog-1", &rdapOrg)
		s.Require().NoError(err)
	})

	s.Run("rejects an empty value without writing", func() {
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "  ", "prog-1", &orgID)
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
		s.Equal("value must be a non-empty string", domainerrors.MessageOf(err))

		related, err := s.whois.RelatedEntities(s.ctx, orgID, "prog-1")
		s.Require().NoError(err)
		s.Empty(related)
	})

	s.Run("rejects a missing program", func() {
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "", &orgID)
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
		s.Equal("programId is required", domainerrors.MessageOf(err))
	})

	s.Run("rejects a non-org create without orgRef", func() {
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-1", nil)
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeBadRequest))
		s.Equal("orgRef is required for non-organization types", domainerrors.MessageOf(err))
	})
}

// TestCreateAssociationOrgResolution verifies the org ref must resolve inside
// the caller's program and that failures leave no entity behind.
func (s *LinkerSuite) TestCreateAssociationOrgResolution() {
	orgID := s.createOrg(s.whois, "Acme Corp", "prog-1")

	s.Run("unknown org yields organization_not_found", func() {
		ghost := domain.NewEntityID()
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "ghost@acme.com", "prog-1", &ghost)
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeOrgNotFound))

		// The failed transaction must not have resolved the entity.
		_, created, resolveErr := s.entities.ResolveOrCreate(s.ctx, models.CategoryEmail, "ghost@acme.com", "prog-1")
		s.Require().NoError(resolveErr)
		s.True(created)
	})

	s.Run("org from another program does not resolve", func() {
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "cross@acme.com", "prog-2", &orgID)
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeOrgNotFound))
	})
}

// TestSharedEntityAcrossPrograms verifies the Acme scenario: one email entity,
// two programs, two org anchors.
func (s *LinkerSuite) TestSharedEntityAcrossPrograms() {
	org1 := s.createOrg(s.whois, "Acme Corp", "prog-1")
	org2 := s.createOrg(s.whois, "Acme Corp", "prog-2")
	s.NotEqual(org1, org2, "org identity is per program")

	email1, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-1", &org1)
	s.Require().NoError(err)
	email2, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-2", &org2)
	s.Require().NoError(err)
	s.Equal(email1, email2, "shared categories dedup globally")

	first, err := s.whois.RelatedEntities(s.ctx, org1, "prog-1")
	s.Require().NoError(err)
	second, err := s.whois.RelatedEntities(s.ctx, org2, "prog-2")
	s.Require().NoError(err)
	s.Require().Len(first, 1)
	s.Require().Len(second, 1)
	s.Equal(first[0].ID, second[0].ID)
}

// TestSharedEntityTwoOrgsOneProgram verifies an entity observed under a
// second organization in the same program is linked there too, not silently
// absorbed by the first link.
func (s *LinkerSuite) TestSharedEntityTwoOrgsOneProgram() {
	acme := s.createOrg(s.whois, "Acme Corp", "prog-7")
	globex := s.createOrg(s.whois, "Globex", "prog-7")

	first, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-7", &acme)
	s.Require().NoError(err)
	second, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-7", &globex)
	s.Require().NoError(err)
	s.Equal(first, second, "one shared entity behind both links")

	for _, org := range []domain.EntityID{acme, globex} {
		related, err := s.whois.RelatedEntities(s.ctx, org, "prog-7")
		s.Require().NoError(err)
		s.Require().Len(related, 1)
		s.Equal(first, related[0].ID)
	}

	// Deleting the entity's links detaches it from both orgs.
	s.Require().NoError(s.whois.DeleteAssociation(s.ctx, models.CategoryEmail, first, "prog-7"))
	for _, org := range []domain.EntityID{acme, globex} {
		related, err := s.whois.RelatedEntities(s.ctx, org, "prog-7")
		s.Require().NoError(err)
		s.Empty(related)
	}
}

// TestCreateIsIdempotent verifies re-observing a triple succeeds and returns
// the same entity id.
func (s *LinkerSuite) TestCreateIsIdempotent() {
	orgID := s.createOrg(s.whois, "Acme Corp", "prog-1")

	first, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-1", &orgID)
	s.Require().NoError(err)
	second, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-1", &orgID)
	s.Require().NoError(err)
	s.Equal(first, second)

	related, err := s.whois.RelatedEntities(s.ctx, orgID, "prog-1")
	s.Require().NoError(err)
	s.Len(related, 1)
}

// TestUpdateValue verifies the no-op, not-found and conflict paths.
func (s *LinkerSuite) TestUpdateValue() {
	orgID := s.createOrg(s.whois, "Acme Corp", "prog-1")
	emailID, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-1", &orgID)
	s.Require().NoError(err)

	s.Run("updates the value", func() {
		s.Require().NoError(s.whois.UpdateValue(s.ctx, models.CategoryEmail, emailID, "b@acme.com", "prog-1"))

		related, err := s.whois.RelatedEntities(s.ctx, orgID, "prog-1")
		s.Require().NoError(err)
		s.Require().Len(related, 1)
		s.Equal("b@acme.com", related[0].Value)
	})

	s.Run("updating to the current value is a successful no-op", func() {
		s.Require().NoError(s.whois.UpdateValue(s.ctx, models.CategoryEmail, emailID, "b@acme.com", "prog-1"))
	})

	s.Run("unknown entity yields not_found", func() {
		err := s.whois.UpdateValue(s.ctx, models.CategoryEmail, domain.NewEntityID(), "c@acme.com", "prog-1")
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeNotFound))
	})

	s.Run("collision yields duplicate_value", func() {
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "taken@acme.com", "prog-1", &orgID)
		s.Require().NoError(err)

		err = s.whois.UpdateValue(s.ctx, models.CategoryEmail, emailID, "taken@acme.com", "prog-1")
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeConflict))
	})
}

// TestDeleteAssociation verifies the single-link path and the org cascade.
func (s *LinkerSuite) TestDeleteAssociation() {
	s.Run("deletes one link and keeps the shared entity", func() {
		org1 := s.createOrg(s.whois, "Acme Corp", "prog-1")
		org2 := s.createOrg(s.whois, "Acme Corp", "prog-2")
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-1", &org1)
		s.Require().NoError(err)
		emailID, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-2", &org2)
		s.Require().NoError(err)

		s.Require().NoError(s.whois.DeleteAssociation(s.ctx, models.CategoryEmail, emailID, "prog-1"))

		related, err := s.whois.RelatedEntities(s.ctx, org1, "prog-1")
		s.Require().NoError(err)
		s.Empty(related)

		// The other program still sees the entity.
		related, err = s.whois.RelatedEntities(s.ctx, org2, "prog-2")
		s.Require().NoError(err)
		s.Require().Len(related, 1)
		s.Equal(emailID, related[0].ID)
	})

	s.Run("org delete cascades and removes the org entity", func() {
		orgID := s.createOrg(s.whois, "Globex", "prog-1")
		_, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "ceo@globex.com", "prog-1", &orgID)
		s.Require().NoError(err)
		_, err = s.whois.CreateAssociation(s.ctx, models.CategoryName, "Hank Scorpio", "prog-1", &orgID)
		s.Require().NoError(err)

		s.Require().NoError(s.whois.DeleteAssociation(s.ctx, models.CategoryOrg, orgID, "prog-1"))

		_, err = s.whois.RelatedEntities(s.ctx, orgID, "prog-1")
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeOrgNotFound))

		// Shared entities survive the cascade.
		_, created, err := s.entities.ResolveOrCreate(s.ctx, models.CategoryEmail, "ceo@globex.com", "prog-1")
		s.Require().NoError(err)
		s.False(created)
	})

	s.Run("missing association yields not_found", func() {
		err := s.whois.DeleteAssociation(s.ctx, models.CategoryEmail, domain.NewEntityID(), "prog-1")
		s.Require().True(domainerrors.HasCode(err, domainerrors.CodeNotFound))
	})
}

// TestRelatedEntitiesOrder verifies the fixed category ordering of the
// fan-out.
func (s *LinkerSuite) TestRelatedEntitiesOrder() {
	orgID := s.createOrg(s.whois, "Acme Corp", "prog-1")
	for _, obs := range []struct {
		category models.Category
		value    string
	}{
		{models.CategoryPhone, "+15550100"},
		{models.CategoryEmail, "a@acme.com"},
		{models.CategoryName, "John Doe"},
		{models.CategoryNameserver, "ns1.acme.com"},
		{models.CategoryAddress, "1 Main St"},
	} {
		_, err := s.whois.CreateAssociation(s.ctx, obs.category, obs.value, "prog-1", &orgID)
		s.Require().NoError(err)
	}

	related, err := s.whois.RelatedEntities(s.ctx, orgID, "prog-1")
	s.Require().NoError(err)
	s.Require().Len(related, 5)

	got := make([]models.Category, 0, len(related))
	for _, r := range related {
		got = append(got, r.Category)
	}
	s.Equal([]models.Category{
		models.CategoryName,
		models.CategoryEmail,
		models.CategoryAddress,
		models.CategoryNameserver,
		models.CategoryPhone,
	}, got)
}

// TestAuditTrail verifies post-commit events for the write operations.
func (s *LinkerSuite) TestAuditTrail() {
	orgID := s.createOrg(s.whois, "Acme Corp", "prog-1")
	emailID, err := s.whois.CreateAssociation(s.ctx, models.CategoryEmail, "a@acme.com", "prog-1", &orgID)
	s.Require().NoError(err)
	s.Require().NoError(s.whois.UpdateValue(s.ctx, models.CategoryEmail, emailID, "b@acme.com", "prog-1"))
	// No-op update emits nothing.
	s.Require().NoError(s.whois.UpdateValue(s.ctx, models.CategoryEmail, emailID, "b@acme.com", "prog-1"))
	s.Require().NoError(s.whois.DeleteAssociation(s.ctx, models.CategoryEmail, emailID, "prog-1"))

	kinds := make([]string, 0)
	for _, event := range s.events.Events() {
		kinds = append(kinds, event.Kind)
		s.Equal("whois", event.Source)
		s.Equal("prog-1", event.ProgramID)
	}
	s.Equal([]string{
		audit.KindAssociationCreated,
		audit.KindAssociationCreated,
		audit.KindAssociationUpdated,
		audit.KindAssociationDeleted,
	}, kinds)
}
