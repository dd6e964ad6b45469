// Package service orchestrates entity resolution and association writes. It
// keeps the transaction boundary here so handlers stay thin and stores stay
// single-purpose.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"registrar/internal/registration/metrics"
	"registrar/internal/registration/models"
	"registrar/pkg/domain"
	"registrar/pkg/domainerrors"
	"registrar/pkg/platform/audit"
	"registrar/pkg/platform/sentinel"
	"registrar/pkg/requestcontext"
)

// Linker resolves observed values into the shared entity pools and links them
// to programs for one source. Every multi-step write runs inside one
// transaction boundary; partial writes are never observable.
type Linker struct {
	source  models.Source
	stores  Stores
	tx      StoreTx
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Emitter
	cache   RelatedCache
}

// Option configures optional Linker hooks.
type Option func(*Linker)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) { l.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Linker) { l.metrics = m }
}

func WithAudit(emitter audit.Emitter) Option {
	return func(l *Linker) { l.audit = emitter }
}

func WithRelatedCache(cache RelatedCache) Option {
	return func(l *Linker) { l.cache = cache }
}

func NewLinker(source models.Source, stores Stores, storeTx StoreTx, opts ...Option) *Linker {
	l := &Linker{
		source: source,
		stores: stores,
		tx:     storeTx,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Source reports which pipeline this linker serves.
func (l *Linker) Source() models.Source { return l.source }

// CreateAssociation validates the observation, resolves the value to an
// entity and links it to the program atomically. Non-organization categories
// must name the owning organization; the link row carries that reference from
// the start. Re-observing the exact same link is an idempotent success
// returning the same entity id; observing the entity under a different
// organization in the program adds a link for that org too.
func (l *Linker) CreateAssociation(ctx context.Context, category models.Category, value string, programID domain.ProgramID, orgRef *domain.EntityID) (domain.EntityID, error) {
	if !l.source.Accepts(category) {
		return domain.EntityID{}, domainerrors.New(domainerrors.CodeBadRequest, "invalid type")
	}
	if strings.TrimSpace(value) == "" {
		return domain.EntityID{}, domainerrors.New(domainerrors.CodeBadRequest, "value must be a non-empty string")
	}
	if programID.IsZero() {
		return domain.EntityID{}, domainerrors.New(domainerrors.CodeBadRequest, "programId is required")
	}
	if category != models.CategoryOrg && orgRef == nil {
		return domain.EntityID{}, domainerrors.New(domainerrors.CodeBadRequest, "orgRef is required for non-organization types")
	}
	if category == models.CategoryOrg {
		orgRef = nil
	}

	ctx = WithTxProgram(ctx, programID.String())

	var (
		entityID domain.EntityID
		created  bool
	)
	err := l.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		if orgRef != nil {
			org, err := stores.Entities.Get(ctx, models.CategoryOrg, *orgRef)
			if errors.Is(err, sentinel.ErrNotFound) {
				return domainerrors.New(domainerrors.CodeOrgNotFound, "organization not found")
			}
			if err != nil {
				return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve organization")
			}
			if org.ProgramID != programID {
				return domainerrors.New(domainerrors.CodeOrgNotFound, "organization not found")
			}
		}

		id, wasCreated, err := stores.Entities.ResolveOrCreate(ctx, category, value, programID)
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve entity")
		}
		entityID, created = id, wasCreated

		assoc := &models.Association{
			ID:        domain.NewAssociationID(),
			Source:    l.source,
			Category:  category,
			EntityID:  id,
			ProgramID: programID,
			OrgID:     orgRef,
			CreatedAt: requestcontext.Now(ctx),
		}
		if err := stores.Associations.Create(ctx, assoc); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to link entity")
		}
		return nil
	})
	if err != nil {
		return domain.EntityID{}, err
	}

	l.metrics.IncrementResolved(string(l.source), string(category), created)
	l.metrics.IncrementCreated(string(l.source), string(category))
	l.emitAudit(ctx, audit.KindAssociationCreated, category, programID, entityID)
	l.invalidateRelated(ctx, orgRef, programID)
	if category == models.CategoryOrg {
		l.invalidateRelated(ctx, &entityID, programID)
	}
	return entityID, nil
}

// UpdateValue changes an entity's value in place. Updating to the current
// value is a successful no-op; a collision with another entity in the same
// scope is a conflict.
func (l *Linker) UpdateValue(ctx context.Context, category models.Category, entityID domain.EntityID, newValue string, programID domain.ProgramID) error {
	if !l.source.Accepts(category) {
		return domainerrors.New(domainerrors.CodeBadRequest, "invalid type")
	}
	if strings.TrimSpace(newValue) == "" {
		return domainerrors.New(domainerrors.CodeBadRequest, "value must be a non-empty string")
	}
	if programID.IsZero() {
		return domainerrors.New(domainerrors.CodeBadRequest, "programId is required")
	}

	ctx = WithTxProgram(ctx, programID.String())

	var noop bool
	err := l.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		err := stores.Entities.UpdateValue(ctx, category, entityID, newValue, programID)
		switch {
		case errors.Is(err, sentinel.ErrNoChange):
			noop = true
			return nil
		case errors.Is(err, sentinel.ErrNotFound):
			return domainerrors.New(domainerrors.CodeNotFound, "entity not found")
		case errors.Is(err, sentinel.ErrConflict):
			return domainerrors.New(domainerrors.CodeConflict, "value already exists")
		case err != nil:
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to update entity")
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.metrics.IncrementUpdate(string(l.source), string(category), noop)
	if !noop {
		l.emitAudit(ctx, audit.KindAssociationUpdated, category, programID, entityID)
		if category == models.CategoryOrg {
			l.invalidateRelated(ctx, &entityID, programID)
		}
	}
	return nil
}

// DeleteAssociation removes the entity's links in the program; an entity
// observed under several organizations loses all of them, since the caller
// cannot address a single one. Organization deletes cascade: dependents are
// detached, the org link removed and the org entity deleted. Shared entities
// always survive; other programs may still reference them.
func (l *Linker) DeleteAssociation(ctx context.Context, category models.Category, entityID domain.EntityID, programID domain.ProgramID) error {
	if !l.source.Accepts(category) {
		return domainerrors.New(domainerrors.CodeBadRequest, "invalid type")
	}
	if programID.IsZero() {
		return domainerrors.New(domainerrors.CodeBadRequest, "programId is required")
	}

	ctx = WithTxProgram(ctx, programID.String())

	var (
		orgRefs  []domain.EntityID
		detached int64
	)
	err := l.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		removed, err := stores.Associations.Delete(ctx, category, entityID, programID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return domainerrors.New(domainerrors.CodeNotFound, "association not found")
		}
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to delete association")
		}
		orgRefs = removed

		if category != models.CategoryOrg {
			return nil
		}

		detached, err = stores.Associations.DeleteByOrg(ctx, entityID, programID)
		if err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to detach dependents")
		}
		if err := stores.Entities.DeleteOrganization(ctx, entityID, programID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to delete organization")
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.metrics.IncrementDeleted(string(l.source), string(category))
	l.emitAudit(ctx, audit.KindAssociationDeleted, category, programID, entityID)
	if category == models.CategoryOrg {
		l.invalidateRelated(ctx, &entityID, programID)
		if detached > 0 {
			l.logger.InfoContext(ctx, "organization dependents detached",
				"source", l.source,
				"org_id", entityID.String(),
				"detached", detached,
			)
		}
	} else {
		for i := range orgRefs {
			l.invalidateRelated(ctx, &orgRefs[i], programID)
		}
	}
	return nil
}

// RelatedEntities returns every non-org entity linked under the organization
// in this program. Categories are read concurrently and concatenated in a
// fixed order.
func (l *Linker) RelatedEntities(ctx context.Context, orgID domain.EntityID, programID domain.ProgramID) ([]models.RelatedEntity, error) {
	if programID.IsZero() {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "programId is required")
	}

	if l.cache != nil {
		if related, ok := l.cache.Get(ctx, l.source, orgID, programID); ok {
			return related, nil
		}
	}

	org, err := l.stores.Entities.Get(ctx, models.CategoryOrg, orgID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, domainerrors.New(domainerrors.CodeOrgNotFound, "organization not found")
	}
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to resolve organization")
	}
	if org.ProgramID != programID {
		return nil, domainerrors.New(domainerrors.CodeOrgNotFound, "organization not found")
	}

	start := time.Now()
	categories := l.source.RelatedCategories()
	results := make([][]models.RelatedEntity, len(categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			related, err := l.stores.Associations.ListByOrgAndCategory(gctx, orgID, programID, category)
			if err != nil {
				return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list related entities")
			}
			results[i] = related
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.metrics.ObserveRelatedLatency(string(l.source), time.Since(start))

	related := make([]models.RelatedEntity, 0)
	for _, slice := range results {
		related = append(related, slice...)
	}

	if l.cache != nil {
		l.cache.Set(ctx, l.source, orgID, programID, related)
	}
	return related, nil
}

func (l *Linker) emitAudit(ctx context.Context, kind string, category models.Category, programID domain.ProgramID, entityID domain.EntityID) {
	if l.audit == nil {
		return
	}
	event := audit.Event{
		Kind:      kind,
		Source:    string(l.source),
		Category:  string(category),
		ProgramID: programID.String(),
		EntityID:  entityID.String(),
		At:        requestcontext.Now(ctx),
	}
	if err := l.audit.Emit(ctx, event); err != nil {
		l.logger.WarnContext(ctx, "audit emit failed",
			"kind", kind,
			"source", l.source,
			"error", err,
		)
	}
}

func (l *Linker) invalidateRelated(ctx context.Context, orgID *domain.EntityID, programID domain.ProgramID) {
	if l.cache == nil || orgID == nil {
		return
	}
	l.cache.Invalidate(ctx, l.source, *orgID, programID)
}
