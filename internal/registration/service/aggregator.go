package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"registrar/internal/registration/models"
	"registrar/pkg/domain"
	"registrar/pkg/domainerrors"
)

// relatedFanoutLimit caps concurrent per-org related lookups when hydrating a
// listing page.
const relatedFanoutLimit = 8

// Aggregator serves the cross-source organization listings. It reads through
// the linkers so each source's store and cache wiring is reused.
type Aggregator struct {
	linkers map[models.Source]*Linker
}

func NewAggregator(linkers ...*Linker) *Aggregator {
	bySource := make(map[models.Source]*Linker, len(linkers))
	for _, l := range linkers {
		bySource[l.Source()] = l
	}
	return &Aggregator{linkers: bySource}
}

func (a *Aggregator) linker(source models.Source) (*Linker, error) {
	l, ok := a.linkers[source]
	if !ok {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "invalid source")
	}
	return l, nil
}

// ListOrganizations returns one page of organizations for a source, filtered
// by program and case-insensitive value search, ordered by (program, value).
func (a *Aggregator) ListOrganizations(ctx context.Context, source models.Source, params models.ListParams) (*models.OrganizationList, error) {
	l, err := a.linker(source)
	if err != nil {
		return nil, err
	}

	page, perPage := params.Normalize()
	filter := models.ListFilter{
		ProgramID: domain.ProgramID(params.ProgramID),
		Search:    params.Search,
		Offset:    (page - 1) * perPage,
		Limit:     perPage,
	}
	orgs, total, err := l.stores.Associations.ListOrganizations(ctx, filter)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to list organizations")
	}
	return &models.OrganizationList{
		Data:       orgs,
		Pagination: models.NewPage(total, page, perPage),
	}, nil
}

// ListOrganizationsWithRelated hydrates each organization on the page with
// its related entities. Hydration is concurrent but bounded so a wide page
// does not stampede the store.
func (a *Aggregator) ListOrganizationsWithRelated(ctx context.Context, source models.Source, params models.ListParams) (*models.OrganizationList, error) {
	list, err := a.ListOrganizations(ctx, source, params)
	if err != nil {
		return nil, err
	}
	l, err := a.linker(source)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(relatedFanoutLimit)
	for i := range list.Data {
		g.Go(func() error {
			org := &list.Data[i]
			related, err := l.RelatedEntities(gctx, org.ID, org.ProgramID)
			if err != nil {
				return err
			}
			org.Related = related
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return list, nil
}
