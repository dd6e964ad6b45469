// Package handler exposes the registration graph over HTTP. One handler
// serves both sources; the {source} path parameter picks the pipeline.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"registrar/internal/registration/models"
	"registrar/internal/transport/http/shared"
	"registrar/pkg/domain"
	"registrar/pkg/domainerrors"
)

// Linker is the per-source write and related-read surface.
type Linker interface {
	CreateAssociation(ctx context.Context, category models.Category, value string, programID domain.ProgramID, orgRef *domain.EntityID) (domain.EntityID, error)
	UpdateValue(ctx context.Context, category models.Category, entityID domain.EntityID, newValue string, programID domain.ProgramID) error
	DeleteAssociation(ctx context.Context, category models.Category, entityID domain.EntityID, programID domain.ProgramID) error
	RelatedEntities(ctx context.Context, orgID domain.EntityID, programID domain.ProgramID) ([]models.RelatedEntity, error)
}

// Aggregator is the cross-source listing surface.
type Aggregator interface {
	ListOrganizations(ctx context.Context, source models.Source, params models.ListParams) (*models.OrganizationList, error)
	ListOrganizationsWithRelated(ctx context.Context, source models.Source, params models.ListParams) (*models.OrganizationList, error)
}

// Handler handles registration endpoints for both sources.
type Handler struct {
	logger      *slog.Logger
	linkers     map[models.Source]Linker
	aggregator  Aggregator
	requireAuth func(http.Handler) http.Handler
}

// New creates a registration Handler. requireAuth guards the write routes;
// pass nil to leave them open (dev mode).
func New(logger *slog.Logger, linkers map[models.Source]Linker, aggregator Aggregator, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:      logger,
		linkers:     linkers,
		aggregator:  aggregator,
		requireAuth: requireAuth,
	}
}

// Register registers the registration routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/{source}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if h.requireAuth != nil {
				r.Use(h.requireAuth)
			}
			r.Post("/associations", h.handleCreateAssociation)
			r.Put("/associations/{type}/{id}", h.handleUpdateValue)
			r.Delete("/associations/{type}/{id}", h.handleDeleteAssociation)
		})
		r.Get("/organizations", h.handleListOrganizations)
		r.Get("/organizations/related", h.handleListOrganizationsRelated)
		r.Get("/related/{orgId}", h.handleRelatedEntities)
	})
}

func (h *Handler) linker(r *http.Request) (Linker, models.Source, error) {
	source, ok := models.ParseSource(chi.URLParam(r, "source"))
	if !ok {
		return nil, "", domainerrors.New(domainerrors.CodeNotFound, "unknown source")
	}
	l, ok := h.linkers[source]
	if !ok {
		return nil, "", domainerrors.New(domainerrors.CodeNotFound, "unknown source")
	}
	return l, source, nil
}

type createAssociationRequest struct {
	Type      string `json:"type"`
	Value     any    `json:"value"`
	ProgramID string `json:"programId"`
	OrgRef    string `json:"orgRef"`
}

func (h *Handler) handleCreateAssociation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l, source, err := h.linker(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req createAssociationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	value, ok := req.Value.(string)
	if !ok {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "value must be a non-empty string"))
		return
	}

	var orgRef *domain.EntityID
	if req.OrgRef != "" {
		id, err := domain.ParseEntityID(req.OrgRef)
		if err != nil {
			shared.WriteError(w, domainerrors.New(domainerrors.CodeOrgNotFound, "organization not found"))
			return
		}
		orgRef = &id
	}

	entityID, err := l.CreateAssociation(ctx, models.Category(req.Type), value, domain.ProgramID(req.ProgramID), orgRef)
	if err != nil {
		h.logError(ctx, "create association failed", source, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]string{"id": entityID.String()})
}

type updateValueRequest struct {
	Value     any    `json:"value"`
	ProgramID string `json:"programId"`
}

func (h *Handler) handleUpdateValue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l, source, err := h.linker(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entityID, err := domain.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "entity not found"))
		return
	}

	var req updateValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	value, ok := req.Value.(string)
	if !ok {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "value must be a non-empty string"))
		return
	}

	category := models.Category(chi.URLParam(r, "type"))
	if err := l.UpdateValue(ctx, category, entityID, value, domain.ProgramID(req.ProgramID)); err != nil {
		h.logError(ctx, "update value failed", source, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"id": entityID.String()})
}

func (h *Handler) handleDeleteAssociation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l, source, err := h.linker(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	entityID, err := domain.ParseEntityID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "association not found"))
		return
	}

	category := models.Category(chi.URLParam(r, "type"))
	programID := domain.ProgramID(r.URL.Query().Get("programId"))
	if err := l.DeleteAssociation(ctx, category, entityID, programID); err != nil {
		h.logError(ctx, "delete association failed", source, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"id": entityID.String()})
}

func (h *Handler) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	h.listOrganizations(w, r, false)
}

func (h *Handler) handleListOrganizationsRelated(w http.ResponseWriter, r *http.Request) {
	h.listOrganizations(w, r, true)
}

func (h *Handler) listOrganizations(w http.ResponseWriter, r *http.Request, withRelated bool) {
	ctx := r.Context()
	_, source, err := h.linker(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	params := listParamsFromQuery(r)
	var list *models.OrganizationList
	if withRelated {
		list, err = h.aggregator.ListOrganizationsWithRelated(ctx, source, params)
	} else {
		list, err = h.aggregator.ListOrganizations(ctx, source, params)
	}
	if err != nil {
		h.logError(ctx, "list organizations failed", source, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleRelatedEntities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l, source, err := h.linker(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	orgID, err := domain.ParseEntityID(chi.URLParam(r, "orgId"))
	if err != nil {
		shared.WriteError(w, domainerrors.New(domainerrors.CodeOrgNotFound, "organization not found"))
		return
	}

	programID := domain.ProgramID(r.URL.Query().Get("programId"))
	related, err := l.RelatedEntities(ctx, orgID, programID)
	if err != nil {
		h.logError(ctx, "related entities lookup failed", source, err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, related)
}

func (h *Handler) logError(ctx context.Context, msg string, source models.Source, err error) {
	code := domainerrors.CodeOf(err)
	if code == domainerrors.CodeInternal || code == domainerrors.CodeTimeout {
		h.logger.ErrorContext(ctx, msg, "source", source, "code", code, "error", err)
		return
	}
	h.logger.WarnContext(ctx, msg, "source", source, "code", code, "error", err)
}
