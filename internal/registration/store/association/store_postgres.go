package association

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"registrar/internal/platform/database"
	"registrar/internal/registration/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// tableFor maps each source to its link table. The set is closed; anything
// else is a programming error worth failing loudly on at construction.
func tableFor(source models.Source) string {
	switch source {
	case models.SourceWhois:
		return "whois_associations"
	case models.SourceRdap:
		return "rdap_associations"
	default:
		panic(fmt.Sprintf("association: unknown source %q", source))
	}
}

// Postgres persists one source's association rows. The table name is fixed at
// construction; everything else is shared between the two sources.
type Postgres struct {
	db    *sql.DB
	table string
}

func NewPostgres(db *sql.DB, source models.Source) *Postgres {
	return &Postgres{db: db, table: tableFor(source)}
}

func (s *Postgres) Create(ctx context.Context, assoc *models.Association) error {
	q := database.From(ctx, s.db)

	var orgID any
	if assoc.OrgID != nil {
		orgID = uuid.UUID(*assoc.OrgID)
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, category, entity_id, program_id, org_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category, entity_id, program_id, org_id) DO NOTHING`, s.table),
		uuid.UUID(assoc.ID), string(assoc.Category), uuid.UUID(assoc.EntityID),
		assoc.ProgramID.String(), orgID,
	)
	if err != nil {
		return fmt.Errorf("create association: %w", err)
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, category models.Category, entityID domain.EntityID, programID domain.ProgramID) ([]domain.EntityID, error) {
	q := database.From(ctx, s.db)

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE category = $1 AND entity_id = $2 AND program_id = $3
		RETURNING org_id`, s.table),
		string(category), uuid.UUID(entityID), programID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("delete association: %w", err)
	}
	defer rows.Close()

	orgRefs := make([]domain.EntityID, 0, 1)
	deleted := 0
	for rows.Next() {
		var orgID sql.Null[uuid.UUID]
		if err := rows.Scan(&orgID); err != nil {
			return nil, fmt.Errorf("scan deleted association: %w", err)
		}
		deleted++
		if orgID.Valid {
			orgRefs = append(orgRefs, domain.EntityID(orgID.V))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete association: %w", err)
	}
	if deleted == 0 {
		return nil, sentinel.ErrNotFound
	}
	return orgRefs, nil
}

func (s *Postgres) DeleteByOrg(ctx context.Context, orgID domain.EntityID, programID domain.ProgramID) (int64, error) {
	q := database.From(ctx, s.db)

	res, err := q.ExecContext(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE org_id = $1 AND program_id = $2`, s.table),
		uuid.UUID(orgID), programID.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("detach org dependents: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("detach org dependents: %w", err)
	}
	return affected, nil
}

func (s *Postgres) ListByOrgAndCategory(ctx context.Context, orgID domain.EntityID, programID domain.ProgramID, category models.Category) ([]models.RelatedEntity, error) {
	q := database.From(ctx, s.db)

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT e.id, a.category, e.value
		FROM %s a
		JOIN entities e ON e.id = a.entity_id
		WHERE a.org_id = $1 AND a.program_id = $2 AND a.category = $3
		ORDER BY e.value`, s.table),
		uuid.UUID(orgID), programID.String(), string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("list related: %w", err)
	}
	defer rows.Close()

	related := make([]models.RelatedEntity, 0)
	for rows.Next() {
		var (
			id  uuid.UUID
			cat string
			val string
		)
		if err := rows.Scan(&id, &cat, &val); err != nil {
			return nil, fmt.Errorf("scan related: %w", err)
		}
		related = append(related, models.RelatedEntity{
			ID:       domain.EntityID(id),
			Category: models.Category(cat),
			Value:    val,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list related: %w", err)
	}
	return related, nil
}

func (s *Postgres) ListOrganizations(ctx context.Context, filter models.ListFilter) ([]models.Organization, int, error) {
	q := database.From(ctx, s.db)

	where := `WHERE a.category = 'org'`
	args := make([]any, 0, 4)
	if !filter.ProgramID.IsZero() {
		args = append(args, filter.ProgramID.String())
		where += fmt.Sprintf(" AND a.program_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND o.value ILIKE $%d", len(args))
	}

	var total int
	countQuery := fmt.Sprintf(`
		SELECT count(*)
		FROM %s a
		JOIN organizations o ON o.id = a.entity_id
		%s`, s.table, where)
	if err := q.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	listQuery := fmt.Sprintf(`
		SELECT o.id, o.value, a.program_id
		FROM %s a
		JOIN organizations o ON o.id = a.entity_id
		%s
		ORDER BY a.program_id, o.value
		LIMIT $%d OFFSET $%d`, s.table, where, len(args)-1, len(args))

	rows, err := q.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	orgs := make([]models.Organization, 0)
	for rows.Next() {
		var (
			id      uuid.UUID
			value   string
			program string
		)
		if err := rows.Scan(&id, &value, &program); err != nil {
			return nil, 0, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, models.Organization{
			ID:        domain.EntityID(id),
			Value:     value,
			ProgramID: domain.ProgramID(program),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, total, nil
}
