package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"registrar/internal/platform/database"
	"registrar/internal/registration/models"
	"registrar/pkg/domain"
	"registrar/pkg/platform/sentinel"
)

// Postgres persists the entity pools. Every method honors a context-carried
// transaction so the service can make resolve-then-link atomic.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// ResolveOrCreate is a single upsert: the uniqueness constraint decides
// whether the value is new, so concurrent creators converge on one row. The
// no-op DO UPDATE lets RETURNING yield the surviving id either way; xmax = 0
// distinguishes a fresh insert from a dedup hit.
func (s *Postgres) ResolveOrCreate(ctx context.Context, category models.Category, value string, programID domain.ProgramID) (domain.EntityID, bool, error) {
	q := database.From(ctx, s.db)

	var (
		id      uuid.UUID
		created bool
	)
	if category == models.CategoryOrg {
		err := q.QueryRowContext(ctx, `
			INSERT INTO organizations (id, value, program_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (program_id, value) DO UPDATE SET value = EXCLUDED.value
			RETURNING id, (xmax = 0)`,
			uuid.New(), value, programID.String(),
		).Scan(&id, &created)
		if err != nil {
			return domain.EntityID{}, false, fmt.Errorf("resolve organization: %w", err)
		}
		return domain.EntityID(id), created, nil
	}

	err := q.QueryRowContext(ctx, `
		INSERT INTO entities (id, category, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (category, value) DO UPDATE SET value = EXCLUDED.value
		RETURNING id, (xmax = 0)`,
		uuid.New(), string(category), value,
	).Scan(&id, &created)
	if err != nil {
		return domain.EntityID{}, false, fmt.Errorf("resolve entity: %w", err)
	}
	return domain.EntityID(id), created, nil
}

func (s *Postgres) UpdateValue(ctx context.Context, category models.Category, entityID domain.EntityID, newValue string, programID domain.ProgramID) error {
	q := database.From(ctx, s.db)

	var current string
	var err error
	if category == models.CategoryOrg {
		err = q.QueryRowContext(ctx,
			`SELECT value FROM organizations WHERE id = $1 AND program_id = $2`,
			uuid.UUID(entityID), programID.String(),
		).Scan(&current)
	} else {
		err = q.QueryRowContext(ctx,
			`SELECT value FROM entities WHERE id = $1 AND category = $2`,
			uuid.UUID(entityID), string(category),
		).Scan(&current)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load entity value: %w", err)
	}
	if current == newValue {
		return sentinel.ErrNoChange
	}

	if category == models.CategoryOrg {
		_, err = q.ExecContext(ctx,
			`UPDATE organizations SET value = $1 WHERE id = $2 AND program_id = $3`,
			newValue, uuid.UUID(entityID), programID.String(),
		)
	} else {
		_, err = q.ExecContext(ctx,
			`UPDATE entities SET value = $1 WHERE id = $2 AND category = $3`,
			newValue, uuid.UUID(entityID), string(category),
		)
	}
	if database.IsUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update entity value: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, category models.Category, entityID domain.EntityID) (*models.Entity, error) {
	q := database.From(ctx, s.db)

	record := models.Entity{ID: entityID, Category: category}
	var err error
	if category == models.CategoryOrg {
		var program string
		err = q.QueryRowContext(ctx,
			`SELECT value, program_id, created_at FROM organizations WHERE id = $1`,
			uuid.UUID(entityID),
		).Scan(&record.Value, &program, &record.CreatedAt)
		record.ProgramID = domain.ProgramID(program)
	} else {
		err = q.QueryRowContext(ctx,
			`SELECT value, created_at FROM entities WHERE id = $1 AND category = $2`,
			uuid.UUID(entityID), string(category),
		).Scan(&record.Value, &record.CreatedAt)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	return &record, nil
}

func (s *Postgres) DeleteOrganization(ctx context.Context, entityID domain.EntityID, programID domain.ProgramID) error {
	q := database.From(ctx, s.db)

	res, err := q.ExecContext(ctx,
		`DELETE FROM organizations WHERE id = $1 AND program_id = $2`,
		uuid.UUID(entityID), programID.String(),
	)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
