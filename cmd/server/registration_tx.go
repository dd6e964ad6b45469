package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"registrar/internal/platform/database"
	"registrar/internal/registration/service"
	"registrar/pkg/domainerrors"
)

const defaultRegistrationTxTimeout = 5 * time.Second

// registrationPostgresTx runs registration writes inside one database
// transaction; the stores pick it up from the context.
type registrationPostgresTx struct {
	db      *sql.DB
	stores  service.Stores
	logger  *slog.Logger
	timeout time.Duration
}

func newRegistrationPostgresTx(db *sql.DB, stores service.Stores, logger *slog.Logger) *registrationPostgresTx {
	if logger == nil {
		logger = slog.Default()
	}
	return &registrationPostgresTx{db: db, stores: stores, logger: logger}
}

func (t *registrationPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRegistrationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			t.logger.WarnContext(ctx, "transaction rollback failed", "error", rbErr)
		}
	}()

	if err := fn(database.WithTx(ctx, sqlTx), t.stores); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
