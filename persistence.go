package authn

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CreateSchema creates the subsystem's tables and indexes if they do not
// exist. Production deployments usually manage migrations externally, this
// helper covers tests and embedded setups.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*LoginAttempt)(nil),
		(*RefreshSession)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	// the atomic failure upsert conflicts on this index
	_, err := db.NewCreateIndex().
		Model((*LoginAttempt)(nil)).
		Index("uq_login_attempts_email_origin").
		Unique().
		IfNotExists().
		Column("email", "origin").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create login attempt index")
	}

	_, err = db.NewCreateIndex().
		Model((*RefreshSession)(nil)).
		Index("ix_refresh_sessions_user").
		IfNotExists().
		Column("user_id").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create refresh session index")
	}

	return nil
}
