package uow

import (
	"context"

	"gorm.io/gorm"

	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

// UnitOfWork runs fn inside a single atomic transaction. Every multi-record
// journey mutation goes through here: either all writes commit or none do.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormUnitOfWork struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(db *gorm.DB, baseLog *logger.Logger) UnitOfWork {
	return &gormUnitOfWork{db: db, log: baseLog.With("service", "UnitOfWork")}
}

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
