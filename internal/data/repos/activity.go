package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

// ActivityRepo is append-only: no update or delete surface exists.
type ActivityRepo interface {
	Create(dbc dbctx.Context, rows []*domain.Activity) ([]*domain.Activity, error)
	ListByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) ([]*domain.Activity, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) Create(dbc dbctx.Context, rows []*domain.Activity) ([]*domain.Activity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.Activity{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *activityRepo) ListByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) ([]*domain.Activity, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Activity
	if journeyID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("journey_id = ?", journeyID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
