package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

type JourneyRepo interface {
	Create(dbc dbctx.Context, rows []*domain.Journey) ([]*domain.Journey, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Journey, error)

	// LockByID takes a FOR UPDATE lock on the journey row. Every ordering or
	// status mutation acquires it first so concurrent writers on the same
	// journey serialize.
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Journey, error)

	GetActiveByEmployeeID(dbc dbctx.Context, employeeID uuid.UUID) (*domain.Journey, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type journeyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJourneyRepo(db *gorm.DB, baseLog *logger.Logger) JourneyRepo {
	return &journeyRepo{db: db, log: baseLog.With("repo", "JourneyRepo")}
}

func (r *journeyRepo) Create(dbc dbctx.Context, rows []*domain.Journey) ([]*domain.Journey, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.Journey{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *journeyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Journey, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.Journey
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *journeyRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Journey, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.Journey
	err := t.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *journeyRepo) GetActiveByEmployeeID(dbc dbctx.Context, employeeID uuid.UUID) (*domain.Journey, error) {
	if employeeID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.Journey
	err := t.WithContext(dbc.Ctx).
		Where("employee_id = ? AND status IN ?", employeeID, domain.ActiveJourneyStatuses).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *journeyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Journey{}).
		Where("id = ?", id).
		Updates(updates).Error
}
