package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

type PhaseRepo interface {
	Create(dbc dbctx.Context, rows []*domain.Phase) ([]*domain.Phase, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Phase, error)
	GetByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) ([]*domain.Phase, error)

	// GetCurrentByJourneyID returns the single in-progress phase of a journey,
	// or nil when none exists. Uniqueness is held by the phase state machine.
	GetCurrentByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) (*domain.Phase, error)

	GetByJourneyAndNumber(dbc dbctx.Context, journeyID uuid.UUID, phaseNumber int) (*domain.Phase, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error

	// ShiftNumbersUp increments phase_number by 1 for every phase of the
	// journey with phase_number >= fromNumber.
	ShiftNumbersUp(dbc dbctx.Context, journeyID uuid.UUID, fromNumber int) error
	// ShiftNumbersDown decrements phase_number by 1 for every phase of the
	// journey with phase_number > afterNumber, closing a deletion gap.
	ShiftNumbersDown(dbc dbctx.Context, journeyID uuid.UUID, afterNumber int) error
	// ShiftDueDates moves the due date of every not-yet-completed phase of
	// the journey forward by d.
	ShiftDueDates(dbc dbctx.Context, journeyID uuid.UUID, d time.Duration) error

	DeleteByID(dbc dbctx.Context, id uuid.UUID) error
}

type phaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPhaseRepo(db *gorm.DB, baseLog *logger.Logger) PhaseRepo {
	return &phaseRepo{db: db, log: baseLog.With("repo", "PhaseRepo")}
}

func (r *phaseRepo) Create(dbc dbctx.Context, rows []*domain.Phase) ([]*domain.Phase, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*domain.Phase{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *phaseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Phase, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.Phase
	if err := t.WithContext(dbc.Ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *phaseRepo) GetByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) ([]*domain.Phase, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*domain.Phase
	if journeyID == uuid.Nil {
		return out, nil
	}
	err := t.WithContext(dbc.Ctx).
		Where("journey_id = ?", journeyID).
		Order("phase_number ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *phaseRepo) GetCurrentByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) (*domain.Phase, error) {
	if journeyID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.Phase
	err := t.WithContext(dbc.Ctx).
		Where("journey_id = ? AND status = ?", journeyID, domain.PhaseStatusInProgress).
		Order("phase_number ASC").
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

func (r *phaseRepo) GetByJourneyAndNumber(dbc dbctx.Context, journeyID uuid.UUID, phaseNumber int) (*domain.Phase, error) {
	if journeyID == uuid.Nil || phaseNumber < 1 {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row domain.Phase
	err := t.WithContext(dbc.Ctx).
		Where("journey_id = ? AND phase_number = ?", journeyID, phaseNumber).
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

func (r *phaseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Phase{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *phaseRepo) ShiftNumbersUp(dbc dbctx.Context, journeyID uuid.UUID, fromNumber int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if journeyID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Phase{}).
		Where("journey_id = ? AND phase_number >= ?", journeyID, fromNumber).
		UpdateColumn("phase_number", gorm.Expr("phase_number + 1")).Error
}

func (r *phaseRepo) ShiftNumbersDown(dbc dbctx.Context, journeyID uuid.UUID, afterNumber int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if journeyID == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Phase{}).
		Where("journey_id = ? AND phase_number > ?", journeyID, afterNumber).
		UpdateColumn("phase_number", gorm.Expr("phase_number - 1")).Error
}

func (r *phaseRepo) ShiftDueDates(dbc dbctx.Context, journeyID uuid.UUID, d time.Duration) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if journeyID == uuid.Nil || d <= 0 {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&domain.Phase{}).
		Where("journey_id = ? AND status <> ? AND due_date IS NOT NULL", journeyID, domain.PhaseStatusCompleted).
		UpdateColumn("due_date", gorm.Expr("due_date + make_interval(secs => ?)", d.Seconds())).Error
}

func (r *phaseRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&domain.Phase{}).Error
}
