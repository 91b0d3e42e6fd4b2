package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/data/repos"
	"github.com/waypointhq/onboarding-backend/internal/data/uow"
	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	apperrors "github.com/waypointhq/onboarding-backend/internal/pkg/errors"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

type CreateJourneyInput struct {
	EmployeeID   uuid.UUID
	EmployeeType domain.EmployeeType
	CustomPhases []domain.PhaseConfig
	StartDate    *time.Time
	ActorUserID  *uuid.UUID
}

type JourneyService interface {
	CreateJourney(ctx context.Context, in CreateJourneyInput) (*domain.Journey, []*domain.Phase, error)
	GetJourney(ctx context.Context, journeyID uuid.UUID) (*domain.Journey, []*domain.Phase, error)
	ListActivities(ctx context.Context, journeyID uuid.UUID) ([]*domain.Activity, error)
	PauseJourney(ctx context.Context, journeyID uuid.UUID, actorUserID *uuid.UUID, reason string) error
	ResumeJourney(ctx context.Context, journeyID uuid.UUID, actorUserID *uuid.UUID) error
}

type journeyService struct {
	log        *logger.Logger
	uow        uow.UnitOfWork
	journeys   repos.JourneyRepo
	phases     repos.PhaseRepo
	activities repos.ActivityRepo
	users      repos.UserRepo
	feed       ActivityFeed

	now func() time.Time
}

func NewJourneyService(
	baseLog *logger.Logger,
	unit uow.UnitOfWork,
	journeys repos.JourneyRepo,
	phases repos.PhaseRepo,
	activities repos.ActivityRepo,
	users repos.UserRepo,
	feed ActivityFeed,
) JourneyService {
	return &journeyService{
		log:        baseLog.With("service", "JourneyService"),
		uow:        unit,
		journeys:   journeys,
		phases:     phases,
		activities: activities,
		users:      users,
		feed:       feed,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *journeyService) CreateJourney(ctx context.Context, in CreateJourneyInput) (*domain.Journey, []*domain.Phase, error) {
	if in.EmployeeID == uuid.Nil {
		return nil, nil, fmt.Errorf("missing employee id: %w", apperrors.ErrInvalidArgument)
	}
	if !in.EmployeeType.Valid() {
		return nil, nil, fmt.Errorf("unknown employee type %q: %w", in.EmployeeType, apperrors.ErrInvalidArgument)
	}
	if len(in.CustomPhases) > 0 && in.EmployeeType != domain.EmployeeTypeNew {
		return nil, nil, fmt.Errorf("custom phases are only allowed for new employees: %w", apperrors.ErrForbidden)
	}

	configs := in.CustomPhases
	if len(configs) == 0 {
		configs = domain.DefaultTemplate(in.EmployeeType)
	}
	if len(configs) == 0 {
		return nil, nil, fmt.Errorf("no phases to seed: %w", apperrors.ErrInvalidArgument)
	}
	for i, cfg := range configs {
		if cfg.Title == "" || cfg.DurationDays <= 0 {
			return nil, nil, fmt.Errorf("phase config %d needs a title and a positive duration: %w", i+1, apperrors.ErrInvalidArgument)
		}
	}

	start := s.now()
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}

	var (
		journey *domain.Journey
		seeded  []*domain.Phase
	)
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		employee, err := s.users.GetByID(dbc, in.EmployeeID)
		if err != nil {
			return err
		}
		if employee == nil {
			return fmt.Errorf("employee %s: %w", in.EmployeeID, apperrors.ErrNotFound)
		}

		existing, err := s.journeys.GetActiveByEmployeeID(dbc, in.EmployeeID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("employee %s already has an active journey: %w", in.EmployeeID, apperrors.ErrConflict)
		}

		now := s.now()
		journey = &domain.Journey{
			ID:           uuid.New(),
			EmployeeID:   in.EmployeeID,
			EmployeeType: in.EmployeeType,
			Status:       domain.JourneyStatusInProgress,
			StartDate:    start,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := s.journeys.Create(dbc, []*domain.Journey{journey}); err != nil {
			return err
		}

		// Due dates chain: each phase is due durationDays after the previous
		// phase's due date, anchored at the journey start.
		cursor := start
		seeded = make([]*domain.Phase, 0, len(configs))
		for i, cfg := range configs {
			due := cursor.Add(time.Duration(cfg.DurationDays) * 24 * time.Hour)
			phase := &domain.Phase{
				ID:           uuid.New(),
				JourneyID:    journey.ID,
				PhaseNumber:  i + 1,
				PhaseType:    cfg.PhaseType,
				Title:        cfg.Title,
				Description:  cfg.Description,
				DurationDays: cfg.DurationDays,
				Status:       domain.PhaseStatusNotStarted,
				DueDate:      &due,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if i == 0 {
				startedAt := start
				phase.Status = domain.PhaseStatusInProgress
				phase.StartedAt = &startedAt
			}
			seeded = append(seeded, phase)
			cursor = due
		}
		_, err = s.phases.Create(dbc, seeded)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("journey created",
		"journey_id", journey.ID,
		"employee_id", in.EmployeeID,
		"phase_count", len(seeded))
	return journey, seeded, nil
}

func (s *journeyService) GetJourney(ctx context.Context, journeyID uuid.UUID) (*domain.Journey, []*domain.Phase, error) {
	dbc := dbctx.Context{Ctx: ctx}
	journey, err := s.journeys.GetByID(dbc, journeyID)
	if err != nil {
		return nil, nil, err
	}
	if journey == nil {
		return nil, nil, fmt.Errorf("journey %s: %w", journeyID, apperrors.ErrNotFound)
	}
	phases, err := s.phases.GetByJourneyID(dbc, journeyID)
	if err != nil {
		return nil, nil, err
	}
	return journey, phases, nil
}

func (s *journeyService) ListActivities(ctx context.Context, journeyID uuid.UUID) ([]*domain.Activity, error) {
	dbc := dbctx.Context{Ctx: ctx}
	journey, err := s.journeys.GetByID(dbc, journeyID)
	if err != nil {
		return nil, err
	}
	if journey == nil {
		return nil, fmt.Errorf("journey %s: %w", journeyID, apperrors.ErrNotFound)
	}
	return s.activities.ListByJourneyID(dbc, journeyID)
}

func (s *journeyService) PauseJourney(ctx context.Context, journeyID uuid.UUID, actorUserID *uuid.UUID, reason string) error {
	var recorded []*domain.Activity
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		journey, err := s.journeys.LockByID(dbc, journeyID)
		if err != nil {
			return err
		}
		if journey == nil {
			return fmt.Errorf("journey %s: %w", journeyID, apperrors.ErrNotFound)
		}
		if journey.Status == domain.JourneyStatusPaused || journey.Status == domain.JourneyStatusCompleted {
			return fmt.Errorf("cannot pause a %s journey: %w", journey.Status, apperrors.ErrInvalidState)
		}

		now := s.now()
		if err := s.journeys.UpdateFields(dbc, journeyID, map[string]interface{}{
			"status":       domain.JourneyStatusPaused,
			"paused_at":    now,
			"pause_reason": reason,
			"updated_at":   now,
		}); err != nil {
			return err
		}

		activity := newActivity(journeyID, nil, domain.ActivityJourneyPaused,
			"Journey paused", reason, actorUserID, nil, now)
		if _, err := s.activities.Create(dbc, []*domain.Activity{activity}); err != nil {
			return err
		}
		recorded = append(recorded, activity)
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(ctx, s.feed, recorded)
	return nil
}

func (s *journeyService) ResumeJourney(ctx context.Context, journeyID uuid.UUID, actorUserID *uuid.UUID) error {
	var recorded []*domain.Activity
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		journey, err := s.journeys.LockByID(dbc, journeyID)
		if err != nil {
			return err
		}
		if journey == nil {
			return fmt.Errorf("journey %s: %w", journeyID, apperrors.ErrNotFound)
		}
		if journey.Status != domain.JourneyStatusPaused || journey.PausedAt == nil {
			return fmt.Errorf("cannot resume a %s journey: %w", journey.Status, apperrors.ErrInvalidState)
		}

		now := s.now()
		pausedFor := now.Sub(*journey.PausedAt)
		// Unfinished phases keep their remaining time; completed phases are
		// untouched.
		if err := s.phases.ShiftDueDates(dbc, journeyID, pausedFor); err != nil {
			return err
		}

		if err := s.journeys.UpdateFields(dbc, journeyID, map[string]interface{}{
			"status":       domain.JourneyStatusInProgress,
			"paused_at":    nil,
			"pause_reason": "",
			"updated_at":   now,
		}); err != nil {
			return err
		}

		activity := newActivity(journeyID, nil, domain.ActivityJourneyResumed,
			"Journey resumed", "", actorUserID,
			map[string]any{"paused_seconds": int64(pausedFor.Seconds())}, now)
		if _, err := s.activities.Create(dbc, []*domain.Activity{activity}); err != nil {
			return err
		}
		recorded = append(recorded, activity)
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(ctx, s.feed, recorded)
	return nil
}
