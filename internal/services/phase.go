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

type UpdatePhaseInput struct {
	Title        *string
	Description  *string
	DurationDays *int
}

// PhaseService owns phase ordering. Phase numbers of a journey always form
// the contiguous set {1..N}; every insert and delete renumbers inside one
// transaction under the journey row lock.
type PhaseService interface {
	InsertPhase(ctx context.Context, journeyID uuid.UUID, cfg domain.PhaseConfig, insertAfterPhaseNumber *int, actorUserID *uuid.UUID) (*domain.Phase, error)
	DeletePhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID) error
	UpdatePhaseDetails(ctx context.Context, phaseID uuid.UUID, in UpdatePhaseInput, actorUserID *uuid.UUID) (*domain.Phase, error)
}

type phaseService struct {
	log        *logger.Logger
	uow        uow.UnitOfWork
	journeys   repos.JourneyRepo
	phases     repos.PhaseRepo
	activities repos.ActivityRepo
	feed       ActivityFeed

	now func() time.Time
}

func NewPhaseService(
	baseLog *logger.Logger,
	unit uow.UnitOfWork,
	journeys repos.JourneyRepo,
	phases repos.PhaseRepo,
	activities repos.ActivityRepo,
	feed ActivityFeed,
) PhaseService {
	return &phaseService{
		log:        baseLog.With("service", "PhaseService"),
		uow:        unit,
		journeys:   journeys,
		phases:     phases,
		activities: activities,
		feed:       feed,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *phaseService) InsertPhase(ctx context.Context, journeyID uuid.UUID, cfg domain.PhaseConfig, insertAfterPhaseNumber *int, actorUserID *uuid.UUID) (*domain.Phase, error) {
	if cfg.Title == "" || cfg.DurationDays <= 0 {
		return nil, fmt.Errorf("phase needs a title and a positive duration: %w", apperrors.ErrInvalidArgument)
	}

	var (
		inserted *domain.Phase
		recorded []*domain.Activity
	)
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		journey, err := s.journeys.LockByID(dbc, journeyID)
		if err != nil {
			return err
		}
		if journey == nil {
			return fmt.Errorf("journey %s: %w", journeyID, apperrors.ErrNotFound)
		}
		if journey.EmployeeType != domain.EmployeeTypeNew {
			return fmt.Errorf("phases can only be inserted on new-employee journeys: %w", apperrors.ErrForbidden)
		}

		existing, err := s.phases.GetByJourneyID(dbc, journeyID)
		if err != nil {
			return err
		}
		total := len(existing)

		after := total
		if insertAfterPhaseNumber != nil {
			after = *insertAfterPhaseNumber
			if after < 0 || after > total {
				return fmt.Errorf("insert position %d out of range 0..%d: %w", after, total, apperrors.ErrInvalidArgument)
			}
		}
		newNumber := after + 1

		now := s.now()
		start := now
		if after >= 1 {
			predecessor := existing[after-1]
			if predecessor.DueDate != nil {
				start = *predecessor.DueDate
			}
		}
		due := start.Add(time.Duration(cfg.DurationDays) * 24 * time.Hour)

		// Shift before insert so the new number is free when the row lands.
		if newNumber <= total {
			if err := s.phases.ShiftNumbersUp(dbc, journeyID, newNumber); err != nil {
				return err
			}
		}

		inserted = &domain.Phase{
			ID:           uuid.New(),
			JourneyID:    journeyID,
			PhaseNumber:  newNumber,
			PhaseType:    cfg.PhaseType,
			Title:        cfg.Title,
			Description:  cfg.Description,
			DurationDays: cfg.DurationDays,
			Status:       domain.PhaseStatusNotStarted,
			DueDate:      &due,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := s.phases.Create(dbc, []*domain.Phase{inserted}); err != nil {
			return err
		}

		activity := newActivity(journeyID, intPtr(newNumber), domain.ActivityPhaseAdded,
			"Phase added", fmt.Sprintf("%q inserted at position %d", cfg.Title, newNumber),
			actorUserID, map[string]any{"title": cfg.Title, "duration_days": cfg.DurationDays}, now)
		if _, err := s.activities.Create(dbc, []*domain.Activity{activity}); err != nil {
			return err
		}
		recorded = append(recorded, activity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.feed, recorded)
	return inserted, nil
}

func (s *phaseService) DeletePhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID) error {
	var recorded []*domain.Activity
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, err := s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}
		if phase == nil {
			return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
		}

		journey, err := s.journeys.LockByID(dbc, phase.JourneyID)
		if err != nil {
			return err
		}
		if journey == nil {
			return fmt.Errorf("journey %s: %w", phase.JourneyID, apperrors.ErrNotFound)
		}

		// Re-read under the lock; a concurrent renumbering may have moved it.
		phase, err = s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}
		if phase == nil {
			return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
		}

		if journey.EmployeeType != domain.EmployeeTypeNew {
			return fmt.Errorf("phases can only be deleted on new-employee journeys: %w", apperrors.ErrForbidden)
		}
		if phase.Status != domain.PhaseStatusNotStarted {
			return fmt.Errorf("cannot delete a %s phase: %w", phase.Status, apperrors.ErrInvalidState)
		}

		if err := s.phases.DeleteByID(dbc, phaseID); err != nil {
			return err
		}
		if err := s.phases.ShiftNumbersDown(dbc, phase.JourneyID, phase.PhaseNumber); err != nil {
			return err
		}

		now := s.now()
		activity := newActivity(phase.JourneyID, intPtr(phase.PhaseNumber), domain.ActivityPhaseDeleted,
			"Phase deleted", fmt.Sprintf("%q removed from position %d", phase.Title, phase.PhaseNumber),
			actorUserID, nil, now)
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

func (s *phaseService) UpdatePhaseDetails(ctx context.Context, phaseID uuid.UUID, in UpdatePhaseInput, actorUserID *uuid.UUID) (*domain.Phase, error) {
	if in.Title == nil && in.Description == nil && in.DurationDays == nil {
		return nil, fmt.Errorf("nothing to update: %w", apperrors.ErrInvalidArgument)
	}
	if in.DurationDays != nil && *in.DurationDays <= 0 {
		return nil, fmt.Errorf("duration must be positive: %w", apperrors.ErrInvalidArgument)
	}

	var (
		updated  *domain.Phase
		recorded []*domain.Activity
	)
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, err := s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}
		if phase == nil {
			return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
		}
		if _, err := s.journeys.LockByID(dbc, phase.JourneyID); err != nil {
			return err
		}

		now := s.now()
		updates := map[string]interface{}{"updated_at": now}
		changed := map[string]any{}
		if in.Title != nil {
			updates["title"] = *in.Title
			changed["title"] = *in.Title
		}
		if in.Description != nil {
			updates["description"] = *in.Description
			changed["description"] = *in.Description
		}
		if in.DurationDays != nil {
			updates["duration_days"] = *in.DurationDays
			changed["duration_days"] = *in.DurationDays
			if phase.StartedAt != nil {
				due := phase.StartedAt.Add(time.Duration(*in.DurationDays) * 24 * time.Hour)
				updates["due_date"] = due
			}
		}

		if err := s.phases.UpdateFields(dbc, phaseID, updates); err != nil {
			return err
		}
		updated, err = s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}

		activity := newActivity(phase.JourneyID, intPtr(phase.PhaseNumber), domain.ActivityPhaseUpdated,
			"Phase updated", fmt.Sprintf("%q details changed", phase.Title),
			actorUserID, changed, now)
		if _, err := s.activities.Create(dbc, []*domain.Activity{activity}); err != nil {
			return err
		}
		recorded = append(recorded, activity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.feed, recorded)
	return updated, nil
}
