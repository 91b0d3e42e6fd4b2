package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/clients/assessments"
	"github.com/waypointhq/onboarding-backend/internal/clients/training"
	"github.com/waypointhq/onboarding-backend/internal/data/repos"
	"github.com/waypointhq/onboarding-backend/internal/data/uow"
	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	apperrors "github.com/waypointhq/onboarding-backend/internal/pkg/errors"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

const (
	AdvanceCauseAssessment = "assessment_completed"
	AdvanceCauseTraining   = "training_completed"
	AdvanceCauseManual     = "manual_completion"
	AdvanceCauseSkip       = "skipped"
)

// AdvanceService owns phase status transitions. Completing a phase activates
// its successor, or completes the journey when none remains; duplicate or
// late completion signals land as no-ops.
type AdvanceService interface {
	LinkAssessmentToPhase(ctx context.Context, phaseID, assessmentID uuid.UUID, actorUserID *uuid.UUID) error
	LinkTrainingToPhase(ctx context.Context, phaseID, trainingAssignmentID uuid.UUID, actorUserID *uuid.UUID) error

	// AutoAdvancePhase completes the journey's current in-progress phase.
	// When no eligible phase exists it returns (nil, nil).
	AutoAdvancePhase(ctx context.Context, journeyID uuid.UUID, cause string, payload map[string]any) (*domain.Phase, error)

	HandleAssessmentCompleted(ctx context.Context, phaseID, assessmentID uuid.UUID) error
	HandleTrainingCompleted(ctx context.Context, phaseID, trainingAssignmentID uuid.UUID) error

	CompletePhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID) error
	SkipJourneyPhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID, reason string) error
}

type advanceService struct {
	log            *logger.Logger
	uow            uow.UnitOfWork
	journeys       repos.JourneyRepo
	phases         repos.PhaseRepo
	activities     repos.ActivityRepo
	assessmentsAPI assessments.Client
	trainingAPI    training.Client
	feed           ActivityFeed

	now func() time.Time
}

func NewAdvanceService(
	baseLog *logger.Logger,
	unit uow.UnitOfWork,
	journeys repos.JourneyRepo,
	phases repos.PhaseRepo,
	activities repos.ActivityRepo,
	assessmentsAPI assessments.Client,
	trainingAPI training.Client,
	feed ActivityFeed,
) AdvanceService {
	return &advanceService{
		log:            baseLog.With("service", "AdvanceService"),
		uow:            unit,
		journeys:       journeys,
		phases:         phases,
		activities:     activities,
		assessmentsAPI: assessmentsAPI,
		trainingAPI:    trainingAPI,
		feed:           feed,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *advanceService) LinkAssessmentToPhase(ctx context.Context, phaseID, assessmentID uuid.UUID, actorUserID *uuid.UUID) error {
	if assessmentID == uuid.Nil {
		return fmt.Errorf("missing assessment id: %w", apperrors.ErrInvalidArgument)
	}
	if s.assessmentsAPI != nil {
		status, err := s.assessmentsAPI.GetAssessmentStatus(ctx, assessmentID)
		if err != nil {
			return fmt.Errorf("verify assessment %s: %w", assessmentID, err)
		}
		if status != assessments.StatusPublished {
			return fmt.Errorf("assessment %s is %q, not %q: %w", assessmentID, status, assessments.StatusPublished, apperrors.ErrInvalidState)
		}
	}

	return s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, err := s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}
		if phase == nil {
			return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
		}
		return s.phases.UpdateFields(dbc, phaseID, map[string]interface{}{
			"linked_assessment_id": assessmentID,
			"updated_at":           s.now(),
		})
	})
}

func (s *advanceService) LinkTrainingToPhase(ctx context.Context, phaseID, trainingAssignmentID uuid.UUID, actorUserID *uuid.UUID) error {
	if trainingAssignmentID == uuid.Nil {
		return fmt.Errorf("missing training assignment id: %w", apperrors.ErrInvalidArgument)
	}
	if s.trainingAPI != nil {
		ok, err := s.trainingAPI.VerifyAssignment(ctx, trainingAssignmentID)
		if err != nil {
			return fmt.Errorf("verify training assignment %s: %w", trainingAssignmentID, err)
		}
		if !ok {
			return fmt.Errorf("training assignment %s: %w", trainingAssignmentID, apperrors.ErrNotFound)
		}
	}

	return s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, err := s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}
		if phase == nil {
			return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
		}
		return s.phases.UpdateFields(dbc, phaseID, map[string]interface{}{
			"linked_training_assignment_id": trainingAssignmentID,
			"updated_at":                    s.now(),
		})
	})
}

func (s *advanceService) AutoAdvancePhase(ctx context.Context, journeyID uuid.UUID, cause string, payload map[string]any) (*domain.Phase, error) {
	return s.autoAdvance(ctx, journeyID, nil, cause, payload, nil)
}

// autoAdvance completes the current phase under the journey lock. When
// expectPhaseID is set, the advance only fires if that phase is the current
// one, so stale external signals cannot advance a different phase.
func (s *advanceService) autoAdvance(ctx context.Context, journeyID uuid.UUID, expectPhaseID *uuid.UUID, cause string, payload map[string]any, actorUserID *uuid.UUID) (*domain.Phase, error) {
	var (
		completed *domain.Phase
		recorded  []*domain.Activity
	)
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		journey, err := s.journeys.LockByID(dbc, journeyID)
		if err != nil {
			return err
		}
		if journey == nil {
			return fmt.Errorf("journey %s: %w", journeyID, apperrors.ErrNotFound)
		}
		if journey.Status == domain.JourneyStatusCompleted {
			return nil
		}
		if journey.Status == domain.JourneyStatusPaused {
			// The due-date clock is frozen; the signal can be replayed
			// after the journey resumes.
			s.log.Debug("auto-advance no-op, journey paused", "journey_id", journeyID, "cause", cause)
			return nil
		}

		current, err := s.phases.GetCurrentByJourneyID(dbc, journeyID)
		if err != nil {
			return err
		}
		if current == nil {
			// Duplicate or late signal: nothing eligible, benign no-op.
			s.log.Debug("auto-advance no-op, no phase in progress", "journey_id", journeyID, "cause", cause)
			return nil
		}
		if expectPhaseID != nil && current.ID != *expectPhaseID {
			s.log.Warn("auto-advance no-op, signal targets a non-current phase",
				"journey_id", journeyID, "signal_phase_id", *expectPhaseID, "current_phase_id", current.ID)
			return nil
		}

		description := fmt.Sprintf("%q completed (%s)", current.Title, cause)
		acts, err := s.completePhaseTx(dbc, journey, current, domain.ActivityPhaseAdvanced, description, payload, actorUserID)
		if err != nil {
			return err
		}
		completed = current
		recorded = acts
		return nil
	})
	if err != nil {
		return nil, err
	}
	publishAll(ctx, s.feed, recorded)
	return completed, nil
}

func (s *advanceService) HandleAssessmentCompleted(ctx context.Context, phaseID, assessmentID uuid.UUID) error {
	phase, err := s.phases.GetByID(dbctx.Context{Ctx: ctx}, phaseID)
	if err != nil {
		return err
	}
	if phase == nil {
		return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
	}
	if phase.LinkedAssessmentID == nil || *phase.LinkedAssessmentID != assessmentID {
		s.log.Warn("assessment completion ignored, phase not linked to it",
			"phase_id", phaseID, "assessment_id", assessmentID)
		return nil
	}
	_, err = s.autoAdvance(ctx, phase.JourneyID, &phaseID, AdvanceCauseAssessment,
		map[string]any{"assessment_id": assessmentID.String(), "phase_id": phaseID.String()}, nil)
	return err
}

func (s *advanceService) HandleTrainingCompleted(ctx context.Context, phaseID, trainingAssignmentID uuid.UUID) error {
	phase, err := s.phases.GetByID(dbctx.Context{Ctx: ctx}, phaseID)
	if err != nil {
		return err
	}
	if phase == nil {
		return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
	}
	if phase.LinkedTrainingAssignmentID == nil || *phase.LinkedTrainingAssignmentID != trainingAssignmentID {
		s.log.Warn("training completion ignored, phase not linked to it",
			"phase_id", phaseID, "training_assignment_id", trainingAssignmentID)
		return nil
	}
	_, err = s.autoAdvance(ctx, phase.JourneyID, &phaseID, AdvanceCauseTraining,
		map[string]any{"training_assignment_id": trainingAssignmentID.String(), "phase_id": phaseID.String()}, nil)
	return err
}

func (s *advanceService) CompletePhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID) error {
	var recorded []*domain.Activity
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, journey, err := s.lockPhaseJourney(dbc, phaseID)
		if err != nil {
			return err
		}
		if journey.Status == domain.JourneyStatusPaused {
			return fmt.Errorf("journey %s is paused: %w", journey.ID, apperrors.ErrInvalidState)
		}
		switch phase.Status {
		case domain.PhaseStatusCompleted:
			return fmt.Errorf("phase %s already completed: %w", phaseID, apperrors.ErrInvalidState)
		case domain.PhaseStatusNotStarted:
			return fmt.Errorf("phase %s has not started: %w", phaseID, apperrors.ErrInvalidState)
		}

		description := fmt.Sprintf("%q completed manually", phase.Title)
		recorded, err = s.completePhaseTx(dbc, journey, phase, domain.ActivityPhaseAdvanced, description,
			map[string]any{"cause": AdvanceCauseManual}, actorUserID)
		return err
	})
	if err != nil {
		return err
	}
	publishAll(ctx, s.feed, recorded)
	return nil
}

func (s *advanceService) SkipJourneyPhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID, reason string) error {
	var recorded []*domain.Activity
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, journey, err := s.lockPhaseJourney(dbc, phaseID)
		if err != nil {
			return err
		}
		if journey.Status == domain.JourneyStatusPaused {
			return fmt.Errorf("journey %s is paused: %w", journey.ID, apperrors.ErrInvalidState)
		}
		if phase.Status == domain.PhaseStatusCompleted {
			return fmt.Errorf("phase %s already completed: %w", phaseID, apperrors.ErrInvalidState)
		}

		payload := map[string]any{"cause": AdvanceCauseSkip}
		if reason != "" {
			payload["reason"] = reason
		}
		description := fmt.Sprintf("%q skipped", phase.Title)
		if reason != "" {
			description = fmt.Sprintf("%q skipped: %s", phase.Title, reason)
		}

		if phase.Status == domain.PhaseStatusInProgress {
			recorded, err = s.completePhaseTx(dbc, journey, phase, domain.ActivityPhaseSkipped, description, payload, actorUserID)
			return err
		}

		// Skipping a phase that has not started yet: mark it done so the
		// advance chain hops over it, without touching the current phase.
		now := s.now()
		if err := s.phases.UpdateFields(dbc, phase.ID, map[string]interface{}{
			"status":       domain.PhaseStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}

		// The skipped phase may have been the last open one.
		all, err := s.phases.GetByJourneyID(dbc, journey.ID)
		if err != nil {
			return err
		}
		open := 0
		for _, p := range all {
			if p.ID != phase.ID && p.Status != domain.PhaseStatusCompleted {
				open++
			}
		}
		if open == 0 {
			if err := s.journeys.UpdateFields(dbc, journey.ID, map[string]interface{}{
				"status":       domain.JourneyStatusCompleted,
				"completed_at": now,
				"updated_at":   now,
			}); err != nil {
				return err
			}
		}

		activity := newActivity(journey.ID, intPtr(phase.PhaseNumber), domain.ActivityPhaseSkipped,
			"Phase skipped", description, actorUserID, payload, now)
		if _, err := s.activities.Create(dbc, []*domain.Activity{activity}); err != nil {
			return err
		}
		recorded = []*domain.Activity{activity}
		return nil
	})
	if err != nil {
		return err
	}
	publishAll(ctx, s.feed, recorded)
	return nil
}

// lockPhaseJourney resolves a phase, locks its journey, and re-reads the
// phase under the lock.
func (s *advanceService) lockPhaseJourney(dbc dbctx.Context, phaseID uuid.UUID) (*domain.Phase, *domain.Journey, error) {
	phase, err := s.phases.GetByID(dbc, phaseID)
	if err != nil {
		return nil, nil, err
	}
	if phase == nil {
		return nil, nil, fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
	}
	journey, err := s.journeys.LockByID(dbc, phase.JourneyID)
	if err != nil {
		return nil, nil, err
	}
	if journey == nil {
		return nil, nil, fmt.Errorf("journey %s: %w", phase.JourneyID, apperrors.ErrNotFound)
	}
	phase, err = s.phases.GetByID(dbc, phaseID)
	if err != nil {
		return nil, nil, err
	}
	if phase == nil {
		return nil, nil, fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
	}
	return phase, journey, nil
}

// completePhaseTx performs the IN_PROGRESS -> COMPLETED transition: closes
// the phase, starts the next pending phase if one exists, and completes the
// journey otherwise. Runs inside the caller's transaction and journey lock.
func (s *advanceService) completePhaseTx(dbc dbctx.Context, journey *domain.Journey, phase *domain.Phase, activityType domain.ActivityType, description string, payload map[string]any, actorUserID *uuid.UUID) ([]*domain.Activity, error) {
	now := s.now()
	if err := s.phases.UpdateFields(dbc, phase.ID, map[string]interface{}{
		"status":       domain.PhaseStatusCompleted,
		"completed_at": now,
		"updated_at":   now,
	}); err != nil {
		return nil, err
	}

	all, err := s.phases.GetByJourneyID(dbc, journey.ID)
	if err != nil {
		return nil, err
	}

	var next *domain.Phase
	remaining := 0
	for _, p := range all {
		if p.ID == phase.ID || p.Status == domain.PhaseStatusCompleted {
			continue
		}
		remaining++
		// Lowest-numbered pending phase wins, including one inserted
		// before the phase that just closed.
		if p.Status == domain.PhaseStatusNotStarted {
			if next == nil || p.PhaseNumber < next.PhaseNumber {
				next = p
			}
		}
	}

	if next != nil {
		due := now.Add(next.Duration())
		if err := s.phases.UpdateFields(dbc, next.ID, map[string]interface{}{
			"status":     domain.PhaseStatusInProgress,
			"started_at": now,
			"due_date":   due,
			"updated_at": now,
		}); err != nil {
			return nil, err
		}
	} else if remaining == 0 {
		if err := s.journeys.UpdateFields(dbc, journey.ID, map[string]interface{}{
			"status":       domain.JourneyStatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		}); err != nil {
			return nil, err
		}
	}

	activity := newActivity(journey.ID, intPtr(phase.PhaseNumber), activityType,
		"Phase completed", description, actorUserID, payload, now)
	if _, err := s.activities.Create(dbc, []*domain.Activity{activity}); err != nil {
		return nil, err
	}
	return []*domain.Activity{activity}, nil
}
