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

// MentorService assigns mentors to journey phases. Assignment grants the
// mentor role when the user does not hold it yet; both run in one
// transaction so a failed grant rolls back the assignment.
type MentorService interface {
	AssignMentorToPhase(ctx context.Context, phaseID, mentorID uuid.UUID, notify bool, actorUserID *uuid.UUID) error
	RemoveMentorFromPhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID) error
}

type mentorService struct {
	log        *logger.Logger
	uow        uow.UnitOfWork
	journeys   repos.JourneyRepo
	phases     repos.PhaseRepo
	users      repos.UserRepo
	activities repos.ActivityRepo
	notifier   Notifier
	feed       ActivityFeed

	now func() time.Time
}

func NewMentorService(
	baseLog *logger.Logger,
	unit uow.UnitOfWork,
	journeys repos.JourneyRepo,
	phases repos.PhaseRepo,
	users repos.UserRepo,
	activities repos.ActivityRepo,
	notifier Notifier,
	feed ActivityFeed,
) MentorService {
	return &mentorService{
		log:        baseLog.With("service", "MentorService"),
		uow:        unit,
		journeys:   journeys,
		phases:     phases,
		users:      users,
		activities: activities,
		notifier:   notifier,
		feed:       feed,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *mentorService) AssignMentorToPhase(ctx context.Context, phaseID, mentorID uuid.UUID, notify bool, actorUserID *uuid.UUID) error {
	if mentorID == uuid.Nil {
		return fmt.Errorf("missing mentor id: %w", apperrors.ErrInvalidArgument)
	}

	var (
		recorded   []*domain.Activity
		mentor     *domain.User
		employee   *domain.User
		phaseTitle string
		startDate  time.Time
		duration   int
	)
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, err := s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}
		if phase == nil {
			return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
		}
		journey, err := s.journeys.GetByID(dbc, phase.JourneyID)
		if err != nil {
			return err
		}
		if journey == nil {
			return fmt.Errorf("journey %s: %w", phase.JourneyID, apperrors.ErrNotFound)
		}
		mentor, err = s.users.GetByID(dbc, mentorID)
		if err != nil {
			return err
		}
		if mentor == nil {
			return fmt.Errorf("mentor %s: %w", mentorID, apperrors.ErrNotFound)
		}
		employee, err = s.users.GetByID(dbc, journey.EmployeeID)
		if err != nil {
			return err
		}
		if employee == nil {
			return fmt.Errorf("employee %s: %w", journey.EmployeeID, apperrors.ErrNotFound)
		}

		now := s.now()
		if err := s.phases.UpdateFields(dbc, phase.ID, map[string]interface{}{
			"mentor_id":  mentorID,
			"updated_at": now,
		}); err != nil {
			return err
		}

		if !mentor.Roles.Has(domain.RoleMentor) {
			granted := mentor.Roles.Union(domain.RoleMentor)
			if err := s.users.UpdateFields(dbc, mentorID, map[string]interface{}{
				"roles":      granted,
				"updated_at": now,
			}); err != nil {
				return err
			}
			mentor.Roles = granted
		}

		phaseTitle = phase.Title
		duration = phase.DurationDays
		if phase.StartedAt != nil {
			startDate = *phase.StartedAt
		} else {
			startDate = now
		}

		activity := newActivity(journey.ID, intPtr(phase.PhaseNumber), domain.ActivityMentorAssigned,
			"Mentor assigned",
			fmt.Sprintf("%s assigned as mentor for %q", mentor.FullName(), phase.Title),
			actorUserID,
			map[string]any{"mentor_id": mentorID.String()},
			now)
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

	// Delivery failures must not undo the assignment.
	if notify && s.notifier != nil {
		if err := s.notifier.Notify(ctx, mentorID, NotificationMentorAssigned, map[string]string{
			"mentor_name":   mentor.FullName(),
			"employee_name": employee.FullName(),
			"phase_title":   phaseTitle,
			"start_date":    startDate.Format("2006-01-02"),
			"duration_days": fmt.Sprintf("%d", duration),
		}); err != nil {
			s.log.Warn("mentor assignment notification failed", "mentor_id", mentorID, "phase_id", phaseID, "error", err)
		}
	}
	return nil
}

func (s *mentorService) RemoveMentorFromPhase(ctx context.Context, phaseID uuid.UUID, actorUserID *uuid.UUID) error {
	var recorded []*domain.Activity
	err := s.uow.Do(ctx, func(dbc dbctx.Context) error {
		phase, err := s.phases.GetByID(dbc, phaseID)
		if err != nil {
			return err
		}
		if phase == nil {
			return fmt.Errorf("phase %s: %w", phaseID, apperrors.ErrNotFound)
		}
		if phase.MentorID == nil {
			return fmt.Errorf("phase %s has no mentor: %w", phaseID, apperrors.ErrInvalidState)
		}

		now := s.now()
		if err := s.phases.UpdateFields(dbc, phase.ID, map[string]interface{}{
			"mentor_id":  nil,
			"updated_at": now,
		}); err != nil {
			return err
		}

		activity := newActivity(phase.JourneyID, intPtr(phase.PhaseNumber), domain.ActivityMentorRemoved,
			"Mentor removed",
			fmt.Sprintf("Mentor removed from %q", phase.Title),
			actorUserID,
			map[string]any{"mentor_id": phase.MentorID.String()},
			now)
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
