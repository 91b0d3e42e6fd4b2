package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/data/repos"
	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	apperrors "github.com/waypointhq/onboarding-backend/internal/pkg/errors"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

type PhaseSnapshot struct {
	ID          uuid.UUID          `json:"id"`
	PhaseNumber int                `json:"phaseNumber"`
	Title       string             `json:"title"`
	Status      domain.PhaseStatus `json:"status"`
	DueDate     *time.Time         `json:"dueDate,omitempty"`
}

type ProgressReport struct {
	JourneyID      uuid.UUID            `json:"journeyId"`
	JourneyStatus  domain.JourneyStatus `json:"journeyStatus"`
	CompletedCount int                  `json:"completedCount"`
	TotalCount     int                  `json:"totalCount"`
	Percentage     float64              `json:"percentage"`
	CurrentPhase   *PhaseSnapshot       `json:"currentPhase,omitempty"`
}

// ProgressService derives completion metrics for a journey. Overdue is
// computed against the clock at read time, never stored.
type ProgressService interface {
	CalculatePhaseProgress(ctx context.Context, journeyID uuid.UUID) (*ProgressReport, error)
}

type progressService struct {
	log      *logger.Logger
	journeys repos.JourneyRepo
	phases   repos.PhaseRepo

	now func() time.Time
}

func NewProgressService(baseLog *logger.Logger, journeys repos.JourneyRepo, phases repos.PhaseRepo) ProgressService {
	return &progressService{
		log:      baseLog.With("service", "ProgressService"),
		journeys: journeys,
		phases:   phases,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *progressService) CalculatePhaseProgress(ctx context.Context, journeyID uuid.UUID) (*ProgressReport, error) {
	dbc := dbctx.Context{Ctx: ctx}
	journey, err := s.journeys.GetByID(dbc, journeyID)
	if err != nil {
		return nil, err
	}
	if journey == nil {
		return nil, fmt.Errorf("journey %s: %w", journeyID, apperrors.ErrNotFound)
	}
	phases, err := s.phases.GetByJourneyID(dbc, journeyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	report := &ProgressReport{
		JourneyID:     journey.ID,
		JourneyStatus: journey.Status,
		TotalCount:    len(phases),
	}
	for _, p := range phases {
		if p.Status == domain.PhaseStatusCompleted {
			report.CompletedCount++
			continue
		}
		if p.Status == domain.PhaseStatusInProgress && report.CurrentPhase == nil {
			report.CurrentPhase = &PhaseSnapshot{
				ID:          p.ID,
				PhaseNumber: p.PhaseNumber,
				Title:       p.Title,
				Status:      p.EffectiveStatus(now),
				DueDate:     p.DueDate,
			}
		}
	}
	if report.TotalCount > 0 {
		report.Percentage = math.Round(float64(report.CompletedCount)/float64(report.TotalCount)*1000) / 10
	}
	return report, nil
}
