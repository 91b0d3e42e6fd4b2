package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	apperrors "github.com/waypointhq/onboarding-backend/internal/pkg/errors"
)

func TestAutoAdvanceActivatesSuccessor(t *testing.T) {
	e := newEnv(t)
	_, journey, phases := seedNewJourney(t, e)

	svc := e.advanceService(nil, nil).(*advanceService)
	advancedAt := testStart.Add(2 * 24 * time.Hour)
	svc.now = fixedClock(advancedAt)

	completed, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseAssessment, nil)
	if err != nil {
		t.Fatalf("AutoAdvancePhase: %v", err)
	}
	if completed == nil || completed.ID != phases[0].ID {
		t.Fatalf("completed phase = %v, want first phase", completed)
	}

	first, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	if first.Status != domain.PhaseStatusCompleted || first.CompletedAt == nil {
		t.Fatalf("first phase not completed: %s", first.Status)
	}
	second, _ := e.phases.GetByID(dbcBg(), phases[1].ID)
	if second.Status != domain.PhaseStatusInProgress {
		t.Fatalf("second phase status = %s, want in progress", second.Status)
	}
	if second.StartedAt == nil || !second.StartedAt.Equal(advancedAt) {
		t.Fatalf("second phase startedAt = %v, want %v", second.StartedAt, advancedAt)
	}
	wantDue := advancedAt.Add(10 * 24 * time.Hour)
	if second.DueDate == nil || !second.DueDate.Equal(wantDue) {
		t.Fatalf("second phase due = %v, want %v", second.DueDate, wantDue)
	}

	acts, _ := e.activities.ListByJourneyID(dbcBg(), journey.ID)
	if !hasActivity(acts, domain.ActivityPhaseAdvanced) {
		t.Fatalf("activity log missing advance entry: %v", activityTypes(acts))
	}
}

func TestAutoAdvanceIsIdempotent(t *testing.T) {
	e := newEnv(t)
	_, journey, _ := seedNewJourney(t, e)

	svc := e.advanceService(nil, nil)
	if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseAssessment, nil); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseAssessment, nil); err != nil {
		t.Fatalf("second advance: %v", err)
	}
	// Second call completed the last phase; a third is a no-op.
	completed, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseAssessment, nil)
	if err != nil {
		t.Fatalf("third advance: %v", err)
	}
	if completed != nil {
		t.Fatalf("third advance completed %v, want no-op", completed)
	}
}

func TestAdvancingLastPhaseCompletesJourney(t *testing.T) {
	e := newEnv(t)
	_, journey, _ := seedNewJourney(t, e)

	svc := e.advanceService(nil, nil).(*advanceService)
	doneAt := testStart.Add(20 * 24 * time.Hour)
	svc.now = fixedClock(doneAt)

	for i := 0; i < 2; i++ {
		if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseManual, nil); err != nil {
			t.Fatalf("advance %d: %v", i+1, err)
		}
	}

	stored, _ := e.journeys.GetByID(dbcBg(), journey.ID)
	if stored.Status != domain.JourneyStatusCompleted {
		t.Fatalf("journey status = %s, want completed", stored.Status)
	}
	if stored.CompletedAt == nil || !stored.CompletedAt.Equal(doneAt) {
		t.Fatalf("journey completedAt = %v, want %v", stored.CompletedAt, doneAt)
	}
}

func TestCompletePhaseGuards(t *testing.T) {
	e := newEnv(t)
	_, _, phases := seedNewJourney(t, e)
	svc := e.advanceService(nil, nil)

	if err := svc.CompletePhase(context.Background(), phases[1].ID, nil); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("completing a pending phase: err = %v, want ErrInvalidState", err)
	}
	if err := svc.CompletePhase(context.Background(), phases[0].ID, nil); err != nil {
		t.Fatalf("CompletePhase: %v", err)
	}
	if err := svc.CompletePhase(context.Background(), phases[0].ID, nil); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("completing twice: err = %v, want ErrInvalidState", err)
	}
	if err := svc.CompletePhase(context.Background(), uuid.New(), nil); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown phase: err = %v, want ErrNotFound", err)
	}
}

func TestSkipCurrentPhaseActivatesSuccessor(t *testing.T) {
	e := newEnv(t)
	_, journey, phases := seedNewJourney(t, e)
	svc := e.advanceService(nil, nil)

	if err := svc.SkipJourneyPhase(context.Background(), phases[0].ID, nil, "already onboarded remotely"); err != nil {
		t.Fatalf("SkipJourneyPhase: %v", err)
	}
	first, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	second, _ := e.phases.GetByID(dbcBg(), phases[1].ID)
	if first.Status != domain.PhaseStatusCompleted {
		t.Fatalf("skipped phase status = %s, want completed", first.Status)
	}
	if second.Status != domain.PhaseStatusInProgress {
		t.Fatalf("successor status = %s, want in progress", second.Status)
	}

	acts, _ := e.activities.ListByJourneyID(dbcBg(), journey.ID)
	if !hasActivity(acts, domain.ActivityPhaseSkipped) {
		t.Fatalf("activity log missing skip entry: %v", activityTypes(acts))
	}
}

func TestSkipPendingPhaseLeavesCurrentAlone(t *testing.T) {
	e := newEnv(t)
	_, journey, phases := seedNewJourney(t, e)
	svc := e.advanceService(nil, nil)

	if err := svc.SkipJourneyPhase(context.Background(), phases[1].ID, nil, ""); err != nil {
		t.Fatalf("SkipJourneyPhase: %v", err)
	}
	first, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	if first.Status != domain.PhaseStatusInProgress {
		t.Fatalf("current phase disturbed by future skip: %s", first.Status)
	}

	// Advancing past the current phase now finishes the journey because the
	// only successor was skipped.
	if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseManual, nil); err != nil {
		t.Fatalf("AutoAdvancePhase: %v", err)
	}
	stored, _ := e.journeys.GetByID(dbcBg(), journey.ID)
	if stored.Status != domain.JourneyStatusCompleted {
		t.Fatalf("journey status = %s, want completed", stored.Status)
	}
}

func TestSkipCompletedPhaseRejected(t *testing.T) {
	e := newEnv(t)
	_, _, phases := seedNewJourney(t, e)
	svc := e.advanceService(nil, nil)

	if err := svc.SkipJourneyPhase(context.Background(), phases[0].ID, nil, ""); err != nil {
		t.Fatalf("first skip: %v", err)
	}
	err := svc.SkipJourneyPhase(context.Background(), phases[0].ID, nil, "")
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestLinkAssessmentRequiresPublished(t *testing.T) {
	e := newEnv(t)
	_, _, phases := seedNewJourney(t, e)

	published := uuid.New()
	draft := uuid.New()
	assess := &fakeAssessmentsAPI{statuses: map[uuid.UUID]string{
		published: "published",
		draft:     "draft",
	}}
	svc := e.advanceService(assess, nil)

	if err := svc.LinkAssessmentToPhase(context.Background(), phases[0].ID, draft, nil); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("draft link err = %v, want ErrInvalidState", err)
	}
	if err := svc.LinkAssessmentToPhase(context.Background(), phases[0].ID, published, nil); err != nil {
		t.Fatalf("published link: %v", err)
	}
	stored, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	if stored.LinkedAssessmentID == nil || *stored.LinkedAssessmentID != published {
		t.Fatalf("linked assessment = %v, want %s", stored.LinkedAssessmentID, published)
	}
}

func TestHandleAssessmentCompletedAdvancesLinkedPhase(t *testing.T) {
	e := newEnv(t)
	_, journey, phases := seedNewJourney(t, e)

	assessmentID := uuid.New()
	assess := &fakeAssessmentsAPI{statuses: map[uuid.UUID]string{assessmentID: "published"}}
	svc := e.advanceService(assess, nil)

	if err := svc.LinkAssessmentToPhase(context.Background(), phases[0].ID, assessmentID, nil); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := svc.HandleAssessmentCompleted(context.Background(), phases[0].ID, assessmentID); err != nil {
		t.Fatalf("HandleAssessmentCompleted: %v", err)
	}
	first, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	if first.Status != domain.PhaseStatusCompleted {
		t.Fatalf("phase status = %s, want completed", first.Status)
	}

	// Replaying the same signal is harmless.
	if err := svc.HandleAssessmentCompleted(context.Background(), phases[0].ID, assessmentID); err != nil {
		t.Fatalf("replayed signal: %v", err)
	}
	stored, _ := e.journeys.GetByID(dbcBg(), journey.ID)
	if stored.Status != domain.JourneyStatusInProgress {
		t.Fatalf("journey status = %s after replay, want in progress", stored.Status)
	}
}

func TestHandleAssessmentCompletedIgnoresUnlinkedSignal(t *testing.T) {
	e := newEnv(t)
	_, _, phases := seedNewJourney(t, e)
	svc := e.advanceService(&fakeAssessmentsAPI{}, nil)

	if err := svc.HandleAssessmentCompleted(context.Background(), phases[0].ID, uuid.New()); err != nil {
		t.Fatalf("unlinked signal should no-op, got %v", err)
	}
	first, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	if first.Status != domain.PhaseStatusInProgress {
		t.Fatalf("phase advanced on unlinked signal: %s", first.Status)
	}
}

func TestLinkTrainingVerifiesAssignment(t *testing.T) {
	e := newEnv(t)
	_, _, phases := seedNewJourney(t, e)

	known := uuid.New()
	train := &fakeTrainingAPI{known: map[uuid.UUID]bool{known: true}}
	svc := e.advanceService(nil, train)

	if err := svc.LinkTrainingToPhase(context.Background(), phases[0].ID, uuid.New(), nil); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown assignment err = %v, want ErrNotFound", err)
	}
	if err := svc.LinkTrainingToPhase(context.Background(), phases[0].ID, known, nil); err != nil {
		t.Fatalf("LinkTrainingToPhase: %v", err)
	}
	stored, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	if stored.LinkedTrainingAssignmentID == nil || *stored.LinkedTrainingAssignmentID != known {
		t.Fatalf("linked assignment = %v, want %s", stored.LinkedTrainingAssignmentID, known)
	}
}

func TestInsertedEarlierPhaseIsActivatedBeforeJourneyCompletes(t *testing.T) {
	e := newEnv(t)
	_, journey, phases := seedNewJourney(t, e)

	psvc := e.phaseService().(*phaseService)
	psvc.now = fixedClock(testStart.Add(time.Hour))
	first := 0
	paperwork, err := psvc.InsertPhase(context.Background(), journey.ID,
		domain.PhaseConfig{PhaseType: "paperwork", Title: "Paperwork", DurationDays: 2}, &first, nil)
	if err != nil {
		t.Fatalf("InsertPhase: %v", err)
	}
	if paperwork.PhaseNumber != 1 {
		t.Fatalf("inserted number = %d, want 1", paperwork.PhaseNumber)
	}

	svc := e.advanceService(nil, nil).(*advanceService)
	svc.now = fixedClock(testStart.Add(24 * time.Hour))

	// Orientation (now #2) is current; completing it must fall back to the
	// pending phase inserted before it, not strand the journey.
	if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseManual, nil); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	current, _ := e.phases.GetByID(dbcBg(), paperwork.ID)
	if current.Status != domain.PhaseStatusInProgress {
		t.Fatalf("inserted phase status = %s, want in progress", current.Status)
	}

	if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseManual, nil); err != nil {
		t.Fatalf("second advance: %v", err)
	}
	last, _ := e.phases.GetByID(dbcBg(), phases[1].ID)
	if last.Status != domain.PhaseStatusInProgress {
		t.Fatalf("final phase status = %s, want in progress", last.Status)
	}

	if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseManual, nil); err != nil {
		t.Fatalf("third advance: %v", err)
	}
	stored, _ := e.journeys.GetByID(dbcBg(), journey.ID)
	if stored.Status != domain.JourneyStatusCompleted || stored.CompletedAt == nil {
		t.Fatalf("journey status = %s, want completed", stored.Status)
	}
	for _, p := range []uuid.UUID{paperwork.ID, phases[0].ID, phases[1].ID} {
		got, _ := e.phases.GetByID(dbcBg(), p)
		if got.Status != domain.PhaseStatusCompleted {
			t.Fatalf("phase %d status = %s, want completed", got.PhaseNumber, got.Status)
		}
	}
}

func TestSkippingLastPendingPhaseCompletesJourney(t *testing.T) {
	e := newEnv(t)
	_, journey, phases := seedNewJourney(t, e)

	// Close the current phase without activating a successor, leaving the
	// journey open with only a pending phase left.
	doneAt := testStart.Add(24 * time.Hour)
	if err := e.phases.UpdateFields(dbcBg(), phases[0].ID, map[string]interface{}{
		"status":       domain.PhaseStatusCompleted,
		"completed_at": doneAt,
		"updated_at":   doneAt,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	svc := e.advanceService(nil, nil).(*advanceService)
	svc.now = fixedClock(testStart.Add(2 * 24 * time.Hour))
	if err := svc.SkipJourneyPhase(context.Background(), phases[1].ID, nil, "covered elsewhere"); err != nil {
		t.Fatalf("SkipJourneyPhase: %v", err)
	}

	stored, _ := e.journeys.GetByID(dbcBg(), journey.ID)
	if stored.Status != domain.JourneyStatusCompleted || stored.CompletedAt == nil {
		t.Fatalf("journey status = %s, want completed", stored.Status)
	}
	acts, _ := e.activities.ListByJourneyID(dbcBg(), journey.ID)
	if !hasActivity(acts, domain.ActivityPhaseSkipped) {
		t.Fatalf("activity log missing skip entry: %v", activityTypes(acts))
	}
}

func TestAdvanceHoldsWhileJourneyPaused(t *testing.T) {
	e := newEnv(t)
	jsvc, journey, phases := seedNewJourney(t, e)

	jsvc.now = fixedClock(testStart.Add(24 * time.Hour))
	if err := jsvc.PauseJourney(context.Background(), journey.ID, nil, "medical leave"); err != nil {
		t.Fatalf("PauseJourney: %v", err)
	}

	svc := e.advanceService(nil, nil).(*advanceService)
	svc.now = fixedClock(testStart.Add(2 * 24 * time.Hour))

	completed, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseAssessment, nil)
	if err != nil {
		t.Fatalf("AutoAdvancePhase: %v", err)
	}
	if completed != nil {
		t.Fatalf("advance completed %v while paused, want no-op", completed)
	}
	first, _ := e.phases.GetByID(dbcBg(), phases[0].ID)
	if first.Status != domain.PhaseStatusInProgress {
		t.Fatalf("phase closed while paused: %s", first.Status)
	}

	if err := svc.CompletePhase(context.Background(), phases[0].ID, nil); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("CompletePhase on paused journey err = %v, want ErrInvalidState", err)
	}
	if err := svc.SkipJourneyPhase(context.Background(), phases[0].ID, nil, ""); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("SkipJourneyPhase on paused journey err = %v, want ErrInvalidState", err)
	}

	jsvc.now = fixedClock(testStart.Add(3 * 24 * time.Hour))
	if err := jsvc.ResumeJourney(context.Background(), journey.ID, nil); err != nil {
		t.Fatalf("ResumeJourney: %v", err)
	}
	if _, err := svc.AutoAdvancePhase(context.Background(), journey.ID, AdvanceCauseAssessment, nil); err != nil {
		t.Fatalf("advance after resume: %v", err)
	}
	second, _ := e.phases.GetByID(dbcBg(), phases[1].ID)
	if second.Status != domain.PhaseStatusInProgress {
		t.Fatalf("successor status = %s, want in progress", second.Status)
	}
}
