package services

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/clients/assessments"
	"github.com/waypointhq/onboarding-backend/internal/clients/training"
	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/dbctx"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("dev")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// memStore backs the in-memory repo fakes. Everything runs single-threaded
// in tests, so there is no locking.
type memStore struct {
	users      map[uuid.UUID]*domain.User
	journeys   map[uuid.UUID]*domain.Journey
	phases     map[uuid.UUID]*domain.Phase
	activities []*domain.Activity
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]*domain.User{},
		journeys: map[uuid.UUID]*domain.Journey{},
		phases:   map[uuid.UUID]*domain.Phase{},
	}
}

func (s *memStore) addUser(u *domain.User) *domain.User {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.users[u.ID] = u
	return u
}

func (s *memStore) sortedPhases(journeyID uuid.UUID) []*domain.Phase {
	var out []*domain.Phase
	for _, p := range s.phases {
		if p.JourneyID == journeyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhaseNumber < out[j].PhaseNumber })
	return out
}

func copyJourney(j *domain.Journey) *domain.Journey {
	c := *j
	return &c
}

func copyPhase(p *domain.Phase) *domain.Phase {
	c := *p
	return &c
}

// fakeUOW runs the unit body directly against the shared store.
type fakeUOW struct{}

func (fakeUOW) Do(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

type fakeJourneyRepo struct {
	store *memStore
}

func (r *fakeJourneyRepo) Create(dbc dbctx.Context, rows []*domain.Journey) ([]*domain.Journey, error) {
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		r.store.journeys[row.ID] = copyJourney(row)
	}
	return rows, nil
}

func (r *fakeJourneyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Journey, error) {
	if j, ok := r.store.journeys[id]; ok {
		return copyJourney(j), nil
	}
	return nil, nil
}

func (r *fakeJourneyRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domain.Journey, error) {
	return r.GetByID(dbc, id)
}

func (r *fakeJourneyRepo) GetActiveByEmployeeID(dbc dbctx.Context, employeeID uuid.UUID) (*domain.Journey, error) {
	for _, j := range r.store.journeys {
		if j.EmployeeID != employeeID {
			continue
		}
		for _, st := range domain.ActiveJourneyStatuses {
			if j.Status == st {
				return copyJourney(j), nil
			}
		}
	}
	return nil, nil
}

func (r *fakeJourneyRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	j, ok := r.store.journeys[id]
	if !ok {
		return nil
	}
	for col, v := range updates {
		switch col {
		case "status":
			j.Status = v.(domain.JourneyStatus)
		case "paused_at":
			j.PausedAt = asTimePtr(v)
		case "pause_reason":
			j.PauseReason = v.(string)
		case "completed_at":
			j.CompletedAt = asTimePtr(v)
		case "updated_at":
			j.UpdatedAt = v.(time.Time)
		default:
			return fmt.Errorf("fakeJourneyRepo: unhandled column %q", col)
		}
	}
	return nil
}

type fakePhaseRepo struct {
	store *memStore
}

func (r *fakePhaseRepo) Create(dbc dbctx.Context, rows []*domain.Phase) ([]*domain.Phase, error) {
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		r.store.phases[row.ID] = copyPhase(row)
	}
	return rows, nil
}

func (r *fakePhaseRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Phase, error) {
	if p, ok := r.store.phases[id]; ok {
		return copyPhase(p), nil
	}
	return nil, nil
}

func (r *fakePhaseRepo) GetByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) ([]*domain.Phase, error) {
	var out []*domain.Phase
	for _, p := range r.store.sortedPhases(journeyID) {
		out = append(out, copyPhase(p))
	}
	return out, nil
}

func (r *fakePhaseRepo) GetCurrentByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) (*domain.Phase, error) {
	for _, p := range r.store.sortedPhases(journeyID) {
		if p.Status == domain.PhaseStatusInProgress {
			return copyPhase(p), nil
		}
	}
	return nil, nil
}

func (r *fakePhaseRepo) GetByJourneyAndNumber(dbc dbctx.Context, journeyID uuid.UUID, phaseNumber int) (*domain.Phase, error) {
	for _, p := range r.store.sortedPhases(journeyID) {
		if p.PhaseNumber == phaseNumber {
			return copyPhase(p), nil
		}
	}
	return nil, nil
}

func (r *fakePhaseRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	p, ok := r.store.phases[id]
	if !ok {
		return nil
	}
	for col, v := range updates {
		switch col {
		case "status":
			p.Status = v.(domain.PhaseStatus)
		case "title":
			p.Title = v.(string)
		case "description":
			p.Description = v.(string)
		case "duration_days":
			p.DurationDays = v.(int)
		case "started_at":
			p.StartedAt = asTimePtr(v)
		case "completed_at":
			p.CompletedAt = asTimePtr(v)
		case "due_date":
			p.DueDate = asTimePtr(v)
		case "mentor_id":
			p.MentorID = asUUIDPtr(v)
		case "linked_assessment_id":
			p.LinkedAssessmentID = asUUIDPtr(v)
		case "linked_training_assignment_id":
			p.LinkedTrainingAssignmentID = asUUIDPtr(v)
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		default:
			return fmt.Errorf("fakePhaseRepo: unhandled column %q", col)
		}
	}
	return nil
}

func (r *fakePhaseRepo) ShiftNumbersUp(dbc dbctx.Context, journeyID uuid.UUID, fromNumber int) error {
	for _, p := range r.store.phases {
		if p.JourneyID == journeyID && p.PhaseNumber >= fromNumber {
			p.PhaseNumber++
		}
	}
	return nil
}

func (r *fakePhaseRepo) ShiftNumbersDown(dbc dbctx.Context, journeyID uuid.UUID, afterNumber int) error {
	for _, p := range r.store.phases {
		if p.JourneyID == journeyID && p.PhaseNumber > afterNumber {
			p.PhaseNumber--
		}
	}
	return nil
}

func (r *fakePhaseRepo) ShiftDueDates(dbc dbctx.Context, journeyID uuid.UUID, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	for _, p := range r.store.phases {
		if p.JourneyID == journeyID && p.Status != domain.PhaseStatusCompleted && p.DueDate != nil {
			shifted := p.DueDate.Add(d)
			p.DueDate = &shifted
		}
	}
	return nil
}

func (r *fakePhaseRepo) DeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	delete(r.store.phases, id)
	return nil
}

type fakeActivityRepo struct {
	store *memStore
}

func (r *fakeActivityRepo) Create(dbc dbctx.Context, rows []*domain.Activity) ([]*domain.Activity, error) {
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		r.store.activities = append(r.store.activities, row)
	}
	return rows, nil
}

func (r *fakeActivityRepo) ListByJourneyID(dbc dbctx.Context, journeyID uuid.UUID) ([]*domain.Activity, error) {
	var out []*domain.Activity
	for _, a := range r.store.activities {
		if a.JourneyID == journeyID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type fakeUserRepo struct {
	store *memStore
}

func (r *fakeUserRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := r.store.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	u, ok := r.store.users[id]
	if !ok {
		return nil
	}
	for col, v := range updates {
		switch col {
		case "roles":
			u.Roles = v.(domain.RoleSet)
		case "updated_at":
			u.UpdatedAt = v.(time.Time)
		default:
			return fmt.Errorf("fakeUserRepo: unhandled column %q", col)
		}
	}
	return nil
}

type fakeFeed struct {
	published []*domain.Activity
}

func (f *fakeFeed) PublishActivity(ctx context.Context, activity *domain.Activity) {
	f.published = append(f.published, activity)
}

type fakeNotifier struct {
	calls []notifyCall
	err   error
}

type notifyCall struct {
	recipientID uuid.UUID
	kind        string
	data        map[string]string
}

func (n *fakeNotifier) Notify(ctx context.Context, recipientID uuid.UUID, kind string, data map[string]string) error {
	n.calls = append(n.calls, notifyCall{recipientID: recipientID, kind: kind, data: data})
	return n.err
}

type fakeAssessmentsAPI struct {
	statuses map[uuid.UUID]string
}

func (f *fakeAssessmentsAPI) GetAssessmentStatus(ctx context.Context, assessmentID uuid.UUID) (string, error) {
	if st, ok := f.statuses[assessmentID]; ok {
		return st, nil
	}
	return "", fmt.Errorf("assessment %s unknown", assessmentID)
}

type fakeTrainingAPI struct {
	known map[uuid.UUID]bool
}

func (f *fakeTrainingAPI) VerifyAssignment(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	return f.known[assignmentID], nil
}

func asTimePtr(v interface{}) *time.Time {
	switch t := v.(type) {
	case nil:
		return nil
	case time.Time:
		c := t
		return &c
	case *time.Time:
		return t
	default:
		panic(fmt.Sprintf("not a time value: %T", v))
	}
}

func asUUIDPtr(v interface{}) *uuid.UUID {
	switch id := v.(type) {
	case nil:
		return nil
	case uuid.UUID:
		c := id
		return &c
	case *uuid.UUID:
		return id
	default:
		panic(fmt.Sprintf("not a uuid value: %T", v))
	}
}

// env bundles the fakes behind the service constructors.
type env struct {
	store      *memStore
	journeys   *fakeJourneyRepo
	phases     *fakePhaseRepo
	activities *fakeActivityRepo
	users      *fakeUserRepo
	feed       *fakeFeed
	notifier   *fakeNotifier
	log        *logger.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := newMemStore()
	return &env{
		store:      store,
		journeys:   &fakeJourneyRepo{store: store},
		phases:     &fakePhaseRepo{store: store},
		activities: &fakeActivityRepo{store: store},
		users:      &fakeUserRepo{store: store},
		feed:       &fakeFeed{},
		notifier:   &fakeNotifier{},
		log:        testLogger(t),
	}
}

func (e *env) journeyService() JourneyService {
	return NewJourneyService(e.log, fakeUOW{}, e.journeys, e.phases, e.activities, e.users, e.feed)
}

func (e *env) phaseService() PhaseService {
	return NewPhaseService(e.log, fakeUOW{}, e.journeys, e.phases, e.activities, e.feed)
}

func (e *env) advanceService(assess assessments.Client, train training.Client) AdvanceService {
	return NewAdvanceService(e.log, fakeUOW{}, e.journeys, e.phases, e.activities, assess, train, e.feed)
}

func (e *env) mentorService() MentorService {
	return NewMentorService(e.log, fakeUOW{}, e.journeys, e.phases, e.users, e.activities, e.notifier, e.feed)
}

func (e *env) progressService() ProgressService {
	return NewProgressService(e.log, e.journeys, e.phases)
}

func (e *env) seedEmployee() *domain.User {
	return e.store.addUser(&domain.User{
		ID:        uuid.New(),
		Email:     "casey@example.com",
		FirstName: "Casey",
		LastName:  "Nguyen",
		Roles:     domain.RoleSet{domain.RoleEmployee},
	})
}

func dbcBg() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}

func activityTypes(activities []*domain.Activity) []domain.ActivityType {
	out := make([]domain.ActivityType, 0, len(activities))
	for _, a := range activities {
		out = append(out, a.ActivityType)
	}
	return out
}

func hasActivity(activities []*domain.Activity, at domain.ActivityType) bool {
	for _, a := range activities {
		if a.ActivityType == at {
			return true
		}
	}
	return false
}
