package domain

import (
	"time"

	"github.com/google/uuid"
)

type PhaseStatus string

const (
	PhaseStatusNotStarted PhaseStatus = "not_started"
	PhaseStatusInProgress PhaseStatus = "in_progress"
	PhaseStatusCompleted  PhaseStatus = "completed"
	// PhaseStatusOverdue is derived at read time, never persisted: a phase is
	// overdue while it is in progress past its due date.
	PhaseStatusOverdue PhaseStatus = "overdue"
)

type Phase struct {
	ID                         uuid.UUID   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JourneyID                  uuid.UUID   `gorm:"type:uuid;not null;index:idx_phase_journey_number" json:"journey_id"`
	Journey                    *Journey    `gorm:"constraint:OnDelete:CASCADE;foreignKey:JourneyID;references:ID" json:"journey,omitempty"`
	PhaseNumber                int         `gorm:"column:phase_number;not null;index:idx_phase_journey_number" json:"phase_number"`
	PhaseType                  string      `gorm:"column:phase_type;not null" json:"phase_type"`
	Title                      string      `gorm:"column:title;not null" json:"title"`
	Description                string      `gorm:"column:description" json:"description"`
	DurationDays               int         `gorm:"column:duration_days;not null" json:"duration_days"`
	Status                     PhaseStatus `gorm:"type:varchar(16);not null;default:'not_started';index" json:"status"`
	StartedAt                  *time.Time  `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt                *time.Time  `gorm:"column:completed_at" json:"completed_at,omitempty"`
	DueDate                    *time.Time  `gorm:"column:due_date" json:"due_date,omitempty"`
	MentorID                   *uuid.UUID  `gorm:"type:uuid;column:mentor_id" json:"mentor_id,omitempty"`
	LinkedAssessmentID         *uuid.UUID  `gorm:"type:uuid;column:linked_assessment_id" json:"linked_assessment_id,omitempty"`
	LinkedTrainingAssignmentID *uuid.UUID  `gorm:"type:uuid;column:linked_training_assignment_id" json:"linked_training_assignment_id,omitempty"`
	CreatedAt                  time.Time   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt                  time.Time   `gorm:"not null;default:now()" json:"updated_at"`
}

func (Phase) TableName() string { return "phase" }

// Duration is the phase length on the due-date clock.
func (p *Phase) Duration() time.Duration {
	return time.Duration(p.DurationDays) * 24 * time.Hour
}

func (p *Phase) IsOverdue(now time.Time) bool {
	return p.Status == PhaseStatusInProgress && p.DueDate != nil && now.After(*p.DueDate)
}

// EffectiveStatus is the read-model status, with overdue derived from the
// due date rather than stored.
func (p *Phase) EffectiveStatus(now time.Time) PhaseStatus {
	if p.IsOverdue(now) {
		return PhaseStatusOverdue
	}
	return p.Status
}
