package domain

import (
	"time"

	"github.com/google/uuid"
)

type EmployeeType string

const (
	EmployeeTypeNew      EmployeeType = "new_employee"
	EmployeeTypeExisting EmployeeType = "existing_employee"
)

func (t EmployeeType) Valid() bool {
	return t == EmployeeTypeNew || t == EmployeeTypeExisting
}

type JourneyStatus string

const (
	JourneyStatusNotStarted JourneyStatus = "not_started"
	JourneyStatusInProgress JourneyStatus = "in_progress"
	JourneyStatusPaused     JourneyStatus = "paused"
	JourneyStatusCompleted  JourneyStatus = "completed"
)

// ActiveJourneyStatuses are the statuses that count toward the
// one-active-journey-per-employee rule.
var ActiveJourneyStatuses = []JourneyStatus{
	JourneyStatusNotStarted,
	JourneyStatusInProgress,
	JourneyStatusPaused,
}

type Journey struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EmployeeID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"employee_id"`
	Employee     *User         `gorm:"constraint:OnDelete:CASCADE;foreignKey:EmployeeID;references:ID" json:"employee,omitempty"`
	EmployeeType EmployeeType  `gorm:"type:varchar(32);not null" json:"employee_type"`
	Status       JourneyStatus `gorm:"type:varchar(16);not null;default:'not_started';index" json:"status"`
	StartDate    time.Time     `gorm:"column:start_date;not null" json:"start_date"`
	PausedAt     *time.Time    `gorm:"column:paused_at" json:"paused_at,omitempty"`
	PauseReason  string        `gorm:"column:pause_reason" json:"pause_reason,omitempty"`
	CompletedAt  *time.Time    `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt    time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (Journey) TableName() string { return "journey" }
