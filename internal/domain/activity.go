package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ActivityType string

const (
	ActivityPhaseAdded     ActivityType = "phase_added"
	ActivityPhaseDeleted   ActivityType = "phase_deleted"
	ActivityPhaseUpdated   ActivityType = "phase_updated"
	ActivityPhaseSkipped   ActivityType = "phase_skipped"
	ActivityPhaseAdvanced  ActivityType = "phase_advanced"
	ActivityMentorAssigned ActivityType = "mentor_assigned"
	ActivityMentorRemoved  ActivityType = "mentor_removed"
	ActivityJourneyPaused  ActivityType = "journey_paused"
	ActivityJourneyResumed ActivityType = "journey_resumed"
)

// Activity is an append-only audit row. It is created only as a side effect
// of a journey or phase mutation and is never updated or deleted.
type Activity struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	JourneyID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"journey_id"`
	Journey      *Journey       `gorm:"constraint:OnDelete:CASCADE;foreignKey:JourneyID;references:ID" json:"journey,omitempty"`
	PhaseNumber  *int           `gorm:"column:phase_number" json:"phase_number,omitempty"`
	ActivityType ActivityType   `gorm:"type:varchar(32);not null;index" json:"activity_type"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	Description  string         `gorm:"column:description" json:"description"`
	ActorUserID  *uuid.UUID     `gorm:"type:uuid;column:actor_user_id" json:"actor_user_id,omitempty"`
	Data         datatypes.JSON `gorm:"type:jsonb;column:data" json:"data,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (Activity) TableName() string { return "activity" }
