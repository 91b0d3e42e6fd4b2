package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/waypointhq/onboarding-backend/internal/domain"
)

func newActivity(journeyID uuid.UUID, phaseNumber *int, activityType domain.ActivityType, title, description string, actorUserID *uuid.UUID, data map[string]any, at time.Time) *domain.Activity {
	row := &domain.Activity{
		ID:           uuid.New(),
		JourneyID:    journeyID,
		PhaseNumber:  phaseNumber,
		ActivityType: activityType,
		Title:        title,
		Description:  description,
		ActorUserID:  actorUserID,
		CreatedAt:    at,
	}
	if len(data) > 0 {
		if raw, err := json.Marshal(data); err == nil {
			row.Data = datatypes.JSON(raw)
		}
	}
	return row
}

func publishAll(ctx context.Context, feed ActivityFeed, activities []*domain.Activity) {
	if feed == nil {
		return
	}
	for _, a := range activities {
		feed.PublishActivity(ctx, a)
	}
}

func intPtr(v int) *int { return &v }
