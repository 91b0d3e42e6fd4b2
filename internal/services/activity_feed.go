package services

import (
	"context"
	"encoding/json"

	"github.com/waypointhq/onboarding-backend/internal/domain"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
	"github.com/waypointhq/onboarding-backend/internal/realtime"
	"github.com/waypointhq/onboarding-backend/internal/realtime/bus"
)

// ActivityFeed broadcasts committed audit activities. Publishing is best
// effort and happens after the owning transaction commits; a feed failure
// never affects the mutation.
type ActivityFeed interface {
	PublishActivity(ctx context.Context, activity *domain.Activity)
}

type busFeed struct {
	log *logger.Logger
	bus bus.Bus
}

func NewActivityFeed(baseLog *logger.Logger, b bus.Bus) ActivityFeed {
	return &busFeed{log: baseLog.With("service", "ActivityFeed"), bus: b}
}

func (f *busFeed) PublishActivity(ctx context.Context, activity *domain.Activity) {
	if f == nil || f.bus == nil || activity == nil {
		return
	}
	var data map[string]any
	if len(activity.Data) > 0 {
		_ = json.Unmarshal(activity.Data, &data)
	}
	ev := realtime.ActivityEvent{
		JourneyID:    activity.JourneyID,
		PhaseNumber:  activity.PhaseNumber,
		ActivityType: string(activity.ActivityType),
		Title:        activity.Title,
		Description:  activity.Description,
		Data:         data,
		CreatedAt:    activity.CreatedAt,
	}
	if err := f.bus.Publish(ctx, ev); err != nil {
		f.log.Warn("activity publish failed", "journey_id", activity.JourneyID, "error", err)
	}
}
