package bus

import (
	"context"

	"github.com/waypointhq/onboarding-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, ev realtime.ActivityEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.ActivityEvent)) error
	Close() error
}
