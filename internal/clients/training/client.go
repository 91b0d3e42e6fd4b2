package training

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waypointhq/onboarding-backend/internal/pkg/httpx"
	"github.com/waypointhq/onboarding-backend/internal/pkg/logger"
	"github.com/waypointhq/onboarding-backend/internal/platform/apierr"
	"github.com/waypointhq/onboarding-backend/internal/platform/envutil"
)

// Client queries the training subsystem to verify an assignment exists
// before a phase links to it.
type Client interface {
	VerifyAssignment(ctx context.Context, assignmentID uuid.UUID) (bool, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    envutil.Str("TRAINING_SERVICE_URL", ""),
		Timeout:    time.Duration(envutil.Int("TRAINING_TIMEOUT_SECONDS", 10)) * time.Second,
		MaxRetries: envutil.Int("TRAINING_MAX_RETRIES", 2),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("missing TRAINING_SERVICE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "TrainingClient"),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
	}, nil
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func (c *client) VerifyAssignment(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	if assignmentID == uuid.Nil {
		return false, fmt.Errorf("missing training assignment id")
	}
	url := fmt.Sprintf("%s/api/assignments/%s", c.baseURL, assignmentID)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(httpx.JitterSleep(500 * time.Millisecond)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if httpx.IsRetryableError(err) {
				continue
			}
			return false, err
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return true, nil
		case resp.StatusCode == http.StatusNotFound:
			return false, nil
		case httpx.IsRetryableHTTPStatus(resp.StatusCode):
			lastErr = apierr.New(resp.StatusCode, "training_service_error", fmt.Errorf("training service returned %d", resp.StatusCode))
		default:
			return false, apierr.New(resp.StatusCode, "training_service_error", fmt.Errorf("training service returned %d", resp.StatusCode))
		}
	}
	return false, lastErr
}
