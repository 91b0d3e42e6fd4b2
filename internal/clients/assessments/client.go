package assessments

import (
	"context"
	"encoding/json"
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

// StatusPublished is the only assessment state a phase may link to.
const StatusPublished = "published"

// Client queries the assessment subsystem. The engine never reads scores;
// it only verifies linkability before attaching an assessment to a phase.
type Client interface {
	GetAssessmentStatus(ctx context.Context, assessmentID uuid.UUID) (string, error)
}

type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:    envutil.Str("ASSESSMENT_SERVICE_URL", ""),
		Timeout:    time.Duration(envutil.Int("ASSESSMENT_TIMEOUT_SECONDS", 10)) * time.Second,
		MaxRetries: envutil.Int("ASSESSMENT_MAX_RETRIES", 2),
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
		return nil, fmt.Errorf("missing ASSESSMENT_SERVICE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "AssessmentClient"),
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

type statusResponse struct {
	Status string `json:"status"`
}

func (c *client) GetAssessmentStatus(ctx context.Context, assessmentID uuid.UUID) (string, error) {
	if assessmentID == uuid.Nil {
		return "", fmt.Errorf("missing assessment id")
	}
	url := fmt.Sprintf("%s/api/assessments/%s/status", c.baseURL, assessmentID)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(httpx.JitterSleep(500 * time.Millisecond)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if httpx.IsRetryableError(err) {
				continue
			}
			return "", err
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return "", apierr.New(resp.StatusCode, "assessment_not_found", fmt.Errorf("assessment %s not found", assessmentID))
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = apierr.New(resp.StatusCode, "assessment_service_error", fmt.Errorf("assessment service returned %d", resp.StatusCode))
			if httpx.IsRetryableHTTPStatus(resp.StatusCode) {
				continue
			}
			return "", lastErr
		}

		var body statusResponse
		err = json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("decode assessment status: %w", err)
		}
		return strings.ToLower(strings.TrimSpace(body.Status)), nil
	}
	return "", lastErr
}
