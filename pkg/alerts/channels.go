package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hardenlab/resilience-go/pkg/baseline"
	"github.com/hardenlab/resilience-go/pkg/cerrors"
	"github.com/hardenlab/resilience-go/pkg/log"
)

// Channel delivers one alert to an external sink. Implementations must be
// safe for concurrent use; the manager isolates their failures.
type Channel interface {
	Name() string
	MinSeverity() baseline.Severity
	Send(ctx context.Context, alert *Alert) error
}

// LogChannel writes alerts to the structured log. It never fails, which makes
// it a sensible always-on channel alongside external ones.
type LogChannel struct {
	name        string
	minSeverity baseline.Severity
}

// NewLogChannel returns a channel that logs every alert at or above minSeverity
func NewLogChannel(name string, minSeverity baseline.Severity) *LogChannel {
	return &LogChannel{name: name, minSeverity: minSeverity}
}

func (c *LogChannel) Name() string { return c.name }

func (c *LogChannel) MinSeverity() baseline.Severity { return c.minSeverity }

func (c *LogChannel) Send(_ context.Context, alert *Alert) error {
	log.InfoWithValues("[Alert]: Performance regression detected", logrus.Fields{
		"AlertID":  alert.ID,
		"Severity": string(alert.Severity),
		"TestType": alert.TestType,
		"TestName": alert.TestName,
		"Score":    fmt.Sprintf("%.1f", alert.Comparison.OverallScore),
	})
	return nil
}

// webhookPayload is the minimal wire shape posted to a webhook sink
type webhookPayload struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	Severity        string    `json:"severity"`
	TestType        string    `json:"testType"`
	TestName        string    `json:"testName"`
	OverallScore    float64   `json:"overallScore"`
	Recommendations []string  `json:"recommendations,omitempty"`
}

// WebhookChannel posts a compact JSON payload to a configured URL with a
// bounded per-request timeout
type WebhookChannel struct {
	name        string
	url         string
	minSeverity baseline.Severity
	timeout     time.Duration
	client      *http.Client
}

// NewWebhookChannel returns a webhook channel; a zero timeout defaults to 10s
func NewWebhookChannel(name, url string, minSeverity baseline.Severity, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		name:        name,
		url:         url,
		minSeverity: minSeverity,
		timeout:     timeout,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) MinSeverity() baseline.Severity { return c.minSeverity }

func (c *WebhookChannel) Send(ctx context.Context, alert *Alert) error {
	payload := webhookPayload{
		ID:              alert.ID,
		CreatedAt:       alert.CreatedAt,
		Severity:        string(alert.Severity),
		TestType:        alert.TestType,
		TestName:        alert.TestName,
		OverallScore:    alert.Comparison.OverallScore,
		Recommendations: alert.Comparison.Recommendations,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return cerrors.AlertDispatch{Channel: c.name, Reason: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return cerrors.AlertDispatch{Channel: c.name, Reason: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return cerrors.AlertDispatch{Channel: c.name, Reason: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cerrors.AlertDispatch{Channel: c.name, Reason: fmt.Sprintf("webhook returned status %v", resp.StatusCode)}
	}
	return nil
}
