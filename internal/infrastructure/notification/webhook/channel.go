package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// Channel доставляет уведомления о риске в chat webhook (Slack-совместимый
// формат). Best-effort: любая ошибка означает false, паники исключены.
type Channel struct {
	name   string
	url    string
	client *http.Client
	logger *logger.Logger
}

// NewChannel создает webhook канал
func NewChannel(name, url string, timeout time.Duration, log *logger.Logger) *Channel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Channel{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// Notify отправляет краткую сводку assessment в webhook
func (c *Channel) Notify(ctx context.Context, assessment *dto.AssessmentDTO) bool {
	body, err := json.Marshal(webhookPayload{Text: formatSummary(assessment)})
	if err != nil {
		c.logger.Error("Failed to marshal webhook payload", err, "channel", c.name)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("Failed to build webhook request", err, "channel", c.name)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Webhook delivery failed", "channel", c.name, "error", err.Error())
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Webhook rejected notification", "channel", c.name, "status", resp.StatusCode)
		return false
	}

	return true
}

// Name возвращает имя канала
func (c *Channel) Name() string {
	return c.name
}

// formatSummary собирает человекочитаемую сводку: уровень, score,
// top warnings и активные alerts
func formatSummary(a *dto.AssessmentDTO) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Risk level: %s (score %.1f)\n", a.OverallLevel, a.OverallScore)

	if len(a.TopWarnings) > 0 {
		buf.WriteString("Top warnings:\n")
		for _, ind := range a.TopWarnings {
			fmt.Fprintf(&buf, "  - %s: %.2f (score %.1f)\n", ind.Name, ind.Value, ind.Score)
		}
	}

	if len(a.Alerts) > 0 {
		buf.WriteString("Alerts:\n")
		for _, alert := range a.Alerts {
			fmt.Fprintf(&buf, "  - [%s] %s\n", alert.Severity, alert.Message)
		}
	}

	return buf.String()
}
