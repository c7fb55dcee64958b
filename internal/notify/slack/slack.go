// Package slack sends analysis run notifications to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/herdsight/internal/analysis"
)

const (
	maxSummaryLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier sends run results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty,
// RunCompleted is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// RunCompleted posts a finished run to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) RunCompleted(ctx context.Context, result *analysis.Result) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(result)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(r *analysis.Result) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			summaryBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *analysis.Result) map[string]any {
	emoji := healthEmoji(r)
	title := "Farm Analysis Complete"
	if r.Status == analysis.StatusFailed {
		title = "Farm Analysis Failed"
	}
	text := fmt.Sprintf("%s %s: %s", emoji, title, r.FarmCode)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *analysis.Result) map[string]any {
	domains, urgent, health := 0, 0, "-"
	if r.Report != nil {
		domains = len(r.Report.Domains)
		urgent = len(r.Report.UrgentKPIs)
		if r.Report.FinalSummary != nil && r.Report.FinalSummary.OverallHealth != "" {
			health = r.Report.FinalSummary.OverallHealth
		}
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", r.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Overall health:* %s", health),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Domains analyzed:* %d", domains),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Urgent KPIs:* %d", urgent),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Window:* %d months", r.Months),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", r.Duration),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func summaryBlock(r *analysis.Result) map[string]any {
	var text string
	switch {
	case r.Status == analysis.StatusFailed:
		text = truncate(r.Error, maxSummaryLen)
	case r.Report != nil && r.Report.FinalSummary != nil:
		text = truncate(r.Report.FinalSummary.ExecutiveSummary, maxSummaryLen)
	case r.Report != nil:
		text = truncate(r.Report.Overview, maxSummaryLen)
	}
	if text == "" {
		text = "_No summary available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Summary*\n\n%s", text),
		},
	}
}

func contextBlock(r *analysis.Result) map[string]any {
	ts := r.CompletedAt
	if ts.IsZero() {
		ts = r.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("herdsight • run %s • %s", r.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func healthEmoji(r *analysis.Result) string {
	if r.Status == analysis.StatusFailed {
		return "\U0001f534" // red circle
	}
	health := ""
	if r.Report != nil && r.Report.FinalSummary != nil {
		health = r.Report.FinalSummary.OverallHealth
	}
	switch strings.ToLower(health) {
	case "low":
		return "\U0001f534" // red circle
	case "medium":
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
