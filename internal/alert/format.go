package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	detail := event.Signal
	if event.EndReason != "" {
		detail = event.EndReason
	}
	if event.Error != "" {
		detail = event.Error
	}

	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("examguard: %s", event.Type),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Session:* %s", event.Session)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Detail:* %s", detail)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Risk:* %s", event.Risk)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Violations:* %d", event.Violations)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	payload := map[string]any{
		"event_action": "trigger",
		"dedup_key":    event.Session,
		"payload": map[string]any{
			"summary":  fmt.Sprintf("examguard %s: session %s", event.Type, event.Session),
			"severity": severityFor(event),
			"source":   "examguard",
			"custom_details": map[string]any{
				"signal":     event.Signal,
				"reason":     event.Reason,
				"risk":       event.Risk,
				"violations": event.Violations,
				"end_reason": event.EndReason,
			},
		},
	}
	return json.Marshal(payload)
}

func severityFor(event Event) string {
	switch {
	case event.Type == "terminated" && event.EndReason == "violation_limit":
		return "critical"
	case event.Type == "violation":
		return "error"
	case event.Type == "fullscreen_rejected", event.Type == "warning":
		return "warning"
	default:
		return "info"
	}
}
