package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Session: %s | No entries found.\n", result.Session)
	}

	var b strings.Builder

	first := formatDateRange(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Session: %s | %s to %s UTC\n", result.Session, first, last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		kind := strings.ToUpper(e.Type)
		riskCol := e.RiskAfter
		if e.RiskBefore != e.RiskAfter {
			riskCol = e.RiskBefore + ">" + e.RiskAfter
		}
		detail := e.Signal
		switch {
		case e.EndReason != "":
			detail = e.EndReason
		case e.Error != "":
			detail = e.Error
		case detail == "":
			detail = e.Reason
		}

		b.WriteString(fmt.Sprintf("%-10s %-20s %-12s #%-3d %s\n",
			ts, kind, riskCol, e.Count, truncate(detail, 40)))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{fmt.Sprintf("%d violation", s.Violations)}
	if s.Coalesced > 0 {
		parts = append(parts, fmt.Sprintf("%d coalesced", s.Coalesced))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warning", s.Warnings))
	}
	if s.Prevented > 0 {
		parts = append(parts, fmt.Sprintf("%d prevented", s.Prevented))
	}
	if s.FullscreenRejected > 0 {
		parts = append(parts, fmt.Sprintf("%d fullscreen rejected", s.FullscreenRejected))
	}

	outcome := "in progress"
	if s.EndReason != "" {
		outcome = s.EndReason
	}
	return fmt.Sprintf("Summary: %s | Max risk: %s | Outcome: %s\n",
		strings.Join(parts, ", "), s.MaxRisk, outcome)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
