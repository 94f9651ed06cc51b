package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/examguard/internal/risk"
	"github.com/ppiankov/examguard/internal/session"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ReplayFilter holds filtering criteria for session replay.
type ReplayFilter struct {
	Session string
	From    time.Time // zero value = no lower bound
	To      time.Time // zero value = no upper bound
	Types   []string  // empty = all transition types
}

// ReplaySummary holds transition counts and outcome for a replayed session.
type ReplaySummary struct {
	Total              int    `json:"total"`
	Violations         int    `json:"violations"`
	Coalesced          int    `json:"coalesced"`
	Warnings           int    `json:"warnings"`
	Prevented          int    `json:"prevented"`
	Acknowledged       int    `json:"acknowledged"`
	FullscreenRejected int    `json:"fullscreen_rejected"`
	MaxRisk            string `json:"max_risk"`
	EndReason          string `json:"end_reason,omitempty"`
	FirstTimestamp     string `json:"first_timestamp"`
	LastTimestamp      string `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and summary for a session replay.
type ReplayResult struct {
	Session string        `json:"session"`
	Entries []Entry       `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the audit log and returns entries matching the filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{
		Session: filter.Session,
		Summary: ReplaySummary{MaxRisk: risk.Low.String()},
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue // skip malformed lines
		}
		if !filter.match(entry) {
			continue
		}
		result.Entries = append(result.Entries, entry)
		updateSummary(&result.Summary, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}

	return result, nil
}

// Sessions lists session IDs in order of first appearance.
func Sessions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	seen := map[string]bool{}
	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil || entry.Session == "" {
			continue
		}
		if !seen[entry.Session] {
			seen[entry.Session] = true
			ids = append(ids, entry.Session)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return ids, nil
}

func (f ReplayFilter) match(entry Entry) bool {
	if entry.Session != f.Session {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == entry.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		ts, err := entry.time()
		if err != nil {
			return false
		}
		if !f.From.IsZero() && ts.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && ts.After(f.To) {
			return false
		}
	}
	return true
}

func updateSummary(s *ReplaySummary, entry Entry) {
	s.Total++

	switch session.TransitionType(entry.Type) {
	case session.TransitionViolation:
		s.Violations++
	case session.TransitionCoalesced:
		s.Coalesced++
	case session.TransitionWarning:
		s.Warnings++
	case session.TransitionPrevented:
		s.Prevented++
	case session.TransitionAcknowledged:
		s.Acknowledged++
	case session.TransitionFullscreenRejected:
		s.FullscreenRejected++
	case session.TransitionTerminated:
		s.EndReason = entry.EndReason
	}

	if lvl, err := risk.ParseLevel(entry.RiskAfter); err == nil {
		if max, _ := risk.ParseLevel(s.MaxRisk); lvl > max {
			s.MaxRisk = lvl.String()
		}
	}

	if s.FirstTimestamp == "" {
		s.FirstTimestamp = entry.Timestamp
	}
	s.LastTimestamp = entry.Timestamp
}
