package audit

import (
	"time"

	"github.com/ppiankov/examguard/internal/session"
)

// Entry is one line in the hash-chained JSONL audit log.
// All fields are scalars (no map[string]any) to keep json.Marshal field
// order deterministic for reproducible hashing.
type Entry struct {
	Timestamp  string `json:"ts"`
	Session    string `json:"session"`
	Type       string `json:"type"`
	Signal     string `json:"signal,omitempty"`
	Class      string `json:"class,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RiskBefore string `json:"risk_before"`
	RiskAfter  string `json:"risk_after"`
	Count      int    `json:"count"`
	Limit      int    `json:"limit,omitempty"`
	Phase      string `json:"phase"`
	EndReason  string `json:"end_reason,omitempty"`
	Error      string `json:"error,omitempty"`
	PrevHash   string `json:"prev_hash"`
}

// FromTransition flattens a session transition into an audit entry.
func FromTransition(t session.Transition) Entry {
	e := Entry{
		Session:    t.Session,
		Type:       string(t.Type),
		Signal:     t.Signal,
		Class:      t.Class,
		Reason:     t.Reason,
		RiskBefore: t.Before.String(),
		RiskAfter:  t.After.String(),
		Count:      t.Count,
		Limit:      t.Limit,
		Phase:      t.Phase.String(),
		EndReason:  string(t.EndReason),
		Error:      t.Error,
	}
	if !t.At.IsZero() {
		e.Timestamp = t.At.UTC().Format(TimestampFormat)
	}
	return e
}

func (e Entry) time() (time.Time, error) {
	return time.Parse(TimestampFormat, e.Timestamp)
}
