package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/examguard/internal/session"
)

// VerifyResult is the outcome of checking a transcript file.
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Sessions  int    `json:"sessions"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify checks the hash chain and, per session, the order of transitions:
// a session opens with started (or consists of a lone closed), its count
// never decreases or passes its limit, and only closed may follow terminated.
// The first problem found is reported with its line number.
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	sessions := map[string]*transcript{}
	wantPrev := GenesisHash
	line := 0

	fail := func(format string, args ...any) VerifyResult {
		return VerifyResult{Lines: line, Error: fmt.Sprintf(format, args...), ErrorLine: line}
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()

		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return fail("parse error: %v", err)
		}
		if entry.PrevHash != wantPrev {
			if line == 1 {
				return fail("first entry prev_hash is %q, expected genesis hash", entry.PrevHash)
			}
			return fail("hash mismatch: expected %s, got %s", wantPrev, entry.PrevHash)
		}
		wantPrev = HashLine(raw)

		tr, ok := sessions[entry.Session]
		if !ok {
			tr = &transcript{}
			sessions[entry.Session] = tr
		}
		if err := tr.accept(entry); err != nil {
			return fail("session %s: %v", entry.Session, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return VerifyResult{Lines: line, Error: fmt.Sprintf("scan: %v", err)}
	}

	return VerifyResult{Valid: true, Lines: line, Sessions: len(sessions)}
}

// transcript tracks one session's progress through the log.
type transcript struct {
	seen       bool
	count      int
	terminated bool
	closed     bool
}

func (t *transcript) accept(e Entry) error {
	typ := session.TransitionType(e.Type)

	switch {
	case t.closed:
		return fmt.Errorf("%s after closed", typ)
	case t.terminated && typ != session.TransitionClosed:
		return fmt.Errorf("%s after terminated", typ)
	case !t.seen && typ != session.TransitionStarted && typ != session.TransitionClosed:
		return fmt.Errorf("first entry is %s, expected started", typ)
	case t.seen && typ == session.TransitionStarted:
		return fmt.Errorf("started twice")
	case e.Count < t.count:
		return fmt.Errorf("count decreased from %d to %d", t.count, e.Count)
	case e.Limit > 0 && e.Count > e.Limit:
		return fmt.Errorf("count %d exceeds limit %d", e.Count, e.Limit)
	}

	t.seen = true
	t.count = e.Count
	switch typ {
	case session.TransitionTerminated:
		t.terminated = true
	case session.TransitionClosed:
		t.closed = true
	}
	return nil
}
