package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/examguard/internal/risk"
	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/violation"
)

func init() {
	retryDelay = 10 * time.Millisecond
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func countingServer(t *testing.T, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &called
}

func TestDispatchMatchesEvents(t *testing.T) {
	srv, called := countingServer(t, http.StatusOK)

	d := NewDispatcher([]Config{
		{URL: srv.URL, Format: "generic", Events: []string{"violation"}},
	}, quiet)

	d.Dispatch(Event{Type: "violation", Session: "s-1", Signal: "blur"})
	d.Close(time.Second)

	if called.Load() != 1 {
		t.Errorf("expected 1 call, got %d", called.Load())
	}
}

func TestDispatchSkipsNonMatching(t *testing.T) {
	srv, called := countingServer(t, http.StatusOK)

	d := NewDispatcher([]Config{
		{URL: srv.URL, Format: "generic", Events: []string{"terminated"}},
	}, quiet)

	d.Dispatch(Event{Type: "prevented", Signal: "copy"})
	d.Close(time.Second)

	if called.Load() != 0 {
		t.Errorf("expected 0 calls for non-matching event, got %d", called.Load())
	}
}

func TestDispatchDefaultEvents(t *testing.T) {
	srv, called := countingServer(t, http.StatusOK)

	d := NewDispatcher([]Config{{URL: srv.URL}}, quiet)
	d.Dispatch(Event{Type: "violation"})
	d.Dispatch(Event{Type: "acknowledged"})
	d.Dispatch(Event{Type: "terminated"})
	d.Close(time.Second)

	if called.Load() != 2 {
		t.Errorf("expected violation and terminated delivered, got %d calls", called.Load())
	}
}

func TestDispatchMultipleWebhooks(t *testing.T) {
	srv1, called1 := countingServer(t, http.StatusOK)
	srv2, called2 := countingServer(t, http.StatusOK)

	d := NewDispatcher([]Config{
		{URL: srv1.URL, Format: "generic", Events: []string{"violation"}},
		{URL: srv2.URL, Format: "slack", Events: []string{"violation", "terminated"}},
	}, quiet)

	d.Dispatch(Event{Type: "violation"})
	d.Close(time.Second)

	if called1.Load()+called2.Load() != 2 {
		t.Errorf("expected 2 calls (both webhooks match), got %d", called1.Load()+called2.Load())
	}
}

func TestDispatchThrottlesViolationsButNotTermination(t *testing.T) {
	srv, called := countingServer(t, http.StatusOK)

	d := NewDispatcher([]Config{
		{URL: srv.URL, Events: []string{"violation", "terminated"}},
	}, quiet)

	for i := 0; i < 10; i++ {
		d.Dispatch(Event{Type: "violation"})
	}
	d.Dispatch(Event{Type: "terminated"})
	d.Close(time.Second)

	// Burst of 3 violations plus the termination.
	if got := called.Load(); got != 4 {
		t.Errorf("expected 4 calls after throttling, got %d", got)
	}
}

func TestObserveTransition(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher([]Config{{URL: srv.URL, Events: []string{"terminated"}}}, quiet)
	d.Observe(session.Transition{
		Session:   "s-9",
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Type:      session.TransitionTerminated,
		After:     risk.High,
		Count:     3,
		Phase:     violation.Completed,
		EndReason: violation.EndViolationLimit,
	})
	d.Close(time.Second)

	if got.Session != "s-9" || got.Risk != "high" || got.Violations != 3 {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.Phase != "completed" || got.EndReason != "violation_limit" {
		t.Errorf("unexpected phase fields: %+v", got)
	}
	if got.Timestamp != "2026-01-02T03:04:05Z" {
		t.Errorf("unexpected timestamp %q", got.Timestamp)
	}
}

func TestNilDispatcherIsSafe(t *testing.T) {
	var d *Dispatcher
	d.Observe(session.Transition{Type: session.TransitionViolation})
	d.Dispatch(Event{Type: "violation"})
	d.Close(time.Millisecond)
}

func TestRetryOnServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := Send(context.Background(), Config{URL: srv.URL, Format: "generic"}, Event{Type: "violation"})
	if err != nil {
		t.Errorf("expected success after retries, got: %v", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	srv, attempts := countingServer(t, http.StatusBadRequest)

	err := Send(context.Background(), Config{URL: srv.URL, Format: "generic"}, Event{Type: "violation"})
	if err == nil {
		t.Error("expected error on 400, got nil")
	}
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt (no retry on 4xx), got %d", attempts.Load())
	}
}

func TestSendHonoursCancel(t *testing.T) {
	srv, _ := countingServer(t, http.StatusBadGateway)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Send(ctx, Config{URL: srv.URL}, Event{Type: "violation"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestCustomHeaders(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := Config{URL: srv.URL, Headers: map[string]string{"Authorization": "Bearer t0k"}}
	if err := Send(context.Background(), cfg, Event{Type: "violation"}); err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer t0k" {
		t.Errorf("expected header forwarded, got %q", auth)
	}
}

func TestFormatGenericJSON(t *testing.T) {
	event := Event{
		Timestamp:  "2026-01-15T14:00:00Z",
		Session:    "s-123",
		Type:       "violation",
		Signal:     "keydown ctrl+p",
		Reason:     "print shortcut",
		Risk:       "high",
		Violations: 2,
	}

	data, err := FormatPayload("generic", event)
	if err != nil {
		t.Fatal(err)
	}

	var parsed Event
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("generic format is not valid JSON: %v", err)
	}
	if parsed != event {
		t.Errorf("expected %+v, got %+v", event, parsed)
	}
}

func TestFormatSlackBlockKit(t *testing.T) {
	data, err := FormatPayload("slack", Event{Type: "violation", Signal: "blur", Risk: "high", Violations: 1})
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("slack format is not valid JSON: %v", err)
	}

	blocks, ok := parsed["blocks"].([]any)
	if !ok || len(blocks) < 2 {
		t.Fatalf("expected at least 2 blocks, got %v", parsed["blocks"])
	}

	header, _ := blocks[0].(map[string]any)
	if header["type"] != "header" {
		t.Errorf("expected header block, got %s", header["type"])
	}

	section, _ := blocks[1].(map[string]any)
	fields, ok := section["fields"].([]any)
	if !ok || len(fields) != 4 {
		t.Errorf("expected 4 fields in section, got %v", fields)
	}
}

func TestFormatPagerDutySeverity(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{Event{Type: "terminated", EndReason: "violation_limit"}, "critical"},
		{Event{Type: "terminated", EndReason: "submitted"}, "info"},
		{Event{Type: "violation"}, "error"},
		{Event{Type: "fullscreen_rejected"}, "warning"},
	}
	for _, tt := range tests {
		data, err := FormatPayload("pagerduty", tt.event)
		if err != nil {
			t.Fatal(err)
		}
		var parsed map[string]any
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("pagerduty format is not valid JSON: %v", err)
		}
		if parsed["event_action"] != "trigger" {
			t.Errorf("expected event_action trigger, got %v", parsed["event_action"])
		}
		payload, _ := parsed["payload"].(map[string]any)
		if payload["severity"] != tt.want {
			t.Errorf("%s/%s: expected severity %s, got %v", tt.event.Type, tt.event.EndReason, tt.want, payload["severity"])
		}
		if payload["source"] != "examguard" {
			t.Errorf("expected source examguard, got %v", payload["source"])
		}
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"", "generic", "slack", "pagerduty"} {
		if !ValidFormat(f) {
			t.Errorf("expected %q valid", f)
		}
	}
	if ValidFormat("teams") {
		t.Error("expected teams invalid")
	}
}

func TestNewDispatcherNilOnEmpty(t *testing.T) {
	if d := NewDispatcher(nil, nil); d != nil {
		t.Error("expected nil dispatcher for empty configs")
	}
	if d := NewDispatcher([]Config{}, nil); d != nil {
		t.Error("expected nil dispatcher for zero-length configs")
	}
}
