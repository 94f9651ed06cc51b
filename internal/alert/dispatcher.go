package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/examguard/internal/session"
)

// Dispatcher fans out alert events to matching webhook configurations.
// Violation alerts share a token bucket so a burst of focus changes does not
// flood a proctor channel. Terminations always go out.
type Dispatcher struct {
	configs []Config
	limiter *rate.Limiter
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []Config, logger *slog.Logger) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		configs: configs,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Observe turns a session transition into an alert.
func (d *Dispatcher) Observe(t session.Transition) {
	if d == nil {
		return
	}
	d.Dispatch(FromTransition(t))
}

// FromTransition builds the alert payload for a transition.
func FromTransition(t session.Transition) Event {
	return Event{
		Timestamp:  t.At.UTC().Format(time.RFC3339Nano),
		Session:    t.Session,
		Type:       string(t.Type),
		Signal:     t.Signal,
		Reason:     t.Reason,
		Risk:       t.After.String(),
		Violations: t.Count,
		Phase:      t.Phase.String(),
		EndReason:  string(t.EndReason),
		Error:      t.Error,
	}
}

// Dispatch sends the event to all webhooks whose Events list matches.
// Sends run on goroutines; the caller does not block.
func (d *Dispatcher) Dispatch(event Event) {
	if d == nil {
		return
	}
	var targets []Config
	for _, cfg := range d.configs {
		if matches(cfg.Events, event) {
			targets = append(targets, cfg)
		}
	}
	if len(targets) == 0 {
		return
	}
	if event.Type != string(session.TransitionTerminated) && !d.limiter.Allow() {
		d.logger.Debug("alert throttled", "type", event.Type, "session", event.Session)
		return
	}
	for _, cfg := range targets {
		d.wg.Add(1)
		go func(cfg Config) {
			defer d.wg.Done()
			if err := Send(d.ctx, cfg, event); err != nil {
				d.logger.Warn("alert delivery failed", "url", cfg.URL, "type", event.Type, "error", err)
			}
		}(cfg)
	}
}

// Close waits up to timeout for in-flight sends, then cancels the rest.
func (d *Dispatcher) Close(timeout time.Duration) {
	if d == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		d.cancel()
		<-done
	}
	d.cancel()
}

func matches(events []string, event Event) bool {
	if len(events) == 0 {
		events = DefaultEvents
	}
	for _, e := range events {
		if e == event.Type {
			return true
		}
	}
	return false
}
