package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/examguard/internal/activity"
	"github.com/ppiankov/examguard/internal/classify"
	"github.com/ppiankov/examguard/internal/clock"
	"github.com/ppiankov/examguard/internal/risk"
	"github.com/ppiankov/examguard/internal/signal"
	"github.com/ppiankov/examguard/internal/violation"
)

// Config holds session timing and threshold parameters.
type Config struct {
	ID             string
	TickInterval   time.Duration
	IdleThreshold  time.Duration
	RelaxDelay     time.Duration
	ViolationLimit int
	// BurstWindow coalesces a hard violation of a different kind arriving
	// within the window of the previous one. Zero disables coalescing.
	BurstWindow time.Duration
	SoftKinds   []signal.Kind
}

// DefaultConfig returns the stock monitoring parameters.
func DefaultConfig() Config {
	return Config{
		TickInterval:   time.Second,
		IdleThreshold:  10 * time.Second,
		RelaxDelay:     3 * time.Second,
		ViolationLimit: violation.DefaultLimit,
	}
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source (default clock.Real).
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the structured logger (default slog.Default).
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithFinalizer sets the collaborator invoked once when the session completes.
func WithFinalizer(f violation.Finalizer) Option {
	return func(s *Session) { s.finalizer = f }
}

// WithObserver adds a transition observer.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

type hardMark struct {
	kind signal.Kind
	at   time.Time
}

// Session is the owned monitoring context. All state mutation happens under
// one mutex; observers and the finalizer run after it is released.
type Session struct {
	cfg        Config
	clock      clock.Clock
	logger     *slog.Logger
	classifier *classify.Classifier
	tracker    *activity.Tracker
	machine    *risk.Machine
	counter    *violation.Counter
	finalizer  violation.Finalizer
	observers  []Observer

	mu       sync.Mutex
	idle     float64
	lastHard hardMark
	closed   bool
	done     chan struct{}
	pending  []Transition
	deferred []func()
}

// New creates a session in progress at Low risk.
func New(cfg Config, opts ...Option) *Session {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = def.IdleThreshold
	}
	if cfg.RelaxDelay <= 0 {
		cfg.RelaxDelay = def.RelaxDelay
	}
	if cfg.ViolationLimit <= 0 {
		cfg.ViolationLimit = def.ViolationLimit
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	s := &Session{
		cfg:    cfg,
		clock:  clock.Real{},
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", cfg.ID)

	s.classifier = classify.New(classify.WithSoft(cfg.SoftKinds...))
	s.tracker = activity.NewTracker(s.clock.Now())
	s.machine = risk.NewMachine(s.clock, cfg.IdleThreshold, cfg.RelaxDelay)
	s.machine.SetSerializer(s.serialize)
	s.machine.OnRelax(func(st risk.State) {
		s.logger.Debug("risk relaxed", "level", st.Level)
		s.emit(Transition{Type: TransitionRelaxed, Before: risk.Medium})
	})
	s.counter = violation.NewCounter(cfg.ViolationLimit, violation.FinalizerFunc(s.finalizeLocked))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.cfg.ID }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Done is closed when the session completes.
func (s *Session) Done() <-chan struct{} { return s.done }

// Handle processes one raw event and reports whether its default action
// must be suppressed. Events after completion change no state but are still
// suppressed where the classifier says so.
func (s *Session) Handle(ev signal.Event) Response {
	if ev.Kind == signal.KindFullscreenReturn {
		_ = s.ReturnToFullscreen(context.Background(), reportedRequester(ev.Error))
		return Response{}
	}

	s.mu.Lock()
	defer s.unlockAndFlush()

	if s.inactiveLocked() {
		// Keep suppressing native actions without touching state.
		if ev.Kind.IsControl() {
			return Response{}
		}
		v := s.classifier.Classify(ev)
		return Response{PreventDefault: v.PreventDefault, Verdict: v}
	}
	now := s.clock.Now()

	switch ev.Kind {
	case signal.KindActivity:
		s.tracker.Record(now)
		return Response{}
	case signal.KindAcknowledge:
		s.acknowledgeLocked(classify.PromptWarning)
		return Response{}
	case signal.KindSubmit:
		s.counter.End(violation.EndSubmitted)
		return Response{}
	case signal.KindKeyDown:
		s.tracker.Record(now)
	}

	v := s.classifier.Classify(ev)
	resp := Response{PreventDefault: v.PreventDefault, Verdict: v}

	switch v.Class {
	case classify.HardViolation:
		resp.Counted = s.violationLocked(ev, v, now)
	case classify.SoftWarning:
		before := s.machine.Snapshot().Level
		s.machine.Warn(v.Prompt)
		s.logger.Info("soft warning", "signal", ev.String(), "reason", v.Reason)
		s.emit(Transition{Type: TransitionWarning, Signal: ev.String(), Class: v.Class.String(), Reason: v.Reason, Before: before})
	default:
		if v.PreventDefault {
			s.emit(Transition{Type: TransitionPrevented, Signal: ev.String(), Class: v.Class.String(), Reason: v.Reason, Before: s.machine.Snapshot().Level})
		}
	}
	return resp
}

func (s *Session) violationLocked(ev signal.Event, v classify.Verdict, now time.Time) bool {
	before := s.machine.Snapshot().Level
	s.machine.Escalate(v.Prompt)

	coalesce := s.coalesceLocked(ev.Kind, now)
	previous := s.lastHard.kind
	s.lastHard = hardMark{kind: ev.Kind, at: now}
	if coalesce {
		s.logger.Debug("violation coalesced", "signal", ev.String(), "previous", previous)
		s.emit(Transition{Type: TransitionCoalesced, Signal: ev.String(), Class: v.Class.String(), Reason: v.Reason, Before: before})
		return false
	}

	// Emit before reporting so the violation precedes any termination.
	s.emit(Transition{
		Type:   TransitionViolation,
		Signal: ev.String(),
		Class:  v.Class.String(),
		Reason: v.Reason,
		Before: before,
		Count:  s.counter.Count() + 1,
	})
	r := s.counter.Report()
	s.logger.Warn("violation detected",
		"signal", ev.String(),
		"reason", v.Reason,
		"count", r.Count,
		"limit", s.counter.Limit(),
	)
	return true
}

func (s *Session) coalesceLocked(kind signal.Kind, now time.Time) bool {
	if s.cfg.BurstWindow <= 0 || s.lastHard.kind == "" || s.lastHard.kind == kind {
		return false
	}
	return now.Sub(s.lastHard.at) < s.cfg.BurstWindow
}

// Tick applies the idle rule. Called once per tick interval.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.unlockAndFlush()

	if s.inactiveLocked() {
		return
	}
	before := s.machine.Snapshot().Level
	s.idle = s.tracker.IdleSeconds(s.clock.Now())
	s.machine.Tick(s.idle)
	if after := s.machine.Snapshot().Level; after != before {
		s.logger.Debug("risk changed", "from", before, "to", after, "idle_seconds", s.idle)
		s.emit(Transition{Type: TransitionRiskChanged, Before: before})
	}
}

// RecordActivity marks a qualifying user interaction.
func (s *Session) RecordActivity() {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.inactiveLocked() {
		return
	}
	s.tracker.Record(s.clock.Now())
}

// Acknowledge dismisses the warning interstitial. Returns false if none was shown.
func (s *Session) Acknowledge() bool {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.inactiveLocked() {
		return false
	}
	return s.acknowledgeLocked(classify.PromptWarning)
}

func (s *Session) acknowledgeLocked(p classify.Prompt) bool {
	before := s.machine.Snapshot().Level
	if !s.machine.Acknowledge(p) {
		return false
	}
	s.emit(Transition{Type: TransitionAcknowledged, Reason: p.String(), Before: before})
	return true
}

// ReturnToFullscreen asks req to enter fullscreen. On success the fullscreen
// prompt is acknowledged. On rejection the prompt stays up, risk is unchanged
// and the error is logged and returned wrapped in ErrFullscreenRejected.
func (s *Session) ReturnToFullscreen(ctx context.Context, req FullscreenRequester) error {
	s.mu.Lock()
	inactive := s.inactiveLocked()
	s.mu.Unlock()
	if inactive {
		return ErrCompleted
	}
	if req == nil {
		return fmt.Errorf("%w: no fullscreen support", ErrFullscreenRejected)
	}

	reqErr := req.RequestFullscreen(ctx)

	s.mu.Lock()
	defer s.unlockAndFlush()

	if reqErr != nil {
		s.logger.Error("failed to enter fullscreen", "error", reqErr)
		s.emit(Transition{Type: TransitionFullscreenRejected, Before: s.machine.Snapshot().Level, Error: reqErr.Error()})
		return fmt.Errorf("%w: %w", ErrFullscreenRejected, reqErr)
	}
	if s.inactiveLocked() {
		return ErrCompleted
	}
	s.acknowledgeLocked(classify.PromptFullscreen)
	return nil
}

// Submit ends the session on explicit user submission.
func (s *Session) Submit() {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.inactiveLocked() {
		return
	}
	s.counter.End(violation.EndSubmitted)
}

// View returns the presentation snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.machine.Snapshot()
	return View{
		SessionID:        s.cfg.ID,
		Risk:             st.Level,
		Warning:          st.Warning,
		FullscreenPrompt: st.FullscreenPrompt,
		CheatingDetected: st.CheatingDetected,
		IdleSeconds:      s.idle,
		Violations:       s.counter.Count(),
		Limit:            s.counter.Limit(),
		Phase:            s.counter.Phase(),
		EndReason:        s.counter.Reason(),
	}
}

// Run subscribes every source, drives the tick loop and blocks until ctx is
// cancelled or the session completes. Sources are unsubscribed and timers
// stopped on every exit path.
func (s *Session) Run(ctx context.Context, sources ...Source) error {
	defer s.Close()

	var unsubscribe []func()
	defer func() {
		for i := len(unsubscribe) - 1; i >= 0; i-- {
			unsubscribe[i]()
		}
	}()

	ticker := s.clock.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	// Started precedes anything a source delivers.
	s.mu.Lock()
	s.emit(Transition{Type: TransitionStarted})
	s.unlockAndFlush()

	for _, src := range sources {
		unsub, err := src.Subscribe(s)
		if err != nil {
			return fmt.Errorf("session: subscribe source: %w", err)
		}
		unsubscribe = append(unsubscribe, unsub)
	}
	s.logger.Info("monitoring started",
		"idle_threshold", s.cfg.IdleThreshold,
		"violation_limit", s.cfg.ViolationLimit,
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-ticker.C():
			s.Tick()
		}
	}
}

// Close stops pending timers and ignores further signals. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.closed {
		return
	}
	s.closed = true
	s.machine.Stop()
	s.emit(Transition{Type: TransitionClosed})
}

func (s *Session) inactiveLocked() bool {
	return s.closed || s.counter.Phase() == violation.Completed
}

// finalizeLocked runs inside counter.End with the lock held. The external
// finalizer is deferred until the lock is released.
func (s *Session) finalizeLocked(reason violation.EndReason) {
	s.machine.Stop()
	s.logger.Info("session completed", "reason", reason, "violations", s.counter.Count())
	s.emit(Transition{Type: TransitionTerminated, EndReason: reason, Before: s.machine.Snapshot().Level})
	if s.finalizer != nil {
		f := s.finalizer
		s.deferred = append(s.deferred, func() { f.Finalize(reason) })
	}
	// Done closes only after observers have seen the terminated transition.
	s.deferred = append(s.deferred, func() { close(s.done) })
}

// serialize runs a deferred machine callback under the session lock.
func (s *Session) serialize(fn func()) {
	s.mu.Lock()
	defer s.unlockAndFlush()
	if s.inactiveLocked() {
		return
	}
	fn()
}

// emit queues a transition, filling in the session-wide fields.
func (s *Session) emit(t Transition) {
	t.Session = s.cfg.ID
	t.At = s.clock.Now()
	t.After = s.machine.Snapshot().Level
	if t.Count == 0 {
		t.Count = s.counter.Count()
	}
	t.Limit = s.counter.Limit()
	t.Phase = s.counter.Phase()
	s.pending = append(s.pending, t)
}

// unlockAndFlush releases the lock, then delivers queued transitions and
// deferred calls.
func (s *Session) unlockAndFlush() {
	pending := s.pending
	deferred := s.deferred
	s.pending = nil
	s.deferred = nil
	s.mu.Unlock()

	for _, t := range pending {
		for _, o := range s.observers {
			o.Observe(t)
		}
	}
	for _, fn := range deferred {
		fn()
	}
}

type reportedRequester string

func (r reportedRequester) RequestFullscreen(context.Context) error {
	if r == "" {
		return nil
	}
	return errors.New(string(r))
}
