package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/examguard/internal/clock"
	"github.com/ppiankov/examguard/internal/signal"
)

// mockSource records subscription lifecycle and lets tests push events.
type mockSource struct {
	mu           sync.Mutex
	dispatcher   Dispatcher
	subscribed   int
	unsubscribed int
	err          error
}

func (m *mockSource) Subscribe(d Dispatcher) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.dispatcher = d
	m.subscribed++
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.unsubscribed++
		m.dispatcher = nil
	}, nil
}

func (m *mockSource) push(ev signal.Event) {
	m.mu.Lock()
	d := m.dispatcher
	m.mu.Unlock()
	if d != nil {
		d.Handle(ev)
	}
}

func (m *mockSource) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribed, m.unsubscribed
}

func waitSubscribed(t *testing.T, src *mockSource) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sub, _ := src.counts(); sub > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("source never subscribed")
}

func TestRunUnsubscribesOnCompletion(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	src := &mockSource{}

	errCh := make(chan error, 1)
	go func() { errCh <- h.s.Run(context.Background(), src) }()
	waitSubscribed(t, src)

	for i := 0; i < 3; i++ {
		src.push(signal.Event{Kind: signal.KindContextMenu})
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after completion")
	}

	if sub, unsub := src.counts(); sub != 1 || unsub != 1 {
		t.Fatalf("expected one subscribe and one unsubscribe, got %d/%d", sub, unsub)
	}
	if h.fin.calls() != 1 {
		t.Fatalf("expected one finalize, got %d", h.fin.calls())
	}
}

func TestRunUnsubscribesOnCancel(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	src := &mockSource{}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- h.s.Run(ctx, src) }()
	waitSubscribed(t, src)

	// A pending relaxation must not outlive the session.
	src.push(signal.Event{Kind: signal.KindBlur})
	h.s.Acknowledge()
	cancel()

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, unsub := src.counts(); unsub != 1 {
		t.Fatalf("expected unsubscribe on cancel, got %d", unsub)
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("expected relaxation timer stopped, %d pending", h.clock.Pending())
	}

	// Closed sessions ignore further signals.
	before := h.s.View().Violations
	h.s.Handle(signal.Event{Kind: signal.KindBlur})
	if h.s.View().Violations != before {
		t.Fatal("closed session counted a violation")
	}
}

func TestRunSubscribeErrorReleasesEarlierSources(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	good := &mockSource{}
	bad := &mockSource{err: errors.New("listener unavailable")}

	err := h.s.Run(context.Background(), good, bad)
	if err == nil {
		t.Fatal("expected subscribe error")
	}
	if sub, unsub := good.counts(); sub != 1 || unsub != 1 {
		t.Fatalf("expected earlier source released, got %d/%d", sub, unsub)
	}
}

func TestRunDrivesTicks(t *testing.T) {
	c := clock.NewFake(epoch)
	s := New(Config{ID: "s-ticks"}, WithClock(c))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	ticked := make(chan struct{}, 16)
	s.observers = append(s.observers, ObserverFunc(func(tr Transition) {
		switch tr.Type {
		case TransitionStarted:
			close(started)
		case TransitionRiskChanged:
			ticked <- struct{}{}
		}
	}))

	go s.Run(ctx)
	<-started

	// Advance one period at a time; the loop reads each tick before the next is sent.
	deadline := time.After(2 * time.Second)
	for {
		c.Advance(time.Second)
		select {
		case <-ticked:
			if got := s.View().IdleSeconds; got < 10 {
				t.Fatalf("risk changed before idle threshold, idle=%v", got)
			}
			return
		case <-deadline:
			t.Fatal("tick loop never raised risk")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunReturnsAfterFinalTransitionsDelivered(t *testing.T) {
	type seen struct {
		typ      TransitionType
		afterRun bool
	}
	var (
		mu       sync.Mutex
		order    []seen
		returned atomic.Bool
	)
	slow := ObserverFunc(func(tr Transition) {
		// Stands in for an fsync-ing transcript on the fatal violation.
		if tr.Type == TransitionViolation && tr.Count == 3 {
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		defer mu.Unlock()
		order = append(order, seen{tr.Type, returned.Load()})
	})

	s := New(Config{ID: "s-order"}, WithClock(clock.NewFake(epoch)), WithObserver(slow))
	src := &mockSource{}
	errCh := make(chan error, 1)
	go func() {
		err := s.Run(context.Background(), src)
		returned.Store(true)
		errCh <- err
	}()
	waitSubscribed(t, src)

	for i := 0; i < 3; i++ {
		src.push(signal.Event{Kind: signal.KindBlur})
	}
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after termination")
	}

	mu.Lock()
	defer mu.Unlock()
	var types []TransitionType
	for _, o := range order {
		types = append(types, o.typ)
		if o.afterRun {
			t.Errorf("%s delivered after Run returned", o.typ)
		}
	}
	want := []TransitionType{
		TransitionStarted, TransitionViolation, TransitionViolation,
		TransitionViolation, TransitionTerminated, TransitionClosed,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %v, got %v", want, types)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, types)
		}
	}
}
