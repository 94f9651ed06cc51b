package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced clock. Timers and tickers fire synchronously
// from Advance, in deadline order, on the caller's goroutine.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// NewFake returns a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the current fake time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// AfterFunc schedules fn to run once the clock has advanced by d.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTimer{clock: f, when: f.now.Add(d), fn: fn, seq: f.seq}
	f.timers = append(f.timers, t)
	return t
}

// NewTicker returns a ticker that fires every d of fake time.
// The channel holds one pending tick; further ticks are dropped until it is read.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{clock: f, period: d, next: f.now.Add(d), ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, t)
	return t
}

// Pending returns the number of timers that have not fired or been stopped.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Advance moves the clock forward by d, firing everything that comes due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		timer, ticker, when := f.nextDue(target)
		if timer == nil && ticker == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = when
		if timer != nil {
			f.removeTimer(timer)
			f.mu.Unlock()
			timer.fn()
			continue
		}
		ticker.next = ticker.next.Add(ticker.period)
		f.mu.Unlock()
		select {
		case ticker.ch <- when:
		default:
		}
	}
}

// nextDue finds the earliest timer or ticker due at or before target.
// Timers win ties against tickers; equal deadlines fire in scheduling order.
func (f *Fake) nextDue(target time.Time) (*fakeTimer, *fakeTicker, time.Time) {
	sort.SliceStable(f.timers, func(i, j int) bool {
		if f.timers[i].when.Equal(f.timers[j].when) {
			return f.timers[i].seq < f.timers[j].seq
		}
		return f.timers[i].when.Before(f.timers[j].when)
	})

	var timer *fakeTimer
	if len(f.timers) > 0 && !f.timers[0].when.After(target) {
		timer = f.timers[0]
	}

	var ticker *fakeTicker
	for _, t := range f.tickers {
		if t.next.After(target) {
			continue
		}
		if ticker == nil || t.next.Before(ticker.next) {
			ticker = t
		}
	}

	switch {
	case timer == nil && ticker == nil:
		return nil, nil, time.Time{}
	case ticker == nil:
		return timer, nil, timer.when
	case timer == nil:
		return nil, ticker, ticker.next
	case !ticker.next.Before(timer.when):
		return timer, nil, timer.when
	default:
		return nil, ticker, ticker.next
	}
}

func (f *Fake) removeTimer(t *fakeTimer) bool {
	for i, ft := range f.timers {
		if ft == t {
			f.timers = append(f.timers[:i], f.timers[i+1:]...)
			return true
		}
	}
	return false
}

type fakeTimer struct {
	clock *Fake
	when  time.Time
	fn    func()
	seq   int
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.removeTimer(t)
}

type fakeTicker struct {
	clock  *Fake
	period time.Duration
	next   time.Time
	ch     chan time.Time
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, ft := range t.clock.tickers {
		if ft == t {
			t.clock.tickers = append(t.clock.tickers[:i], t.clock.tickers[i+1:]...)
			return
		}
	}
}
