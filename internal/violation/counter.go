package violation

// DefaultLimit is the number of hard violations that ends a session.
const DefaultLimit = 3

// Phase is the session lifecycle.
type Phase int

const (
	InProgress Phase = iota
	Completed
)

func (p Phase) String() string {
	if p == Completed {
		return "completed"
	}
	return "in_progress"
}

// MarshalText renders the phase as its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// EndReason records why a session completed.
type EndReason string

const (
	EndViolationLimit EndReason = "violation_limit"
	EndSubmitted      EndReason = "submitted"
)

// Finalizer marks the exam completed and moves the user to results.
type Finalizer interface {
	Finalize(reason EndReason)
}

// FinalizerFunc adapts a func to Finalizer.
type FinalizerFunc func(EndReason)

// Finalize calls f(reason).
func (f FinalizerFunc) Finalize(reason EndReason) { f(reason) }

// Report is the outcome of one reported violation.
type Report struct {
	Count      int
	Terminated bool
	Ignored    bool
}

// Counter accumulates hard violations and ends the session once the limit
// is reached. It is not safe for concurrent use.
type Counter struct {
	limit     int
	count     int
	phase     Phase
	reason    EndReason
	finalizer Finalizer
}

// NewCounter returns a Counter in progress. A non-positive limit uses DefaultLimit.
// A nil finalizer is allowed.
func NewCounter(limit int, f Finalizer) *Counter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Counter{limit: limit, finalizer: f}
}

// Report counts one violation. Reaching the limit completes the session and
// invokes the finalizer. After completion the count is frozen.
func (c *Counter) Report() Report {
	if c.phase == Completed {
		return Report{Count: c.count, Ignored: true}
	}
	c.count++
	if c.count >= c.limit {
		c.End(EndViolationLimit)
		return Report{Count: c.count, Terminated: true}
	}
	return Report{Count: c.count}
}

// End completes the session for reason. Only the first call finalizes;
// later calls return false.
func (c *Counter) End(reason EndReason) bool {
	if c.phase == Completed {
		return false
	}
	c.phase = Completed
	c.reason = reason
	if c.finalizer != nil {
		c.finalizer.Finalize(reason)
	}
	return true
}

// Count returns the number of counted violations.
func (c *Counter) Count() int { return c.count }

// Limit returns the termination threshold.
func (c *Counter) Limit() int { return c.limit }

// Remaining returns violations left before termination.
func (c *Counter) Remaining() int {
	if c.count >= c.limit {
		return 0
	}
	return c.limit - c.count
}

// Phase returns the lifecycle phase.
func (c *Counter) Phase() Phase { return c.phase }

// Reason returns why the session ended, or "" while in progress.
func (c *Counter) Reason() EndReason { return c.reason }
