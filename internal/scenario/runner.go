package scenario

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/examguard/internal/clock"
	"github.com/ppiankov/examguard/internal/config"
	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/violation"
)

// epoch is the fixed start time of every scenario run.
var epoch = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

// Run plays a scenario against a fresh session on a manual clock.
// At each instant, due timers fire first, then the tick (on tick
// boundaries), then steps in file order, then expectations.
func Run(s *Scenario, observers ...session.Observer) *RunResult {
	cfg := (&config.Config{Monitor: s.Monitor}).SessionConfig()
	cfg.ID = "scenario"

	clk := clock.NewFake(epoch)
	var finalized atomic.Int32
	opts := []session.Option{
		session.WithClock(clk),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithFinalizer(violation.FinalizerFunc(func(violation.EndReason) { finalized.Add(1) })),
	}
	for _, o := range observers {
		opts = append(opts, session.WithObserver(o))
	}
	sess := session.New(cfg, opts...)
	defer sess.Close()
	tick := sess.Config().TickInterval

	steps := append([]Step(nil), s.Steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].At < steps[j].At })
	expects := append([]Expect(nil), s.Expect...)
	sort.SliceStable(expects, func(i, j int) bool { return expects[i].At < expects[j].At })

	result := &RunResult{Name: s.Name}
	add := func(at time.Duration, field, expected, actual string) {
		cr := CheckResult{
			Index:    len(result.Checks) + 1,
			At:       at.String(),
			Field:    field,
			Expected: expected,
			Actual:   actual,
			Passed:   expected == actual,
		}
		result.Total++
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Checks = append(result.Checks, cr)
	}

	var now time.Duration
	si, ei := 0, 0
	for _, at := range instants(steps, expects, tick) {
		clk.Advance(at - now)
		now = at

		if at > 0 && at%tick == 0 {
			sess.Tick()
		}
		for ; si < len(steps) && steps[si].At == at; si++ {
			st := steps[si]
			resp := sess.Handle(st.Event)
			if st.Prevent != nil {
				add(at, "prevent "+st.Event.String(), strconv.FormatBool(*st.Prevent), strconv.FormatBool(resp.PreventDefault))
			}
		}
		if ei < len(expects) && expects[ei].At == at {
			result.Timeline = append(result.Timeline, frameOf(at, sess.View()))
		}
		for ; ei < len(expects) && expects[ei].At == at; ei++ {
			check(expects[ei], sess.View(), int(finalized.Load()), add)
		}
	}
	result.Final = frameOf(now, sess.View())

	return result
}

func frameOf(at time.Duration, v session.View) Frame {
	return Frame{
		At:         at.String(),
		Risk:       v.Risk.String(),
		Violations: v.Violations,
		Limit:      v.Limit,
		Phase:      v.Phase.String(),
		EndReason:  string(v.EndReason),
	}
}

// instants returns every offset the runner must stop at, in order.
func instants(steps []Step, expects []Expect, tick time.Duration) []time.Duration {
	var last time.Duration
	seen := map[time.Duration]bool{0: true}
	points := []time.Duration{0}
	push := func(d time.Duration) {
		if d < 0 {
			d = 0
		}
		if d > last {
			last = d
		}
		if !seen[d] {
			seen[d] = true
			points = append(points, d)
		}
	}
	for _, st := range steps {
		push(st.At)
	}
	for _, e := range expects {
		push(e.At)
	}
	for t := tick; t <= last; t += tick {
		push(t)
	}
	sort.Slice(points, func(i, j int) bool { return points[i] < points[j] })
	return points
}

func check(e Expect, v session.View, finalized int, add func(time.Duration, string, string, string)) {
	if e.Risk != nil {
		add(e.At, "risk", strings.ToLower(*e.Risk), v.Risk.String())
	}
	if e.Violations != nil {
		add(e.At, "violations", strconv.Itoa(*e.Violations), strconv.Itoa(v.Violations))
	}
	if e.Phase != nil {
		add(e.At, "phase", *e.Phase, v.Phase.String())
	}
	if e.EndReason != nil {
		add(e.At, "end_reason", *e.EndReason, string(v.EndReason))
	}
	if e.Warning != nil {
		add(e.At, "warning", strconv.FormatBool(*e.Warning), strconv.FormatBool(v.Warning))
	}
	if e.FullscreenPrompt != nil {
		add(e.At, "fullscreen_prompt", strconv.FormatBool(*e.FullscreenPrompt), strconv.FormatBool(v.FullscreenPrompt))
	}
	if e.Cheating != nil {
		add(e.At, "cheating", strconv.FormatBool(*e.Cheating), strconv.FormatBool(v.CheatingDetected))
	}
	if e.Finalized != nil {
		add(e.At, "finalized", strconv.Itoa(*e.Finalized), strconv.Itoa(finalized))
	}
}

// Load parses a scenario file. Monitor settings absent from the file keep
// the values in base.
func Load(path string, base config.Monitor) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	s := &Scenario{Monitor: base}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	for i, st := range s.Steps {
		if !st.Event.Kind.Valid() {
			return nil, fmt.Errorf("scenario %s: step %d: unknown event type %q", path, i+1, st.Event.Kind)
		}
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

// LoadAndRun loads a scenario YAML file and runs it.
func LoadAndRun(path string, base config.Monitor) (*RunResult, error) {
	s, err := Load(path, base)
	if err != nil {
		return nil, err
	}
	result := Run(s)
	result.File = path
	return result, nil
}
