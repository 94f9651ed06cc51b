package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/signal"
)

// maxLineBytes bounds one JSONL event line.
const maxLineBytes = 64 * 1024

// Hooks receives per-event outcomes from a source. Both funcs are optional.
type Hooks struct {
	OnResponse func(signal.Event, session.Response)
	OnError    func(error)
}

func (h Hooks) response(ev signal.Event, resp session.Response) {
	if h.OnResponse != nil {
		h.OnResponse(ev, resp)
	}
}

func (h Hooks) error(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Stream reads JSONL events from a reader, such as stdin fed by a browser bridge.
type Stream struct {
	r     io.Reader
	hooks Hooks

	mu      sync.Mutex
	stopped bool
	eof     chan struct{}
}

// NewStream returns a source reading events from r.
func NewStream(r io.Reader, hooks Hooks) *Stream {
	return &Stream{r: r, hooks: hooks, eof: make(chan struct{})}
}

// EOF is closed once the reader is exhausted.
func (s *Stream) EOF() <-chan struct{} { return s.eof }

// Subscribe starts dispatching events to d. The reader is not closed on
// unsubscribe; events read after it are discarded.
func (s *Stream) Subscribe(d session.Dispatcher) (func(), error) {
	go s.read(d)
	return func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
	}, nil
}

func (s *Stream) read(d session.Dispatcher) {
	defer close(s.eof)

	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !s.active() {
			return
		}
		ev, err := signal.Parse(line)
		if err != nil {
			s.hooks.error(fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}
		s.hooks.response(ev, d.Handle(ev))
	}
	if err := scanner.Err(); err != nil {
		s.hooks.error(fmt.Errorf("read events: %w", err))
	}
}

func (s *Stream) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}
