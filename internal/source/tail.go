package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/signal"
)

// Tail follows a JSONL spool file appended to by a browser bridge. Only lines
// written after Subscribe are dispatched, so a spool left over from an earlier
// session is never replayed.
type Tail struct {
	path  string
	hooks Hooks

	offset  int64
	partial []byte
}

// NewTail returns a source following path. The file is created if missing.
func NewTail(path string, hooks Hooks) *Tail {
	return &Tail{path: path, hooks: hooks}
}

// Subscribe starts watching the spool. The returned func stops the watcher
// and waits for the read loop to exit.
func (t *Tail) Subscribe(d session.Dispatcher) (func(), error) {
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("tail: open spool: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tail: stat spool: %w", err)
	}
	t.offset = info.Size()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("tail: create watcher: %w", err)
	}
	if err := watcher.Add(t.path); err != nil {
		watcher.Close()
		f.Close()
		return nil, fmt.Errorf("tail: watch %q: %w", t.path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer f.Close()
		t.run(ctx, watcher, f, d)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			watcher.Close()
			wg.Wait()
		})
	}, nil
}

func (t *Tail) run(ctx context.Context, watcher *fsnotify.Watcher, f *os.File, d session.Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			t.drain(ctx, f, d)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			t.hooks.error(fmt.Errorf("tail: watcher: %w", err))
		}
	}
}

// drain reads everything past the last offset and dispatches complete lines.
func (t *Tail) drain(ctx context.Context, f *os.File, d session.Dispatcher) {
	info, err := f.Stat()
	if err != nil {
		t.hooks.error(fmt.Errorf("tail: stat spool: %w", err))
		return
	}
	if info.Size() < t.offset {
		// Truncated by the bridge: start over.
		t.offset = 0
		t.partial = nil
	}
	if info.Size() == t.offset {
		return
	}

	buf := make([]byte, info.Size()-t.offset)
	n, err := f.ReadAt(buf, t.offset)
	if err != nil && err != io.EOF {
		t.hooks.error(fmt.Errorf("tail: read spool: %w", err))
		return
	}
	t.offset += int64(n)

	data := append(t.partial, buf[:n]...)
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := bytes.TrimSpace(data[:idx])
		data = data[idx+1:]
		if len(line) == 0 {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		ev, err := signal.Parse(line)
		if err != nil {
			t.hooks.error(fmt.Errorf("tail: %w", err))
			continue
		}
		t.hooks.response(ev, d.Handle(ev))
	}
	t.partial = append([]byte(nil), data...)
}
