package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	ossignal "os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/signal"
	"github.com/ppiankov/examguard/internal/source"
)

var (
	watchEvents string
	watchFlags  monitorFlags
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchEvents, "events", "", "Follow a JSONL spool file instead of reading stdin")
	watchFlags.register(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor a JSONL signal stream",
	Long: `Reads browser or bridge signals as JSON lines, one event per line:

  {"type":"contextmenu"}
  {"type":"keydown","key":"Escape"}
  {"type":"keydown","key":"p","ctrl":true}
  {"type":"visibilitychange","hidden":true}

Events come from stdin, or from a spool file with --events. Every session
transition is written to stdout as a JSON line. The session ends on the
violation limit, a submit event, end of stdin, or SIGINT/SIGTERM.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := watchFlags.apply(cmd, cfg); err != nil {
		return err
	}

	opts, closeMonitor, err := openMonitor(cfg, watchFlags.noAudit, logger)
	if err != nil {
		return err
	}

	out := &jsonLines{w: cmd.OutOrStdout(), log: logger}
	opts = append(opts,
		session.WithLogger(logger),
		session.WithObserver(session.ObserverFunc(func(t session.Transition) { out.write(t) })),
	)
	sess := session.New(cfg.SessionConfig(), opts...)

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hooks := source.Hooks{
		OnError: func(err error) { logger.Warn("bad event", "error", err) },
		OnResponse: func(ev signal.Event, r session.Response) {
			if r.PreventDefault {
				logger.Debug("default action suppressed", "signal", ev.Kind)
			}
		},
	}

	var src session.Source
	if watchEvents != "" {
		src = source.NewTail(watchEvents, hooks)
	} else {
		stream := source.NewStream(cmd.InOrStdin(), hooks)
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-stream.EOF():
				cancel()
			case <-ctx.Done():
			}
		}()
		src = stream
	}

	runErr := sess.Run(ctx, src)
	closeErr := closeMonitor()

	(&jsonLines{w: os.Stderr, log: logger}).write(sess.View())

	if runErr != nil {
		return runErr
	}
	return closeErr
}

// jsonLines serializes transitions from observer and timer goroutines.
// Failures are logged and the stream carries on.
type jsonLines struct {
	mu  sync.Mutex
	w   io.Writer
	log *slog.Logger
}

func (j *jsonLines) write(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		j.log.Debug("marshal transition", "error", err)
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(append(data, '\n')); err != nil {
		j.log.Debug("write transition", "error", err)
	}
}
