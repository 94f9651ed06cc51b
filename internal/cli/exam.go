package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ppiankov/examguard/internal/exam"
	"github.com/ppiankov/examguard/internal/session"
	"github.com/ppiankov/examguard/internal/tui"
)

var (
	examQuestions string
	examLogFile   string
	examFlags     monitorFlags
)

func init() {
	rootCmd.AddCommand(examCmd)
	examCmd.Flags().StringVar(&examQuestions, "questions", "", "Question bank YAML (default from config, else built-in demo)")
	examCmd.Flags().StringVar(&examLogFile, "log-file", "", "Write logs here; logs are discarded otherwise")
	examFlags.register(examCmd)
}

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Sit a monitored exam in the terminal",
	Long: `Shows the exam rules, then the questions, while the monitor watches the
terminal. Focus loss, right clicks, Escape, Ctrl+P and Ctrl+C count as
violations; shrinking the window below the configured size counts as
leaving fullscreen. Three violations end the exam.

The score and the session view are printed as JSON when the exam ends.`,
	RunE: runExam,
}

func runExam(cmd *cobra.Command, args []string) error {
	if err := examFlags.apply(cmd, cfg); err != nil {
		return err
	}

	// The alt screen owns the terminal: stderr logging would corrupt it.
	examLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if examLogFile != "" {
		f, err := os.OpenFile(examLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		examLogger = newLogger(f)
	}

	questions := examQuestions
	if questions == "" {
		questions = cfg.Exam.QuestionsFile
	}
	bank, err := exam.LoadBank(questions)
	if err != nil {
		return err
	}
	ex := exam.New(bank)

	opts, closeMonitor, err := openMonitor(cfg, examFlags.noAudit, examLogger)
	if err != nil {
		return err
	}
	opts = append(opts, session.WithLogger(examLogger), session.WithFinalizer(ex))
	sess := session.New(cfg.SessionConfig(), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var program *tea.Program
	var wg sync.WaitGroup
	var runErr error
	start := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runErr = sess.Run(ctx, tui.NewSource(program))
		}()
	}

	program = tui.NewProgram(tui.New(tui.Options{
		Viewer:    sess,
		Exam:      ex,
		MinWidth:  cfg.Exam.MinWidth,
		MinHeight: cfg.Exam.MinHeight,
		OnStart:   start,
	}))

	_, teaErr := program.Run()
	cancel()
	wg.Wait()
	// A session never started still needs closing for the transcript.
	sess.Close()
	closeErr := closeMonitor()

	report := struct {
		Result exam.Result  `json:"result"`
		View   session.View `json:"session"`
	}{ex.Result(), sess.View()}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal exam report: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(data)); err != nil {
		examLogger.Debug("write exam report", "error", err)
	}

	if teaErr != nil {
		return fmt.Errorf("exam ui: %w", teaErr)
	}
	if runErr != nil {
		return runErr
	}
	return closeErr
}
