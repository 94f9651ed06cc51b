package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/examguard/internal/alert"
	"github.com/ppiankov/examguard/internal/audit"
	"github.com/ppiankov/examguard/internal/config"
	"github.com/ppiankov/examguard/internal/session"
)

// alertDrainTimeout bounds how long shutdown waits for in-flight webhooks.
const alertDrainTimeout = 5 * time.Second

type monitorFlags struct {
	idleThreshold  time.Duration
	violationLimit int
	auditLog       string
	noAudit        bool
}

func (f *monitorFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.idleThreshold, "idle-threshold", 0, "Override monitor.idle_threshold")
	cmd.Flags().IntVar(&f.violationLimit, "violation-limit", 0, "Override monitor.violation_limit")
	cmd.Flags().StringVar(&f.auditLog, "audit-log", "", "Override audit_log path")
	cmd.Flags().BoolVar(&f.noAudit, "no-audit", false, "Do not write the audit transcript")
}

// apply copies explicitly set flags over the loaded config.
func (f *monitorFlags) apply(cmd *cobra.Command, c *config.Config) error {
	if cmd.Flags().Changed("idle-threshold") {
		c.Monitor.IdleThreshold = f.idleThreshold
	}
	if cmd.Flags().Changed("violation-limit") {
		c.Monitor.ViolationLimit = f.violationLimit
	}
	if cmd.Flags().Changed("audit-log") {
		c.AuditLog = f.auditLog
	}
	return c.Validate()
}

// openMonitor wires the audit transcript and alert dispatcher as session
// observers. The returned func flushes both and must be called once the
// session has closed.
func openMonitor(c *config.Config, noAudit bool, log *slog.Logger) ([]session.Option, func() error, error) {
	var opts []session.Option
	var auditLog *audit.Log

	if !noAudit {
		path := c.AuditLog
		if path == "" {
			path = config.DefaultAuditPath()
		}
		l, err := audit.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open audit log: %w", err)
		}
		auditLog = l
		opts = append(opts, session.WithObserver(l))
		log.Debug("audit transcript", "path", path)
	}

	alerts := alert.NewDispatcher(c.Alerts, log)
	if alerts != nil {
		opts = append(opts, session.WithObserver(alerts))
	}

	closeFn := func() error {
		alerts.Close(alertDrainTimeout)
		if auditLog == nil {
			return nil
		}
		return errors.Join(auditLog.Err(), auditLog.Close())
	}
	return opts, closeFn, nil
}
