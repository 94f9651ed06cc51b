package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/examguard/internal/audit"
	"github.com/ppiankov/examguard/internal/config"
)

var (
	auditLogPath string
	tailLines    int
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.PersistentFlags().StringVarP(&auditLogPath, "log", "l", "", "Path to audit log (default from config)")
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditTailCmd)
	auditCmd.AddCommand(auditSessionsCmd)
	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained session transcript.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify hash chain and transcript order of an audit log",
	Long: "Walks the JSONL audit log and validates that every entry's prev_hash\n" +
		"matches the SHA-256 of the previous entry, and that each session opens with\n" +
		"started, never lowers its count or passes its limit, and records nothing\n" +
		"but closed after terminated. Exits 0 if valid, 1 otherwise.",
	Args: cobra.NoArgs,
	RunE: runAuditVerify,
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent audit log entries",
	Long:  "Reads the last N entries from the JSONL audit log and pretty-prints them.",
	Args:  cobra.NoArgs,
	RunE:  runAuditTail,
}

var auditSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List session IDs recorded in the audit log",
	Args:  cobra.NoArgs,
	RunE:  runAuditSessions,
}

// resolveAuditLog picks --log, then the config file, then ~/.examguard/audit.jsonl.
func resolveAuditLog() string {
	if auditLogPath != "" {
		return auditLogPath
	}
	if cfg != nil && cfg.AuditLog != "" {
		return cfg.AuditLog
	}
	return config.DefaultAuditPath()
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(resolveAuditLog())
	if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries in %d sessions verified\n", result.Lines, result.Sessions)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditTail(cmd *cobra.Command, args []string) error {
	f, err := os.Open(resolveAuditLog())
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read audit log: %w", err)
	}

	start := len(lines) - tailLines
	if start < 0 {
		start = 0
	}

	out := cmd.OutOrStdout()
	for _, line := range lines[start:] {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			fmt.Fprintln(out, line)
			continue
		}
		pretty, _ := json.MarshalIndent(entry, "", "  ")
		fmt.Fprintln(out, string(pretty))
	}
	return nil
}

func runAuditSessions(cmd *cobra.Command, args []string) error {
	ids, err := audit.Sessions(resolveAuditLog())
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
