package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/examguard/internal/audit"
)

var (
	replayFrom   string
	replayTo     string
	replayTypes  string
	replayFormat string
)

func init() {
	auditCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	replayCmd.Flags().StringVar(&replayTypes, "type", "", "Comma-separated transition types to keep (e.g. violation,warning)")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var replayCmd = &cobra.Command{
	Use:   "replay <session-id>",
	Short: "Replay a session from the audit log",
	Long:  "Reads the audit log, filters by session ID and optional time range,\nand renders the session's risk timeline with a summary.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func runReplay(cmd *cobra.Command, args []string) error {
	filter, err := replayFilter(args[0], replayFrom, replayTo, replayTypes)
	if err != nil {
		return err
	}

	result, err := audit.Replay(resolveAuditLog(), filter)
	if err != nil {
		return err
	}

	switch replayFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	default:
		fmt.Fprint(cmd.OutOrStdout(), audit.FormatTimeline(result))
	}
	return nil
}

func replayFilter(session, from, to, types string) (audit.ReplayFilter, error) {
	filter := audit.ReplayFilter{Session: session}

	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return filter, fmt.Errorf("invalid --from time %q: %w", from, err)
		}
		filter.From = t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, fmt.Errorf("invalid --to time %q: %w", to, err)
		}
		filter.To = t
	}
	for _, typ := range strings.Split(types, ",") {
		if typ = strings.TrimSpace(typ); typ != "" {
			filter.Types = append(filter.Types, typ)
		}
	}
	return filter, nil
}
