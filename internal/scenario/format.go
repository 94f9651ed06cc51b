package scenario

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatText renders run results as a report: one line per scenario with its
// final session view, and for failing scenarios the observed timeline with
// each failed expectation under the offset it was checked at.
func FormatText(results []*RunResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Checking %d scenario %s...\n\n", len(results), plural(len(results), "file", "files"))

	checks, passed, failed := 0, 0, 0
	for _, r := range results {
		checks += r.Total
		passed += r.Passed

		status := "PASS"
		if r.Failed > 0 {
			status = "FAIL"
			failed++
		}
		fmt.Fprintf(&b, "  %s  %s (%d/%d)  final %s at %s\n", status, r.Name, r.Passed, r.Total, describe(r.Final), r.Final.At)
		if r.Failed == 0 {
			continue
		}

		byOffset := map[string][]CheckResult{}
		for _, c := range r.Checks {
			if !c.Passed {
				byOffset[c.At] = append(byOffset[c.At], c)
			}
		}
		for _, f := range r.Timeline {
			bad := byOffset[f.At]
			if len(bad) == 0 {
				continue
			}
			fmt.Fprintf(&b, "    @%-6s %s\n", f.At, describe(f))
			for _, c := range bad {
				fmt.Fprintf(&b, "      %-18s expected %s, got %s\n", c.Field, c.Expected, c.Actual)
			}
		}
	}

	fmt.Fprintf(&b, "\n%d of %d checks passed.", passed, checks)
	if failed > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failed, len(results))
	}
	b.WriteString("\n")
	return b.String()
}

// describe renders a frame as "risk=high violations=3/3 completed (violation_limit)".
func describe(f Frame) string {
	s := fmt.Sprintf("risk=%s violations=%d/%d %s", f.Risk, f.Violations, f.Limit, f.Phase)
	if f.EndReason != "" {
		s += " (" + f.EndReason + ")"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
