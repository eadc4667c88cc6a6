package audit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	label := result.RunID
	if label == "" {
		label = "all runs"
	}
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Run: %s | No entries found.\n", label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s | %s–%s UTC\n", label,
		formatDateTime(result.Summary.FirstTimestamp), formatTimeOnly(result.Summary.LastTimestamp))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		detail := shortHash(e.Fingerprint)
		if e.Outcome == OutcomeRejected {
			detail = fmt.Sprintf("%s %s: %s", e.ErrorKind, e.Field, e.Reason)
		}
		fmt.Fprintf(&b, "%-10s %-10s %-24s %s\n",
			formatTimeOnly(e.Timestamp), strings.ToUpper(e.Outcome), truncate(e.Source, 24), truncate(detail, 60))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))
	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("audit: marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatSummary(s ReplaySummary) string {
	parts := []string{fmt.Sprintf("%d compiled", s.Compiled)}
	if s.Duplicates > 0 {
		parts = append(parts, fmt.Sprintf("%d duplicate", s.Duplicates))
	}
	if s.Rejected > 0 {
		kinds := make([]string, 0, len(s.RejectedByKind))
		for k := range s.RejectedByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		var byKind []string
		for _, k := range kinds {
			byKind = append(byKind, fmt.Sprintf("%s=%d", k, s.RejectedByKind[k]))
		}
		parts = append(parts, fmt.Sprintf("%d rejected (%s)", s.Rejected, strings.Join(byKind, ", ")))
	}
	return fmt.Sprintf("Summary: %s | Total: %d\n", strings.Join(parts, ", "), s.Total)
}

func formatDateTime(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func shortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:16] + "…"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
