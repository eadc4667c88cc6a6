package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ReplayFilter selects entries for replay. Zero fields do not filter.
type ReplayFilter struct {
	RunID string
	From  time.Time
	To    time.Time
}

// ReplaySummary counts outcomes in a replayed range.
type ReplaySummary struct {
	Total          int            `json:"total"`
	Compiled       int            `json:"compiled"`
	Duplicates     int            `json:"duplicates"`
	Rejected       int            `json:"rejected"`
	RejectedByKind map[string]int `json:"rejected_by_kind,omitempty"`
	FirstTimestamp string         `json:"first_timestamp"`
	LastTimestamp  string         `json:"last_timestamp"`
}

// ReplayResult holds filtered entries and their summary.
type ReplayResult struct {
	RunID   string        `json:"run_id,omitempty"`
	Entries []Entry       `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay reads the log and returns the entries matching filter.
// Malformed lines are skipped; use Verify to detect them.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open log: %w", err)
	}
	defer f.Close()

	result := &ReplayResult{RunID: filter.RunID}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if !filter.matches(e) {
			continue
		}
		result.Entries = append(result.Entries, e)
		result.Summary.add(e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan log: %w", err)
	}
	return result, nil
}

// Tail returns the last n entries of the log in file order.
func Tail(path string, n int) ([]Entry, error) {
	all, err := Replay(path, ReplayFilter{})
	if err != nil {
		return nil, err
	}
	entries := all.Entries
	if n >= 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

func (f ReplayFilter) matches(e Entry) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	if !f.From.IsZero() && ts.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && ts.After(f.To) {
		return false
	}
	return true
}

func (s *ReplaySummary) add(e Entry) {
	s.Total++
	if s.FirstTimestamp == "" {
		s.FirstTimestamp = e.Timestamp
	}
	s.LastTimestamp = e.Timestamp

	switch e.Outcome {
	case OutcomeCompiled:
		s.Compiled++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeRejected:
		s.Rejected++
		if s.RejectedByKind == nil {
			s.RejectedByKind = make(map[string]int)
		}
		s.RejectedByKind[e.ErrorKind]++
	}
}
