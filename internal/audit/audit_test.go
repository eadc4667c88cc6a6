package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	return l, path
}

func testEntry(outcome string) Entry {
	e := Entry{
		Timestamp: time.Now().UTC().Format(TimestampFormat),
		RunID:     "run-test",
		Source:    "input.hgl",
		Outcome:   outcome,
	}
	if outcome == OutcomeRejected {
		e.ErrorKind = "GrammarError"
		e.Field = "OBJ"
		e.Reason = "missing required field"
	} else {
		e.Fingerprint = strings.Repeat("ab", 32)
	}
	return e
}

func writeEntries(t *testing.T, l *Log, outcome string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := l.Record(testEntry(outcome)); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := newTestLog(t)
	writeEntries(t, l, OutcomeCompiled, 5)
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	l, path := newTestLog(t)
	writeEntries(t, l, OutcomeCompiled, 3)
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"compiled"`, `"rejected"`, 1)
	os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected tampered chain to be invalid")
	}
	if result.ErrorLine != 3 {
		t.Fatalf("expected error at line 3, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l, path := newTestLog(t)
	writeEntries(t, l, OutcomeCompiled, 3)
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	os.WriteFile(path, []byte(lines[0]+"\n"+lines[2]+"\n"), 0644)

	result := Verify(path)
	if result.Valid {
		t.Fatal("expected chain with deleted entry to be invalid")
	}
	if result.ErrorLine != 2 {
		t.Fatalf("expected error at line 2, got line %d", result.ErrorLine)
	}
}

func TestVerifyDetectsInsertedEntry(t *testing.T) {
	l, path := newTestLog(t)
	writeEntries(t, l, OutcomeCompiled, 3)
	l.Close()

	data, _ := os.ReadFile(path)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	fake := testEntry(OutcomeRejected)
	fake.PrevHash = "sha256:fake"
	fakeJSON, _ := json.Marshal(fake)
	inserted := []string{lines[0], string(fakeJSON), lines[1], lines[2]}
	os.WriteFile(path, []byte(strings.Join(inserted, "\n")+"\n"), 0644)

	if Verify(path).Valid {
		t.Fatal("expected chain with inserted entry to be invalid")
	}
}

func TestVerifyRejectsForgedGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forged.jsonl")
	e := testEntry(OutcomeCompiled)
	e.PrevHash = "sha256:deadbeef"
	line, _ := json.Marshal(e)
	os.WriteFile(path, append(line, '\n'), 0644)

	result := Verify(path)
	if result.Valid || result.ErrorLine != 1 {
		t.Fatalf("expected failure at line 1, got %+v", result)
	}
}

func TestEmptyLogPassesVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	os.WriteFile(path, []byte{}, 0644)

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected empty log to be valid, got: %s", result.Error)
	}
	if result.Lines != 0 {
		t.Fatalf("expected 0 lines, got %d", result.Lines)
	}
}

func TestVerifyMissingFile(t *testing.T) {
	result := Verify(filepath.Join(t.TempDir(), "nope.jsonl"))
	if result.Valid || result.Error == "" {
		t.Fatalf("expected open error, got %+v", result)
	}
}

func TestConcurrentWritesSerializeCorrectly(t *testing.T) {
	l, path := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(testEntry(OutcomeCompiled))
		}()
	}
	wg.Wait()
	l.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after concurrent writes, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 100 {
		t.Fatalf("expected 100 lines, got %d", result.Lines)
	}
}

func TestGenesisHashIsCorrect(t *testing.T) {
	l, path := newTestLog(t)
	l.Record(testEntry(OutcomeCompiled))
	l.Close()

	data, _ := os.ReadFile(path)
	var e Entry
	json.Unmarshal([]byte(strings.TrimSpace(string(data))), &e)

	if e.PrevHash != GenesisHash {
		t.Fatalf("expected genesis hash %s, got %s", GenesisHash, e.PrevHash)
	}
}

func TestRecordFillsTimestamp(t *testing.T) {
	l, path := newTestLog(t)
	e := testEntry(OutcomeCompiled)
	e.Timestamp = ""
	l.Record(e)
	l.Close()

	entries, err := Tail(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := time.Parse(TimestampFormat, entries[0].Timestamp); err != nil {
		t.Fatalf("timestamp %q not in expected format: %v", entries[0].Timestamp, err)
	}
}

func TestHashLineIsDeterministic(t *testing.T) {
	line := []byte(`{"ts":"2026-01-15T10:30:00.000Z","run_id":"r","source":"a.hgl","outcome":"compiled","prev_hash":"sha256:def"}`)
	h1 := HashLine(line)
	h2 := HashLine(line)
	if h1 != h2 {
		t.Fatalf("expected same hash, got %s and %s", h1, h2)
	}
	if !strings.HasPrefix(h1, "sha256:") {
		t.Fatalf("expected sha256: prefix, got %s", h1)
	}
	if len(h1) != 7+64 {
		t.Fatalf("expected 71 char hash string, got %d", len(h1))
	}
}

func TestOpenExistingLogContinuesChain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.jsonl")

	l1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	writeEntries(t, l1, OutcomeCompiled, 3)
	l1.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	writeEntries(t, l2, OutcomeRejected, 2)
	l2.Close()

	result := Verify(path)
	if !result.Valid {
		t.Fatalf("expected valid chain after reopen, got error at line %d: %s", result.ErrorLine, result.Error)
	}
	if result.Lines != 5 {
		t.Fatalf("expected 5 lines, got %d", result.Lines)
	}
}
