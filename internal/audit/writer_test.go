package audit

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var uuidV4Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestRunIDUniquenessAndFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("generated run ids are unique UUID v4 strings", prop.ForAll(
		func(count int) bool {
			seen := make(map[RunID]bool)
			for i := 0; i < count; i++ {
				runID, err := GenerateRunID()
				if err != nil {
					return false
				}
				if !uuidV4Regex.MatchString(string(runID)) || seen[runID] {
					return false
				}
				seen[runID] = true
			}
			return true
		},
		gen.IntRange(2, 50),
	))

	properties.TestingRun(t)
}

func newTestWriter(t *testing.T) (*AuditWriter, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := NewAuditWriter(AuditConfig{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewAuditWriter failed: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w, dir
}

func TestNewAuditWriterInitializesLog(t *testing.T) {
	w, dir := newTestWriter(t)

	if w.LogPath() != filepath.Join(dir, LogFileName) {
		t.Errorf("LogPath() = %q", w.LogPath())
	}

	events, err := NewAuditReader(dir).ReadEvents()
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(events) != 1 || events[0].EventType != EventLogInitialized {
		t.Fatalf("expected a single LOG_INITIALIZED event, got %+v", events)
	}

	// Reopening an existing log does not write a second marker.
	w.Close()
	w2, err := NewAuditWriter(AuditConfig{LogDirectory: dir})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer w2.Close()

	events, _ = NewAuditReader(dir).ReadEvents()
	if len(events) != 1 {
		t.Errorf("expected 1 event after reopen, got %d", len(events))
	}
}

func TestRecordRequiresActiveRun(t *testing.T) {
	w, _ := newTestWriter(t)

	err := w.RecordEncoded("/in/a.pdf", "/out/a.pdf", "A", nil)
	if !errors.Is(err, ErrNoActiveRun) {
		t.Errorf("expected ErrNoActiveRun, got %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	w, dir := newTestWriter(t)

	runID, err := w.StartRun("1.0.0", "host-1")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if got := w.CurrentRunID(); got == nil || *got != runID {
		t.Fatalf("CurrentRunID() = %v, want %s", got, runID)
	}

	identity := &FileIdentity{ContentHash: strings.Repeat("a", 64), Size: 42}
	if err := w.RecordEncoded("/in/a.pdf", "/out/2024/x.pdf", "x", identity); err != nil {
		t.Fatalf("RecordEncoded failed: %v", err)
	}
	if err := w.RecordRejected("/in/b.pdf", "y", ReasonNotReady, "pending: tarih"); err != nil {
		t.Fatalf("RecordRejected failed: %v", err)
	}
	if err := w.RecordDuplicate("/in/c.pdf", "z", "/out/2024/z.pdf", ReasonAlreadyArchived); err != nil {
		t.Fatalf("RecordDuplicate failed: %v", err)
	}
	if err := w.RecordError("/in/d.pdf", "ArchiveError", "disk full", "archive"); err != nil {
		t.Fatalf("RecordError failed: %v", err)
	}

	summary := RunSummary{TotalDocuments: 4, Encoded: 1, Rejected: 1, Duplicates: 1, Errors: 1}
	if err := w.EndRun(runID, RunStatusCompleted, summary); err != nil {
		t.Fatalf("EndRun failed: %v", err)
	}
	if w.CurrentRunID() != nil {
		t.Error("run should not be current after EndRun")
	}

	reader := NewAuditReader(dir)
	events, err := reader.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	wantTypes := []EventType{EventRunStart, EventEncoded, EventRejected, EventDuplicate, EventError, EventRunEnd}
	if len(events) != len(wantTypes) {
		t.Fatalf("got %d events, want %d", len(events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i].EventType != want {
			t.Errorf("event %d: type %s, want %s", i, events[i].EventType, want)
		}
		if events[i].RunID != runID {
			t.Errorf("event %d: run %s, want %s", i, events[i].RunID, runID)
		}
	}
	if events[1].EncodedName != "x" || events[1].FileIdentity == nil || events[1].FileIdentity.Size != 42 {
		t.Errorf("encoded event not preserved: %+v", events[1])
	}
	if events[2].ReasonCode != ReasonNotReady || events[2].Metadata["message"] != "pending: tarih" {
		t.Errorf("rejected event not preserved: %+v", events[2])
	}
	if events[4].ErrorDetails == nil || events[4].ErrorDetails.Operation != "archive" {
		t.Errorf("error event not preserved: %+v", events[4])
	}

	runs, err := reader.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != RunStatusCompleted || runs[0].Summary != summary {
		t.Errorf("run info = %+v", runs[0])
	}
	if runs[0].AppVersion != "1.0.0" || runs[0].MachineID != "host-1" {
		t.Errorf("run metadata = %+v", runs[0])
	}
}

func TestInterruptedRunCountsEvents(t *testing.T) {
	w, dir := newTestWriter(t)

	runID, err := w.StartRun("dev", "host")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	w.RecordEncoded("/in/a.pdf", "/out/a.pdf", "a", nil)
	w.RecordEncoded("/in/b.pdf", "/out/b.pdf", "b", nil)
	w.RecordRejected("/in/c.pdf", "c", ReasonLengthMismatch, "74 != 75")

	runs, err := NewAuditReader(dir).ListRuns()
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != runID {
		t.Fatalf("runs = %+v", runs)
	}
	got := runs[0]
	if got.Status != RunStatusInProgress || got.EndTime != nil {
		t.Errorf("expected an open run, got %+v", got)
	}
	want := RunSummary{TotalDocuments: 3, Encoded: 2, Rejected: 1}
	if got.Summary != want {
		t.Errorf("summary = %+v, want %+v", got.Summary, want)
	}
}

func TestConcurrentRecording(t *testing.T) {
	w, dir := newTestWriter(t)

	runID, err := w.StartRun("dev", "host")
	if err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := w.RecordEncoded("/in/x.pdf", "/out/x.pdf", "x", nil); err != nil {
					t.Errorf("RecordEncoded failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	events, err := NewAuditReader(dir).GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(events) != 1+workers*perWorker {
		t.Errorf("got %d events, want %d", len(events), 1+workers*perWorker)
	}
}

func TestReaderMissingLog(t *testing.T) {
	reader := NewAuditReader(filepath.Join(t.TempDir(), "absent"))

	events, err := reader.ReadEvents()
	if err != nil || len(events) != 0 {
		t.Errorf("ReadEvents() = %v, %v; want empty, nil", events, err)
	}
	if _, err := reader.GetRun("nope"); err == nil {
		t.Error("expected error for unknown run")
	}
}

func TestReaderRejectsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LogFileName)
	if err := os.WriteFile(path, []byte("{\"timestamp\":\"nope\"}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewAuditReader(dir).ReadEvents(); err == nil {
		t.Error("expected parse error")
	}
}
