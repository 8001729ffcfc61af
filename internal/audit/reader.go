package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// AuditReader reads events back from the audit log.
type AuditReader struct {
	logPath string
}

// NewAuditReader creates an AuditReader for the log in logDir.
func NewAuditReader(logDir string) *AuditReader {
	return &AuditReader{logPath: filepath.Join(logDir, LogFileName)}
}

// LogPath returns the path of the log being read.
func (r *AuditReader) LogPath() string {
	return r.logPath
}

// maxLineSize bounds a single event line.
const maxLineSize = 1 << 20

// each calls fn for every event in the log, in order. A missing log has no
// events.
func (r *AuditReader) each(fn func(AuditEvent)) error {
	file, err := os.Open(r.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer file.Close()

	lines := bufio.NewScanner(file)
	lines.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for n := 1; lines.Scan(); n++ {
		if len(lines.Bytes()) == 0 {
			continue
		}
		event, err := UnmarshalJSONLine(lines.Bytes())
		if err != nil {
			return fmt.Errorf("%s line %d: %w", r.logPath, n, err)
		}
		fn(*event)
	}
	if err := lines.Err(); err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	return nil
}

// ReadEvents returns every event in the log.
func (r *AuditReader) ReadEvents() ([]AuditEvent, error) {
	events := []AuditEvent{}
	if err := r.each(func(e AuditEvent) { events = append(events, e) }); err != nil {
		return nil, err
	}
	return events, nil
}

// ListRuns returns every run, oldest first.
func (r *AuditReader) ListRuns() ([]RunInfo, error) {
	byRun := make(map[RunID][]AuditEvent)
	var order []RunID
	err := r.each(func(e AuditEvent) {
		if e.RunID == "" {
			return
		}
		if _, seen := byRun[e.RunID]; !seen {
			order = append(order, e.RunID)
		}
		byRun[e.RunID] = append(byRun[e.RunID], e)
	})
	if err != nil {
		return nil, err
	}

	runs := make([]RunInfo, 0, len(order))
	for _, id := range order {
		runs = append(runs, buildRunInfo(id, byRun[id]))
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})
	return runs, nil
}

// GetRun returns the events of one run.
func (r *AuditReader) GetRun(runID RunID) ([]AuditEvent, error) {
	var events []AuditEvent
	err := r.each(func(e AuditEvent) {
		if e.RunID == runID {
			events = append(events, e)
		}
	})
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	return events, nil
}

// buildRunInfo summarizes one run. A RUN_END summary overrides the counts
// taken from document events.
func buildRunInfo(runID RunID, events []AuditEvent) RunInfo {
	info := RunInfo{RunID: runID, Status: RunStatusInProgress}

	for _, event := range events {
		switch event.EventType {
		case EventRunStart:
			info.StartTime = event.Timestamp
			info.AppVersion = event.Metadata["appVersion"]
			info.MachineID = event.Metadata["machineId"]
		case EventRunEnd:
			end := event.Timestamp
			info.EndTime = &end
			if status, ok := event.Metadata["status"]; ok {
				info.Status = RunStatus(status)
			}
			info.Summary = summaryFromMetadata(event.Metadata)
		case EventEncoded:
			info.Summary.TotalDocuments++
			info.Summary.Encoded++
		case EventRejected:
			info.Summary.TotalDocuments++
			info.Summary.Rejected++
		case EventDuplicate:
			info.Summary.TotalDocuments++
			info.Summary.Duplicates++
		case EventError:
			info.Summary.TotalDocuments++
			info.Summary.Errors++
		}
	}
	return info
}
