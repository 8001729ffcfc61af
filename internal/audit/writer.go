package audit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNoActiveRun is returned when a document event is recorded outside a run.
var ErrNoActiveRun = errors.New("no active run: call StartRun first")

// AuditWriter appends events to the audit log. Each event is written as one
// line and synced before the call returns. It is safe for concurrent use.
type AuditWriter struct {
	mu      sync.Mutex
	file    *os.File
	logPath string
	run     RunID // empty outside a run
}

// NewAuditWriter opens the audit log in config.LogDirectory for appending,
// creating the directory and file as needed. A fresh log begins with a
// LOG_INITIALIZED event.
func NewAuditWriter(config AuditConfig) (*AuditWriter, error) {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logPath := filepath.Join(config.LogDirectory, LogFileName)

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	w := &AuditWriter{file: file, logPath: logPath}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat audit log: %w", err)
	}
	if info.Size() == 0 {
		err := w.append(AuditEvent{
			EventType: EventLogInitialized,
			Status:    StatusSuccess,
			Metadata:  map[string]string{"logPath": logPath},
		})
		if err != nil {
			file.Close()
			return nil, err
		}
	}
	return w, nil
}

// GenerateRunID returns a new UUID v4 run id.
func GenerateRunID() (RunID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate run id: %w", err)
	}
	return RunID(id.String()), nil
}

// append stamps event with the current time and writes it. The caller
// holds w.mu.
func (w *AuditWriter) append(event AuditEvent) error {
	event.Timestamp = time.Now().UTC()
	line, err := event.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.EventType, err)
	}
	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.EventType, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync audit log: %w", err)
	}
	return nil
}

// StartRun writes a RUN_START event and makes the new run current.
func (w *AuditWriter) StartRun(appVersion, machineID string) (RunID, error) {
	runID, err := GenerateRunID()
	if err != nil {
		return "", err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	err = w.append(AuditEvent{
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata:  map[string]string{"appVersion": appVersion, "machineId": machineID},
	})
	if err != nil {
		return "", err
	}
	w.run = runID
	return runID, nil
}

// EndRun writes the RUN_END event carrying summary and clears the current
// run.
func (w *AuditWriter) EndRun(runID RunID, status RunStatus, summary RunSummary) error {
	meta := summary.metadata()
	meta["status"] = string(status)

	outcome := StatusSuccess
	if status == RunStatusFailed || status == RunStatusInterrupted {
		outcome = StatusFailure
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.append(AuditEvent{RunID: runID, EventType: EventRunEnd, Status: outcome, Metadata: meta}); err != nil {
		return err
	}
	if w.run == runID {
		w.run = ""
	}
	return nil
}

// CurrentRunID returns the current run, or nil outside a run.
func (w *AuditWriter) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.run == "" {
		return nil
	}
	run := w.run
	return &run
}

// LogPath returns the path of the audit log file.
func (w *AuditWriter) LogPath() string {
	return w.logPath
}

// Close closes the log file.
func (w *AuditWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}

// record writes a document event under the current run.
func (w *AuditWriter) record(event AuditEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.run == "" {
		return ErrNoActiveRun
	}
	event.RunID = w.run
	return w.append(event)
}

// RecordEncoded records a document archived under its encoded name.
func (w *AuditWriter) RecordEncoded(source, dest, encodedName string, identity *FileIdentity) error {
	return w.record(AuditEvent{
		EventType:       EventEncoded,
		Status:          StatusSuccess,
		SourcePath:      source,
		DestinationPath: dest,
		EncodedName:     encodedName,
		FileIdentity:    identity,
	})
}

// RecordRejected records a document left in place because its filename
// failed the submission checks.
func (w *AuditWriter) RecordRejected(source, encodedName string, reason ReasonCode, message string) error {
	return w.record(AuditEvent{
		EventType:   EventRejected,
		Status:      StatusSkipped,
		SourcePath:  source,
		EncodedName: encodedName,
		ReasonCode:  reason,
		Metadata:    map[string]string{"message": message},
	})
}

// RecordDuplicate records a document whose content was archived before, or
// whose encoded name was already taken.
func (w *AuditWriter) RecordDuplicate(source, encodedName, existing string, reason ReasonCode) error {
	return w.record(AuditEvent{
		EventType:       EventDuplicate,
		Status:          StatusSkipped,
		SourcePath:      source,
		DestinationPath: existing,
		EncodedName:     encodedName,
		ReasonCode:      reason,
	})
}

// RecordError records a failure while handling a document.
func (w *AuditWriter) RecordError(source, errType, errMsg, operation string) error {
	return w.record(AuditEvent{
		EventType:    EventError,
		Status:       StatusFailure,
		SourcePath:   source,
		ErrorDetails: &ErrorDetails{ErrorType: errType, ErrorMessage: errMsg, Operation: operation},
	})
}
