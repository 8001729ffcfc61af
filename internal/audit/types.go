// Package audit records every document the intake host handles in an
// append-only JSON Lines log, grouped into runs.
package audit

import (
	"strconv"
	"time"
)

// RunID is a unique identifier for each program execution, a UUID v4.
type RunID string

// EventType represents the type of audit event.
type EventType string

const (
	// Run lifecycle events
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"

	// Document events
	EventEncoded   EventType = "ENCODED"
	EventRejected  EventType = "REJECTED"
	EventDuplicate EventType = "DUPLICATE"
	EventError     EventType = "ERROR"

	// System events
	EventLogInitialized EventType = "LOG_INITIALIZED"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailure OperationStatus = "FAILURE"
	StatusSkipped OperationStatus = "SKIPPED"
)

// ReasonCode gives the reason a document was rejected, skipped or renamed.
type ReasonCode string

const (
	ReasonNotReady            ReasonCode = "NOT_READY"
	ReasonLengthMismatch      ReasonCode = "LENGTH_MISMATCH"
	ReasonMissingDocumentType ReasonCode = "MISSING_DOCUMENT_TYPE"
	ReasonAlreadyArchived     ReasonCode = "ALREADY_ARCHIVED"
	ReasonNameCollision       ReasonCode = "NAME_COLLISION"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusInProgress  RunStatus = "IN_PROGRESS"
	RunStatusCompleted   RunStatus = "COMPLETED"
	RunStatusFailed      RunStatus = "FAILED"
	RunStatusInterrupted RunStatus = "INTERRUPTED"
)

// FileIdentity captures the content of a document at the time it was handled.
type FileIdentity struct {
	ContentHash string    `json:"contentHash"` // SHA-256 hex string
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"modTime"`
}

// ErrorDetails contains detailed information about an error.
type ErrorDetails struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	Operation    string `json:"operation"`
}

// AuditEvent is a single audit record, one line of the log.
type AuditEvent struct {
	Timestamp       time.Time         `json:"-"` // written by MarshalJSON
	RunID           RunID             `json:"runId"`
	EventType       EventType         `json:"eventType"`
	Status          OperationStatus   `json:"status"`
	SourcePath      string            `json:"sourcePath,omitempty"`
	DestinationPath string            `json:"destinationPath,omitempty"`
	EncodedName     string            `json:"encodedName,omitempty"`
	ReasonCode      ReasonCode        `json:"reasonCode,omitempty"`
	FileIdentity    *FileIdentity     `json:"fileIdentity,omitempty"`
	ErrorDetails    *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// RunSummary contains statistics for a completed run.
type RunSummary struct {
	TotalDocuments int `json:"totalDocuments"`
	Encoded        int `json:"encoded"`
	Rejected       int `json:"rejected"`
	Duplicates     int `json:"duplicates"`
	Errors         int `json:"errors"`
}

// summaryKeys lists the RUN_END metadata keys holding the summary counts.
var summaryKeys = []string{"totalDocuments", "encoded", "rejected", "duplicates", "errors"}

func (s *RunSummary) counts() []*int {
	return []*int{&s.TotalDocuments, &s.Encoded, &s.Rejected, &s.Duplicates, &s.Errors}
}

func (s RunSummary) metadata() map[string]string {
	meta := make(map[string]string, len(summaryKeys)+1)
	for i, n := range s.counts() {
		meta[summaryKeys[i]] = strconv.Itoa(*n)
	}
	return meta
}

// summaryFromMetadata is the inverse of metadata. Missing or malformed
// counts read as zero.
func summaryFromMetadata(meta map[string]string) RunSummary {
	var s RunSummary
	for i, n := range s.counts() {
		*n, _ = strconv.Atoi(meta[summaryKeys[i]])
	}
	return s
}

// RunInfo contains metadata and summary for a run.
type RunInfo struct {
	RunID      RunID      `json:"runId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Status     RunStatus  `json:"status"`
	AppVersion string     `json:"appVersion"`
	MachineID  string     `json:"machineId"`
	Summary    RunSummary `json:"summary"`
}

// AuditConfig holds configuration for the audit system.
type AuditConfig struct {
	LogDirectory string `json:"logDirectory" toml:"logDirectory"`
}

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		LogDirectory: ".hukudok/audit",
	}
}

// LogFileName is the name of the audit log inside the log directory.
const LogFileName = "hukudok-audit.jsonl"
