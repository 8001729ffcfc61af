package orchestrator

import (
	"fmt"
	"time"

	"hukudok/internal/audit"
)

// Summary represents the overall results of a batch run.
type Summary struct {
	TotalDocuments int
	Encoded        int
	Rejected       int
	Duplicates     int
	Errors         int
	Duration       time.Duration
	Results        []Result
	ScanErrors     []error
}

func newSummary(results []Result, scanErrors []error, duration time.Duration) *Summary {
	s := &Summary{
		Duration:   duration,
		ScanErrors: scanErrors,
	}
	for _, r := range results {
		// Documents skipped by cancellation have no status.
		if r.Status == "" {
			continue
		}
		s.Results = append(s.Results, r)
		s.TotalDocuments++
		switch r.Status {
		case StatusEncoded:
			s.Encoded++
		case StatusRejected:
			s.Rejected++
		case StatusDuplicate:
			s.Duplicates++
		case StatusFailed:
			s.Errors++
		}
	}
	return s
}

// HasErrors returns true if any document failed or any directory could not
// be scanned. Rejections and duplicates are not errors.
func (s *Summary) HasErrors() bool {
	return s.Errors > 0 || len(s.ScanErrors) > 0
}

// AuditSummary returns the counts recorded with the RUN_END event.
func (s *Summary) AuditSummary() audit.RunSummary {
	return audit.RunSummary{
		TotalDocuments: s.TotalDocuments,
		Encoded:        s.Encoded,
		Rejected:       s.Rejected,
		Duplicates:     s.Duplicates,
		Errors:         s.Errors,
	}
}

// String returns a one-line summary.
func (s *Summary) String() string {
	return fmt.Sprintf("Processed %d documents: %d encoded, %d rejected, %d duplicates, %d errors",
		s.TotalDocuments, s.Encoded, s.Rejected, s.Duplicates, s.Errors)
}
