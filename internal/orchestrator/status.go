package orchestrator

import (
	"os"

	"hukudok/internal/metadata"
	"hukudok/internal/review"
	"hukudok/internal/scanner"
)

// Preview is the filename a pending document would be archived under.
type Preview struct {
	SidecarPath string
	Filename    string
	Destination string
	Problem     string // Submission check failure or load error, empty when the document would be archived
	Warnings    []string
}

// IntakeStatus contains the previews of one intake directory.
type IntakeStatus struct {
	Directory string
	Documents []Preview
	Ready     int
}

// StatusResult contains the status of every intake directory.
type StatusResult struct {
	ByIntake   map[string]*IntakeStatus
	GrandTotal int
	GrandReady int
}

// Status previews every pending document without moving, recording or
// auditing anything. Office-file numbers are not reserved, so previews of
// documents without one carry the sentinel.
func (o *Orchestrator) Status() (*StatusResult, error) {
	result := &StatusResult{ByIntake: make(map[string]*IntakeStatus)}
	opts := o.config.ScanOptions()

	for _, dir := range o.config.IntakeDirectories {
		status := &IntakeStatus{Directory: dir}
		result.ByIntake[dir] = status

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		pending, err := scanner.ScanWithOptions(dir, opts)
		if err != nil {
			continue
		}

		for _, p := range pending {
			preview := o.preview(p)
			if preview.Problem == "" {
				status.Ready++
			}
			status.Documents = append(status.Documents, preview)
		}
		result.GrandTotal += len(status.Documents)
		result.GrandReady += status.Ready
	}

	return result, nil
}

func (o *Orchestrator) preview(p scanner.Pending) Preview {
	preview := Preview{SidecarPath: p.SidecarPath}

	doc, err := metadata.Load(p.SidecarPath)
	if err != nil {
		preview.Problem = err.Error()
		return preview
	}
	preview.Warnings = Enrich(doc, o.lists)

	session := review.New(doc, o.codec).ApproveAll()
	filename := session.Filename()
	preview.Filename = filename.String()
	preview.Destination = o.archiver.Destination(preview.Filename)
	if err := session.Check(); err != nil {
		preview.Problem = err.Error()
	}
	return preview
}
