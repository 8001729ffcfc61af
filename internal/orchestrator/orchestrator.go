// Package orchestrator runs intake documents through enrichment, review,
// archiving and auditing.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"hukudok/internal/archive"
	"hukudok/internal/audit"
	"hukudok/internal/codec"
	"hukudok/internal/config"
	"hukudok/internal/metadata"
	"hukudok/internal/reflists"
	"hukudok/internal/registry"
	"hukudok/internal/review"
	"hukudok/internal/scanner"
	"hukudok/internal/watcher"
)

// Status is the outcome of processing one document.
type Status string

const (
	StatusEncoded   Status = "ENCODED"
	StatusRejected  Status = "REJECTED"
	StatusDuplicate Status = "DUPLICATE"
	StatusFailed    Status = "FAILED"
)

// Result represents the outcome of processing a single document.
type Result struct {
	SidecarPath     string
	DocumentPath    string
	EncodedName     string
	DestinationPath string
	Status          Status
	Reason          audit.ReasonCode
	Warnings        []string
	Err             error
}

// Options carries the collaborators of an Orchestrator. Nil Lists disable
// enrichment; a nil Audit writer disables auditing.
type Options struct {
	Registry *registry.Registry
	Audit    *audit.AuditWriter
	Lists    *reflists.Lists
	Logger   *slog.Logger
	Progress func(done, total int)
}

// Orchestrator processes intake documents for one configuration.
type Orchestrator struct {
	config   *config.Configuration
	codec    *codec.Codec
	registry *registry.Registry
	audit    *audit.AuditWriter
	lists    *reflists.Lists
	archiver *archive.Archiver
	identity *audit.IdentityResolver
	logger   *slog.Logger
	progress func(done, total int)

	mu       sync.Mutex
	inFlight map[string]string // content hash -> sidecar being processed
}

// NewOrchestrator creates an Orchestrator. cfg must have its defaults applied.
func NewOrchestrator(cfg *config.Configuration, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Lists != nil {
		// Build the client index before workers share the lists.
		opts.Lists.Clients()
	}
	c := cfg.Codec()
	return &Orchestrator{
		config:   cfg,
		codec:    c,
		registry: opts.Registry,
		audit:    opts.Audit,
		lists:    opts.Lists,
		archiver: archive.New(cfg.ArchiveDirectory, c.Layout().Extension),
		identity: audit.NewIdentityResolver(),
		logger:   logger,
		progress: opts.Progress,
		inFlight: make(map[string]string),
	}
}

// Open creates an Orchestrator with its registry, audit log and reference
// lists opened from cfg. Call Close when done.
func Open(ctx context.Context, cfg *config.Configuration, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := registry.Open(ctx, cfg.RegistryPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	writer, err := audit.NewAuditWriter(*cfg.Audit)
	if err != nil {
		reg.Close()
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	var lists *reflists.Lists
	if cfg.ReferenceLists != "" {
		lists, err = reflists.Load(cfg.ReferenceLists)
		if err != nil {
			logger.Warn("reference lists unavailable, enrichment disabled", "path", cfg.ReferenceLists, "error", err)
			lists = nil
		}
	}

	return NewOrchestrator(cfg, Options{
		Registry: reg,
		Audit:    writer,
		Lists:    lists,
		Logger:   logger,
	}), nil
}

// SetProgress installs a callback invoked after every document of a batch.
func (o *Orchestrator) SetProgress(fn func(done, total int)) {
	o.progress = fn
}

// Audit returns the audit writer, or nil.
func (o *Orchestrator) Audit() *audit.AuditWriter {
	return o.audit
}

// Codec returns the filename codec built from the configuration.
func (o *Orchestrator) Codec() *codec.Codec {
	return o.codec
}

// Close releases the registry and the audit log.
func (o *Orchestrator) Close() error {
	var errs []error
	if o.audit != nil {
		errs = append(errs, o.audit.Close())
	}
	if o.registry != nil {
		errs = append(errs, o.registry.Close())
	}
	return errors.Join(errs...)
}

// Scan lists the pending documents of every intake directory. Directories
// that cannot be scanned are reported in the returned errors.
func (o *Orchestrator) Scan() ([]scanner.Pending, []error) {
	opts := o.config.ScanOptions()

	var pending []scanner.Pending
	var scanErrors []error
	for _, dir := range o.config.IntakeDirectories {
		found, err := scanner.ScanWithOptions(dir, opts)
		if err != nil {
			scanErrors = append(scanErrors, fmt.Errorf("failed to scan %s: %w", dir, err))
			continue
		}
		pending = append(pending, found...)
	}
	return pending, scanErrors
}

// Run processes every pending document with up to cfg.Workers documents in
// flight and records the batch as one audit run.
func (o *Orchestrator) Run(ctx context.Context, appVersion string) (*Summary, error) {
	start := time.Now()

	var runID audit.RunID
	if o.audit != nil {
		id, err := o.audit.StartRun(appVersion, machineID())
		if err != nil {
			return nil, fmt.Errorf("failed to start audit run: %w", err)
		}
		runID = id
	}

	pending, scanErrors := o.Scan()
	for _, err := range scanErrors {
		o.logger.Error("scan failed", "error", err)
	}

	results := make([]Result, len(pending))
	workers := o.config.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var mu sync.Mutex
	done := 0
	for i, p := range pending {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.Process(gctx, p)

			mu.Lock()
			done++
			if o.progress != nil {
				o.progress(done, len(pending))
			}
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()

	summary := newSummary(results, scanErrors, time.Since(start))

	if o.audit != nil {
		status := audit.RunStatusCompleted
		switch {
		case runErr != nil:
			status = audit.RunStatusInterrupted
		case summary.HasErrors():
			status = audit.RunStatusFailed
		}
		if err := o.audit.EndRun(runID, status, summary.AuditSummary()); err != nil {
			o.logger.Error("failed to end audit run", "error", err)
		}
	}

	if runErr != nil {
		return summary, runErr
	}
	return summary, nil
}

// Handle processes one document for the watcher.
func (o *Orchestrator) Handle(ctx context.Context, p scanner.Pending) (watcher.Outcome, error) {
	result := o.Process(ctx, p)
	switch result.Status {
	case StatusEncoded:
		return watcher.OutcomeEncoded, nil
	case StatusRejected:
		return watcher.OutcomeRejected, nil
	case StatusDuplicate:
		return watcher.OutcomeDuplicate, nil
	default:
		return "", result.Err
	}
}

// Process encodes and archives one document. Every outcome is audited and
// returned in the Result; Process itself never fails.
func (o *Orchestrator) Process(ctx context.Context, p scanner.Pending) Result {
	result := Result{SidecarPath: p.SidecarPath, DocumentPath: p.DocumentPath}
	log := o.logger.With("document", p.DocumentPath)

	doc, err := metadata.Load(p.SidecarPath)
	if err != nil {
		return o.fail(result, "metadata", err)
	}

	identity, err := o.identity.CaptureIdentity(p.DocumentPath)
	if err != nil {
		return o.fail(result, "identity", err)
	}
	if strings.TrimSpace(doc.Hash) == "" {
		doc.Hash = identity.ShortHash(codecHashWidth())
	}

	if other, ok := o.claim(identity.ContentHash, p.SidecarPath); !ok {
		result.Status = StatusDuplicate
		result.Reason = audit.ReasonAlreadyArchived
		log.Info("same content is being processed", "other", other)
		o.auditErr(o.recordDuplicate(p.SidecarPath, "", other, audit.ReasonAlreadyArchived))
		return result
	}
	defer o.release(identity.ContentHash)

	if o.registry != nil {
		existing, err := o.registry.LookupHash(ctx, identity.ContentHash)
		switch {
		case err == nil:
			result.Status = StatusDuplicate
			result.Reason = audit.ReasonAlreadyArchived
			result.EncodedName = existing.EncodedName
			result.DestinationPath = existing.ArchivePath
			log.Info("content already archived", "existing", existing.ArchivePath)
			o.auditErr(o.recordDuplicate(p.SidecarPath, existing.EncodedName, existing.ArchivePath, audit.ReasonAlreadyArchived))
			return result
		case !errors.Is(err, registry.ErrNotFound):
			return o.fail(result, "registry", err)
		}
	}

	result.Warnings = Enrich(doc, o.lists)
	for _, w := range result.Warnings {
		log.Warn("enrichment", "warning", w)
	}

	session := review.New(doc, o.codec).ApproveAll()
	filename := session.Filename()
	result.EncodedName = filename.String()

	if err := session.Check(); err != nil {
		result.Status = StatusRejected
		result.Reason = rejectReason(err)
		result.Err = err
		log.Warn("filename rejected", "filename", result.EncodedName, "reason", result.Reason, "error", err)
		o.auditErr(o.recordRejected(p.SidecarPath, result.EncodedName, result.Reason, err.Error()))
		return result
	}

	if o.registry != nil && strings.TrimSpace(doc.OfficeFile) == "" {
		number, err := o.registry.Reserve(ctx)
		if err != nil {
			return o.fail(result, "registry", err)
		}
		session, err = assignOfficeFile(session, number)
		if err != nil {
			return o.fail(result, "review", err)
		}
		filename = session.Filename()
		result.EncodedName = filename.String()
	}

	archived, err := o.archiver.Archive(archive.Item{
		DocumentPath: p.DocumentPath,
		SidecarPath:  p.SidecarPath,
		EncodedName:  result.EncodedName,
		Metadata:     session.Document(),
	})
	if err != nil {
		return o.fail(result, "archive", err)
	}
	result.DestinationPath = archived.DestinationPath
	if archived.IsDuplicate {
		result.Reason = audit.ReasonNameCollision
		log.Warn("encoded name already taken, renamed", "destination", archived.DestinationPath)
	}

	if o.registry != nil {
		entry := registry.Entry{
			EncodedName:  result.EncodedName,
			Hash:         identity.ContentHash,
			OriginalName: p.Name,
			ArchivePath:  archived.DestinationPath,
		}
		if err := o.registry.Record(ctx, entry); err != nil {
			log.Error("failed to record archived document", "error", err)
		}
	}

	result.Status = StatusEncoded
	log.Info("document archived", "filename", result.EncodedName, "destination", archived.DestinationPath)
	o.auditErr(o.recordEncoded(p.DocumentPath, archived.DestinationPath, result.EncodedName, identity))
	return result
}

// claim marks hash as being processed for sidecar. It fails with the sidecar
// holding the claim when another worker has the same content.
func (o *Orchestrator) claim(hash, sidecar string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if other, ok := o.inFlight[hash]; ok {
		return other, false
	}
	o.inFlight[hash] = sidecar
	return "", true
}

func (o *Orchestrator) release(hash string) {
	o.mu.Lock()
	delete(o.inFlight, hash)
	o.mu.Unlock()
}

// assignOfficeFile replaces the office file number of an approved session.
func assignOfficeFile(s review.Session, number string) (review.Session, error) {
	s, err := s.Unapprove(codec.FieldOfficeFile)
	if err != nil {
		return s, err
	}
	if s, err = s.Edit(codec.FieldOfficeFile, number); err != nil {
		return s, err
	}
	return s.Approve(codec.FieldOfficeFile)
}

func codecHashWidth() int {
	rule, _ := codec.RuleFor(codec.FieldHash)
	return rule.Width
}

// rejectReason maps the first submit error to an audit reason code.
func rejectReason(err error) audit.ReasonCode {
	var submitErr *codec.SubmitError
	if !errors.As(err, &submitErr) {
		return audit.ReasonNotReady
	}
	switch submitErr.Type {
	case codec.LengthMismatch:
		return audit.ReasonLengthMismatch
	case codec.MissingDocumentType:
		return audit.ReasonMissingDocumentType
	default:
		return audit.ReasonNotReady
	}
}

func (o *Orchestrator) fail(result Result, operation string, err error) Result {
	result.Status = StatusFailed
	result.Err = err
	o.logger.Error("document failed", "document", result.DocumentPath, "operation", operation, "error", err)
	o.auditErr(o.recordError(result.SidecarPath, fmt.Sprintf("%T", err), err.Error(), operation))
	return result
}

func (o *Orchestrator) auditErr(err error) {
	if err != nil {
		o.logger.Warn("audit event not written", "error", err)
	}
}

func (o *Orchestrator) recordEncoded(source, dest, name string, identity *audit.FileIdentity) error {
	if o.audit == nil {
		return nil
	}
	return o.audit.RecordEncoded(source, dest, name, identity)
}

func (o *Orchestrator) recordRejected(source, name string, reason audit.ReasonCode, message string) error {
	if o.audit == nil {
		return nil
	}
	return o.audit.RecordRejected(source, name, reason, message)
}

func (o *Orchestrator) recordDuplicate(source, name, existing string, reason audit.ReasonCode) error {
	if o.audit == nil {
		return nil
	}
	return o.audit.RecordDuplicate(source, name, existing, reason)
}

func (o *Orchestrator) recordError(source, errType, message, operation string) error {
	if o.audit == nil {
		return nil
	}
	return o.audit.RecordError(source, errType, message, operation)
}

func machineID() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}
