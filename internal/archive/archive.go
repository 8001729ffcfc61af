// Package archive moves approved documents into the archive directory under
// their encoded names.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hukudok/internal/audit"
	"hukudok/internal/dateparser"
	"hukudok/internal/metadata"
)

// ArchiveErrorType represents the type of archive error.
type ArchiveErrorType string

const (
	// SourceNotFound indicates the document does not exist.
	SourceNotFound ArchiveErrorType = "SOURCE_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied ArchiveErrorType = "PERMISSION_DENIED"
	// CopyCorrupted indicates the copied document differs from its source.
	CopyCorrupted ArchiveErrorType = "COPY_CORRUPTED"
	// MetadataFailed indicates the corrected metadata could not be written.
	MetadataFailed ArchiveErrorType = "METADATA_FAILED"
)

// ArchiveError represents an error that occurred while archiving a document.
type ArchiveError struct {
	Type ArchiveErrorType
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// UnknownYear is the directory for documents whose date segment is the
// sentinel.
const UnknownYear = "unknown"

// Item is one document ready to be archived.
type Item struct {
	DocumentPath string             // the intake document
	SidecarPath  string             // its analysis metadata; removed once archived
	EncodedName  string             // filename without extension
	Metadata     *metadata.Document // corrected metadata written beside the archived document
}

// Result represents the result of a successful archive operation.
type Result struct {
	SourcePath      string
	DestinationPath string
	MetadataPath    string
	IsDuplicate     bool   // True if the document was renamed due to a name collision
	OriginalName    string // Name before duplicate renaming (empty if not a duplicate)
}

// Archiver places documents under <root>/<year>/<encoded><extension>.
type Archiver struct {
	root      string
	extension string
	identity  *audit.IdentityResolver
	now       func() time.Time
}

// New creates an Archiver rooted at root. extension includes its dot.
func New(root, extension string) *Archiver {
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return &Archiver{
		root:      root,
		extension: extension,
		identity:  audit.NewIdentityResolver(),
		now:       time.Now,
	}
}

// Root returns the archive directory.
func (a *Archiver) Root() string {
	return a.root
}

// YearDirectory returns the directory name for an encoded filename: the
// four-digit year of its leading YYMMDD date segment, or UnknownYear.
func YearDirectory(encoded string) string {
	if len(encoded) < 6 {
		return UnknownYear
	}
	for i := 0; i < 6; i++ {
		if encoded[i] < '0' || encoded[i] > '9' {
			return UnknownYear
		}
	}
	return "20" + encoded[:2]
}

// Destination returns the path a document with the given encoded name is
// archived to when nothing is in the way.
func (a *Archiver) Destination(encoded string) string {
	return filepath.Join(a.root, YearDirectory(encoded), encoded+a.extension)
}

// Archive moves item's document into the archive, writes the corrected
// metadata beside it and removes the intake sidecar. A name already taken in
// the archive gets a duplicate suffix.
func (a *Archiver) Archive(item Item) (*Result, error) {
	destDir := filepath.Join(a.root, YearDirectory(item.EncodedName))

	if err := os.MkdirAll(destDir, 0755); err != nil {
		if os.IsPermission(err) {
			return nil, &ArchiveError{Type: PermissionDenied, Path: destDir, Err: err}
		}
		return nil, err
	}

	if _, err := os.Stat(item.DocumentPath); os.IsNotExist(err) {
		return nil, &ArchiveError{Type: SourceNotFound, Path: item.DocumentPath, Err: err}
	}

	destFilename := item.EncodedName + a.extension
	originalFilename := destFilename
	isDuplicate := false
	if FileExists(filepath.Join(destDir, destFilename)) {
		destFilename = GenerateDuplicateName(destDir, destFilename)
		isDuplicate = true
	}
	destPath := filepath.Join(destDir, destFilename)

	if err := os.Rename(item.DocumentPath, destPath); err != nil {
		if os.IsPermission(err) {
			return nil, &ArchiveError{Type: PermissionDenied, Path: item.DocumentPath, Err: err}
		}
		// Cross-device moves fall back to copy+delete.
		if err := a.copyAndDelete(item.DocumentPath, destPath); err != nil {
			return nil, err
		}
	}

	result := &Result{
		SourcePath:      item.DocumentPath,
		DestinationPath: destPath,
		IsDuplicate:     isDuplicate,
	}
	if isDuplicate {
		result.OriginalName = originalFilename
	}

	if item.Metadata != nil {
		metaPath := strings.TrimSuffix(destPath, filepath.Ext(destPath)) + ".json"
		doc := item.Metadata.Clone()
		doc.EncodedName = item.EncodedName
		doc.OriginalName = filepath.Base(item.DocumentPath)
		doc.ArchivedDate = a.now().Format(time.DateOnly)
		if iso, ok := dateparser.ISO(doc.Date); ok {
			doc.DocumentDate = iso
		}
		if err := metadata.Save(doc, metaPath); err != nil {
			return result, &ArchiveError{Type: MetadataFailed, Path: metaPath, Err: err}
		}
		result.MetadataPath = metaPath
	}

	if item.SidecarPath != "" {
		if err := os.Remove(item.SidecarPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return result, fmt.Errorf("failed to remove intake sidecar: %w", err)
		}
	}

	return result, nil
}

// copyAndDelete copies src to dst, verifies the copy against the source
// identity and deletes src.
func (a *Archiver) copyAndDelete(src, dst string) error {
	identity, err := a.identity.CaptureIdentity(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &ArchiveError{Type: SourceNotFound, Path: src, Err: err}
		}
		return err
	}

	if err := copyFile(src, dst); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return &ArchiveError{Type: PermissionDenied, Path: dst, Err: err}
		}
		return err
	}

	match, err := a.identity.VerifyIdentity(dst, *identity)
	if err != nil || match != audit.IdentityMatches {
		os.Remove(dst)
		return &ArchiveError{Type: CopyCorrupted, Path: dst, Err: err}
	}

	if err := os.Remove(src); err != nil {
		// Keep exactly one copy.
		os.Remove(dst)
		if os.IsPermission(err) {
			return &ArchiveError{Type: PermissionDenied, Path: src, Err: err}
		}
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, in)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
	}
	return err
}
