// Package scanner finds intake documents that have analysis metadata waiting
// to be encoded.
package scanner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the directory does not exist.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
	// SymlinkError indicates a symlink was encountered with "error" policy.
	SymlinkError ScanErrorType = "SYMLINK_ERROR"
)

// Symlink policy constants
const (
	SymlinkPolicyFollow = "follow"
	SymlinkPolicySkip   = "skip"
	SymlinkPolicyError  = "error"
)

// SidecarExtension is the extension of analysis metadata files.
const SidecarExtension = ".json"

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ScanOptions configures scanning behavior.
type ScanOptions struct {
	MaxDepth          int    // Maximum depth to scan (0 = immediate only, -1 = unlimited)
	SymlinkPolicy     string // "follow", "skip", or "error"
	DocumentExtension string // Extension of the documents, with its dot
}

// DefaultScanOptions returns the default scan options.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MaxDepth:          0,
		SymlinkPolicy:     SymlinkPolicySkip,
		DocumentExtension: ".pdf",
	}
}

// Pending is an intake document with its metadata sidecar.
type Pending struct {
	Name         string // Shared base name without extension
	SidecarPath  string
	DocumentPath string
}

// Scan returns the pending documents directly inside directory.
func Scan(directory string) ([]Pending, error) {
	return ScanWithOptions(directory, DefaultScanOptions())
}

// ScanWithOptions returns every sidecar under directory whose document
// exists, sorted by sidecar path. Sidecars without a document are left for a
// later scan.
func ScanWithOptions(directory string, opts ScanOptions) ([]Pending, error) {
	files, err := listFiles(directory, opts)
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f] = true
	}

	var pending []Pending
	for _, f := range files {
		if !strings.EqualFold(filepath.Ext(f), SidecarExtension) {
			continue
		}
		if p := pair(f, opts.DocumentExtension); present[p.DocumentPath] {
			pending = append(pending, p)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SidecarPath < pending[j].SidecarPath
	})
	return pending, nil
}

// PendingFor returns the pending document that path belongs to, where path
// is either a sidecar or a document. ok is false until both files exist.
func PendingFor(path, documentExtension string) (p Pending, ok bool) {
	ext := filepath.Ext(path)
	switch {
	case strings.EqualFold(ext, SidecarExtension):
	case strings.EqualFold(ext, documentExtension):
		path = strings.TrimSuffix(path, ext) + SidecarExtension
	default:
		return Pending{}, false
	}

	p = pair(path, documentExtension)
	return p, isFile(p.SidecarPath) && isFile(p.DocumentPath)
}

func pair(sidecarPath, documentExtension string) Pending {
	base := strings.TrimSuffix(sidecarPath, filepath.Ext(sidecarPath))
	return Pending{
		Name:         filepath.Base(base),
		SidecarPath:  sidecarPath,
		DocumentPath: base + documentExtension,
	}
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// listFiles returns the absolute paths of the regular files under
// directory, honouring the depth and symlink policy of opts.
func listFiles(directory string, opts ScanOptions) ([]string, error) {
	info, err := os.Lstat(directory)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, &ScanError{Type: DirectoryNotFound, Path: directory, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return nil, &ScanError{Type: PermissionDenied, Path: directory, Err: err}
	case err != nil:
		return nil, err
	}

	info, keep, err := applySymlinkPolicy(directory, info, opts.SymlinkPolicy)
	if err != nil {
		return nil, err
	}
	if !keep {
		return nil, nil
	}
	if !info.IsDir() {
		return nil, &ScanError{Type: DirectoryNotFound, Path: directory, Err: errors.New("path is not a directory")}
	}

	w := walker{opts: opts}
	if err := w.walk(directory, 0); err != nil {
		return nil, err
	}
	return w.files, nil
}

// applySymlinkPolicy resolves info for path when it is a symlink. keep is
// false when the link should be passed over.
func applySymlinkPolicy(path string, info fs.FileInfo, policy string) (resolved fs.FileInfo, keep bool, err error) {
	if info.Mode()&fs.ModeSymlink == 0 {
		return info, true, nil
	}
	switch policy {
	case SymlinkPolicyError:
		return nil, false, &ScanError{Type: SymlinkError, Path: path, Err: errors.New("symlink encountered with error policy")}
	case SymlinkPolicyFollow:
		target, err := os.Stat(path)
		if err != nil {
			// Broken links are passed over.
			return nil, false, nil
		}
		return target, true, nil
	default:
		return nil, false, nil
	}
}

type walker struct {
	opts  ScanOptions
	files []string
}

func (w *walker) walk(directory string, depth int) error {
	entries, err := os.ReadDir(directory)
	if errors.Is(err, fs.ErrPermission) {
		return &ScanError{Type: PermissionDenied, Path: directory, Err: err}
	}
	if err != nil {
		return err
	}

	descend := w.opts.MaxDepth == -1 || depth < w.opts.MaxDepth
	for _, entry := range entries {
		path := filepath.Join(directory, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		info, keep, err := applySymlinkPolicy(path, info, w.opts.SymlinkPolicy)
		if err != nil {
			return err
		}
		if !keep {
			continue
		}

		if info.IsDir() {
			if descend {
				if err := w.walk(path, depth+1); err != nil {
					return err
				}
			}
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		w.files = append(w.files, path)
	}
	return nil
}
