package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// IdentityMatch is the outcome of comparing a document with a recorded
// identity.
type IdentityMatch int

const (
	IdentityMatches IdentityMatch = iota
	IdentityHashMismatch
	IdentitySizeMismatch
	IdentityNotFound
)

func (m IdentityMatch) String() string {
	switch m {
	case IdentityMatches:
		return "match"
	case IdentityHashMismatch:
		return "hash mismatch"
	case IdentitySizeMismatch:
		return "size mismatch"
	case IdentityNotFound:
		return "not found"
	default:
		return fmt.Sprintf("IdentityMatch(%d)", int(m))
	}
}

// ShortHash returns the first n hex digits of the content hash in upper
// case, the form used in encoded filenames.
func (id FileIdentity) ShortHash(n int) string {
	if n > len(id.ContentHash) {
		n = len(id.ContentHash)
	}
	return strings.ToUpper(id.ContentHash[:n])
}

// Compare reports how other differs from id. Sizes are compared before
// hashes.
func (id FileIdentity) Compare(other FileIdentity) IdentityMatch {
	switch {
	case id.Size != other.Size:
		return IdentitySizeMismatch
	case id.ContentHash != other.ContentHash:
		return IdentityHashMismatch
	default:
		return IdentityMatches
	}
}

// IdentityResolver fingerprints documents by content.
type IdentityResolver struct{}

// NewIdentityResolver creates a new IdentityResolver instance.
func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{}
}

// CaptureIdentity reads the document at path once and returns its SHA-256
// hash, size and modification time.
func (r *IdentityResolver) CaptureIdentity(path string) (*FileIdentity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a document", path)
	}

	hash, size, err := HashContent(f)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return &FileIdentity{ContentHash: hash, Size: size, ModTime: info.ModTime()}, nil
}

// VerifyIdentity checks the document at path against expected, typically
// after copying it into the archive.
func (r *IdentityResolver) VerifyIdentity(path string, expected FileIdentity) (IdentityMatch, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return IdentityNotFound, nil
		}
		return IdentityNotFound, fmt.Errorf("failed to stat document: %w", err)
	}
	// Skip hashing when the size already differs.
	if info.Size() != expected.Size {
		return IdentitySizeMismatch, nil
	}

	actual, err := r.CaptureIdentity(path)
	if err != nil {
		return IdentityNotFound, err
	}
	return expected.Compare(*actual), nil
}

// HashContent returns the hex SHA-256 of everything read from rd and the
// number of bytes read.
func HashContent(rd io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, rd)
	if err != nil {
		return "", n, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
