package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestCaptureIdentity(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.pdf", "hello")

	identity, err := NewIdentityResolver().CaptureIdentity(path)
	if err != nil {
		t.Fatalf("CaptureIdentity failed: %v", err)
	}

	// sha256("hello")
	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if identity.ContentHash != want {
		t.Errorf("ContentHash = %s, want %s", identity.ContentHash, want)
	}
	if identity.Size != 5 {
		t.Errorf("Size = %d, want 5", identity.Size)
	}
}

func TestCaptureIdentityErrors(t *testing.T) {
	dir := t.TempDir()
	resolver := NewIdentityResolver()

	if _, err := resolver.CaptureIdentity(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := resolver.CaptureIdentity(dir); err == nil {
		t.Error("expected error for directory")
	}
}

func TestVerifyIdentity(t *testing.T) {
	dir := t.TempDir()
	resolver := NewIdentityResolver()

	path := writeFile(t, dir, "a.pdf", "original")
	identity, err := resolver.CaptureIdentity(path)
	if err != nil {
		t.Fatalf("CaptureIdentity failed: %v", err)
	}

	tests := []struct {
		name    string
		content *string
		want    IdentityMatch
	}{
		{"unchanged", nil, IdentityMatches},
		{"same size different bytes", ptr("ORIGINAL"), IdentityHashMismatch},
		{"different size", ptr("longer content"), IdentitySizeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.content != nil {
				writeFile(t, dir, "a.pdf", *tt.content)
			}
			got, err := resolver.VerifyIdentity(path, *identity)
			if err != nil {
				t.Fatalf("VerifyIdentity failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("VerifyIdentity() = %v, want %v", got, tt.want)
			}
		})
	}

	got, err := resolver.VerifyIdentity(filepath.Join(dir, "gone.pdf"), *identity)
	if err != nil || got != IdentityNotFound {
		t.Errorf("missing file: got %v, %v", got, err)
	}
}

func ptr(s string) *string { return &s }

func TestShortHashAndCompare(t *testing.T) {
	hash, size, err := HashContent(strings.NewReader("hello"))
	if err != nil || size != 5 {
		t.Fatalf("HashContent = %s, %d, %v", hash, size, err)
	}
	id := FileIdentity{ContentHash: hash, Size: size}

	if got := id.ShortHash(6); got != "2CF24D" {
		t.Errorf("ShortHash(6) = %s, want 2CF24D", got)
	}
	if got := (FileIdentity{ContentHash: "ab"}).ShortHash(6); got != "AB" {
		t.Errorf("short content hash = %s", got)
	}

	tests := []struct {
		other FileIdentity
		want  IdentityMatch
	}{
		{id, IdentityMatches},
		{FileIdentity{ContentHash: hash, Size: 6}, IdentitySizeMismatch},
		{FileIdentity{ContentHash: "00", Size: 5}, IdentityHashMismatch},
	}
	for _, tt := range tests {
		if got := id.Compare(tt.other); got != tt.want {
			t.Errorf("Compare(%+v) = %s, want %s", tt.other, got, tt.want)
		}
	}
}
