package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestScanPairsSidecarsWithDocuments(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.json"))
	touch(t, filepath.Join(dir, "b.pdf"))
	touch(t, filepath.Join(dir, "a.json"))
	touch(t, filepath.Join(dir, "a.pdf"))
	touch(t, filepath.Join(dir, "orphan.json"))    // document still uploading
	touch(t, filepath.Join(dir, "unanalysed.pdf")) // no metadata yet
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, "sub", "c.json"))
	touch(t, filepath.Join(dir, "sub", "c.pdf"))

	pending, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("got %d pending, want 2: %+v", len(pending), pending)
	}
	if pending[0].Name != "a" || pending[1].Name != "b" {
		t.Errorf("pending not sorted: %+v", pending)
	}
	absDir, _ := filepath.Abs(dir)
	if pending[0].DocumentPath != filepath.Join(absDir, "a.pdf") {
		t.Errorf("DocumentPath = %s", pending[0].DocumentPath)
	}
}

func TestScanWithDepth(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.json"))
	touch(t, filepath.Join(dir, "a.pdf"))
	touch(t, filepath.Join(dir, "sub", "c.json"))
	touch(t, filepath.Join(dir, "sub", "c.pdf"))
	touch(t, filepath.Join(dir, "sub", "deeper", "d.json"))
	touch(t, filepath.Join(dir, "sub", "deeper", "d.pdf"))

	tests := []struct {
		depth int
		want  int
	}{
		{0, 1},
		{1, 2},
		{-1, 3},
	}
	for _, tt := range tests {
		opts := DefaultScanOptions()
		opts.MaxDepth = tt.depth
		pending, err := ScanWithOptions(dir, opts)
		if err != nil {
			t.Fatalf("depth %d: %v", tt.depth, err)
		}
		if len(pending) != tt.want {
			t.Errorf("depth %d: got %d, want %d", tt.depth, len(pending), tt.want)
		}
	}
}

func TestScanDocumentExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.json"))
	touch(t, filepath.Join(dir, "a.tiff"))

	opts := DefaultScanOptions()
	opts.DocumentExtension = ".tiff"
	pending, err := ScanWithOptions(dir, opts)
	if err != nil || len(pending) != 1 {
		t.Errorf("got %v, %v", pending, err)
	}
}

func TestScanErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Scan(filepath.Join(dir, "missing"))
	var scanErr *ScanError
	if !errors.As(err, &scanErr) || scanErr.Type != DirectoryNotFound {
		t.Errorf("missing dir: got %v", err)
	}

	file := filepath.Join(dir, "file.json")
	touch(t, file)
	_, err = Scan(file)
	if !errors.As(err, &scanErr) || scanErr.Type != DirectoryNotFound {
		t.Errorf("file as dir: got %v", err)
	}
}

func TestSymlinkPolicies(t *testing.T) {
	dir := t.TempDir()
	target := t.TempDir()
	touch(t, filepath.Join(target, "a.json"))
	touch(t, filepath.Join(target, "a.pdf"))
	link := filepath.Join(dir, "linked")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	opts := DefaultScanOptions()
	opts.MaxDepth = 1

	opts.SymlinkPolicy = SymlinkPolicySkip
	if pending, err := ScanWithOptions(dir, opts); err != nil || len(pending) != 0 {
		t.Errorf("skip: got %v, %v", pending, err)
	}

	opts.SymlinkPolicy = SymlinkPolicyFollow
	if pending, err := ScanWithOptions(dir, opts); err != nil || len(pending) != 1 {
		t.Errorf("follow: got %v, %v", pending, err)
	}

	opts.SymlinkPolicy = SymlinkPolicyError
	var scanErr *ScanError
	if _, err := ScanWithOptions(dir, opts); !errors.As(err, &scanErr) || scanErr.Type != SymlinkError {
		t.Errorf("error: got %v", err)
	}
}

func TestPendingFor(t *testing.T) {
	dir := t.TempDir()
	sidecar := filepath.Join(dir, "a.json")
	doc := filepath.Join(dir, "a.pdf")

	touch(t, sidecar)
	if _, ok := PendingFor(sidecar, ".pdf"); ok {
		t.Error("pending reported before the document exists")
	}

	touch(t, doc)
	for _, path := range []string{sidecar, doc} {
		p, ok := PendingFor(path, ".pdf")
		if !ok {
			t.Errorf("PendingFor(%s) not ok", path)
			continue
		}
		if p.SidecarPath != sidecar || p.DocumentPath != doc || p.Name != "a" {
			t.Errorf("PendingFor(%s) = %+v", path, p)
		}
	}

	if _, ok := PendingFor(filepath.Join(dir, "a.txt"), ".pdf"); ok {
		t.Error("unrelated extension accepted")
	}
}

func TestScanReturnsOnlyCompletePairs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("every pending entry has both files", prop.ForAll(
		func(layout []int) bool {
			dir, err := os.MkdirTemp("", "hukudok-scan-*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(dir)

			complete := 0
			for i, kind := range layout {
				base := filepath.Join(dir, string(rune('a'+i)))
				if kind&1 != 0 {
					os.WriteFile(base+".json", nil, 0644)
				}
				if kind&2 != 0 {
					os.WriteFile(base+".pdf", nil, 0644)
				}
				if kind == 3 {
					complete++
				}
			}

			pending, err := Scan(dir)
			if err != nil || len(pending) != complete {
				return false
			}
			for _, p := range pending {
				if !isFile(p.SidecarPath) || !isFile(p.DocumentPath) {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(10, gen.IntRange(0, 3)),
	))

	properties.TestingRun(t)
}
