package archive

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// duplicatePattern matches filenames with _duplicate or _duplicate_N suffix before extension
var duplicatePattern = regexp.MustCompile(`^(.+)_duplicate(?:_(\d+))?(\.[^.]+)?$`)

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GenerateDuplicateName returns a filename in destDir that is not taken.
//
//   - "x.pdf" -> "x_duplicate.pdf"
//   - "x_duplicate.pdf" -> "x_duplicate_2.pdf"
//   - "x_duplicate_2.pdf" -> "x_duplicate_3.pdf"
func GenerateDuplicateName(destDir, filename string) string {
	if !FileExists(filepath.Join(destDir, filename)) {
		return filename
	}

	base, ext := strings.TrimSuffix(filename, filepath.Ext(filename)), filepath.Ext(filename)
	next := 1

	if m := duplicatePattern.FindStringSubmatch(filename); m != nil {
		base, ext = m[1], m[3]
		next = 2
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			next = n + 1
		}
	}

	for n := next; ; n++ {
		candidate := base + "_duplicate" + ext
		if n > 1 {
			candidate = base + "_duplicate_" + strconv.Itoa(n) + ext
		}
		if !FileExists(filepath.Join(destDir, candidate)) {
			return candidate
		}
	}
}
