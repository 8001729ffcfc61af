// Package caseno reads court case numbers ("esas no") and renders them in the
// stored YYYY/N form or the filename segment form YY-NNNNN.
package caseno

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hukudok/internal/translit"
)

// Sentinel is the segment value for an empty case number.
const Sentinel = "--------"

// Number is a parsed case number.
type Number struct {
	Year     int // four-digit year
	Sequence int
}

// Canonical renders the stored form, YYYY/N. The sequence is not padded.
func (n Number) Canonical() string {
	return fmt.Sprintf("%04d/%d", n.Year, n.Sequence)
}

// Segment renders the filename form, YY-NNNNN. Sequences above five digits are
// kept whole, so the segment widens rather than losing digits.
func (n Number) Segment() string {
	return fmt.Sprintf("%02d-%05d", n.Year%100, n.Sequence)
}

var (
	fullYearPattern  = regexp.MustCompile(`(?:^|[^0-9])([0-9]{4})\s*[/\-\s]\s*([0-9]+)`)
	shortYearPattern = regexp.MustCompile(`(?:^|[^0-9])([0-9]{2})\s*[/\-]\s*([0-9]+)`)

	whitespacePattern = regexp.MustCompile(`\s+`)

	// Labelled forms, matched against upper-cased text with whitespace removed.
	labelledPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:ESAS|DOSYA)(?:NO|NUMARASI|SAYISI)?:?([0-9]{4}/[0-9]+)`),
		regexp.MustCompile(`([0-9]{4}/[0-9]+)(?:SAYILI)?ESAS`),
		regexp.MustCompile(`(?:^|[^A-Z])E[.:]?([0-9]{4}/[0-9]+)`),
	}
	decisionPattern = regexp.MustCompile(`(?:KARAR(?:NO|NUMARASI)?:?|K[.:])([0-9]{4}/[0-9]+)|([0-9]{4}/[0-9]+)KARAR`)
)

const (
	minLabelledYear = 1990
	maxLabelledYear = 2035
)

// Find extracts the case number from text. Court headers that label the number
// ("Esas No: 2023/145", "E. 2024/67", "2023/145 Esas") are preferred, and numbers
// labelled as decision ("karar") numbers are skipped for the short "E." form.
// Otherwise the first YYYY/N, YYYY-N or "YYYY N" sequence is used, then a
// two-digit year form YY/N which is read as 20YY.
func Find(text string) (Number, bool) {
	if strings.TrimSpace(text) == "" {
		return Number{}, false
	}

	if n, ok := findLabelled(text); ok {
		return n, true
	}

	if m := fullYearPattern.FindStringSubmatch(text); m != nil {
		return parse(m[1], m[2])
	}

	if m := shortYearPattern.FindStringSubmatch(text); m != nil {
		return parse("20"+m[1], m[2])
	}

	return Number{}, false
}

func findLabelled(text string) (Number, bool) {
	compact := whitespacePattern.ReplaceAllString(translit.ToASCIIUpper(text), "")

	decisions := make(map[string]bool)
	for _, m := range decisionPattern.FindAllStringSubmatch(compact, -1) {
		decisions[m[1]+m[2]] = true
	}

	for i, pattern := range labelledPatterns {
		for _, m := range pattern.FindAllStringSubmatch(compact, -1) {
			if i == len(labelledPatterns)-1 && decisions[m[1]] {
				continue
			}
			parts := strings.SplitN(m[1], "/", 2)
			n, ok := parse(parts[0], parts[1])
			if !ok || n.Year < minLabelledYear || n.Year > maxLabelledYear {
				continue
			}
			return n, true
		}
	}
	return Number{}, false
}

func parse(year, seq string) (Number, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return Number{}, false
	}
	s, err := strconv.Atoi(seq)
	if err != nil {
		return Number{}, false
	}
	return Number{Year: y, Sequence: s}, true
}

// fallback is the rendering used when no case number can be read: the folded
// input with slashes turned into dashes and any other rune outside
// [A-Z0-9_-] into underscores, or Sentinel when the input is blank.
func fallback(text string) string {
	s := strings.TrimSpace(translit.KeepASCII(translit.ToASCIIUpper(text)))
	if s == "" {
		return Sentinel
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/':
			return '-'
		case translit.IsCodeRune(r) || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// Canonical returns the stored YYYY/N form of text, used when the case number
// field is approved.
func Canonical(text string) string {
	if n, ok := Find(text); ok {
		return n.Canonical()
	}
	return fallback(text)
}

// Segment returns the YY-NNNNN filename form of text. Segment is idempotent:
// applying it to its own output returns the same string.
func Segment(text string) string {
	if n, ok := Find(text); ok {
		return n.Segment()
	}
	return fallback(text)
}
