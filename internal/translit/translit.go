// Package translit folds Turkish text to upper-case ASCII and fits it into the
// fixed-width fields used by filename codes.
package translit

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// UpperFunc upper-cases text under a specific locale.
type UpperFunc func(string) string

// TurkishUpper upper-cases using Turkish rules: "i" becomes "İ" and "ı" becomes "I".
// A fresh Caser is built per call because Casers carry state.
func TurkishUpper(s string) string {
	return cases.Upper(language.Turkish).String(s)
}

// asciiTable maps the Turkish letters with diacritics, and the circumflex vowels
// found in older legal text, onto plain Latin capitals. A combining dot above left
// over from a decomposed "İ" is dropped.
var asciiTable = strings.NewReplacer(
	"Ç", "C", "Ğ", "G", "İ", "I", "Ö", "O", "Ş", "S", "Ü", "U",
	"ç", "C", "ğ", "G", "ı", "I", "ö", "O", "ş", "S", "ü", "U",
	"Â", "A", "Î", "I", "Û", "U",
	"â", "A", "î", "I", "û", "U",
	"\u0307", "",
)

// Folder performs the locale-aware upper-case step followed by ASCII mapping.
// The upper-case step is injected so tests and other locales can supply their own.
type Folder struct {
	upper UpperFunc
}

// NewFolder returns a Folder using upper for case folding.
// A nil upper selects TurkishUpper.
func NewFolder(upper UpperFunc) *Folder {
	if upper == nil {
		upper = TurkishUpper
	}
	return &Folder{upper: upper}
}

// Fold normalizes text to NFC, upper-cases it and maps Turkish letters to ASCII.
// Fold is idempotent.
func (f *Folder) Fold(text string) string {
	if text == "" {
		return ""
	}
	s := norm.NFC.String(text)
	s = f.upper(s)
	s = asciiTable.Replace(s)
	return norm.NFC.String(s)
}

var defaultFolder = NewFolder(TurkishUpper)

// ToASCIIUpper folds text with the default Turkish folder.
// "İlke" becomes "ILKE" and "ışık" becomes "ISIK". Empty input returns "".
func ToASCIIUpper(text string) string {
	return defaultFolder.Fold(text)
}

// Upper upper-cases text with Turkish rules but keeps the Turkish letters.
func Upper(text string) string {
	if text == "" {
		return ""
	}
	return TurkishUpper(norm.NFC.String(text))
}

// KeepASCII drops every rune outside printable ASCII, so that byte length and
// character length of the result agree.
func KeepASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// KeepRunes keeps only the runes accepted by keep.
func KeepRunes(s string, keep func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsCodeRune reports whether r is an upper-case ASCII letter or digit.
func IsCodeRune(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Fit truncates s to width runes or right-pads it with pad.
func Fit(s string, width int, pad rune) string {
	if width <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) >= width {
		return string(rs[:width])
	}
	return s + strings.Repeat(string(pad), width-len(rs))
}
