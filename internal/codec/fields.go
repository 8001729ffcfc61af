package codec

import (
	"strings"

	"hukudok/internal/caseno"
	"hukudok/internal/dateparser"
	"hukudok/internal/entitycode"
	"hukudok/internal/translit"
)

// Field identifies one segment of an encoded filename. The values double as
// the metadata keys of the analysis payload.
type Field string

const (
	FieldDate         Field = "tarih"
	FieldDocumentType Field = "belge_turu_kodu"
	FieldClient       Field = "muvekkil_adi"
	FieldCaseNumber   Field = "esas_no"
	FieldLawyer       Field = "avukat_kodu"
	FieldStatus       Field = "durum"
	FieldOfficeFile   Field = "ofis_dosya_no"
	FieldReserved1    Field = "ek_alan_1"
	FieldReserved2    Field = "ek_alan_2"
	FieldHash         Field = "hash"
)

// Rule is the fixed-width rendering of one field.
type Rule struct {
	Field    Field
	Width    int // 0 means variable width
	Pad      rune
	Sentinel string
}

// rules lists the segments in filename order.
var rules = []Rule{
	{Field: FieldDate, Width: 6, Pad: 'X', Sentinel: dateparser.Sentinel},
	{Field: FieldDocumentType, Width: 14, Pad: '_', Sentinel: strings.Repeat("_", 14)},
	{Field: FieldClient, Width: entitycode.Width, Pad: '_', Sentinel: strings.Repeat("_", entitycode.Width)},
	{Field: FieldCaseNumber, Width: 0, Pad: '-', Sentinel: caseno.Sentinel},
	{Field: FieldLawyer, Width: 3, Pad: 'X', Sentinel: "XXX"},
	{Field: FieldStatus, Width: 1, Pad: 'X', Sentinel: "X"},
	{Field: FieldOfficeFile, Width: 9, Pad: 'X', Sentinel: "XXXXXXXXX"},
	{Field: FieldReserved1, Width: 1, Pad: '-', Sentinel: "-"},
	{Field: FieldReserved2, Width: 2, Pad: '-', Sentinel: "--"},
	{Field: FieldHash, Width: 6, Pad: 'X', Sentinel: "XXXXXX"},
}

// Rules returns the segment rules in filename order.
func Rules() []Rule {
	return append([]Rule(nil), rules...)
}

// RuleFor returns the rule for f.
func RuleFor(f Field) (Rule, bool) {
	for _, r := range rules {
		if r.Field == f {
			return r, true
		}
	}
	return Rule{}, false
}

// Fields returns every segment field in filename order.
func Fields() []Field {
	out := make([]Field, len(rules))
	for i, r := range rules {
		out[i] = r.Field
	}
	return out
}

// ApprovalFields returns the fields a reviewer must approve. The content hash
// is assigned by the system and is not part of the approval state.
func ApprovalFields() []Field {
	out := make([]Field, 0, len(rules)-1)
	for _, r := range rules {
		if r.Field != FieldHash {
			out = append(out, r.Field)
		}
	}
	return out
}

// PreApproved reports whether f starts out approved: the office-file number
// and the two reserved fields are assigned by the office, not read from the
// document.
func PreApproved(f Field) bool {
	switch f {
	case FieldOfficeFile, FieldReserved1, FieldReserved2:
		return true
	}
	return false
}

// NominalLength is the filename length when every segment has its nominal
// width: the case number as YY-NNNNN and a one-digit client suffix.
func NominalLength(delimiter string) int {
	n := 0
	for _, r := range rules {
		switch r.Field {
		case FieldCaseNumber:
			n += len(caseno.Sentinel)
		case FieldClient:
			n += r.Width + len("_1")
		default:
			n += r.Width
		}
	}
	return n + (len(rules)-1)*len(delimiter)
}

// Formatter turns a raw field value into its approved form.
type Formatter struct {
	names *entitycode.Encoder
}

// NewFormatter returns a Formatter that encodes client names with names.
// A nil encoder selects the built-in tables.
func NewFormatter(names *entitycode.Encoder) *Formatter {
	if names == nil {
		names = entitycode.NewEncoder(entitycode.DefaultTables())
	}
	return &Formatter{names: names}
}

var defaultFormatter = NewFormatter(nil)

// ApplyApproval returns the value a field holds once approved, using the
// built-in name tables.
func ApplyApproval(f Field, value string) string {
	return defaultFormatter.ApplyApproval(f, value)
}

// ApplyApproval returns the value a field holds once approved. It never fails:
// unusable input becomes the field's sentinel. The case number keeps its
// stored YYYY/N form here; the YY-NNNNN form is produced only when the
// filename is assembled.
func (fm *Formatter) ApplyApproval(f Field, value string) string {
	rule, ok := RuleFor(f)
	if !ok {
		return value
	}

	switch f {
	case FieldDate:
		return dateparser.ParseDate(value)
	case FieldClient:
		if strings.TrimSpace(value) == "" {
			return rule.Sentinel
		}
		return fm.names.Code(value)
	case FieldCaseNumber:
		return caseno.Canonical(value)
	case FieldDocumentType:
		return fit(rule, translit.KeepRunes(translit.ToASCIIUpper(value), isTypeRune))
	case FieldStatus:
		s := plain(value)
		if s == "" {
			return rule.Sentinel
		}
		return s[:1]
	default:
		return fit(rule, plain(value))
	}
}

// segment renders an approved value, or previews an unapproved one, at the
// field's width.
func (fm *Formatter) segment(rule Rule, value string, approved bool) string {
	if rule.Field == FieldCaseNumber {
		return caseno.Segment(value)
	}
	if !approved {
		value = fm.ApplyApproval(rule.Field, value)
	}
	return fit(rule, plain(value))
}

// plain folds value to the segment alphabet [A-Z0-9_-], dropping anything
// else, path separators included.
func plain(value string) string {
	return translit.KeepRunes(translit.ToASCIIUpper(value), isTypeRune)
}

func fit(rule Rule, s string) string {
	if s == "" {
		return rule.Sentinel
	}
	return translit.Fit(s, rule.Width, rule.Pad)
}

func isTypeRune(r rune) bool {
	return translit.IsCodeRune(r) || r == '_' || r == '-'
}
