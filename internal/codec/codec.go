// Package codec assembles the fixed-width encoded filename of a legal document
// from its metadata fields.
//
// Segments appear in a fixed order (date, document type, client with count
// suffix, case number, lawyer, status, office-file number, two reserved fields
// and a content hash) joined by a single delimiter. Encoding is pure: the same
// values and approval flags always yield the same filename. The codec computes
// the length but never rejects a filename; Check reports the reasons a caller
// should refuse to submit it.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Values maps fields to their current text.
type Values map[Field]string

// Approvals maps fields to their approval flag.
type Approvals map[Field]bool

// Layout configures how segments are joined and what length is expected.
type Layout struct {
	Delimiter      string `json:"delimiter" toml:"delimiter"`
	ExpectedLength int    `json:"expectedLength" toml:"expectedLength"`
	Extension      string `json:"extension" toml:"extension"`
}

// DefaultLayout returns the canonical layout: "_" delimiters, 75 characters
// and a .pdf extension.
func DefaultLayout() Layout {
	return Layout{
		Delimiter:      "_",
		ExpectedLength: NominalLength("_"),
		Extension:      ".pdf",
	}
}

// Segment is one rendered field of a filename.
type Segment struct {
	Field Field
	Text  string
}

// Filename is an encoded filename without its extension.
type Filename struct {
	Segments  []Segment
	Delimiter string
}

// String joins the segments with the delimiter.
func (f Filename) String() string {
	parts := make([]string, len(f.Segments))
	for i, s := range f.Segments {
		parts[i] = s.Text
	}
	return strings.Join(parts, f.Delimiter)
}

// Len returns the length of String in characters.
func (f Filename) Len() int {
	return utf8.RuneCountInString(f.String())
}

// WithExtension returns the filename with ext appended.
func (f Filename) WithExtension(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return f.String() + ext
}

// Segment returns the rendered text of field.
func (f Filename) Segment(field Field) string {
	for _, s := range f.Segments {
		if s.Field == field {
			return s.Text
		}
	}
	return ""
}

// Codec encodes filenames under a Layout.
type Codec struct {
	layout    Layout
	formatter *Formatter
}

// New returns a Codec. A nil formatter selects the built-in name tables.
func New(layout Layout, formatter *Formatter) *Codec {
	if formatter == nil {
		formatter = defaultFormatter
	}
	return &Codec{layout: layout, formatter: formatter}
}

// Layout returns the codec's layout.
func (c *Codec) Layout() Layout { return c.layout }

// Formatter returns the codec's field formatter.
func (c *Codec) Formatter() *Formatter { return c.formatter }

var defaultCodec = New(DefaultLayout(), nil)

// Encode renders values under the default layout.
func Encode(values Values, approved Approvals, clientCount int) Filename {
	return defaultCodec.Encode(values, approved, clientCount)
}

// Encode renders every segment. Approved fields are rendered as stored,
// fitted to their width; unapproved fields are previewed through their
// formatter. The client segment carries "_<n>" where n is clientCount, at
// least 1.
func (c *Codec) Encode(values Values, approved Approvals, clientCount int) Filename {
	if clientCount < 1 {
		clientCount = 1
	}

	segments := make([]Segment, 0, len(rules))
	for _, rule := range rules {
		text := c.formatter.segment(rule, values[rule.Field], approved[rule.Field])
		if rule.Field == FieldClient {
			text += "_" + strconv.Itoa(clientCount)
		}
		segments = append(segments, Segment{Field: rule.Field, Text: text})
	}
	return Filename{Segments: segments, Delimiter: c.layout.Delimiter}
}

// SubmitErrorType represents the reason a filename must not be submitted.
type SubmitErrorType string

const (
	NotReady            SubmitErrorType = "NOT_READY"
	LengthMismatch      SubmitErrorType = "LENGTH_MISMATCH"
	MissingDocumentType SubmitErrorType = "MISSING_DOCUMENT_TYPE"
)

// SubmitError is a reason to refuse submission.
type SubmitError struct {
	Type     SubmitErrorType
	Filename string
	Expected int
	Actual   int
	Pending  []Field
}

func (e *SubmitError) Error() string {
	switch e.Type {
	case NotReady:
		names := make([]string, len(e.Pending))
		for i, f := range e.Pending {
			names[i] = string(f)
		}
		if len(names) == 0 {
			return "not every field is approved"
		}
		return fmt.Sprintf("fields awaiting approval: %s", strings.Join(names, ", "))
	case LengthMismatch:
		return fmt.Sprintf("filename %q has %d characters, expected %d", e.Filename, e.Actual, e.Expected)
	case MissingDocumentType:
		return fmt.Sprintf("filename %q has no document type", e.Filename)
	default:
		return fmt.Sprintf("submit error: %s", e.Type)
	}
}

// Check returns the reasons f must not be submitted, joined with errors.Join,
// or nil. pending lists the unapproved fields; ready is false when any is.
func (l Layout) Check(f Filename, ready bool, pending ...Field) error {
	var errs []error
	name := f.String()

	if !ready {
		errs = append(errs, &SubmitError{Type: NotReady, Filename: name, Pending: pending})
	}

	if n := f.Len(); l.ExpectedLength > 0 && n != l.ExpectedLength {
		errs = append(errs, &SubmitError{
			Type:     LengthMismatch,
			Filename: name,
			Expected: l.ExpectedLength,
			Actual:   n,
		})
	}

	if rule, _ := RuleFor(FieldDocumentType); f.Segment(FieldDocumentType) == rule.Sentinel {
		errs = append(errs, &SubmitError{Type: MissingDocumentType, Filename: name})
	}

	return errors.Join(errs...)
}

// Check runs Layout.Check with the codec's layout.
func (c *Codec) Check(f Filename, ready bool, pending ...Field) error {
	return c.layout.Check(f, ready, pending...)
}
