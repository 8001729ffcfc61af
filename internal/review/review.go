// Package review holds the approval state of one document under review.
//
// A Session is an immutable value. Every transition returns a new Session and
// leaves the receiver untouched, so callers can keep earlier states for undo or
// compare them freely. Approving a field runs its formatter and stores the
// formatted text; un-approving keeps that text for further editing.
package review

import (
	"errors"
	"fmt"
	"strings"

	"hukudok/internal/codec"
	"hukudok/internal/metadata"
	"hukudok/internal/translit"
)

var (
	// ErrFieldApproved is returned when editing a field that is approved.
	ErrFieldApproved = errors.New("field is approved")

	// ErrUnknownField is returned for fields outside the approval set.
	ErrUnknownField = errors.New("unknown field")
)

// Session is the review state of one document.
type Session struct {
	codec    *codec.Codec
	doc      *metadata.Document
	approved map[codec.Field]bool
	clients  []string
}

// New starts a review of doc. The client selection list is seeded from the
// detected clients, or from the primary client when none were detected. The
// office-file number and reserved fields start out approved. A nil codec
// selects the default layout and name tables.
func New(doc *metadata.Document, c *codec.Codec) Session {
	if c == nil {
		c = codec.New(codec.DefaultLayout(), nil)
	}
	if doc == nil {
		doc = &metadata.Document{}
	}

	s := Session{
		codec:    c,
		doc:      doc.Clone(),
		approved: make(map[codec.Field]bool),
	}
	for _, f := range codec.ApprovalFields() {
		s.approved[f] = codec.PreApproved(f)
	}

	seed := doc.Clients
	if len(seed) == 0 && strings.TrimSpace(doc.Client) != "" {
		seed = []string{doc.Client}
	}
	for _, name := range seed {
		s.clients = addDistinct(s.clients, name)
	}
	return s
}

// Reset starts a review of a new document with the same codec.
func (s Session) Reset(doc *metadata.Document) Session {
	return New(doc, s.codec)
}

func (s Session) clone() Session {
	c := Session{
		codec:    s.codec,
		doc:      s.doc.Clone(),
		approved: make(map[codec.Field]bool, len(s.approved)),
		clients:  append([]string(nil), s.clients...),
	}
	for f, ok := range s.approved {
		c.approved[f] = ok
	}
	return c
}

func isApprovalField(f codec.Field) bool {
	for _, af := range codec.ApprovalFields() {
		if af == f {
			return true
		}
	}
	return false
}

// Value returns the current text of f.
func (s Session) Value(f codec.Field) string {
	return s.doc.Get(f)
}

// Approved reports whether f is approved.
func (s Session) Approved(f codec.Field) bool {
	return s.approved[f]
}

// ApplyApproval returns the value field would hold once approved, formatted
// with the name tables of the session's codec.
func (s Session) ApplyApproval(field codec.Field, value string) string {
	return s.codec.Formatter().ApplyApproval(field, value)
}

// Approve formats the current value of f and marks it approved. Approving an
// already approved field formats its value again.
func (s Session) Approve(f codec.Field) (Session, error) {
	if !isApprovalField(f) {
		return s, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	next := s.clone()
	next.doc.Set(f, s.ApplyApproval(f, s.doc.Get(f)))
	next.approved[f] = true
	return next, nil
}

// ApproveAll approves every field that is still pending.
func (s Session) ApproveAll() Session {
	next := s
	for _, f := range s.Pending() {
		next, _ = next.Approve(f)
	}
	return next
}

// Unapprove clears the approval of f. The formatted value is kept.
func (s Session) Unapprove(f codec.Field) (Session, error) {
	if !isApprovalField(f) {
		return s, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	next := s.clone()
	next.approved[f] = false
	return next, nil
}

// Edit replaces the value of an unapproved field.
func (s Session) Edit(f codec.Field, value string) (Session, error) {
	if !isApprovalField(f) {
		return s, fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	if s.approved[f] {
		return s, fmt.Errorf("%w: %s", ErrFieldApproved, f)
	}
	next := s.clone()
	next.doc.Set(f, value)
	return next, nil
}

// Clients returns the client selection list.
func (s Session) Clients() []string {
	return append([]string(nil), s.clients...)
}

// AddClient appends name to the client selection list unless it is blank or
// already present. Names are compared after ASCII folding.
func (s Session) AddClient(name string) Session {
	next := s.clone()
	next.clients = addDistinct(next.clients, name)
	return next
}

// RemoveClient removes name from the client selection list.
func (s Session) RemoveClient(name string) Session {
	key := clientKey(name)
	next := s.clone()
	next.clients = next.clients[:0]
	for _, c := range s.clients {
		if clientKey(c) != key {
			next.clients = append(next.clients, c)
		}
	}
	return next
}

// SelectClient makes name the primary client. The client field takes the
// raw name and returns to unapproved, and name joins the selection list.
func (s Session) SelectClient(name string) Session {
	next := s.AddClient(name)
	next.doc.Set(codec.FieldClient, strings.TrimSpace(name))
	next.approved[codec.FieldClient] = false
	return next
}

// Ready reports whether every field is approved.
func (s Session) Ready() bool {
	for _, f := range codec.ApprovalFields() {
		if !s.approved[f] {
			return false
		}
	}
	return true
}

// Pending returns the unapproved fields in filename order.
func (s Session) Pending() []codec.Field {
	var pending []codec.Field
	for _, f := range codec.ApprovalFields() {
		if !s.approved[f] {
			pending = append(pending, f)
		}
	}
	return pending
}

// Filename renders the encoded filename of the current state.
func (s Session) Filename() codec.Filename {
	approvals := make(codec.Approvals, len(s.approved))
	for f, ok := range s.approved {
		approvals[f] = ok
	}
	return s.codec.Encode(s.doc.Values(), approvals, len(s.clients))
}

// Check returns the reasons the current state must not be submitted, or nil.
func (s Session) Check() error {
	return s.codec.Check(s.Filename(), s.Ready(), s.Pending()...)
}

// Document returns the corrected metadata: field values as reviewed and the
// client selection list.
func (s Session) Document() *metadata.Document {
	doc := s.doc.Clone()
	doc.Clients = append([]string(nil), s.clients...)
	return doc
}

func clientKey(name string) string {
	return strings.Join(strings.Fields(translit.ToASCIIUpper(name)), " ")
}

func addDistinct(list []string, name string) []string {
	name = strings.TrimSpace(name)
	key := clientKey(name)
	if key == "" {
		return list
	}
	for _, c := range list {
		if clientKey(c) == key {
			return list
		}
	}
	return append(list, name)
}
