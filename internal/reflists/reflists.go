// Package reflists loads the office reference lists: lawyers, document types,
// status codes and known clients.
package reflists

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"hukudok/internal/translit"
)

// ListErrorType represents the type of reference list error.
type ListErrorType string

const (
	FileNotFound ListErrorType = "FILE_NOT_FOUND"
	InvalidYAML  ListErrorType = "INVALID_YAML"
)

// ListError represents an error loading a reference list file.
type ListError struct {
	Type    ListErrorType
	Path    string
	Message string
}

func (e *ListError) Error() string {
	switch e.Type {
	case FileNotFound:
		return fmt.Sprintf("reference list file not found: %s", e.Path)
	case InvalidYAML:
		return fmt.Sprintf("invalid YAML in reference list file %s: %s", e.Path, e.Message)
	default:
		return fmt.Sprintf("reference list error: %s", e.Message)
	}
}

// Lawyer is an office lawyer. Low priority lawyers are chosen only when no
// other lawyer is named in the text.
type Lawyer struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	LowPriority bool   `yaml:"lowPriority"`
}

// Entry is a coded list item.
type Entry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Lawyers is the lawyer list.
type Lawyers []Lawyer

// FindBest returns the code of the lawyer named in text. When several are
// named, a normal priority lawyer wins over a low priority one, then the
// longest name wins.
func (l Lawyers) FindBest(text string) (string, bool) {
	normalized := translit.ToASCIIUpper(text)
	if normalized == "" {
		return "", false
	}

	var found []Lawyer
	for _, lawyer := range l {
		name := translit.ToASCIIUpper(strings.TrimSpace(lawyer.Name))
		if name == "" || lawyer.Code == "" {
			continue
		}
		if strings.Contains(normalized, name) {
			found = append(found, lawyer)
		}
	}
	if len(found) == 0 {
		return "", false
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].LowPriority != found[j].LowPriority {
			return !found[i].LowPriority
		}
		return utf8.RuneCountInString(found[i].Name) > utf8.RuneCountInString(found[j].Name)
	})
	return found[0].Code, true
}

// Codes is a list of coded entries such as document types or statuses.
type Codes []Entry

// Known reports whether code is in the list. Codes compare after folding.
func (c Codes) Known(code string) bool {
	_, ok := c.lookup(code)
	return ok
}

// Label returns the display name of code, or code itself when unknown.
func (c Codes) Label(code string) string {
	if e, ok := c.lookup(code); ok && e.Name != "" {
		return e.Name
	}
	return code
}

func (c Codes) lookup(code string) (Entry, bool) {
	key := translit.ToASCIIUpper(strings.TrimSpace(code))
	if key == "" {
		return Entry{}, false
	}
	for _, e := range c {
		if translit.ToASCIIUpper(strings.TrimSpace(e.Code)) == key {
			return e, true
		}
	}
	return Entry{}, false
}

// MatchSource tells how Clients.Match chose a name.
type MatchSource string

const (
	MatchKnown     MatchSource = "KNOWN"
	MatchCorrected MatchSource = "CORRECTED"
	MatchFallback  MatchSource = "FALLBACK"
)

// Clients is the set of known client names.
type Clients struct {
	names map[string]string
}

// NewClients builds the known client set from raw list entries. An entry may
// hold several names separated the way SplitClients understands.
func NewClients(raw []string) *Clients {
	c := &Clients{names: make(map[string]string)}
	for _, entry := range raw {
		if isHeader(translit.Upper(entry)) {
			continue
		}
		for _, part := range SplitClients(entry) {
			cleaned := CleanClientName(part)
			if cleaned == "" {
				continue
			}
			key := clientKey(cleaned)
			if _, ok := c.names[key]; !ok {
				c.names[key] = cleaned
			}
		}
	}
	return c
}

// Len returns the number of known clients.
func (c *Clients) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

// Known reports whether name is a known client.
func (c *Clients) Known(name string) bool {
	if c == nil {
		return false
	}
	cleaned := CleanClientName(name)
	if cleaned == "" {
		return false
	}
	_, ok := c.names[clientKey(cleaned)]
	return ok
}

// Match picks the client of a document. A known primary is kept; otherwise
// the first known name among others replaces it; otherwise the primary is
// returned unchanged.
func (c *Clients) Match(primary string, others []string) (string, MatchSource) {
	if strings.TrimSpace(primary) != "" && c.Known(primary) {
		return primary, MatchKnown
	}
	for _, name := range others {
		if c.Known(name) {
			return name, MatchCorrected
		}
	}
	return primary, MatchFallback
}

func clientKey(name string) string {
	return strings.Join(strings.Fields(translit.ToASCIIUpper(name)), " ")
}

var (
	splitPattern = regexp.MustCompile(`(?i);| - | / | ve `)

	clientTitles = map[string]bool{"DR": true, "AV": true, "UZM": true, "DOC": true, "PROF": true}
)

// SplitClients splits a raw client entry on ";", " - ", " / " and " ve ".
func SplitClients(raw string) []string {
	var out []string
	for _, part := range splitPattern.Split(raw, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CleanClientName upper-cases name with Turkish rules, removes the DR, AV,
// UZM, DOÇ and PROF titles and stray punctuation, and collapses spaces.
// It returns "" for fragments shorter than three characters and for the
// "AD SOYAD / UNVAN" column header.
func CleanClientName(name string) string {
	upper := translit.Upper(name)
	if isHeader(upper) {
		return ""
	}

	upper = strings.NewReplacer(";", " ", ":", " ").Replace(upper)

	var tokens []string
	for _, tok := range strings.Fields(upper) {
		if tok = stripTitle(tok); tok != "" {
			tokens = append(tokens, tok)
		}
	}

	cleaned := strings.Trim(strings.Join(tokens, " "), " .")
	if utf8.RuneCountInString(cleaned) < 3 {
		return ""
	}
	return cleaned
}

// isHeader matches the column header of exported client sheets.
func isHeader(upper string) bool {
	return strings.Contains(upper, "AD SOYAD") && strings.Contains(upper, "UNVAN")
}

// stripTitle drops a title token ("DR", "AV.") or a title glued to a name
// ("AV.MEHMET").
func stripTitle(tok string) string {
	head, rest, dotted := strings.Cut(tok, ".")
	if !clientTitles[translit.ToASCIIUpper(head)] {
		return tok
	}
	if !dotted {
		return ""
	}
	return strings.TrimLeft(rest, ".")
}

// Lists holds every reference list.
type Lists struct {
	Lawyers       Lawyers  `yaml:"lawyers"`
	DocumentTypes Codes    `yaml:"documentTypes"`
	Statuses      Codes    `yaml:"statuses"`
	RawClients    []string `yaml:"clients"`

	clients *Clients
}

// Clients returns the known client set.
func (l *Lists) Clients() *Clients {
	if l.clients == nil {
		l.clients = NewClients(l.RawClients)
	}
	return l.clients
}

// Load reads a YAML reference list file.
func Load(path string) (*Lists, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ListError{Type: FileNotFound, Path: path}
		}
		return nil, &ListError{Type: FileNotFound, Path: path, Message: err.Error()}
	}

	var lists Lists
	if err := yaml.Unmarshal(data, &lists); err != nil {
		return nil, &ListError{Type: InvalidYAML, Path: path, Message: err.Error()}
	}
	lists.clients = NewClients(lists.RawClients)
	return &lists, nil
}
