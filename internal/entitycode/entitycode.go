// Package entitycode compresses person and company names into fixed-width codes.
//
// A name is first folded to upper-case ASCII. Names containing a corporate or
// insurer indicator are encoded as companies: known insurers map to a canonical
// alias, other companies become a hyphenated slug. Every other name is encoded as
// a person: titles are removed and the code is the first initial joined to the
// surname with an underscore. All codes are exactly Width characters.
package entitycode

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"hukudok/internal/translit"
)

// Width is the length of every code produced by an Encoder.
const Width = 14

// Sentinel is returned for names with no usable tokens.
const Sentinel = "XXXXXXXXXXXXXX"

const (
	companyPad = '-'
	personPad  = '_'
)

// Kind is the classification of a name.
type Kind string

const (
	KindPerson  Kind = "PERSON"
	KindCompany Kind = "COMPANY"
)

// Alias maps a name fragment of a known insurer to its canonical code.
type Alias struct {
	Fragment string `json:"fragment" toml:"fragment"`
	Code     string `json:"code" toml:"code"`
}

// Tables holds the token lists an Encoder matches against.
type Tables struct {
	CompanyTokens []string
	Titles        []string
	Aliases       []Alias
}

// DefaultTables returns the built-in indicator, title and insurer tables.
func DefaultTables() Tables {
	return Tables{
		CompanyTokens: []string{
			"LTD", "A.S.", "STI.", "SIRKETI", "ANONIM", "LIMITED", "HOLDING",
			"SIGORTA", "BANKASI", "KOOPERATIF", "BELEDIYESI", "MUDURLUGU", "BAKANLIGI",
			"AXA", "ALLIANZ", "SOMPO", "MAPFRE", "GENERALI", "ZURICH", "NEOVA",
			"UNICO", "EUREKO", "MAGDEBURGER",
		},
		Titles: []string{
			"PROF", "DOC", "DR", "DOKTOR", "AV", "AVUKAT", "UZM", "MIMAR", "MIM",
			"MUHENDIS", "MUH", "YRD", "ARS", "GOR", "OGR", "OP", "ECZ", "DT",
		},
		Aliases: []Alias{
			{Fragment: "ANADOLU SIGORTA", Code: "ANADOLU-SIG"},
			{Fragment: "AXA", Code: "AXA-SIGORTA"},
			{Fragment: "ALLIANZ", Code: "ALLIANZ-SIG"},
			{Fragment: "SOMPO", Code: "SOMPO-SIGORTA"},
			{Fragment: "MAPFRE", Code: "MAPFRE-SIG"},
			{Fragment: "GENERALI", Code: "GENERALI-SIG"},
			{Fragment: "ZURICH", Code: "ZURICH-SIG"},
			{Fragment: "HDI SIGORTA", Code: "HDI-SIGORTA"},
			{Fragment: "AK SIGORTA", Code: "AKSIGORTA"},
			{Fragment: "AKSIGORTA", Code: "AKSIGORTA"},
			{Fragment: "TURKIYE SIGORTA", Code: "TURKIYE-SIG"},
			{Fragment: "GUNES SIGORTA", Code: "GUNES-SIGORTA"},
			{Fragment: "RAY SIGORTA", Code: "RAY-SIGORTA"},
			{Fragment: "NEOVA", Code: "NEOVA-SIGORTA"},
			{Fragment: "QUICK SIGORTA", Code: "QUICK-SIGORTA"},
			{Fragment: "DOGA SIGORTA", Code: "DOGA-SIGORTA"},
			{Fragment: "UNICO", Code: "UNICO-SIGORTA"},
			{Fragment: "EUREKO", Code: "EUREKO-SIG"},
			{Fragment: "BEREKET SIGORTA", Code: "BEREKET-SIG"},
			{Fragment: "SEKER SIGORTA", Code: "SEKER-SIGORTA"},
			{Fragment: "ERGO SIGORTA", Code: "ERGO-SIGORTA"},
			{Fragment: "MAGDEBURGER", Code: "MAGDEBURGER"},
		},
	}
}

// Extend returns a copy of t with extra entries. Extra aliases are consulted
// before the existing ones so that local overrides win.
func (t Tables) Extend(extra Tables) Tables {
	out := Tables{
		CompanyTokens: append(append([]string{}, t.CompanyTokens...), extra.CompanyTokens...),
		Titles:        append(append([]string{}, t.Titles...), extra.Titles...),
		Aliases:       append(append([]Alias{}, extra.Aliases...), t.Aliases...),
	}
	return out
}

// Encoder turns names into codes. It is safe for concurrent use.
type Encoder struct {
	companyTokens []string
	aliases       []Alias
	titles        *regexp.Regexp
}

// NewEncoder builds an Encoder from t. Table entries are folded the same way
// names are, so they may be written with Turkish letters or in lower case.
func NewEncoder(t Tables) *Encoder {
	e := &Encoder{}
	for _, tok := range t.CompanyTokens {
		if f := translit.ToASCIIUpper(strings.TrimSpace(tok)); f != "" {
			e.companyTokens = append(e.companyTokens, f)
		}
	}
	for _, a := range t.Aliases {
		frag := translit.ToASCIIUpper(strings.TrimSpace(a.Fragment))
		code := translit.KeepRunes(translit.ToASCIIUpper(a.Code), isAliasRune)
		if frag == "" || code == "" {
			continue
		}
		e.aliases = append(e.aliases, Alias{Fragment: frag, Code: code})
	}
	e.titles = titlePattern(t.Titles)
	return e
}

// titlePattern matches any title as a whole word, with an optional trailing dot.
func titlePattern(titles []string) *regexp.Regexp {
	var quoted []string
	for _, title := range titles {
		if f := translit.ToASCIIUpper(strings.TrimSpace(title)); f != "" {
			quoted = append(quoted, regexp.QuoteMeta(f))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	sort.Slice(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b\.?`)
}

var defaultEncoder = NewEncoder(DefaultTables())

// NameToCode encodes fullName with the built-in tables.
func NameToCode(fullName string) string {
	return defaultEncoder.Code(fullName)
}

// Classify reports whether the built-in tables treat fullName as a company.
func Classify(fullName string) Kind {
	return defaultEncoder.Classify(fullName)
}

// Classify reports whether fullName is encoded as a person or a company.
func (e *Encoder) Classify(fullName string) Kind {
	if e.isCompany(translit.ToASCIIUpper(fullName)) {
		return KindCompany
	}
	return KindPerson
}

// Code returns the Width-character code for fullName.
func (e *Encoder) Code(fullName string) string {
	name := translit.ToASCIIUpper(fullName)
	if e.isCompany(name) {
		return e.companyCode(name)
	}
	return e.personCode(name)
}

// isCompany matches indicator tokens as plain substrings. A person whose name
// happens to contain a token is classified as a company.
func (e *Encoder) isCompany(name string) bool {
	for _, tok := range e.companyTokens {
		if strings.Contains(name, tok) {
			return true
		}
	}
	for _, a := range e.aliases {
		if strings.Contains(name, a.Fragment) {
			return true
		}
	}
	return false
}

func (e *Encoder) companyCode(name string) string {
	for _, a := range e.aliases {
		if strings.Contains(name, a.Fragment) {
			return translit.Fit(a.Code, Width, companyPad)
		}
	}
	slug := strings.Join(strings.Fields(stripPunctuation(name)), "-")
	return translit.Fit(slug, Width, companyPad)
}

func (e *Encoder) personCode(name string) string {
	if e.titles != nil {
		name = e.titles.ReplaceAllString(name, " ")
	}
	tokens := strings.Fields(stripPunctuation(name))
	switch len(tokens) {
	case 0:
		return Sentinel
	case 1:
		return translit.Fit(tokens[0], Width, personPad)
	default:
		code := tokens[0][:1] + string(personPad) + tokens[len(tokens)-1]
		return translit.Fit(code, Width, personPad)
	}
}

// stripPunctuation keeps ASCII letters, digits and whitespace.
func stripPunctuation(s string) string {
	return translit.KeepRunes(s, func(r rune) bool {
		return translit.IsCodeRune(r) || unicode.IsSpace(r)
	})
}

func isAliasRune(r rune) bool {
	return translit.IsCodeRune(r) || r == '-' || r == '_'
}
