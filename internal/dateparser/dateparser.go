// Package dateparser reads document dates written in the conventions found in
// Turkish legal documents and renders them as YYMMDD.
package dateparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"hukudok/internal/translit"
)

// Sentinel is the YYMMDD value used when no date can be read.
const Sentinel = "XXXXXX"

// DateParseErrorType represents the type of date parsing error.
type DateParseErrorType string

const (
	InvalidFormat DateParseErrorType = "INVALID_FORMAT"
	InvalidDate   DateParseErrorType = "INVALID_DATE"
)

// DateParseError represents an error that occurred during date parsing.
type DateParseError struct {
	Type   DateParseErrorType
	Input  string
	Reason string
}

func (e *DateParseError) Error() string {
	switch e.Type {
	case InvalidFormat:
		return fmt.Sprintf("invalid date format: %q", e.Input)
	case InvalidDate:
		return fmt.Sprintf("invalid date: %s", e.Reason)
	default:
		return fmt.Sprintf("date parse error: %s", e.Reason)
	}
}

// Date is a parsed calendar date. Year holds the year as written: either four
// digits, or two digits when YearDigits is 2.
type Date struct {
	Year       int
	Month      int
	Day        int
	YearDigits int
}

// FullYear returns the four-digit year. Two-digit years are placed in 2000-2099.
func (d Date) FullYear() int {
	if d.YearDigits == 2 {
		return 2000 + d.Year
	}
	return d.Year
}

// YYMMDD renders the date as six digits. Two-digit years are used verbatim.
func (d Date) YYMMDD() string {
	return fmt.Sprintf("%02d%02d%02d", d.Year%100, d.Month, d.Day)
}

// ISO renders the date as YYYY-MM-DD.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.FullYear(), d.Month, d.Day)
}

var (
	// numericPattern covers YYYY-M-D, YYYY/M/D, D-M-YYYY, D/M/YY and friends.
	numericPattern = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,4})\s*[-/]\s*([0-9]{1,2})\s*[-/]\s*([0-9]{1,4})(?:[^0-9]|$)`)
	dottedPattern  = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,2})\s*\.\s*([0-9]{1,2})\s*\.\s*([0-9]{4}|[0-9]{2})(?:[^0-9]|$)`)
	monthPattern   = regexp.MustCompile(`(?:^|[^0-9])([0-9]{1,2})\.?\s+([A-Z]+)\.?,?\s+([0-9]{4}|[0-9]{2})(?:[^0-9]|$)`)
	compactPattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// monthNames lists the Turkish month names after ASCII folding.
var monthNames = []string{
	"OCAK", "SUBAT", "MART", "NISAN", "MAYIS", "HAZIRAN",
	"TEMMUZ", "AGUSTOS", "EYLUL", "EKIM", "KASIM", "ARALIK",
}

// monthNumber resolves a folded month name or abbreviation of at least three
// letters to 1-12. The three-letter prefixes of Turkish month names are unique.
func monthNumber(word string) int {
	if len(word) < 3 {
		return 0
	}
	for i, name := range monthNames {
		if strings.HasPrefix(name, word) {
			return i + 1
		}
	}
	return 0
}

// Parse reads the first date found in text. The forms are tried in order and
// the first that matches decides the result:
//
//  1. numeric with - or / separators, year-first or day-first
//  2. dotted D.M.YYYY or D.M.YY
//  3. D <Turkish month name> YYYY|YY
//  4. a bare six-digit YYMMDD string
//
// A matched form whose month or day is out of range is an InvalidDate error.
func Parse(text string) (*Date, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, &DateParseError{Type: InvalidFormat, Input: text}
	}

	if m := numericPattern.FindStringSubmatch(s); m != nil {
		switch {
		case len(m[1]) == 4:
			return build(text, m[1], m[2], m[3])
		case len(m[3]) == 4 || len(m[3]) == 2:
			return build(text, m[3], m[2], m[1])
		}
	}

	if m := dottedPattern.FindStringSubmatch(s); m != nil {
		return build(text, m[3], m[2], m[1])
	}

	folded := translit.ToASCIIUpper(s)
	for _, m := range monthPattern.FindAllStringSubmatch(folded, -1) {
		if month := monthNumber(m[2]); month > 0 {
			return build(text, m[3], strconv.Itoa(month), m[1])
		}
	}

	if compactPattern.MatchString(s) {
		return build(text, s[0:2], s[2:4], s[4:6])
	}

	return nil, &DateParseError{Type: InvalidFormat, Input: text}
}

// build validates the textual components and assembles a Date.
func build(input, year, month, day string) (*Date, error) {
	y, _ := strconv.Atoi(year)
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)

	date := &Date{Year: y, Month: mo, Day: d, YearDigits: len(year)}
	if date.YearDigits != 2 && date.YearDigits != 4 {
		return nil, &DateParseError{Type: InvalidFormat, Input: input}
	}

	if mo < 1 || mo > 12 {
		return nil, &DateParseError{
			Type:   InvalidDate,
			Input:  input,
			Reason: fmt.Sprintf("month %02d is out of range (01-12)", mo),
		}
	}

	maxDay := daysInMonth(date.FullYear(), mo)
	if d < 1 || d > maxDay {
		return nil, &DateParseError{
			Type:   InvalidDate,
			Input:  input,
			Reason: fmt.Sprintf("day %02d is out of range for month %02d (01-%02d)", d, mo, maxDay),
		}
	}

	return date, nil
}

// ParseDate returns the YYMMDD form of the first date in text, or Sentinel.
// It never fails. A bare six-digit string is taken as YYMMDD already and
// returned as is, without range checks.
func ParseDate(text string) string {
	if s := strings.TrimSpace(text); compactPattern.MatchString(s) {
		return s
	}
	d, err := Parse(text)
	if err != nil {
		return Sentinel
	}
	return d.YYMMDD()
}

// ISO returns the YYYY-MM-DD form of the first date in text.
// The boolean is false when no valid date was found.
func ISO(text string) (string, bool) {
	d, err := Parse(text)
	if err != nil {
		return "", false
	}
	return d.ISO(), true
}

// daysInMonth returns the number of days in the given month for the given year.
func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if isLeapYear(year) {
			return 29
		}
		return 28
	default:
		return 0
	}
}

// isLeapYear returns true if the given year is a leap year.
func isLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || (year%400 == 0)
}
