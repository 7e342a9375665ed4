// Package dates turns the loosely formatted date phrases of the external
// source into canonical, comparable strings.
//
// Canonical forms:
//
//	1900-01-01   exact day
//	1900-01      month known
//	1900         year known
//	ca 1850      circa (also "environ")
//	av 1910      before
//	ap 1910      after
//	ve 1850      approximately ("vers")
//
// Malformed input never fails: it normalizes to the empty string, which
// callers treat as "no date".
package dates

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Precision orders canonical dates from least to most precise.
type Precision int

// Precision levels.
const (
	PrecisionNone Precision = iota
	PrecisionQualified
	PrecisionYear
	PrecisionMonth
	PrecisionDay
)

// String implements fmt.Stringer.
func (p Precision) String() string {
	switch p {
	case PrecisionQualified:
		return "qualified"
	case PrecisionYear:
		return "year"
	case PrecisionMonth:
		return "month"
	case PrecisionDay:
		return "day"
	default:
		return "none"
	}
}

// Canonical qualifier prefixes.
const (
	About  = "ca"
	Before = "av"
	After  = "ap"
	Around = "ve"
)

var qualifiers = map[string]string{
	"ca":      About,
	"circa":   About,
	"c":       About,
	"env":     About,
	"environ": About,
	"about":   About,
	"av":      Before,
	"avant":   Before,
	"before":  Before,
	"ap":      After,
	"apres":   After,
	"after":   After,
	"ve":      Around,
	"vers":    Around,
}

var months = map[string]time.Month{
	"janvier": time.January, "janv": time.January, "jan": time.January, "january": time.January,
	"fevrier": time.February, "fevr": time.February, "fev": time.February, "feb": time.February, "february": time.February,
	"mars": time.March, "mar": time.March, "march": time.March,
	"avril": time.April, "avr": time.April, "apr": time.April, "april": time.April,
	"mai": time.May, "may": time.May,
	"juin": time.June, "jun": time.June, "june": time.June,
	"juillet": time.July, "juil": time.July, "jul": time.July, "july": time.July,
	"aout": time.August, "aug": time.August, "august": time.August,
	"septembre": time.September, "sept": time.September, "sep": time.September, "september": time.September,
	"octobre": time.October, "oct": time.October, "october": time.October,
	"novembre": time.November, "nov": time.November, "november": time.November,
	"decembre": time.December, "dec": time.December, "december": time.December,
}

// Leading words that carry no date information ("le 3 mai", "en 1920").
var fillers = map[string]bool{
	"le": true, "en": true, "the": true, "on": true, "in": true,
}

// NormalizePhrase normalizes a whole date phrase.
func NormalizePhrase(phrase string) string {
	return Normalize(strings.Fields(phrase))
}

// Normalize converts a date phrase already split into tokens.
func Normalize(tokens []string) string {
	words := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if w := fold(tok); w != "" {
			words = append(words, w)
		}
	}
	for len(words) > 0 && fillers[words[0]] {
		words = words[1:]
	}
	if len(words) == 0 {
		return ""
	}

	if q, ok := qualifiers[words[0]]; ok {
		rest := words[1:]
		for len(rest) > 0 && fillers[rest[0]] {
			rest = rest[1:]
		}
		y := Year(exact(rest))
		if y == "" {
			return ""
		}
		return q + " " + y
	}

	return exact(words)
}

// exact handles unqualified forms.
func exact(words []string) string {
	switch len(words) {
	case 1:
		if y, ok := parseYear(words[0]); ok {
			return formatISO(y, 0, 0)
		}
		return numeric(words[0])
	case 2:
		m, okM := months[words[0]]
		y, okY := parseYear(words[1])
		if okM && okY {
			return formatISO(y, m, 0)
		}
	case 3:
		// French order: 1er janvier 1900
		if d, ok := parseDay(words[0]); ok {
			if m, ok := months[words[1]]; ok {
				if y, ok := parseYear(words[2]); ok {
					return formatISO(y, m, d)
				}
			}
		}
		// English order: january 1 1900
		if m, ok := months[words[0]]; ok {
			if d, ok := parseDay(words[1]); ok {
				if y, ok := parseYear(words[2]); ok {
					return formatISO(y, m, d)
				}
			}
		}
	}
	return ""
}

// numeric parses 12/05/1900 and 1900-05-12.
func numeric(word string) string {
	if t, err := time.Parse("02/01/2006", word); err == nil {
		return t.Format(time.DateOnly)
	}
	if t, err := time.Parse("2/1/2006", word); err == nil {
		return t.Format(time.DateOnly)
	}
	if t, err := time.Parse(time.DateOnly, word); err == nil {
		return t.Format(time.DateOnly)
	}
	if t, err := time.Parse("2006-01", word); err == nil {
		return t.Format("2006-01")
	}
	return ""
}

// formatISO renders year, month and day, truncating unknown parts.
// An invalid day (31 février) yields the empty string.
func formatISO(year int, month time.Month, day int) string {
	switch {
	case year <= 0:
		return ""
	case month == 0:
		return pad(year, 4)
	case day == 0:
		return pad(year, 4) + "-" + pad(int(month), 2)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return ""
	}
	return pad(year, 4) + "-" + pad(int(month), 2) + "-" + pad(day, 2)
}

func pad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func parseYear(s string) (int, bool) {
	if len(s) == 0 || len(s) > 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y <= 0 {
		return 0, false
	}
	return y, true
}

func parseDay(s string) (int, bool) {
	s = strings.TrimSuffix(s, "er")
	s = strings.TrimSuffix(s, "st")
	s = strings.TrimSuffix(s, "nd")
	s = strings.TrimSuffix(s, "rd")
	s = strings.TrimSuffix(s, "th")
	if len(s) == 0 || len(s) > 2 {
		return 0, false
	}
	d, err := strconv.Atoi(s)
	if err != nil || d < 1 || d > 31 {
		return 0, false
	}
	return d, true
}

// fold lowercases a token, strips accents and surrounding punctuation.
func fold(token string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, token)
	if err != nil {
		s = token
	}
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '/' && r != '-'
	})
}

// Split separates a canonical date into its qualifier (possibly empty) and body.
func Split(d string) (qualifier, body string) {
	d = strings.TrimSpace(d)
	if q, rest, ok := strings.Cut(d, " "); ok {
		return q, rest
	}
	return "", d
}

// Qualified reports whether the date carries a qualifier prefix.
func Qualified(d string) bool {
	q, _ := Split(d)
	return q != ""
}

// PrecisionOf returns how precise a canonical date is.
func PrecisionOf(d string) Precision {
	q, body := Split(d)
	switch {
	case body == "":
		return PrecisionNone
	case q != "":
		return PrecisionQualified
	case len(body) >= 10:
		return PrecisionDay
	case len(body) >= 7:
		return PrecisionMonth
	default:
		return PrecisionYear
	}
}

// Year returns the four-digit year of a canonical date, or "".
func Year(d string) string {
	_, body := Split(d)
	if len(body) < 4 {
		return ""
	}
	return body[:4]
}

// reduce truncates a canonical body to the given precision.
func reduce(body string, p Precision) string {
	switch p {
	case PrecisionYear, PrecisionQualified:
		if len(body) > 4 {
			return body[:4]
		}
	case PrecisionMonth:
		if len(body) > 7 {
			return body[:7]
		}
	}
	return body
}

func coarser(a, b Precision) Precision {
	if a < b {
		return a
	}
	return b
}

// Compatible reports whether two dates can describe the same moment: empty
// dates are compatible with anything, otherwise both must agree at the
// coarser of their two granularities.
func Compatible(a, b string) bool {
	pa, pb := PrecisionOf(a), PrecisionOf(b)
	if pa == PrecisionNone || pb == PrecisionNone {
		return true
	}
	_, ba := Split(a)
	_, bb := Split(b)
	p := coarser(pa, pb)
	return reduce(ba, p) == reduce(bb, p)
}

// Compare orders two dates lexicographically once both are reduced to the
// same granularity. It returns -1, 0 or +1.
func Compare(a, b string) int {
	p := coarser(PrecisionOf(a), PrecisionOf(b))
	_, ba := Split(a)
	_, bb := Split(b)
	return strings.Compare(reduce(ba, p), reduce(bb, p))
}
