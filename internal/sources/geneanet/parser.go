package geneanet

import (
	"io"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/agentstation/geneasync/pkg/dates"
	"github.com/agentstation/geneasync/pkg/errors"
	"github.com/agentstation/geneasync/pkg/genealogy"
)

// Selectors of the person page layout.
const (
	selectTitle    = "#person-title"
	selectUnions   = "ul.fiche_union"
	selectDisc     = `li[style*="list-style-type:disc"]`
	selectChildren = `ul li[style*="list-style-type:square"]`
)

// Leading words of the birth and death entries.
var (
	bornWords = []string{"Né", "Née"}
	diedWords = []string{"Décédé", "Décédée"}
)

// Parse extracts a person from a page. Every node is optional: a missing
// node leaves the matching field empty.
func Parse(ref string, r io.Reader) (*genealogy.ExternalPerson, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.WrapParse("html", ref, err)
	}

	p := &genealogy.ExternalPerson{Ref: ref, Sex: genealogy.Unknown}

	title := doc.Find(selectTitle)
	if alt, ok := title.Find("img").First().Attr("alt"); ok {
		p.Sex = genealogy.ParseSex(alt)
	}
	// The title links hold the first then the last name; one without the
	// other is not trusted.
	if names := title.Find("a"); names.Length() >= 2 {
		p.FirstName = clean(names.Eq(0).Text())
		p.LastName = clean(names.Eq(1).Text())
	}

	if line, ok := entryLine(doc, bornWords); ok {
		p.Birth = parseLifeLine(line)
	}
	if line, ok := entryLine(doc, diedWords); ok {
		p.Death = parseLifeLine(line)
	}

	doc.Find(selectUnions).Find(selectDisc).Each(func(_ int, li *goquery.Selection) {
		p.Unions = append(p.Unions, parseUnion(li))
	})

	// Parent entries carry no role marker, so they stay in page order.
	doc.Find(selectDisc).Each(func(_ int, li *goquery.Selection) {
		if li.Closest(selectUnions).Length() > 0 || !startsWithLink(li) {
			return
		}
		if href := link(li); href != "" {
			p.ParentRefs = append(p.ParentRefs, href)
		}
	})

	return p, nil
}

// entryLine returns the leading text of the first list entry whose first
// word is one of words.
func entryLine(doc *goquery.Document, words []string) (string, bool) {
	var line string
	doc.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		text := clean(leadingText(li))
		first, _, _ := strings.Cut(text, " ")
		if slices.Contains(words, first) {
			line = text
			return false
		}
		return true
	})
	return line, line != ""
}

// parseLifeLine reads "<word> <date phrase> - <place>, <code>, ...".
func parseLifeLine(line string) genealogy.Event {
	datePart, placePart, _ := strings.Cut(line, " - ")
	ev := genealogy.Event{Date: phraseDate(datePart)}
	parts := strings.Split(placePart, ",")
	ev.Place = clean(parts[0])
	if len(parts) > 1 {
		ev.PlaceCode = clean(parts[1])
	}
	return ev
}

// parseUnion reads one spouse entry: the spouse link, the marriage line
// "<word> <date phrase>, <place>, <code>" and the children of the union.
func parseUnion(li *goquery.Selection) genealogy.Union {
	u := genealogy.Union{SpouseRef: link(li)}

	if em := li.ChildrenFiltered("em"); em.Length() > 0 {
		parts := strings.Split(clean(em.First().Text()), ",")
		u.Marriage.Date = phraseDate(parts[0])
		if len(parts) > 1 {
			u.Marriage.Place = clean(parts[1])
		}
		if len(parts) > 2 {
			u.Marriage.PlaceCode = clean(parts[2])
		}
	}

	li.Find(selectChildren).Each(func(_ int, c *goquery.Selection) {
		if href := link(c); href != "" {
			u.ChildRefs = append(u.ChildRefs, href)
		}
	})
	return u
}

// phraseDate drops the leading verb ("Né", "Marié") and normalizes the rest.
func phraseDate(s string) string {
	words := strings.Fields(s)
	if len(words) < 2 {
		return ""
	}
	return dates.Normalize(words[1:])
}

// link returns the href of the entry's own first link.
func link(li *goquery.Selection) string {
	href, _ := li.ChildrenFiltered("a").First().Attr("href")
	return strings.TrimSpace(href)
}

// leadingText concatenates the text nodes preceding the first child element.
func leadingText(s *goquery.Selection) string {
	var sb strings.Builder
	for _, n := range s.Nodes {
		for c := n.FirstChild; c != nil && c.Type == html.TextNode; c = c.NextSibling {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// startsWithLink reports whether the entry has no text before its first
// link. Parent entries are bare links; other disc entries start with prose.
func startsWithLink(li *goquery.Selection) bool {
	return strings.TrimSpace(leadingText(li)) == "" && li.ChildrenFiltered("a").Length() > 0
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
