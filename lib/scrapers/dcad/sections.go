package dcad

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"

	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"
)

// Strategy records how a section table was located: stable element ids
// survive heading rewording, heading proximity survives id churn, and
// content scoring is the last resort against full layout drift.
type Strategy string

const (
	ByID           Strategy = "by-id"
	ByHeading      Strategy = "by-heading"
	ByContentScore Strategy = "by-content-score"
)

// SectionSpec is a declarative descriptor for one logical section of a
// detail page. Schema drift on the live site is handled by editing the
// spec, not by forking the parser.
type SectionSpec struct {
	Name string
	// stable ids of the section table itself, most reliable
	TableIDs []string
	// id prefixes of span.DtlSectionHdr section headers
	HeaderIDPrefixes []string
	// heading texts matched case-insensitively against h1-h4, b,
	// strong, label and section header spans
	HeadingPatterns []*regexp.Regexp
	// expected field labels for content-signature scoring
	Vocabulary []string
	// minimum vocabulary hits for a content-score match
	MinHits int
	// tables the content scan must skip (e.g. the land grid when
	// scanning for improvements)
	Exclude func(*goquery.Selection) bool
}

// SectionMatch references the located table and the strategy that found
// it. Ambiguous is set when content scoring produced a tie; callers
// attach it to the record as a soft warning.
type SectionMatch struct {
	Table     *goquery.Selection
	Strategy  Strategy
	Ambiguous bool
}

var navWords = []string{
	"navigation", "links", "link", "property map",
	"print", "help", "disclaimer", "version", "top", "return",
}

// filters out obvious navigation/utility tables
func isNavLikeTable(t *goquery.Selection) bool {
	firstRow := t.Find("tr").First()
	line := strings.ToLower(htmlutil.CellText(firstRow))
	for _, w := range navWords {
		if strings.Contains(line, w) {
			return true
		}
	}
	return false
}

var landTokens = []string{"land", "acre", "acres", "frontage", "depth", "zoning"}
var landValueTokens = []string{"market", "assessed", "appraised", "value", "productivity"}

// avoids confusing the land grid with improvement tables
func isLandLikeTable(t *goquery.Selection) bool {
	headers := strings.ToLower(strings.Join(gridHeaders(t), " | "))
	hits := 0
	for _, tok := range landTokens {
		if strings.Contains(headers, tok) {
			hits++
		}
	}
	for _, tok := range landValueTokens {
		if strings.Contains(headers, tok) {
			hits++
		}
	}
	return hits >= 3 &&
		!strings.Contains(headers, "imp") &&
		!strings.Contains(headers, "improvement")
}

const headingSimilarityThreshold = 0.92

func headingMatches(spec SectionSpec, heading string) bool {
	for _, p := range spec.HeadingPatterns {
		if p.MatchString(heading) {
			return true
		}
	}
	// reworded headings: "Main Improvements" vs "Main Improvement"
	// style drift clears a high similarity bar without regex edits
	if spec.Name != "" {
		sim := matchr.JaroWinkler(
			textutil.NormalizeLabel(heading),
			textutil.NormalizeLabel(spec.Name),
			true,
		)
		if sim >= headingSimilarityThreshold {
			return true
		}
	}
	return false
}

func locateByID(doc *goquery.Document, spec SectionSpec) *goquery.Selection {
	for _, id := range spec.TableIDs {
		el := doc.Find("#" + id).First()
		if el.Length() == 0 {
			continue
		}
		if goquery.NodeName(el) == "table" {
			return el
		}
		if t := el.Find("table").First(); t.Length() > 0 {
			return t
		}
		if t := htmlutil.NextTable(doc, el); t != nil {
			return t
		}
	}
	return nil
}

func locateByHeading(doc *goquery.Document, spec SectionSpec) *goquery.Selection {
	for _, prefix := range spec.HeaderIDPrefixes {
		lowered := strings.ToLower(prefix)
		var found *goquery.Selection
		doc.Find("span.DtlSectionHdr").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			id, _ := s.Attr("id")
			if strings.HasPrefix(strings.ToLower(id), lowered) {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			if t := htmlutil.NextTable(doc, found); t != nil {
				return t
			}
		}
	}

	if len(spec.HeadingPatterns) == 0 {
		return nil
	}
	var table *goquery.Selection
	doc.Find("h1, h2, h3, h4, b, strong, label, span.DtlSectionHdr").
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			heading := htmlutil.CellText(s)
			if heading == "" || !headingMatches(spec, heading) {
				return true
			}
			if t := htmlutil.NextTable(doc, s); t != nil {
				table = t
				return false
			}
			return true
		})
	return table
}

func contentScore(t *goquery.Selection, spec SectionSpec) int {
	var labels []string
	for k := range KeyValues(t) {
		labels = append(labels, k)
	}
	labels = append(labels, gridHeaders(t)...)

	score := 0
	for _, v := range spec.Vocabulary {
		for _, label := range labels {
			if strings.Contains(strings.ToLower(label), v) {
				score++
				break
			}
		}
	}
	return score
}

func locateByContent(doc *goquery.Document, spec SectionSpec) (*goquery.Selection, bool) {
	minHits := spec.MinHits
	if minHits <= 0 {
		minHits = 3
	}

	var best *goquery.Selection
	bestScore := 0
	tied := false
	doc.Find("table").Each(func(_ int, t *goquery.Selection) {
		if isNavLikeTable(t) {
			return
		}
		if spec.Exclude != nil && spec.Exclude(t) {
			return
		}
		score := contentScore(t, spec)
		if score > bestScore {
			best = t
			bestScore = score
			tied = false
		} else if score == bestScore && score > 0 && best != nil && !nested(best, t) {
			tied = true
		}
	})
	if bestScore < minHits {
		return nil, false
	}
	// ties broken by document order, first occurrence wins
	return best, tied
}

// a table nested inside another scores against the same vocabulary;
// that is containment, not ambiguity
func nested(outer, inner *goquery.Selection) bool {
	if outer.Length() == 0 || inner.Length() == 0 {
		return false
	}
	parents := inner.ParentsFiltered("table")
	for i := 0; i < parents.Length(); i++ {
		if parents.Get(i) == outer.Get(0) {
			return true
		}
	}
	return false
}

// Locate finds the table for a named logical section. The strategy
// order is fixed: id, heading proximity, then content-signature scan.
// A false return is a normal outcome meaning the section is absent from
// this page revision; callers produce defaults.
func Locate(doc *goquery.Document, spec SectionSpec) (SectionMatch, bool) {
	if t := locateByID(doc, spec); t != nil {
		return SectionMatch{Table: t, Strategy: ByID}, true
	}
	if t := locateByHeading(doc, spec); t != nil {
		return SectionMatch{Table: t, Strategy: ByHeading}, true
	}
	if len(spec.Vocabulary) > 0 {
		if t, ambiguous := locateByContent(doc, spec); t != nil {
			return SectionMatch{Table: t, Strategy: ByContentScore, Ambiguous: ambiguous}, true
		}
	}
	return SectionMatch{}, false
}
