package dcad

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"
)

var nonAlnumRegex = regexp.MustCompile(`[^a-z0-9]+`)

// exemptionFieldKey turns a display label into a snake_case field key,
// optionally prefixed with the section it appeared under.
func exemptionFieldKey(label, section string) string {
	s := strings.ToLower(textutil.Clean(label))
	s = strings.ReplaceAll(s, "%", " pct ")
	s = strings.ReplaceAll(s, "/", " ")
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.Trim(nonAlnumRegex.ReplaceAllString(s, "_"), "_")
	if s == "" {
		s = "field"
	}
	if section != "" {
		return section + "_" + s
	}
	return s
}

func directRows(table *goquery.Selection) *goquery.Selection {
	rows := table.ChildrenFiltered("tbody").ChildrenFiltered("tr")
	if rows.Length() == 0 {
		rows = table.ChildrenFiltered("tr")
	}
	return rows
}

// twoColumnTables finds the layout table whose single row holds a
// labels table on the left and a values table on the right.
func twoColumnTables(doc *goquery.Document) (*goquery.Selection, *goquery.Selection) {
	var left, right *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, outer *goquery.Selection) bool {
		rows := directRows(outer)
		if rows.Length() != 1 {
			return true
		}
		cells := rows.First().ChildrenFiltered("td")
		if cells.Length() != 2 {
			return true
		}
		l := cells.Eq(0).Find("table").First()
		r := cells.Eq(1).Find("table").First()
		if l.Length() > 0 && r.Length() > 0 {
			left, right = l, r
			return false
		}
		return true
	})
	return left, right
}

// ParseExemptionDetails flattens the exemption details page into field
// keys. The page renders labels and values in two parallel tables whose
// rows line up by position; section markers (ISD, COUNTY) prefix the
// keys that follow them.
func ParseExemptionDetails(html string) map[string]string {
	out := map[string]string{}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return out
	}

	left, right := twoColumnTables(doc)
	if left != nil {
		var labels, values []string
		left.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			labels = append(labels, htmlutil.CellText(tr.Find("th, td").First()))
		})
		right.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			values = append(values, htmlutil.CellText(tr.Find("td").First()))
		})

		n := len(labels)
		if len(values) < n {
			n = len(values)
		}
		section := ""
		for i := 0; i < n; i++ {
			label := labels[i]
			if label == "" {
				continue
			}
			switch strings.ToUpper(label) {
			case "ISD":
				section = "isd"
				continue
			case "COUNTY":
				section = "county"
				continue
			}
			out[exemptionFieldKey(label, section)] = orNA(values[i])
		}
		return out
	}

	// simple label/value rows
	doc.Find("table").First().Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		label := htmlutil.CellText(cells.Eq(0))
		if label == "" {
			return
		}
		out[exemptionFieldKey(label, "")] = orNA(htmlutil.CellText(cells.Eq(1)))
	})
	return out
}

// aliases for drifting labels on the exemption history page
var exemptionKeyAliases = []struct {
	prefix string
	key    string
}{
	{"ownership", "ownership_pct"},
	{"homestead_percent", "homestead_pct"},
	{"other_disabled", "other_disabled_date"},
	{"disabled_percent", "disabled_pct"},
	{"disabled", "disabled_person"},
	{"tax_deferred", "tax_deferred"},
}

func exemptionHistoryKey(label string) string {
	base := exemptionFieldKey(label, "")
	for _, a := range exemptionKeyAliases {
		if base == a.key {
			return base
		}
	}
	for _, a := range exemptionKeyAliases {
		if strings.HasPrefix(base, a.prefix) {
			return a.key
		}
	}
	return base
}

func isExemptionLabelsTable(t *goquery.Selection) bool {
	if t.Find("table").Length() > 0 {
		return false
	}
	if t.Find("tr").Length() < 6 || t.Find("th").Length() < 6 {
		return false
	}
	var labels []string
	t.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		labels = append(labels, htmlutil.CellText(tr.Find("th, td").First()))
	})
	joined := strings.ToLower(strings.Join(labels, " "))
	return strings.Contains(joined, "applicant") &&
		strings.Contains(joined, "ownership") &&
		strings.Contains(joined, "homestead")
}

func isExemptionValuesTable(t *goquery.Selection) bool {
	if t.Find("table").Length() > 0 {
		return false
	}
	return t.Find("td").Length() >= 6 && t.Find("th").Length() <= 2
}

// ParseExemptionDetailsHistory extracts one field map per year from the
// exemption history page. Years are DtlSectionHdr spans; each year's
// labels and values sit in two side-by-side tables before the next
// year header. Sorted descending by year.
func ParseExemptionDetailsHistory(html string) []ExemptionYearDetail {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []ExemptionYearDetail
	spans := doc.Find("span.DtlSectionHdr")
	spans.Each(func(i int, sp *goquery.Selection) {
		year, ok := parseYear(htmlutil.CellText(sp))
		if !ok {
			return
		}

		tables := htmlutil.TablesAfter(doc, sp, 50)
		if i+1 < spans.Length() {
			next := spans.Eq(i + 1)
			bounded := tables[:0]
			for _, t := range tables {
				if htmlutil.IsAfter(doc, t, next) {
					break
				}
				bounded = append(bounded, t)
			}
			tables = bounded
		}

		fields := map[string]string{}
		labelsIdx := -1
		for j, t := range tables {
			if isExemptionLabelsTable(t) {
				labelsIdx = j
				break
			}
		}
		if labelsIdx >= 0 {
			var valuesTable *goquery.Selection
			for _, t := range tables[labelsIdx+1:] {
				if isExemptionValuesTable(t) {
					valuesTable = t
					break
				}
			}

			var labels []string
			tables[labelsIdx].Find("tr").Each(func(_ int, tr *goquery.Selection) {
				for _, text := range htmlutil.CellTexts(tr.Find("th, td")) {
					labels = append(labels, text)
				}
			})

			var values []string
			if valuesTable != nil {
				valuesTable.Find("tr").Each(func(_ int, tr *goquery.Selection) {
					td := tr.Find("td").First()
					if td.Length() > 0 {
						values = append(values, htmlutil.CellText(td))
					} else {
						values = append(values, htmlutil.CellText(tr))
					}
				})
			}

			n := len(labels)
			if len(values) < n {
				n = len(values)
			}
			for k := 0; k < n; k++ {
				fields[exemptionHistoryKey(labels[k])] = values[k]
			}
		}

		out = append(out, ExemptionYearDetail{Year: year, Fields: fields})
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}
