package dcad

import (
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"

	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"
)

func normalizeKey(label string) string {
	return textutil.NormalizeLabel(strings.TrimSuffix(strings.TrimSpace(label), ":"))
}

// KeyValues flattens a label/value table into a map keyed by normalized
// label. The site mixes four layouts, sometimes within a single table:
// "Label: value" in one cell, label/value cell pairs, cells tagged with
// FieldName/FieldValue classes, and wide rows holding several pairs.
// The first value seen for a label wins.
func KeyValues(table *goquery.Selection) map[string]string {
	out := map[string]string{}
	put := func(label, value string) {
		key := normalizeKey(label)
		if key == "" {
			return
		}
		if _, ok := out[key]; !ok {
			out[key] = textutil.Clean(value)
		}
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		texts := htmlutil.CellTexts(row.Find("td, th"))
		switch len(texts) {
		case 0:
			return
		case 1:
			if label, value, ok := strings.Cut(texts[0], ":"); ok {
				put(label, value)
			}
			return
		case 2:
			put(texts[0], texts[1])
			return
		}

		// class-tagged cells pair up positionally when the counts line
		// up; otherwise the row chunks into adjacent pairs
		labels := htmlutil.CellTexts(row.Find(".FieldName, .FieldLabel"))
		values := htmlutil.CellTexts(row.Find(".FieldValue, .FieldVal"))
		if len(labels) > 0 && len(labels) == len(values) {
			for i := range labels {
				put(labels[i], values[i])
			}
			return
		}
		for i := 0; i+1 < len(texts); i += 2 {
			put(texts[i], texts[i+1])
		}
	})
	return out
}

// Value looks up the first matching label in a flattened table. Exact
// key matches win; otherwise the matchers act as substrings against the
// keys in sorted order, so alias lists absorb label drift.
func Value(kv map[string]string, matchers ...string) (string, bool) {
	for _, m := range matchers {
		if v := kv[m]; v != "" {
			return v, true
		}
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, m := range matchers {
		for _, key := range keys {
			if kv[key] != "" && strings.Contains(key, m) {
				return kv[key], true
			}
		}
	}
	return "", false
}

// positional cell texts: grid columns are index-addressed, so empty
// cells must stay in place
func allCellTexts(cells *goquery.Selection) []string {
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, htmlutil.CellText(c))
	})
	return out
}

// gridHeaders returns the header row of a grid table, preferring th
// cells and falling back to the first row's td cells.
func gridHeaders(table *goquery.Selection) []string {
	header := table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Find("th").Length() > 0
	}).First()
	if header.Length() > 0 {
		return allCellTexts(header.Find("th, td"))
	}
	return allCellTexts(table.Find("tr").First().Find("td"))
}

const headerSimilarityThreshold = 0.9

// HeaderIndex resolves a column position by matcher substrings, with a
// similarity backstop for renamed columns ("Taxable Val" for "Taxable
// Value"). Returns -1 when no column qualifies.
func HeaderIndex(headers []string, matchers ...string) int {
	for i, h := range headers {
		if textutil.MatchLabel(h, matchers) {
			return i
		}
	}
	for i, h := range headers {
		normalized := textutil.NormalizeLabel(h)
		for _, m := range matchers {
			if matchr.JaroWinkler(normalized, m, true) >= headerSimilarityThreshold {
				return i
			}
		}
	}
	return -1
}

// GridRows returns the data rows of a grid table, skipping the header
// row and any row whose cells are all empty.
func GridRows(table *goquery.Selection) [][]string {
	var rows [][]string
	seenHeader := false
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Find("th").Length() > 0 {
			seenHeader = true
			return
		}
		texts := allCellTexts(row.Find("td"))
		if len(texts) == 0 {
			return
		}
		if !seenHeader {
			// td-only tables use their first row as the header
			seenHeader = true
			return
		}
		empty := true
		for _, t := range texts {
			if t != "" {
				empty = false
				break
			}
		}
		if !empty {
			rows = append(rows, texts)
		}
	})
	return rows
}

// Cell indexes a grid row defensively; short rows yield "".
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
