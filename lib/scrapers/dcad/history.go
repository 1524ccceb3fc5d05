package dcad

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"
)

var (
	fullYearRegex  = regexp.MustCompile(`^\d{4}$`)
	legalSpanRegex = regexp.MustCompile(`(?i)lblLegal\d+`)
	saleSpanRegex  = regexp.MustCompile(`(?i)lblSaleDate\b`)
	usDateRegex    = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)
	legalNoiseRegex = regexp.MustCompile(`^\d+:\s*$`)
)

func parseYear(s string) (int, bool) {
	s = textutil.Clean(s)
	if !fullYearRegex.MatchString(s) {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	return y, err == nil
}

// historySectionTable finds the first table after the DtlSectionHdr
// span whose text contains all keywords, stopping at the next section
// header.
func historySectionTable(doc *goquery.Document, keywords ...string) *goquery.Selection {
	var table *goquery.Selection
	spans := doc.Find("span.DtlSectionHdr")
	spans.EachWithBreak(func(i int, sp *goquery.Selection) bool {
		header := textutil.NormalizeLabel(htmlutil.CellText(sp))
		for _, k := range keywords {
			if !strings.Contains(header, k) {
				return true
			}
		}
		t := htmlutil.NextTable(doc, sp)
		if t == nil {
			return true
		}
		if i+1 < spans.Length() {
			next := spans.Eq(i + 1)
			if htmlutil.IsAfter(doc, t, next) {
				return true
			}
		}
		table = t
		return false
	})
	return table
}

// ParseHistory extracts the year-indexed owner, market value, taxable
// value and exemption series from the account history page.
func ParseHistory(html string) (*HistoryRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing history page: %w", err)
	}
	return &HistoryRecord{
		OwnerHistory: parseOwnerHistory(doc),
		MarketValue:  parseMarketValueHistory(doc),
		TaxableValue: parseTaxableValueHistory(doc),
		Exemptions:   parseExemptionsHistory(doc),
	}, nil
}

func isoDate(raw string) string {
	m := usDateRegex.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%s-%02d-%02d", m[3], month, day)
}

func ownerSnapshotFromCells(year int, ownerCell, legalCell *goquery.Selection) OwnerSnapshot {
	snap := OwnerSnapshot{
		Year:       year,
		OwnerLines: htmlutil.TextLines(ownerCell),
	}

	spans := legalCell.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return legalSpanRegex.MatchString(id)
	})
	if spans.Length() > 0 {
		spans.Each(func(_ int, s *goquery.Selection) {
			if t := htmlutil.CellText(s); t != "" {
				snap.LegalDescriptionLines = append(snap.LegalDescriptionLines, t)
			}
		})
	} else {
		legalCell.Find("td").Each(func(_ int, td *goquery.Selection) {
			t := htmlutil.CellText(td)
			if t != "" && !legalNoiseRegex.MatchString(t) {
				snap.LegalDescriptionLines = append(snap.LegalDescriptionLines, t)
			}
		})
	}

	sale := legalCell.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, _ := s.Attr("id")
		return saleSpanRegex.MatchString(id)
	}).First()
	if sale.Length() > 0 {
		snap.DeedTransferDate = htmlutil.CellText(sale)
		snap.DeedTransferDateISO = isoDate(snap.DeedTransferDate)
	}

	return snap
}

// parseOwnerHistory handles both layouts of the owner/legal section:
// well-formed rows of year/owner/legal cells, and the flattened variant
// where the year header and its cells are loose siblings.
func parseOwnerHistory(doc *goquery.Document) []OwnerSnapshot {
	tbl := historySectionTable(doc, "owner", "legal")
	if tbl == nil {
		return nil
	}

	var out []OwnerSnapshot
	tbl.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		if cells.Length() < 3 {
			return
		}
		year, ok := parseYear(htmlutil.CellText(cells.Eq(0)))
		if !ok {
			return
		}
		out = append(out, ownerSnapshotFromCells(year, cells.Eq(1), cells.Eq(2)))
	})

	if len(out) == 0 {
		// flattened variant
		cells := tbl.Find("th, td")
		for i := 0; i+2 < cells.Length(); i++ {
			head := cells.Eq(i)
			if goquery.NodeName(head) != "th" {
				continue
			}
			year, ok := parseYear(htmlutil.CellText(head))
			if !ok {
				continue
			}
			ownerCell, legalCell := cells.Eq(i+1), cells.Eq(i+2)
			if goquery.NodeName(ownerCell) != "td" || goquery.NodeName(legalCell) != "td" {
				continue
			}
			out = append(out, ownerSnapshotFromCells(year, ownerCell, legalCell))
			i += 2
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

func parseMarketValueHistory(doc *goquery.Document) []MarketValueSnapshot {
	tbl := doc.Find("#MarketHistory1_dgMarketHist").First()
	if tbl.Length() == 0 {
		tbl = doc.Find("#TaxHistory1_dgHistMktValue").First()
	}
	if tbl.Length() == 0 {
		tbl = historySectionTable(doc, "market", "value")
	}
	if tbl == nil || tbl.Length() == 0 {
		return nil
	}

	headers := gridHeaders(tbl)
	iYear := HeaderIndex(headers, "year")
	iImp := HeaderIndex(headers, "improvement", "impr")
	iLand := HeaderIndex(headers, "land")
	iTotal := HeaderIndex(headers, "total market", "market")
	iCapped := HeaderIndex(headers, "homestead cap", "capped")

	var out []MarketValueSnapshot
	for _, row := range GridRows(tbl) {
		year, ok := parseYear(Cell(row, iYear))
		if !ok {
			continue
		}
		out = append(out, MarketValueSnapshot{
			Year:            year,
			Improvement:     orNA(Cell(row, iImp)),
			Land:            orNA(Cell(row, iLand)),
			TotalMarket:     orNA(Cell(row, iTotal)),
			HomesteadCapped: orNA(Cell(row, iCapped)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

func parseTaxableValueHistory(doc *goquery.Document) []TaxableValueSnapshot {
	tbl := doc.Find("#TaxHistory1_dgTaxHistory").First()
	if tbl.Length() == 0 {
		tbl = historySectionTable(doc, "taxable", "value")
	}
	if tbl == nil || tbl.Length() == 0 {
		return nil
	}

	headers := gridHeaders(tbl)
	iYear := HeaderIndex(headers, "year")
	iCity := HeaderIndex(headers, "city")
	iSchool := HeaderIndex(headers, "isd", "school")
	iCounty := HeaderIndex(headers, "county")
	iCollege := HeaderIndex(headers, "college")
	iHospital := HeaderIndex(headers, "hospital")
	iSpecial := HeaderIndex(headers, "special district", "special")

	var out []TaxableValueSnapshot
	for _, row := range GridRows(tbl) {
		year, ok := parseYear(Cell(row, iYear))
		if !ok {
			continue
		}
		out = append(out, TaxableValueSnapshot{
			Year:            year,
			City:            orNA(Cell(row, iCity)),
			School:          orNA(Cell(row, iSchool)),
			County:          orNA(Cell(row, iCounty)),
			College:         orNA(Cell(row, iCollege)),
			Hospital:        orNA(Cell(row, iHospital)),
			SpecialDistrict: orNA(Cell(row, iSpecial)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}

// parseExemptionsHistory reads the per-year exemption blocks. A year
// marked "No Exemptions" yields an empty map rather than being dropped.
func parseExemptionsHistory(doc *goquery.Document) []ExemptionYear {
	tbl := historySectionTable(doc, "exempt")
	if tbl == nil {
		return nil
	}

	var out []ExemptionYear
	tbl.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		if cells.Length() < 2 {
			return
		}
		year, ok := parseYear(htmlutil.CellText(cells.Eq(0)))
		if !ok {
			return
		}

		body := cells.Eq(1)
		entry := ExemptionYear{Year: year, Exemptions: map[string]ExemptionEntry{}}
		defer func() { out = append(out, entry) }()

		if strings.Contains(strings.ToLower(htmlutil.CellText(body)), "no exemptions") {
			return
		}
		inner := body.Find("table").First()
		if inner.Length() == 0 {
			return
		}
		rows := inner.Find("tr")
		if rows.Length() == 0 {
			return
		}

		var categories []string
		for _, h := range allCellTexts(rows.First().Find("th, td")) {
			if key := canonicalJurisdiction(h); key != "" {
				categories = append(categories, key)
			}
		}
		if len(categories) == 0 {
			return
		}

		findValues := func(prefixes ...string) []string {
			var vals []string
			rows.EachWithBreak(func(i int, r *goquery.Selection) bool {
				if i == 0 {
					return true
				}
				texts := allCellTexts(r.Find("th, td"))
				if len(texts) == 0 {
					return true
				}
				head := strings.ToLower(texts[0])
				for _, p := range prefixes {
					if strings.Contains(head, p) {
						end := len(texts)
						if 1+len(categories) < end {
							end = 1 + len(categories)
						}
						vals = texts[1:end]
						return false
					}
				}
				return true
			})
			return vals
		}

		taxing := findValues("taxing jurisdiction")
		homestead := findValues("homestead exemption", "homestead", "exemption")
		taxable := findValues("taxable value")

		for i, cat := range categories {
			entry.Exemptions[cat] = ExemptionEntry{
				TaxingJurisdiction: orNA(Cell(taxing, i)),
				HomesteadExemption: orNA(Cell(homestead, i)),
				TaxableValue:       orNA(Cell(taxable, i)),
			}
		}
	})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out
}
