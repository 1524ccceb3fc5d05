package dcad

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/normalize"
	"dcad-backend/lib/textutil"
)

// DetailPages bundles the raw pages a full account record is assembled
// from. Only Account is required; the rest enrich the record when set.
type DetailPages struct {
	Account                 RawPage
	History                 RawPage
	ExemptionDetails        RawPage
	ExemptionDetailsHistory RawPage
}

var (
	yearRegex    = regexp.MustCompile(`(20\d{2})`)
	integerRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

func intPtr(s string) *int64 {
	if v, ok := normalize.ToInteger(s); ok {
		return &v
	}
	return nil
}

func floatPtr(s string) *float64 {
	if v, ok := normalize.ToFloat(s); ok {
		return &v
	}
	return nil
}

func sqftPtr(s string) *float64 {
	if v, ok := normalize.ToSqft(s); ok {
		return &v
	}
	return nil
}

func decPtr(s string) *decimal.Decimal {
	if v, ok := normalize.ToNumber(s); ok {
		return &v
	}
	return nil
}

func pctPtr(s string) *decimal.Decimal {
	if v, ok := normalize.PercentToNumber(s); ok {
		return &v
	}
	return nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// canonicalJurisdiction maps a column label onto the fixed jurisdiction
// key set. Returns "" for labels that are not a taxing authority.
func canonicalJurisdiction(label string) string {
	l := textutil.NormalizeLabel(label)
	switch {
	case l == "":
		return ""
	case strings.Contains(l, "school") || strings.Contains(l, "isd"):
		return "school"
	case strings.Contains(l, "college"):
		return "college"
	case strings.Contains(l, "hospital"):
		return "hospital"
	case strings.Contains(l, "county"):
		return "county"
	case strings.Contains(l, "special"):
		return "special_district"
	case strings.Contains(l, "city"):
		return "city"
	}
	return ""
}

// ParseDetail assembles the full account record from the fetched pages.
// Missing sections are tolerated: their names land in Warnings and the
// corresponding record fields hold defaults.
func ParseDetail(ctx context.Context, accountID string, pages DetailPages) (*DetailRecord, error) {
	_, span := tracer.Start(ctx, "ParseDetail")
	defer span.End()
	span.SetAttributes(attribute.String("dcad.account_id", accountID))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pages.Account.HTML))
	if err != nil {
		return nil, fmt.Errorf("parsing account page: %w", err)
	}

	rec := &DetailRecord{AccountID: accountID}

	rec.TaxYear = parseTaxYear(doc)
	rec.PropertyLocation = parsePropertyLocation(doc)
	rec.Owner = parseOwner(doc)
	rec.LegalDescription = parseLegalDescription(doc)
	rec.ValueSummary = parseValueSummary(doc)
	rec.ArbHearing = parseArbHearing(doc)

	primary, warnings := parsePrimaryImprovements(doc)
	rec.PrimaryImprovements = primary
	rec.Warnings = append(rec.Warnings, warnings...)

	rec.SecondaryImprovements = parseSecondaryImprovements(doc)
	rec.LandDetail = parseLandDetail(doc)

	exemptions, ok := parseExemptions(doc)
	rec.Exemptions = exemptions
	if !ok {
		rec.Warnings = append(rec.Warnings, "exemptions")
	}

	taxes, total, ok := parseEstimatedTaxes(doc)
	rec.EstimatedTaxes = taxes
	rec.EstimatedTaxesTotal = total
	if !ok {
		rec.Warnings = append(rec.Warnings, "estimated_taxes")
	}

	if pages.History.HTML != "" {
		history, err := ParseHistory(pages.History.HTML)
		if err != nil {
			rec.Warnings = append(rec.Warnings, "history")
		} else {
			rec.History = history
		}
	}
	if pages.ExemptionDetails.HTML != "" {
		rec.ExemptionDetails = ParseExemptionDetails(pages.ExemptionDetails.HTML)
	}
	if pages.ExemptionDetailsHistory.HTML != "" {
		rec.ExemptionsTable = ParseExemptionDetailsHistory(pages.ExemptionDetailsHistory.HTML)
	}

	return rec, nil
}

func parseTaxYear(doc *goquery.Document) *int64 {
	var year *int64
	doc.Find("span, b, strong, h2, h3, td, th").
		EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := htmlutil.CellText(s)
			if !strings.Contains(strings.ToLower(text), "certified values") {
				return true
			}
			if m := yearRegex.FindString(text); m != "" {
				v, _ := strconv.ParseInt(m, 10, 64)
				year = &v
				return false
			}
			return true
		})
	return year
}

// ------------------------------------------------------------
// Location / owner / legal / value summary
// ------------------------------------------------------------

var (
	bldgTokenRegex  = regexp.MustCompile(`(?i)\bBldg:\s*\S+`)
	suiteTokenRegex = regexp.MustCompile(`(?i)\s*(?:Suite|Ste)\s*[:.]?\s*`)
	strayCommaRegex = regexp.MustCompile(`\s+,\s+`)
	addressIDHints  = []string{"propaddr", "situs", "siteaddr", "lblsitus"}
)

func parsePropertyLocation(doc *goquery.Document) PropertyLocation {
	textByID := func(id string) string {
		return htmlutil.CellText(doc.Find("#" + id).First())
	}

	address := ""
	if el := doc.Find("#PropAddr1_lblPropAddr").First(); el.Length() > 0 {
		raw := htmlutil.CellText(el)
		// drop the building identifier, keep the suite
		raw = bldgTokenRegex.ReplaceAllString(raw, "")
		raw = suiteTokenRegex.ReplaceAllString(raw, ", Suite ")
		raw = strayCommaRegex.ReplaceAllString(raw, ", ")
		address = strings.Trim(textutil.Clean(raw), " ,")
	}
	if address == "" {
		doc.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			id, _ := s.Attr("id")
			lowered := strings.ToLower(id)
			for _, hint := range addressIDHints {
				if strings.Contains(lowered, hint) {
					address = htmlutil.CellText(s)
					return address == ""
				}
			}
			return true
		})
	}

	return PropertyLocation{
		Address:      address,
		Neighborhood: textByID("lblNbhd"),
		Mapsco:       textByID("lblMapsco"),
	}
}

var (
	ownerHeaderRegex = regexp.MustCompile(`(?i)owner name\s*ownership\s*%.*$`)
	zipRegex         = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	stateRegex       = regexp.MustCompile(`(?i)\b(tx|texas|[A-Z]{2})\b`)
	streetNumRegex   = regexp.MustCompile(`^\s*\d+\s+`)
	streetWordRegex  = regexp.MustCompile(`\b(apt|unit|#|ct|ln|rd|dr|st|ave|blvd|hwy|pkwy|cir|trl|way|lane|drive|court|road)\b`)
	digitRegex       = regexp.MustCompile(`\d`)
)

func looksLikeCoOwner(s string) bool {
	return !digitRegex.MatchString(s) &&
		!strings.Contains(s, ",") &&
		!zipRegex.MatchString(s) &&
		len(s) <= 40
}

func looksLikeMailingLine(s string) bool {
	lowered := strings.ToLower(s)
	for _, label := range []string{
		"multi-owner", "owner name", "ownership %", "application received",
		"hs application", "ownership", "owner(",
	} {
		if strings.Contains(lowered, label) {
			return false
		}
	}
	return stateRegex.MatchString(s) ||
		zipRegex.MatchString(s) ||
		streetNumRegex.MatchString(s) ||
		streetWordRegex.MatchString(lowered) ||
		strings.Contains(s, ",")
}

// parseOwner walks the loose markup after the owner label: the name and
// mailing address are bare text nodes and spans, terminated by the
// multi-owner grid or the next section header.
func parseOwner(doc *goquery.Document) Owner {
	out := Owner{OwnerName: "N/A"}

	ownerSpan := doc.Find("#lblOwner").First()
	var lines []string
	if ownerSpan.Length() > 0 {
		for node := ownerSpan.Nodes[0].NextSibling; node != nil; node = node.NextSibling {
			sel := doc.FindNodes(node)
			if goquery.NodeName(sel) == "table" {
				if id, _ := sel.Attr("id"); id == "MultiOwner1_dgmultiOwner" {
					break
				}
			}
			if sel.HasClass("DtlSectionHdr") {
				break
			}
			text := textutil.Clean(htmlutil.GetText(node))
			if text == "" {
				continue
			}
			lowered := strings.ToLower(text)
			if strings.Contains(lowered, "multi-owner") {
				break
			}
			if strings.Contains(lowered, "owner name") && strings.Contains(lowered, "ownership") {
				break
			}
			lines = append(lines, text)
		}
	}

	if len(lines) > 0 {
		name := strings.Trim(ownerHeaderRegex.ReplaceAllString(lines[0], ""), ", ")
		rest := lines[1:]
		if len(rest) > 0 && looksLikeCoOwner(rest[0]) {
			name = textutil.Clean(name + " " + rest[0])
			rest = rest[1:]
		}
		if name != "" {
			out.OwnerName = name
		}

		var addrLines []string
		for _, line := range rest {
			if looksLikeMailingLine(line) {
				addrLines = append(addrLines, line)
			}
		}
		if len(addrLines) > 0 {
			joined := strings.ReplaceAll(strings.Join(addrLines, ", "), " ,", ",")
			out.MailingAddress = strings.Trim(textutil.Clean(joined), ", ")
		}
	}

	doc.Find("#MultiOwner1_dgmultiOwner tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := allCellTexts(row.Find("td"))
		if len(cells) >= 2 {
			out.MultiOwner = append(out.MultiOwner, OwnerShare{
				OwnerName:    orNA(cells[0]),
				OwnershipPct: orNA(cells[1]),
			})
		}
	})

	return out
}

func parseLegalDescription(doc *goquery.Document) LegalDescription {
	var out LegalDescription
	for i := 1; i <= 7; i++ {
		line := htmlutil.CellText(doc.Find(fmt.Sprintf("#LegalDesc1_lblLegal%d", i)).First())
		if line != "" {
			out.Lines = append(out.Lines, line)
		}
	}
	out.DeedTransferDate = htmlutil.CellText(doc.Find("#LegalDesc1_lblSaleDate").First())
	return out
}

func parseValueSummary(doc *goquery.Document) ValueSummary {
	out := ValueSummary{TaxAgent: "N/A"}

	tbl := doc.Find("#tblValueSum").First()
	text := func(sel string) string {
		return htmlutil.CellText(tbl.Find(sel).First())
	}

	if m := yearRegex.FindString(text("#ValueSummary1_lblApprYr")); m != "" {
		v, _ := strconv.ParseInt(m, 10, 64)
		out.CertifiedYear = &v
	}

	out.ImprovementValue = decPtr(text("#ValueSummary1_lblImpVal"))

	landText := text("#ValueSummary1_pnlValue_lblLandVal")
	if landText == "" {
		landText = text("#ValueSummary1_lblLandVal")
	}
	out.LandValue = decPtr(landText)

	marketText := text("#ValueSummary1_pnlValue_lblTotalVal")
	if marketText == "" {
		marketText = text("#ValueSummary1_lblTotalVal")
	}
	out.MarketValue = decPtr(marketText)

	tbl.Find("tr").Each(func(_ int, row *goquery.Selection) {
		rowText := strings.ToLower(htmlutil.CellText(row))
		value := row.Find(".FieldValue").First()
		if value.Length() == 0 {
			return
		}
		if out.CappedValue == nil && strings.Contains(rowText, "capped value") {
			out.CappedValue = decPtr(htmlutil.CellText(value))
		}
		if out.TaxAgent == "N/A" && strings.Contains(rowText, "tax agent") {
			if agent := htmlutil.CellText(value); agent != "" {
				out.TaxAgent = agent
			}
		}
	})

	out.RevaluationYear = intPtr(text("#ValueSummary1_lblRevalYr"))
	out.PreviousRevaluationYear = intPtr(text("#ValueSummary1_lblPrevRevalYr"))

	// the page omits land value on some revisions; it is recoverable
	// exactly as market minus improvement
	if out.LandValue == nil && out.MarketValue != nil && out.ImprovementValue != nil {
		derived := out.MarketValue.Sub(*out.ImprovementValue)
		if !derived.IsNegative() {
			out.LandValue = &derived
		}
	}

	return out
}

func parseArbHearing(doc *goquery.Document) ArbHearing {
	return ArbHearing{
		HearingInfo: htmlutil.CellText(doc.Find("#lblHearingDate").First()),
	}
}

// ------------------------------------------------------------
// Improvements
// ------------------------------------------------------------

func headingPatterns(phrases ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(phrases))
	for _, p := range phrases {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(p)))
	}
	return out
}

var mainImprovementSpec = SectionSpec{
	Name:             "Main Improvement",
	HeaderIDPrefixes: []string{"lblmainimp"},
	HeadingPatterns: headingPatterns(
		"main improvement", "main building", "primary improvement",
		"residential improvements", "building information",
		"improvements - main", "res improvements", "primary building",
	),
	Vocabulary: []string{
		"year built", "effective year built", "yr built", "eff yr",
		"living area", "total living area", "total area",
		"stories", "desirability", "construction", "foundation",
		"roof type", "roof material", "exterior", "ext. wall",
		"baths", "bedrooms", "basement",
	},
	MinHits: 3,
	Exclude: isLandLikeTable,
}

var additionalImprovementsSpec = SectionSpec{
	Name:             "Additional Improvements",
	TableIDs:         []string{"ResImp1_dgImp"},
	HeaderIDPrefixes: []string{"lbladdimp"},
	HeadingPatterns: headingPatterns(
		"additional improvements", "other improvements",
		"outbuildings", "secondary improvements",
	),
	Vocabulary: []string{
		"imp", "improvement", "type", "desc", "area", "size",
		"value", "depr", "year", "stories", "wall", "floor", "construction",
	},
	MinHits: 3,
	Exclude: isLandLikeTable,
}

func parsePrimaryImprovements(doc *goquery.Document) (PrimaryImprovements, []string) {
	match, found := Locate(doc, mainImprovementSpec)
	if !found {
		return PrimaryImprovements{}, []string{"primary_improvements"}
	}
	var warnings []string
	if match.Ambiguous {
		warnings = append(warnings, "primary_improvements:ambiguous")
	}

	kv := KeyValues(match.Table)
	get := func(matchers ...string) string {
		v, _ := Value(kv, matchers...)
		return v
	}

	out := PrimaryImprovements{
		BuildingClass: get("building class"),

		YearBuilt:          intPtr(get("year built", "yr built", "built")),
		EffectiveYearBuilt: intPtr(get("effective year built", "eff year built", "eff yr")),

		Desirability:   get("desirability"),
		DesirabilityID: intPtr(get("desirability id", "desirability code")),

		LivingAreaSqft:  sqftPtr(get("living area", "liv area", "area living")),
		TotalLivingArea: sqftPtr(get("total living area", "total liv area", "living area total")),
		TotalAreaSqft:   sqftPtr(get("total area", "area total")),

		PercentComplete: decPtr(get("% complete", "percent complete", "complete %")),
		Depreciation:    pctPtr(get("depreciation", "depr %", "depreciation %")),

		ConstructionType: get("construction type", "constr type", "construction"),
		Foundation:       get("foundation", "found type"),
		RoofType:         get("roof type", "type roof"),
		RoofMaterial:     get("roof material", "material roof"),
		FenceType:        get("fence type", "type fence"),
		ExteriorMaterial: get("ext. wall material", "exterior wall material", "exterior"),
		Heating:          get("heating", "heat type"),
		AirConditioning:  get("air condition", "air conditioning", "ac type"),

		BedroomCount: intPtr(get("# bedrooms", "bedrooms", "bed rooms", "bed room", "bedroom")),
		Kitchens:     intPtr(get("# kitchens", "kitchens")),
		Wetbars:      intPtr(get("# wet bars", "wet bars")),
		Fireplaces:   intPtr(get("# fireplaces", "fireplaces")),

		Basement:  normalize.ToTriState(get("basement")),
		Sprinkler: normalize.ToTriState(get("sprinkler")),
		Deck:      normalize.ToTriState(get("deck")),
		Spa:       normalize.ToTriState(get("spa")),
		Pool:      normalize.ToTriState(get("pool")),
		Sauna:     normalize.ToTriState(get("sauna")),
	}

	// "Actual Age" sometimes carries trailing text; pull the first number
	if raw := get("actual age", "age"); raw != "" {
		out.ActualAge = intPtr(integerRegex.FindString(raw))
	}

	storiesText := get("# stories", "stories")
	out.StoriesRaw = storiesText
	if v, ok := normalize.StoriesToNumber(storiesText); ok {
		out.Stories = &v
	}

	// baths appear combined ("2 / 1") or as separate full/half fields
	if combined := get("# baths (full/half)"); combined != "" {
		parts := strings.Split(strings.ReplaceAll(combined, " ", ""), "/")
		if len(parts) == 2 {
			out.BathsFull = floatPtr(parts[0])
			out.BathsHalf = floatPtr(parts[1])
		}
	}
	if out.BathsFull == nil {
		out.BathsFull = floatPtr(get("# baths (full)", "baths full", "full baths"))
	}
	if out.BathsHalf == nil {
		out.BathsHalf = floatPtr(get("# baths (half)", "baths half", "half baths"))
	}

	// older revisions label the total ambiguously; backfill the chain
	if out.TotalLivingArea == nil {
		out.TotalLivingArea = out.TotalAreaSqft
	}
	if out.TotalLivingArea == nil {
		out.TotalLivingArea = out.LivingAreaSqft
	}

	return out, warnings
}

func parseSecondaryImprovements(doc *goquery.Document) []SecondaryImprovement {
	match, found := Locate(doc, additionalImprovementsSpec)
	if !found || isNavLikeTable(match.Table) {
		return nil
	}

	headers := gridHeaders(match.Table)
	headerLine := strings.ToLower(strings.Join(headers, " | "))
	for _, w := range navWords {
		if strings.Contains(headerLine, w) {
			return nil
		}
	}

	iNum := HeaderIndex(headers, "imp #", "imp#", "imp no", "number", "#")
	iType := HeaderIndex(headers, "type")
	iDesc := HeaderIndex(headers, "desc")
	iYear := HeaderIndex(headers, "year")
	iCon := HeaderIndex(headers, "construction", "constr")
	iFloor := HeaderIndex(headers, "floor")
	iWall := HeaderIndex(headers, "ext wall", "exterior wall", "ext. wall", "wall")
	iStories := HeaderIndex(headers, "stories", "# stories")
	iArea := HeaderIndex(headers, "area size", "area", "sq ft", "sqft", "size")
	iValue := HeaderIndex(headers, "value")
	iDepr := HeaderIndex(headers, "depr", "depreciation")

	var out []SecondaryImprovement
	for _, row := range GridRows(match.Table) {
		flat := strings.ToLower(strings.Join(row, " "))
		skip := false
		for _, w := range navWords {
			if strings.Contains(flat, w) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		number, ok := normalize.ToInteger(Cell(row, iNum))
		if !ok {
			continue
		}

		imp := SecondaryImprovement{
			ImpNum:       strconv.FormatInt(number, 10),
			ImpType:      orNA(Cell(row, iType)),
			ImpDesc:      Cell(row, iDesc),
			YearBuilt:    intPtr(Cell(row, iYear)),
			Construction: orNA(Cell(row, iCon)),
			FloorType:    orNA(Cell(row, iFloor)),
			ExtWall:      orNA(Cell(row, iWall)),
			NumStories:   floatPtr(Cell(row, iStories)),
			AreaSqft:     sqftPtr(Cell(row, iArea)),
			Value:        decPtr(Cell(row, iValue)),
			Depreciation: Cell(row, iDepr),
		}
		out = append(out, imp)
	}
	return out
}

// ------------------------------------------------------------
// Land
// ------------------------------------------------------------

var landSpec = SectionSpec{
	Name:             "Land",
	TableIDs:         []string{"Land1_dgLand"},
	HeaderIDPrefixes: []string{"lblland"},
	HeadingPatterns:  headingPatterns("land"),
}

func parseLandDetail(doc *goquery.Document) []LandLine {
	match, found := Locate(doc, landSpec)
	if !found {
		return nil
	}

	var out []LandLine
	for _, row := range GridRows(match.Table) {
		if len(row) < 11 {
			continue
		}

		line := LandLine{
			Number:              intPtr(row[0]),
			StateCode:           orNA(row[1]),
			Zoning:              orNA(row[2]),
			FrontageFt:          floatPtr(row[3]),
			DepthFt:             floatPtr(row[4]),
			PricingMethod:       orNA(row[6]),
			UnitPrice:           orNA(row[7]),
			MarketAdjustmentPct: orNA(row[8]),
			AdjustedPrice:       orNA(row[9]),
		}

		// area cell reads like "7,500 Sq. Ft"; only the leading token
		// is the number
		area := 0.0
		if fields := strings.Fields(row[5]); len(fields) > 0 {
			if v, ok := normalize.ToSqft(fields[0]); ok {
				area = v
			}
		}
		line.AreaSqft = &area

		if row[10] == "" {
			line.AgLand = normalize.Unknown
		} else {
			line.AgLand = normalize.ToTriState(row[10])
		}

		out = append(out, line)
	}
	return out
}

// ------------------------------------------------------------
// Exemptions / estimated taxes
// ------------------------------------------------------------

var exemptionsSpec = SectionSpec{
	Name:             "Exemptions",
	HeaderIDPrefixes: []string{"lblexempt"},
	HeadingPatterns:  headingPatterns("exemptions"),
}

func emptyExemptionEntry() ExemptionEntry {
	return ExemptionEntry{
		TaxingJurisdiction: "N/A",
		HomesteadExemption: "N/A",
		TaxableValue:       "N/A",
	}
}

// parseExemptions reads the transposed exemptions table: jurisdictions
// run across the columns and the three attributes run down the rows.
func parseExemptions(doc *goquery.Document) (map[string]ExemptionEntry, bool) {
	out := map[string]ExemptionEntry{}
	for _, j := range Jurisdictions {
		out[j] = emptyExemptionEntry()
	}

	match, found := Locate(doc, exemptionsSpec)
	if !found {
		return out, false
	}
	table := match.Table

	// some revisions wrap the real grid in a layout table
	hasCityHeader := false
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		if strings.EqualFold(htmlutil.CellText(th), "city") {
			hasCityHeader = true
		}
	})
	if !hasCityHeader {
		if nested := table.Find("table").First(); nested.Length() > 0 {
			table = nested
		}
	}

	rows := table.Find("tr")
	if rows.Length() < 3 {
		return out, false
	}

	headers := allCellTexts(rows.First().Find("th, td"))
	if len(headers) < 2 {
		return out, false
	}
	colHeaders := headers[1:]

	rowCells := func(i int) []string {
		return allCellTexts(rows.Eq(i).Find("td"))
	}
	jurisdictionRow := rowCells(1)
	homesteadRow := rowCells(2)

	var taxableRow []string
	rows.Each(func(i int, row *goquery.Selection) {
		if i < 3 || taxableRow != nil {
			return
		}
		if strings.Contains(strings.ToLower(htmlutil.CellText(row)), "taxable value") {
			taxableRow = allCellTexts(row.Find("td"))
		}
	})

	for i, col := range colHeaders {
		key := canonicalJurisdiction(col)
		if key == "" {
			key = strings.ReplaceAll(textutil.NormalizeLabel(col), " ", "_")
		}
		if key == "" {
			continue
		}
		out[key] = ExemptionEntry{
			TaxingJurisdiction: orNA(Cell(jurisdictionRow, i)),
			HomesteadExemption: orNA(Cell(homesteadRow, i)),
			TaxableValue:       orNA(Cell(taxableRow, i)),
		}
	}
	return out, true
}

var estimatedTaxesSpec = SectionSpec{
	Name:             "Estimated Taxes",
	HeaderIDPrefixes: []string{"lblesttax"},
	HeadingPatterns:  headingPatterns("estimated taxes"),
}

func emptyEstimatedTax() EstimatedTax {
	return EstimatedTax{
		TaxingUnit:     "N/A",
		TaxRatePer100:  "N/A",
		TaxableValue:   "N/A",
		EstimatedTaxes: "N/A",
		TaxCeiling:     "N/A",
	}
}

func parseEstimatedTaxes(doc *goquery.Document) (map[string]EstimatedTax, *decimal.Decimal, bool) {
	out := map[string]EstimatedTax{}
	for _, j := range Jurisdictions {
		out[j] = emptyEstimatedTax()
	}

	match, found := Locate(doc, estimatedTaxesSpec)
	if !found {
		return out, nil, false
	}

	rows := match.Table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Find("th, td").Length() > 0
	})
	if rows.Length() < 3 {
		return out, nil, false
	}

	totalText := htmlutil.CellText(doc.Find("#TaxEst1_lblTotalTax").First())

	headers := allCellTexts(rows.First().Find("th, td"))
	if len(headers) < 2 {
		return out, nil, false
	}
	colHeaders := headers[1:]

	namedRows := map[string][]string{}
	rows.Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		flat := strings.ToLower(htmlutil.CellText(row))
		if strings.Contains(flat, "total estimated taxes") {
			if totalText == "" {
				cells := allCellTexts(row.Find("td, th"))
				if len(cells) > 0 {
					totalText = cells[len(cells)-1]
				}
			}
			return
		}
		label := strings.ToUpper(htmlutil.CellText(row.Find("th").First()))
		if label != "" {
			namedRows[label] = allCellTexts(row.Find("td"))
		}
	})

	rowVals := func(names ...string) []string {
		for _, n := range names {
			if v := namedRows[n]; len(v) > 0 {
				return v
			}
		}
		return nil
	}

	taxingUnits := rowVals("TAXING JURISDICTION")
	rates := rowVals("TAX RATE PER $100", "TAX RATE PER $100.00", "TAX RATE")
	taxable := rowVals("TAXABLE VALUE", "TAXABLE VALUES")
	estimated := rowVals("ESTIMATED TAXES", "ESTIMATED TAX")
	ceilings := rowVals("TAX CEILING", "TAX CEILINGS")

	for i, col := range colHeaders {
		key := canonicalJurisdiction(col)
		if key == "" {
			key = "city"
		}
		out[key] = EstimatedTax{
			TaxingUnit:     orNA(Cell(taxingUnits, i)),
			TaxRatePer100:  orNA(Cell(rates, i)),
			TaxableValue:   orNA(Cell(taxable, i)),
			EstimatedTaxes: orNA(Cell(estimated, i)),
			TaxCeiling:     orNA(Cell(ceilings, i)),
		}
	}

	return out, decPtr(totalText), true
}
