package dcad

import (
	"github.com/shopspring/decimal"

	"dcad-backend/lib/normalize"
)

// Jurisdictions is the canonical set of taxing authorities. Every
// jurisdiction-keyed map on a record contains all of these keys, with
// empty entries synthesized when the page omits one.
var Jurisdictions = []string{
	"city", "school", "county", "college", "hospital", "special_district",
}

type PropertyLocation struct {
	Address      string `json:"address"`
	Neighborhood string `json:"neighborhood"`
	Mapsco       string `json:"mapsco"`
}

type OwnerShare struct {
	OwnerName    string `json:"owner_name"`
	OwnershipPct string `json:"ownership_pct"`
}

type Owner struct {
	OwnerName      string       `json:"owner_name"`
	MailingAddress string       `json:"mailing_address"`
	MultiOwner     []OwnerShare `json:"multi_owner"`
}

type LegalDescription struct {
	Lines            []string `json:"lines"`
	DeedTransferDate string   `json:"deed_transfer_date"`
}

type ValueSummary struct {
	CertifiedYear           *int64           `json:"certified_year"`
	ImprovementValue        *decimal.Decimal `json:"improvement_value"`
	LandValue               *decimal.Decimal `json:"land_value"`
	MarketValue             *decimal.Decimal `json:"market_value"`
	CappedValue             *decimal.Decimal `json:"capped_value"`
	TaxAgent                string           `json:"tax_agent"`
	RevaluationYear         *int64           `json:"revaluation_year"`
	PreviousRevaluationYear *int64           `json:"previous_revaluation_year"`
}

// PrimaryImprovements is the main building's attribute block. Yes/no
// amenity flags are tri-state; descriptive fields that merely look
// boolean on the page (fence type, exterior material) stay text.
type PrimaryImprovements struct {
	BuildingClass string `json:"building_class"`

	YearBuilt          *int64 `json:"year_built"`
	EffectiveYearBuilt *int64 `json:"effective_year_built"`
	ActualAge          *int64 `json:"actual_age"`

	Desirability   string `json:"desirability"`
	DesirabilityID *int64 `json:"desirability_id"`

	LivingAreaSqft  *float64 `json:"living_area_sqft"`
	TotalAreaSqft   *float64 `json:"total_area_sqft"`
	TotalLivingArea *float64 `json:"total_living_area"`

	PercentComplete *decimal.Decimal `json:"percent_complete"`
	Depreciation    *decimal.Decimal `json:"depreciation"`

	Stories    *float64 `json:"stories"`
	StoriesRaw string   `json:"stories_raw"`

	ConstructionType string `json:"construction_type"`
	Foundation       string `json:"foundation"`
	RoofType         string `json:"roof_type"`
	RoofMaterial     string `json:"roof_material"`
	FenceType        string `json:"fence_type"`
	ExteriorMaterial string `json:"exterior_material"`
	Heating          string `json:"heating"`
	AirConditioning  string `json:"air_conditioning"`

	BathsFull    *float64 `json:"baths_full"`
	BathsHalf    *float64 `json:"baths_half"`
	BedroomCount *int64   `json:"bedroom_count"`
	Kitchens     *int64   `json:"kitchens"`
	Wetbars      *int64   `json:"wetbars"`
	Fireplaces   *int64   `json:"fireplaces"`

	Basement  normalize.TriState `json:"basement"`
	Sprinkler normalize.TriState `json:"sprinkler"`
	Deck      normalize.TriState `json:"deck"`
	Spa       normalize.TriState `json:"spa"`
	Pool      normalize.TriState `json:"pool"`
	Sauna     normalize.TriState `json:"sauna"`
}

type SecondaryImprovement struct {
	ImpNum       string           `json:"imp_num"`
	ImpType      string           `json:"imp_type"`
	ImpDesc      string           `json:"imp_desc"`
	YearBuilt    *int64           `json:"year_built"`
	Construction string           `json:"construction"`
	FloorType    string           `json:"floor_type"`
	ExtWall      string           `json:"ext_wall"`
	NumStories   *float64         `json:"num_stories"`
	AreaSqft     *float64         `json:"area_sqft"`
	Value        *decimal.Decimal `json:"value"`
	Depreciation string           `json:"depreciation"`
}

type LandLine struct {
	Number             *int64             `json:"number"`
	StateCode          string             `json:"state_code"`
	Zoning             string             `json:"zoning"`
	FrontageFt         *float64           `json:"frontage_ft"`
	DepthFt            *float64           `json:"depth_ft"`
	AreaSqft           *float64           `json:"area_sqft"`
	PricingMethod      string             `json:"pricing_method"`
	UnitPrice          string             `json:"unit_price"`
	MarketAdjustmentPct string            `json:"market_adjustment_pct"`
	AdjustedPrice      string             `json:"adjusted_price"`
	AgLand             normalize.TriState `json:"ag_land"`
}

// ExemptionEntry keeps display strings: exemption figures are served
// back to clients as seen on the page.
type ExemptionEntry struct {
	TaxingJurisdiction string `json:"taxing_jurisdiction"`
	HomesteadExemption string `json:"homestead_exemption"`
	TaxableValue       string `json:"taxable_value"`
}

type EstimatedTax struct {
	TaxingUnit    string `json:"taxing_unit"`
	TaxRatePer100 string `json:"tax_rate_per_100"`
	TaxableValue  string `json:"taxable_value"`
	EstimatedTaxes string `json:"estimated_taxes"`
	TaxCeiling    string `json:"tax_ceiling"`
}

type ArbHearing struct {
	HearingInfo string `json:"hearing_info"`
}

type ExemptionYearDetail struct {
	Year   int               `json:"year"`
	Fields map[string]string `json:"fields"`
}

// DetailRecord is the fully assembled account record.
type DetailRecord struct {
	AccountID string `json:"account_id"`
	TaxYear   *int64 `json:"tax_year"`

	PropertyLocation PropertyLocation `json:"property_location"`
	Owner            Owner            `json:"owner"`
	LegalDescription LegalDescription `json:"legal_description"`
	ValueSummary     ValueSummary     `json:"value_summary"`
	ArbHearing       ArbHearing       `json:"arb_hearing"`

	PrimaryImprovements   PrimaryImprovements    `json:"primary_improvements"`
	SecondaryImprovements []SecondaryImprovement `json:"secondary_improvements"`

	LandDetail []LandLine `json:"land_detail"`

	Exemptions          map[string]ExemptionEntry `json:"exemptions"`
	EstimatedTaxes      map[string]EstimatedTax   `json:"estimated_taxes"`
	EstimatedTaxesTotal *decimal.Decimal          `json:"estimated_taxes_total"`

	History          *HistoryRecord        `json:"history,omitempty"`
	ExemptionDetails map[string]string     `json:"exemption_details,omitempty"`
	ExemptionsTable  []ExemptionYearDetail `json:"exemptions_table,omitempty"`

	// names of sections that could not be located or were matched
	// ambiguously; empty means every section extracted cleanly
	Warnings []string `json:"warnings,omitempty"`
}

type OwnerSnapshot struct {
	Year                 int      `json:"year"`
	OwnerLines           []string `json:"owner_lines"`
	LegalDescriptionLines []string `json:"legal_description_lines"`
	DeedTransferDate     string   `json:"deed_transfer_date"`
	DeedTransferDateISO  string   `json:"deed_transfer_date_iso"`
}

type MarketValueSnapshot struct {
	Year            int    `json:"year"`
	Improvement     string `json:"improvement"`
	Land            string `json:"land"`
	TotalMarket     string `json:"total_market"`
	HomesteadCapped string `json:"homestead_capped"`
}

type TaxableValueSnapshot struct {
	Year            int    `json:"year"`
	City            string `json:"city"`
	School          string `json:"school"`
	County          string `json:"county"`
	College         string `json:"college"`
	Hospital        string `json:"hospital"`
	SpecialDistrict string `json:"special_district"`
}

type ExemptionYear struct {
	Year       int                       `json:"year"`
	Exemptions map[string]ExemptionEntry `json:"exemptions"`
}

// HistoryRecord holds the year-indexed time series from the account
// history page, each list sorted descending by year.
type HistoryRecord struct {
	OwnerHistory []OwnerSnapshot        `json:"owner_history"`
	MarketValue  []MarketValueSnapshot  `json:"market_value"`
	TaxableValue []TaxableValueSnapshot `json:"taxable_value"`
	Exemptions   []ExemptionYear        `json:"exemptions"`
}

type SearchResultRow struct {
	AccountID    string `json:"account_id"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Owner        string `json:"owner"`
	TotalValue   string `json:"total_value"`
	PropertyType string `json:"type"`
	DetailURL    string `json:"detail_url"`
}
