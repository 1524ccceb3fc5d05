package dcad

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"dcad-backend/lib/normalize"
)

const accountPageFixture = `
<html><body>
<form id="Form1" action="/AcctDetailRes.aspx?ID=00000123456789012">

<span class="DtlSectionHdr">2025 Certified Values</span>

<span id="PropAddr1_lblPropAddr">7240 WAKE FOREST DR Bldg: 2 Ste: 110</span>
<span id="lblNbhd">7D145</span>
<span id="lblMapsco">25-U</span>

<span id="lblOwner">Owner</span><br/>
SMITH JOHN A<br/>
&amp; SMITH JANE B<br/>
7240 WAKE FOREST DR<br/>
DALLAS, TX 75214-1234<br/>
<table id="MultiOwner1_dgmultiOwner">
	<tr><th>Owner Name</th><th>Ownership %</th></tr>
	<tr><td>SMITH JOHN A</td><td>50%</td></tr>
	<tr><td>SMITH JANE B</td><td>50%</td></tr>
</table>

<span id="LegalDesc1_lblLegal1">LAKEWOOD HEIGHTS</span>
<span id="LegalDesc1_lblLegal2">BLK 5/1964 LT 12</span>
<span id="LegalDesc1_lblSaleDate">6/15/2019</span>

<table id="tblValueSum">
	<tr><td><span id="ValueSummary1_lblApprYr">2025 Certified Values</span></td></tr>
	<tr><td>Improvement:</td><td><span id="ValueSummary1_lblImpVal">$354,000</span></td></tr>
	<tr><td>Market Value:</td><td><span id="ValueSummary1_pnlValue_lblTotalVal">$475,500</span></td></tr>
	<tr><td class="FieldTitle">Capped Value:</td><td class="FieldValue">$450,000</td></tr>
	<tr><td class="FieldTitle">Tax Agent:</td><td class="FieldValue">TAX ADVISORS LLC</td></tr>
	<tr><td>Revaluation Year:</td><td><span id="ValueSummary1_lblRevalYr">2025</span></td></tr>
</table>

<span id="lblHearingDate">ARB Hearing: 07/01/2025 8:00 AM</span>

<span class="DtlSectionHdr" id="lblMainImpHdr">Main Improvement</span>
<table>
	<tr><td>Building Class</td><td>R6</td><td>Year Built</td><td>1948</td></tr>
	<tr><td>Effective Year Built</td><td>1975</td><td>Actual Age</td><td>77 Years</td></tr>
	<tr><td>Total Living Area</td><td></td></tr>
	<tr><td>Total Area</td><td>2,115 Sqft</td></tr>
	<tr><td>% Complete</td><td>100%</td><td>Depreciation</td><td>25%</td></tr>
	<tr><td># Stories</td><td>ONE AND ONE HALF</td><td>Construction Type</td><td>FRAME</td></tr>
	<tr><td>Foundation</td><td>PIER &amp; BEAM</td><td>Roof Type</td><td>GABLE</td></tr>
	<tr><td>Roof Material</td><td>COMP SHINGLE</td><td>Fence Type</td><td>CHAIN LINK</td></tr>
	<tr><td>Ext. Wall Material</td><td>BRICK VENEER</td><td>Basement</td><td></td></tr>
	<tr><td>Heating</td><td>CENTRAL</td><td>Air Condition</td><td>CENTRAL</td></tr>
	<tr><td># Baths (Full/Half)</td><td>2 / 1</td><td># Bedrooms</td><td>3</td></tr>
	<tr><td># Kitchens</td><td>1</td><td># Fireplaces</td><td>1</td></tr>
	<tr><td>Sprinkler</td><td>N</td><td>Deck</td><td>Y</td></tr>
	<tr><td>Spa</td><td>NONE</td><td>Pool</td><td>Y</td></tr>
	<tr><td>Sauna</td><td>UNASSIGNED</td><td>Desirability</td><td>AVERAGE</td></tr>
</table>

<span class="DtlSectionHdr" id="lblAddImpHdr">Additional Improvements</span>
<table id="ResImp1_dgImp">
	<tr><th>Imp #</th><th>Type</th><th>Description</th><th>Year Built</th><th>Construction</th><th>Floor</th><th>Ext Wall</th><th>Stories</th><th>Area Size</th><th>Value</th><th>Depr</th></tr>
	<tr><td>2</td><td>GAR</td><td>DETACHED GARAGE</td><td>1950</td><td>FRAME</td><td>CONC</td><td>WOOD</td><td>1</td><td>440 Sqft</td><td>$8,000</td><td>45%</td></tr>
	<tr><td></td><td>totals</td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td><td></td></tr>
</table>

<span class="DtlSectionHdr" id="lblLandHdr">Land</span>
<table id="Land1_dgLand">
	<tr><th>#</th><th>State Code</th><th>Zoning</th><th>Frontage</th><th>Depth</th><th>Area</th><th>Pricing Method</th><th>Unit Price</th><th>Market Adjustment</th><th>Adjusted Price</th><th>Ag Land</th></tr>
	<tr><td>1</td><td>A1</td><td>R-7.5</td><td>60</td><td>145</td><td>8,700 Sq. Ft</td><td>SQFT</td><td>$14.00</td><td>0%</td><td>$14.00</td><td>N</td></tr>
</table>

<span class="DtlSectionHdr" id="lblExemptHdr">Exemptions</span>
<table>
	<tr><th></th><th>City</th><th>ISD</th><th>County</th><th>College</th><th>Hospital</th><th>Special District</th></tr>
	<tr><th>Taxing Jurisdiction</th><td>DALLAS</td><td>DALLAS ISD</td><td>DALLAS COUNTY</td><td>DALLAS COLLEGE</td><td>PARKLAND</td><td></td></tr>
	<tr><th>Homestead Exemption</th><td>20%</td><td>$100,000</td><td>20%</td><td>20%</td><td>20%</td><td></td></tr>
	<tr><th>Taxable Value</th><td>$360,000</td><td>$350,000</td><td>$360,000</td><td>$360,000</td><td>$360,000</td><td></td></tr>
</table>

<span class="DtlSectionHdr" id="lblEstTaxHdr">Estimated Taxes</span>
<table>
	<tr><th></th><th>City</th><th>ISD</th><th>County</th><th>College</th><th>Hospital</th><th>Special District</th></tr>
	<tr><th>Taxing Jurisdiction</th><td>DALLAS</td><td>DALLAS ISD</td><td>DALLAS COUNTY</td><td>DALLAS COLLEGE</td><td>PARKLAND</td><td>N/A</td></tr>
	<tr><th>Tax Rate Per $100</th><td>0.7357</td><td>1.0140</td><td>0.2157</td><td>0.1100</td><td>0.2195</td><td>N/A</td></tr>
	<tr><th>Taxable Value</th><td>$360,000</td><td>$350,000</td><td>$360,000</td><td>$360,000</td><td>$360,000</td><td>N/A</td></tr>
	<tr><th>Estimated Taxes</th><td>$2,648.52</td><td>$3,549.00</td><td>$776.52</td><td>$396.00</td><td>$790.20</td><td>N/A</td></tr>
	<tr><td colspan="7">Total Estimated Taxes: <span id="TaxEst1_lblTotalTax">$8,160.24</span></td></tr>
</table>

</form></body></html>`

func parseFixture(t *testing.T) *DetailRecord {
	rec, err := ParseDetail(context.Background(), "00000123456789012", DetailPages{
		Account: RawPage{HTML: accountPageFixture, URL: "https://www.dallascad.org/AcctDetailRes.aspx?ID=00000123456789012"},
	})
	require.NoError(t, err)
	return rec
}

func TestParseDetailLocationOwnerLegal(t *testing.T) {
	rec := parseFixture(t)

	require.Equal(t, int64(2025), *rec.TaxYear)
	require.Equal(t, "7240 WAKE FOREST DR, Suite 110", rec.PropertyLocation.Address)
	require.Equal(t, "7D145", rec.PropertyLocation.Neighborhood)
	require.Equal(t, "25-U", rec.PropertyLocation.Mapsco)

	require.Equal(t, "SMITH JOHN A & SMITH JANE B", rec.Owner.OwnerName)
	require.Contains(t, rec.Owner.MailingAddress, "7240 WAKE FOREST DR")
	require.Contains(t, rec.Owner.MailingAddress, "DALLAS, TX 75214-1234")
	require.Len(t, rec.Owner.MultiOwner, 2)
	require.Equal(t, "50%", rec.Owner.MultiOwner[0].OwnershipPct)

	require.Equal(t, []string{"LAKEWOOD HEIGHTS", "BLK 5/1964 LT 12"}, rec.LegalDescription.Lines)
	require.Equal(t, "6/15/2019", rec.LegalDescription.DeedTransferDate)
}

func TestParseDetailValueSummary(t *testing.T) {
	rec := parseFixture(t)
	vs := rec.ValueSummary

	require.Equal(t, int64(2025), *vs.CertifiedYear)
	require.True(t, vs.ImprovementValue.Equal(decimal.NewFromInt(354000)))
	require.True(t, vs.MarketValue.Equal(decimal.NewFromInt(475500)))
	require.True(t, vs.CappedValue.Equal(decimal.NewFromInt(450000)))
	require.Equal(t, "TAX ADVISORS LLC", vs.TaxAgent)
	require.Equal(t, int64(2025), *vs.RevaluationYear)

	// land value absent on the page, derived as market minus improvement
	require.NotNil(t, vs.LandValue)
	require.True(t, vs.LandValue.Equal(decimal.NewFromInt(121500)))
}

func TestParseDetailPrimaryImprovements(t *testing.T) {
	rec := parseFixture(t)
	pi := rec.PrimaryImprovements

	require.Equal(t, "R6", pi.BuildingClass)
	require.Equal(t, int64(1948), *pi.YearBuilt)
	require.Equal(t, int64(1975), *pi.EffectiveYearBuilt)
	require.Equal(t, int64(77), *pi.ActualAge)
	require.Equal(t, "AVERAGE", pi.Desirability)

	require.Equal(t, 2115.0, *pi.TotalAreaSqft)
	// backfilled from total area since the page left the field blank
	require.Equal(t, 2115.0, *pi.TotalLivingArea)

	require.Equal(t, "ONE AND ONE HALF", pi.StoriesRaw)
	require.Equal(t, 1.5, *pi.Stories)

	require.True(t, pi.PercentComplete.Equal(decimal.NewFromInt(100)))
	require.True(t, pi.Depreciation.Equal(decimal.NewFromInt(25)))

	require.Equal(t, 2.0, *pi.BathsFull)
	require.Equal(t, 1.0, *pi.BathsHalf)
	require.Equal(t, int64(3), *pi.BedroomCount)
	require.Equal(t, int64(1), *pi.Kitchens)
	require.Equal(t, int64(1), *pi.Fireplaces)

	require.Equal(t, "FRAME", pi.ConstructionType)
	require.Equal(t, "PIER & BEAM", pi.Foundation)
	require.Equal(t, "GABLE", pi.RoofType)
	require.Equal(t, "COMP SHINGLE", pi.RoofMaterial)
	require.Equal(t, "BRICK VENEER", pi.ExteriorMaterial)
	// descriptive field passes through, not coerced to yes/no
	require.Equal(t, "CHAIN LINK", pi.FenceType)

	require.Equal(t, normalize.No, pi.Sprinkler)
	require.Equal(t, normalize.Yes, pi.Deck)
	require.Equal(t, normalize.No, pi.Spa)
	require.Equal(t, normalize.Yes, pi.Pool)
	require.Equal(t, normalize.No, pi.Sauna)
	require.Equal(t, normalize.No, pi.Basement)

	require.Empty(t, rec.Warnings)
}

func TestParseDetailSecondaryImprovements(t *testing.T) {
	rec := parseFixture(t)

	require.Len(t, rec.SecondaryImprovements, 1)
	imp := rec.SecondaryImprovements[0]
	require.Equal(t, "2", imp.ImpNum)
	require.Equal(t, "GAR", imp.ImpType)
	require.Equal(t, "DETACHED GARAGE", imp.ImpDesc)
	require.Equal(t, int64(1950), *imp.YearBuilt)
	require.Equal(t, 440.0, *imp.AreaSqft)
	require.True(t, imp.Value.Equal(decimal.NewFromInt(8000)))
	require.Equal(t, "45%", imp.Depreciation)
}

func TestParseDetailLand(t *testing.T) {
	rec := parseFixture(t)

	require.Len(t, rec.LandDetail, 1)
	land := rec.LandDetail[0]
	require.Equal(t, int64(1), *land.Number)
	require.Equal(t, "A1", land.StateCode)
	require.Equal(t, "R-7.5", land.Zoning)
	require.Equal(t, 60.0, *land.FrontageFt)
	require.Equal(t, 145.0, *land.DepthFt)
	require.Equal(t, 8700.0, *land.AreaSqft)
	require.Equal(t, "SQFT", land.PricingMethod)
	require.Equal(t, normalize.No, land.AgLand)
}

func TestParseDetailExemptionsAndTaxes(t *testing.T) {
	rec := parseFixture(t)

	for _, j := range Jurisdictions {
		require.Contains(t, rec.Exemptions, j)
		require.Contains(t, rec.EstimatedTaxes, j)
	}

	require.Equal(t, "DALLAS ISD", rec.Exemptions["school"].TaxingJurisdiction)
	require.Equal(t, "$100,000", rec.Exemptions["school"].HomesteadExemption)
	require.Equal(t, "$350,000", rec.Exemptions["school"].TaxableValue)
	// empty column still yields a complete entry
	require.Equal(t, "N/A", rec.Exemptions["special_district"].TaxingJurisdiction)

	require.Equal(t, "0.7357", rec.EstimatedTaxes["city"].TaxRatePer100)
	require.Equal(t, "$3,549.00", rec.EstimatedTaxes["school"].EstimatedTaxes)
	require.Equal(t, "N/A", rec.EstimatedTaxes["school"].TaxCeiling)

	require.NotNil(t, rec.EstimatedTaxesTotal)
	require.True(t, rec.EstimatedTaxesTotal.Equal(decimal.RequireFromString("8160.24")))
}

func TestParseDetailMissingSectionsProduceWarnings(t *testing.T) {
	rec, err := ParseDetail(context.Background(), "00000123456789012", DetailPages{
		Account: RawPage{HTML: `<html><body><p>Account not found</p></body></html>`},
	})
	require.NoError(t, err)

	require.Contains(t, rec.Warnings, "primary_improvements")
	require.Contains(t, rec.Warnings, "exemptions")
	require.Contains(t, rec.Warnings, "estimated_taxes")
	require.Equal(t, "N/A", rec.Owner.OwnerName)
	for _, j := range Jurisdictions {
		require.Equal(t, "N/A", rec.Exemptions[j].TaxableValue)
	}
}
