package dcad

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocateByTableID(t *testing.T) {
	doc := docFromString(t, `
		<span class="DtlSectionHdr" id="lblLandHdr">Land</span>
		<table><tr><td>decoy</td><td>x</td></tr></table>
		<table id="Land1_dgLand"><tr><th>#</th><th>Zoning</th></tr></table>`)

	match, found := Locate(doc, landSpec)
	require.True(t, found)
	require.Equal(t, ByID, match.Strategy)
	id, _ := match.Table.Attr("id")
	require.Equal(t, "Land1_dgLand", id)
}

func TestLocateByHeaderSpanWhenIDMissing(t *testing.T) {
	doc := docFromString(t, `
		<span class="DtlSectionHdr" id="lblLandSection">Land</span>
		<table><tr><th>#</th><th>Zoning</th></tr><tr><td>1</td><td>R-7.5</td></tr></table>`)

	match, found := Locate(doc, landSpec)
	require.True(t, found)
	require.Equal(t, ByHeading, match.Strategy)
}

func TestLocateByHeadingText(t *testing.T) {
	doc := docFromString(t, `
		<b>Main Improvement</b>
		<table><tr><td>Year Built</td><td>1975</td></tr></table>`)

	match, found := Locate(doc, mainImprovementSpec)
	require.True(t, found)
	require.Equal(t, ByHeading, match.Strategy)
}

func TestLocateByRewordedHeading(t *testing.T) {
	// no configured phrase matches, similarity does
	doc := docFromString(t, `
		<b>Main Improvemnt</b>
		<table><tr><td>Year Built</td><td>1975</td></tr></table>`)

	match, found := Locate(doc, mainImprovementSpec)
	require.True(t, found)
	require.Equal(t, ByHeading, match.Strategy)
}

func TestLocateByContentScore(t *testing.T) {
	doc := docFromString(t, `
		<table><tr><td>Navigation</td><td>Links</td></tr></table>
		<table>
			<tr><td>Year Built</td><td>1962</td></tr>
			<tr><td>Foundation</td><td>PIER</td></tr>
			<tr><td># Bedrooms</td><td>3</td></tr>
			<tr><td>Total Living Area</td><td>1,500</td></tr>
		</table>`)

	match, found := Locate(doc, mainImprovementSpec)
	require.True(t, found)
	require.Equal(t, ByContentScore, match.Strategy)
	require.False(t, match.Ambiguous)
}

func TestLocateContentScoreTieIsAmbiguous(t *testing.T) {
	section := `
		<tr><td>Year Built</td><td>1962</td></tr>
		<tr><td>Foundation</td><td>PIER</td></tr>
		<tr><td># Bedrooms</td><td>3</td></tr>`
	doc := docFromString(t, `<table>`+section+`</table><p></p><table>`+section+`</table>`)

	match, found := Locate(doc, mainImprovementSpec)
	require.True(t, found)
	require.Equal(t, ByContentScore, match.Strategy)
	require.True(t, match.Ambiguous)

	// document order breaks the tie: the first table wins
	first := doc.Find("table").First()
	require.Equal(t, first.Nodes[0], match.Table.Nodes[0])
}

func TestLocateMissingSectionIsNotAnError(t *testing.T) {
	doc := docFromString(t, `<p>nothing here</p>`)
	_, found := Locate(doc, estimatedTaxesSpec)
	require.False(t, found)
}

func TestLocateSkipsNavAndLandTables(t *testing.T) {
	doc := docFromString(t, `
		<table><tr><th>Land</th><th>Acres</th><th>Frontage</th><th>Depth</th><th>Market Value</th></tr>
			<tr><td>1</td><td>0.2</td><td>60</td><td>120</td><td>$50,000</td></tr></table>
		<table>
			<tr><td>Year Built</td><td>1950</td></tr>
			<tr><td>Construction</td><td>FRAME</td></tr>
			<tr><td>Baths</td><td>2</td></tr>
		</table>`)

	match, found := Locate(doc, mainImprovementSpec)
	require.True(t, found)
	require.Equal(t, ByContentScore, match.Strategy)
	kv := KeyValues(match.Table)
	require.Equal(t, "1950", kv["year built"])
}
