package dcad

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func docFromString(t testing.TB, html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestKeyValuesLayouts(t *testing.T) {
	doc := docFromString(t, `
		<table>
			<tr><td>Building Class: R1</td></tr>
			<tr><td>Year Built</td><td>1984</td></tr>
			<tr>
				<td class="FieldName">Foundation</td><td class="FieldValue">SLAB</td>
				<td class="FieldName">Roof Type</td><td class="FieldValue">GABLE</td>
			</tr>
			<tr><td>Pool</td><td>Y</td><td>Spa</td><td>N</td></tr>
		</table>`)

	kv := KeyValues(doc.Find("table").First())
	require.Equal(t, "R1", kv["building class"])
	require.Equal(t, "1984", kv["year built"])
	require.Equal(t, "SLAB", kv["foundation"])
	require.Equal(t, "GABLE", kv["roof type"])
	require.Equal(t, "Y", kv["pool"])
	require.Equal(t, "N", kv["spa"])
}

func TestKeyValuesFirstWins(t *testing.T) {
	doc := docFromString(t, `
		<table>
			<tr><td>Pool</td><td>Y</td></tr>
			<tr><td>Pool</td><td>N</td></tr>
		</table>`)

	kv := KeyValues(doc.Find("table").First())
	require.Equal(t, "Y", kv["pool"])
}

func TestKeyValuesStripsTrailingColon(t *testing.T) {
	doc := docFromString(t, `
		<table><tr><td>Heating:</td><td>CENTRAL</td></tr></table>`)

	kv := KeyValues(doc.Find("table").First())
	require.Equal(t, "CENTRAL", kv["heating"])
}

func TestValueAliases(t *testing.T) {
	kv := map[string]string{
		"eff year built": "1990",
		"# stories":      "TWO",
	}

	v, ok := Value(kv, "effective year built", "eff year built")
	require.True(t, ok)
	require.Equal(t, "1990", v)

	// substring fallback for drifted labels
	v, ok = Value(kv, "stories")
	require.True(t, ok)
	require.Equal(t, "TWO", v)

	_, ok = Value(kv, "basement")
	require.False(t, ok)
}

func TestHeaderIndex(t *testing.T) {
	headers := []string{"Imp #", "Type", "Description", "Year Built", "Area Size", "Value"}

	require.Equal(t, 0, HeaderIndex(headers, "imp #"))
	require.Equal(t, 2, HeaderIndex(headers, "desc"))
	require.Equal(t, 4, HeaderIndex(headers, "area size", "area"))
	require.Equal(t, -1, HeaderIndex(headers, "depreciation"))
}

func TestHeaderIndexFuzzyBackstop(t *testing.T) {
	// renamed column that no substring matcher catches
	headers := []string{"Year", "Taxable Val"}
	require.Equal(t, 1, HeaderIndex(headers, "taxable value"))
}

func TestGridRowsPreservesEmptyCells(t *testing.T) {
	doc := docFromString(t, `
		<table>
			<tr><th>Imp #</th><th>Type</th><th>Value</th></tr>
			<tr><td>1</td><td></td><td>$5,000</td></tr>
			<tr><td></td><td></td><td></td></tr>
		</table>`)

	rows := GridRows(doc.Find("table").First())
	require.Len(t, rows, 1)
	require.Equal(t, []string{"1", "", "$5,000"}, rows[0])
}

func TestGridRowsHeaderlessTable(t *testing.T) {
	doc := docFromString(t, `
		<table>
			<tr><td>Year</td><td>Land</td></tr>
			<tr><td>2024</td><td>$100,000</td></tr>
		</table>`)

	rows := GridRows(doc.Find("table").First())
	require.Len(t, rows, 1)
	require.Equal(t, "2024", rows[0][0])
}

func TestCellOutOfRange(t *testing.T) {
	row := []string{"a", "b"}
	require.Equal(t, "a", Cell(row, 0))
	require.Equal(t, "", Cell(row, 5))
	require.Equal(t, "", Cell(row, -1))
}
