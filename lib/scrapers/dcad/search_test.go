package dcad

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPostbackTokens(t *testing.T) {
	doc := docFromString(t, `
		<form>
			<input type="hidden" name="__VIEWSTATE" value="vs"/>
			<input type="hidden" name="__VIEWSTATEGENERATOR" value="gen"/>
			<input type="hidden" name="__EVENTVALIDATION" value="ev"/>
		</form>`)

	tokens := ExtractPostbackTokens(doc)
	require.Equal(t, "vs", tokens["__VIEWSTATE"])
	require.Equal(t, "gen", tokens["__VIEWSTATEGENERATOR"])
	require.Equal(t, "ev", tokens["__EVENTVALIDATION"])
	// absent target/argument default to empty, not missing
	require.Equal(t, "", tokens["__EVENTTARGET"])
	require.Equal(t, "", tokens["__EVENTARGUMENT"])
}

func TestFindNextPostback(t *testing.T) {
	doc := docFromString(t, `
		<a href="javascript:__doPostBack('grdResults$ctl54$ctl01','')">NEXT &gt;</a>`)
	require.Equal(t, "grdResults$ctl54$ctl01", findNextPostback(doc))

	doc = docFromString(t, `<a href="javascript:__doPostBack('grd$prev','')">&lt; PREV</a>`)
	require.Equal(t, "", findNextPostback(doc))
}

func TestParseSearchResultsHeuristicTable(t *testing.T) {
	doc := docFromString(t, `
		<table>
			<tr><th>#</th><th>Property Address</th><th>City</th><th>Owner</th><th>Total Value</th><th>Type</th></tr>
			<tr>
				<td>1</td>
				<td><a href="AcctDetailRes.aspx?ID=00000123456789012">7240 WAKE FOREST DR</a></td>
				<td>DALLAS</td><td>SMITH JOHN A</td><td>$475,500</td><td>Residential</td>
			</tr>
		</table>`)

	rows := ParseSearchResults(doc, DefaultBaseURL)
	require.Len(t, rows, 1)
	require.Equal(t, "00000123456789012", rows[0].AccountID)
	require.Equal(t, "7240 WAKE FOREST DR", rows[0].Address)
	require.Equal(t, "DALLAS", rows[0].City)
	require.Equal(t, "SMITH JOHN A", rows[0].Owner)
	require.Equal(t, "$475,500", rows[0].TotalValue)
	require.Equal(t, "Residential", rows[0].PropertyType)
	require.Equal(t, "https://www.dallascad.org/AcctDetailRes.aspx?ID=00000123456789012", rows[0].DetailURL)
}

func searchFormPage(viewstate string) string {
	return fmt.Sprintf(`<html><body><form id="Form1">
		<input type="hidden" name="__VIEWSTATE" value="%s"/>
		<input type="hidden" name="__VIEWSTATEGENERATOR" value="gen"/>
		<input type="hidden" name="__EVENTVALIDATION" value="ev-%s"/>
		<input type="text" name="txtAddrNum"/>
		<input type="text" name="txtStName"/>
	</form></body></html>`, viewstate, viewstate)
}

func resultsPage(viewstate, nextTarget string, accounts ...string) string {
	rows := ""
	for _, acc := range accounts {
		rows += fmt.Sprintf(`<tr>
			<td>x</td>
			<td><a href="AcctDetailRes.aspx?ID=%s">123 MAIN ST</a></td>
			<td>DALLAS</td><td>OWNER</td><td>$100,000</td><td>Residential</td>
		</tr>`, acc)
	}
	next := ""
	if nextTarget != "" {
		next = fmt.Sprintf(`<a href="javascript:__doPostBack('%s','')">NEXT</a>`, nextTarget)
	}
	return fmt.Sprintf(`<html><body><form id="Form1">
		<input type="hidden" name="__VIEWSTATE" value="%s"/>
		<input type="hidden" name="__VIEWSTATEGENERATOR" value="gen"/>
		<input type="hidden" name="__EVENTVALIDATION" value="ev-%s"/>
		<table id="SearchResults1_dgResults">
			<tr><th>#</th><th>Property Address</th><th>City</th><th>Owner</th><th>Total Value</th><th>Type</th></tr>
			%s
		</table>
		%s
	</form></body></html>`, viewstate, viewstate, rows, next)
}

const (
	acct1 = "00000000000000001"
	acct2 = "00000000000000002"
	acct3 = "00000000000000003"
	acct4 = "00000000000000004"
)

func TestSearchAddressPagedCrawl(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, searchFormPage("vs0"))
			return
		}
		require.NoError(t, r.ParseForm())
		switch {
		case r.PostFormValue("cmdSubmit") == "Search":
			// the search post must echo the form page's tokens
			require.Equal(t, "vs0", r.PostFormValue("__VIEWSTATE"))
			require.Equal(t, "ev-vs0", r.PostFormValue("__EVENTVALIDATION"))
			require.Equal(t, "7240", r.PostFormValue("txtAddrNum"))
			require.Equal(t, "WAKE FOREST DR", r.PostFormValue("txtStName"))
			require.Equal(t, "DALLAS", r.PostFormValue("listCity"))
			fmt.Fprint(w, resultsPage("vs1", "grd$page2", acct1, acct2))
		case r.PostFormValue("__EVENTTARGET") == "grd$page2":
			// each postback must carry the previous page's tokens
			require.Equal(t, "vs1", r.PostFormValue("__VIEWSTATE"))
			fmt.Fprint(w, resultsPage("vs2", "grd$page3", acct2, acct3))
		case r.PostFormValue("__EVENTTARGET") == "grd$page3":
			require.Equal(t, "vs2", r.PostFormValue("__VIEWSTATE"))
			fmt.Fprint(w, resultsPage("vs3", "", acct4))
		default:
			t.Errorf("unexpected postback: %v", r.PostForm)
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	rows, err := client.SearchAddress(context.Background(), SearchQuery{
		Query: "7240 Wake Forest Dr",
		City:  "DALLAS",
	})
	require.NoError(t, err)

	// union of all three pages, de-duplicated, first occurrence order
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.AccountID)
	}
	require.Equal(t, []string{acct1, acct2, acct3, acct4}, ids)
}

func TestSearchAddressSelfLinkingPagerTerminates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, searchFormPage("vs0"))
			return
		}
		// always the same page with a live NEXT link
		fmt.Fprint(w, resultsPage("vs1", "grd$next", acct1))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	rows, err := client.SearchAddress(context.Background(), SearchQuery{Query: "1 Elm St"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, acct1, rows[0].AccountID)
}

func TestSearchAddressHouseNumberSplit(t *testing.T) {
	var street, house string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, searchFormPage("vs0"))
			return
		}
		house = r.PostFormValue("txtAddrNum")
		street = r.PostFormValue("txtStName")
		fmt.Fprint(w, resultsPage("vs1", ""))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	_, err = client.SearchAddress(context.Background(), SearchQuery{Query: "Elm St"})
	require.NoError(t, err)
	require.Equal(t, "", house)
	require.Equal(t, "Elm St", street)

	_, err = client.SearchAddress(context.Background(), SearchQuery{Query: "500 Elm St"})
	require.NoError(t, err)
	require.Equal(t, "500", house)
	require.Equal(t, "Elm St", street)
}

func TestSearchAddressUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseURL: server.URL, RequestsPerSecond: 1000})
	require.NoError(t, err)

	_, err = client.SearchAddress(context.Background(), SearchQuery{Query: "1 Elm St"})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	require.Equal(t, http.StatusForbidden, upstream.StatusCode)
}
