package dcad

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"

	"dcad-backend/lib/htmlutil"
	"dcad-backend/lib/textutil"
)

// pagination ceiling, the site never legitimately serves this many
// pages for one street search
const maxSearchPages = 200

var (
	houseNumberRegex = regexp.MustCompile(`^\s*(\d+)\s+(.+)$`)
	postbackRegex    = regexp.MustCompile(`__doPostBack\('([^']+)'`)
)

// aspnetTokenNames are the hidden form fields a stateful postback must
// echo back verbatim. Tokens are single-use: each response carries the
// set valid for the next request only.
var aspnetTokenNames = []string{
	"__VIEWSTATE", "__VIEWSTATEGENERATOR", "__EVENTVALIDATION",
	"__EVENTTARGET", "__EVENTARGUMENT",
}

// ExtractPostbackTokens pulls the hidden state fields out of a page.
// Target and argument default to empty strings when absent.
func ExtractPostbackTokens(doc *goquery.Document) map[string]string {
	out := map[string]string{
		"__EVENTTARGET":   "",
		"__EVENTARGUMENT": "",
	}
	for _, name := range aspnetTokenNames {
		el := doc.Find(`input[name="` + name + `"]`).First()
		if v, exists := el.Attr("value"); exists {
			out[name] = v
		}
	}
	return out
}

// SearchQuery is one address search. Query holds "1234 Elm St" style
// input; the house number is split off automatically when present.
type SearchQuery struct {
	Query     string
	City      string
	Direction string
}

func findNextPostback(doc *goquery.Document) string {
	target := ""
	doc.Find(`a[href^="javascript:__doPostBack"]`).
		EachWithBreak(func(_ int, a *goquery.Selection) bool {
			text := strings.ToUpper(htmlutil.CellText(a))
			if !strings.Contains(text, "NEXT") && text != ">" && text != "»" {
				return true
			}
			href, _ := a.Attr("href")
			if m := postbackRegex.FindStringSubmatch(href); m != nil {
				target = m[1]
				return false
			}
			return true
		})
	return target
}

func looksLikeResultsTable(t *goquery.Selection) bool {
	header := t.Find("tr").First()
	if header.Length() == 0 {
		return false
	}
	text := strings.ToUpper(htmlutil.CellText(header))
	return (strings.Contains(text, "PROPERTY ADDRESS") && strings.Contains(text, "OWNER")) ||
		(strings.Contains(text, "TOTAL VALUE") && strings.Contains(text, "TYPE"))
}

// ParseSearchResults reads one page of the results grid. The account id
// comes from the detail link's query string, not from a cell, so column
// reshuffles cannot corrupt it.
func ParseSearchResults(doc *goquery.Document, baseURL string) []SearchResultRow {
	table := doc.Find("#SearchResults1_dgResults").First()
	if table.Length() == 0 {
		doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
			if looksLikeResultsTable(t) {
				table = t
				return false
			}
			return true
		})
	}
	if table.Length() == 0 {
		return nil
	}

	base, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil
	}

	var rows []SearchResultRow
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 6 {
			return
		}
		link := cells.Eq(1).Find("a[href]").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		detailURL := base.ResolveReference(ref)

		accountID := detailURL.Query().Get("ID")
		if accountID == "" {
			accountID = detailURL.Query().Get("id")
		}
		accountID = textutil.Clean(accountID)

		rows = append(rows, SearchResultRow{
			AccountID:    accountID,
			Address:      htmlutil.CellText(link),
			City:         htmlutil.CellText(cells.Eq(2)),
			Owner:        htmlutil.CellText(cells.Eq(3)),
			TotalValue:   htmlutil.CellText(cells.Eq(4)),
			PropertyType: htmlutil.CellText(cells.Eq(5)),
			DetailURL:    detailURL.String(),
		})
	})
	return rows
}

func (c *Client) postSearch(ctx context.Context, form map[string]string) (*goquery.Document, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		Post(addressSearchPath)
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, &UpstreamError{StatusCode: res.StatusCode(), URL: res.Request.URL}
	}
	return goquery.NewDocumentFromReader(strings.NewReader(string(res.Body())))
}

func pageSignature(rows []SearchResultRow, nextTarget string) string {
	first := ""
	if len(rows) > 0 {
		first = rows[0].AccountID
	}
	return fmt.Sprintf("%s|%d|%s", first, len(rows), nextTarget)
}

// SearchAddress runs a paged address search. The crawl is strictly
// sequential: every postback depends on tokens from the previous
// response. Results are de-duplicated by account id, first page wins.
func (c *Client) SearchAddress(ctx context.Context, q SearchQuery) ([]SearchResultRow, error) {
	ctx, span := tracer.Start(ctx, "SearchAddress")
	defer span.End()
	span.SetAttributes(attribute.String("dcad.search.query", q.Query))

	res, err := c.Http.R().SetContext(ctx).Get(addressSearchPath)
	if err != nil {
		return nil, err
	}
	if !res.IsSuccess() {
		return nil, &UpstreamError{StatusCode: res.StatusCode(), URL: res.Request.URL}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(res.Body())))
	if err != nil {
		return nil, fmt.Errorf("parsing search form: %w", err)
	}
	tokens := ExtractPostbackTokens(doc)

	house, street := "", strings.TrimSpace(q.Query)
	if m := houseNumberRegex.FindStringSubmatch(street); m != nil {
		house, street = m[1], m[2]
	}

	doc, err = c.postSearch(ctx, map[string]string{
		"__EVENTTARGET":        tokens["__EVENTTARGET"],
		"__EVENTARGUMENT":      tokens["__EVENTARGUMENT"],
		"__VIEWSTATE":          tokens["__VIEWSTATE"],
		"__VIEWSTATEGENERATOR": tokens["__VIEWSTATEGENERATOR"],
		"__EVENTVALIDATION":    tokens["__EVENTVALIDATION"],
		"txtAddrNum":           house,
		"txtStName":            street,
		"listStDir":            q.Direction,
		"listCity":             q.City,
		"cmdSubmit":            "Search",
	})
	if err != nil {
		return nil, err
	}

	var all []SearchResultRow
	seenPages := map[string]bool{}
	for page := 1; ; page++ {
		rows := ParseSearchResults(doc, c.BaseURL)
		all = append(all, rows...)

		if page >= maxSearchPages {
			break
		}
		nextTarget := findNextPostback(doc)
		if nextTarget == "" {
			break
		}

		// a page whose content and next-link repeat a previous page
		// means the pager is self-linking; following it would loop
		sig := pageSignature(rows, nextTarget)
		if seenPages[sig] {
			break
		}
		seenPages[sig] = true

		tokens = ExtractPostbackTokens(doc)
		doc, err = c.postSearch(ctx, map[string]string{
			"__EVENTTARGET":        nextTarget,
			"__EVENTARGUMENT":      "",
			"__VIEWSTATE":          tokens["__VIEWSTATE"],
			"__VIEWSTATEGENERATOR": tokens["__VIEWSTATEGENERATOR"],
			"__EVENTVALIDATION":    tokens["__EVENTVALIDATION"],
		})
		if err != nil {
			return nil, err
		}
	}

	seen := map[string]bool{}
	uniq := make([]SearchResultRow, 0, len(all))
	for _, row := range all {
		if row.AccountID == "" || seen[row.AccountID] {
			continue
		}
		seen[row.AccountID] = true
		uniq = append(uniq, row)
	}
	return uniq, nil
}
