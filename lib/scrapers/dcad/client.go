package dcad

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"dcad-backend/lib/telemetry"
)

const DefaultBaseURL = "https://www.dallascad.org"

const (
	accountDetailPath        = "/AcctDetailRes.aspx"
	accountHistoryPath       = "/AcctHistory.aspx"
	exemptDetailsPath        = "/ExemptDetails.aspx"
	exemptDetailsHistoryPath = "/ExemptDetailHistory.aspx"
	addressSearchPath        = "/SearchAddr.aspx"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// UpstreamError is a non-2xx response from the appraisal district site
// that survived the retry policy.
type UpstreamError struct {
	StatusCode int
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d for %s", e.StatusCode, e.URL)
}

// RawPage is a fetched HTML document plus the URL it came from. It is
// consumed once by the parsing layer and never persisted.
type RawPage struct {
	HTML string
	URL  string
}

var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:    true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:         true,
	http.StatusServiceUnavailable: true,
	http.StatusGatewayTimeout:     true,
}

type Client struct {
	BaseURL string
	Http    *resty.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseURL
	BaseURL string
	// requests per second against the upstream server, defaults to 2
	RequestsPerSecond float64
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetTimeout(time.Second * 30)

	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.9")
	client.SetHeader("Referer", baseURL+"/")

	// up to 3 attempts with exponential backoff starting at 0.6s,
	// GET only: re-POSTing a form against the stateful server could
	// duplicate side effects
	client.SetRetryCount(2)
	client.SetRetryWaitTime(600 * time.Millisecond)
	client.SetRetryMaxWaitTime(5 * time.Second)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if res != nil && res.Request != nil && res.Request.Method != http.MethodGet {
			return false
		}
		if err != nil {
			return true
		}
		return retryStatuses[res.StatusCode()]
	})

	rateLimiter := rate.NewLimiter(rate.Limit(rps), 2)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, "dcad.lib.scrapers.dcad.http")

	return &Client{
		BaseURL: baseURL,
		Http:    client,
	}, nil
}

func (c *Client) getPage(ctx context.Context, path, accountID string) (RawPage, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("ID", accountID).
		Get(path)
	if err != nil {
		return RawPage{}, err
	}
	if !res.IsSuccess() {
		return RawPage{}, &UpstreamError{
			StatusCode: res.StatusCode(),
			URL:        res.Request.URL,
		}
	}
	return RawPage{
		HTML: string(res.Body()),
		URL:  res.Request.URL,
	}, nil
}

// AccountDetail fetches the residential account detail page.
func (c *Client) AccountDetail(ctx context.Context, accountID string) (RawPage, error) {
	return c.getPage(ctx, accountDetailPath, accountID)
}

// AccountHistory fetches the account history page.
func (c *Client) AccountHistory(ctx context.Context, accountID string) (RawPage, error) {
	return c.getPage(ctx, accountHistoryPath, accountID)
}

// ExemptionDetails fetches the exemption details page.
func (c *Client) ExemptionDetails(ctx context.Context, accountID string) (RawPage, error) {
	return c.getPage(ctx, exemptDetailsPath, accountID)
}

// ExemptionDetailsHistory fetches the exemption detail history page.
func (c *Client) ExemptionDetailsHistory(ctx context.Context, accountID string) (RawPage, error) {
	return c.getPage(ctx, exemptDetailsHistoryPath, accountID)
}

// FetchAccountPages retrieves everything needed for a full record. The
// detail page is required; the auxiliary pages are best effort since
// some accounts have no exemption pages at all. Fetches run
// sequentially, the rate limiter paces them regardless.
func (c *Client) FetchAccountPages(ctx context.Context, accountID string) (DetailPages, error) {
	var pages DetailPages
	var err error
	if pages.Account, err = c.AccountDetail(ctx, accountID); err != nil {
		return DetailPages{}, err
	}
	pages.History, _ = c.AccountHistory(ctx, accountID)
	pages.ExemptionDetails, _ = c.ExemptionDetails(ctx, accountID)
	pages.ExemptionDetailsHistory, _ = c.ExemptionDetailsHistory(ctx, accountID)
	return pages, nil
}
