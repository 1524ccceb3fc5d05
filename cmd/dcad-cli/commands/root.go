package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dcad-backend/lib/scrapers/dcad"
	"dcad-backend/lib/serviceutil"
)

var baseURL *string
var requestsPerSecond *float64

var rootCmd = &cobra.Command{
	Use:   "dcad-cli",
	Short: "dcad-cli searches and fetches appraisal district property records.",
}

func init() {
	baseURL = rootCmd.PersistentFlags().String(
		"base-url", dcad.DefaultBaseURL,
		"Base URL of the appraisal district site.",
	)
	requestsPerSecond = rootCmd.PersistentFlags().Float64(
		"rps", 2,
		"Requests per second against the upstream server.",
	)
}

func newScrapeClient() *dcad.Client {
	client, err := dcad.NewClient(dcad.ClientOptions{
		BaseURL:           *baseURL,
		RequestsPerSecond: *requestsPerSecond,
	})
	if err != nil {
		serviceutil.Fatal("failed to create scrape client", err)
	}
	return client
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
