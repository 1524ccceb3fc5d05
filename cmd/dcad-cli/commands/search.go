package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"dcad-backend/lib/scrapers/dcad"
)

var searchCity *string
var searchDirection *string

func init() {
	searchCity = searchCmd.Flags().String("city", "", "City to restrict the search to.")
	searchDirection = searchCmd.Flags().String("direction", "", "Street direction (N, S, E, W).")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <address>",
	Short: "Searches properties by street address and prints the matching accounts.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := newScrapeClient()

		rows, err := client.SearchAddress(cmd.Context(), dcad.SearchQuery{
			Query:     args[0],
			City:      *searchCity,
			Direction: *searchDirection,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Account", "Address", "City", "Owner", "Total Value", "Type"})

		for _, r := range rows {
			t.AppendRow(table.Row{
				r.AccountID, r.Address, r.City, r.Owner, r.TotalValue, r.PropertyType,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
