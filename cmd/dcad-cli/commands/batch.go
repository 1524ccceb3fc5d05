package commands

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	configsqlite "dcad-backend/lib/configutil/sqlite"
	"dcad-backend/lib/serviceutil"
	"dcad-backend/services/appraisal"
	appraisaldb "dcad-backend/services/appraisal/db"
)

var batchDb *string
var batchWidth *int

func init() {
	batchDb = batchCmd.Flags().String("db", "records.db", "The database to write fetched records to.")
	batchWidth = batchCmd.Flags().Int("width", 6, "Number of accounts fetched concurrently.")
	rootCmd.AddCommand(batchCmd)
}

func readAccountIds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}

var batchCmd = &cobra.Command{
	Use:   "batch <path/to/account-ids.txt> [--db <path/to/records.db>]",
	Short: "Fetches a file of account ids through the bounded pool into a database.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ids, err := readAccountIds(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read account id file", err)
		}
		if len(ids) == 0 {
			slog.Info("no account ids to fetch")
			return
		}

		out, err := configsqlite.Struct{File: *batchDb}.OpenDB(appraisaldb.Schema)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer out.Close()

		service := appraisal.NewService(out, newScrapeClient(), appraisal.Options{
			FetchWidth: *batchWidth,
		})

		t1 := time.Now()
		results := service.FetchMany(cmd.Context(), ids, true)
		t2 := time.Now()

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				slog.Error("fetch failed", "account_id", r.AccountID, "err", r.Err)
			}
		}
		slog.Info(
			"batch fetch finished",
			"total", len(results),
			"failed", failed,
			"seconds", t2.Sub(t1).Seconds(),
		)
	},
}
