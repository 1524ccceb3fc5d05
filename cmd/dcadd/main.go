package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dcad-backend/lib/configutil"
	configsqlite "dcad-backend/lib/configutil/sqlite"
	"dcad-backend/lib/scrapers/dcad"
	"dcad-backend/lib/serviceutil"
	"dcad-backend/lib/telemetry"
	"dcad-backend/services/appraisal"
	appraisaldb "dcad-backend/services/appraisal/db"
)

type Config struct {
	Database configsqlite.Struct `json:"database"`
	Scraper  struct {
		BaseURL           string  `json:"base_url"`
		RequestsPerSecond float64 `json:"requests_per_second"`
	} `json:"scraper"`
	// record cache max age in hours, 0 means records never expire
	CacheMaxAgeHours int `json:"cache_max_age_hours"`
	Port             int `json:"port"`
}

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if config.Port == 0 {
		config.Port = 8400
	}

	db, err := config.Database.OpenDB(appraisaldb.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "dcadd")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	scraper, err := dcad.NewClient(dcad.ClientOptions{
		BaseURL:           config.Scraper.BaseURL,
		RequestsPerSecond: config.Scraper.RequestsPerSecond,
	})
	if err != nil {
		serviceutil.Fatal("failed to create scrape client", err)
	}

	service := appraisal.NewService(db, scraper, appraisal.Options{
		MaxAge: time.Duration(config.CacheMaxAgeHours) * time.Hour,
	})

	if config.CacheMaxAgeHours > 0 {
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := service.PruneExpired(ctx); err != nil {
						slog.Warn("failed to prune expired records", "err", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	mux := http.NewServeMux()
	appraisal.RegisterHandlers(mux, service)
	go serviceutil.StartHttpServer(config.Port, mux)

	<-ctx.Done()
}
