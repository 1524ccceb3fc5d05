package appraisal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dcad-backend/lib/scrapers/dcad"
	"dcad-backend/services/appraisal/db"
)

var tracer = otel.Tracer("services/appraisal")

type Options struct {
	// serve a cached record without refetching while it is younger
	// than this; zero means cached records never expire
	MaxAge time.Duration
	// number of accounts fetched concurrently by FetchMany
	FetchWidth int
	// timeout applied to each account fetch inside FetchMany
	FetchTimeout time.Duration
}

type Service struct {
	db      *sql.DB
	qry     *db.Queries
	scraper *dcad.Client
	opts    Options
}

func NewService(database *sql.DB, scraper *dcad.Client, opts Options) Service {
	if opts.FetchWidth <= 0 {
		opts.FetchWidth = 6
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Second * 30
	}
	return Service{
		db:      database,
		qry:     db.New(database),
		scraper: scraper,
		opts:    opts,
	}
}

func (s Service) cachedRecord(ctx context.Context, accountID string) (*dcad.DetailRecord, time.Time, error) {
	row, err := s.qry.GetRecord(ctx, accountID)
	if err != nil {
		return nil, time.Time{}, err
	}
	var record dcad.DetailRecord
	err = json.Unmarshal([]byte(row.Payload), &record)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decode cached record: %w", err)
	}
	return &record, time.Unix(row.FetchedAt, 0), nil
}

func (s Service) storeRecord(ctx context.Context, record *dcad.DetailRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	err = s.qry.UpsertRecord(ctx, db.UpsertRecordParams{
		AccountID: record.AccountID,
		Payload:   string(payload),
		FetchedAt: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return s.qry.DeleteFetchFailure(ctx, record.AccountID)
}

func (s Service) fetchRecord(ctx context.Context, accountID string) (*dcad.DetailRecord, error) {
	pages, err := s.scraper.FetchAccountPages(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return dcad.ParseDetail(ctx, accountID, pages)
}

// GetDetail returns the assembled record for an account, serving from
// the store when a fresh enough copy exists. On upstream failure a
// stale cached copy is still served; the failure is recorded.
func (s Service) GetDetail(ctx context.Context, accountID string, refresh bool) (*dcad.DetailRecord, error) {
	ctx, span := tracer.Start(ctx, "GetDetail")
	defer span.End()

	accountID, err := dcad.NormalizeAccountID(accountID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("account_id", accountID))

	cached, fetchedAt, cacheErr := s.cachedRecord(ctx, accountID)
	if cacheErr == nil && !refresh {
		if s.opts.MaxAge <= 0 || time.Since(fetchedAt) < s.opts.MaxAge {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return cached, nil
		}
	}
	if cacheErr != nil && !errors.Is(cacheErr, sql.ErrNoRows) {
		slog.Warn("failed to read record cache", "account_id", accountID, "err", cacheErr)
	}

	record, err := s.fetchRecord(ctx, accountID)
	if err != nil {
		span.RecordError(err)
		failErr := s.qry.UpsertFetchFailure(ctx, db.UpsertFetchFailureParams{
			AccountID: accountID,
			Message:   err.Error(),
			FailedAt:  time.Now().Unix(),
		})
		if failErr != nil {
			slog.Warn("failed to record fetch failure", "account_id", accountID, "err", failErr)
		}
		if cacheErr == nil {
			slog.Warn("serving stale record after fetch failure", "account_id", accountID, "err", err)
			span.SetAttributes(attribute.Bool("stale", true))
			return cached, nil
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	err = s.storeRecord(ctx, record)
	if err != nil {
		slog.Warn("failed to store record", "account_id", accountID, "err", err)
	}
	return record, nil
}

// GetHistory returns just the history series for an account,
// through the same cache as GetDetail.
func (s Service) GetHistory(ctx context.Context, accountID string, refresh bool) (*dcad.HistoryRecord, error) {
	ctx, span := tracer.Start(ctx, "GetHistory")
	defer span.End()

	record, err := s.GetDetail(ctx, accountID, refresh)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if record.History == nil {
		return &dcad.HistoryRecord{}, nil
	}
	return record.History, nil
}

func (s Service) Search(ctx context.Context, q dcad.SearchQuery) ([]dcad.SearchResultRow, error) {
	ctx, span := tracer.Start(ctx, "Search")
	defer span.End()

	span.SetAttributes(attribute.String("query", q.Query))

	rows, err := s.scraper.SearchAddress(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("result_count", len(rows)))
	return rows, nil
}

// CachedAccounts lists the account ids currently held in the store.
func (s Service) CachedAccounts(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "CachedAccounts")
	defer span.End()

	ids, err := s.qry.ListAccountIds(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return ids, nil
}

// PruneExpired drops records older than MaxAge. A no-op when records
// never expire.
func (s Service) PruneExpired(ctx context.Context) error {
	if s.opts.MaxAge <= 0 {
		return nil
	}
	ctx, span := tracer.Start(ctx, "PruneExpired")
	defer span.End()

	cutoff := time.Now().Add(-s.opts.MaxAge).Unix()
	err := s.qry.DeleteRecordsBefore(ctx, cutoff)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

type FetchResult struct {
	AccountID string
	Record    *dcad.DetailRecord
	Err       error
}

// FetchMany retrieves many accounts concurrently under a bounded pool.
// One account failing does not abort the rest; results come back in
// input order.
func (s Service) FetchMany(ctx context.Context, accountIDs []string, refresh bool) []FetchResult {
	ctx, span := tracer.Start(ctx, "FetchMany")
	defer span.End()

	span.SetAttributes(attribute.Int("account_count", len(accountIDs)))

	results := make([]FetchResult, len(accountIDs))
	sem := make(chan struct{}, s.opts.FetchWidth)
	var wg sync.WaitGroup

	for i, id := range accountIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = FetchResult{AccountID: id, Err: ctx.Err()}
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
			defer cancel()

			record, err := s.GetDetail(callCtx, id, refresh)
			results[i] = FetchResult{AccountID: id, Record: record, Err: err}
		}(i, id)
	}
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("failed_count", failed))
	return results
}
