package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Record struct {
	AccountID string
	Payload   string
	FetchedAt int64
}

const getRecord = `
select account_id, payload, fetched_at from records where account_id = ?
`

func (q *Queries) GetRecord(ctx context.Context, accountID string) (Record, error) {
	row := q.db.QueryRowContext(ctx, getRecord, accountID)
	var r Record
	err := row.Scan(&r.AccountID, &r.Payload, &r.FetchedAt)
	return r, err
}

type UpsertRecordParams struct {
	AccountID string
	Payload   string
	FetchedAt int64
}

const upsertRecord = `
insert into records (account_id, payload, fetched_at)
values (?, ?, ?)
on conflict (account_id) do update set
    payload = excluded.payload,
    fetched_at = excluded.fetched_at
`

func (q *Queries) UpsertRecord(ctx context.Context, arg UpsertRecordParams) error {
	_, err := q.db.ExecContext(ctx, upsertRecord, arg.AccountID, arg.Payload, arg.FetchedAt)
	return err
}

const deleteRecordsBefore = `
delete from records where fetched_at < ?
`

func (q *Queries) DeleteRecordsBefore(ctx context.Context, fetchedAt int64) error {
	_, err := q.db.ExecContext(ctx, deleteRecordsBefore, fetchedAt)
	return err
}

const listAccountIds = `
select account_id from records order by account_id
`

func (q *Queries) ListAccountIds(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listAccountIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type UpsertFetchFailureParams struct {
	AccountID string
	Message   string
	FailedAt  int64
}

const upsertFetchFailure = `
insert into fetch_failures (account_id, message, failed_at)
values (?, ?, ?)
on conflict (account_id) do update set
    message = excluded.message,
    failed_at = excluded.failed_at
`

func (q *Queries) UpsertFetchFailure(ctx context.Context, arg UpsertFetchFailureParams) error {
	_, err := q.db.ExecContext(ctx, upsertFetchFailure, arg.AccountID, arg.Message, arg.FailedAt)
	return err
}

const deleteFetchFailure = `
delete from fetch_failures where account_id = ?
`

func (q *Queries) DeleteFetchFailure(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, deleteFetchFailure, accountID)
	return err
}
