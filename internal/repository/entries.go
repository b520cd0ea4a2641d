// Package repository provides the SQL-backed local entry store together with
// the persisted sync watermark.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/bodylog/internal/db"
	"github.com/atinyakov/bodylog/internal/models"
	"github.com/lib/pq"
)

// watermarkKey is the sync_state row holding the highest synced entry id.
const watermarkKey = "last_synced_id"

// SQLEntryRepository stores entries in the entries table and the sync
// watermark in sync_state. Queries are written with $N placeholders and
// rewritten for SQLite.
type SQLEntryRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB      *sql.DB
	dialect string
}

// NewSQLEntryRepository creates a new SQLEntryRepository using the provided *sql.DB.
// conn must already hold the schema created by db.Open.
//
//	conn:    open database handle
//	dialect: db.DialectSQLite or db.DialectPostgres
func NewSQLEntryRepository(conn *sql.DB, dialect string) *SQLEntryRepository {
	return &SQLEntryRepository{DB: conn, dialect: dialect}
}

func (r *SQLEntryRepository) q(query string) string {
	if r.dialect == db.DialectSQLite {
		// SQLite understands ?NNN as a numbered parameter.
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrStorage, err)
}

// Insert stores e in the entries table. The id field of e is ignored; the
// database assigns the next id, which is never reused.
//
//	ctx: context for cancellation and deadlines
//	e:   entry to store
//
// Returns the assigned id, or an error wrapping models.ErrStorage.
func (r *SQLEntryRepository) Insert(ctx context.Context, e models.Entry) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, r.q(`
		INSERT INTO entries (date, weight, waist, height, ratio)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`), e.Date.UTC().Format(models.DateLayout), e.Weight, e.Waist, e.Height, e.Ratio).Scan(&id)
	if err != nil {
		return 0, storageErr("insert entry", err)
	}
	return id, nil
}

// ListAll fetches every stored entry in storage order.
//
//	ctx: context for cancellation and deadlines
//
// Returns a non-nil slice of models.Entry, or an error wrapping
// models.ErrStorage if the query, scanning or date parsing fails.
func (r *SQLEntryRepository) ListAll(ctx context.Context) ([]models.Entry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, date, weight, waist, height, ratio FROM entries`)
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var (
			e    models.Entry
			date string
		)
		if err := rows.Scan(&e.ID, &date, &e.Weight, &e.Waist, &e.Height, &e.Ratio); err != nil {
			return nil, storageErr("scan entry", err)
		}
		if e.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
			return nil, storageErr(fmt.Sprintf("parse date of entry %d", e.ID), err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list entries", err)
	}
	return entries, nil
}

// DeleteMany removes the entries with the given ids in one statement.
// Unknown ids are ignored and an empty list is a no-op.
//
//	ctx: context for cancellation and deadlines
//	ids: identifiers of the entries to remove
//
// Returns an error wrapping models.ErrStorage if the statement fails.
func (r *SQLEntryRepository) DeleteMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.deleteMany(ctx, r.DB, ids); err != nil {
		return storageErr("delete entries", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLEntryRepository) deleteMany(ctx context.Context, ex execer, ids []int64) error {
	if r.dialect == db.DialectPostgres {
		_, err := ex.ExecContext(ctx, `DELETE FROM entries WHERE id = ANY($1)`, pq.Array(ids))
		return err
	}

	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	_, err := ex.ExecContext(ctx, `DELETE FROM entries WHERE id IN (`+strings.Join(marks, ", ")+`)`, args...)
	return err
}

// LoadWatermark retrieves the highest entry id already accepted by the sheet.
// If the watermark was never saved, it returns 0.
//
//	ctx: context for cancellation and deadlines
//
// Returns the watermark, or an error wrapping models.ErrStorage if the query fails.
func (r *SQLEntryRepository) LoadWatermark(ctx context.Context) (int64, error) {
	var v int64
	err := r.DB.QueryRowContext(ctx, r.q(`SELECT value FROM sync_state WHERE key = $1`), watermarkKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("load watermark", err)
	}
	return v, nil
}

// SaveWatermark inserts or overwrites the persisted watermark.
//
//	ctx: context for cancellation and deadlines
//	v:   new watermark value
//
// Returns an error wrapping models.ErrStorage if the upsert fails.
func (r *SQLEntryRepository) SaveWatermark(ctx context.Context, v int64) error {
	if err := r.saveWatermark(ctx, r.DB, v); err != nil {
		return storageErr("save watermark", err)
	}
	return nil
}

func (r *SQLEntryRepository) saveWatermark(ctx context.Context, ex execer, v int64) error {
	_, err := ex.ExecContext(ctx, r.q(`
		INSERT INTO sync_state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`), watermarkKey, v)
	return err
}

// PurgeAndAdvance deletes ids and stores watermark in a single transaction,
// so a crash cannot leave the entries gone with the watermark behind.
//
//	ctx:       context for cancellation and deadlines
//	ids:       identifiers of the entries the sheet accepted
//	watermark: highest id of the accepted batch
//
// Returns an error wrapping models.ErrStorage if any statement or the commit fails.
func (r *SQLEntryRepository) PurgeAndAdvance(ctx context.Context, ids []int64, watermark int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback()

	if len(ids) > 0 {
		if err := r.deleteMany(ctx, tx, ids); err != nil {
			return storageErr("delete entries", err)
		}
	}
	if err := r.saveWatermark(ctx, tx, watermark); err != nil {
		return storageErr("save watermark", err)
	}
	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}
