// Package pgstore backs the document store with a single jsonb documents
// table in Postgres. Transactions run at serializable isolation and are
// retried on serialization failure, which gives the same all-or-nothing
// and conflict-retry semantics the services rely on.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Gagansidh-u/studio/internal/store"
	"github.com/Gagansidh-u/studio/pkg/logger"
)

const (
	defaultTxAttempts = 5
	pollInterval      = 500 * time.Millisecond

	transactionRollbackError = "error rolling back transaction"
)

type Pgstore struct {
	DB *sql.DB

	mu            sync.Mutex
	subs          []*subscription
	done          chan struct{}
	maxTxAttempts int
}

type subscription struct {
	collection string
	id         string
	lastSeen   int64
	fn         func(doc store.Doc, exists bool)
}

// New wraps the database handle. maxTxRetries bounds how often
// RunTransaction retries after a serialization failure; non-positive
// values fall back to the default.
func New(db *sql.DB, maxTxRetries int) *Pgstore {
	if maxTxRetries <= 0 {
		maxTxRetries = defaultTxAttempts
	}

	p := &Pgstore{DB: db, done: make(chan struct{}), maxTxAttempts: maxTxRetries}
	go p.poll()
	return p
}

func (p *Pgstore) Close() error {
	close(p.done)
	return p.DB.Close()
}

// EnsureSchema creates the documents table if it is missing.
func (p *Pgstore) EnsureSchema(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection text NOT NULL,
			id         text NOT NULL,
			version    bigint NOT NULL DEFAULT 1,
			data       jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, id)
		)`)
	if err != nil {
		return fmt.Errorf("error creating documents table: %w", err)
	}
	return nil
}

func (p *Pgstore) Get(ctx context.Context, collection, id string) (store.Doc, error) {
	row := p.DB.QueryRowContext(ctx,
		"SELECT version, data FROM documents WHERE collection = $1 AND id = $2", collection, id)

	var doc store.Doc
	doc.ID = id
	var data []byte
	if err := row.Scan(&doc.Version, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Doc{}, store.ErrNotFound
		}
		return store.Doc{}, fmt.Errorf("error fetching document: %w", err)
	}
	doc.Data = data

	return doc, nil
}

func (p *Pgstore) Set(ctx context.Context, collection, id string, data any) error {
	raw, err := store.Marshal(data)
	if err != nil {
		return err
	}

	_, err = p.DB.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = $3, version = documents.version + 1, updated_at = now()`,
		collection, id, []byte(raw))
	if err != nil {
		return fmt.Errorf("error writing document: %w", err)
	}

	return nil
}

func (p *Pgstore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	var data []byte
	err = tx.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE", collection, id).
		Scan(&data)
	if err != nil {
		rollback(tx)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("error fetching document for update: %w", err)
	}

	merged, err := store.MergeFields(data, fields)
	if err != nil {
		rollback(tx)
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE documents SET data = $3, version = version + 1, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, []byte(merged))
	if err != nil {
		rollback(tx)
		return fmt.Errorf("error updating document: %w", err)
	}

	if err = tx.Commit(); err != nil {
		rollback(tx)
		return fmt.Errorf("error committing transaction: %w", err)
	}

	return nil
}

func (p *Pgstore) Delete(ctx context.Context, collection, id string) error {
	_, err := p.DB.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	return nil
}

func (p *Pgstore) List(ctx context.Context, collection string) ([]store.Doc, error) {
	rows, err := p.DB.QueryContext(ctx,
		"SELECT id, version, data FROM documents WHERE collection = $1 ORDER BY id", collection)
	if err != nil {
		return nil, fmt.Errorf("error listing documents: %w", err)
	}
	defer func(rows *sql.Rows) {
		err := rows.Close()
		if err != nil {
			logger.Log.Error("error closing rows", logger.Error(err))
		}
	}(rows)

	var docs []store.Doc
	for rows.Next() {
		var doc store.Doc
		var data []byte
		if err := rows.Scan(&doc.ID, &doc.Version, &data); err != nil {
			return nil, fmt.Errorf("error scanning document: %w", err)
		}
		doc.Data = data
		docs = append(docs, doc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over documents: %w", err)
	}

	return docs, nil
}

// Subscribe polls the document version. Intermediate versions may be
// coalesced but delivery is always monotonic per document.
func (p *Pgstore) Subscribe(collection, id string, fn func(doc store.Doc, exists bool)) func() {
	sub := &subscription{collection: collection, id: id, lastSeen: -1, fn: fn}

	p.mu.Lock()
	p.subs = append(p.subs, sub)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		for i, s := range p.subs {
			if s == sub {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				break
			}
		}
	}
}

func (p *Pgstore) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.mu.Lock()
			subs := make([]*subscription, len(p.subs))
			copy(subs, p.subs)
			p.mu.Unlock()

			for _, sub := range subs {
				p.pollOne(sub)
			}
		}
	}
}

func (p *Pgstore) pollOne(sub *subscription) {
	doc, err := p.Get(context.Background(), sub.collection, sub.id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if sub.lastSeen > 0 {
				sub.lastSeen = 0
				sub.fn(store.Doc{ID: sub.id}, false)
			}
			return
		}
		logger.Log.Error("error polling document",
			logger.String("collection", sub.collection),
			logger.String("id", sub.id),
			logger.Error(err))
		return
	}

	if doc.Version != sub.lastSeen {
		sub.lastSeen = doc.Version
		sub.fn(doc, true)
	}
}

type pgTxn struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *pgTxn) Get(collection, id string) (store.Doc, error) {
	row := t.tx.QueryRowContext(t.ctx,
		"SELECT version, data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE",
		collection, id)

	var doc store.Doc
	doc.ID = id
	var data []byte
	if err := row.Scan(&doc.Version, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Doc{}, store.ErrNotFound
		}
		return store.Doc{}, fmt.Errorf("error fetching document: %w", err)
	}
	doc.Data = data

	return doc, nil
}

func (t *pgTxn) Set(collection, id string, data any) error {
	raw, err := store.Marshal(data)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = $3, version = documents.version + 1, updated_at = now()`,
		collection, id, []byte(raw))
	if err != nil {
		return fmt.Errorf("error writing document: %w", err)
	}

	return nil
}

func (t *pgTxn) Update(collection, id string, fields map[string]any) error {
	var data json.RawMessage
	doc, err := t.Get(collection, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err == nil {
		data = doc.Data
	}

	merged, err := store.MergeFields(data, fields)
	if err != nil {
		return err
	}

	return t.Set(collection, id, json.RawMessage(merged))
}

func (t *pgTxn) Delete(collection, id string) error {
	_, err := t.tx.ExecContext(t.ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return fmt.Errorf("error deleting document: %w", err)
	}
	return nil
}

func (p *Pgstore) RunTransaction(ctx context.Context, fn func(txn store.Txn) error) error {
	for attempt := 0; attempt < p.maxTxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		tx, err := p.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("error starting transaction: %w", err)
		}

		if err := fn(&pgTxn{ctx: ctx, tx: tx}); err != nil {
			rollback(tx)
			if isSerializationFailure(err) {
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			rollback(tx)
			if isSerializationFailure(err) {
				continue
			}
			return fmt.Errorf("error committing transaction: %w", err)
		}

		return nil
	}

	return store.ErrConflict
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// serialization_failure and deadlock_detected
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func rollback(tx *sql.Tx) {
	err := tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		logger.Log.Error(transactionRollbackError, logger.Error(err))
	}
}
