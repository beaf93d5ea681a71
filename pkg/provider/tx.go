package provider

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/metrics"
)

// Tx is a transaction shared by several provider calls. The caller that
// began it decides whether to Commit or Rollback. Work queued by providers
// (change events, cache invalidation) runs only after a successful Commit.
type Tx struct {
	tx    *sql.Tx
	db    *sql.DB
	label string

	mu          sync.Mutex
	done        bool
	afterCommit []func(ctx context.Context)
}

// Begin starts a transaction on db that can be handed to any provider using db
func Begin(ctx context.Context, db *sql.DB) (*Tx, error) {
	return begin(ctx, db, "shared")
}

func begin(ctx context.Context, db *sql.DB, label string) (*Tx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db, label: label}, nil
}

// Commit commits the transaction and then runs the queued work
func (t *Tx) Commit() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return ErrTransactionDone
	}
	t.done = true
	hooks := t.afterCommit
	t.afterCommit = nil
	t.mu.Unlock()

	if err := t.tx.Commit(); err != nil {
		metrics.GetProvider().RecordTransaction(t.label, "commit_failed")
		return err
	}
	metrics.GetProvider().RecordTransaction(t.label, "commit")

	if len(hooks) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, hook := range hooks {
			hook(ctx)
		}
	}
	return nil
}

// Rollback aborts the transaction and drops the queued work. Rolling back
// a finished transaction is a no-op.
func (t *Tx) Rollback() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	t.done = true
	t.afterCommit = nil
	t.mu.Unlock()

	metrics.GetProvider().RecordTransaction(t.label, "rollback")
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		logger.Warn("Rollback of %s transaction failed: %v", t.label, err)
		return err
	}
	return nil
}

// Done reports whether Commit or Rollback was called
func (t *Tx) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// onCommit queues fn to run after a successful commit
func (t *Tx) onCommit(fn func(ctx context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.afterCommit = append(t.afterCommit, fn)
}

// usableWith reports whether t is a live transaction on db
func (t *Tx) usableWith(db *sql.DB) bool {
	if t == nil || t.tx == nil || t.db != db {
		return false
	}
	return !t.Done()
}
