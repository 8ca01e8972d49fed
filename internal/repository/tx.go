// Package repository provides the MySQL and in-memory implementations
// of the store contracts declared in the service package. The MySQL
// side follows the database/sql conventions used across this codebase:
// plain handles for reads, explicit transactions for multi-step
// mutations, and single-statement conditional updates for counters.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-registration/internal/service"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Store queries are written against it so the same code serves plain
// reads and transaction-scoped mutation.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStores implements service.Stores over MySQL. A value built on a
// *sql.DB serves non-transactional reads; RunInTx hands callers a value
// bound to the transaction instead.
type SQLStores struct {
	db     dbtx
	strict bool
}

// NewSQLStores returns a store set reading through db. strictCapacity
// selects hard capacity enforcement in the ledger.
func NewSQLStores(db *sql.DB, strictCapacity bool) *SQLStores {
	return &SQLStores{db: db, strict: strictCapacity}
}

func (s *SQLStores) Events() service.EventStore               { return &EventSQL{db: s.db} }
func (s *SQLStores) Applicants() service.ApplicantStore       { return &ApplicantSQL{db: s.db} }
func (s *SQLStores) Confirmations() service.ConfirmationStore { return &ConfirmationSQL{db: s.db} }
func (s *SQLStores) Ledger() service.CapacityLedger           { return &LedgerSQL{db: s.db, strict: s.strict} }

// defaultTxTimeout bounds a mutation transaction when the caller's
// context carries no deadline. Every operation here is a short sequence
// of reads and writes; anything longer is stuck.
const defaultTxTimeout = 5 * time.Second

// SQLTx implements service.StoreTx over a MySQL transaction. If fn
// returns an error the transaction is rolled back, so a confirmation
// row and its counter mutation land together or not at all.
type SQLTx struct {
	db      *sql.DB
	strict  bool
	timeout time.Duration
}

// NewSQLTx returns a transaction runner on db.
func NewSQLTx(db *sql.DB, strictCapacity bool) *SQLTx {
	return &SQLTx{db: db, strict: strictCapacity}
}

// RunInTx begins a transaction, runs fn with a transaction-scoped store
// set and commits; any error from fn rolls everything back. Row locks
// taken by counter updates are held only for the duration of this one
// call, never across a bulk batch.
func (t *SQLTx) RunInTx(ctx context.Context, fn func(s service.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(&SQLStores{db: tx, strict: t.strict}); err != nil {
		return err
	}
	return tx.Commit()
}
