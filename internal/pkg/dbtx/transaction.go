// internal/pkg/dbtx/transaction.go
package dbtx

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"
)

const defaultTxTimeout = 15 * time.Second

type txKey struct{}

// txState is the open transaction plus the work waiting for its commit
type txState struct {
	tx *gorm.DB

	mu    sync.Mutex
	hooks []func(ctx context.Context)
}

func (s *txState) later(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

func (s *txState) runHooks(ctx context.Context) {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}

// TxFunc runs inside a unit of work. Repositories reached through ctx join the transaction.
type TxFunc func(ctx context.Context) error

// Transactor runs a function as a single atomic unit of work.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn TxFunc) error
}

// GormTransactor opens a gorm transaction and carries it in the context.
type GormTransactor struct {
	db      *gorm.DB
	timeout time.Duration
}

// NewGormTransactor creates a transactor over db
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db, timeout: defaultTxTimeout}
}

// WithinTransaction executes fn in a transaction. Nested calls reuse the outer
// transaction. Work registered with AfterCommit runs once it has committed.
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn TxFunc) error {
	if fn == nil {
		return errors.New("dbtx: transaction function is nil")
	}
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	txnCtx := ctx
	if t.timeout > 0 {
		deadline, hasDeadline := ctx.Deadline()
		if !hasDeadline || time.Until(deadline) > t.timeout {
			var cancel context.CancelFunc
			txnCtx, cancel = context.WithTimeout(ctx, t.timeout)
			defer cancel()
		}
	}

	state := &txState{}
	err := t.db.WithContext(txnCtx).Transaction(func(tx *gorm.DB) error {
		state.tx = tx
		return fn(context.WithValue(txnCtx, txKey{}, state))
	})
	if err != nil {
		return err
	}
	state.runHooks(ctx)
	return nil
}

// AfterCommit defers fn until the transaction carried by ctx commits; fn is
// dropped on rollback. Without a transaction in ctx it runs immediately.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.later(fn)
		return
	}
	fn(ctx)
}

// Conn returns the transaction carried by ctx, or db bound to ctx.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok && state.tx != nil {
		return state.tx
	}
	return db.WithContext(ctx)
}

// NopTransactor runs fn directly. Used with in-memory stores.
type NopTransactor struct{}

func (NopTransactor) WithinTransaction(ctx context.Context, fn TxFunc) error {
	return fn(ctx)
}
