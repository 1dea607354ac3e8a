package services

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huangang/projecthub/pkg/logger"
)

// UnitOfWork decides how multi-step mutations hit the database.
//
// In best-effort mode each step is its own round trip and secondary steps
// (audit rows, creator membership) only log their failures. In
// transactional mode every step shares one transaction and any failure
// rolls the whole mutation back.
type UnitOfWork struct {
	db     *gorm.DB
	strict bool
}

func NewUnitOfWork(db *gorm.DB, transactional bool) *UnitOfWork {
	return &UnitOfWork{db: db, strict: transactional}
}

func (u *UnitOfWork) Transactional() bool { return u.strict }

func (u *UnitOfWork) DB(ctx context.Context) *gorm.DB {
	return u.db.WithContext(ctx)
}

// Do runs fn with the handle every step must use.
func (u *UnitOfWork) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return u.run(ctx, u.strict, fn)
}

// Atomic always runs fn in a transaction, regardless of mode.
func (u *UnitOfWork) Atomic(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return u.run(ctx, true, fn)
}

type commitHooks struct {
	fns []func()
}

type commitHooksKey struct{}

func (u *UnitOfWork) run(ctx context.Context, inTx bool, fn func(tx *gorm.DB) error) error {
	hooks := &commitHooks{}
	ctx = context.WithValue(ctx, commitHooksKey{}, hooks)

	var err error
	if inTx {
		err = u.db.WithContext(ctx).Transaction(fn)
	} else {
		err = fn(u.db.WithContext(ctx))
	}
	if err != nil {
		return err
	}
	for _, f := range hooks.fns {
		f()
	}
	return nil
}

// afterCommit defers f until the unit of work owning tx has succeeded.
// Outside a unit of work f runs immediately.
func afterCommit(tx *gorm.DB, f func()) {
	if tx.Statement != nil && tx.Statement.Context != nil {
		if hooks, ok := tx.Statement.Context.Value(commitHooksKey{}).(*commitHooks); ok {
			hooks.fns = append(hooks.fns, f)
			return
		}
	}
	f()
}

// Secondary settles the outcome of a side step. In best-effort mode the
// error is logged and dropped.
func (u *UnitOfWork) Secondary(err error, step string) error {
	if err == nil {
		return nil
	}
	if u.strict {
		return err
	}
	logger.Warn().Err(err).Str("step", step).Msg("side effect failed, continuing")
	return nil
}

// lockForUpdate adds a row lock where the dialect supports one. sqlite
// already serialises writers and rejects FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
