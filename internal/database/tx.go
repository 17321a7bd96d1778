package database

import (
	"context"

	"gorm.io/gorm"
)

type beforeCommitHook struct {
	key string
	fn  func(tx *gorm.DB) error
}

// Tx is a unit of work over a gorm transaction. Before-commit hooks run
// inside the transaction once the body has returned, so they observe every
// write the body made. After-commit hooks run only when the commit succeeded.
type Tx struct {
	DB *gorm.DB

	hooks       []beforeCommitHook
	hookKeys    map[string]struct{}
	afterCommit []func()
}

// BeforeCommit registers fn under key. A key registered more than once in
// the same transaction runs once. Hooks may register further hooks.
func (t *Tx) BeforeCommit(key string, fn func(tx *gorm.DB) error) {
	if _, ok := t.hookKeys[key]; ok {
		return
	}
	t.hookKeys[key] = struct{}{}
	t.hooks = append(t.hooks, beforeCommitHook{key: key, fn: fn})
}

func (t *Tx) AfterCommit(fn func()) {
	t.afterCommit = append(t.afterCommit, fn)
}

func (t *Tx) runBeforeCommit() error {
	for i := 0; i < len(t.hooks); i++ {
		if err := t.hooks[i].fn(t.DB); err != nil {
			return err
		}
	}
	return nil
}

// WithTx runs fn in a transaction. Any error from fn or from a before-commit
// hook rolls everything back and after-commit hooks are discarded.
func WithTx(ctx context.Context, db *gorm.DB, fn func(tx *Tx) error) error {
	var scope *Tx

	err := db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		scope = &Tx{DB: gtx, hookKeys: make(map[string]struct{})}
		if err := fn(scope); err != nil {
			return err
		}
		return scope.runBeforeCommit()
	})
	if err != nil {
		return err
	}

	for _, f := range scope.afterCommit {
		f()
	}
	return nil
}
