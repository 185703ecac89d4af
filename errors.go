package simpstore

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-simpstore/internal/hydrate"
)

var (
	ErrEmptyID          = errors.New("simpstore: store id must not be empty")
	ErrNilSetup         = errors.New("simpstore: setup function is nil")
	ErrUnsupportedState = hydrate.ErrUnsupportedType
	ErrNotFound         = errors.New("simpstore: store not found")
	ErrNoEvaluator      = errors.New("simpstore: evaluator not configured")
)

// StoreError captures the store and operation alongside the originating
// error.
type StoreError struct {
	ID  string
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("simpstore: %s store %q: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func wrapStoreError(id, op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.ID == id {
		return err
	}
	return &StoreError{ID: id, Op: op, Err: err}
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Store  string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("simpstore: %s evaluator %s store=%s: %v", e.Engine, describeExpression(e.Expr), e.Store, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluationError(engine, expr, store string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Store == "" {
			evalErr.Store = store
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Store:  store,
		Err:    err,
	}
}
