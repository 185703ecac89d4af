package simpstore

import (
	"time"
)

// EvalContext carries the inputs of a watch expression.
type EvalContext struct {
	Store    string
	Snapshot map[string]any
	Now      *time.Time
	Args     map[string]any
}

func (ctx EvalContext) withDefaultNow() EvalContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx EvalContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx EvalContext) withDefaultMaps() EvalContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Snapshot == nil {
		ctx.Snapshot = map[string]any{}
	}
	return ctx
}

func (ctx EvalContext) storeLabel() string {
	if ctx.Store != "" {
		return ctx.Store
	}
	return "unknown"
}

// Evaluator executes expressions against a store snapshot.
type Evaluator interface {
	Evaluate(ctx EvalContext, expr string) (any, error)
	Compile(expr string) (CompiledExpr, error)
}

// CompiledExpr is a reusable expression program.
type CompiledExpr interface {
	Evaluate(ctx EvalContext) (any, error)
}

// Evaluable is implemented by instances that accept watch expressions.
type Evaluable interface {
	Evaluate(expr string) (any, error)
}

type namedEvaluator interface {
	Engine() string
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	if named, ok := e.(namedEvaluator); ok {
		return named.Engine()
	}
	return "custom"
}
