package simpstore

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
	exprparser "github.com/expr-lang/expr/parser"
	exprvm "github.com/expr-lang/expr/vm"
)

const engineExpr = "expr"

var exprBindings = []string{"store", "now", "args"}

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache wires a ProgramCache into the expr evaluator.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry wires a FunctionRegistry into the expr evaluator.
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// exprEvaluator runs watch expressions with github.com/expr-lang/expr.
// Snapshot fields are top-level variables; "store", "now" and "args" are
// always bound.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewExprEvaluator constructs the default Evaluator.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *exprEvaluator) Engine() string { return engineExpr }

func (e *exprEvaluator) Evaluate(ctx EvalContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluationError(engineExpr, "", ctx.storeLabel(), fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := e.loadOrCompile(expression, snapshotNames(ctx.Snapshot))
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, e.environment(ctx))
	if err != nil {
		return nil, wrapEvaluationError(engineExpr, expression, ctx.storeLabel(), err)
	}
	return result, nil
}

func (e *exprEvaluator) Compile(expression string) (CompiledExpr, error) {
	if expression == "" {
		return nil, wrapEvaluationError(engineExpr, "", "", fmt.Errorf("expression must not be empty"))
	}
	if _, err := exprparser.Parse(expression); err != nil {
		return nil, wrapEvaluationError(engineExpr, expression, "", err)
	}
	return &exprCompiled{evaluator: e, expression: expression}, nil
}

// loadOrCompile caches programs per expression and variable set. Snapshot
// fields and the store/now/args bindings take precedence over builtins of the
// same name (count, len, now, ...), so those builtins are disabled for the
// program.
func (e *exprEvaluator) loadOrCompile(expression string, names []string) (*exprvm.Program, error) {
	key := engineExpr + ":" + strings.Join(names, ",") + ":" + expression
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	for _, name := range exprBindings {
		options = append(options, exprlang.DisableBuiltin(name))
	}
	for _, name := range names {
		options = append(options, exprlang.DisableBuiltin(name))
	}
	if e.registry != nil {
		options = append(options, exprlang.Function("call", e.call))
		for _, name := range e.registry.Names() {
			options = append(options, exprlang.Function(name, e.registry.bind(name)))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError(engineExpr, expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}

func (e *exprEvaluator) environment(ctx EvalContext) map[string]any {
	env := make(map[string]any, len(ctx.Snapshot)+3)
	for key, value := range ctx.Snapshot {
		env[key] = value
	}
	env["store"] = ctx.Store
	env["now"] = ctx.timestamp()
	env["args"] = ctx.Args
	return env
}

// call dispatches call(name, args...) to the function registry.
func (e *exprEvaluator) call(params ...any) (any, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("call requires a function name")
	}
	name, ok := params[0].(string)
	if !ok {
		return nil, fmt.Errorf("call name must be string, got %T", params[0])
	}
	return e.registry.Call(name, params[1:]...)
}

// exprCompiled resolves its program per snapshot shape through the
// evaluator's cache.
type exprCompiled struct {
	evaluator  *exprEvaluator
	expression string
}

func (r *exprCompiled) Evaluate(ctx EvalContext) (any, error) {
	ctx = ctx.withDefaultNow().withDefaultMaps()
	program, err := r.evaluator.loadOrCompile(r.expression, snapshotNames(ctx.Snapshot))
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, r.evaluator.environment(ctx))
	if err != nil {
		return nil, wrapEvaluationError(engineExpr, r.expression, ctx.storeLabel(), err)
	}
	return result, nil
}
