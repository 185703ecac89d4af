package simpstore

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestStoreEvaluateUsesExprByDefault(t *testing.T) {
	f := newFixture()
	store, _ := Define("counter", newCounterSetup(nil), f.options()...)()
	store.Update(func(c *counterState) { c.Count = 6 })

	value, err := store.Evaluate(`count * 2`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if value != float64(12) {
		t.Fatalf("expected 12, got %v (%T)", value, value)
	}

	value, err = store.Evaluate(`store + ":ok"`)
	if err != nil {
		t.Fatalf("evaluate store binding: %v", err)
	}
	if value != "counter:ok" {
		t.Fatalf("unexpected value %v", value)
	}
}

func TestStoreEvaluateWithArgsAndNow(t *testing.T) {
	f := newFixture()
	store, _ := Define("counter", newCounterSetup(nil), f.options()...)()
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	value, err := store.EvaluateWith(EvalContext{
		Now:  &now,
		Args: map[string]any{"limit": 10},
	}, `count < args.limit`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if value != true {
		t.Fatalf("expected true, got %v", value)
	}

	value, err = store.EvaluateWith(EvalContext{Now: &now}, `now`)
	if err != nil {
		t.Fatalf("evaluate now: %v", err)
	}
	if got, ok := value.(time.Time); !ok || !got.Equal(now) {
		t.Fatalf("expected the supplied clock, got %v", value)
	}
}

func TestStoreEvaluateCustomFunctions(t *testing.T) {
	f := newFixture()
	double := func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("double expects one argument")
		}
		n, ok := args[0].(float64)
		if !ok {
			return nil, fmt.Errorf("double expects a number, got %T", args[0])
		}
		return n * 2, nil
	}
	store, _ := Define("counter", newCounterSetup(nil), f.options(WithCustomFunction("double", double))...)()
	store.Update(func(c *counterState) { c.Count = 21 })

	value, err := store.Evaluate(`double(count)`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if value != float64(42) {
		t.Fatalf("expected 42, got %v", value)
	}
	value, err = store.Evaluate(`call("double", 1.5)`)
	if err != nil {
		t.Fatalf("evaluate call: %v", err)
	}
	if value != float64(3) {
		t.Fatalf("expected 3, got %v", value)
	}
}

func TestStoreEvaluateCachesPrograms(t *testing.T) {
	f := newFixture()
	cache := NewMemoryProgramCache()
	store, _ := Define("counter", newCounterSetup(nil), f.options(WithProgramCache(cache))...)()

	for i := 0; i < 3; i++ {
		if _, err := store.Evaluate(`count + 1`); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
	if _, ok := cache.Get("expr:count:count + 1"); !ok {
		t.Fatalf("expected cache key prefixed with engine and variable names")
	}
}

func TestExprFieldsShadowBuiltins(t *testing.T) {
	evaluator := NewExprEvaluator()
	snapshot := map[string]any{"count": 3.0, "len": 2.0, "max": 10.0, "sum": 1.0}

	tests := []struct {
		expr string
		want any
	}{
		{expr: `count * 2`, want: float64(6)},
		{expr: `len + max`, want: float64(12)},
		{expr: `sum < count`, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			value, err := evaluator.Evaluate(EvalContext{Snapshot: snapshot}, tt.expr)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if value != tt.want {
				t.Fatalf("expected %v, got %v (%T)", tt.want, value, value)
			}
		})
	}

	value, err := evaluator.Evaluate(EvalContext{Snapshot: map[string]any{"items": []any{1.0, 2.0}}}, `len(items)`)
	if err != nil {
		t.Fatalf("builtins must stay available for other names: %v", err)
	}
	if value != 2 {
		t.Fatalf("expected 2, got %v (%T)", value, value)
	}
}

func TestExprCacheSeparatesVariableSets(t *testing.T) {
	cache := NewMemoryProgramCache()
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))

	if _, err := evaluator.Evaluate(EvalContext{Snapshot: map[string]any{"items": []any{1.0}}}, `len(items)`); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	value, err := evaluator.Evaluate(EvalContext{Snapshot: map[string]any{"items": []any{}, "len": 7.0}}, `len`)
	if err != nil {
		t.Fatalf("evaluate len field: %v", err)
	}
	if value != 7.0 {
		t.Fatalf("expected the len field, got %v", value)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected one program per variable set, got %d", cache.Len())
	}
}

func TestStoreEvaluateErrors(t *testing.T) {
	f := newFixture()
	store, _ := Define("counter", newCounterSetup(nil), f.options()...)()

	if _, err := store.Evaluate("   "); err == nil {
		t.Fatalf("expected empty expression error")
	}
	_, err := store.Evaluate(`count +`)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected EvaluationError, got %T %v", err, err)
	}
	if evalErr.Engine != "expr" || evalErr.Expr != "count +" {
		t.Fatalf("unexpected metadata %+v", evalErr)
	}
	if len(f.logs.failures(OpEvaluate)) != 1 {
		t.Fatalf("expected evaluation failure to be logged")
	}
}

func TestCELEvaluator(t *testing.T) {
	f := newFixture()
	registry := NewFunctionRegistry()
	if err := registry.Register("greet", func(args ...any) (any, error) {
		return fmt.Sprintf("hi %v", args[0]), nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cache := NewMemoryProgramCache()
	evaluator := NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(registry))
	store, _ := Define("prefs", func() (map[string]any, error) {
		return map[string]any{"theme": "dark", "size": 3}, nil
	}, f.options(WithEvaluator(evaluator))...)()

	value, err := store.Evaluate(`theme == "dark" && size > 2.0`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if value != true {
		t.Fatalf("expected true, got %v", value)
	}

	value, err = store.Evaluate(`call("greet", [store])`)
	if err != nil {
		t.Fatalf("evaluate call: %v", err)
	}
	if value != "hi prefs" {
		t.Fatalf("unexpected greeting %v", value)
	}

	if _, err := store.Evaluate(`theme ==`); err == nil {
		t.Fatalf("expected compile error")
	} else {
		var evalErr *EvaluationError
		if !errors.As(err, &evalErr) || evalErr.Engine != "cel" {
			t.Fatalf("expected cel EvaluationError, got %v", err)
		}
	}

	if cache.Len() != 2 {
		t.Fatalf("expected two cached cel programs, got %d", cache.Len())
	}
}

func TestCELCacheKeyIncludesVariables(t *testing.T) {
	cache := NewMemoryProgramCache()
	evaluator := NewCELEvaluator(CELWithProgramCache(cache))

	first, err := evaluator.Evaluate(EvalContext{Snapshot: map[string]any{"a": 1.0}}, `has_b == false || a == 1.0`)
	if err == nil {
		t.Fatalf("undeclared variables must fail, got %v", first)
	}
	value, err := evaluator.Evaluate(EvalContext{Snapshot: map[string]any{"a": 1.0, "has_b": false}}, `has_b == false || a == 1.0`)
	if err != nil {
		t.Fatalf("evaluate with both variables: %v", err)
	}
	if value != true {
		t.Fatalf("expected true, got %v", value)
	}
}

func TestCompiledExpressions(t *testing.T) {
	evaluators := map[string]Evaluator{
		"expr": NewExprEvaluator(),
		"cel":  NewCELEvaluator(),
	}
	for name, evaluator := range evaluators {
		t.Run(name, func(t *testing.T) {
			compiled, err := evaluator.Compile(`count + 1.0`)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			for _, n := range []float64{1, 2} {
				value, err := compiled.Evaluate(EvalContext{Snapshot: map[string]any{"count": n}})
				if err != nil {
					t.Fatalf("evaluate: %v", err)
				}
				if value != n+1 {
					t.Fatalf("expected %v, got %v", n+1, value)
				}
			}
			if _, err := evaluator.Compile(""); err == nil {
				t.Fatalf("expected empty expression error")
			}
		})
	}
}

func TestJSEvaluatorAvailability(t *testing.T) {
	evaluator := NewJSEvaluator()
	if jsEvaluatorAvailable() != (evaluator != nil) {
		t.Fatalf("availability flag must match constructor result")
	}
	if evaluator == nil {
		t.Skip("js evaluator requires the js_eval build tag")
	}
	value, err := evaluator.Evaluate(EvalContext{Store: "s", Snapshot: map[string]any{"count": 2}}, `count * 3`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if fmt.Sprint(value) != "6" {
		t.Fatalf("expected 6, got %v", value)
	}
}

func TestFunctionRegistry(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(args ...any) (any, error) { return len(args), nil }
	if err := registry.Register("Count", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("count", fn); err == nil {
		t.Fatalf("names are case-insensitive and must not register twice")
	}
	if err := registry.Register(" ", fn); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := registry.Register("nil", nil); err == nil {
		t.Fatalf("expected nil function error")
	}
	value, err := registry.Call("COUNT", 1, 2)
	if err != nil || value != 2 {
		t.Fatalf("expected 2, got %v err=%v", value, err)
	}
	if _, err := registry.Call("missing"); err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("expected not registered error, got %v", err)
	}

	clone := registry.Clone()
	_ = clone.Register("extra", fn)
	if len(registry.Names()) != 1 || len(clone.Names()) != 2 {
		t.Fatalf("clone must be independent: %v %v", registry.Names(), clone.Names())
	}
}
