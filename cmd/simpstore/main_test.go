package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	simpstore "github.com/goliatone/go-simpstore"
	"github.com/goliatone/go-simpstore/internal/backend"
	"github.com/goliatone/go-simpstore/pkg/storage"
)

func newTestApp(mem *storage.Memory) *app {
	return &app{
		logger: simpstore.NopLogger(),
		open: func(context.Context) (*backend.Backend, error) {
			return &backend.Backend{Storage: mem, Name: "memory"}, nil
		},
	}
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSetGetKeysRemove(t *testing.T) {
	mem := storage.NewMemory()
	a := newTestApp(mem)

	if _, err := run(t, a, "set", "prefs", `{"theme":"dark","size":3}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	out, err := run(t, a, "get", "prefs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if strings.TrimSpace(out) != `{"size":3,"theme":"dark"}` {
		t.Fatalf("unexpected record %q", out)
	}

	if _, err := run(t, a, "set", "prefs", "--merge", `{"theme":"light"}`); err != nil {
		t.Fatalf("merge: %v", err)
	}
	out, _ = run(t, a, "get", "prefs")
	if strings.TrimSpace(out) != `{"size":3,"theme":"light"}` {
		t.Fatalf("merge must keep other fields, got %q", out)
	}

	if _, err := run(t, a, "set", "counter", `{"count":1}`); err != nil {
		t.Fatalf("set counter: %v", err)
	}
	out, err = run(t, a, "keys")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if out != "counter\nprefs\n" {
		t.Fatalf("unexpected keys %q", out)
	}

	if _, err := run(t, a, "rm", "prefs"); err != nil {
		t.Fatalf("rm: %v", err)
	}
	if _, err := run(t, a, "get", "prefs"); err == nil {
		t.Fatalf("expected missing record error")
	}
}

func TestSetRejectsNonObject(t *testing.T) {
	a := newTestApp(storage.NewMemory())
	for _, input := range []string{`[1,2]`, `null`, `nope`} {
		if _, err := run(t, a, "set", "x", input); err == nil {
			t.Fatalf("expected %s to be rejected", input)
		}
	}
}

func TestGetPretty(t *testing.T) {
	mem := storage.NewMemory()
	_ = mem.SetItem(context.Background(), storage.Key("c"), `{"count":2}`)
	out, err := run(t, newTestApp(mem), "get", "--pretty", "c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != "{\n  \"count\": 2\n}\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestEvalEngines(t *testing.T) {
	mem := storage.NewMemory()
	_ = mem.SetItem(context.Background(), storage.Key("c"), `{"count":4}`)
	a := newTestApp(mem)

	out, err := run(t, a, "eval", "c", "count * 2")
	if err != nil {
		t.Fatalf("eval expr: %v", err)
	}
	if strings.TrimSpace(out) != "8" {
		t.Fatalf("unexpected expr result %q", out)
	}

	out, err = run(t, a, "eval", "--engine", "cel", "c", "count > 3.0")
	if err != nil {
		t.Fatalf("eval cel: %v", err)
	}
	if strings.TrimSpace(out) != "true" {
		t.Fatalf("unexpected cel result %q", out)
	}

	out, err = run(t, a, "eval", "--arg", "who=ops", "c", `args.who + ":" + store`)
	if err != nil {
		t.Fatalf("eval args: %v", err)
	}
	if strings.TrimSpace(out) != `"ops:c"` {
		t.Fatalf("unexpected args result %q", out)
	}

	if _, err := run(t, a, "eval", "--engine", "lua", "c", "1"); err == nil {
		t.Fatalf("expected unknown engine error")
	}
	if writes := mem.Writes(); writes != 1 {
		t.Fatalf("eval must not write, saw %d writes", writes)
	}
}

func TestDescribe(t *testing.T) {
	mem := storage.NewMemory()
	_ = mem.SetItem(context.Background(), storage.Key("p"), `{"theme":"dark","layout":{"cols":2},"tags":["a"]}`)
	out, err := run(t, newTestApp(mem), "describe", "p")
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	want := "layout.cols\tnumber\ntags\t[]string\ntheme\tstring\n"
	if out != want {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, newTestApp(storage.NewMemory()), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, simpstore.Version) {
		t.Fatalf("expected library version in %q", out)
	}
}

func TestSetMergeIsDeep(t *testing.T) {
	mem := storage.NewMemory()
	_ = mem.SetItem(context.Background(), storage.Key("p"), `{"layout":{"cols":2,"rows":1},"theme":"dark"}`)
	a := newTestApp(mem)

	if _, err := run(t, a, "set", "--merge", "p", `{"layout":{"cols":4}}`); err != nil {
		t.Fatalf("merge: %v", err)
	}
	out, _ := run(t, a, "get", "p")
	if strings.TrimSpace(out) != `{"layout":{"cols":4,"rows":1},"theme":"dark"}` {
		t.Fatalf("unexpected merged record %q", out)
	}
}
