package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	simpstore "github.com/goliatone/go-simpstore"
	"github.com/goliatone/go-simpstore/internal/backend"
	recordmerge "github.com/goliatone/go-simpstore/internal/merge"
	"github.com/goliatone/go-simpstore/pkg/storage"
)

// withBackend opens the configured backend for the duration of fn.
func (a *app) withBackend(cmd *cobra.Command, fn func(*backend.Backend) error) (err error) {
	b, err := a.open(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(b)
}

// defineRecord exposes one persisted record as a map-backed store.
func (a *app) defineRecord(b *backend.Backend, id string, opts ...simpstore.Option) (*simpstore.Store[map[string]any], error) {
	base := []simpstore.Option{
		simpstore.WithPersist(true),
		simpstore.WithStorage(b),
		simpstore.WithLogger(a.logger),
		simpstore.WithRegistry(simpstore.NewRegistry(simpstore.WithRegistryLogger(a.logger))),
	}
	return simpstore.Define(id, func() (map[string]any, error) {
		return map[string]any{}, nil
	}, append(base, opts...)...)()
}

func newKeysCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List persisted store ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend.Backend) error {
				lister, ok := b.Lister()
				if !ok {
					return fmt.Errorf("%s backend cannot list keys", b.Name)
				}
				keys, err := lister.Keys(cmd.Context(), storage.KeyPrefix)
				if err != nil {
					return err
				}
				for _, key := range keys {
					if id, ok := storage.StoreID(key); ok {
						fmt.Fprintln(cmd.OutOrStdout(), id)
					}
				}
				return nil
			})
		},
	}
}

func newGetCmd(a *app) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print the raw record of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend.Backend) error {
				value, ok, err := b.GetItem(cmd.Context(), storage.Key(args[0]))
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("store %q: %w", args[0], simpstore.ErrNotFound)
				}
				if pretty {
					var decoded any
					if err := json.Unmarshal([]byte(value), &decoded); err != nil {
						return fmt.Errorf("store %q: record is not JSON: %w", args[0], err)
					}
					formatted, err := json.MarshalIndent(decoded, "", "  ")
					if err != nil {
						return err
					}
					value = string(formatted)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the record")
	return cmd
}

func newSetCmd(a *app) *cobra.Command {
	var merge bool
	cmd := &cobra.Command{
		Use:   "set <id> <json-object>",
		Short: "Replace or merge the record of a store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields map[string]any
			if err := json.Unmarshal([]byte(args[1]), &fields); err != nil || fields == nil {
				return fmt.Errorf("record must be a JSON object")
			}
			return a.withBackend(cmd, func(b *backend.Backend) error {
				store, err := a.defineRecord(b, args[0])
				if err != nil {
					return err
				}
				err = store.Mutate(func(state *map[string]any) error {
					if merge {
						*state = recordmerge.Records(fields, *state)
					} else {
						*state = fields
					}
					return nil
				})
				if err != nil {
					return err
				}
				return store.Flush(cmd.Context())
			})
		},
	}
	cmd.Flags().BoolVar(&merge, "merge", false, "deep-merge into the existing record instead of replacing it")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete the record of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend.Backend) error {
				return b.RemoveItem(cmd.Context(), storage.Key(args[0]))
			})
		},
	}
}

func newEvalCmd(a *app) *cobra.Command {
	var (
		engine string
		params map[string]string
	)
	cmd := &cobra.Command{
		Use:   "eval <id> <expression>",
		Short: "Evaluate an expression against a stored record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			evaluator, err := newEvaluator(engine)
			if err != nil {
				return err
			}
			return a.withBackend(cmd, func(b *backend.Backend) error {
				store, err := a.defineRecord(b, args[0], simpstore.WithEvaluator(evaluator))
				if err != nil {
					return err
				}
				evalArgs := make(map[string]any, len(params))
				for key, value := range params {
					evalArgs[key] = value
				}
				value, err := store.EvaluateWith(simpstore.EvalContext{Args: evalArgs}, args[1])
				if err != nil {
					return err
				}
				out, err := json.Marshal(value)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "expr", "expression engine (expr, cel, js)")
	cmd.Flags().StringToStringVar(&params, "arg", nil, "bind args.<key>=<value>")
	return cmd
}

func newEvaluator(engine string) (simpstore.Evaluator, error) {
	switch engine {
	case "expr":
		return simpstore.NewExprEvaluator(), nil
	case "cel":
		return simpstore.NewCELEvaluator(), nil
	case "js":
		if evaluator := simpstore.NewJSEvaluator(); evaluator != nil {
			return evaluator, nil
		}
		return nil, errors.New("js engine requires a build with -tags js_eval")
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: "List the field paths and JSON types of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withBackend(cmd, func(b *backend.Backend) error {
				store, err := a.defineRecord(b, args[0])
				if err != nil {
					return err
				}
				fields, err := store.Describe()
				if err != nil {
					return err
				}
				for _, field := range fields {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", field.Path, field.Type)
				}
				return nil
			})
		},
	}
}
