// Command simpstore inspects and edits persisted store records.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	simpstore "github.com/goliatone/go-simpstore"
	"github.com/goliatone/go-simpstore/internal/backend"
	"github.com/goliatone/go-simpstore/internal/config"
)

// Build information set at link time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	app := &app{
		logger: simpstore.SlogLogger(logger),
		open: func(ctx context.Context) (*backend.Backend, error) {
			return backend.Open(ctx, cfg)
		},
	}
	if err := newRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	logger simpstore.Logger
	open   func(ctx context.Context) (*backend.Backend, error)
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simpstore",
		Short: "Inspect persisted simpstore records",
		Long: `simpstore reads and writes the records stores persist under
"simp-store:<id>" keys.

The backend is selected with SIMPSTORE_BACKEND (memory, bolt, sqlite,
redis, s3) and configured through SIMPSTORE_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newKeysCmd(a))
	rootCmd.AddCommand(newGetCmd(a))
	rootCmd.AddCommand(newSetCmd(a))
	rootCmd.AddCommand(newRemoveCmd(a))
	rootCmd.AddCommand(newEvalCmd(a))
	rootCmd.AddCommand(newDescribeCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "simpstore %s (library %s, commit %s)\n", version, simpstore.Version, commit)
		},
	}
}
