package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rl1809/librarian/internal/adapter/storage"
	"github.com/rl1809/librarian/internal/app"
	"github.com/rl1809/librarian/internal/config"
)

var (
	configPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check backend configuration and table access",
	Long: `Loads the configuration, connects to the configured backend and probes
the users, books, library and loans tables. Exits non-zero on the first
configuration problem or when any table is unreachable.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return verify(ctx, cmd)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "librarian.yaml", "path to the YAML config file")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall time limit")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func verify(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(out, "configuration: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "configuration ok (driver %s)\n", cfg.Backend.Driver)

	backend, err := app.OpenBackend(ctx, cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintf(out, "connection: %v\n", err)
		return err
	}
	defer backend.Close()

	failed := 0
	for _, table := range storage.RequiredTables {
		if err := backend.Tables.CheckTable(ctx, table); err != nil {
			failed++
			fmt.Fprintf(out, "  %-8s FAIL %v\n", table, err)
			continue
		}
		fmt.Fprintf(out, "  %-8s ok\n", table)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tables unreachable", failed, len(storage.RequiredTables))
	}
	fmt.Fprintln(out, "backend ready")
	return nil
}
