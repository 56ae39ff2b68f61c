package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/librarian/internal/app"
	"github.com/rl1809/librarian/internal/config"
	"github.com/rl1809/librarian/internal/core/domain"
	"github.com/rl1809/librarian/internal/core/service"
)

var (
	driver        string
	dsn           string
	initialStock  int
	totalRequests int
)

var rootCmd = &cobra.Command{
	Use:   "stress_test",
	Short: "Fire concurrent loans at one book and report over-allocation",
	Long: `Creates a book with a fixed number of copies, then issues concurrent
single-copy loan requests for it. Loan creation reads the quantity on hand
and writes back an absolute value without locking, so concurrent requests
can be granted more copies than exist. The report shows how many.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&driver, "driver", config.DriverSQLite, "SQL driver (mysql, postgres, pgx, sqlite)")
	rootCmd.Flags().StringVar(&dsn, "dsn", "", "SQL DSN, a temporary sqlite file when empty")
	rootCmd.Flags().IntVar(&initialStock, "stock", 20, "copies of the book")
	rootCmd.Flags().IntVar(&totalRequests, "requests", 50, "concurrent loan requests")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.DefaultConfig()
	cfg.Backend.Driver = driver
	cfg.Backend.DSN = dsn
	if !cfg.IsSQL() {
		return errors.New("stress test needs a SQL driver")
	}
	if cfg.Backend.DSN == "" {
		dir, err := os.MkdirTemp("", "librarian-stress")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		cfg.Backend.DSN = filepath.Join(dir, "stress.db")
	}

	backend, err := app.OpenBackend(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer backend.Close()
	if err := backend.Migrate(ctx); err != nil {
		return err
	}

	// Seed a borrower and a book
	user, err := backend.Users.InsertUser(ctx, domain.User{
		ID:        uuid.NewString(),
		Email:     "stress@example.com",
		Username:  "stress",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to seed user: %w", err)
	}

	library := service.NewLibraryService(backend.Catalog, nil)
	entry, err := library.CreateBook(ctx, domain.NewBook{
		Name:            "stress-" + time.Now().Format("20060102150405"),
		Author:          "Stress Test",
		Genre:           "test",
		PublicationDate: time.Now().UTC().Truncate(24 * time.Hour),
		Quantity:        initialStock,
	})
	if err != nil {
		return fmt.Errorf("failed to seed book: %w", err)
	}

	loans := service.NewLoanService(backend.Catalog, backend.Loans, nil, nil)

	var successCount, rejectedCount, failCount atomic.Int32

	var g errgroup.Group
	start := time.Now()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	for i := 0; i < totalRequests; i++ {
		g.Go(func() error {
			_, err := loans.CreateLoan(ctx, domain.LoanRequest{
				BookID:    entry.BookID,
				UserID:    user.ID,
				Quantity:  1,
				StartDate: today,
				EndDate:   today.AddDate(0, 0, 14),
			})
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, service.ErrInsufficientInventory):
				rejectedCount.Add(1)
			default:
				failCount.Add(1)
			}
			return nil
		})
	}
	g.Wait()
	elapsed := time.Since(start)

	final, err := backend.Catalog.GetInventory(ctx, entry.BookID)
	if err != nil {
		return err
	}

	success := int(successCount.Load())

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Driver:           %s\n", cfg.Backend.Driver)
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Loans Granted:    %d\n", success)
	fmt.Printf("Rejected:         %d\n", rejectedCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Final Stock:      %d\n", final.Quantity)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if over := success - initialStock; over > 0 {
		fmt.Printf("RACE: %d more copies loaned than exist\n", over)
	}
	if lost := initialStock - success - final.Quantity; lost != 0 {
		fmt.Printf("RACE: stock off by %d after %d loans\n", lost, success)
	}
	return nil
}
