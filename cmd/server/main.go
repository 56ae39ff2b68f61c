package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/rl1809/librarian/internal/adapter/handler"
	"github.com/rl1809/librarian/internal/adapter/storage"
	"github.com/rl1809/librarian/internal/app"
	"github.com/rl1809/librarian/internal/config"
	"github.com/rl1809/librarian/internal/core/service"
	"github.com/rl1809/librarian/internal/logging"
)

var (
	configPath string
	migrate    bool
)

var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Library loan service (HTTP and gRPC)",
	Long: `Serves the library catalog, loans and accounts over HTTP and gRPC.

Tables live on the hosted backend (driver "rest") or in a SQL database
(drivers mysql, postgres, pgx, sqlite). Sessions and loan request ids
are kept in Redis.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "librarian.yaml", "path to the YAML config file")
	rootCmd.Flags().BoolVar(&migrate, "migrate", false, "create the SQL schema before serving")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	backend, err := app.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	if migrate {
		if err := backend.Migrate(ctx); err != nil {
			return err
		}
	}
	if err := backend.CheckTables(ctx); err != nil {
		logger.Warn("backend tables unreachable", zap.Error(err))
	}

	rdb, err := app.OpenRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	cache := storage.NewRedisAdapter(rdb)

	authService := service.NewAuthService(backend.Auth, backend.Users, cache, cfg.GetSessionTTL(), logger.Named("auth"))
	libraryService := service.NewLibraryService(backend.Catalog, logger.Named("library"))
	loanService := service.NewLoanService(backend.Catalog, backend.Loans, cache, logger.Named("loans"))

	grpcServer := grpc.NewServer()
	handler.RegisterLibraryServer(grpcServer, handler.NewGRPCHandler(authService, libraryService, loanService, logger.Named("grpc")))

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: handler.NewHTTPHandler(authService, libraryService, loanService, logger.Named("http")).Routes(),
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", cfg.Server.GRPCAddr))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeout())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", zap.Error(err))
		}
		logger.Info("HTTP server stopped")

		if !handler.StopGRPC(shutdownCtx, grpcServer) {
			logger.Warn("gRPC drain timed out, open streams closed")
		}
		logger.Info("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("connections closed")
	return nil
}
