package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"itinerary-pdf/internal/config"
	"itinerary-pdf/internal/deliver"
	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/export"
	"itinerary-pdf/internal/http/middleware"
	"itinerary-pdf/internal/http/server"
	"itinerary-pdf/internal/infra/chrome"
	"itinerary-pdf/internal/infra/lock"
	"itinerary-pdf/internal/infra/logging"
	"itinerary-pdf/internal/infra/repository"
	"itinerary-pdf/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "itinerary-pdf",
		Short:        "Travel itinerary builder and PDF exporter",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newExportCmd())
	return root
}

func loadConfig() config.Config {
	cfg := config.Load()
	logging.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	logging.SetLogLevel(cfg.Logger.Level)
	return cfg
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), loadConfig())
		},
	}
}

func runServe(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open itinerary repository: %w", err)
	}
	defer closeRepo()

	provider := chrome.NewProvider(cfg)
	defer provider.Close()

	opts, err := export.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	var guards []export.Guard
	if rdb := redisClient(ctx, cfg); rdb != nil {
		defer rdb.Close()
		guards = append(guards, lock.NewRedisGuard(rdb, cfg.Export.LockTTL))
	}

	deps := server.Deps{
		Config:       cfg,
		Registry:     store.NewRegistry(repo),
		Exporter:     export.New(provider, opts, guards...),
		Chrome:       provider,
		LimiterStore: middleware.RateLimitStore(cfg),
	}
	if archive, err := openArchive(ctx, cfg); err != nil {
		logging.Error("S3 archive disabled", "error", err)
	} else if archive != nil {
		deps.Archive = archive
	}

	idleConnsClosed := make(chan struct{})
	startServer(server.New(deps), cfg, idleConnsClosed)
	<-idleConnsClosed
	return nil
}

// redisClient returns a client on the lock database, or nil when Redis is
// not configured or does not answer.
func redisClient(ctx context.Context, cfg config.Config) *redis.Client {
	if cfg.Redis.Host == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Host,
		DB:   cfg.Redis.LockDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logging.Warn("Redis unreachable, export lock is process-local", "addr", cfg.Redis.Host, "error", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func(), error) {
	switch cfg.Repository.Driver {
	case "", "memory":
		repo := repository.NewMemory()
		return repo, func() { _ = repo.Close() }, nil
	case "redis":
		repo := repository.NewRedis(cfg.Redis.Host, cfg.Redis.ItineraryDB)
		return repo, func() { _ = repo.Close() }, nil
	case "postgres":
		repo, err := repository.OpenPostgres(ctx, cfg.Repository.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown repository driver %q", cfg.Repository.Driver)
}

func openArchive(ctx context.Context, cfg config.Config) (deliver.Saver, error) {
	if !cfg.Storage.S3.Enabled {
		return nil, nil
	}
	return deliver.OpenS3(ctx, cfg.Storage.S3)
}

// startServer starts the Fiber app and listens for shutdown signals
func startServer(app *fiber.App, cfg config.Config, idleConnsClosed chan struct{}) {
	go func() {
		if err := app.Listen(cfg.Server.Host + cfg.Server.Port); err != nil {
			logging.Error("Server error", "error", err)
		}
	}()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint
	signal.Stop(sigint)

	logging.Warn("Shutdown signal received, closing server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
	}

	close(idleConnsClosed)
	logging.Info("Server stopped cleanly")
}

type exportFlags struct {
	in          string
	out         string
	format      string
	orientation string
}

func newExportCmd() *cobra.Command {
	var f exportFlags
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render an itinerary snapshot to a PDF file",
		Long: `Reads an itinerary snapshot (JSON, as returned by
GET /v1/itineraries/:id/snapshot) and writes the paginated PDF into --out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, loadConfig(), f)
		},
	}
	cmd.Flags().StringVarP(&f.in, "in", "i", "-", "snapshot JSON file, - for stdin")
	cmd.Flags().StringVarP(&f.out, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&f.format, "format", "", "paper format (A4, LETTER)")
	cmd.Flags().StringVar(&f.orientation, "orientation", "", "portrait or landscape")
	return cmd
}

func readSnapshot(cmd *cobra.Command, path string) (domain.Snapshot, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		file, err := os.Open(path)
		if err != nil {
			return domain.Snapshot{}, err
		}
		defer file.Close()
		r = file
	}
	var snap domain.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

func runExport(cmd *cobra.Command, cfg config.Config, f exportFlags) error {
	snap, err := readSnapshot(cmd, f.in)
	if err != nil {
		return err
	}

	opts, err := export.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if f.format != "" || f.orientation != "" {
		if opts.Layout, err = export.LayoutFor(cfg, f.format, f.orientation); err != nil {
			return err
		}
	}

	provider := chrome.NewProvider(cfg)
	defer provider.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var saver deliver.Saver = deliver.FileSaver{Dir: f.out}
	archive, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if archive != nil {
		saver = deliver.Tee{Primary: saver, Archive: archive}
	}

	res, err := export.New(provider, opts).Generate(ctx, f.in, snap, saver)
	if err != nil {
		cmd.PrintErrln(domain.UserMessage)
		return err
	}
	cmd.Printf("%s (%d pages, %d bytes)\n", res.Location, res.PageCount, res.Bytes)
	return nil
}
