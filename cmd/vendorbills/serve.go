package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"constructerp/internal/caching"
	"constructerp/internal/handlers"
	"constructerp/internal/jobs"
	"constructerp/internal/logger"
	"constructerp/internal/middleware"
	"constructerp/internal/repositories"
	"constructerp/internal/services"
	"constructerp/pkg/database"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background scheduler",
	Long: `Serves the vendor invoice API under /v1 and runs the orphaned child sweep.

Required environment variables:
  DATABASE_URL - PostgreSQL connection string

Optional:
  REDIS_ADDR     - enables the invoice cache and allocation lock (empty disables)
  MINIO_ENDPOINT - enables attachment uploads (empty disables)`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.WithComponent("serve")
	ctx := cmd.Context()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.ClosePool(pool)

	checks := map[string]handlers.HealthCheck{
		"database": pool.Ping,
	}

	invoiceRepo := repositories.NewVendorInvoiceRepo(pool)
	itemsRepo := repositories.NewInvoiceItemsRepo(pool)
	divisionRepo := repositories.NewCostCodeDivisionRepo(pool)

	// Interfaces stay nil, not typed-nil, when Redis is off.
	var (
		cache  caching.InvoiceCache
		locker services.AllocationLocker
	)
	if cfg.RedisEnabled() {
		client := caching.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer client.Close()
		cache = caching.NewRedisInvoiceCache(client)
		locker = caching.NewRedisAllocationLocker(client, cfg.LockTTL)
		checks["redis"] = func(ctx context.Context) error { return pingRedis(ctx, client) }
	} else {
		log.Warn().Msg("REDIS_ADDR is empty; invoice cache and allocation lock disabled")
	}

	var attachments *services.AttachmentProcessor
	if cfg.StorageEnabled() {
		store, err := services.NewMinioObjectStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return fmt.Errorf("initialize object storage: %w", err)
		}
		if err := store.EnsureBucketExists(ctx, cfg.MinioBucket); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.MinioBucket).Msg("attachment bucket unavailable")
		}
		attachments = services.NewAttachmentProcessor(store, cfg.MinioBucket)
		checks["storage"] = func(ctx context.Context) error { return store.EnsureBucketExists(ctx, cfg.MinioBucket) }
	} else {
		log.Warn().Msg("MINIO_ENDPOINT is empty; attachment uploads disabled")
	}

	invoiceSvc := services.NewVendorInvoiceService(invoiceRepo, itemsRepo, cache, locker, attachments, cfg.CacheTTL)
	divisionSvc := services.NewDivisionImportService(divisionRepo)

	scheduler, err := jobs.NewScheduler(jobs.NewOrphanSweeper(itemsRepo), cfg.SweepInterval)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("scheduler shutdown failed")
		}
	}()

	e := newServer(invoiceSvc, divisionSvc, handlers.NewHealthHandlers(version, checks, "database"))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("version", version).Int("port", cfg.Port).Msg("vendorbills server starting")
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newServer(invoiceSvc services.VendorInvoiceService, divisionSvc services.DivisionImportService, health *handlers.HealthHandlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestID())
	e.Use(middleware.RequestLogger(logger.WithComponent("http")))
	e.Use(echoMiddleware.CORS())
	e.Pre(echoMiddleware.RemoveTrailingSlash())

	versionMiddleware := middleware.NewVersionMiddleware()
	e.Use(versionMiddleware.APIVersionResolver())

	health.RegisterRoutes(e)

	v1 := versionMiddleware.VersionRoute(e, versionMiddleware.GetCurrentVersion())
	handlers.NewVendorInvoiceHandlers(invoiceSvc).RegisterRoutes(v1)
	handlers.NewCostCodeDivisionHandlers(divisionSvc).RegisterRoutes(v1)

	return e
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
