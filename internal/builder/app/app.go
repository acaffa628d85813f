package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/folio/internal/builder/http"
	"github.com/aussiebroadwan/folio/internal/builder/service"
	"github.com/aussiebroadwan/folio/internal/builder/store"
	"github.com/aussiebroadwan/folio/internal/builder/store/drivers/memory"
	"github.com/aussiebroadwan/folio/internal/builder/store/drivers/redis"
	"github.com/aussiebroadwan/folio/internal/builder/store/drivers/sqlite"
	"github.com/aussiebroadwan/folio/pkg/foliosdk"
	"github.com/aussiebroadwan/folio/pkg/jwtx"
	"github.com/aussiebroadwan/folio/pkg/media"
	"github.com/aussiebroadwan/folio/pkg/slogx"
)

// BuildVersion is stamped by the Dockerfile with
// -ldflags "-X github.com/aussiebroadwan/folio/internal/builder/app.BuildVersion=...".
var BuildVersion = "v0.1.0"

// Application encapsulates the builder service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db        store.Store
	drafts    store.DraftCache
	uploader  media.Uploader
	api       *foliosdk.Client
	keys      *jwtx.KeySet
	verifier  jwtx.Verifier
	refresher *jwtx.Refresher

	// Services
	wizardService       *service.WizardService
	catalogueService    *service.CatalogueService
	mediaService        *service.MediaService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "builder-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		api: foliosdk.NewClient(cfg.APIURL),
	}

	ctx := context.Background()

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initDraftCache(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initMedia(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	app.initKeys(ctx)
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.refresher.Start()
	app.housekeepingService.Start()

	app.logger.Info("builder service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down builder service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop background workers
	app.housekeepingService.Stop()
	app.refresher.Stop()

	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("builder service stopped")
	return nil
}

func (app *Application) closeStores() error {
	var errs []error
	if err := app.drafts.Close(); err != nil {
		app.logger.Error("error closing draft cache", "error", err)
		errs = append(errs, err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// initDatabase initializes the media database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initDraftCache picks where draft snapshots are kept between requests.
// Redis lets drafts survive restarts and be shared between replicas.
func (app *Application) initDraftCache(ctx context.Context) error {
	switch app.cfg.DraftCache {
	case "redis":
		cache, err := redis.New(ctx, app.cfg.RedisAddr, app.cfg.RedisPass, app.cfg.RedisDB)
		if err != nil {
			return fmt.Errorf("failed to connect draft cache: %w", err)
		}
		app.drafts = cache
	case "", "memory":
		app.drafts = memory.New()
	default:
		return fmt.Errorf("unknown draft cache %q", app.cfg.DraftCache)
	}

	app.logger.Info("draft cache ready", "backend", app.cfg.DraftCache, "ttl", app.cfg.DraftTTL)
	return nil
}

// initMedia selects the image host. Without a provider uploads are refused
// with a not-configured error and everything else keeps working.
func (app *Application) initMedia(ctx context.Context) error {
	switch app.cfg.MediaProvider {
	case "":
		app.logger.Warn("no media provider configured, image uploads disabled")
		return nil
	case "cloudinary":
		if app.cfg.CloudinaryCloudName == "" {
			return fmt.Errorf("%w: CLOUDINARY_CLOUD_NAME is required", media.ErrNotConfigured)
		}
		app.uploader = media.NewCloudinary(app.cfg.CloudinaryCloudName, app.cfg.CloudinaryUploadPreset)
	case "s3":
		up, err := media.NewS3(ctx, app.cfg.AWSRegion, app.cfg.S3Bucket, app.cfg.S3PublicBaseURL)
		if err != nil {
			return fmt.Errorf("failed to initialize s3 uploads: %w", err)
		}
		app.uploader = up
	default:
		return fmt.Errorf("%w: %q", media.ErrUnknownProvider, app.cfg.MediaProvider)
	}

	app.logger.Info("media provider ready", "provider", app.cfg.MediaProvider)
	return nil
}

// initKeys loads the auth provider's JWKS. A failed first fetch is not
// fatal: /readyz reports it and the refresher keeps trying.
func (app *Application) initKeys(ctx context.Context) {
	authClient := foliosdk.NewClient(app.cfg.AuthURL)

	app.keys = jwtx.NewKeySet()
	app.verifier = jwtx.NewVerifier(app.keys, app.cfg.Issuer, app.cfg.Audience)
	app.refresher = jwtx.NewRefresher(app.keys, authClient.GetJWKS, app.cfg.JWKSRefreshInterval, app.logger)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := app.refresher.Refresh(ctx); err != nil {
		app.logger.Error("initial jwks fetch failed", "auth_url", app.cfg.AuthURL, "error", err)
		return
	}
	app.logger.Info("jwks loaded", "auth_url", app.cfg.AuthURL)
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	connect := service.SDKConnector(app.api)

	app.wizardService = service.NewWizardService(connect, app.drafts, app.uploader, app.cfg.DraftTTL)
	app.catalogueService = &service.CatalogueService{
		Upstream: connect,
		Public:   app.api,
	}
	app.mediaService = &service.MediaService{
		Store:    app.db,
		Uploader: app.uploader,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.wizardService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.keys,
		BuildVersion,
		app.db,
		app.drafts,
		app.logger,
	)

	// Wire services to router
	router.WizardService = app.wizardService
	router.CatalogueService = app.catalogueService
	router.MediaService = app.mediaService
	router.MaxUpload = app.cfg.MaxUploadBytes
	router.RequiredScopes = app.cfg.RequiredScopes
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	app.server.RegisterOnShutdown(router.CloseStreams)
}
