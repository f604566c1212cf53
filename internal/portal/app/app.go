package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agriconnect/farmerportal/internal/portal/feeds"
	httpapi "github.com/agriconnect/farmerportal/internal/portal/http"
	"github.com/agriconnect/farmerportal/internal/portal/mailer"
	"github.com/agriconnect/farmerportal/internal/portal/otp"
	"github.com/agriconnect/farmerportal/internal/portal/service"
	"github.com/agriconnect/farmerportal/internal/portal/store"
	"github.com/agriconnect/farmerportal/internal/portal/store/drivers/jsonfile"
	"github.com/agriconnect/farmerportal/internal/portal/store/drivers/sqlite"
	"github.com/agriconnect/farmerportal/pkg/cryptox"
	"github.com/agriconnect/farmerportal/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application is the farmer portal with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	otpStore otp.Store
	cache    io.Closer // redis client, nil in memory mode
	mail     mailer.Mailer
	prices   feeds.MarketPriceProvider
	weather  feeds.WeatherProvider

	// Services
	tokenService        *service.TokenService
	credentials         *service.Credentials
	accountService      *service.AccountService
	adminService        *service.AdminService
	mfaService          *service.MFAService
	subsidyService      *service.SubsidyService
	notificationService *service.NotificationService
	statsService        *service.StatsService
	marketPriceService  *service.MarketPriceService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService
	feedScheduler       *service.FeedScheduler

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New validates cfg and builds the application. Nothing is served until
// Run.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "farmer-portal",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	ctx := slogx.WithContext(context.Background(), app.logger)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initOTPStore(ctx); err != nil {
		app.closeStores()
		return nil, err
	}
	if err := app.initMailer(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initFeeds()

	if err := app.initServices(); err != nil {
		app.closeStores()
		return nil, err
	}
	app.initHTTP()

	if err := app.bootstrap(ctx); err != nil {
		app.closeStores()
		return nil, err
	}

	return app, nil
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()
	app.feedScheduler.Start()

	app.logger.Info("farmer portal starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"storage", app.cfg.StorageMode,
		"otp_store", app.cfg.OTPStore,
		"require_admin_approval", app.cfg.RequireAdminApproval,
	)

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
		app.stopWorkers()
		app.closeStores()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down farmer portal...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.stopWorkers()
	if err := app.closeStores(); err != nil {
		return err
	}

	app.logger.Info("farmer portal stopped")
	return nil
}

func (app *Application) stopWorkers() {
	app.housekeepingService.Stop()
	app.feedScheduler.Stop()
}

func (app *Application) closeStores() error {
	var errs []error
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing redis", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// initDatabase opens the configured store and applies migrations
func (app *Application) initDatabase() error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.StorageMode {
	case "json":
		db, err = jsonfile.NewStore(app.cfg.DataDir)
	default:
		dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
		db, err = sqlite.NewStore(dsn)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s store: %w", app.cfg.StorageMode, err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		app.db = nil
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database ready", "mode", app.cfg.StorageMode)
	return nil
}

func (app *Application) initOTPStore(ctx context.Context) error {
	if app.cfg.OTPStore != "redis" {
		app.otpStore = otp.NewMemoryStore()
		app.logger.Warn("otp challenges kept in memory, run a single instance")
		return nil
	}

	client, err := otp.NewRedisClient(ctx, app.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.cache = client
	app.otpStore = otp.NewRedisStore(client)
	app.logger.Info("otp challenges kept in redis")
	return nil
}

func (app *Application) initMailer() error {
	if app.cfg.MailDriver != "smtp" {
		app.mail = &mailer.LogMailer{Logger: app.logger}
		app.logger.Warn("mail driver is log, codes are written to the log")
		return nil
	}

	m, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     app.cfg.SMTPHost,
		Port:     app.cfg.SMTPPort,
		Username: app.cfg.SMTPUsername,
		Password: app.cfg.SMTPPassword,
		From:     app.cfg.SMTPFrom,
		FromName: "Krushi Mithra",
	})
	if err != nil {
		return fmt.Errorf("failed to configure smtp: %w", err)
	}
	app.mail = m
	return nil
}

func (app *Application) initFeeds() {
	app.prices = feeds.NewDataGovMarket(feeds.DataGovConfig{
		URL:    app.cfg.MarketAPIURL,
		APIKey: app.cfg.MarketAPIKey,
	})
	app.weather = feeds.NewOpenWeather(feeds.OpenWeatherConfig{
		URL:    app.cfg.WeatherAPIURL,
		APIKey: app.cfg.WeatherAPIKey,
	})
	if app.cfg.MarketAPIURL == "" {
		app.logger.Warn("MARKET_API_URL unset, serving fallback market prices")
	}
	if app.cfg.WeatherAPIURL == "" {
		app.logger.Warn("WEATHER_API_URL unset, serving fallback weather")
	}
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	secret := app.cfg.JWTSecret
	if secret == "" {
		// Validate only allows this in dev.
		generated, err := cryptox.GenerateToken(32)
		if err != nil {
			return fmt.Errorf("generate jwt secret: %w", err)
		}
		secret = generated
		app.logger.Warn("JWT_SECRET unset, using a random secret: tokens die with the process")
	}

	tokens, err := service.NewTokenService([]byte(secret), app.cfg.JWTIssuer, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize tokens: %w", err)
	}
	app.tokenService = tokens

	app.credentials = &service.Credentials{Store: app.db}
	app.accountService = &service.AccountService{
		Store:                app.db,
		Credentials:          app.credentials,
		Tokens:               tokens,
		OTP:                  otp.NewVerifier(app.otpStore, app.mail),
		RequireAdminApproval: app.cfg.RequireAdminApproval,
	}
	app.mfaService = &service.MFAService{Store: app.db, Issuer: "Krushi Mithra"}
	app.adminService = &service.AdminService{Store: app.db, Tokens: tokens, MFA: app.mfaService}
	app.subsidyService = &service.SubsidyService{Store: app.db}
	app.notificationService = &service.NotificationService{Store: app.db}
	app.statsService = &service.StatsService{Store: app.db}
	app.marketPriceService = &service.MarketPriceService{Store: app.db, Feed: app.prices}
	app.bootstrapService = &service.BootstrapService{
		Store:    app.db,
		Email:    app.cfg.AdminEmail,
		Password: app.cfg.AdminPassword,
		Username: app.cfg.AdminUsername,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.accountService.OTP,
		app.logger,
		app.cfg.OTPSweepInterval,
	)

	app.feedScheduler, err = service.NewFeedScheduler(
		app.prices,
		app.cfg.MarketRefreshSchedule,
		app.cfg.MarketTimezone,
		app.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize feed scheduler: %w", err)
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.logger)

	if app.cfg.RateLimits != (httpapi.Limits{}) {
		router.Limits = app.cfg.RateLimits
	}
	router.CORSOrigins = app.cfg.CORSAllowedOrigins
	router.Ready["database"] = app.db
	if p, ok := app.otpStore.(httpapi.Pinger); ok {
		router.Ready["otp_store"] = p
	}

	// Wire services to router
	router.Guard = &service.Guard{Tokens: app.tokenService, Store: app.db, Accounts: app.accountService}
	router.Accounts = app.accountService
	router.Credentials = app.credentials
	router.Admins = app.adminService
	router.MFA = app.mfaService
	router.Subsidies = app.subsidyService
	router.Notifications = app.notificationService
	router.Stats = app.statsService
	router.MarketPrices = app.marketPriceService
	router.Prices = app.marketPriceService
	router.Weather = app.weather
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// bootstrap creates the MAIN_ADMIN on first start. A missing admin is
// logged, not fatal: the farmer routes still work.
func (app *Application) bootstrap(ctx context.Context) error {
	created, err := app.bootstrapService.EnsureMainAdmin(ctx)
	switch {
	case errors.Is(err, service.ErrBootstrapNotConfigured):
		return nil
	case err != nil:
		return fmt.Errorf("failed to bootstrap main admin: %w", err)
	case created:
		app.logger.Info("main admin created", "email", app.cfg.AdminEmail)
	}
	return nil
}
