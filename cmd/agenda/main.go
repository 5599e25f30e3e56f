package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/agenda-booking/internal/application"
	"github.com/example/agenda-booking/internal/cache"
	"github.com/example/agenda-booking/internal/config"
	httptransport "github.com/example/agenda-booking/internal/http"
	"github.com/example/agenda-booking/internal/logging"
	"github.com/example/agenda-booking/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logging.New(os.Stderr, slog.LevelInfo).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.New(os.Stdout, level)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start agenda service", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("agenda API listening", "addr", server.Addr, "timezone", cfg.Timezone)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// app bundles the HTTP handler with the resources it owns.
type app struct {
	Handler http.Handler
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type appOptions struct {
	now   func() time.Time
	newID func() string
}

type appOption func(*appOptions)

// withClock replaces the wall clock used by every service.
func withClock(now func() time.Time) appOption {
	return func(o *appOptions) { o.now = now }
}

// withIDs replaces the UUID generator for stored records.
func withIDs(newID func() string) appOption {
	return func(o *appOptions) { o.newID = newID }
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...appOption) (*app, error) {
	if logger == nil {
		logger = slog.Default()
	}
	options := appOptions{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(&options)
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}

	storage, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a := &app{closers: []func() error{storage.Close}}

	if err := storage.MigrateWithLogger(ctx, logger); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	idGenerator := options.newID
	tokenGenerator := func() string { return randomHex(32) }
	now := options.now
	availability := newAvailabilityCache(cfg, logger, a, now)

	agendaRepo := newAgendaRepositoryAdapter(storage.Agendas)
	serviceCatalog := newServiceCatalogAdapter(storage.Services)
	addressRepo := newAddressRepositoryAdapter(storage.Addresses)
	appointmentRepo := newAppointmentRepositoryAdapter(storage.Appointments)
	userRepo := newUserRepositoryAdapter(storage.Users)
	sessionRepo := newSessionRepositoryAdapter(storage.Sessions)
	credentialStore := newCredentialStoreAdapter(storage.Users)

	agendaService := application.NewAgendaServiceWithLogger(agendaRepo, serviceCatalog, availability, nil, idGenerator, now, logger)
	bookingService := application.NewBookingServiceWithLogger(agendaRepo, serviceCatalog, appointmentRepo, now, logger,
		application.WithLocation(location),
		application.WithHorizonDays(cfg.BookingHorizonDays),
		application.WithAvailabilityCache(availability),
	)
	catalogService := application.NewCatalogServiceWithLogger(serviceCatalog, addressRepo, availability, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(userRepo, nil, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(credentialStore, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)
	reportService := application.NewReportServiceWithLogger(agendaRepo, appointmentRepo, now, logger)
	datasetService := application.NewDatasetService(agendaRepo, serviceCatalog, addressRepo, appointmentRepo, userRepo, logger)

	if _, err := userService.EnsureSeedAdmin(ctx, cfg.AdminLogin, cfg.AdminPassword); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("seed administrator: %w", err)
	}
	if err := catalogService.SeedDefaults(ctx); err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	limiter := httptransport.NewRateLimiter(httptransport.RateLimitConfig{
		PerMinute:         cfg.PublicRatePerMinute,
		Burst:             cfg.PublicRateBurst,
		TrustForwardedFor: cfg.TrustProxy,
	})

	a.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:        httptransport.NewAuthHandler(authService, logger),
		Agendas:     httptransport.NewAgendaHandler(agendaService, logger),
		Public:      httptransport.NewPublicHandler(bookingService, logger),
		Catalog:     httptransport.NewCatalogHandler(catalogService, logger),
		Users:       httptransport.NewUserHandler(userService, logger),
		Reports:     httptransport.NewReportHandler(reportService, datasetService, location, logger),
		Session:     httptransport.RequireSession(authService, logger),
		PublicLimit: limiter.Middleware(logger, http.MethodPost, http.MethodPut, http.MethodDelete),
		Health:      storage.Ping,
		Middleware:  []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})
	return a, nil
}

// newAvailabilityCache prefers Redis when configured and falls back to the
// in-process cache when the server cannot be reached.
func newAvailabilityCache(cfg config.Config, logger *slog.Logger, a *app, now func() time.Time) application.AvailabilityCache {
	if cfg.UsesRedis() {
		client, err := cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err == nil {
			logger.Info("availability cache backed by redis", "addr", cfg.RedisAddr)
			a.closers = append(a.closers, client.Close)
			return cache.NewRedisAvailabilityCache(client, cfg.CacheTTL)
		}
		logger.Warn("redis unavailable, using in-memory availability cache", "addr", cfg.RedisAddr, "error", err)
	}
	return application.NewMemoryAvailabilityCache(cfg.CacheTTL, 0, now)
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
