package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	tele "gopkg.in/telebot.v3"

	"instantride/internal/app"
	"instantride/internal/config"
	"instantride/internal/handler"
	"instantride/internal/logger"
	"instantride/internal/notify"
	"instantride/internal/realtime"
	"instantride/internal/repository"
	"instantride/internal/repository/memory"
	"instantride/internal/repository/postgres"
	"instantride/internal/route"
	"instantride/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(cfg *config.Config, log logger.ILogger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// New Relic first so the database and Redis clients get instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warning("failed to initialize New Relic", logger.Error(err))
		} else {
			log.Info("New Relic enabled", logger.String("app", cfg.NewRelic.AppName))
			defer nrApp.Shutdown(5 * time.Second)
		}
	}

	store, closeStore, err := openStore(ctx, cfg, nrApp, log)
	if err != nil {
		return err
	}
	defer closeStore()

	coord, err := app.NewCoordination(ctx, cfg.Redis, cfg.Storage.LockDriver, nrApp)
	if err != nil {
		return err
	}
	defer func() { _ = coord.Close() }()

	pricing := service.NewPricingRegistry(store.Pricing(), log)
	if err := pricing.Load(ctx); err != nil {
		return err
	}
	if cfg.Seed {
		if err := service.Seed(ctx, store, pricing, time.Now()); err != nil {
			return err
		}
		log.Info("demo data seeded")
	}

	hub := realtime.NewHub(cfg.Notification.TrackingPingTime, log)
	defer hub.Close()

	notifiers := []service.Notifier{service.NewLogNotifier(log), hub}

	if cfg.Notification.AMQPURL != "" {
		publisher, err := notify.NewAMQPPublisher(cfg.Notification.AMQPURL, cfg.Notification.AMQPExchange, log)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
		notifiers = append(notifiers, publisher)
		log.Info("AMQP notifications enabled", logger.String("exchange", cfg.Notification.AMQPExchange))
	}

	var bot *tele.Bot
	if cfg.Notification.TelegramToken != "" {
		bot, err = notify.NewTelegramBot(cfg.Notification.TelegramToken, log)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, notify.NewTelegramNotifier(bot, store.Drivers(), cfg.Notification.TelegramOpsChat, log))
		go bot.Start()
		defer bot.Stop()
		log.Info("Telegram notifications enabled")
	}

	notifications := service.NewNotificationService(log, notifiers...)
	defer notifications.Wait()

	var routes service.RouteProvider = route.NewFixedProvider(nil)
	if cfg.Maps.GoogleAPIKey != "" {
		gm, err := route.NewGoogleMapsProvider(cfg.Maps.GoogleAPIKey, cfg.Maps.Region)
		if err != nil {
			return err
		}
		routes = gm
		log.Info("Google Maps routing enabled", logger.String("region", cfg.Maps.Region))
	}

	// Initialize services.
	loc := cfg.Report.Location()
	payments := service.NewPaymentService(store, service.NewMockGateway(), notifications, coord.RideCache, log)
	rides := service.NewRideService(store, pricing, routes, payments, notifications, coord.RideCache, log)
	dispatch := service.NewDispatchService(store, coord.Locks, notifications, coord.RideCache, log,
		cfg.Dispatch.LockTTL, cfg.Dispatch.DefaultETA)
	drivers := service.NewDriverService(store, log)
	shuttles := service.NewShuttleService(store, log)
	queries := service.NewQueryService(store, loc)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:     handler.NewRideHandler(rides, payments, queries, hub),
		DispatchHandler: handler.NewDispatchHandler(dispatch),
		DriverHandler:   handler.NewDriverHandler(drivers),
		ShuttleHandler:  handler.NewShuttleHandler(shuttles),
		PricingHandler:  handler.NewPricingHandler(pricing, log),
		PaymentHandler:  handler.NewPaymentHandler(payments),
		ReportHandler:   handler.NewReportHandler(queries, loc),
		Responses:       coord.Responses,
		AdminJWTSecret:  cfg.Auth.AdminJWTSecret,
		NewRelicApp:     nrApp,
		Logger:          log,
	})
	if cfg.Auth.AdminJWTSecret == "" {
		log.Warning("ADMIN_JWT_SECRET is empty, admin routes are unauthenticated")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", logger.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down server", logger.String("signal", sig.String()))
	case err := <-serveErr:
		return err
	}

	// Tracking sockets are hijacked connections that Shutdown does not wait
	// for.
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// openStore returns the configured repository.Store and a function that
// releases it.
func openStore(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application, log logger.ILogger) (repository.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := app.NewDatabase(ctx, cfg.Database, nrApp, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("connected to PostgreSQL", logger.String("db", cfg.Database.DBName))
		return postgres.NewStore(db), func() { _ = db.Close() }, nil
	default:
		log.Info("using in-memory store")
		return memory.NewStore(), func() {}, nil
	}
}
