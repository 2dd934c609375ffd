package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pumpcontrol/internal/eventbus"
	"pumpcontrol/internal/handlers"
	"pumpcontrol/internal/logger"
	"pumpcontrol/internal/mqtt"
	"pumpcontrol/internal/repository"
	"pumpcontrol/internal/repository/db"
	"pumpcontrol/internal/server"
	"pumpcontrol/internal/service"

	"github.com/spf13/viper"
)

func main() {
	// load config.yml first so the logger picks up the configured level
	if err := loadConfig(); err != nil {
		fallback := logger.Get(logger.InfoLevel)
		fallback.Fatalw("error reading config", "err", err)
	}

	log := logger.Get(logLevel())

	// open DB
	sqlDB, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	bus := eventbus.New(log)
	services := service.NewService(repos, bus, log)
	apiHandler := handlers.NewHandlerWithBus(services, bus, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// re-arm persisted schedule entries before serving traffic
	if err := services.Scheduler.ReconcileOnStartup(ctx); err != nil {
		log.Fatalw("failed to reconcile schedules", "err", err)
	}

	// optional MQTT ingestion
	ingestor := startMQTT(ctx, services, log)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, services, ingestor, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

func logLevel() string {
	if lvl := viper.GetString("log.level"); lvl != "" {
		return lvl
	}
	return logger.InfoLevel
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return db.InitDB(dbPath)
}

// startMQTT connects the telemetry ingestor when a broker is configured.
func startMQTT(ctx context.Context, services *service.Service, log *logger.Logger) *mqtt.Ingestor {
	broker := viper.GetString("mqtt.broker")
	if broker == "" {
		return nil
	}
	ing := mqtt.NewIngestor(mqtt.Config{
		Broker:   broker,
		Topic:    viper.GetString("mqtt.topic"),
		ClientID: viper.GetString("mqtt.client_id"),
	}, services.Telemetry, services.Pump, log)
	if err := ing.Start(ctx); err != nil {
		log.Errorw("mqtt ingestion disabled", "err", err, "broker", broker)
		return nil
	}
	return ing
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, ingestor *mqtt.Ingestor, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines and armed timers
	cancel()
	services.Scheduler.Shutdown()
	if ingestor != nil {
		ingestor.Stop()
	}

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
