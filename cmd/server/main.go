package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/iota-uz/shepherd/internal/server"
	"github.com/iota-uz/shepherd/modules"
	"github.com/iota-uz/shepherd/pkg/application"
	"github.com/iota-uz/shepherd/pkg/configuration"
	"github.com/iota-uz/shepherd/pkg/database"
	"github.com/iota-uz/shepherd/pkg/eventbus"
	"github.com/iota-uz/shepherd/pkg/logging"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(
			context.Background(),
			conf.OpenTelemetry.ServiceName,
			conf.OpenTelemetry.TempoURL,
		)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()
	db, err := database.Open(openCtx, conf.Database.Driver, conf.Database.DSN)
	if err != nil {
		panic(err)
	}
	defer db.Close()
	if database.IsMemoryDSN(conf.Database.DSN) {
		logger.Warn("DB_DSN points to an in-memory database; contacts are lost on restart")
	}
	if err := database.Migrate(ctx, db, logger); err != nil {
		panic(err)
	}

	app := application.New(&application.ApplicationOptions{
		DB:       db,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(conf)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if !conf.OpenAI.Enabled() {
		logger.Info("OPENAI_KEY not set; outreach drafting disabled")
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		DB:            db,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
