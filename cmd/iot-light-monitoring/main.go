package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diwise/iot-light-monitoring/internal/pkg/application"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/events"
	"github.com/diwise/iot-light-monitoring/internal/pkg/application/webevents"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/mqtt"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/router"
	"github.com/diwise/iot-light-monitoring/internal/pkg/presentation/api"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/metrics"
)

const serviceName string = "iot-light-monitoring"

func main() {
	// a .env file is optional and only meant for local development
	_ = godotenv.Load()

	serviceVersion := buildinfo.SourceVersion()

	ctx, logger, cleanup := o11y.Init(context.Background(), serviceName, serviceVersion)
	defer cleanup()

	ctx, flags := parseExternalConfig(ctx, defaultFlags())

	cfg, err := loadConfigurationFile(ctx, flags[configurationFile])
	exitIf(err, logger, "could not load configuration file")

	db, err := newDatabase(ctx, flags)
	exitIf(err, logger, "could not create or connect to database")

	publisher, err := newPublisher(ctx, flags, cfg)
	exitIf(err, logger, "could not connect to mqtt broker")
	defer publisher.Close()

	we := webevents.New()
	defer we.Shutdown()

	sender, closeSender, err := newEventSender(ctx, flags, cfg, we)
	exitIf(err, logger, "could not create event sender")
	defer closeSender()

	app, r, err := initialize(ctx, db, cfg, publisher, sender, we)
	exitIf(err, logger, "failed to initialize application")

	err = app.Start(ctx)
	exitIf(err, logger, "failed to start liveness watchdog")

	control := &http.Server{Addr: flags[listenAddress] + ":" + flags[controlPort], Handler: newControlMux()}
	public := &http.Server{Addr: flags[listenAddress] + ":" + flags[servicePort], Handler: r}

	go func() {
		logger.Info().Str("port", flags[controlPort]).Msg("starting control server")
		if err := control.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("control server failed")
		}
	}()

	go func() {
		logger.Info().Str("port", flags[servicePort]).Msg("starting to listen for connections")
		if err := public.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			exitIf(err, logger, "failed to start request router")
		}
	}()

	sigctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigctx.Done()

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	public.Shutdown(shutdownCtx)
	control.Shutdown(shutdownCtx)

	if err := app.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("watchdog did not stop in time")
	}
}

func initialize(ctx context.Context, db *gorm.DB, cfg *application.Config, publisher mqtt.Publisher, sender events.EventSender, we webevents.WebEvents) (application.App, *chi.Mux, error) {
	app, err := application.New(db, cfg, publisher, sender)
	if err != nil {
		return nil, nil, err
	}

	var feed http.Handler
	if we != nil {
		feed = we.Handler()
	}

	r := api.RegisterHandlers(ctx, router.New(serviceName), app, feed)

	return app, r, nil
}

func newControlMux() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	metrics.AddHandlers(r)

	return r
}

func newDatabase(ctx context.Context, flags flagMap) (*gorm.DB, error) {
	logger := logging.GetFromContext(ctx)
	cfg := database.LoadConfigFromEnv(ctx)

	if cfg.Host == "" || flags[devmode] == "true" {
		logger.Warn().Msg("no database host configured, using an in-memory database")
		return database.NewSQLiteConnector(ctx)()
	}

	return database.NewPostgreSQLConnector(ctx, cfg)()
}

func newPublisher(ctx context.Context, flags flagMap, cfg *application.Config) (mqtt.Publisher, error) {
	mqttCfg := cfg.MQTT

	if flags[mqttBrokerURL] != "" {
		mqttCfg.BrokerURL = flags[mqttBrokerURL]
	}
	if flags[mqttUser] != "" {
		mqttCfg.Username = flags[mqttUser]
		mqttCfg.Password = flags[mqttPassword]
	}

	if mqttCfg.BrokerURL == "" {
		logger := logging.GetFromContext(ctx)
		logger.Info().Msg("no mqtt broker configured, led commands are only available by polling")
		return mqtt.NewNoopPublisher(), nil
	}

	if mqttCfg.ClientID == "" {
		mqttCfg.ClientID = serviceName
	}

	return mqtt.NewPublisher(ctx, mqttCfg)
}

func newEventSender(ctx context.Context, flags flagMap, cfg *application.Config, we webevents.WebEvents) (events.EventSender, func(), error) {
	webhooks, err := events.New(cfg.EventsConfig())
	if err != nil {
		return nil, nil, err
	}

	if flags[rabbitMQURL] == "" {
		return events.Multi(webhooks, we), func() {}, nil
	}

	broker, closeBroker, err := events.NewAMQPSender(flags[rabbitMQURL], cfg.AMQP.Exchange)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.GetFromContext(ctx)
	logger.Info().Msg("publishing events to message broker")

	return events.Multi(webhooks, we, broker), closeBroker, nil
}

func loadConfigurationFile(ctx context.Context, path string) (*application.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger := logging.GetFromContext(ctx)
			logger.Warn().Str("path", path).Msg("configuration file not found, using defaults")
			return &application.Config{}, nil
		}
		return nil, err
	}
	defer f.Close()

	return parseExternalConfigFile(ctx, f)
}

func parseExternalConfigFile(_ context.Context, cfgFile io.Reader) (*application.Config, error) {
	cfg, err := application.LoadConfiguration(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return cfg, nil
}

func parseExternalConfig(ctx context.Context, flags flagMap) (context.Context, flagMap) {
	logger := logging.GetFromContext(ctx)

	// Allow environment variables to override certain defaults
	envOrDef := func(name, def string) string {
		return env.GetVariableOrDefault(logger, name, def)
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[controlPort] = envOrDef("CONTROL_PORT", flags[controlPort])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])

	flags[configurationFile] = envOrDef("CONFIG_FILE", flags[configurationFile])

	flags[mqttBrokerURL] = envOrDef("MQTT_BROKER_URL", flags[mqttBrokerURL])
	flags[mqttUser] = envOrDef("MQTT_USER", flags[mqttUser])
	flags[mqttPassword] = envOrDef("MQTT_PASSWORD", flags[mqttPassword])
	flags[rabbitMQURL] = envOrDef("RABBITMQ_URL", flags[rabbitMQURL])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// Allow command line arguments to override defaults and environment variables
	flag.Func("config", "light monitoring configuration file", apply(configurationFile))
	flag.Func("devmode", "use an in-memory database", apply(devmode))
	flag.Parse()

	return ctx, flags
}

func exitIf(err error, logger zerolog.Logger, msg string) {
	if err != nil {
		logger.Error().Err(err).Msg(msg)
		time.Sleep(2 * time.Second)
		os.Exit(1)
	}
}
