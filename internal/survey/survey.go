// Package survey assembles the scanner daemon: storage, event consumers,
// radio sources, the scan orchestrator and the HTTP surfaces.
package survey

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/rfscan-go/internal/api"
	"github.com/tphakala/rfscan-go/internal/conf"
	"github.com/tphakala/rfscan-go/internal/datastore"
	"github.com/tphakala/rfscan-go/internal/errors"
	"github.com/tphakala/rfscan-go/internal/events"
	"github.com/tphakala/rfscan-go/internal/logger"
	"github.com/tphakala/rfscan-go/internal/mqtt"
	"github.com/tphakala/rfscan-go/internal/notification"
	"github.com/tphakala/rfscan-go/internal/observability"
	"github.com/tphakala/rfscan-go/internal/observation"
	"github.com/tphakala/rfscan-go/internal/scanner"
	"github.com/tphakala/rfscan-go/internal/telemetry"
)

const (
	eventBusShutdownTimeout = 5 * time.Second
	sentryFlushTimeout      = 2 * time.Second
	mqttConnectTimeout      = 10 * time.Second
	mqttRetryInterval       = 30 * time.Second
	// stopGrace is added to the scan drain timeout when stopping on exit.
	stopGrace = 5 * time.Second
)

// GetLogger returns the survey package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("survey")
}

// Options control a daemon run.
type Options struct {
	Version string
	// AutoStart begins scanning immediately instead of waiting for the API.
	AutoStart bool
}

// Run starts the daemon and blocks until ctx is cancelled, then shuts
// everything down in reverse order.
func Run(ctx context.Context, settings *conf.Settings, opts Options) error {
	log := GetLogger()
	logSystemInfo(log)

	m, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store, err := datastore.Open(settings, m.Datastore)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("failed to close datastore", logger.Error(err))
		}
	}()

	bus, err := events.Initialize(events.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	closeConsumers, err := registerConsumers(ctx, settings, opts.Version, bus, m)
	defer func() {
		// Drain the bus before its consumers go away
		if err := events.ResetGlobal(eventBusShutdownTimeout); err != nil {
			log.Warn("event bus did not drain", logger.Error(err))
		}
		closeConsumers()
	}()
	if err != nil {
		return err
	}

	errors.SetEventPublisher(events.NewEventPublisherAdapter(bus))
	defer errors.ClearEventPublisher()

	sources, err := OpenSources(&settings.Scan, opts.Version)
	if err != nil {
		return err
	}
	defer sources.Close()

	aggregator := observation.New(store)
	orchestrator := scanner.New(scanner.Deps{
		Aggregator: aggregator,
		Keys:       store.IRKs,
		Wifi:       sources.Wifi,
		BLE:        sources.BLE,
		Classic:    sources.Classic,
		Position:   sources.Position,
		Events:     bus,
		Metrics:    m.Scanner,
	}, scanner.ConfigFromSettings(&settings.Scan), scanner.OptionsFromSettings(&settings.Scan))

	// Servers and background loops stop when serveCtx ends, after the
	// orchestrator has drained.
	serveCtx, cancelServe := context.WithCancel(context.Background())
	defer cancelServe()
	var wg sync.WaitGroup

	if settings.Telemetry.Enabled {
		endpoint, err := observability.NewEndpoint(settings, m)
		if err != nil {
			return err
		}
		if err := endpoint.Start(serveCtx, &wg); err != nil {
			return err
		}
	}

	if settings.API.Enabled {
		server, err := api.New(&settings.API, store,
			api.WithScanner(orchestrator),
			api.WithStats(aggregator),
			api.WithMetrics(m))
		if err != nil {
			return err
		}
		if err := server.Start(serveCtx, &wg); err != nil {
			return err
		}
	}

	wg.Go(func() {
		monitorDatastore(serveCtx, store, m.Datastore, datastoreMetricsInterval)
	})

	if opts.AutoStart {
		if err := orchestrator.Start(ctx); err != nil {
			log.Error("failed to start scanning", logger.Error(err))
		}
	}

	log.Info("rfscan running",
		logger.String("version", opts.Version),
		logger.String("database", store.Manager().Path()),
		logger.Bool("api", settings.API.Enabled),
		logger.Bool("auto_start", opts.AutoStart))

	<-ctx.Done()
	log.Info("shutdown signal received")

	stopCtx, cancelStop := context.WithTimeout(context.Background(), settings.Scan.DrainTimeout+stopGrace)
	if err := orchestrator.Stop(stopCtx); err != nil {
		log.Warn("scan stopped with errors", logger.Error(err))
	}
	cancelStop()

	cancelServe()
	wg.Wait()

	log.Info("shutdown complete")
	return nil
}

// registerConsumers attaches the optional bus consumers and returns a
// function that releases them. The returned function is safe to call even
// when an error is returned.
func registerConsumers(ctx context.Context, settings *conf.Settings, version string, bus *events.EventBus, m *observability.Metrics) (func(), error) {
	log := GetLogger()
	var closers []func()
	release := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := bus.RegisterConsumer(events.NewLogConsumer(nil)); err != nil {
		return release, err
	}

	if err := telemetry.InitSentry(settings, version); err != nil {
		log.Warn("error reporting disabled", logger.Error(err))
	} else if settings.Sentry.Enabled {
		closers = append(closers, func() { telemetry.Flush(sentryFlushTimeout) })
		worker := telemetry.NewWorker(errors.GetTelemetryReporter(), telemetry.DefaultWorkerConfig())
		if err := bus.RegisterConsumer(worker); err != nil {
			return release, err
		}
	}

	if settings.MQTT.Enabled {
		cfg := mqtt.ConfigFromSettings(&settings.MQTT)
		client := mqtt.NewClient(cfg, m.MQTT)
		closers = append(closers, client.Disconnect)

		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := client.Connect(connectCtx)
		cancel()
		if err != nil {
			log.Warn("MQTT broker not reachable, retrying in background",
				logger.String("broker", cfg.Broker), logger.Error(err))
			retryCtx, stopRetry := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				reconnect(retryCtx, client, mqttRetryInterval)
			}()
			closers = append(closers, func() {
				stopRetry()
				<-done
			})
		}

		if err := bus.RegisterConsumer(mqtt.NewPublisher(client, cfg)); err != nil {
			return release, err
		}
	}

	if settings.Notification.Enabled {
		svc, err := notification.NewService(&settings.Notification, m.Notification)
		if err != nil {
			return release, err
		}
		closers = append(closers, svc.Close)
		if err := bus.RegisterConsumer(svc); err != nil {
			return release, err
		}
	}

	return release, nil
}

// reconnect retries the initial broker connection until it succeeds or ctx
// ends. Once connected, the client reconnects on its own.
func reconnect(ctx context.Context, client mqtt.Client, interval time.Duration) {
	log := GetLogger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err := client.Connect(connectCtx)
		cancel()
		if err == nil {
			log.Info("MQTT broker connected")
			return
		}
		log.Debug("MQTT connect retry failed", logger.Error(err))
	}
}
