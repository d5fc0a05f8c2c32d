package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fleetrelay/fleetrelay/internal/audit"
	"github.com/fleetrelay/fleetrelay/internal/auditindex"
	"github.com/fleetrelay/fleetrelay/internal/config"
	"github.com/fleetrelay/fleetrelay/internal/coordinator"
	"github.com/fleetrelay/fleetrelay/internal/eventbus"
	"github.com/fleetrelay/fleetrelay/internal/httpapi"
	xglog "github.com/fleetrelay/fleetrelay/internal/log"
	"github.com/fleetrelay/fleetrelay/internal/policy"
	"github.com/fleetrelay/fleetrelay/internal/report"
	"github.com/fleetrelay/fleetrelay/internal/seed"
	"github.com/fleetrelay/fleetrelay/internal/store"
	"github.com/fleetrelay/fleetrelay/internal/tracing"
)

// appDeps bundles every long-lived dependency wireApp constructs, so main
// and App share one place that knows how to tear them down. Close stops the
// coordinator's telemetry worker first, while the audit index and event
// publisher its final drain writes to are still open.
type appDeps struct {
	Coordinator   *coordinator.Coordinator
	AuditLog      *audit.Log
	AuditIndex    *auditindex.Index
	Policies      *policy.Registry
	ZoneWatcher   *config.ZoneWatcher
	ReportStore   *report.Store
	Events        eventbus.Publisher
	Tracing       *tracing.Provider
	HTTPServer    *httpapi.Server
	HTTPValidator *httpapi.Validator

	reportDB interface{ Close() error }
}

// Close releases every resource wireApp opened, logging but not failing on
// individual close errors since this only ever runs during shutdown.
func (d *appDeps) Close() {
	logger := xglog.WithComponent("main")
	if d.Coordinator != nil {
		d.Coordinator.StopTelemetryMonitor()
	}
	if d.ZoneWatcher != nil {
		d.ZoneWatcher.Stop()
	}
	if d.Events != nil {
		if err := d.Events.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing event publisher")
		}
	}
	if d.AuditIndex != nil {
		if err := d.AuditIndex.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing audit index")
		}
	}
	if d.reportDB != nil {
		if err := d.reportDB.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing report store")
		}
	}
	if d.Tracing != nil {
		if err := d.Tracing.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("shutting down tracer provider")
		}
	}
}

// wireApp constructs every subsystem named in the dependency table: CSV
// stores, the audit log, the badger seq/checksum index rebuilt from the
// CSV log, the city policy registry (optionally hot-reloaded), the
// coordinator itself, the SQLite reporting mirror, the optional Redis
// event bus, and the HTTP façade — in the order each depends on the last.
func wireApp(ctx context.Context, cfg config.AppConfig) (*appDeps, error) {
	logger := xglog.WithComponent("main")
	deps := &appDeps{}

	tracingProvider, err := tracing.NewProvider(ctx, tracingConfigFromEnv(cfg))
	if err != nil {
		return nil, err
	}
	deps.Tracing = tracingProvider

	vehicleStore := store.NewVehicleStore(filepath.Join(cfg.DataDir, "vehicles.csv"))
	rentalStore := store.NewRentalStore(filepath.Join(cfg.DataDir, "rentals.csv"))
	paymentStore := store.NewPaymentStore(filepath.Join(cfg.DataDir, "payments.csv"))
	userStore := store.NewUserStore(filepath.Join(cfg.DataDir, "users.csv"))

	if err := seed.Apply(vehicleStore, userStore); err != nil {
		return nil, err
	}

	auditLog, err := audit.Open(store.NewAuditStore(filepath.Join(cfg.DataDir, "audit_log.csv")))
	if err != nil {
		return nil, err
	}
	deps.AuditLog = auditLog

	auditIdx, err := auditindex.Open(filepath.Join(cfg.DataDir, "audit_index"))
	if err != nil {
		return nil, err
	}
	if err := auditIdx.Rebuild(auditLog.Entries()); err != nil {
		return nil, err
	}
	deps.AuditIndex = auditIdx

	registry := policy.NewRegistry(config.BuildGates(cfg.Zones))
	deps.Policies = registry

	if cfg.ZonesFile != "" {
		watcher, err := config.NewZoneWatcher(cfg.ZonesFile, registry)
		if err != nil {
			return nil, err
		}
		if err := watcher.Start(ctx); err != nil {
			logger.Warn().Err(err).Msg("zone watcher failed to start; zones stay static for this run")
		} else {
			deps.ZoneWatcher = watcher
		}
	}

	events := eventPublisherFromEnv(logger)
	deps.Events = events

	c, err := coordinator.New(coordinator.Deps{
		Vehicles:               vehicleStore,
		Rentals:                rentalStore,
		Payments:               paymentStore,
		Users:                  userStore,
		Audit:                  auditLog,
		Policies:               registry,
		Events:                 events,
		AuditIndexer:           auditIdx,
		TelemetryQueueCapacity: cfg.TelemetryQueueCapacity,
	})
	if err != nil {
		return nil, err
	}
	deps.Coordinator = c

	reportDB, err := report.Open(reportDBPath(cfg.DataDir), report.DefaultConfig())
	if err != nil {
		return nil, err
	}
	reportStore := report.NewStore(reportDB)
	deps.ReportStore = reportStore
	deps.reportDB = reportDB
	if err := reportStore.RefreshVehicles(ctx, c.Vehicles()); err != nil {
		return nil, err
	}
	if err := reportStore.RefreshRentals(ctx, c.Rentals()); err != nil {
		return nil, err
	}

	validator, err := httpapi.NewValidator()
	if err != nil {
		return nil, err
	}
	deps.HTTPValidator = validator

	httpCfg := httpapi.DefaultConfig()
	httpCfg.ListenAddr = cfg.ListenAddr
	httpCfg.ServiceName = "fleetrelayd"
	deps.HTTPServer = httpapi.NewServer(httpCfg, c, reportStore, validator)

	go c.Run()

	return deps, nil
}

func tracingConfigFromEnv(cfg config.AppConfig) tracing.Config {
	enabled, _ := strconv.ParseBool(os.Getenv("FLEETRELAY_OTEL_ENABLED"))
	exporterType := os.Getenv("FLEETRELAY_OTEL_EXPORTER")
	if exporterType == "" {
		exporterType = "grpc"
	}
	samplingRate := 1.0
	if v := os.Getenv("FLEETRELAY_OTEL_SAMPLING_RATE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			samplingRate = parsed
		}
	}
	return tracing.Config{
		Enabled:        enabled,
		ServiceName:    "fleetrelayd",
		ServiceVersion: cfg.Version,
		Environment:    os.Getenv("FLEETRELAY_ENVIRONMENT"),
		ExporterType:   exporterType,
		Endpoint:       os.Getenv("FLEETRELAY_OTEL_ENDPOINT"),
		SamplingRate:   samplingRate,
	}
}

// eventPublisherFromEnv wires a RedisPublisher when FLEETRELAY_REDIS_ADDR is
// set, matching spec's "optional" framing of eventbus fanout: a misconfigured
// or absent Redis never blocks startup, it just falls back to NoopPublisher.
func eventPublisherFromEnv(logger zerolog.Logger) eventbus.Publisher {
	addr := os.Getenv("FLEETRELAY_REDIS_ADDR")
	if addr == "" {
		return eventbus.NoopPublisher{}
	}
	pub, err := eventbus.NewRedisPublisher(eventbus.RedisConfig{
		Addr:     addr,
		Password: os.Getenv("FLEETRELAY_REDIS_PASSWORD"),
	})
	if err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("redis event bus unavailable, falling back to noop publisher")
		return eventbus.NoopPublisher{}
	}
	return pub
}
