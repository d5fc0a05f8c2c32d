package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetrelay/fleetrelay/internal/config"
	xglog "github.com/fleetrelay/fleetrelay/internal/log"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	xglog.Configure(xglog.Config{Level: "error"})
	return config.AppConfig{
		Version:                "test",
		DataDir:                t.TempDir(),
		ListenAddr:             "127.0.0.1:0",
		LogLevel:               "error",
		TelemetryQueueCapacity: 16,
	}
}

func TestWireApp_ConstructsEveryDependency(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	deps, err := wireApp(ctx, cfg)
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.Coordinator)
	require.NotNil(t, deps.AuditLog)
	require.NotNil(t, deps.AuditIndex)
	require.NotNil(t, deps.Policies)
	require.NotNil(t, deps.ReportStore)
	require.NotNil(t, deps.Events)
	require.NotNil(t, deps.Tracing)
	require.NotNil(t, deps.HTTPServer)
	require.NotNil(t, deps.HTTPValidator)

	// report.db must exist on disk once wiring completes.
	require.FileExists(t, reportDBPath(cfg.DataDir))
}

func TestWireApp_SeedsFreshDataDir(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	deps, err := wireApp(ctx, cfg)
	require.NoError(t, err)
	defer deps.Close()

	vehicles := deps.Coordinator.Vehicles()
	require.NotEmpty(t, vehicles, "seed.Apply should have populated the fresh data dir")
}

func TestApp_Run_ShutsDownOnContextCancel(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	deps, err := wireApp(ctx, cfg)
	require.NoError(t, err)
	defer deps.Close()

	logger := xglog.WithComponent("test")
	app := NewApp(logger, cfg, deps)

	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	// Give the server a moment to start listening before tearing it down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("App.Run did not return after context cancellation")
	}
}

func TestReportDBPath(t *testing.T) {
	got := reportDBPath("/tmp/fleetrelay-data")
	require.Equal(t, filepath.Join("/tmp/fleetrelay-data", "report.db"), got)
}
