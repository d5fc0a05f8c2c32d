package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/fleetrelay/fleetrelay/internal/log"
	"github.com/fleetrelay/fleetrelay/internal/policy"
)

// ZoneWatcher hot-reloads config/zones.yaml into a policy.Registry (spec
// §4.2's design note that restricted zones can be tightened without a
// restart). Rapid successive filesystem events collapse into a single
// reload via a 300ms debounce timer in watchLoop, and a singleflight group
// merges reload calls that overlap, matching the teacher's debounced
// ConfigHolder watch loop but without its generic fsnotify event filter —
// the zones file is the only thing this watcher cares about.
type ZoneWatcher struct {
	path      string
	registry  *policy.Registry
	watcher   *fsnotify.Watcher
	logger    zerolog.Logger
	group     singleflight.Group
	reloadGen atomic.Uint64
}

// NewZoneWatcher constructs a watcher over path, applying its initial
// contents to registry immediately.
func NewZoneWatcher(path string, registry *policy.Registry) (*ZoneWatcher, error) {
	w := &ZoneWatcher{
		path:     path,
		registry: registry,
		logger:   log.WithComponent("config"),
	}
	if err := w.reload(); err != nil {
		return nil, fmt.Errorf("initial zones load: %w", err)
	}
	return w, nil
}

func (w *ZoneWatcher) reload() error {
	_, err, _ := w.group.Do("reload", func() (any, error) {
		zones, err := LoadZones(w.path)
		if err != nil {
			return nil, err
		}
		for city, gate := range BuildGates(zones) {
			w.registry.Set(city, gate)
		}
		w.reloadGen.Add(1)
		return nil, nil
	})
	return err
}

// Generation returns the number of successful reloads, including the
// initial load. Tests use this to wait for a reload to land.
func (w *ZoneWatcher) Generation() uint64 {
	return w.reloadGen.Load()
}

// Start begins watching the zones file's directory for changes, debouncing
// bursts of writes (editors frequently write via temp-file-and-rename) into
// a single reload. Returns once the watcher goroutine is running; ctx
// cancellation stops it.
func (w *ZoneWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch zones dir: %w", err)
	}

	go w.watchLoop(ctx)
	return nil
}

func (w *ZoneWatcher) watchLoop(ctx context.Context) {
	const debounce = 300 * time.Millisecond
	base := filepath.Base(w.path)
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			_ = w.watcher.Close()
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := w.reload(); err != nil {
					w.logger.Error().Err(err).Str("event", "config.zones_reload_failed").Msg("zones reload failed, keeping previous table")
				} else {
					w.logger.Info().Str("event", "config.zones_reload_succeeded").Msg("zone table reloaded")
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("zones watcher error")
		}
	}
}

// Stop closes the underlying filesystem watcher, if started.
func (w *ZoneWatcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}
