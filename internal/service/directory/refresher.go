package directory

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/oshokin/access-terminal/internal/domain/access"
	"github.com/oshokin/access-terminal/internal/logger"
	"github.com/oshokin/access-terminal/internal/metrics"
)

// defaultDebounce coalesces bursts of file events from editors and atomic renames.
const defaultDebounce = 250 * time.Millisecond

// Loader reads the full identity list.
type Loader interface {
	Load(ctx context.Context) ([]access.Identity, error)
}

// Refresher reloads a Snapshot periodically and when the directory file changes.
// A failed reload keeps the previous snapshot.
type Refresher struct {
	// snapshot receives reloaded identities.
	snapshot *Snapshot
	// loader reads identities.
	loader Loader
	// path is the watched file; empty disables file watching.
	path string
	// interval is the periodic reload period; zero disables it.
	interval time.Duration
	// debounce delays a reload after the last file event.
	debounce time.Duration
}

// NewRefresher creates a refresher for snapshot.
func NewRefresher(snapshot *Snapshot, loader Loader, path string, interval time.Duration) *Refresher {
	return &Refresher{
		snapshot: snapshot,
		loader:   loader,
		path:     path,
		interval: interval,
		debounce: defaultDebounce,
	}
}

// Refresh loads identities once and swaps them in.
func (r *Refresher) Refresh(ctx context.Context) error {
	identities, err := r.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload directory: %w", err)
	}

	r.snapshot.Replace(identities)
	metrics.DirectoryIdentities.Set(float64(len(identities)))

	logger.DebugKV(ctx, "Directory reloaded", "identities", len(identities), "version", r.snapshot.Version())

	return nil
}

// Run reloads until ctx is done.
//
//nolint:cyclop // One select loop over every trigger.
func (r *Refresher) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "directory")

	var (
		events  <-chan fsnotify.Event
		errs    <-chan error
		watched = filepath.Clean(r.path)
	)

	if r.path != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			logger.Warnf(ctx, "File watching disabled: %v", err)
		} else {
			defer func() {
				_ = watcher.Close()
			}()

			// The parent is watched so atomic replacements are seen.
			if err = watcher.Add(filepath.Dir(watched)); err != nil {
				logger.Warnf(ctx, "File watching disabled: %v", err)
			} else {
				events = watcher.Events
				errs = watcher.Errors

				logger.DebugKV(ctx, "Watching directory file", "path", watched)
			}
		}
	}

	var tick <-chan time.Time

	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		tick = ticker.C
	}

	debounce := time.NewTimer(r.debounce)
	debounce.Stop()

	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			r.refreshLogged(ctx)
		case <-debounce.C:
			r.refreshLogged(ctx)
		case event, ok := <-events:
			if !ok {
				events = nil

				continue
			}

			if filepath.Clean(event.Name) != watched {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce.Reset(r.debounce)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil

				continue
			}

			logger.Warnf(ctx, "Directory watcher error: %v", err)
		}
	}
}

func (r *Refresher) refreshLogged(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil {
		logger.Warnf(ctx, "Keeping previous directory: %v", err)
	}
}
