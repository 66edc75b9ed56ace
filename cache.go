package snapcache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mwantia/snapcache/data"
	"github.com/mwantia/snapcache/log"
)

// SnapshotFileCache tracks which data files are referenced by any snapshot
// stored below a snapshots directory.
//
// The cache is refreshed periodically in the background and whenever a lookup
// misses. A refresh only rescans the directory when its modification time has
// advanced, and only inspects finished snapshots whose directory changed.
type SnapshotFileCache struct {
	mu sync.Mutex

	fs           FileSystem
	snapshotsDir string
	inspector    InspectorFunc
	options      *Options

	log     *log.Logger
	metrics *cacheMetrics

	lastRefreshTime time.Time
	records         map[string]*snapshotRecord
	files           map[string]struct{}

	stopOnce sync.Once
	stopped  atomic.Bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// Stats is a point-in-time summary of the cache content.
type Stats struct {
	Name            string    `json:"name"`
	SnapshotsDir    string    `json:"snapshots_dir"`
	Snapshots       int       `json:"snapshots"`
	Files           int       `json:"files"`
	LastRefreshTime time.Time `json:"last_refresh_time"`
	Stopped         bool      `json:"stopped"`
}

// New creates a cache for the snapshots stored below snapshotsDir and starts
// its periodic refresh. The first refresh runs after the configured delay.
func New(fs FileSystem, snapshotsDir string, inspector InspectorFunc, opts ...Option) (*SnapshotFileCache, error) {
	if fs == nil {
		return nil, fmt.Errorf("%w: filesystem must not be nil", ErrInvalidOption)
	}
	if inspector == nil {
		return nil, fmt.Errorf("%w: inspector must not be nil", ErrInvalidOption)
	}

	dir, err := data.CleanPath(snapshotsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: snapshots directory: %w", ErrInvalidOption, err)
	}

	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	logger := options.Logger
	if logger == nil {
		logger = log.NewLogger("snapcache", options.LogLevel, options.LogFile, options.NoTerminalLog)
	}

	metrics, err := newCacheMetrics(options.Registerer, options.Name)
	if err != nil {
		return nil, err
	}

	c := &SnapshotFileCache{
		fs:           fs,
		snapshotsDir: dir,
		inspector:    inspector,
		options:      options,
		log:          logger.Named(options.Name),
		metrics:      metrics,
		records:      make(map[string]*snapshotRecord),
		files:        make(map[string]struct{}),
		done:         make(chan struct{}),
	}

	c.wg.Add(1)
	go c.run()

	return c, nil
}

// Contains reports whether fileName is referenced by any snapshot. A hit is
// answered without any filesystem access; a miss forces a refresh first.
func (c *SnapshotFileCache) Contains(ctx context.Context, fileName string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.files[fileName]; exists {
		c.metrics.recordLookup(lookupHit)
		return true, nil
	}

	if _, err := c.refresh(ctx, triggerQuery); err != nil {
		c.metrics.recordLookup(lookupError)
		return false, err
	}

	if _, exists := c.files[fileName]; exists {
		c.metrics.recordLookup(lookupMissFound)
		return true, nil
	}

	c.metrics.recordLookup(lookupMissAbsent)
	return false, nil
}

// TriggerCacheRefresh runs a refresh synchronously. Failures are logged and
// never returned.
func (c *SnapshotFileCache) TriggerCacheRefresh(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.refresh(ctx, triggerManual); err != nil {
		c.log.Warn("Failed to refresh snapshot file cache: %v", err)
	}

	if c.log.IsEnabled(log.Debug) {
		c.log.Debug("Current cache: [%s]", strings.Join(c.sortedFiles(), ", "))
	}
}

// Stop ends the periodic refresh. Only the first call has an effect; a
// refresh that is already running completes. Lookups keep working.
func (c *SnapshotFileCache) Stop(reason string) {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		close(c.done)

		c.log.Info("Stopping snapshot file cache refresh: %s", reason)
	})
}

func (c *SnapshotFileCache) IsStopped() bool {
	return c.stopped.Load()
}

// Wait blocks until the refresh goroutine has exited after Stop.
func (c *SnapshotFileCache) Wait() {
	c.wg.Wait()
}

// Snapshots returns the sorted names of all tracked finished snapshots.
func (c *SnapshotFileCache) Snapshots() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.records))
	for name := range c.records {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// Files returns the sorted names of all files currently considered referenced.
func (c *SnapshotFileCache) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sortedFiles()
}

func (c *SnapshotFileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Name:            c.options.Name,
		SnapshotsDir:    c.snapshotsDir,
		Snapshots:       len(c.records),
		Files:           len(c.files),
		LastRefreshTime: c.lastRefreshTime,
		Stopped:         c.IsStopped(),
	}
}

// Must be called with c.mu held.
func (c *SnapshotFileCache) sortedFiles() []string {
	files := make([]string, 0, len(c.files))
	for name := range c.files {
		files = append(files, name)
	}

	sort.Strings(files)
	return files
}
