package snapcache

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/mwantia/snapcache/data"
)

type RefreshStatus int

const (
	// RefreshSkipped means the snapshots directory was unchanged since the last pass.
	RefreshSkipped RefreshStatus = iota
	// RefreshMissingRoot means the snapshots directory does not exist; nothing changed.
	RefreshMissingRoot
	// RefreshCompleted means the directory was rescanned and the result committed.
	RefreshCompleted
)

func (s RefreshStatus) String() string {
	switch s {
	case RefreshSkipped:
		return "skipped"
	case RefreshMissingRoot:
		return "missing_root"
	case RefreshCompleted:
		return "refreshed"
	default:
		return "unknown"
	}
}

// RefreshResult describes the outcome of a single refresh pass.
type RefreshResult struct {
	Status      RefreshStatus
	Inspections int
	Snapshots   int
	Files       int
	Duration    time.Duration
}

type refreshTrigger int

const (
	triggerQuery refreshTrigger = iota
	triggerScheduled
	triggerManual
)

func (t refreshTrigger) String() string {
	switch t {
	case triggerQuery:
		return "query"
	case triggerScheduled:
		return "scheduled"
	case triggerManual:
		return "manual"
	default:
		return "unknown"
	}
}

// refreshState is the state built by a pass before it is committed.
type refreshState struct {
	modifyTime time.Time
	records    map[string]*snapshotRecord
	files      map[string]struct{}
}

// refresh runs one pass and records its outcome. Must be called with c.mu held.
func (c *SnapshotFileCache) refresh(ctx context.Context, trigger refreshTrigger) (*RefreshResult, error) {
	result, err := c.refreshCache(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	c.metrics.recordRefresh(trigger, result, err)
	if err == nil && result.Status == RefreshCompleted {
		c.log.Debug("Refreshed cache (%s): %d snapshots, %d files, %d inspections in %s",
			trigger, result.Snapshots, result.Files, result.Inspections, result.Duration)
	}

	return result, err
}

// refreshCache rescans the snapshots directory when its modification time is
// newer than the last successful pass. A failing pass leaves the cache untouched
// and returns the inspections it performed so far.
func (c *SnapshotFileCache) refreshCache(ctx context.Context) (*RefreshResult, error) {
	start := time.Now()
	result := &RefreshResult{}

	dirStat, err := c.fs.Stat(ctx, c.snapshotsDir)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			c.log.Error("Snapshot directory '%s' doesn't exist", c.snapshotsDir)
			result.Status = RefreshMissingRoot
			return result, nil
		}
		return result, fmt.Errorf("failed to stat snapshot directory '%s': %w", c.snapshotsDir, err)
	}

	if !dirStat.ModifyTime.After(c.lastRefreshTime) {
		result.Status = RefreshSkipped
		return result, nil
	}

	state := &refreshState{
		modifyTime: dirStat.ModifyTime,
		records:    make(map[string]*snapshotRecord),
		files:      make(map[string]struct{}),
	}

	entries, err := c.fs.ReadDir(ctx, c.snapshotsDir)
	if err != nil && !errors.Is(err, data.ErrNotExist) {
		return result, fmt.Errorf("failed to list snapshot directory '%s': %w", c.snapshotsDir, err)
	}

	if len(entries) == 0 {
		c.log.Debug("No snapshots on-disk, cache empty")
	}

	for _, entry := range entries {
		name := entry.Name()
		snapshotDir := path.Join(c.snapshotsDir, name)

		if name == c.options.RunningDirName {
			inspections, err := c.inspectRunning(ctx, snapshotDir, state.files)
			result.Inspections += inspections
			if err != nil {
				return result, err
			}
			continue
		}

		record, exists := c.records[name]
		if !exists || record.hasBeenModified(entry.ModifyTime) {
			files, err := c.inspector(ctx, snapshotDir)
			result.Inspections++
			if err != nil {
				return result, fmt.Errorf("failed to inspect snapshot '%s': %w", name, err)
			}
			record = newSnapshotRecord(entry.ModifyTime, files)
		}

		record.addTo(state.files)
		state.records[name] = record
	}

	c.commit(state)

	result.Status = RefreshCompleted
	result.Snapshots = len(state.records)
	result.Files = len(state.files)
	result.Duration = time.Since(start)
	return result, nil
}

// inspectRunning adds the files of every in-progress snapshot to files.
// Running snapshots are never cached as records and are inspected on every pass.
func (c *SnapshotFileCache) inspectRunning(ctx context.Context, runningDir string, files map[string]struct{}) (int, error) {
	entries, err := c.fs.ReadDir(ctx, runningDir)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list running snapshots '%s': %w", runningDir, err)
	}

	inspections := 0
	for _, entry := range entries {
		snapshotDir := path.Join(runningDir, entry.Name())

		names, err := c.inspector(ctx, snapshotDir)
		inspections++
		if err != nil {
			return inspections, fmt.Errorf("failed to inspect running snapshot '%s': %w", entry.Name(), err)
		}

		for _, name := range names {
			files[name] = struct{}{}
		}
	}

	return inspections, nil
}

func (c *SnapshotFileCache) commit(state *refreshState) {
	c.lastRefreshTime = state.modifyTime
	c.records = state.records
	c.files = state.files
}
