package snapcache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/snapcache/backend/memory"
	"github.com/mwantia/snapcache/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func steppingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Unix(1000, 0)

	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		now = now.Add(time.Second)
		return now
	}
}

func TestMetrics_LookupsAndRefreshes(t *testing.T) {
	ctx := t.Context()

	fs := NewMountFileSystem(nil)
	if err := fs.Mount(ctx, "/", memory.NewMemoryBackend(memory.WithClock(steppingClock()))); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	defer fs.Shutdown(ctx)

	if err := fs.MkDirAll(ctx, "/snapshots/A"); err != nil {
		t.Fatalf("MkDirAll failed: %v", err)
	}
	if err := fs.WriteFile(ctx, "/snapshots/A/x", []byte("x")); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	registry := prometheus.NewRegistry()
	cache, err := New(fs, "/snapshots", NewFileListInspector(fs),
		WithName("metrics"),
		WithRefreshDelay(time.Hour),
		WithRegisterer(registry),
		WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Stop("test finished")

	for _, name := range []string{"x", "x", "missing"} {
		if _, err := cache.Contains(ctx, name); err != nil {
			t.Fatalf("Contains(%q) failed: %v", name, err)
		}
	}
	cache.TriggerCacheRefresh(ctx)

	checks := map[string]struct {
		collector prometheus.Collector
		expected  float64
	}{
		"miss_found":      {cache.metrics.lookups.WithLabelValues(lookupMissFound), 1},
		"hit":             {cache.metrics.lookups.WithLabelValues(lookupHit), 1},
		"miss_absent":     {cache.metrics.lookups.WithLabelValues(lookupMissAbsent), 1},
		"query_refreshed": {cache.metrics.refreshes.WithLabelValues("query", "refreshed"), 1},
		"query_skipped":   {cache.metrics.refreshes.WithLabelValues("query", "skipped"), 1},
		"manual_skipped":  {cache.metrics.refreshes.WithLabelValues("manual", "skipped"), 1},
		"inspections":     {cache.metrics.inspections, 1},
		"snapshots":       {cache.metrics.trackedSnapshots, 1},
		"files":           {cache.metrics.cachedFiles, 1},
	}

	for name, check := range checks {
		t.Run(name, func(tst *testing.T) {
			if value := testutil.ToFloat64(check.collector); value != check.expected {
				tst.Fatalf("Expected %v, got %v", check.expected, value)
			}
		})
	}

	if count, err := testutil.GatherAndCount(registry, "snapcache_lookups_total"); err != nil || count != 3 {
		t.Fatalf("Expected 3 registered lookup series, got %d (%v)", count, err)
	}
}

func TestMetrics_DuplicateName(t *testing.T) {
	registry := prometheus.NewRegistry()
	fs := NewMountFileSystem(nil)
	inspect := NewFileListInspector(fs)

	first, err := New(fs, "/snapshots", inspect,
		WithName("shared"),
		WithRefreshDelay(time.Hour),
		WithRegisterer(registry),
		WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer first.Stop("test finished")

	_, err = New(fs, "/snapshots", inspect,
		WithName("shared"),
		WithRefreshDelay(time.Hour),
		WithRegisterer(registry),
		WithLogger(log.NewDiscardLogger()))
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("Expected ErrInvalidOption, got %v", err)
	}

	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		t.Fatalf("Expected AlreadyRegisteredError, got %v", err)
	}

	other, err := New(fs, "/snapshots", inspect,
		WithName("other"),
		WithRefreshDelay(time.Hour),
		WithRegisterer(registry),
		WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("New with a distinct name failed: %v", err)
	}
	defer other.Stop("test finished")
}

func TestMetrics_FailedPassCountsInspections(t *testing.T) {
	ctx := t.Context()

	fs := NewMountFileSystem(nil)
	if err := fs.Mount(ctx, "/", memory.NewMemoryBackend(memory.WithClock(steppingClock()))); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	defer fs.Shutdown(ctx)

	if err := fs.MkDirAll(ctx, "/snapshots/A"); err != nil {
		t.Fatalf("MkDirAll failed: %v", err)
	}

	failing := func(ctx context.Context, snapshotDir string) ([]string, error) {
		return nil, errors.New("unreadable snapshot")
	}

	cache, err := New(fs, "/snapshots", failing,
		WithRefreshDelay(time.Hour),
		WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer cache.Stop("test finished")

	if _, err := cache.Contains(ctx, "x"); !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("Expected ErrRefreshFailed, got %v", err)
	}

	if value := testutil.ToFloat64(cache.metrics.inspections); value != 1 {
		t.Fatalf("Expected 1 inspection, got %v", value)
	}
	if value := testutil.ToFloat64(cache.metrics.refreshes.WithLabelValues("query", "failed")); value != 1 {
		t.Fatalf("Expected 1 failed refresh, got %v", value)
	}
}

func TestRefreshResult_Status(t *testing.T) {
	tests := map[RefreshStatus]string{
		RefreshSkipped:     "skipped",
		RefreshMissingRoot: "missing_root",
		RefreshCompleted:   "refreshed",
	}

	for status, expected := range tests {
		if status.String() != expected {
			t.Fatalf("Expected %q, got %q", expected, status.String())
		}
	}
}

func TestSnapshotRecord_HasBeenModified(t *testing.T) {
	record := newSnapshotRecord(time.Unix(10, 0), []string{"a"})

	if record.hasBeenModified(time.Unix(10, 0)) {
		t.Fatal("Expected equal time to count as unchanged")
	}
	if record.hasBeenModified(time.Unix(9, 0)) {
		t.Fatal("Expected older time to count as unchanged")
	}
	if !record.hasBeenModified(time.Unix(11, 0)) {
		t.Fatal("Expected newer time to count as modified")
	}
}
