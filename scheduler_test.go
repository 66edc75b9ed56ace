package snapcache_test

import (
	"errors"
	"testing"
	"time"

	"github.com/mwantia/snapcache"
	"github.com/mwantia/snapcache/log"
)

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Condition not met within %s", timeout)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newScheduledCache(t *testing.T, fs snapcache.FileSystem, inspector snapcache.InspectorFunc, period time.Duration) *snapcache.SnapshotFileCache {
	t.Helper()

	cache, err := snapcache.New(fs, snapshotsDir, inspector,
		snapcache.WithRefreshDelay(0),
		snapcache.WithRefreshPeriod(period),
		snapcache.WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	t.Cleanup(func() {
		cache.Stop("test finished")
		cache.Wait()
	})
	return cache
}

// TestScheduler_RefreshesInBackground verifies that the scheduler populates the cache without queries.
func TestScheduler_RefreshesInBackground(t *testing.T) {
	fs := newFakeFileSystem()
	fs.setDir(snapshotsDir, 100)
	fs.setDir(snapshotsDir+"/A", 10)

	inspector := newFakeInspector()
	inspector.set(snapshotsDir+"/A", "x")

	cache := newScheduledCache(t, fs, inspector.Inspect, 10*time.Millisecond)

	waitFor(t, 2*time.Second, func() bool {
		return cache.Stats().Files == 1
	})

	fs.setDir(snapshotsDir+"/B", 20)
	inspector.set(snapshotsDir+"/B", "y")
	fs.setDir(snapshotsDir, 110)

	waitFor(t, 2*time.Second, func() bool {
		return cache.Stats().Snapshots == 2
	})
}

// TestScheduler_SurvivesFailures verifies that failing refreshes never end the schedule.
func TestScheduler_SurvivesFailures(t *testing.T) {
	fs := newFakeFileSystem()
	fs.setDir(snapshotsDir, 100)
	fs.setDir(snapshotsDir+"/A", 10)

	inspector := newFakeInspector()
	inspector.failOn(snapshotsDir+"/A", errors.New("unreadable snapshot"))

	cache := newScheduledCache(t, fs, inspector.Inspect, 10*time.Millisecond)

	waitFor(t, 2*time.Second, func() bool {
		return inspector.callsFor(snapshotsDir+"/A") >= 3
	})

	inspector.failOn(snapshotsDir+"/A", nil)
	inspector.set(snapshotsDir+"/A", "x")

	waitFor(t, 2*time.Second, func() bool {
		return cache.Stats().Files == 1
	})
}

// TestScheduler_StopEndsRefreshes verifies that no refresh fires after Stop and Wait returned.
func TestScheduler_StopEndsRefreshes(t *testing.T) {
	fs := newFakeFileSystem()
	fs.setDir(snapshotsDir, 100)

	cache := newScheduledCache(t, fs, newFakeInspector().Inspect, 5*time.Millisecond)

	waitFor(t, 2*time.Second, func() bool {
		stats, _ := fs.counts()
		return stats >= 2
	})

	cache.Stop("shutdown")
	cache.Wait()

	before, _ := fs.counts()
	time.Sleep(50 * time.Millisecond)
	after, _ := fs.counts()

	if before != after {
		t.Fatalf("Expected no refresh after stop, got %d additional stats", after-before)
	}
}

// TestScheduler_StopBeforeFirstRefresh verifies that stopping during the initial delay ends the scheduler.
func TestScheduler_StopBeforeFirstRefresh(t *testing.T) {
	fs := newFakeFileSystem()
	fs.setDir(snapshotsDir, 100)

	cache, err := snapcache.New(fs, snapshotsDir, newFakeInspector().Inspect,
		snapcache.WithRefreshDelay(time.Hour),
		snapcache.WithLogger(log.NewDiscardLogger()))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		cache.Stop("not needed")
		cache.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Stop")
	}

	if stats, _ := fs.counts(); stats != 0 {
		t.Fatalf("Expected no refresh, got %d stats", stats)
	}
}
