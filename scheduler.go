package snapcache

import (
	"context"
	"time"
)

// run fires the first refresh after RefreshDelay and then every RefreshPeriod
// until Stop is called.
func (c *SnapshotFileCache) run() {
	defer c.wg.Done()

	timer := time.NewTimer(c.options.RefreshDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-c.done:
		return
	}

	ticker := time.NewTicker(c.options.RefreshPeriod)
	defer ticker.Stop()

	c.scheduledRefresh()

	for {
		select {
		case <-ticker.C:
			c.scheduledRefresh()
		case <-c.done:
			return
		}
	}
}

func (c *SnapshotFileCache) scheduledRefresh() {
	if c.IsStopped() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.refresh(context.Background(), triggerScheduled); err != nil {
		c.log.Warn("Failed to refresh snapshot file cache: %v", err)
	}
}
