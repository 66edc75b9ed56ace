package snapcache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	lookupHit        = "hit"
	lookupMissFound  = "miss_found"
	lookupMissAbsent = "miss_absent"
	lookupError      = "error"
)

type cacheMetrics struct {
	lookups          *prometheus.CounterVec
	refreshes        *prometheus.CounterVec
	inspections      prometheus.Counter
	refreshDuration  prometheus.Histogram
	trackedSnapshots prometheus.Gauge
	cachedFiles      prometheus.Gauge
}

// newCacheMetrics creates the collectors of a single cache and registers them
// when registerer is set. Two caches using the same name cannot share a registerer.
func newCacheMetrics(registerer prometheus.Registerer, name string) (*cacheMetrics, error) {
	labels := prometheus.Labels{"cache": name}

	m := &cacheMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "snapcache_lookups_total",
				Help:        "Total number of file reference lookups",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
		refreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "snapcache_refreshes_total",
				Help:        "Total number of refresh passes by trigger and outcome",
				ConstLabels: labels,
			},
			[]string{"trigger", "result"},
		),
		inspections: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name:        "snapcache_inspections_total",
				Help:        "Total number of snapshot directories inspected for files",
				ConstLabels: labels,
			},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "snapcache_refresh_duration_seconds",
				Help:        "Duration of refresh passes that rescanned the snapshots directory",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
		),
		trackedSnapshots: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "snapcache_tracked_snapshots",
				Help:        "Number of finished snapshots tracked by the cache",
				ConstLabels: labels,
			},
		),
		cachedFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name:        "snapcache_cached_files",
				Help:        "Number of file names currently considered referenced",
				ConstLabels: labels,
			},
		),
	}

	if registerer == nil {
		return m, nil
	}

	for _, collector := range []prometheus.Collector{
		m.lookups, m.refreshes, m.inspections, m.refreshDuration, m.trackedSnapshots, m.cachedFiles,
	} {
		if err := registerer.Register(collector); err != nil {
			m.unregister(registerer)
			return nil, fmt.Errorf("%w: metrics for cache '%s': %w", ErrInvalidOption, name, err)
		}
	}

	return m, nil
}

func (m *cacheMetrics) unregister(registerer prometheus.Registerer) {
	for _, collector := range []prometheus.Collector{
		m.lookups, m.refreshes, m.inspections, m.refreshDuration, m.trackedSnapshots, m.cachedFiles,
	} {
		registerer.Unregister(collector)
	}
}

func (m *cacheMetrics) recordLookup(result string) {
	m.lookups.WithLabelValues(result).Inc()
}

func (m *cacheMetrics) recordRefresh(trigger refreshTrigger, result *RefreshResult, err error) {
	m.inspections.Add(float64(result.Inspections))

	if err != nil {
		m.refreshes.WithLabelValues(trigger.String(), "failed").Inc()
		return
	}

	m.refreshes.WithLabelValues(trigger.String(), result.Status.String()).Inc()

	if result.Status == RefreshCompleted {
		m.refreshDuration.Observe(result.Duration.Seconds())
		m.trackedSnapshots.Set(float64(result.Snapshots))
		m.cachedFiles.Set(float64(result.Files))
	}
}
