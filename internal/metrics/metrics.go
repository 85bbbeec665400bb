// Package metrics exposes lease and allocation counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements service.Metrics on top of Prometheus.
type Collector struct {
	leasesCreated   prometheus.Counter
	allocationFails *prometheus.CounterVec
	pickups         prometheus.Counter
	returns         prometheus.Counter
	codeCollisions  prometheus.Counter
	createLatency   prometheus.Histogram
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		leasesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "locker_leases_created_total",
			Help: "Leases created.",
		}),
		allocationFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "locker_allocation_failures_total",
			Help: "Lease creations rejected, by reason.",
		}, []string{"reason"}),
		pickups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "locker_pickups_total",
			Help: "Cells opened for pickup.",
		}),
		returns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "locker_returns_total",
			Help: "Leases closed by return.",
		}),
		codeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "locker_pickup_code_collisions_total",
			Help: "Pickup codes regenerated because the value was in use.",
		}),
		createLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "locker_create_lease_seconds",
			Help:    "Latency of lease creation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		c.leasesCreated,
		c.allocationFails,
		c.pickups,
		c.returns,
		c.codeCollisions,
		c.createLatency,
	)
	return c
}

func (c *Collector) LeaseCreated(d time.Duration) {
	c.leasesCreated.Inc()
	c.createLatency.Observe(d.Seconds())
}

func (c *Collector) AllocationFailed(reason string) { c.allocationFails.WithLabelValues(reason).Inc() }

func (c *Collector) CellOpened() { c.pickups.Inc() }

func (c *Collector) LeaseReturned() { c.returns.Inc() }

func (c *Collector) CodeCollision() { c.codeCollisions.Inc() }

// Handler serves the registry for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
