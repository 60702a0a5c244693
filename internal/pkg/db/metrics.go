package db

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// StatsCollector reads pgxpool statistics on every scrape.
type StatsCollector struct {
	pool *pgxpool.Pool

	totalConns      *prometheus.Desc
	idleConns       *prometheus.Desc
	acquiredConns   *prometheus.Desc
	maxConns        *prometheus.Desc
	acquireCount    *prometheus.Desc
	emptyAcquire    *prometheus.Desc
	canceledAcquire *prometheus.Desc
	acquireDuration *prometheus.Desc
}

// NewStatsCollector creates a collector for pool.
func NewStatsCollector(pool *pgxpool.Pool) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("narrator_db_pool_"+name, help, nil, nil)
	}
	return &StatsCollector{
		pool:            pool,
		totalConns:      desc("total_conns", "Connections currently open."),
		idleConns:       desc("idle_conns", "Idle connections."),
		acquiredConns:   desc("acquired_conns", "Connections checked out of the pool."),
		maxConns:        desc("max_conns", "Configured maximum pool size."),
		acquireCount:    desc("acquires_total", "Successful connection acquires."),
		emptyAcquire:    desc("empty_acquires_total", "Acquires that had to wait for a connection."),
		canceledAcquire: desc("canceled_acquires_total", "Acquires canceled by their context."),
		acquireDuration: desc("acquire_duration_seconds_total", "Time spent waiting to acquire connections."),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.totalConns, c.idleConns, c.acquiredConns, c.maxConns,
		c.acquireCount, c.emptyAcquire, c.canceledAcquire, c.acquireDuration,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.pool.Stat()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	counter := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, v)
	}
	gauge(c.totalConns, float64(s.TotalConns()))
	gauge(c.idleConns, float64(s.IdleConns()))
	gauge(c.acquiredConns, float64(s.AcquiredConns()))
	gauge(c.maxConns, float64(s.MaxConns()))
	counter(c.acquireCount, float64(s.AcquireCount()))
	counter(c.emptyAcquire, float64(s.EmptyAcquireCount()))
	counter(c.canceledAcquire, float64(s.CanceledAcquireCount()))
	counter(c.acquireDuration, s.AcquireDuration().Seconds())
}
