package healthendpoint

import (
	"database/sql"

	"github.com/prometheus/client_golang/prometheus"
)

// DatabaseStatus is implemented by every store backed by a SQL
// connection pool.
type DatabaseStatus interface {
	GetDBStatus() sql.DBStats
}

type databaseStatusCollector struct {
	MaxOpenConnectionsGauge prometheus.Gauge
	OpenConnectionsGauge    prometheus.Gauge
	InUseGauge              prometheus.Gauge
	IdleGauge               prometheus.Gauge
	WaitCountGauge          prometheus.Gauge
	WaitDurationGauge       prometheus.Gauge
	MaxIdleClosedGauge      prometheus.Gauge
	MaxLifetimeClosedGauge  prometheus.Gauge

	dbStatus DatabaseStatus
}

func NewDatabaseStatusCollector(namespace, subSystem string, dbName string, dbStatus DatabaseStatus) prometheus.Collector {
	return &databaseStatusCollector{
		MaxOpenConnectionsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_max_open_connections",
				Help:      "Maximum number of open connections to the database",
			}),
		OpenConnectionsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_open_connections",
				Help:      "The number of established connections both in use and idle",
			}),
		InUseGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_in_use",
				Help:      "The number of connections currently in use",
			}),
		IdleGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_idle",
				Help:      "The number of idle connections",
			}),
		WaitCountGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_wait_count",
				Help:      "The total number of connections waited for",
			}),
		WaitDurationGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_wait_duration",
				Help:      "The total time blocked waiting for a new connection",
			}),
		MaxIdleClosedGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_max_idle_closed",
				Help:      "The total number of connections closed due to SetMaxIdleConns",
			}),
		MaxLifetimeClosedGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subSystem,
				Name:      dbName + "_max_lifetime_closed",
				Help:      "The total number of connections closed due to SetConnMaxLifetime",
			}),
		dbStatus: dbStatus,
	}
}

func (c *databaseStatusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.MaxOpenConnectionsGauge.Desc()
	ch <- c.OpenConnectionsGauge.Desc()
	ch <- c.InUseGauge.Desc()
	ch <- c.IdleGauge.Desc()
	ch <- c.WaitCountGauge.Desc()
	ch <- c.WaitDurationGauge.Desc()
	ch <- c.MaxIdleClosedGauge.Desc()
	ch <- c.MaxLifetimeClosedGauge.Desc()
}

func (c *databaseStatusCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.dbStatus.GetDBStatus()
	values := []struct {
		gauge prometheus.Gauge
		value float64
	}{
		{c.MaxOpenConnectionsGauge, float64(stats.MaxOpenConnections)},
		{c.OpenConnectionsGauge, float64(stats.OpenConnections)},
		{c.InUseGauge, float64(stats.InUse)},
		{c.IdleGauge, float64(stats.Idle)},
		{c.WaitCountGauge, float64(stats.WaitCount)},
		{c.WaitDurationGauge, float64(stats.WaitDuration)},
		{c.MaxIdleClosedGauge, float64(stats.MaxIdleClosed)},
		{c.MaxLifetimeClosedGauge, float64(stats.MaxLifetimeClosed)},
	}
	for _, v := range values {
		m, _ := prometheus.NewConstMetric(v.gauge.Desc(), prometheus.GaugeValue, v.value)
		ch <- m
	}
}
