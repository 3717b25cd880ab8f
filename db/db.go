package db

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/funnelmon/funnelmon/models"
)

const (
	PostgresDriverName = "postgres"
	MysqlDriverName    = "mysql"
)

type OrderType uint8

const (
	DESC OrderType = iota
	ASC
)

const (
	DESCSTR string = "DESC"
	ASCSTR  string = "ASC"
)

var ErrDoesNotExist = fmt.Errorf("doesn't exist")

type DatabaseConfig struct {
	URL                   string        `yaml:"url" json:"url"`
	MaxOpenConnections    int           `yaml:"max_open_connections" json:"max_open_connections"`
	MaxIdleConnections    int           `yaml:"max_idle_connections" json:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `yaml:"connection_max_lifetime" json:"connection_max_lifetime"`
	ConnectionMaxIdleTime time.Duration `yaml:"connection_max_idletime" json:"connection_max_idletime"`
}

// StoreError is a retrievable store failure (network error or non-2xx
// response). Callers decide whether to surface an empty state or retry;
// the core never retries on its own.
type StoreError struct {
	Store      string
	Op         string
	StatusCode int
	Err        error
}

func (e *StoreError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s store: %s: status %d", e.Store, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s store: %s: %v", e.Store, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AlertStore supplies alert events, most commonly by triggered_at range.
// Both bounds are inclusive.
type AlertStore interface {
	RetrieveAlerts(ctx context.Context, start time.Time, end time.Time, orderType OrderType) ([]models.AlertEvent, error)
	io.Closer
}

type HourlyMetricStore interface {
	RetrieveHourlyMetrics(ctx context.Context, date string, orderType OrderType) ([]models.HourlyMetricRow, error)
	RetrieveLatestDate(ctx context.Context) (string, error)
	io.Closer
}

type DailyMetricStore interface {
	RetrieveDailyMetrics(ctx context.Context, startDate string, endDate string, orderType OrderType) ([]models.DailyMetricRow, error)
	io.Closer
}

// RuleMappingStore supplies alert metric mapping rules, optionally filtered
// by domain.
type RuleMappingStore interface {
	RetrieveMappingRules(ctx context.Context, domain string, activeOnly bool) ([]models.MappingRule, error)
	io.Closer
}
