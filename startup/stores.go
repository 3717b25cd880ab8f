package startup

import (
	"net/http"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/config"
	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/db/restdb"
	"github.com/funnelmon/funnelmon/db/sqldb"
	"github.com/funnelmon/funnelmon/healthendpoint"
	"github.com/funnelmon/funnelmon/pruner"
	"github.com/funnelmon/funnelmon/server"
)

// Stores bundles the read stores behind whichever backend the configuration
// selected. Pinger backs the readiness check; Statuses carries the SQL
// connection pools for the database status collectors and is empty in rest
// mode.
type Stores struct {
	Alerts db.AlertStore
	Hourly db.HourlyMetricStore
	Daily  db.DailyMetricStore
	Rules  db.RuleMappingStore

	Pinger   healthendpoint.Pinger
	Statuses map[string]healthendpoint.DatabaseStatus

	// AlertPruner and AlertWriter are set only in sql mode; rest endpoints
	// manage their own retention and ingestion.
	AlertPruner pruner.AlertPruner
	AlertWriter server.AlertWriter
}

func CreateStores(conf *config.Config, logger lager.Logger, httpClient *http.Client) (*Stores, error) {
	if conf.Store.Mode == config.StoreModeSql {
		return createSQLStores(conf.Store.Database, logger)
	}
	return createRESTStores(conf.Store.Rest, logger, httpClient), nil
}

func createSQLStores(dbConfig db.DatabaseConfig, logger lager.Logger) (*Stores, error) {
	stores := &Stores{}

	alerts, err := sqldb.NewAlertSQLDB(dbConfig, logger.Session("alert-db"))
	if err != nil {
		return nil, err
	}
	stores.Alerts = alerts

	hourly, err := sqldb.NewHourlyMetricSQLDB(dbConfig, logger.Session("hourly-metric-db"))
	if err != nil {
		stores.Close()
		return nil, err
	}
	stores.Hourly = hourly

	daily, err := sqldb.NewDailyMetricSQLDB(dbConfig, logger.Session("daily-metric-db"))
	if err != nil {
		stores.Close()
		return nil, err
	}
	stores.Daily = daily

	rules, err := sqldb.NewRuleMappingSQLDB(dbConfig, logger.Session("rule-mapping-db"))
	if err != nil {
		stores.Close()
		return nil, err
	}
	stores.Rules = rules

	stores.Pinger = alerts
	stores.AlertPruner = alerts
	stores.AlertWriter = alerts
	stores.Statuses = map[string]healthendpoint.DatabaseStatus{
		"alert_events":         alerts,
		"app_hourly_metrics":   hourly,
		"daily_amount_metrics": daily,
		"alert_metric_map":     rules,
	}
	return stores, nil
}

func createRESTStores(conf restdb.RestStoreConfig, logger lager.Logger, httpClient *http.Client) *Stores {
	alerts := restdb.NewAlertRESTDB(conf, logger.Session("alert-store"), httpClient)
	return &Stores{
		Alerts: alerts,
		Hourly: restdb.NewHourlyMetricRESTDB(conf, logger.Session("hourly-metric-store"), httpClient),
		Daily:  restdb.NewDailyMetricRESTDB(conf, logger.Session("daily-metric-store"), httpClient),
		Rules:  restdb.NewRuleMappingRESTDB(conf, logger.Session("rule-mapping-store"), httpClient),
		Pinger: alerts,
	}
}

func (s *Stores) Close() {
	for _, closer := range []interface{ Close() error }{s.Alerts, s.Hourly, s.Daily, s.Rules} {
		if closer != nil {
			_ = closer.Close()
		}
	}
}
