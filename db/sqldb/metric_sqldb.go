package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"code.cloudfoundry.org/lager/v3"
	"github.com/jmoiron/sqlx"

	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

type HourlyMetricSQLDB struct {
	dbConfig db.DatabaseConfig
	logger   lager.Logger
	sqldb    *sqlx.DB
}

func NewHourlyMetricSQLDB(dbConfig db.DatabaseConfig, logger lager.Logger) (*HourlyMetricSQLDB, error) {
	sqldb, err := openMetricDB(dbConfig, logger, "hourly-metric")
	if err != nil {
		return nil, err
	}
	return &HourlyMetricSQLDB{
		dbConfig: dbConfig,
		logger:   logger,
		sqldb:    sqldb,
	}, nil
}

func openMetricDB(dbConfig db.DatabaseConfig, logger lager.Logger, name string) (*sqlx.DB, error) {
	database, err := db.GetConnection(dbConfig.URL)
	if err != nil {
		return nil, err
	}

	sqldb, err := sqlx.Open(database.DriverName, database.DSN)
	if err != nil {
		logger.Error("open-"+name+"-db", err, lager.Data{"dbConfig": dbConfig})
		return nil, err
	}

	err = sqldb.Ping()
	if err != nil {
		_ = sqldb.Close()
		logger.Error("ping-"+name+"-db", err, lager.Data{"dbConfig": dbConfig})
		return nil, err
	}
	sqldb.SetConnMaxLifetime(dbConfig.ConnectionMaxLifetime)
	sqldb.SetMaxIdleConns(dbConfig.MaxIdleConnections)
	sqldb.SetMaxOpenConns(dbConfig.MaxOpenConnections)
	sqldb.SetConnMaxIdleTime(dbConfig.ConnectionMaxIdleTime)
	return sqldb, nil
}

func (hdb *HourlyMetricSQLDB) Close() error {
	return hdb.sqldb.Close()
}

func (hdb *HourlyMetricSQLDB) RetrieveHourlyMetrics(ctx context.Context, date string, orderType db.OrderType) ([]models.HourlyMetricRow, error) {
	var orderStr string
	if orderType == db.ASC {
		orderStr = db.ASCSTR
	} else {
		orderStr = db.DESCSTR
	}

	query := hdb.sqldb.Rebind("SELECT dt,hour,cohort," + strings.Join(models.HourlyMetricFields(), ",") +
		" FROM app_hourly_metrics WHERE dt=? ORDER BY hour " + orderStr)
	metrics := []models.HourlyMetricRow{}
	rows, err := hdb.sqldb.QueryxContext(ctx, query, date)
	if err != nil {
		hdb.logger.Error("retrieve-hourly-metrics-from-app-hourly-metrics-table", err, lager.Data{"query": query, "dt": date})
		return nil, err
	}
	defer func() {
		_ = rows.Close()
		_ = rows.Err()
	}()

	for rows.Next() {
		var row models.HourlyMetricRow
		if err = rows.StructScan(&row); err != nil {
			hdb.logger.Error("scan-hourly-metric-from-search-result", err)
			return nil, err
		}
		metrics = append(metrics, row)
	}
	return metrics, nil
}

// RetrieveLatestDate finds the most recent date with current-day cohort
// rows, which is the date a sweep should examine.
func (hdb *HourlyMetricSQLDB) RetrieveLatestDate(ctx context.Context) (string, error) {
	query := hdb.sqldb.Rebind("SELECT MAX(dt) FROM app_hourly_metrics WHERE cohort=?")
	var latest sql.NullString
	err := hdb.sqldb.QueryRowxContext(ctx, query, string(models.CohortCurrentDay)).Scan(&latest)
	if err != nil {
		hdb.logger.Error("retrieve-latest-date-from-app-hourly-metrics-table", err, lager.Data{"query": query})
		return "", err
	}
	if !latest.Valid {
		return "", db.ErrDoesNotExist
	}
	return latest.String, nil
}

func (hdb *HourlyMetricSQLDB) GetDBStatus() sql.DBStats {
	return hdb.sqldb.Stats()
}

func (hdb *HourlyMetricSQLDB) Ping() error {
	return hdb.sqldb.Ping()
}

type DailyMetricSQLDB struct {
	dbConfig db.DatabaseConfig
	logger   lager.Logger
	sqldb    *sqlx.DB
}

func NewDailyMetricSQLDB(dbConfig db.DatabaseConfig, logger lager.Logger) (*DailyMetricSQLDB, error) {
	sqldb, err := openMetricDB(dbConfig, logger, "daily-metric")
	if err != nil {
		return nil, err
	}
	return &DailyMetricSQLDB{
		dbConfig: dbConfig,
		logger:   logger,
		sqldb:    sqldb,
	}, nil
}

func (ddb *DailyMetricSQLDB) Close() error {
	return ddb.sqldb.Close()
}

func (ddb *DailyMetricSQLDB) RetrieveDailyMetrics(ctx context.Context, startDate string, endDate string, orderType db.OrderType) ([]models.DailyMetricRow, error) {
	var orderStr string
	if orderType == db.ASC {
		orderStr = db.ASCSTR
	} else {
		orderStr = db.DESCSTR
	}

	query := ddb.sqldb.Rebind("SELECT dt," + strings.Join(models.DailyMetricFields(), ",") +
		" FROM daily_amount_metrics WHERE dt>=? AND dt<=? ORDER BY dt " + orderStr)
	metrics := []models.DailyMetricRow{}
	rows, err := ddb.sqldb.QueryxContext(ctx, query, startDate, endDate)
	if err != nil {
		ddb.logger.Error("retrieve-daily-metrics-from-daily-amount-metrics-table", err, lager.Data{"query": query, "start": startDate, "end": endDate})
		return nil, err
	}
	defer func() {
		_ = rows.Close()
		_ = rows.Err()
	}()

	for rows.Next() {
		var row models.DailyMetricRow
		if err = rows.StructScan(&row); err != nil {
			ddb.logger.Error("scan-daily-metric-from-search-result", err)
			return nil, err
		}
		metrics = append(metrics, row)
	}
	return metrics, nil
}

func (ddb *DailyMetricSQLDB) GetDBStatus() sql.DBStats {
	return ddb.sqldb.Stats()
}

func (ddb *DailyMetricSQLDB) Ping() error {
	return ddb.sqldb.Ping()
}
