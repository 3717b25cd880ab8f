package sqldb

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"code.cloudfoundry.org/lager/v3"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

var alertColumns = []string{
	"triggered_at", "source", "priority", "severity", "team",
	"application", "subsystem", "alert_name", "message", "alert_query",
	"sample_log", "host", "path", "status_code", "threshold", "value",
}

type AlertSQLDB struct {
	dbConfig db.DatabaseConfig
	logger   lager.Logger
	sqldb    *sqlx.DB
}

func NewAlertSQLDB(dbConfig db.DatabaseConfig, logger lager.Logger) (*AlertSQLDB, error) {
	database, err := db.GetConnection(dbConfig.URL)
	if err != nil {
		return nil, err
	}

	sqldb, err := sqlx.Open(database.DriverName, database.DSN)
	if err != nil {
		logger.Error("open-alert-db", err, lager.Data{"dbConfig": dbConfig})
		return nil, err
	}

	err = sqldb.Ping()
	if err != nil {
		_ = sqldb.Close()
		logger.Error("ping-alert-db", err, lager.Data{"dbConfig": dbConfig})
		return nil, err
	}
	sqldb.SetConnMaxLifetime(dbConfig.ConnectionMaxLifetime)
	sqldb.SetMaxIdleConns(dbConfig.MaxIdleConnections)
	sqldb.SetMaxOpenConns(dbConfig.MaxOpenConnections)
	sqldb.SetConnMaxIdleTime(dbConfig.ConnectionMaxIdleTime)

	return &AlertSQLDB{
		dbConfig: dbConfig,
		logger:   logger,
		sqldb:    sqldb,
	}, nil
}

func (adb *AlertSQLDB) Close() error {
	return adb.sqldb.Close()
}

func (adb *AlertSQLDB) RetrieveAlerts(ctx context.Context, start time.Time, end time.Time, orderType db.OrderType) ([]models.AlertEvent, error) {
	var orderStr string
	if orderType == db.ASC {
		orderStr = db.ASCSTR
	} else {
		orderStr = db.DESCSTR
	}

	query := adb.sqldb.Rebind("SELECT " + strings.Join(alertColumns, ",") +
		" FROM alert_events WHERE triggered_at>=? AND triggered_at<=? ORDER BY triggered_at " + orderStr)
	alerts := []models.AlertEvent{}
	rows, err := adb.sqldb.QueryxContext(ctx, query, start, end)
	if err != nil {
		adb.logger.Error("retrieve-alerts-from-alert-events-table", err, lager.Data{"query": query})
		return nil, err
	}
	defer func() {
		_ = rows.Close()
		_ = rows.Err()
	}()

	for rows.Next() {
		var alert models.AlertEvent
		if err = rows.StructScan(&alert); err != nil {
			adb.logger.Error("scan-alert-from-search-result", err)
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

func (adb *AlertSQLDB) SaveAlertsInBulk(alerts []models.AlertEvent) error {
	ctx, cancelFunc := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFunc()
	txn, err := adb.sqldb.BeginTx(ctx, nil)
	if err != nil {
		adb.logger.Error("failed-to-start-transaction", err)
		return err
	}

	switch adb.sqldb.DriverName() {
	case db.PostgresDriverName:
		stmt, err := txn.Prepare(pq.CopyIn("alert_events", alertColumns...))
		if err != nil {
			adb.logger.Error("failed-to-prepare-statement", err)
			_ = txn.Rollback()
			return err
		}
		for i := range alerts {
			if _, err := stmt.Exec(alertValues(&alerts[i])...); err != nil {
				adb.logger.Error("failed-to-execute", err)
				_ = txn.Rollback()
				return err
			}
		}
		if _, err = stmt.Exec(); err != nil {
			adb.logger.Error("failed-to-execute-statement", err)
			_ = txn.Rollback()
			return err
		}
		if err = stmt.Close(); err != nil {
			adb.logger.Error("failed-to-close-statement", err)
			_ = txn.Rollback()
			return err
		}

	case db.MysqlDriverName:
		if len(alerts) == 0 {
			return txn.Rollback()
		}
		sqlStr := "INSERT INTO alert_events(" + strings.Join(alertColumns, ",") + ")VALUES"
		vals := []interface{}{}
		placeholder := "(?" + strings.Repeat(", ?", len(alertColumns)-1) + "),"
		for i := range alerts {
			sqlStr += placeholder
			vals = append(vals, alertValues(&alerts[i])...)
		}
		sqlStr = strings.TrimSuffix(sqlStr, ",")

		stmt, err := txn.Prepare(sqlStr)
		if err != nil {
			adb.logger.Error("failed-to-prepare-statement", err)
			_ = txn.Rollback()
			return err
		}
		if _, err = stmt.Exec(vals...); err != nil {
			adb.logger.Error("failed-to-execute-statement", err)
			_ = txn.Rollback()
			return err
		}
		if err = stmt.Close(); err != nil {
			adb.logger.Error("failed-to-close-statement", err)
			_ = txn.Rollback()
			return err
		}
	}

	err = txn.Commit()
	if err != nil {
		adb.logger.Error("failed-to-commit-transaction", err)
		_ = txn.Rollback()
		return err
	}
	return nil
}

func alertValues(a *models.AlertEvent) []interface{} {
	return []interface{}{
		a.TriggeredAt, a.Source, a.Priority, a.Severity, a.Team,
		a.Application, a.Subsystem, a.AlertName, a.Message, a.Query,
		a.SampleLog, a.Host, a.Path, a.StatusCode, a.Threshold, a.Value,
	}
}

func (adb *AlertSQLDB) PruneAlerts(ctx context.Context, before time.Time) error {
	query := adb.sqldb.Rebind("DELETE FROM alert_events WHERE triggered_at <= ?")
	_, err := adb.sqldb.ExecContext(ctx, query, before)
	if err != nil {
		adb.logger.Error("prune-alerts-from-alert-events-table", err, lager.Data{"query": query, "before": before})
	}
	return err
}

func (adb *AlertSQLDB) GetDBStatus() sql.DBStats {
	return adb.sqldb.Stats()
}

func (adb *AlertSQLDB) Ping() error {
	return adb.sqldb.Ping()
}
