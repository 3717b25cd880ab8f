package sqldb

import (
	"context"
	"database/sql"

	"code.cloudfoundry.org/lager/v3"
	"github.com/jmoiron/sqlx"

	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

type RuleMappingSQLDB struct {
	dbConfig db.DatabaseConfig
	logger   lager.Logger
	sqldb    *sqlx.DB
}

func NewRuleMappingSQLDB(dbConfig db.DatabaseConfig, logger lager.Logger) (*RuleMappingSQLDB, error) {
	sqldb, err := openMetricDB(dbConfig, logger, "rule-mapping")
	if err != nil {
		return nil, err
	}
	return &RuleMappingSQLDB{
		dbConfig: dbConfig,
		logger:   logger,
		sqldb:    sqldb,
	}, nil
}

func (rdb *RuleMappingSQLDB) Close() error {
	return rdb.sqldb.Close()
}

func (rdb *RuleMappingSQLDB) RetrieveMappingRules(ctx context.Context, domain string, activeOnly bool) ([]models.MappingRule, error) {
	query := "SELECT match_field,match_type,match_value,domain,metric,confidence,notes,is_active FROM alert_metric_map"
	where := []string{}
	args := []interface{}{}
	if domain != "" {
		where = append(where, "domain=?")
		args = append(args, domain)
	}
	if activeOnly {
		where = append(where, "is_active=?")
		args = append(args, true)
	}
	for i, clause := range where {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query = rdb.sqldb.Rebind(query)

	rules := []models.MappingRule{}
	rows, err := rdb.sqldb.QueryxContext(ctx, query, args...)
	if err != nil {
		rdb.logger.Error("retrieve-rules-from-alert-metric-map-table", err, lager.Data{"query": query})
		return nil, err
	}
	defer func() {
		_ = rows.Close()
		_ = rows.Err()
	}()

	for rows.Next() {
		var rule models.MappingRule
		if err = rows.StructScan(&rule); err != nil {
			rdb.logger.Error("scan-rule-from-search-result", err)
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (rdb *RuleMappingSQLDB) GetDBStatus() sql.DBStats {
	return rdb.sqldb.Stats()
}

func (rdb *RuleMappingSQLDB) Ping() error {
	return rdb.sqldb.Ping()
}
