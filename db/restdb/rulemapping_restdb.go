package restdb

import (
	"context"
	"net/http"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/models"
)

const ruleMappingTable = "alert_metric_map"

type RuleMappingRESTDB struct {
	logger lager.Logger
	client *Client
}

func NewRuleMappingRESTDB(conf RestStoreConfig, logger lager.Logger, httpClient *http.Client) *RuleMappingRESTDB {
	return &RuleMappingRESTDB{
		logger: logger,
		client: NewClient(logger, conf, httpClient),
	}
}

func (rdb *RuleMappingRESTDB) Close() error {
	return nil
}

func (rdb *RuleMappingRESTDB) RetrieveMappingRules(ctx context.Context, domain string, activeOnly bool) ([]models.MappingRule, error) {
	eq := map[string]string{}
	if domain != "" {
		eq["domain"] = domain
	}
	if activeOnly {
		eq["is_active"] = "true"
	}

	rows, err := rdb.client.fetch(ctx, ruleMappingTable, QueryParams{
		Select: "*",
		Eq:     eq,
	})
	if err != nil {
		return nil, err
	}

	rules := make([]models.MappingRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, models.MappingRule{
			MatchField: stringField(row, "match_field"),
			MatchType:  stringField(row, "match_type"),
			MatchValue: stringField(row, "match_value"),
			Domain:     stringField(row, "domain"),
			Metric:     stringField(row, "metric"),
			Confidence: stringField(row, "confidence"),
			Notes:      stringField(row, "notes"),
			IsActive:   boolField(row, "is_active"),
		})
	}
	return rules, nil
}
