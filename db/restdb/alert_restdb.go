package restdb

import (
	"context"
	"net/http"
	"time"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

const alertTable = "alert_events"

type AlertRESTDB struct {
	logger lager.Logger
	client *Client
}

func NewAlertRESTDB(conf RestStoreConfig, logger lager.Logger, httpClient *http.Client) *AlertRESTDB {
	return &AlertRESTDB{
		logger: logger,
		client: NewClient(logger, conf, httpClient),
	}
}

func (adb *AlertRESTDB) Close() error {
	return nil
}

func (adb *AlertRESTDB) Ping() error {
	return adb.client.Ping()
}

func (adb *AlertRESTDB) RetrieveAlerts(ctx context.Context, start time.Time, end time.Time, orderType db.OrderType) ([]models.AlertEvent, error) {
	rows, err := adb.client.fetch(ctx, alertTable, QueryParams{
		Select: "*",
		GTE:    map[string]string{"triggered_at": start.UTC().Format(time.RFC3339)},
		LTE:    map[string]string{"triggered_at": end.UTC().Format(time.RFC3339)},
		Order:  &OrderParam{Column: "triggered_at", Ascending: orderType == db.ASC},
	})
	if err != nil {
		return nil, err
	}

	alerts := make([]models.AlertEvent, 0, len(rows))
	for _, row := range rows {
		triggeredAt, err := timeField(row, "triggered_at")
		if err != nil {
			adb.logger.Info("skipping-alert-with-bad-timestamp", lager.Data{"error": err.Error()})
			continue
		}
		alerts = append(alerts, models.AlertEvent{
			TriggeredAt: triggeredAt,
			Source:      stringField(row, "source"),
			Priority:    stringField(row, "priority"),
			Severity:    stringField(row, "severity"),
			Team:        stringField(row, "team"),
			Application: stringField(row, "application"),
			Subsystem:   stringField(row, "subsystem"),
			AlertName:   stringField(row, "alert_name"),
			Message:     stringField(row, "message"),
			Query:       stringField(row, "alert_query"),
			SampleLog:   stringField(row, "sample_log"),
			Host:        stringField(row, "host"),
			Path:        stringField(row, "path"),
			StatusCode:  stringField(row, "status_code"),
			Threshold:   stringField(row, "threshold"),
			Value:       stringField(row, "value"),
		})
	}
	return alerts, nil
}
