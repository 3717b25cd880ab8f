package restdb

import (
	"context"
	"net/http"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

const (
	hourlyMetricTable = "app_hourly_metrics"
	dailyMetricTable  = "daily_amount_metrics"
)

type HourlyMetricRESTDB struct {
	logger lager.Logger
	client *Client
}

func NewHourlyMetricRESTDB(conf RestStoreConfig, logger lager.Logger, httpClient *http.Client) *HourlyMetricRESTDB {
	return &HourlyMetricRESTDB{
		logger: logger,
		client: NewClient(logger, conf, httpClient),
	}
}

func (hdb *HourlyMetricRESTDB) Close() error {
	return nil
}

func (hdb *HourlyMetricRESTDB) RetrieveHourlyMetrics(ctx context.Context, date string, orderType db.OrderType) ([]models.HourlyMetricRow, error) {
	rows, err := hdb.client.fetch(ctx, hourlyMetricTable, QueryParams{
		Select: "*",
		Eq:     map[string]string{"dt": date},
		Order:  &OrderParam{Column: "hour", Ascending: orderType == db.ASC},
	})
	if err != nil {
		return nil, err
	}

	metrics := make([]models.HourlyMetricRow, 0, len(rows))
	for _, row := range rows {
		metric := models.HourlyMetricRow{
			Date:                    stringField(row, "dt"),
			Hour:                    stringField(row, "hour"),
			Cohort:                  models.HourlyCohort(stringField(row, "cohort")),
			ApplicationsCreated:     stringFieldPtr(row, "applications_created"),
			ApplicationsSubmitted:   stringFieldPtr(row, "applications_submitted"),
			ApplicationsPending:     stringFieldPtr(row, "applications_pending"),
			ApplicationsNached:      stringFieldPtr(row, "applications_nached"),
			AutopayDoneApplications: stringFieldPtr(row, "autopay_done_applications"),
			ApplicationsApproved:    stringFieldPtr(row, "applications_approved"),
		}
		metrics = append(metrics, metric)
	}
	return metrics, nil
}

func (hdb *HourlyMetricRESTDB) RetrieveLatestDate(ctx context.Context) (string, error) {
	rows, err := hdb.client.fetch(ctx, hourlyMetricTable, QueryParams{
		Select: "dt",
		Eq:     map[string]string{"cohort": string(models.CohortCurrentDay)},
		Order:  &OrderParam{Column: "dt", Ascending: false},
		Limit:  1,
	})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", db.ErrDoesNotExist
	}
	return stringField(rows[0], "dt"), nil
}

type DailyMetricRESTDB struct {
	logger lager.Logger
	client *Client
}

func NewDailyMetricRESTDB(conf RestStoreConfig, logger lager.Logger, httpClient *http.Client) *DailyMetricRESTDB {
	return &DailyMetricRESTDB{
		logger: logger,
		client: NewClient(logger, conf, httpClient),
	}
}

func (ddb *DailyMetricRESTDB) Close() error {
	return nil
}

func (ddb *DailyMetricRESTDB) RetrieveDailyMetrics(ctx context.Context, startDate string, endDate string, orderType db.OrderType) ([]models.DailyMetricRow, error) {
	rows, err := ddb.client.fetch(ctx, dailyMetricTable, QueryParams{
		Select: "*",
		GTE:    map[string]string{"dt": startDate},
		LTE:    map[string]string{"dt": endDate},
		Order:  &OrderParam{Column: "dt", Ascending: orderType == db.ASC},
	})
	if err != nil {
		return nil, err
	}

	metrics := make([]models.DailyMetricRow, 0, len(rows))
	for _, row := range rows {
		metrics = append(metrics, models.DailyMetricRow{
			Date:                stringField(row, "dt"),
			Eligible:            stringFieldPtr(row, "eligible"),
			Started:             stringFieldPtr(row, "started"),
			ShopDetailsPage:     stringFieldPtr(row, "shop_details_page"),
			ShopPhoto:           stringFieldPtr(row, "shop_photo"),
			KycInitiated:        stringFieldPtr(row, "kyc_initiated"),
			KycCompleted:        stringFieldPtr(row, "kyc_completed"),
			AddDetailsSubmitted: stringFieldPtr(row, "add_detials_submitted"),
			RefPageSubmitted:    stringFieldPtr(row, "ref_page_submitted"),
			Submitted:           stringFieldPtr(row, "submitted"),
			NachInitiated:       stringFieldPtr(row, "nach_initiated"),
			NachDone:            stringFieldPtr(row, "nach_done"),
			Processed:           stringFieldPtr(row, "processed"),
			Approved:            stringFieldPtr(row, "approved"),
			Disbursed:           stringFieldPtr(row, "disbursed"),
		})
	}
	return metrics, nil
}
