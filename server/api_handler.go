package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/funnelmon/funnelmon/anomaly"
	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/config"
	"github.com/funnelmon/funnelmon/correlation"
	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/forecast"
	"github.com/funnelmon/funnelmon/helpers/handlers"
	"github.com/funnelmon/funnelmon/models"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
)

// AlertFinder finds alert events near an anomaly instant.
type AlertFinder interface {
	FindNearbyAlerts(ctx context.Context, anomalyTime time.Time, before time.Duration, after time.Duration) ([]models.AlertEvent, error)
}

// RuleSource supplies the active mapping rules of a domain.
type RuleSource interface {
	ActiveRules(ctx context.Context, domain string) ([]models.MappingRule, error)
}

// Analyzer turns an anomaly context into a narrative analysis.
type Analyzer interface {
	Analyze(ctx context.Context, anomalyContext models.AnomalyContext) (*models.AnomalyAnalysis, error)
}

// AlertWriter ingests alert events in bulk. Only the directly connected
// database store supports it.
type AlertWriter interface {
	SaveAlertsInBulk(alerts []models.AlertEvent) error
}

type ApiHandler struct {
	logger      lager.Logger
	conf        *config.Config
	converter   *civil.Converter
	hourlyStore db.HourlyMetricStore
	dailyStore  db.DailyMetricStore
	alertFinder AlertFinder
	ruleSource  RuleSource
	ruleEngine  *correlation.RuleEngine
	alertWriter AlertWriter
	analyzer    Analyzer
	clock       clock.Clock
}

func NewApiHandler(logger lager.Logger, conf *config.Config, converter *civil.Converter, hourlyStore db.HourlyMetricStore, dailyStore db.DailyMetricStore, alertFinder AlertFinder, ruleSource RuleSource, ruleEngine *correlation.RuleEngine, alertWriter AlertWriter, analyzer Analyzer, clck clock.Clock) *ApiHandler {
	return &ApiHandler{
		logger:      logger.Session("api-handler"),
		conf:        conf,
		converter:   converter,
		hourlyStore: hourlyStore,
		dailyStore:  dailyStore,
		alertFinder: alertFinder,
		ruleSource:  ruleSource,
		ruleEngine:  ruleEngine,
		alertWriter: alertWriter,
		analyzer:    analyzer,
		clock:       clck,
	}
}

type HourlyAnomaliesResponse struct {
	Date      string                `json:"dt"`
	Metric    string                `json:"metric"`
	Threshold float64               `json:"threshold"`
	Buckets   []models.HourlyBucket `json:"buckets,omitempty"`
	Anomalies []models.AnomalyEvent `json:"anomalies"`
}

type DailyAnomaliesResponse struct {
	Start     string                `json:"start"`
	End       string                `json:"end"`
	Metric    string                `json:"metric"`
	Threshold float64               `json:"threshold"`
	Points    []models.DailyPoint   `json:"points"`
	Anomalies []models.AnomalyEvent `json:"anomalies"`
}

type AnomalyAlertsResponse struct {
	Timestamp time.Time                `json:"timestamp"`
	Metric    string                   `json:"metric,omitempty"`
	Alerts    []models.CorrelatedAlert `json:"alerts"`
}

type ForecastResponse struct {
	Metric string           `json:"metric"`
	Days   int              `json:"days"`
	Points []forecast.Point `json:"points"`
}

type AnalyzeResponse struct {
	Analysis             *models.AnomalyAnalysis `json:"analysis"`
	NarrativeUnavailable bool                    `json:"narrative_unavailable,omitempty"`
}

func (h *ApiHandler) GetHourlyAnomalies(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	query := r.URL.Query()
	date := query.Get("date")
	metric := query.Get("metric")

	if _, err := time.Parse(civil.DateLayout, date); err != nil {
		h.logger.Error("get-hourly-anomalies-parse-date", err, lager.Data{"date": date})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "date must be in YYYY-MM-DD format")
		return
	}
	if !models.IsHourlyMetricField(metric) {
		h.logger.Info("get-hourly-anomalies-unknown-metric", lager.Data{"metric": metric})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "unknown hourly metric")
		return
	}
	threshold, ok := h.thresholdParam(w, query.Get("threshold"))
	if !ok {
		return
	}

	rows, err := h.hourlyStore.RetrieveHourlyMetrics(r.Context(), date, db.ASC)
	if err != nil {
		h.logger.Error("get-hourly-anomalies-retrieve", err, lager.Data{"date": date, "metric": metric})
		handlers.WriteErrorResponse(w, http.StatusBadGateway, "Bad-Gateway", "Error retrieving hourly metrics")
		return
	}

	detector := anomaly.NewDetector(h.logger, h.converter, threshold)
	response := HourlyAnomaliesResponse{Date: date, Metric: metric, Threshold: detector.Threshold()}
	if hasCohorts(rows) {
		response.Buckets, response.Anomalies = detector.DetectHourlyCohorts(date, metric, rows)
	} else {
		response.Anomalies = detector.DetectHourlySingleDate(date, metric, rows)
	}
	handlers.WriteJSONResponse(w, http.StatusOK, response)
}

func (h *ApiHandler) GetDailyAnomalies(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	query := r.URL.Query()
	start := query.Get("start")
	end := query.Get("end")
	metric := query.Get("metric")

	startDate, err := time.Parse(civil.DateLayout, start)
	if err != nil {
		h.logger.Error("get-daily-anomalies-parse-start", err, lager.Data{"start": start})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "start must be in YYYY-MM-DD format")
		return
	}
	endDate, err := time.Parse(civil.DateLayout, end)
	if err != nil {
		h.logger.Error("get-daily-anomalies-parse-end", err, lager.Data{"end": end})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "end must be in YYYY-MM-DD format")
		return
	}
	if endDate.Before(startDate) {
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "start must not be after end")
		return
	}
	if !models.IsDailyMetricField(metric) {
		h.logger.Info("get-daily-anomalies-unknown-metric", lager.Data{"metric": metric})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "unknown daily metric")
		return
	}
	threshold, ok := h.thresholdParam(w, query.Get("threshold"))
	if !ok {
		return
	}

	rows, err := h.dailyStore.RetrieveDailyMetrics(r.Context(), start, end, db.ASC)
	if err != nil {
		h.logger.Error("get-daily-anomalies-retrieve", err, lager.Data{"start": start, "end": end, "metric": metric})
		handlers.WriteErrorResponse(w, http.StatusBadGateway, "Bad-Gateway", "Error retrieving daily metrics")
		return
	}

	detector := anomaly.NewDetector(h.logger, h.converter, threshold)
	points, anomalies := detector.DetectDaily(metric, rows)
	handlers.WriteJSONResponse(w, http.StatusOK, DailyAnomaliesResponse{
		Start:     start,
		End:       end,
		Metric:    metric,
		Threshold: detector.Threshold(),
		Points:    points,
		Anomalies: anomalies,
	})
}

func (h *ApiHandler) GetAnomalyAlerts(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	timestamp, err := time.Parse(time.RFC3339, vars["timestamp"])
	if err != nil {
		h.logger.Error("get-anomaly-alerts-parse-timestamp", err, lager.Data{"timestamp": vars["timestamp"]})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "timestamp must be in RFC3339 format")
		return
	}

	query := r.URL.Query()
	before, ok := h.minutesParam(w, query.Get("before"), "before")
	if !ok {
		return
	}
	after, ok := h.minutesParam(w, query.Get("after"), "after")
	if !ok {
		return
	}
	metric := query.Get("metric")
	if metric != "" && !models.IsHourlyMetricField(metric) && !models.IsDailyMetricField(metric) {
		h.logger.Info("get-anomaly-alerts-unknown-metric", lager.Data{"metric": metric})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "unknown metric")
		return
	}

	alerts, err := h.alertFinder.FindNearbyAlerts(r.Context(), timestamp, before, after)
	if err != nil {
		h.logger.Error("get-anomaly-alerts-find", err, lager.Data{"timestamp": timestamp})
		handlers.WriteErrorResponse(w, http.StatusBadGateway, "Bad-Gateway", "Error retrieving alerts")
		return
	}

	// a rule store outage degrades to unannotated alerts, it never hides them
	var rules []models.MappingRule
	rules, err = h.ruleSource.ActiveRules(r.Context(), h.conf.Correlation.RuleDomain)
	if err != nil {
		h.logger.Error("get-anomaly-alerts-rules", err, lager.Data{"domain": h.conf.Correlation.RuleDomain})
		rules = nil
	}

	correlated := h.ruleEngine.Correlate(alerts, rules, metric)
	h.ruleEngine.Rank(correlated)
	handlers.WriteJSONResponse(w, http.StatusOK, AnomalyAlertsResponse{
		Timestamp: timestamp,
		Metric:    metric,
		Alerts:    correlated,
	})
}

func (h *ApiHandler) GetForecast(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	query := r.URL.Query()
	metric := query.Get("metric")
	if !models.IsDailyMetricField(metric) {
		h.logger.Info("get-forecast-unknown-metric", lager.Data{"metric": metric})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "unknown daily metric")
		return
	}

	days := h.conf.Forecast.DefaultHorizonDays
	if daysParam := query.Get("days"); daysParam != "" {
		var err error
		days, err = strconv.Atoi(daysParam)
		if err != nil || days <= 0 || days > 90 {
			h.logger.Info("get-forecast-bad-days", lager.Data{"days": daysParam})
			handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "days must be an integer between 1 and 90")
			return
		}
	}

	today := h.converter.ToCivil(h.clock.Now())
	end := today.Format(civil.DateLayout)
	start := today.AddDate(0, 0, -(h.conf.Forecast.LookbackDays - 1)).Format(civil.DateLayout)

	rows, err := h.dailyStore.RetrieveDailyMetrics(r.Context(), start, end, db.ASC)
	if err != nil {
		h.logger.Error("get-forecast-retrieve", err, lager.Data{"start": start, "end": end, "metric": metric})
		handlers.WriteErrorResponse(w, http.StatusBadGateway, "Bad-Gateway", "Error retrieving daily metrics")
		return
	}

	series := make([]forecast.Point, 0, len(rows))
	for i := range rows {
		raw, _ := rows[i].Metric(metric)
		series = append(series, forecast.Point{Date: rows[i].Date, Value: models.ParseMetricValue(raw)})
	}
	projected := forecast.Project(series, days)

	handlers.WriteJSONResponse(w, http.StatusOK, ForecastResponse{
		Metric: metric,
		Days:   days,
		Points: append(series, projected...),
	})
}

func (h *ApiHandler) AnalyzeAnomaly(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	if h.analyzer == nil {
		handlers.WriteErrorResponse(w, http.StatusServiceUnavailable, "Service-Unavailable", "summarizer is not configured")
		return
	}

	var anomalyContext models.AnomalyContext
	if err := json.NewDecoder(r.Body).Decode(&anomalyContext); err != nil {
		h.logger.Error("analyze-anomaly-decode", err)
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "Error decoding anomaly context")
		return
	}
	if anomalyContext.Metric == "" || anomalyContext.AnomalyTime == "" {
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "metric and anomaly_time are required")
		return
	}

	analysis, err := h.analyzer.Analyze(r.Context(), anomalyContext)
	if err != nil {
		h.logger.Error("analyze-anomaly", err, lager.Data{"metric": anomalyContext.Metric, "anomaly_time": anomalyContext.AnomalyTime})
		if len(anomalyContext.Alerts) > 0 {
			// the alerts are still worth showing without a narrative
			handlers.WriteJSONResponse(w, http.StatusOK, AnalyzeResponse{NarrativeUnavailable: true})
			return
		}
		handlers.WriteErrorResponse(w, http.StatusBadGateway, "Bad-Gateway", "Error analyzing anomaly")
		return
	}
	handlers.WriteJSONResponse(w, http.StatusOK, AnalyzeResponse{Analysis: analysis})
}

type SaveAlertsResponse struct {
	Saved int `json:"saved"`
}

func (h *ApiHandler) PostAlerts(w http.ResponseWriter, r *http.Request, vars map[string]string) {
	if h.alertWriter == nil {
		handlers.WriteErrorResponse(w, http.StatusServiceUnavailable, "Service-Unavailable", "alert ingestion requires a direct database connection")
		return
	}

	var alerts []models.AlertEvent
	if err := json.NewDecoder(r.Body).Decode(&alerts); err != nil {
		h.logger.Error("post-alerts-decode", err)
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "Error decoding alert events")
		return
	}
	if len(alerts) == 0 {
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "at least one alert event is required")
		return
	}
	for i := range alerts {
		if alerts[i].TriggeredAt.IsZero() || alerts[i].AlertName == "" {
			handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "every alert event needs triggered_at and alert_name")
			return
		}
	}

	if err := h.alertWriter.SaveAlertsInBulk(alerts); err != nil {
		h.logger.Error("post-alerts-save", err, lager.Data{"count": len(alerts)})
		handlers.WriteErrorResponse(w, http.StatusBadGateway, "Bad-Gateway", "Error saving alert events")
		return
	}
	handlers.WriteJSONResponse(w, http.StatusCreated, SaveAlertsResponse{Saved: len(alerts)})
}

func (h *ApiHandler) thresholdParam(w http.ResponseWriter, raw string) (float64, bool) {
	if raw == "" {
		return h.conf.Detection.ThresholdPercent, true
	}
	threshold, err := strconv.ParseFloat(raw, 64)
	if err != nil || threshold <= 0 {
		h.logger.Info("bad-threshold-param", lager.Data{"threshold": raw})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", "threshold must be a positive number")
		return 0, false
	}
	return threshold, true
}

func (h *ApiHandler) minutesParam(w http.ResponseWriter, raw string, name string) (time.Duration, bool) {
	if raw == "" {
		return time.Duration(h.conf.Correlation.ToleranceMinutes) * time.Minute, true
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < 0 {
		h.logger.Info("bad-minutes-param", lager.Data{"param": name, "value": raw})
		handlers.WriteErrorResponse(w, http.StatusBadRequest, "Bad-Request", name+" must be a non-negative integer of minutes")
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

func hasCohorts(rows []models.HourlyMetricRow) bool {
	for i := range rows {
		if rows[i].Cohort != "" {
			return true
		}
	}
	return false
}
