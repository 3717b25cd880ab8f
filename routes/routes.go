package routes

import (
	"net/http"

	"github.com/gorilla/mux"
)

const (
	HourlyAnomaliesPath         = "/v1/anomalies/hourly"
	GetHourlyAnomaliesRouteName = "GetHourlyAnomalies"

	DailyAnomaliesPath         = "/v1/anomalies/daily"
	GetDailyAnomaliesRouteName = "GetDailyAnomalies"

	AnomalyAlertsPath         = "/v1/anomalies/{timestamp}/alerts"
	GetAnomalyAlertsRouteName = "GetAnomalyAlerts"

	ForecastPath         = "/v1/forecast"
	GetForecastRouteName = "GetForecast"

	AnalyzeAnomalyPath      = "/v1/anomalies/analyze"
	AnalyzeAnomalyRouteName = "AnalyzeAnomaly"

	AlertsPath          = "/v1/alerts"
	PostAlertsRouteName = "PostAlerts"
)

// VarsFunc adapts a handler that wants the mux path variables already
// extracted.
type VarsFunc func(w http.ResponseWriter, r *http.Request, vars map[string]string)

func (vh VarsFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	vh(w, r, vars)
}

type funnelmonRoute struct {
	apiRoutes *mux.Router
}

var routeInstance = newRouters()

func newRouters() *funnelmonRoute {
	instance := &funnelmonRoute{
		apiRoutes: mux.NewRouter(),
	}

	instance.apiRoutes.Path(HourlyAnomaliesPath).Methods(http.MethodGet).Name(GetHourlyAnomaliesRouteName)
	instance.apiRoutes.Path(DailyAnomaliesPath).Methods(http.MethodGet).Name(GetDailyAnomaliesRouteName)
	instance.apiRoutes.Path(AnalyzeAnomalyPath).Methods(http.MethodPost).Name(AnalyzeAnomalyRouteName)
	instance.apiRoutes.Path(AnomalyAlertsPath).Methods(http.MethodGet).Name(GetAnomalyAlertsRouteName)
	instance.apiRoutes.Path(ForecastPath).Methods(http.MethodGet).Name(GetForecastRouteName)
	instance.apiRoutes.Path(AlertsPath).Methods(http.MethodPost).Name(PostAlertsRouteName)

	return instance
}

func ApiRoutes() *mux.Router {
	return routeInstance.apiRoutes
}
