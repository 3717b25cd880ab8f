package server

import (
	"net/http"

	"github.com/funnelmon/funnelmon/config"
	"github.com/funnelmon/funnelmon/healthendpoint"
	"github.com/funnelmon/funnelmon/helpers"
	"github.com/funnelmon/funnelmon/ratelimiter"
	"github.com/funnelmon/funnelmon/routes"

	"code.cloudfoundry.org/lager/v3"
	"github.com/gorilla/mux"
	uuid "github.com/nu7hatch/gouuid"
	"github.com/tedsuo/ifrit"
)

const requestIDHeader = "X-Request-Id"

func NewServer(logger lager.Logger, conf *config.Config, apiHandler *ApiHandler, httpStatusCollector healthendpoint.HTTPStatusCollector) (ifrit.Runner, error) {
	httpStatusCollectMiddleware := healthendpoint.NewHTTPStatusCollectMiddleware(httpStatusCollector)
	rateLimiter := ratelimiter.DefaultRateLimiter(conf.RateLimit.MaxAmount, conf.RateLimit.ValidDuration, logger.Session("api-ratelimiter"))
	rateLimiterMiddleware := ratelimiter.NewRateLimiterMiddleware(rateLimiter, logger.Session("ratelimiter-middleware"))

	r := routes.ApiRoutes()
	r.Use(requestIDMiddleware())
	r.Use(rateLimiterMiddleware.CheckRateLimit)
	r.Use(httpStatusCollectMiddleware.Collect)
	r.Get(routes.GetHourlyAnomaliesRouteName).Handler(routes.VarsFunc(apiHandler.GetHourlyAnomalies))
	r.Get(routes.GetDailyAnomaliesRouteName).Handler(routes.VarsFunc(apiHandler.GetDailyAnomalies))
	r.Get(routes.GetAnomalyAlertsRouteName).Handler(routes.VarsFunc(apiHandler.GetAnomalyAlerts))
	r.Get(routes.GetForecastRouteName).Handler(routes.VarsFunc(apiHandler.GetForecast))
	r.Get(routes.AnalyzeAnomalyRouteName).Handler(routes.VarsFunc(apiHandler.AnalyzeAnomaly))
	r.Get(routes.PostAlertsRouteName).Handler(routes.VarsFunc(apiHandler.PostAlerts))

	return helpers.NewHTTPServer(logger, conf.Server, r)
}

// requestIDMiddleware tags every request and response with an id so a
// client report can be tied to the server log line.
func requestIDMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				if id, err := uuid.NewV4(); err == nil {
					requestID = id.String()
					r.Header.Set(requestIDHeader, requestID)
				}
			}
			if requestID != "" {
				w.Header().Set(requestIDHeader, requestID)
			}
			next.ServeHTTP(w, r)
		})
	}
}
