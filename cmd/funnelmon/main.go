package main

import (
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tedsuo/ifrit"

	"github.com/funnelmon/funnelmon/anomaly"
	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/collection"
	"github.com/funnelmon/funnelmon/correlation"
	"github.com/funnelmon/funnelmon/healthendpoint"
	"github.com/funnelmon/funnelmon/helpers"
	"github.com/funnelmon/funnelmon/pruner"
	"github.com/funnelmon/funnelmon/server"
	"github.com/funnelmon/funnelmon/startup"
	"github.com/funnelmon/funnelmon/summarizer"
	"github.com/funnelmon/funnelmon/sweeper"
)

func main() {
	conf, logger := startup.Bootstrap("funnelmon")

	fmClock := clock.NewClock()
	converter := civil.DefaultConverter()

	httpClient, err := helpers.CreateHTTPClient(nil, conf.HttpClientTimeout)
	startup.ExitOnError(err, logger, "failed to create http client")

	stores, err := startup.CreateStores(conf, logger, httpClient)
	startup.ExitOnError(err, logger, "failed to create stores")
	defer stores.Close()

	alertStore := collection.NewCachedAlertStore(logger, stores.Alerts, conf.Correlation.AlertCacheCapacity)

	detector := anomaly.NewDetector(logger, converter, conf.Detection.ThresholdPercent)
	policy := correlation.NewDualInterpretationPolicy(converter, conf.Correlation.ToleranceMinutes)
	matcher := correlation.NewMatcher(logger, alertStore, converter, policy)
	ruleProvider, err := correlation.NewRuleProvider(logger, stores.Rules, conf.Correlation.RuleCacheTTL)
	startup.ExitOnError(err, logger, "failed to create rule provider")
	ruleEngine := correlation.NewRuleEngine(logger)

	var analyzer server.Analyzer
	if conf.Summarizer.URL != "" {
		analyzer = summarizer.NewClient(logger, conf.Summarizer, httpClient)
	}

	httpStatusCollector := healthendpoint.NewHTTPStatusCollector("funnelmon", "api")
	counterCollector := healthendpoint.NewCounterCollector()
	promRegistry := prometheus.NewRegistry()
	promCollectors := []prometheus.Collector{httpStatusCollector, counterCollector}
	for table, status := range stores.Statuses {
		promCollectors = append(promCollectors, healthendpoint.NewDatabaseStatusCollector("funnelmon", "api", table, status))
	}
	healthendpoint.RegisterCollectors(promRegistry, promCollectors, true, logger.Session("funnelmon-prometheus"))

	apiHandler := server.NewApiHandler(logger, conf, converter, stores.Hourly, stores.Daily,
		matcher, ruleProvider, ruleEngine, stores.AlertWriter, analyzer, fmClock)

	swp := sweeper.NewSweeper(logger, conf, fmClock, detector, converter, stores.Hourly, stores.Daily,
		matcher, ruleProvider, ruleEngine, counterCollector)
	sweeperRunner := sweeper.NewSweeperRunner(swp, conf.Sweeper.Interval, fmClock, logger)

	healthCheckers := []healthendpoint.Checker{
		healthendpoint.DbChecker("store", stores.Pinger),
	}

	servers := []startup.ServerBuilder{
		startup.Server("sweeper", func() (ifrit.Runner, error) { return sweeperRunner, nil }),
		startup.Server("http_server", func() (ifrit.Runner, error) {
			return server.NewServer(logger.Session("http_server"), conf, apiHandler, httpStatusCollector)
		}),
		startup.Server("health_server", func() (ifrit.Runner, error) {
			return healthendpoint.NewServerWithBasicAuth(conf.Health, healthCheckers, logger.Session("health-server"), promRegistry, time.Now)
		}),
	}
	if stores.AlertPruner != nil {
		alertsPruner := pruner.NewAlertsDbPruner(stores.AlertPruner, conf.Pruner.AlertRetentionDays, fmClock, logger)
		prunerRunner := pruner.NewOperatorRunner(alertsPruner, conf.Pruner.Interval, fmClock, logger.Session("pruner"))
		servers = append(servers, startup.Server("pruner", func() (ifrit.Runner, error) { return prunerRunner, nil }))
	}

	startup.StartService(logger, servers...)
}
