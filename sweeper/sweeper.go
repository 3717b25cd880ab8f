package sweeper

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/funnelmon/funnelmon/anomaly"
	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/config"
	"github.com/funnelmon/funnelmon/correlation"
	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/healthendpoint"
	"github.com/funnelmon/funnelmon/models"
)

const storeMaxRetries = 3

var (
	SweepCounterOpts = prometheus.CounterOpts{
		Namespace: "funnelmon",
		Subsystem: "sweeper",
		Name:      "sweeps_total",
		Help:      "Total number of completed sweeps.",
	}
	AnomalyCounterOpts = prometheus.CounterOpts{
		Namespace: "funnelmon",
		Subsystem: "sweeper",
		Name:      "anomalies_total",
		Help:      "Total number of anomalies flagged by sweeps.",
	}
)

type AlertFinder interface {
	FindNearbyAlerts(ctx context.Context, anomalyTime time.Time, before time.Duration, after time.Duration) ([]models.AlertEvent, error)
}

type RuleSource interface {
	ActiveRules(ctx context.Context, domain string) ([]models.MappingRule, error)
}

// Sweeper runs the detection pipeline unattended: the configured hourly
// metrics over the latest ingested date, the configured daily metrics over
// the trailing lookback window, and correlation for whatever it flags.
// Results are emitted as log lines and counters, the stores stay read-only.
type Sweeper struct {
	logger      lager.Logger
	conf        *config.Config
	detector    *anomaly.Detector
	converter   *civil.Converter
	hourlyStore db.HourlyMetricStore
	dailyStore  db.DailyMetricStore
	alertFinder AlertFinder
	ruleSource  RuleSource
	ruleEngine  *correlation.RuleEngine
	cclock      clock.Clock
	counters    healthendpoint.CounterCollector
}

func NewSweeper(logger lager.Logger, conf *config.Config, cclock clock.Clock, detector *anomaly.Detector,
	converter *civil.Converter, hourlyStore db.HourlyMetricStore, dailyStore db.DailyMetricStore,
	alertFinder AlertFinder, ruleSource RuleSource, ruleEngine *correlation.RuleEngine,
	counters healthendpoint.CounterCollector) *Sweeper {
	counters.AddCounters(SweepCounterOpts, AnomalyCounterOpts)
	return &Sweeper{
		logger:      logger.Session("sweeper"),
		conf:        conf,
		detector:    detector,
		converter:   converter,
		hourlyStore: hourlyStore,
		dailyStore:  dailyStore,
		alertFinder: alertFinder,
		ruleSource:  ruleSource,
		ruleEngine:  ruleEngine,
		cclock:      cclock,
		counters:    counters,
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	events := s.sweepHourly(ctx)
	events = append(events, s.sweepDaily(ctx)...)
	for i := range events {
		s.reportAnomaly(ctx, &events[i])
	}
	s.counters.Add(SweepCounterOpts, 1)
	s.counters.Add(AnomalyCounterOpts, int64(len(events)))
	s.logger.Info("sweep-completed", lager.Data{"anomalies": len(events)})
}

func (s *Sweeper) sweepHourly(ctx context.Context) []models.AnomalyEvent {
	var date string
	err := s.withRetry("retrieve-latest-date", func() error {
		var err error
		date, err = s.hourlyStore.RetrieveLatestDate(ctx)
		if errors.Is(err, db.ErrDoesNotExist) {
			return backoff.Permanent(err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, db.ErrDoesNotExist) {
			s.logger.Info("no-hourly-metrics-yet")
		}
		return nil
	}

	var rows []models.HourlyMetricRow
	err = s.withRetry("retrieve-hourly-metrics", func() error {
		var err error
		rows, err = s.hourlyStore.RetrieveHourlyMetrics(ctx, date, db.ASC)
		return err
	})
	if err != nil {
		return nil
	}

	var events []models.AnomalyEvent
	for _, metric := range s.conf.Sweeper.HourlyMetrics {
		if hasCohorts(rows) {
			_, metricEvents := s.detector.DetectHourlyCohorts(date, metric, rows)
			events = append(events, metricEvents...)
		} else {
			events = append(events, s.detector.DetectHourlySingleDate(date, metric, rows)...)
		}
	}
	return events
}

func (s *Sweeper) sweepDaily(ctx context.Context) []models.AnomalyEvent {
	end := s.converter.ToCivil(s.cclock.Now())
	start := end.AddDate(0, 0, -(s.conf.Sweeper.DailyLookbackDays - 1))
	startDate := start.Format(civil.DateLayout)
	endDate := end.Format(civil.DateLayout)

	var rows []models.DailyMetricRow
	err := s.withRetry("retrieve-daily-metrics", func() error {
		var err error
		rows, err = s.dailyStore.RetrieveDailyMetrics(ctx, startDate, endDate, db.ASC)
		return err
	})
	if err != nil {
		return nil
	}

	var events []models.AnomalyEvent
	for _, metric := range s.conf.Sweeper.DailyMetrics {
		_, metricEvents := s.detector.DetectDaily(metric, rows)
		events = append(events, metricEvents...)
	}
	return events
}

// reportAnomaly correlates one flagged event with nearby alerts and logs the
// outcome. Store failures here degrade the annotation, never the sweep.
func (s *Sweeper) reportAnomaly(ctx context.Context, event *models.AnomalyEvent) {
	tolerance := time.Duration(s.conf.Correlation.ToleranceMinutes) * time.Minute
	alerts, err := s.alertFinder.FindNearbyAlerts(ctx, event.Timestamp, tolerance, tolerance)
	if err != nil {
		s.logger.Error("failed-to-find-nearby-alerts", err, lager.Data{"metric": event.Metric, "timestamp": event.Timestamp})
	}

	var rules []models.MappingRule
	if len(alerts) > 0 {
		rules, err = s.ruleSource.ActiveRules(ctx, s.conf.Correlation.RuleDomain)
		if err != nil {
			s.logger.Error("failed-to-retrieve-mapping-rules", err, lager.Data{"domain": s.conf.Correlation.RuleDomain})
		}
	}
	correlated := s.ruleEngine.Correlate(alerts, rules, event.Metric)
	s.ruleEngine.Rank(correlated)

	data := lager.Data{
		"granularity": event.Granularity,
		"metric":      event.Metric,
		"dt":          event.Date,
		"hour":        event.Hour,
		"value":       event.CurrentValue,
		"alerts":      len(correlated),
	}
	if len(correlated) > 0 && correlated[0].CorrelationScore != nil {
		data["top_alert"] = correlated[0].AlertName
		data["score"] = *correlated[0].CorrelationScore
	}
	s.logger.Info("anomaly-detected", data)
}

func (s *Sweeper) withRetry(op string, work func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.conf.Sweeper.RetryInitialInterval
	err := backoff.Retry(work, backoff.WithMaxRetries(b, storeMaxRetries))
	if err != nil && !errors.Is(err, db.ErrDoesNotExist) {
		s.logger.Error("giving-up-"+op, err)
	}
	return err
}

func hasCohorts(rows []models.HourlyMetricRow) bool {
	for i := range rows {
		if rows[i].Cohort != "" {
			return true
		}
	}
	return false
}
