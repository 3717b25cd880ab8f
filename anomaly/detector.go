package anomaly

import (
	"sort"
	"strconv"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/models"
)

const DefaultThresholdPercent float64 = 30

// Detector flags metric observations whose drop against any baseline exceeds
// the configured percentage threshold. All three detection modes feed the
// same evaluation over a named baseline set; they differ only in how the
// baselines are assembled.
type Detector struct {
	logger    lager.Logger
	converter *civil.Converter
	threshold float64
}

func NewDetector(logger lager.Logger, converter *civil.Converter, thresholdPct float64) *Detector {
	if thresholdPct <= 0 {
		thresholdPct = DefaultThresholdPercent
	}
	if converter == nil {
		converter = civil.DefaultConverter()
	}
	return &Detector{
		logger:    logger.Session("anomaly-detector"),
		converter: converter,
		threshold: thresholdPct,
	}
}

func (d *Detector) Threshold() float64 {
	return d.threshold
}

type namedBaseline struct {
	name  string
	value *float64
}

// evaluate compares current against every named baseline. The observation is
// anomalous when at least one computable delta falls below -threshold.
func (d *Detector) evaluate(current float64, baselines []namedBaseline) ([]models.BaselineDelta, bool) {
	deltas := make([]models.BaselineDelta, 0, len(baselines))
	anomalous := false
	for _, b := range baselines {
		delta := Delta(current, b.value)
		if delta != nil && *delta < -d.threshold {
			anomalous = true
		}
		deltas = append(deltas, models.BaselineDelta{
			Name:         b.name,
			Value:        b.value,
			DeltaPercent: delta,
		})
	}
	return deltas, anomalous
}

// DetectHourlyCohorts builds the 24-slot hour-of-day grid for one metric from
// cohort rows (current day, prior day, prior week) and flags hours where the
// current value dropped more than the threshold against either baseline.
// Hours without a current-day row count as zero, so a populated baseline
// flags them on the grid; they still emit no anomaly event.
func (d *Detector) DetectHourlyCohorts(date string, metric string, rows []models.HourlyMetricRow) ([]models.HourlyBucket, []models.AnomalyEvent) {
	var day0, day1, day7 [24]float64
	var day0Present [24]bool

	for i := range rows {
		row := &rows[i]
		hour, err := strconv.Atoi(row.Hour)
		if err != nil || hour < 0 || hour > 23 {
			d.logger.Info("skipping-row-with-bad-hour", lager.Data{"hour": row.Hour, "dt": row.Date})
			continue
		}
		raw, ok := row.Metric(metric)
		if !ok {
			continue
		}
		value := models.ParseMetricValue(raw)
		switch row.Cohort {
		case models.CohortCurrentDay:
			day0[hour] = value
			day0Present[hour] = true
		case models.CohortPriorDay:
			day1[hour] = value
		case models.CohortPriorWeek:
			day7[hour] = value
		}
	}

	buckets := make([]models.HourlyBucket, 0, 24)
	var events []models.AnomalyEvent
	for hour := 0; hour < 24; hour++ {
		deltas, anomalous := d.evaluate(day0[hour], []namedBaseline{
			{name: models.BaselinePriorDay, value: &day1[hour]},
			{name: models.BaselinePriorWeek, value: &day7[hour]},
		})

		buckets = append(buckets, models.HourlyBucket{
			Hour:      hour,
			Day0:      day0[hour],
			Day1:      day1[hour],
			Day7:      day7[hour],
			DeltaDay1: deltas[0].DeltaPercent,
			DeltaDay7: deltas[1].DeltaPercent,
			IsAnomaly: anomalous,
		})

		if !anomalous || !day0Present[hour] {
			continue
		}
		timestamp, err := d.converter.ConstructCivil(date, hour)
		if err != nil {
			d.logger.Error("failed-to-construct-anomaly-timestamp", err, lager.Data{"dt": date, "hour": hour})
			continue
		}
		events = append(events, models.AnomalyEvent{
			Granularity:  models.GranularityHourly,
			Metric:       metric,
			Date:         date,
			Hour:         hour,
			CurrentValue: day0[hour],
			Baselines:    deltas,
			Timestamp:    timestamp,
		})
	}
	return buckets, events
}

// DetectHourlySingleDate compares each hour of a single date against the
// previous hour of the same date. The first observed hour has no baseline and
// is never anomalous.
func (d *Detector) DetectHourlySingleDate(date string, metric string, rows []models.HourlyMetricRow) []models.AnomalyEvent {
	type observation struct {
		hour  int
		value float64
	}
	observations := make([]observation, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		hour, err := strconv.Atoi(row.Hour)
		if err != nil || hour < 0 || hour > 23 {
			d.logger.Info("skipping-row-with-bad-hour", lager.Data{"hour": row.Hour, "dt": row.Date})
			continue
		}
		raw, ok := row.Metric(metric)
		if !ok {
			continue
		}
		observations = append(observations, observation{hour: hour, value: models.ParseMetricValue(raw)})
	}
	sort.Slice(observations, func(i, j int) bool { return observations[i].hour < observations[j].hour })

	var events []models.AnomalyEvent
	for i, obs := range observations {
		var baseline *float64
		if i > 0 {
			baseline = &observations[i-1].value
		}
		deltas, anomalous := d.evaluate(obs.value, []namedBaseline{
			{name: models.BaselinePriorHour, value: baseline},
		})
		if !anomalous {
			continue
		}
		timestamp, err := d.converter.ConstructCivil(date, obs.hour)
		if err != nil {
			d.logger.Error("failed-to-construct-anomaly-timestamp", err, lager.Data{"dt": date, "hour": obs.hour})
			continue
		}
		events = append(events, models.AnomalyEvent{
			Granularity:  models.GranularityHourly,
			Metric:       metric,
			Date:         date,
			Hour:         obs.hour,
			CurrentValue: obs.value,
			Baselines:    deltas,
			Timestamp:    timestamp,
		})
	}
	return events
}

// DetectDaily compares each day against the previous calendar row. Rows are
// re-sorted chronologically first so the comparison holds regardless of the
// store's return order. The first day has no baseline and is never anomalous.
func (d *Detector) DetectDaily(metric string, rows []models.DailyMetricRow) ([]models.DailyPoint, []models.AnomalyEvent) {
	sorted := make([]models.DailyMetricRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	points := make([]models.DailyPoint, 0, len(sorted))
	var events []models.AnomalyEvent
	var previous *float64
	for i := range sorted {
		row := &sorted[i]
		raw, ok := row.Metric(metric)
		if !ok {
			continue
		}
		value := models.ParseMetricValue(raw)

		deltas, anomalous := d.evaluate(value, []namedBaseline{
			{name: models.BaselinePreviousDay, value: previous},
		})
		points = append(points, models.DailyPoint{
			Date:         row.Date,
			Value:        value,
			Previous:     deltas[0].Value,
			DeltaPercent: deltas[0].DeltaPercent,
			IsAnomaly:    anomalous,
		})

		if anomalous {
			timestamp, err := d.converter.ConstructCivil(row.Date, 0)
			if err != nil {
				d.logger.Error("failed-to-construct-anomaly-timestamp", err, lager.Data{"dt": row.Date})
			} else {
				events = append(events, models.AnomalyEvent{
					Granularity:  models.GranularityDaily,
					Metric:       metric,
					Date:         row.Date,
					CurrentValue: value,
					Baselines:    deltas,
					Timestamp:    timestamp,
				})
			}
		}

		v := value
		previous = &v
	}
	return points, events
}
