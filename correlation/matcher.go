package correlation

import (
	"context"
	"time"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"
)

// FallbackWindowSpan is the widest primary window that still triggers the
// day-wide fallback. Wider windows were requested deliberately; coming back
// empty from those is an answer, not a timezone artifact.
const FallbackWindowSpan = 2 * time.Hour

// Matcher finds alert events near an anomaly instant. The primary query is a
// plain triggered_at range; when that comes back empty on a narrow window,
// it falls back to scanning the whole calendar day and filtering client-side
// with a TimeProximityPolicy, which tolerates mislabeled timestamps.
type Matcher struct {
	logger    lager.Logger
	store     db.AlertStore
	converter *civil.Converter
	policy    TimeProximityPolicy
}

func NewMatcher(logger lager.Logger, store db.AlertStore, converter *civil.Converter, policy TimeProximityPolicy) *Matcher {
	if converter == nil {
		converter = civil.DefaultConverter()
	}
	if policy == nil {
		policy = NewDualInterpretationPolicy(converter, DefaultToleranceMinutes)
	}
	return &Matcher{
		logger:    logger.Session("alert-matcher"),
		store:     store,
		converter: converter,
		policy:    policy,
	}
}

func (m *Matcher) FindNearbyAlerts(ctx context.Context, anomalyTime time.Time, before time.Duration, after time.Duration) ([]models.AlertEvent, error) {
	start, end := m.converter.Window(anomalyTime, before, after)

	alerts, err := m.store.RetrieveAlerts(ctx, start, end, db.DESC)
	if err != nil {
		m.logger.Error("failed-to-retrieve-alerts", err, lager.Data{"start": start, "end": end})
		return nil, err
	}
	if len(alerts) > 0 {
		return alerts, nil
	}
	if before+after >= FallbackWindowSpan {
		return []models.AlertEvent{}, nil
	}

	dayStart, dayEnd := civil.UTCDayBounds(start)
	m.logger.Debug("falling-back-to-day-query", lager.Data{"dayStart": dayStart, "dayEnd": dayEnd})

	dayAlerts, err := m.store.RetrieveAlerts(ctx, dayStart, dayEnd, db.DESC)
	if err != nil {
		m.logger.Error("failed-to-retrieve-day-alerts", err, lager.Data{"dayStart": dayStart, "dayEnd": dayEnd})
		return nil, err
	}

	filtered := []models.AlertEvent{}
	for _, alert := range dayAlerts {
		if m.policy.WithinTolerance(alert.TriggeredAt, anomalyTime) {
			filtered = append(filtered, alert)
		}
	}
	return filtered, nil
}
