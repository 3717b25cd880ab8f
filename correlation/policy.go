package correlation

import (
	"time"

	"github.com/funnelmon/funnelmon/civil"
)

const DefaultToleranceMinutes = 30

// TimeProximityPolicy decides whether a stored alert timestamp is close
// enough to an anomaly instant to be worth correlating.
type TimeProximityPolicy interface {
	WithinTolerance(alertTriggeredAt time.Time, anomalyTime time.Time) bool
}

// DualInterpretationPolicy accepts an alert when it is near the anomaly
// under either reading of its stored timestamp: taken at face value as UTC,
// or taken as a civil wall clock mislabeled as UTC. Some ingestion sources
// are known to write the latter, so the day-wide fallback cannot trust the
// label alone.
type DualInterpretationPolicy struct {
	converter        *civil.Converter
	toleranceMinutes int
}

func NewDualInterpretationPolicy(converter *civil.Converter, toleranceMinutes int) *DualInterpretationPolicy {
	if toleranceMinutes <= 0 {
		toleranceMinutes = DefaultToleranceMinutes
	}
	if converter == nil {
		converter = civil.DefaultConverter()
	}
	return &DualInterpretationPolicy{converter: converter, toleranceMinutes: toleranceMinutes}
}

func (p *DualInterpretationPolicy) WithinTolerance(alertTriggeredAt time.Time, anomalyTime time.Time) bool {
	return p.matchesAsCivil(alertTriggeredAt, anomalyTime) || p.matchesInCivil(alertTriggeredAt, anomalyTime)
}

// matchesAsCivil reads the alert's stored UTC wall clock as if it were
// already civil time and compares it to the anomaly's civil wall clock.
func (p *DualInterpretationPolicy) matchesAsCivil(alertTriggeredAt time.Time, anomalyTime time.Time) bool {
	alertMinute := civil.MinuteOfDay(alertTriggeredAt.UTC())
	anomalyMinute := civil.MinuteOfDay(p.converter.ToCivil(anomalyTime))
	return p.withinMinuteDistance(alertMinute, anomalyMinute)
}

// matchesInCivil converts the alert honestly into civil time and compares
// the same wrapped minute-of-day distance.
func (p *DualInterpretationPolicy) matchesInCivil(alertTriggeredAt time.Time, anomalyTime time.Time) bool {
	alertMinute := civil.MinuteOfDay(p.converter.ToCivil(alertTriggeredAt))
	anomalyMinute := civil.MinuteOfDay(p.converter.ToCivil(anomalyTime))
	return p.withinMinuteDistance(alertMinute, anomalyMinute)
}

// withinMinuteDistance compares two minute-of-day values symmetrically,
// wrapping around midnight.
func (p *DualInterpretationPolicy) withinMinuteDistance(alertMinute, anomalyMinute int) bool {
	dist := alertMinute - anomalyMinute
	if dist < 0 {
		dist = -dist
	}
	return dist <= p.toleranceMinutes || 1440-dist <= p.toleranceMinutes
}

// SingleInterpretationPolicy trusts stored timestamps to really be UTC. It
// is the policy to switch to once the ingestion pipelines are fixed.
type SingleInterpretationPolicy struct {
	converter        *civil.Converter
	toleranceMinutes int
}

func NewSingleInterpretationPolicy(converter *civil.Converter, toleranceMinutes int) *SingleInterpretationPolicy {
	if toleranceMinutes <= 0 {
		toleranceMinutes = DefaultToleranceMinutes
	}
	if converter == nil {
		converter = civil.DefaultConverter()
	}
	return &SingleInterpretationPolicy{converter: converter, toleranceMinutes: toleranceMinutes}
}

func (p *SingleInterpretationPolicy) WithinTolerance(alertTriggeredAt time.Time, anomalyTime time.Time) bool {
	dist := alertTriggeredAt.Sub(anomalyTime)
	if dist < 0 {
		dist = -dist
	}
	return dist <= time.Duration(p.toleranceMinutes)*time.Minute
}
