package models

import "time"

type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
)

// Baseline labels used by the detector.
const (
	BaselinePriorDay    = "prior-day"
	BaselinePriorWeek   = "prior-week"
	BaselinePriorHour   = "prior-hour"
	BaselinePreviousDay = "previous-day"
)

// BaselineDelta is one named baseline comparison. Value is nil when the
// baseline is unavailable; DeltaPercent is nil when the baseline is
// unavailable or zero. A nil delta never counts toward an anomaly.
type BaselineDelta struct {
	Name         string   `json:"name"`
	Value        *float64 `json:"value"`
	DeltaPercent *float64 `json:"delta_percent"`
}

// AnomalyEvent is an observation flagged by the detector. Timestamp is a
// civil datetime in the fixed business zone.
type AnomalyEvent struct {
	Granularity  Granularity     `json:"granularity"`
	Metric       string          `json:"metric"`
	Date         string          `json:"dt"`
	Hour         int             `json:"hour,omitempty"`
	CurrentValue float64         `json:"current_value"`
	Baselines    []BaselineDelta `json:"baselines"`
	Timestamp    time.Time       `json:"timestamp"`
}

// HourlyBucket is one hour-of-day slot of the hourly comparison grid; all
// 24 slots are always present.
type HourlyBucket struct {
	Hour      int      `json:"hour"`
	Day0      float64  `json:"day0"`
	Day1      float64  `json:"day1"`
	Day7      float64  `json:"day7"`
	DeltaDay1 *float64 `json:"delta_day1"`
	DeltaDay7 *float64 `json:"delta_day7"`
	IsAnomaly bool     `json:"is_anomaly"`
}

// DailyPoint is one day of the daily trend with its previous-day comparison.
type DailyPoint struct {
	Date         string   `json:"dt"`
	Value        float64  `json:"value"`
	Previous     *float64 `json:"previous"`
	DeltaPercent *float64 `json:"delta_percent"`
	IsAnomaly    bool     `json:"is_anomaly"`
}
