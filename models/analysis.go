package models

// RuleSummary is the slice of a matched mapping rule that is forwarded to
// the narrative summarizer.
type RuleSummary struct {
	Domain     string `json:"domain"`
	Metric     string `json:"metric"`
	Confidence string `json:"confidence"`
	Notes      string `json:"notes"`
}

// AlertSummary is the alert projection sent to the narrative summarizer.
type AlertSummary struct {
	Source      string        `json:"source"`
	Priority    string        `json:"priority"`
	Severity    string        `json:"severity"`
	AlertName   string        `json:"alert_name"`
	Message     string        `json:"message"`
	TriggeredAt string        `json:"triggered_at"`
	Host        string        `json:"host,omitempty"`
	Path        string        `json:"path,omitempty"`
	StatusCode  string        `json:"status_code,omitempty"`
	Mappings    []RuleSummary `json:"mappings,omitempty"`
}

// AnomalyContext is the request contract of the narrative summarizer.
type AnomalyContext struct {
	AnomalyType   Granularity    `json:"anomaly_type"`
	AnomalyTime   string         `json:"anomaly_time"`
	Metric        string         `json:"metric"`
	MetricValue   float64        `json:"metric_value"`
	PreviousValue *float64       `json:"previous_value,omitempty"`
	DeltaPercent  *float64       `json:"delta_percent,omitempty"`
	Alerts        []AlertSummary `json:"alerts"`
}

// AnomalyAnalysis is the response contract of the narrative summarizer.
type AnomalyAnalysis struct {
	Summary         string   `json:"summary"`
	RootCause       string   `json:"rootCause"`
	AffectedSystems []string `json:"affectedSystems"`
	Timeline        string   `json:"timeline"`
	Recommendations []string `json:"recommendations"`
	Confidence      float64  `json:"confidence"`
}
