package models

import (
	"strconv"
	"strings"
	"time"
)

// Alert sources as stored by the ingestion pipelines.
const (
	AlertSourceLogging      = "logging"
	AlertSourceCDN          = "cdn"
	AlertSourceErrorTracker = "error-tracker"
	AlertSourceChatOps      = "chat-ops"
)

const (
	AlertPriorityP1 = "p1"
	AlertPriorityP2 = "p2"
)

// AlertEvent is one operational alert from the alert events store. It is
// read-only to this service; timestamps are stored as UTC instants, though
// some ingestion sources are known to write civil time mislabeled as UTC
// (see correlation.DualInterpretationPolicy).
type AlertEvent struct {
	TriggeredAt time.Time `json:"triggered_at" db:"triggered_at"`
	Source      string    `json:"source" db:"source"`
	Priority    string    `json:"priority" db:"priority"`
	Severity    string    `json:"severity" db:"severity"`
	Team        string    `json:"team" db:"team"`
	Application string    `json:"application" db:"application"`
	Subsystem   string    `json:"subsystem" db:"subsystem"`
	AlertName   string    `json:"alert_name" db:"alert_name"`
	Message     string    `json:"message" db:"message"`
	Query       string    `json:"alert_query" db:"alert_query"`
	SampleLog   string    `json:"sample_log" db:"sample_log"`
	Host        string    `json:"host" db:"host"`
	Path        string    `json:"path" db:"path"`
	StatusCode  string    `json:"status_code" db:"status_code"`
	Threshold   string    `json:"threshold" db:"threshold"`
	Value       string    `json:"value" db:"value"`
}

// AlertField names an AlertEvent attribute a mapping rule may match on.
type AlertField string

const (
	AlertFieldSource      AlertField = "source"
	AlertFieldPriority    AlertField = "priority"
	AlertFieldSeverity    AlertField = "severity"
	AlertFieldTeam        AlertField = "team"
	AlertFieldApplication AlertField = "application"
	AlertFieldSubsystem   AlertField = "subsystem"
	AlertFieldAlertName   AlertField = "alert_name"
	AlertFieldMessage     AlertField = "message"
	AlertFieldQuery       AlertField = "alert_query"
	AlertFieldSampleLog   AlertField = "sample_log"
	AlertFieldHost        AlertField = "host"
	AlertFieldPath        AlertField = "path"
	AlertFieldStatusCode  AlertField = "status_code"
)

func MatchableAlertFields() []AlertField {
	return []AlertField{
		AlertFieldSource, AlertFieldPriority, AlertFieldSeverity,
		AlertFieldTeam, AlertFieldApplication, AlertFieldSubsystem,
		AlertFieldAlertName, AlertFieldMessage, AlertFieldQuery,
		AlertFieldSampleLog, AlertFieldHost, AlertFieldPath,
		AlertFieldStatusCode,
	}
}

// Field resolves a matchable field by name. The second return value is
// false for field names outside the permitted set.
func (a *AlertEvent) Field(name AlertField) (string, bool) {
	switch name {
	case AlertFieldSource:
		return a.Source, true
	case AlertFieldPriority:
		return a.Priority, true
	case AlertFieldSeverity:
		return a.Severity, true
	case AlertFieldTeam:
		return a.Team, true
	case AlertFieldApplication:
		return a.Application, true
	case AlertFieldSubsystem:
		return a.Subsystem, true
	case AlertFieldAlertName:
		return a.AlertName, true
	case AlertFieldMessage:
		return a.Message, true
	case AlertFieldQuery:
		return a.Query, true
	case AlertFieldSampleLog:
		return a.SampleLog, true
	case AlertFieldHost:
		return a.Host, true
	case AlertFieldPath:
		return a.Path, true
	case AlertFieldStatusCode:
		return a.StatusCode, true
	}
	return "", false
}

// PayloadValue parses the alert's own numeric payload value, 0 when absent.
func (a *AlertEvent) PayloadValue() float64 {
	return ParseMetricValue(&a.Value)
}

// GetTimestamp implements collection.TSD.
func (a *AlertEvent) GetTimestamp() int64 {
	return a.TriggeredAt.UnixNano()
}

// HasLabels implements collection.TSD; supported label keys are "source",
// "priority" and "severity".
func (a *AlertEvent) HasLabels(labels map[string]string) bool {
	for k, v := range labels {
		switch k {
		case "source":
			if a.Source != v {
				return false
			}
		case "priority":
			if a.Priority != v {
				return false
			}
		case "severity":
			if a.Severity != v {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Match types for alert metric mapping rules.
const (
	MatchTypeContains = "contains"
	MatchTypeEquals   = "equals"
	MatchTypeRegex    = "regex"
)

const DefaultRuleConfidence = 0.7

// MappingRule is a declarative pattern associating alert attributes with a
// business metric and domain. Rules are reference data owned by the mapping
// store; Confidence is stored as varchar upstream.
type MappingRule struct {
	MatchField string `json:"match_field" db:"match_field"`
	MatchType  string `json:"match_type" db:"match_type"`
	MatchValue string `json:"match_value" db:"match_value"`
	Domain     string `json:"domain" db:"domain"`
	Metric     string `json:"metric" db:"metric"`
	Confidence string `json:"confidence" db:"confidence"`
	Notes      string `json:"notes" db:"notes"`
	IsActive   bool   `json:"is_active" db:"is_active"`
}

// ConfidenceValue parses the stored confidence, falling back to
// DefaultRuleConfidence when it is absent or outside [0,1].
func (r *MappingRule) ConfidenceValue() float64 {
	trimmed := strings.TrimSpace(r.Confidence)
	if trimmed == "" {
		return DefaultRuleConfidence
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || v < 0 || v > 1 {
		return DefaultRuleConfidence
	}
	return v
}

// CorrelatedAlert is an AlertEvent annotated with the mapping rules it
// matched for one correlation request. It is ephemeral and recomputed per
// request, never persisted.
type CorrelatedAlert struct {
	AlertEvent
	MatchedRules     []MappingRule `json:"matched_rules,omitempty"`
	CorrelationScore *float64      `json:"correlation_score,omitempty"`
}
