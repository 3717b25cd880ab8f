package correlation

import (
	"regexp"
	"sort"
	"strings"

	"code.cloudfoundry.org/lager/v3"

	"github.com/funnelmon/funnelmon/models"
)

// RuleEngine matches alert events against declarative mapping rules and
// ranks the annotated results for presentation.
type RuleEngine struct {
	logger lager.Logger
}

func NewRuleEngine(logger lager.Logger) *RuleEngine {
	return &RuleEngine{logger: logger.Session("rule-engine")}
}

// Correlate annotates every alert with the active rules it matches. When
// targetMetric is non-empty only rules mapped to that metric participate.
// Alerts that match nothing stay in the result unscored; ranking decides
// their place.
func (e *RuleEngine) Correlate(alerts []models.AlertEvent, rules []models.MappingRule, targetMetric string) []models.CorrelatedAlert {
	correlated := make([]models.CorrelatedAlert, 0, len(alerts))
	for _, alert := range alerts {
		var matched []models.MappingRule
		var score *float64
		for _, rule := range rules {
			if !rule.IsActive {
				continue
			}
			if targetMetric != "" && rule.Metric != targetMetric {
				continue
			}
			if !e.ruleMatches(&alert, &rule) {
				continue
			}
			matched = append(matched, rule)
			confidence := rule.ConfidenceValue()
			if score == nil || confidence > *score {
				score = &confidence
			}
		}
		correlated = append(correlated, models.CorrelatedAlert{
			AlertEvent:       alert,
			MatchedRules:     matched,
			CorrelationScore: score,
		})
	}
	return correlated
}

// ruleMatches compares case-insensitively. A malformed regex never matches;
// rules are operator-edited reference data and one bad pattern must not take
// the whole correlation down.
func (e *RuleEngine) ruleMatches(alert *models.AlertEvent, rule *models.MappingRule) bool {
	fieldValue, ok := alert.Field(models.AlertField(rule.MatchField))
	if !ok {
		return false
	}
	haystack := strings.ToLower(fieldValue)
	needle := strings.ToLower(rule.MatchValue)

	switch rule.MatchType {
	case models.MatchTypeContains:
		return strings.Contains(haystack, needle)
	case models.MatchTypeEquals:
		return haystack == needle
	case models.MatchTypeRegex:
		re, err := regexp.Compile(needle)
		if err != nil {
			e.logger.Debug("skipping-malformed-regex-rule", lager.Data{"match_value": rule.MatchValue, "error": err.Error()})
			return false
		}
		return re.MatchString(haystack)
	}
	return false
}

func priorityRank(priority string) int {
	switch strings.ToLower(priority) {
	case models.AlertPriorityP1:
		return 1
	case models.AlertPriorityP2:
		return 2
	}
	return 99
}

// Rank orders correlated alerts in place: scored alerts first by score
// descending, then priority (p1 ahead of p2 ahead of the rest), then the
// alert's own payload value descending, then recency.
func (e *RuleEngine) Rank(alerts []models.CorrelatedAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := &alerts[i], &alerts[j]

		if (a.CorrelationScore != nil) != (b.CorrelationScore != nil) {
			return a.CorrelationScore != nil
		}
		if a.CorrelationScore != nil && *a.CorrelationScore != *b.CorrelationScore {
			return *a.CorrelationScore > *b.CorrelationScore
		}
		if ra, rb := priorityRank(a.Priority), priorityRank(b.Priority); ra != rb {
			return ra < rb
		}
		if va, vb := a.PayloadValue(), b.PayloadValue(); va != vb {
			return va > vb
		}
		return a.TriggeredAt.After(b.TriggeredAt)
	})
}
