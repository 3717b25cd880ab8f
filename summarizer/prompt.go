package summarizer

import (
	"fmt"
	"strings"

	"github.com/funnelmon/funnelmon/models"
)

const systemPrompt = `You are an expert AI monitoring agent analyzing business metric anomalies. Your role is to:
1. Analyze metric drops/spikes in the context of correlated alerts
2. Identify root causes by examining alert patterns, sources, and metadata
3. Determine which systems, domains, and metrics are affected
4. Provide actionable insights and recommendations

Always be specific, data-driven, and focus on actionable insights.`

func buildUserPrompt(c models.AnomalyContext) string {
	var b strings.Builder

	anomalyType := "Daily"
	if c.AnomalyType == models.GranularityHourly {
		anomalyType = "Hourly"
	}

	b.WriteString("Analyze this anomaly and provide a comprehensive analysis:\n\n")
	b.WriteString("**Anomaly Details:**\n")
	fmt.Fprintf(&b, "- Type: %s metric anomaly\n", anomalyType)
	fmt.Fprintf(&b, "- Time: %s\n", c.AnomalyTime)
	fmt.Fprintf(&b, "- Metric: %s\n", c.Metric)
	fmt.Fprintf(&b, "- Current Value: %g\n", c.MetricValue)
	if c.PreviousValue != nil {
		fmt.Fprintf(&b, "- Previous Value: %g\n", *c.PreviousValue)
	}
	if c.DeltaPercent != nil {
		fmt.Fprintf(&b, "- Change: %.2f%%\n", *c.DeltaPercent)
	}

	fmt.Fprintf(&b, "\n**Correlated Alerts (%d alerts found):**\n", len(c.Alerts))
	for i, alert := range c.Alerts {
		fmt.Fprintf(&b, "\n%d. **%s**\n", i+1, alert.AlertName)
		fmt.Fprintf(&b, "   - Source: %s\n", alert.Source)
		fmt.Fprintf(&b, "   - Priority: %s\n", orNA(alert.Priority))
		fmt.Fprintf(&b, "   - Severity: %s\n", orNA(alert.Severity))
		fmt.Fprintf(&b, "   - Time: %s\n", alert.TriggeredAt)
		fmt.Fprintf(&b, "   - Message: %s\n", orNA(alert.Message))
		if alert.Host != "" {
			fmt.Fprintf(&b, "   - Host: %s\n", alert.Host)
		}
		if alert.Path != "" {
			fmt.Fprintf(&b, "   - Path: %s\n", alert.Path)
		}
		if alert.StatusCode != "" {
			fmt.Fprintf(&b, "   - Status: %s\n", alert.StatusCode)
		}
		if len(alert.Mappings) > 0 {
			b.WriteString("   - Metric Mappings:\n")
			for _, m := range alert.Mappings {
				fmt.Fprintf(&b, "     * Domain: %s, Metric: %s, Confidence: %s, Notes: %s\n",
					m.Domain, m.Metric, m.Confidence, orNA(m.Notes))
			}
		}
	}

	b.WriteString(`
**Please provide:**
1. A concise summary (2-3 sentences) of what happened
2. Root cause analysis based on the alerts and their patterns
3. List of affected systems/domains/metrics
4. Timeline of events
5. Actionable recommendations
6. Confidence level (0-1) in your analysis

Format your response as JSON:
{
  "summary": "...",
  "rootCause": "...",
  "affectedSystems": ["system1", "system2"],
  "timeline": "...",
  "recommendations": ["rec1", "rec2"],
  "confidence": 0.85
}`)

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
