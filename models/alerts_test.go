package models_test

import (
	. "github.com/funnelmon/funnelmon/models"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AlertEvent", func() {
	var alert AlertEvent

	BeforeEach(func() {
		alert = AlertEvent{
			Source:    AlertSourceLogging,
			Priority:  AlertPriorityP1,
			AlertName: "HighErrorRate",
			Host:      "api-7",
			Value:     "120.5",
		}
	})

	Describe("Field", func() {
		It("resolves permitted fields", func() {
			v, ok := alert.Field(AlertFieldAlertName)
			Expect(ok).To(BeTrue())
			Expect(v).To(Equal("HighErrorRate"))
		})

		It("rejects field names outside the permitted set", func() {
			_, ok := alert.Field(AlertField("triggered_at"))
			Expect(ok).To(BeFalse())
		})
	})

	Describe("PayloadValue", func() {
		It("parses the payload value", func() {
			Expect(alert.PayloadValue()).To(Equal(120.5))
		})

		It("is 0 for an empty payload", func() {
			alert.Value = ""
			Expect(alert.PayloadValue()).To(Equal(0.0))
		})
	})

	Describe("HasLabels", func() {
		It("matches on source and priority", func() {
			Expect(alert.HasLabels(map[string]string{"source": AlertSourceLogging})).To(BeTrue())
			Expect(alert.HasLabels(map[string]string{"priority": AlertPriorityP2})).To(BeFalse())
		})

		It("rejects unsupported label keys", func() {
			Expect(alert.HasLabels(map[string]string{"team": "payments"})).To(BeFalse())
		})
	})
})

var _ = Describe("MappingRule", func() {
	Describe("ConfidenceValue", func() {
		It("parses a stored confidence", func() {
			r := MappingRule{Confidence: "0.9"}
			Expect(r.ConfidenceValue()).To(Equal(0.9))
		})

		It("defaults when confidence is empty", func() {
			r := MappingRule{}
			Expect(r.ConfidenceValue()).To(Equal(DefaultRuleConfidence))
		})

		It("defaults when confidence is out of range", func() {
			r := MappingRule{Confidence: "1.7"}
			Expect(r.ConfidenceValue()).To(Equal(DefaultRuleConfidence))
		})

		It("defaults when confidence is not numeric", func() {
			r := MappingRule{Confidence: "high"}
			Expect(r.ConfidenceValue()).To(Equal(DefaultRuleConfidence))
		})
	})
})
