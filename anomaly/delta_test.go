package anomaly_test

import (
	"github.com/funnelmon/funnelmon/anomaly"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Delta", func() {
	It("returns the percentage change", func() {
		baseline := 100.0
		Expect(*anomaly.Delta(50, &baseline)).To(Equal(-50.0))
		Expect(*anomaly.Delta(120, &baseline)).To(Equal(20.0))
		Expect(*anomaly.Delta(100, &baseline)).To(Equal(0.0))
	})

	It("is nil when the baseline is missing", func() {
		Expect(anomaly.Delta(50, nil)).To(BeNil())
	})

	It("is nil when the baseline is zero", func() {
		baseline := 0.0
		Expect(anomaly.Delta(50, &baseline)).To(BeNil())
		Expect(anomaly.Delta(0, &baseline)).To(BeNil())
	})
})
