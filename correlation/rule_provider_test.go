package correlation_test

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/lager/v3/lagertest"

	"github.com/funnelmon/funnelmon/correlation"
	"github.com/funnelmon/funnelmon/models"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeRuleStore struct {
	callCount int
	rules     []models.MappingRule
	err       error
}

func (f *fakeRuleStore) RetrieveMappingRules(ctx context.Context, domain string, activeOnly bool) ([]models.MappingRule, error) {
	f.callCount++
	return f.rules, f.err
}

func (f *fakeRuleStore) Close() error {
	return nil
}

var _ = Describe("RuleProvider", func() {
	var (
		store    *fakeRuleStore
		provider *correlation.RuleProvider
	)

	goodRule := models.MappingRule{
		MatchField: "alert_name",
		MatchType:  models.MatchTypeContains,
		MatchValue: "timeout",
		Domain:     "lending",
		Metric:     "applications_submitted",
		Confidence: "0.9",
		IsActive:   true,
	}

	BeforeEach(func() {
		store = &fakeRuleStore{rules: []models.MappingRule{goodRule}}
		var err error
		provider, err = correlation.NewRuleProvider(lagertest.NewTestLogger("rule-provider-test"), store, time.Minute)
		Expect(err).NotTo(HaveOccurred())
	})

	It("serves rules from the store on first use", func() {
		rules, err := provider.ActiveRules(context.Background(), "lending")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(ConsistOf(goodRule))
		Expect(store.callCount).To(Equal(1))
	})

	It("caches rules per domain for the TTL", func() {
		_, err := provider.ActiveRules(context.Background(), "lending")
		Expect(err).NotTo(HaveOccurred())
		_, err = provider.ActiveRules(context.Background(), "lending")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.callCount).To(Equal(1))

		_, err = provider.ActiveRules(context.Background(), "payments")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.callCount).To(Equal(2))
	})

	It("refetches after invalidation", func() {
		_, err := provider.ActiveRules(context.Background(), "lending")
		Expect(err).NotTo(HaveOccurred())
		provider.Invalidate("lending")
		_, err = provider.ActiveRules(context.Background(), "lending")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.callCount).To(Equal(2))
	})

	It("drops rules that fail schema validation", func() {
		badField := goodRule
		badField.MatchField = "payload"
		badType := goodRule
		badType.MatchType = "startswith"
		emptyValue := goodRule
		emptyValue.MatchValue = ""
		store.rules = []models.MappingRule{goodRule, badField, badType, emptyValue}

		rules, err := provider.ActiveRules(context.Background(), "lending")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(ConsistOf(goodRule))
	})

	It("propagates store failures without caching", func() {
		store.err = errors.New("mapping table unavailable")
		_, err := provider.ActiveRules(context.Background(), "lending")
		Expect(err).To(MatchError("mapping table unavailable"))

		store.err = nil
		rules, err := provider.ActiveRules(context.Background(), "lending")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(ConsistOf(goodRule))
		Expect(store.callCount).To(Equal(2))
	})
})
