package correlation_test

import (
	"context"
	"errors"
	"time"

	"code.cloudfoundry.org/lager/v3/lagertest"

	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/correlation"
	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/models"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type retrieveCall struct {
	start time.Time
	end   time.Time
}

type fakeAlertStore struct {
	calls   []retrieveCall
	results [][]models.AlertEvent
	errs    []error
}

func (f *fakeAlertStore) RetrieveAlerts(ctx context.Context, start time.Time, end time.Time, orderType db.OrderType) ([]models.AlertEvent, error) {
	i := len(f.calls)
	f.calls = append(f.calls, retrieveCall{start: start, end: end})
	var result []models.AlertEvent
	var err error
	if i < len(f.results) {
		result = f.results[i]
	}
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return result, err
}

func (f *fakeAlertStore) Close() error {
	return nil
}

var _ = Describe("Matcher", func() {
	var (
		store   *fakeAlertStore
		matcher *correlation.Matcher
	)

	// anomaly at 12:00 civil time
	anomalyTime := time.Date(2025, 12, 1, 6, 30, 0, 0, time.UTC)

	alertAt := func(t time.Time) models.AlertEvent {
		return models.AlertEvent{TriggeredAt: t, Source: models.AlertSourceLogging}
	}

	BeforeEach(func() {
		store = &fakeAlertStore{}
		logger := lagertest.NewTestLogger("matcher-test")
		matcher = correlation.NewMatcher(logger, store, civil.DefaultConverter(), nil)
	})

	It("returns the primary window hits without falling back", func() {
		hit := alertAt(anomalyTime.Add(-10 * time.Minute))
		store.results = [][]models.AlertEvent{{hit}}

		alerts, err := matcher.FindNearbyAlerts(context.Background(), anomalyTime, 30*time.Minute, 30*time.Minute)
		Expect(err).NotTo(HaveOccurred())
		Expect(alerts).To(ConsistOf(hit))
		Expect(store.calls).To(HaveLen(1))
		Expect(store.calls[0].start).To(Equal(anomalyTime.Add(-30 * time.Minute)))
		Expect(store.calls[0].end).To(Equal(anomalyTime.Add(30 * time.Minute)))
	})

	It("falls back to the whole calendar day when a narrow window is empty", func() {
		mislabeled := alertAt(time.Date(2025, 12, 1, 12, 11, 0, 0, time.UTC))
		farAway := alertAt(time.Date(2025, 12, 1, 15, 30, 0, 0, time.UTC))
		store.results = [][]models.AlertEvent{{}, {mislabeled, farAway}}

		alerts, err := matcher.FindNearbyAlerts(context.Background(), anomalyTime, 30*time.Minute, 30*time.Minute)
		Expect(err).NotTo(HaveOccurred())
		Expect(alerts).To(ConsistOf(mislabeled))

		Expect(store.calls).To(HaveLen(2))
		Expect(store.calls[1].start).To(Equal(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
		Expect(store.calls[1].end).To(Equal(time.Date(2025, 12, 1, 23, 59, 59, 0, time.UTC)))
	})

	It("does not fall back for wide windows", func() {
		store.results = [][]models.AlertEvent{{}}

		alerts, err := matcher.FindNearbyAlerts(context.Background(), anomalyTime, time.Hour, time.Hour)
		Expect(err).NotTo(HaveOccurred())
		Expect(alerts).To(BeEmpty())
		Expect(store.calls).To(HaveLen(1))
	})

	It("returns empty when the fallback finds nothing nearby", func() {
		farAway := alertAt(time.Date(2025, 12, 1, 15, 30, 0, 0, time.UTC))
		store.results = [][]models.AlertEvent{{}, {farAway}}

		alerts, err := matcher.FindNearbyAlerts(context.Background(), anomalyTime, 30*time.Minute, 30*time.Minute)
		Expect(err).NotTo(HaveOccurred())
		Expect(alerts).To(BeEmpty())
	})

	It("propagates primary query failures", func() {
		store.errs = []error{errors.New("connection refused")}

		_, err := matcher.FindNearbyAlerts(context.Background(), anomalyTime, 30*time.Minute, 30*time.Minute)
		Expect(err).To(MatchError("connection refused"))
		Expect(store.calls).To(HaveLen(1))
	})

	It("propagates fallback query failures", func() {
		store.results = [][]models.AlertEvent{{}}
		store.errs = []error{nil, errors.New("connection refused")}

		_, err := matcher.FindNearbyAlerts(context.Background(), anomalyTime, 30*time.Minute, 30*time.Minute)
		Expect(err).To(MatchError("connection refused"))
		Expect(store.calls).To(HaveLen(2))
	})
})
