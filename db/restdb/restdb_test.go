package restdb_test

import (
	"context"
	"net/http"
	"time"

	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/onsi/gomega/ghttp"

	"github.com/funnelmon/funnelmon/db"
	"github.com/funnelmon/funnelmon/db/restdb"
	"github.com/funnelmon/funnelmon/models"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("REST stores", func() {
	var (
		server *ghttp.Server
		conf   restdb.RestStoreConfig
		logger *lagertest.TestLogger
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		conf = restdb.RestStoreConfig{BaseURL: server.URL(), APIKey: "test-key"}
		logger = lagertest.NewTestLogger("restdb-test")
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("AlertRESTDB", func() {
		var store *restdb.AlertRESTDB

		BeforeEach(func() {
			store = restdb.NewAlertRESTDB(conf, logger, nil)
		})

		It("queries the alert table with range predicates and auth headers", func() {
			start := time.Date(2025, 12, 1, 6, 0, 0, 0, time.UTC)
			end := time.Date(2025, 12, 1, 7, 0, 0, 0, time.UTC)

			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/alert_events"),
				ghttp.VerifyHeaderKV("apikey", "test-key"),
				ghttp.VerifyHeaderKV("Authorization", "Bearer test-key"),
				func(w http.ResponseWriter, r *http.Request) {
					q := r.URL.Query()
					Expect(q["triggered_at"]).To(ConsistOf("gte.2025-12-01T06:00:00Z", "lte.2025-12-01T07:00:00Z"))
					Expect(q.Get("order")).To(Equal("triggered_at.desc"))
				},
				ghttp.RespondWith(http.StatusOK, `[
					{"triggered_at": "2025-12-01T06:15:00+00:00", "source": "logging", "priority": "p1", "alert_name": "timeout spike", "value": "120"}
				]`, http.Header{"Content-Type": []string{"application/json"}}),
			))

			alerts, err := store.RetrieveAlerts(context.Background(), start, end, db.DESC)
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(1))
			Expect(alerts[0].TriggeredAt).To(Equal(time.Date(2025, 12, 1, 6, 15, 0, 0, time.UTC)))
			Expect(alerts[0].Source).To(Equal("logging"))
			Expect(alerts[0].Priority).To(Equal("p1"))
			Expect(alerts[0].AlertName).To(Equal("timeout spike"))
			Expect(alerts[0].Value).To(Equal("120"))
		})

		It("accepts zoneless timestamps at face value", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK,
				`[{"triggered_at": "2025-12-01 12:11:00", "source": "chat-ops"}]`,
				http.Header{"Content-Type": []string{"application/json"}}))

			alerts, err := store.RetrieveAlerts(context.Background(), time.Now().Add(-time.Hour), time.Now(), db.DESC)
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(1))
			Expect(alerts[0].TriggeredAt).To(Equal(time.Date(2025, 12, 1, 12, 11, 0, 0, time.UTC)))
		})

		It("drops rows with unusable timestamps", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK,
				`[{"triggered_at": "yesterdayish", "source": "cdn"}, {"triggered_at": "2025-12-01T06:15:00Z"}]`,
				http.Header{"Content-Type": []string{"application/json"}}))

			alerts, err := store.RetrieveAlerts(context.Background(), time.Now().Add(-time.Hour), time.Now(), db.DESC)
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(1))
		})

		It("returns a typed store error on non-2xx responses", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusServiceUnavailable, `{"message": "overloaded"}`))

			_, err := store.RetrieveAlerts(context.Background(), time.Now().Add(-time.Hour), time.Now(), db.DESC)
			var storeErr *db.StoreError
			Expect(err).To(BeAssignableToTypeOf(storeErr))
			storeErr = err.(*db.StoreError)
			Expect(storeErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(storeErr.Store).To(Equal("alert_events"))
		})
	})

	Describe("HourlyMetricRESTDB", func() {
		var store *restdb.HourlyMetricRESTDB

		BeforeEach(func() {
			store = restdb.NewHourlyMetricRESTDB(conf, logger, nil)
		})

		It("coerces numeric wire values to the varchar row shape", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/app_hourly_metrics"),
				func(w http.ResponseWriter, r *http.Request) {
					q := r.URL.Query()
					Expect(q.Get("dt")).To(Equal("eq.2025-12-01"))
					Expect(q.Get("order")).To(Equal("hour.asc"))
				},
				ghttp.RespondWith(http.StatusOK, `[
					{"dt": "2025-12-01", "hour": 10, "cohort": "DAY-0", "applications_created": 42.5, "applications_submitted": "17", "applications_pending": null}
				]`, http.Header{"Content-Type": []string{"application/json"}}),
			))

			rows, err := store.RetrieveHourlyMetrics(context.Background(), "2025-12-01", db.ASC)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Hour).To(Equal("10"))
			Expect(rows[0].Cohort).To(Equal(models.CohortCurrentDay))
			Expect(*rows[0].ApplicationsCreated).To(Equal("42.5"))
			Expect(*rows[0].ApplicationsSubmitted).To(Equal("17"))
			Expect(rows[0].ApplicationsPending).To(BeNil())
		})

		It("finds the latest current-day date with a limit-1 descending query", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/app_hourly_metrics", "cohort=eq.DAY-0&limit=1&order=dt.desc&select=dt"),
				ghttp.RespondWith(http.StatusOK, `[{"dt": "2025-12-01"}]`,
					http.Header{"Content-Type": []string{"application/json"}}),
			))

			latest, err := store.RetrieveLatestDate(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(latest).To(Equal("2025-12-01"))
		})

		It("reports a missing latest date", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `[]`,
				http.Header{"Content-Type": []string{"application/json"}}))

			_, err := store.RetrieveLatestDate(context.Background())
			Expect(err).To(MatchError(db.ErrDoesNotExist))
		})
	})

	Describe("DailyMetricRESTDB", func() {
		It("queries the date range ascending", func() {
			store := restdb.NewDailyMetricRESTDB(conf, logger, nil)
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/daily_amount_metrics"),
				func(w http.ResponseWriter, r *http.Request) {
					q := r.URL.Query()
					Expect(q["dt"]).To(ConsistOf("gte.2025-11-01", "lte.2025-12-01"))
					Expect(q.Get("order")).To(Equal("dt.asc"))
				},
				ghttp.RespondWith(http.StatusOK, `[
					{"dt": "2025-11-01", "submitted": 1200, "disbursed": "340"}
				]`, http.Header{"Content-Type": []string{"application/json"}}),
			))

			rows, err := store.RetrieveDailyMetrics(context.Background(), "2025-11-01", "2025-12-01", db.ASC)
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Date).To(Equal("2025-11-01"))
			Expect(*rows[0].Submitted).To(Equal("1200"))
			Expect(*rows[0].Disbursed).To(Equal("340"))
			Expect(rows[0].Eligible).To(BeNil())
		})
	})

	Describe("RuleMappingRESTDB", func() {
		It("filters by domain and active flag", func() {
			store := restdb.NewRuleMappingRESTDB(conf, logger, nil)
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("GET", "/alert_metric_map"),
				func(w http.ResponseWriter, r *http.Request) {
					q := r.URL.Query()
					Expect(q.Get("domain")).To(Equal("eq.lending"))
					Expect(q.Get("is_active")).To(Equal("eq.true"))
				},
				ghttp.RespondWith(http.StatusOK, `[
					{"match_field": "alert_name", "match_type": "contains", "match_value": "timeout", "domain": "lending", "metric": "applications_submitted", "confidence": 0.9, "is_active": true}
				]`, http.Header{"Content-Type": []string{"application/json"}}),
			))

			rules, err := store.RetrieveMappingRules(context.Background(), "lending", true)
			Expect(err).NotTo(HaveOccurred())
			Expect(rules).To(HaveLen(1))
			Expect(rules[0].MatchField).To(Equal("alert_name"))
			Expect(rules[0].Confidence).To(Equal("0.9"))
			Expect(rules[0].IsActive).To(BeTrue())
			Expect(rules[0].ConfidenceValue()).To(Equal(0.9))
		})
	})
})
