package routes_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/funnelmon/funnelmon/routes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Routes", func() {

	var testTimestamp = "2025-12-01T04:30:00Z"

	Describe("ApiRoutes", func() {
		Context("GetHourlyAnomaliesRouteName", func() {
			It("should return the correct path", func() {
				path, err := routes.ApiRoutes().Get(routes.GetHourlyAnomaliesRouteName).URLPath()
				Expect(err).NotTo(HaveOccurred())
				Expect(path.Path).To(Equal("/v1/anomalies/hourly"))
			})
		})

		Context("GetDailyAnomaliesRouteName", func() {
			It("should return the correct path", func() {
				path, err := routes.ApiRoutes().Get(routes.GetDailyAnomaliesRouteName).URLPath()
				Expect(err).NotTo(HaveOccurred())
				Expect(path.Path).To(Equal("/v1/anomalies/daily"))
			})
		})

		Context("GetAnomalyAlertsRouteName", func() {
			Context("when provide correct route variable", func() {
				It("should return the correct path", func() {
					path, err := routes.ApiRoutes().Get(routes.GetAnomalyAlertsRouteName).URLPath("timestamp", testTimestamp)
					Expect(err).NotTo(HaveOccurred())
					Expect(path.Path).To(Equal("/v1/anomalies/" + testTimestamp + "/alerts"))
				})
			})

			Context("when provide wrong route variable", func() {
				It("should return error", func() {
					_, err := routes.ApiRoutes().Get(routes.GetAnomalyAlertsRouteName).URLPath("wrongVariable", testTimestamp)
					Expect(err).To(HaveOccurred())
				})
			})

			Context("when provide not enough route variable", func() {
				It("should return error", func() {
					_, err := routes.ApiRoutes().Get(routes.GetAnomalyAlertsRouteName).URLPath()
					Expect(err).To(HaveOccurred())
				})
			})
		})

		Context("GetForecastRouteName", func() {
			It("should return the correct path", func() {
				path, err := routes.ApiRoutes().Get(routes.GetForecastRouteName).URLPath()
				Expect(err).NotTo(HaveOccurred())
				Expect(path.Path).To(Equal("/v1/forecast"))
			})
		})

		Context("AnalyzeAnomalyRouteName", func() {
			It("should return the correct path", func() {
				path, err := routes.ApiRoutes().Get(routes.AnalyzeAnomalyRouteName).URLPath()
				Expect(err).NotTo(HaveOccurred())
				Expect(path.Path).To(Equal("/v1/anomalies/analyze"))
			})
		})

		Context("PostAlertsRouteName", func() {
			It("should return the correct path", func() {
				path, err := routes.ApiRoutes().Get(routes.PostAlertsRouteName).URLPath()
				Expect(err).NotTo(HaveOccurred())
				Expect(path.Path).To(Equal("/v1/alerts"))
			})
		})
	})

	Describe("VarsFunc", func() {
		It("passes the mux vars through to the wrapped handler", func() {
			var gotVars map[string]string
			handler := routes.VarsFunc(func(w http.ResponseWriter, r *http.Request, vars map[string]string) {
				gotVars = vars
				w.WriteHeader(http.StatusNoContent)
			})

			router := routes.ApiRoutes()
			router.Get(routes.GetAnomalyAlertsRouteName).Handler(handler)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/anomalies/"+testTimestamp+"/alerts", nil)
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusNoContent))
			Expect(gotVars).To(HaveKeyWithValue("timestamp", testTimestamp))
		})
	})
})
