package sweeper_test

import (
	"os"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"code.cloudfoundry.org/lager/v3/lagertest"
	"github.com/tedsuo/ifrit"

	"github.com/funnelmon/funnelmon/anomaly"
	"github.com/funnelmon/funnelmon/civil"
	"github.com/funnelmon/funnelmon/config"
	"github.com/funnelmon/funnelmon/correlation"
	"github.com/funnelmon/funnelmon/healthendpoint"
	"github.com/funnelmon/funnelmon/sweeper"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
)

var _ = Describe("SweeperRunner", func() {

	var (
		logger      *lagertest.TestLogger
		fclock      *fakeclock.FakeClock
		hourlyStore *fakeHourlyStore
		dailyStore  *fakeDailyStore
		runner      *sweeper.SweeperRunner
		process     ifrit.Process
	)

	BeforeEach(func() {
		logger = lagertest.NewTestLogger("sweeper-runner")
		fclock = fakeclock.NewFakeClock(time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC))
		converter := civil.DefaultConverter()

		conf, err := config.LoadConfig("")
		Expect(err).NotTo(HaveOccurred())
		conf.Sweeper.Interval = time.Minute
		conf.Sweeper.RetryInitialInterval = time.Millisecond

		hourlyStore = &fakeHourlyStore{date: "2025-12-01"}
		dailyStore = &fakeDailyStore{}
		detector := anomaly.NewDetector(logger, converter, conf.Detection.ThresholdPercent)
		swp := sweeper.NewSweeper(logger, conf, fclock, detector, converter,
			hourlyStore, dailyStore, &fakeAlertFinder{}, &fakeRuleSource{},
			correlation.NewRuleEngine(logger), healthendpoint.NewCounterCollector())
		runner = sweeper.NewSweeperRunner(swp, conf.Sweeper.Interval, fclock, logger)
	})

	JustBeforeEach(func() {
		process = ifrit.Invoke(runner)
	})

	AfterEach(func() {
		process.Signal(os.Interrupt)
		Eventually(process.Wait()).Should(Receive(BeNil()))
	})

	It("sweeps immediately on start", func() {
		Eventually(func() int {
			calls, _ := hourlyStore.counts()
			return calls
		}).Should(Equal(1))
	})

	It("sweeps again on every tick", func() {
		Eventually(func() int {
			calls, _ := hourlyStore.counts()
			return calls
		}).Should(Equal(1))

		fclock.WaitForWatcherAndIncrement(time.Minute)
		Eventually(func() int {
			calls, _ := hourlyStore.counts()
			return calls
		}).Should(Equal(2))
	})

	It("stops on a signal", func() {
		process.Signal(os.Interrupt)
		Eventually(process.Wait()).Should(Receive(BeNil()))
		Eventually(logger.Buffer()).Should(gbytes.Say("stopped"))
	})
})
