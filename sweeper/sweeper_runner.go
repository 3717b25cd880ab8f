package sweeper

import (
	"context"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
)

// SweeperRunner drives the sweeper on a fixed interval under ifrit. The
// first sweep fires immediately on start.
type SweeperRunner struct {
	sweeper  *Sweeper
	interval time.Duration
	clock    clock.Clock
	logger   lager.Logger
}

func NewSweeperRunner(sweeper *Sweeper, interval time.Duration, clock clock.Clock, logger lager.Logger) *SweeperRunner {
	return &SweeperRunner{
		sweeper:  sweeper,
		interval: interval,
		clock:    clock,
		logger:   logger.Session("sweeper-runner"),
	}
}

func (sr *SweeperRunner) Run(signals <-chan os.Signal, ready chan<- struct{}) error {
	close(ready)
	ticker := sr.clock.NewTicker(sr.interval)

	sr.logger.Info("started", lager.Data{"sweep_interval": sr.interval})

	for {
		go sr.sweeper.Sweep(context.Background())
		select {
		case <-signals:
			ticker.Stop()
			sr.logger.Info("stopped")
			return nil
		case <-ticker.C():
		}
	}
}
