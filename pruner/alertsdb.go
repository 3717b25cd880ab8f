package pruner

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"code.cloudfoundry.org/lager/v3"
)

type AlertPruner interface {
	PruneAlerts(ctx context.Context, before time.Time) error
}

// AlertsDbPruner deletes alert events older than the retention window.
type AlertsDbPruner struct {
	alertsDb      AlertPruner
	retentionDays int
	clock         clock.Clock
	logger        lager.Logger
}

func NewAlertsDbPruner(alertsDb AlertPruner, retentionDays int, clock clock.Clock, logger lager.Logger) *AlertsDbPruner {
	return &AlertsDbPruner{
		alertsDb:      alertsDb,
		retentionDays: retentionDays,
		clock:         clock,
		logger:        logger.Session("alerts_db_pruner"),
	}
}

func (adp AlertsDbPruner) Operate(ctx context.Context) {
	before := adp.clock.Now().AddDate(0, 0, -adp.retentionDays)

	logger := adp.logger.Session("pruning-alerts", lager.Data{"cutoff-time": before})
	logger.Info("starting")
	defer logger.Info("completed")

	err := adp.alertsDb.PruneAlerts(ctx, before)
	if err != nil {
		adp.logger.Error("failed-prune-alerts", err)
		return
	}
}
