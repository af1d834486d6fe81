package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/allotments-backend/pkg/logger"
)

const alertsRefreshJobName = "alerts-refresh"

type alertRefresher interface {
	Refresh(ctx context.Context) (map[string]int, error)
}

// NewAlertsRefreshJob reloads the cached alert candidates and republishes the
// due_alerts gauge, so dashboards move even when nobody lists alerts.
func NewAlertsRefreshJob(logg *logger.Logger, alerts alertRefresher) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if alerts == nil {
		return nil, fmt.Errorf("alerts service required")
	}
	return &alertsRefreshJob{logg: logg, alerts: alerts}, nil
}

type alertsRefreshJob struct {
	logg   *logger.Logger
	alerts alertRefresher
}

func (j *alertsRefreshJob) Name() string { return alertsRefreshJobName }

func (j *alertsRefreshJob) Run(ctx context.Context) error {
	counts, err := j.alerts.Refresh(ctx)
	if err != nil {
		return err
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"danger":  counts["danger"],
		"warning": counts["warning"],
	}), "due alerts refreshed")
	return nil
}
