package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/atlascrm/fulfillment-backend/pkg/logger"
)

const defaultStaleAfter = 24 * time.Hour

type staleOrderExpirer interface {
	ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int, error)
}

// StaleOrdersJobParams configure the stale order sweeper.
type StaleOrdersJobParams struct {
	Logger     *logger.Logger
	Workflow   staleOrderExpirer
	StaleAfter time.Duration
}

// NewStaleOrdersJob builds the cron job that postpones orders stuck in the
// call center stage past the configured inactivity window.
func NewStaleOrdersJob(params StaleOrdersJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Workflow == nil {
		return nil, fmt.Errorf("workflow service required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &staleOrdersJob{
		logg:       params.Logger,
		workflow:   params.Workflow,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type staleOrdersJob struct {
	logg       *logger.Logger
	workflow   staleOrderExpirer
	staleAfter time.Duration
	now        func() time.Time
}

func (j *staleOrdersJob) Name() string { return "stale-orders" }

func (j *staleOrdersJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleAfter)
	count, err := j.workflow.ExpireStaleOrders(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire stale orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "stale order sweep complete")
	return nil
}
