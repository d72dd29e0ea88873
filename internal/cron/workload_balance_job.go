package cron

import (
	"context"
	"fmt"

	"github.com/atlascrm/fulfillment-backend/internal/distribution"
	"github.com/atlascrm/fulfillment-backend/pkg/logger"
)

type workloadBalancer interface {
	BalanceWorkloads(ctx context.Context) (*distribution.BalanceSummary, error)
}

// WorkloadBalanceJobParams configure the workload balancing job.
type WorkloadBalanceJobParams struct {
	Logger   *logger.Logger
	Balancer workloadBalancer
}

// NewWorkloadBalanceJob builds the cron job that levels active assignment
// counts across agents.
func NewWorkloadBalanceJob(params WorkloadBalanceJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Balancer == nil {
		return nil, fmt.Errorf("distribution service required")
	}
	return &workloadBalanceJob{
		logg:     params.Logger,
		balancer: params.Balancer,
	}, nil
}

type workloadBalanceJob struct {
	logg     *logger.Logger
	balancer workloadBalancer
}

func (j *workloadBalanceJob) Name() string { return "workload-balance" }

func (j *workloadBalanceJob) Run(ctx context.Context) error {
	summary, err := j.balancer.BalanceWorkloads(ctx)
	if err != nil {
		return fmt.Errorf("balance workloads: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"moves": summary.Moves})
	if summary.Reason != "" {
		logCtx = j.logg.WithField(logCtx, "reason", summary.Reason)
	}
	j.logg.Info(logCtx, "workload balance sweep complete")
	return nil
}
