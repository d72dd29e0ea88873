package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/atlascrm/fulfillment-backend/internal/distribution"
	"github.com/atlascrm/fulfillment-backend/pkg/logger"
)

type batchDistributor interface {
	DistributeByPerformance(ctx context.Context, orderIDs []uuid.UUID, assignedBy uuid.UUID) (*distribution.Summary, error)
}

// AutoDistributionJobParams configure the unassigned order sweeper.
type AutoDistributionJobParams struct {
	Logger      *logger.Logger
	Distributor batchDistributor
}

// NewAutoDistributionJob builds the cron job that assigns every unassigned
// order using the performance-weighted strategy.
func NewAutoDistributionJob(params AutoDistributionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Distributor == nil {
		return nil, fmt.Errorf("distribution service required")
	}
	return &autoDistributionJob{
		logg:        params.Logger,
		distributor: params.Distributor,
	}, nil
}

type autoDistributionJob struct {
	logg        *logger.Logger
	distributor batchDistributor
}

func (j *autoDistributionJob) Name() string { return "auto-distribution" }

func (j *autoDistributionJob) Run(ctx context.Context) error {
	summary, err := j.distributor.DistributeByPerformance(ctx, nil, uuid.Nil)
	if err != nil {
		return fmt.Errorf("distribute unassigned orders: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"distributed": summary.TotalDistributed,
		"skipped":     len(summary.Skipped),
	})
	if summary.Reason != "" {
		logCtx = j.logg.WithField(logCtx, "reason", summary.Reason)
	}
	j.logg.Info(logCtx, "auto distribution sweep complete")
	return nil
}
