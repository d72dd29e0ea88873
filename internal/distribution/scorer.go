package distribution

import (
	"context"

	"github.com/atlascrm/fulfillment-backend/pkg/config"
	"github.com/google/uuid"
)

// handleTimeNormSeconds scales average handle time into roughly the same
// 0..1 range as the confirmation rate before weighting.
const handleTimeNormSeconds = 600

type performanceScorer struct {
	repo Repository
	cfg  config.DistributionConfig
}

// NewPerformanceScorer scores agents from their rolled-up call metrics:
// higher confirmation rate raises the score, longer average handle time
// lowers it. Agents without a performance row score zero.
func NewPerformanceScorer(repo Repository, cfg config.DistributionConfig) Scorer {
	return &performanceScorer{repo: repo, cfg: cfg}
}

func (s *performanceScorer) Scores(ctx context.Context, agentUserIDs []uuid.UUID) (map[uuid.UUID]float64, error) {
	scores := make(map[uuid.UUID]float64, len(agentUserIDs))
	rows, err := s.repo.FindPerformanceByAgents(ctx, agentUserIDs)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		penalty := row.AvgHandleTimeSeconds / handleTimeNormSeconds
		scores[row.AgentUserID] = s.cfg.ConfirmRateWeight*row.ConfirmationRate - s.cfg.AvgHandleTimeWeight*penalty
	}
	return scores, nil
}

// zeroScorer treats every agent equally.
type zeroScorer struct{}

// NewZeroScorer returns a scorer that yields no score for any agent, which
// makes performance-weighted distribution behave as pure load balancing.
func NewZeroScorer() Scorer { return zeroScorer{} }

func (zeroScorer) Scores(context.Context, []uuid.UUID) (map[uuid.UUID]float64, error) {
	return map[uuid.UUID]float64{}, nil
}
