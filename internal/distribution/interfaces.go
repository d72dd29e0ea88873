package distribution

import (
	"context"
	"time"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for assignments and the
// distribution engine's order/workload reads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) error
	FindActiveAssignment(ctx context.Context, orderID uuid.UUID) (*models.OrderAssignment, error)
	DeactivateAssignment(ctx context.Context, assignmentID uuid.UUID, unassignedAt time.Time) error
	CountActiveByAgent(ctx context.Context, agentUserID uuid.UUID) (int64, error)
	ActiveCountsByAgents(ctx context.Context, agentUserIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	FindActiveAssignmentsByAgent(ctx context.Context, agentUserID uuid.UUID) ([]models.OrderAssignment, error)
	FindUnassignedOrders(ctx context.Context) ([]models.Order, error)
	FindOrdersByIDs(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, error)
	FindPerformanceByAgents(ctx context.Context, agentUserIDs []uuid.UUID) ([]models.AgentPerformance, error)
	AppendStatusLog(ctx context.Context, entry *models.StatusLog) error
}

// Scorer supplies a performance score per agent. Higher is better. A missing
// agent scores zero, which degrades performance-weighted distribution to pure
// load balancing.
type Scorer interface {
	Scores(ctx context.Context, agentUserIDs []uuid.UUID) (map[uuid.UUID]float64, error)
}
