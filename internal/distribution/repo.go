package distribution

import (
	"context"
	"time"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// terminalOrderStatuses are excluded from workload counts and unassigned
// queries; a cancelled or completed order no longer needs an owner.
var terminalOrderStatuses = []enums.OrderStatus{
	enums.OrderStatusCancelled,
	enums.OrderStatusCompleted,
	enums.OrderStatusReturned,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a distribution repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindActiveAssignment(ctx context.Context, orderID uuid.UUID) (*models.OrderAssignment, error) {
	var assignment models.OrderAssignment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND active = ?", orderID, true).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) DeactivateAssignment(ctx context.Context, assignmentID uuid.UUID, unassignedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderAssignment{}).
		Where("id = ? AND active = ?", assignmentID, true).
		Updates(map[string]any{
			"active":        false,
			"unassigned_at": unassignedAt,
		}).Error
}

func (r *repository) CountActiveByAgent(ctx context.Context, agentUserID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderAssignment{}).
		Joins("JOIN orders ON orders.id = order_assignments.order_id").
		Where("order_assignments.agent_user_id = ? AND order_assignments.active = ?", agentUserID, true).
		Where("orders.status NOT IN ?", terminalOrderStatuses).
		Count(&count).Error
	return count, err
}

func (r *repository) ActiveCountsByAgents(ctx context.Context, agentUserIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(agentUserIDs))
	if len(agentUserIDs) == 0 {
		return counts, nil
	}

	type row struct {
		AgentUserID uuid.UUID
		Total       int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.OrderAssignment{}).
		Select("order_assignments.agent_user_id AS agent_user_id, COUNT(*) AS total").
		Joins("JOIN orders ON orders.id = order_assignments.order_id").
		Where("order_assignments.agent_user_id IN ? AND order_assignments.active = ?", agentUserIDs, true).
		Where("orders.status NOT IN ?", terminalOrderStatuses).
		Group("order_assignments.agent_user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.AgentUserID] = r.Total
	}
	return counts, nil
}

func (r *repository) FindActiveAssignmentsByAgent(ctx context.Context, agentUserID uuid.UUID) ([]models.OrderAssignment, error) {
	var rows []models.OrderAssignment
	err := r.db.WithContext(ctx).
		Joins("JOIN orders ON orders.id = order_assignments.order_id").
		Where("order_assignments.agent_user_id = ? AND order_assignments.active = ?", agentUserID, true).
		Where("orders.status NOT IN ?", terminalOrderStatuses).
		Where("orders.escalated_to_manager = ?", false).
		Order("order_assignments.assigned_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindUnassignedOrders(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", terminalOrderStatuses).
		Where("id NOT IN (?)", r.db.
			Model(&models.OrderAssignment{}).
			Select("order_id").
			Where("active = ?", true)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindOrdersByIDs(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("id IN ?", orderIDs).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindPerformanceByAgents(ctx context.Context, agentUserIDs []uuid.UUID) ([]models.AgentPerformance, error) {
	if len(agentUserIDs) == 0 {
		return nil, nil
	}
	var rows []models.AgentPerformance
	err := r.db.WithContext(ctx).
		Where("agent_user_id IN ?", agentUserIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) AppendStatusLog(ctx context.Context, entry *models.StatusLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
