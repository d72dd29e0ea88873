package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

// OrderAssignment captures agent ownership history for an order. At most one
// row per order may be active; a partial unique index enforces this.
type OrderAssignment struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	AgentUserID         uuid.UUID           `gorm:"column:agent_user_id;type:uuid;not null;index"`
	AssignedByUserID    *uuid.UUID          `gorm:"column:assigned_by_user_id;type:uuid"`
	PreviousAgentUserID *uuid.UUID          `gorm:"column:previous_agent_user_id;type:uuid"`
	Priority            enums.PriorityLevel `gorm:"column:priority;type:text;not null;default:'medium'"`
	Reason              *string             `gorm:"column:reason"`
	Active              bool                `gorm:"column:active;not null;default:true"`
	AssignedAt          time.Time           `gorm:"column:assigned_at;autoCreateTime"`
	UnassignedAt        *time.Time          `gorm:"column:unassigned_at"`
}
