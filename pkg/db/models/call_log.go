package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

// CallLog records one call-center interaction with a customer.
type CallLog struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	AgentUserID      *uuid.UUID             `gorm:"column:agent_user_id;type:uuid"`
	Outcome          enums.CallOutcome      `gorm:"column:outcome;type:text;not null"`
	ResolutionStatus enums.ResolutionStatus `gorm:"column:resolution_status;type:text;not null;default:'pending'"`
	Notes            *string                `gorm:"column:notes"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}
