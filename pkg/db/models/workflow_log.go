package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowLog is an append-only record of a department-stage change.
type WorkflowLog struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	OldWorkflow string     `gorm:"column:old_workflow;not null"`
	NewWorkflow string     `gorm:"column:new_workflow;not null"`
	ActorUserID *uuid.UUID `gorm:"column:actor_user_id;type:uuid"`
	Notes       *string    `gorm:"column:notes"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
