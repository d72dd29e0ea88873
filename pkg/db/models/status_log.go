package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusLog is an append-only record of a status change on an order.
// Rows are never updated or deleted; current state lives on the order.
type StatusLog struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	OldStatus       string     `gorm:"column:old_status;not null"`
	NewStatus       string     `gorm:"column:new_status;not null"`
	ActorUserID     *uuid.UUID `gorm:"column:actor_user_id;type:uuid"`
	Notes           *string    `gorm:"column:notes"`
	IsManagerChange bool       `gorm:"column:is_manager_change;not null;default:false"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}
