package models

import (
	"time"

	"github.com/google/uuid"
)

// ReturnStatusLog is an append-only record of a return pipeline transition.
type ReturnStatusLog struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReturnID    uuid.UUID  `gorm:"column:return_id;type:uuid;not null;index"`
	OldStatus   string     `gorm:"column:old_status;not null"`
	NewStatus   string     `gorm:"column:new_status;not null"`
	ActorUserID *uuid.UUID `gorm:"column:actor_user_id;type:uuid"`
	Notes       *string    `gorm:"column:notes"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
}
