package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentPerformance holds rolled-up call-center metrics per agent, refreshed
// out of band. The distribution scorer reads it; nothing in this module
// writes it except the aggregation job.
type AgentPerformance struct {
	ID                   uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AgentUserID          uuid.UUID `gorm:"column:agent_user_id;type:uuid;not null;uniqueIndex"`
	ConfirmationRate     float64   `gorm:"column:confirmation_rate;not null;default:0"`
	AvgHandleTimeSeconds float64   `gorm:"column:avg_handle_time_seconds;not null;default:0"`
	TotalCalls           int       `gorm:"column:total_calls;not null;default:0"`
	TotalConfirmed       int       `gorm:"column:total_confirmed;not null;default:0"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
