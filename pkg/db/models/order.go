package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

// Order represents one customer order moving through the fulfillment pipeline.
// Agent ownership is not stored here; the active OrderAssignment row is the
// single source of truth for "who owns this order".
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code           string               `gorm:"column:code;type:text;not null;uniqueIndex"`
	CustomerName   string               `gorm:"column:customer_name;not null"`
	CustomerPhone  string               `gorm:"column:customer_phone;not null"`
	DeliveryArea   *string              `gorm:"column:delivery_area"`
	Status         enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	WorkflowStatus enums.WorkflowStatus `gorm:"column:workflow_status;type:text;not null;default:'callcenter_review'"`
	TotalAmount    decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`

	EscalatedToManager bool       `gorm:"column:escalated_to_manager;not null;default:false"`
	EscalatedAt        *time.Time `gorm:"column:escalated_at"`
	EscalatedByUserID  *uuid.UUID `gorm:"column:escalated_by_user_id;type:uuid"`
	EscalationReason   *string    `gorm:"column:escalation_reason"`

	PostponedUntil  *time.Time `gorm:"column:postponed_until"`
	CallbackAt      *time.Time `gorm:"column:callback_at"`
	LastNoAnswerAt  *time.Time `gorm:"column:last_no_answer_at"`
	NoAnswerAttempt int        `gorm:"column:no_answer_attempt;not null;default:0"`

	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Assignments []OrderAssignment `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
