package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

// Return represents one return request against a delivered order. The
// physical pipeline (ReturnStatus) and the money pipeline (RefundStatus)
// advance independently.
type Return struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code        string             `gorm:"column:code;type:text;not null;uniqueIndex"`
	OrderID     uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	Reason      enums.ReturnReason `gorm:"column:reason;type:text;not null"`
	Description *string            `gorm:"column:description"`
	Evidence    *string            `gorm:"column:evidence"`

	ReturnStatus enums.ReturnStatus `gorm:"column:return_status;type:text;not null;default:'requested'"`
	RefundStatus enums.RefundStatus `gorm:"column:refund_status;type:text;not null;default:'pending'"`

	ApprovedByUserID *uuid.UUID `gorm:"column:approved_by_user_id;type:uuid"`
	ApprovedAt       *time.Time `gorm:"column:approved_at"`
	RejectedByUserID *uuid.UUID `gorm:"column:rejected_by_user_id;type:uuid"`
	RejectedAt       *time.Time `gorm:"column:rejected_at"`
	RejectionReason  *string    `gorm:"column:rejection_reason"`

	PickupScheduledAt *time.Time `gorm:"column:pickup_scheduled_at"`
	ReceivedByUserID  *uuid.UUID `gorm:"column:received_by_user_id;type:uuid"`
	ReceivedAt        *time.Time `gorm:"column:received_at"`

	InspectedByUserID *uuid.UUID           `gorm:"column:inspected_by_user_id;type:uuid"`
	InspectedAt       *time.Time           `gorm:"column:inspected_at"`
	ItemCondition     *enums.ItemCondition `gorm:"column:item_condition;type:text"`
	InspectionNotes   *string              `gorm:"column:inspection_notes"`
	CanRestock        bool                 `gorm:"column:can_restock;not null;default:false"`

	RefundAmount          decimal.Decimal `gorm:"column:refund_amount;type:numeric(12,2);not null;default:0"`
	RestockingFee         decimal.Decimal `gorm:"column:restocking_fee;type:numeric(12,2);not null;default:0"`
	DamageDeduction       decimal.Decimal `gorm:"column:damage_deduction;type:numeric(12,2);not null;default:0"`
	ShippingCostDeduction decimal.Decimal `gorm:"column:shipping_cost_deduction;type:numeric(12,2);not null;default:0"`

	RefundMethod             *enums.RefundMethod `gorm:"column:refund_method;type:text"`
	RefundReference          *string             `gorm:"column:refund_reference"`
	RefundProcessedByUserID  *uuid.UUID          `gorm:"column:refund_processed_by_user_id;type:uuid"`
	RefundProcessedAt        *time.Time          `gorm:"column:refund_processed_at"`
	RefundProcessingNotes    *string             `gorm:"column:refund_processing_notes"`
	RestockedAt              *time.Time          `gorm:"column:restocked_at"`
	RestockedByUserID        *uuid.UUID          `gorm:"column:restocked_by_user_id;type:uuid"`
	CancellationReason       *string             `gorm:"column:cancellation_reason"`
	CancelledByUserID        *uuid.UUID          `gorm:"column:cancelled_by_user_id;type:uuid"`
	CancelledAt              *time.Time          `gorm:"column:cancelled_at"`

	Items []ReturnItem `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalDeductions sums the restocking fee, damage deduction, and shipping
// cost deduction.
func (r Return) TotalDeductions() decimal.Decimal {
	return r.RestockingFee.Add(r.DamageDeduction).Add(r.ShippingCostDeduction)
}

// NetRefundAmount is the refund amount after deductions, floored at zero.
func (r Return) NetRefundAmount() decimal.Decimal {
	net := r.RefundAmount.Sub(r.TotalDeductions())
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}
