package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

// CreateReturnItemInput is one returned order line inside a return request.
type CreateReturnItemInput struct {
	OrderItemID uuid.UUID            `json:"order_item_id" validate:"required"`
	Quantity    int                  `json:"quantity" validate:"required,gt=0"`
	Reason      *enums.ReturnReason  `json:"reason,omitempty"`
	Condition   *enums.ItemCondition `json:"condition,omitempty"`
}

// CreateReturnInput opens a return request against a delivered order.
type CreateReturnInput struct {
	OrderID     uuid.UUID               `json:"order_id" validate:"required"`
	Reason      enums.ReturnReason      `json:"reason" validate:"required"`
	Description *string                 `json:"description,omitempty"`
	Evidence    *string                 `json:"evidence,omitempty"`
	Items       []CreateReturnItemInput `json:"items" validate:"required,min=1,dive"`
}

// ApproveInput approves a return and sets the provisional refund amount.
type ApproveInput struct {
	ReturnID       uuid.UUID
	ApproverUserID uuid.UUID
	RefundAmount   decimal.Decimal
}

// RejectInput rejects a return with a mandatory reason.
type RejectInput struct {
	ReturnID       uuid.UUID
	ApproverUserID uuid.UUID
	Reason         string
}

// SchedulePickupInput books the courier pickup for an approved return.
type SchedulePickupInput struct {
	ReturnID    uuid.UUID
	ActorUserID uuid.UUID
	PickupAt    time.Time
}

// InspectInput records the warehouse inspection outcome. ApproveForRefund
// decides whether the return proceeds to the refund stage or stops at
// inspected with the refund cancelled.
type InspectInput struct {
	ReturnID              uuid.UUID
	InspectorUserID       uuid.UUID
	Condition             enums.ItemCondition
	Notes                 string
	CanRestock            bool
	RestockingFee         decimal.Decimal
	DamageDeduction       decimal.Decimal
	ShippingCostDeduction decimal.Decimal
	ApproveForRefund      bool
}

// ProcessRefundInput executes the refund for an inspection-approved return.
type ProcessRefundInput struct {
	ReturnID        uuid.UUID
	ProcessorUserID uuid.UUID
	Method          enums.RefundMethod
	Reference       string
	Notes           *string
}

// CancelInput aborts a non-terminal return with a mandatory reason.
type CancelInput struct {
	ReturnID    uuid.UUID
	ActorUserID uuid.UUID
	Reason      string
}

// ReturnFilters describe the inputs supported by the return listing.
type ReturnFilters struct {
	ReturnStatus *enums.ReturnStatus
	RefundStatus *enums.RefundStatus
	OrderID      *uuid.UUID
	DateFrom     *time.Time
	DateTo       *time.Time
}

// ReturnList wraps the paginated returns plus the next page cursor.
type ReturnList struct {
	Returns    []models.Return `json:"returns"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// ReturnHistory bundles a return with its append-only transition log.
type ReturnHistory struct {
	Return     models.Return            `json:"return"`
	StatusLogs []models.ReturnStatusLog `json:"status_logs"`
}
