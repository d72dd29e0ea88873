package orders

import (
	"time"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderFilters describe the inputs supported by the order listing.
type OrderFilters struct {
	Status         *enums.OrderStatus
	WorkflowStatus *enums.WorkflowStatus
	DateFrom       *time.Time
	DateTo         *time.Time
	Query          string
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// CreateOrderItemInput is one order line in a creation request.
type CreateOrderItemInput struct {
	SKU       string          `validate:"required"`
	Name      string          `validate:"required"`
	Quantity  int             `validate:"required,gt=0"`
	UnitPrice decimal.Decimal `validate:"required"`
}

// CreateOrderInput captures a seller submission.
type CreateOrderInput struct {
	CustomerName  string                 `validate:"required"`
	CustomerPhone string                 `validate:"required"`
	DeliveryArea  *string                `validate:"omitempty,min=1"`
	TotalAmount   decimal.Decimal        `validate:"required"`
	Items         []CreateOrderItemInput `validate:"required,min=1,dive"`
}

// OrderHistory bundles the order with its audit trails.
type OrderHistory struct {
	Order      models.Order       `json:"order"`
	StatusLogs []models.StatusLog `json:"status_logs"`
	CallLogs   []models.CallLog   `json:"call_logs"`
}
