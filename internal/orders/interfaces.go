package orders

import (
	"context"
	"time"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their audit logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByCode(ctx context.Context, code string) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
	CountOrdersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	FindStaleOrders(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	AppendStatusLog(ctx context.Context, entry *models.StatusLog) error
	AppendWorkflowLog(ctx context.Context, entry *models.WorkflowLog) error
	AppendCallLog(ctx context.Context, entry *models.CallLog) error
	ListStatusLogs(ctx context.Context, orderID uuid.UUID) ([]models.StatusLog, error)
	ListCallLogs(ctx context.Context, orderID uuid.UUID) ([]models.CallLog, error)
}
