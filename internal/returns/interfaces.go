package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
)

// Repository defines persistence operations for returns and their audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateReturn(ctx context.Context, ret *models.Return) (*models.Return, error)
	CreateReturnItems(ctx context.Context, items []models.ReturnItem) error
	FindReturn(ctx context.Context, returnID uuid.UUID) (*models.Return, error)
	FindReturnByCode(ctx context.Context, code string) (*models.Return, error)
	FindActiveReturnByOrder(ctx context.Context, orderID uuid.UUID) (*models.Return, error)
	UpdateReturn(ctx context.Context, returnID uuid.UUID, updates map[string]any) error
	ListReturns(ctx context.Context, params pagination.Params, filters ReturnFilters) (*ReturnList, error)
	CountReturnsCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	FindOrderWithItems(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AppendStatusLog(ctx context.Context, entry *models.ReturnStatusLog) error
	ListStatusLogs(ctx context.Context, returnID uuid.UUID) ([]models.ReturnStatusLog, error)
}
