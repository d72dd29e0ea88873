package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
)

var terminalReturnStatuses = []enums.ReturnStatus{
	enums.ReturnStatusRejected,
	enums.ReturnStatusRestocked,
	enums.ReturnStatusCompleted,
	enums.ReturnStatusCancelled,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a returns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateReturn(ctx context.Context, ret *models.Return) (*models.Return, error) {
	if err := r.db.WithContext(ctx).Create(ret).Error; err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *repository) CreateReturnItems(ctx context.Context, items []models.ReturnItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindReturn(ctx context.Context, returnID uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", returnID).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindReturnByCode(ctx context.Context, code string) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("code = ?", code).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) FindActiveReturnByOrder(ctx context.Context, orderID uuid.UUID) (*models.Return, error) {
	var ret models.Return
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Where("return_status NOT IN ?", terminalReturnStatuses).
		First(&ret).Error
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *repository) UpdateReturn(ctx context.Context, returnID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("id = ?", returnID).
		Updates(updates).Error
}

func (r *repository) ListReturns(ctx context.Context, params pagination.Params, filters ReturnFilters) (*ReturnList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx).Model(&models.Return{})
	if filters.ReturnStatus != nil {
		query = query.Where("return_status = ?", *filters.ReturnStatus)
	}
	if filters.RefundStatus != nil {
		query = query.Where("refund_status = ?", *filters.RefundStatus)
	}
	if filters.OrderID != nil {
		query = query.Where("order_id = ?", *filters.OrderID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}
	if cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Return
	if err := query.Order("created_at ASC, id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	list := &ReturnList{}
	pageSize := pagination.NormalizeLimit(params.Limit)
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	list.Returns = rows
	return list, nil
}

func (r *repository) CountReturnsCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Return{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&count).Error
	return count, err
}

func (r *repository) FindOrderWithItems(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) AppendStatusLog(ctx context.Context, entry *models.ReturnStatusLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListStatusLogs(ctx context.Context, returnID uuid.UUID) ([]models.ReturnStatusLog, error) {
	var logs []models.ReturnStatusLog
	err := r.db.WithContext(ctx).
		Where("return_id = ?", returnID).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
