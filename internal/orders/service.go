package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db"
	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
)

const (
	orderCodeDateLayout = "060102"
	maxCodeAttempts     = 20
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order intake and read operations. Status mutations go
// through the workflow engine, not here.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetHistory(ctx context.Context, orderID uuid.UUID) (*OrderHistory, error)
	List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(repo Repository, tx txRunner, validate *validator.Validate) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if validate == nil {
		validate = validator.New()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		validate: validate,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order input").WithDetails(err.Error())
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.createWithUniqueCode(ctx, repo, input)
		if err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(input.Items))
		for _, item := range input.Items {
			items = append(items, models.OrderItem{
				OrderID:   order.ID,
				SKU:       item.SKU,
				Name:      item.Name,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			})
		}
		if err := repo.CreateOrderItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createWithUniqueCode persists the order, bumping the daily sequence until a
// free code is found. Same-day concurrent creations collide on the code's
// unique index rather than double-allocating a sequence number.
func (s *service) createWithUniqueCode(ctx context.Context, repo Repository, input CreateOrderInput) (*models.Order, error) {
	day := s.now().UTC()
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	count, err := repo.CountOrdersCreatedBetween(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count today's orders")
	}

	seq := count + 1
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		order := &models.Order{
			ID:            uuid.New(),
			Code:          formatOrderCode(day, seq),
			CustomerName:  input.CustomerName,
			CustomerPhone: input.CustomerPhone,
			DeliveryArea:  input.DeliveryArea,
			TotalAmount:   input.TotalAmount,
		}
		created, err := repo.CreateOrder(ctx, order)
		if err == nil {
			return created, nil
		}
		if !db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		seq++
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique order code")
}

func formatOrderCode(day time.Time, seq int64) string {
	return fmt.Sprintf("#%s%03d", day.UTC().Format(orderCodeDateLayout), seq)
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) GetHistory(ctx context.Context, orderID uuid.UUID) (*OrderHistory, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	statusLogs, err := s.repo.ListStatusLogs(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load status logs")
	}
	callLogs, err := s.repo.ListCallLogs(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load call logs")
	}
	return &OrderHistory{
		Order:      *order,
		StatusLogs: statusLogs,
		CallLogs:   callLogs,
	}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	list, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}
