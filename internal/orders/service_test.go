package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
)

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRepo struct {
	orders     map[uuid.UUID]*models.Order
	byCode     map[string]*models.Order
	items      []models.OrderItem
	statusLogs []models.StatusLog
	callLogs   []models.CallLog
	dailyCount int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		orders: map[uuid.UUID]*models.Order{},
		byCode: map[string]*models.Order{},
	}
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if _, taken := r.byCode[order.Code]; taken {
		return nil, errors.New(`duplicate key value violates unique constraint "orders_code_key"`)
	}
	r.orders[order.ID] = order
	r.byCode[order.Code] = order
	return order, nil
}

func (r *stubRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	r.items = append(r.items, items...)
	return nil
}

func (r *stubRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *stubRepo) FindOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	order, ok := r.byCode[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (r *stubRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	return nil
}

func (r *stubRepo) ListOrders(ctx context.Context, params pagination.Params, filters OrderFilters) (*OrderList, error) {
	return &OrderList{}, nil
}

func (r *stubRepo) CountOrdersCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	return r.dailyCount, nil
}

func (r *stubRepo) FindStaleOrders(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

func (r *stubRepo) AppendStatusLog(ctx context.Context, entry *models.StatusLog) error {
	r.statusLogs = append(r.statusLogs, *entry)
	return nil
}

func (r *stubRepo) AppendWorkflowLog(ctx context.Context, entry *models.WorkflowLog) error {
	return nil
}

func (r *stubRepo) AppendCallLog(ctx context.Context, entry *models.CallLog) error {
	r.callLogs = append(r.callLogs, *entry)
	return nil
}

func (r *stubRepo) ListStatusLogs(ctx context.Context, orderID uuid.UUID) ([]models.StatusLog, error) {
	return r.statusLogs, nil
}

func (r *stubRepo) ListCallLogs(ctx context.Context, orderID uuid.UUID) ([]models.CallLog, error) {
	return r.callLogs, nil
}

func newTestService(t *testing.T, repo *stubRepo) *service {
	t.Helper()

	svc, err := NewService(repo, passTx{}, nil)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time {
		return time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	}
	return impl
}

func validInput() CreateOrderInput {
	area := "Deira"
	return CreateOrderInput{
		CustomerName:  "Fatima Khan",
		CustomerPhone: "+971501234567",
		DeliveryArea:  &area,
		TotalAmount:   decimal.NewFromInt(450),
		Items: []CreateOrderItemInput{
			{SKU: "SKU-1", Name: "Perfume Set", Quantity: 2, UnitPrice: decimal.NewFromInt(225)},
		},
	}
}

func TestCreateGeneratesDailyCode(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Code != "#260815001" {
		t.Fatalf("code = %s, want #260815001", order.Code)
	}
	if len(repo.items) != 1 {
		t.Fatalf("expected 1 order item, got %d", len(repo.items))
	}
	if repo.items[0].OrderID != order.ID {
		t.Fatalf("item bound to %s, want %s", repo.items[0].OrderID, order.ID)
	}
}

func TestCreateSequencesFromDailyCount(t *testing.T) {
	repo := newStubRepo()
	repo.dailyCount = 41
	svc := newTestService(t, repo)

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Code != "#260815042" {
		t.Fatalf("code = %s, want #260815042", order.Code)
	}
}

func TestCreateRetriesOnCodeCollision(t *testing.T) {
	repo := newStubRepo()
	repo.byCode["#260815001"] = &models.Order{Code: "#260815001"}
	repo.byCode["#260815002"] = &models.Order{Code: "#260815002"}
	svc := newTestService(t, repo)

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if order.Code != "#260815003" {
		t.Fatalf("code = %s, want #260815003", order.Code)
	}
}

func TestCreateGivesUpAfterMaxAttempts(t *testing.T) {
	repo := newStubRepo()
	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	for seq := int64(1); seq <= maxCodeAttempts; seq++ {
		code := formatOrderCode(day, seq)
		repo.byCode[code] = &models.Order{Code: code}
	}
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), validInput())
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCreateRejectsOrderWithoutItems(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	input := validInput()
	input.Items = nil
	_, err := svc.Create(context.Background(), input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.orders) != 0 {
		t.Fatalf("order was persisted despite invalid input")
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	_, err := svc.Get(context.Background(), uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestGetHistoryBundlesLogs(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(t, repo)

	order, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.statusLogs = append(repo.statusLogs, models.StatusLog{OrderID: order.ID, OldStatus: "pending", NewStatus: "confirmed"})
	repo.callLogs = append(repo.callLogs, models.CallLog{OrderID: order.ID})

	history, err := svc.GetHistory(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.StatusLogs) != 1 || len(history.CallLogs) != 1 {
		t.Fatalf("history logs = %d status, %d calls", len(history.StatusLogs), len(history.CallLogs))
	}
}
