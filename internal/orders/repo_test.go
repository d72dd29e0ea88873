package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  customer_name TEXT NOT NULL,
  customer_phone TEXT NOT NULL,
  delivery_area TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  workflow_status TEXT NOT NULL DEFAULT 'callcenter_review',
  total_amount NUMERIC NOT NULL,
  escalated_to_manager INTEGER NOT NULL DEFAULT 0,
  escalated_at DATETIME,
  escalated_by_user_id TEXT,
  escalation_reason TEXT,
  postponed_until DATETIME,
  callback_at DATETIME,
  last_no_answer_at DATETIME,
  no_answer_attempt INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderItems := `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  sku TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL
);`
	statusLogs := `
CREATE TABLE IF NOT EXISTS status_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  old_status TEXT NOT NULL,
  new_status TEXT NOT NULL,
  actor_user_id TEXT,
  notes TEXT,
  is_manager_change INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	workflowLogs := `
CREATE TABLE IF NOT EXISTS workflow_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  old_workflow TEXT NOT NULL,
  new_workflow TEXT NOT NULL,
  actor_user_id TEXT,
  notes TEXT,
  created_at DATETIME
);`
	callLogs := `
CREATE TABLE IF NOT EXISTS call_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  agent_user_id TEXT,
  outcome TEXT NOT NULL,
  resolution_status TEXT NOT NULL DEFAULT 'pending',
  notes TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(orderItems).Error)
	require.NoError(t, db.Exec(statusLogs).Error)
	require.NoError(t, db.Exec(workflowLogs).Error)
	require.NoError(t, db.Exec(callLogs).Error)
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, code string, status enums.OrderStatus, workflow enums.WorkflowStatus, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:             uuid.New(),
		Code:           code,
		CustomerName:   "Fatima Khan",
		CustomerPhone:  "+971501234567",
		Status:         status,
		WorkflowStatus: workflow,
		TotalAmount:    decimal.NewFromInt(450),
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestRepositoryCreateAndFindByCode(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	area := "Deira"
	order, err := repo.CreateOrder(ctx, &models.Order{
		ID:             uuid.New(),
		Code:           "#260815001",
		CustomerName:   "Fatima Khan",
		CustomerPhone:  "+971501234567",
		DeliveryArea:   &area,
		Status:         enums.OrderStatusPending,
		WorkflowStatus: enums.WorkflowStatusCallcenterReview,
		TotalAmount:    decimal.NewFromInt(450),
	})
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrderItems(ctx, []models.OrderItem{
		{ID: uuid.New(), OrderID: order.ID, SKU: "SKU-1", Name: "Perfume Set", Quantity: 2, UnitPrice: decimal.NewFromInt(225)},
	}))

	found, err := repo.FindOrderByCode(ctx, "#260815001")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	require.Len(t, found.Items, 1)
	assert.Equal(t, "SKU-1", found.Items[0].SKU)
}

func TestRepositoryListOrders_pagination(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	first := seedOrder(t, db, "#260815001", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, now.Add(-2*time.Hour))
	second := seedOrder(t, db, "#260815002", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, now.Add(-time.Hour))
	third := seedOrder(t, db, "#260815003", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, now)

	list, err := repo.ListOrders(ctx, pagination.Params{Limit: 2}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, list.Orders, 2)
	assert.Equal(t, first.Code, list.Orders[0].Code)
	assert.Equal(t, second.Code, list.Orders[1].Code)
	require.NotEmpty(t, list.NextCursor)

	page, err := repo.ListOrders(ctx, pagination.Params{Limit: 2, Cursor: list.NextCursor}, OrderFilters{})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, third.Code, page.Orders[0].Code)
	assert.Empty(t, page.NextCursor)
}

func TestRepositoryListOrders_filters(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	seedOrder(t, db, "#260815001", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, now.Add(-48*time.Hour))
	confirmed := seedOrder(t, db, "#260815002", enums.OrderStatusConfirmed, enums.WorkflowStatusCallcenterApproved, now)

	status := enums.OrderStatusConfirmed
	from := now.Add(-time.Hour)
	list, err := repo.ListOrders(ctx, pagination.Params{Limit: 10}, OrderFilters{
		Status:   &status,
		DateFrom: &from,
	})
	require.NoError(t, err)
	require.Len(t, list.Orders, 1)
	assert.Equal(t, confirmed.Code, list.Orders[0].Code)
	assert.Empty(t, list.NextCursor)
}

func TestRepositoryFindStaleOrders(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	cutoff := now.Add(-24 * time.Hour)
	stale := seedOrder(t, db, "#260814001", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, now.Add(-30*time.Hour))
	seedOrder(t, db, "#260814002", enums.OrderStatusConfirmed, enums.WorkflowStatusCallcenterApproved, now.Add(-30*time.Hour))
	seedOrder(t, db, "#260815001", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, now.Add(-time.Hour))

	rows, err := repo.FindStaleOrders(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.Code, rows[0].Code)
}

func TestRepositoryCountOrdersCreatedBetween(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
	seedOrder(t, db, "#260815001", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, day.Add(2*time.Hour))
	seedOrder(t, db, "#260815002", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, day.Add(20*time.Hour))
	seedOrder(t, db, "#260814001", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, day.Add(-2*time.Hour))

	count, err := repo.CountOrdersCreatedBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepositoryAppendsAuditLogs(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	order := seedOrder(t, db, "#260815001", enums.OrderStatusPending, enums.WorkflowStatusCallcenterReview, now)

	require.NoError(t, repo.AppendStatusLog(ctx, &models.StatusLog{
		ID: uuid.New(), OrderID: order.ID, OldStatus: "pending", NewStatus: "confirmed", CreatedAt: now,
	}))
	require.NoError(t, repo.AppendStatusLog(ctx, &models.StatusLog{
		ID: uuid.New(), OrderID: order.ID, OldStatus: "confirmed", NewStatus: "completed", CreatedAt: now.Add(time.Minute),
	}))
	require.NoError(t, repo.AppendWorkflowLog(ctx, &models.WorkflowLog{
		ID: uuid.New(), OrderID: order.ID, OldWorkflow: "callcenter_review", NewWorkflow: "callcenter_approved", CreatedAt: now,
	}))
	require.NoError(t, repo.AppendCallLog(ctx, &models.CallLog{
		ID: uuid.New(), OrderID: order.ID, Outcome: enums.CallOutcomeCompleted, ResolutionStatus: enums.ResolutionStatusResolved, CreatedAt: now,
	}))

	statusLogs, err := repo.ListStatusLogs(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, statusLogs, 2)
	assert.Equal(t, "confirmed", statusLogs[0].NewStatus)
	assert.Equal(t, "completed", statusLogs[1].NewStatus)

	callLogs, err := repo.ListCallLogs(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, callLogs, 1)
	assert.Equal(t, enums.CallOutcomeCompleted, callLogs[0].Outcome)
}
