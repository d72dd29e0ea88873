package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/internal/orders"
	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
	"github.com/atlascrm/fulfillment-backend/pkg/notify"
	"github.com/atlascrm/fulfillment-backend/pkg/pagination"
)

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memoryRepo struct {
	orders       map[uuid.UUID]*models.Order
	statusLogs   []models.StatusLog
	workflowLogs []models.WorkflowLog
	callLogs     []models.CallLog
}

func newMemoryRepo(seed ...*models.Order) *memoryRepo {
	repo := &memoryRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range seed {
		repo.orders[order.ID] = order
	}
	return repo
}

func (m *memoryRepo) WithTx(tx *gorm.DB) orders.Repository { return m }

func (m *memoryRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	m.orders[order.ID] = order
	return order, nil
}

func (m *memoryRepo) CreateOrderItems(context.Context, []models.OrderItem) error { return nil }

func (m *memoryRepo) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := m.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memoryRepo) FindOrderByCode(context.Context, string) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	order, ok := m.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			order.Status = value.(enums.OrderStatus)
		case "workflow_status":
			order.WorkflowStatus = value.(enums.WorkflowStatus)
		case "escalated_to_manager":
			order.EscalatedToManager = value.(bool)
		case "postponed_until":
			if at, ok := value.(time.Time); ok {
				order.PostponedUntil = &at
			}
		}
	}
	return nil
}

func (m *memoryRepo) ListOrders(context.Context, pagination.Params, orders.OrderFilters) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (m *memoryRepo) CountOrdersCreatedBetween(context.Context, time.Time, time.Time) (int64, error) {
	return 0, nil
}

func (m *memoryRepo) FindStaleOrders(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var stale []models.Order
	for _, order := range m.orders {
		if order.Status != enums.OrderStatusPending {
			continue
		}
		if order.WorkflowStatus != enums.WorkflowStatusCallcenterReview &&
			order.WorkflowStatus != enums.WorkflowStatusCallcenterApproved {
			continue
		}
		if order.CreatedAt.Before(cutoff) {
			stale = append(stale, *order)
		}
	}
	return stale, nil
}

func (m *memoryRepo) AppendStatusLog(ctx context.Context, entry *models.StatusLog) error {
	m.statusLogs = append(m.statusLogs, *entry)
	return nil
}

func (m *memoryRepo) AppendWorkflowLog(ctx context.Context, entry *models.WorkflowLog) error {
	m.workflowLogs = append(m.workflowLogs, *entry)
	return nil
}

func (m *memoryRepo) AppendCallLog(ctx context.Context, entry *models.CallLog) error {
	m.callLogs = append(m.callLogs, *entry)
	return nil
}

func (m *memoryRepo) ListStatusLogs(context.Context, uuid.UUID) ([]models.StatusLog, error) {
	return m.statusLogs, nil
}

func (m *memoryRepo) ListCallLogs(context.Context, uuid.UUID) ([]models.CallLog, error) {
	return m.callLogs, nil
}

type stubDirectory struct {
	managers map[uuid.UUID]bool
	agents   []models.User
}

func (s *stubDirectory) ListEligibleAgents(context.Context) ([]models.User, error) {
	return s.agents, nil
}

func (s *stubDirectory) IsManager(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.managers[userID], nil
}

func (s *stubDirectory) FindUser(context.Context, uuid.UUID) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

type recordingNotifier struct {
	events []notify.Event
}

func (r *recordingNotifier) Notify(ctx context.Context, event notify.Event) {
	r.events = append(r.events, event)
}

func newTestService(t *testing.T, repo *memoryRepo, dir *stubDirectory, notifier notify.Notifier) Service {
	t.Helper()
	svc, err := NewService(repo, passTx{}, dir, notifier)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func pendingOrder() *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		Code:           "#260815001",
		Status:         enums.OrderStatusPending,
		WorkflowStatus: enums.WorkflowStatusCallcenterReview,
		CreatedAt:      time.Now().UTC(),
	}
}

func TestApplyStatusChangeConfirm(t *testing.T) {
	order := pendingOrder()
	repo := newMemoryRepo(order)
	agent := uuid.New()
	svc := newTestService(t, repo, &stubDirectory{}, nil)

	area := "Deira"
	result, err := svc.ApplyStatusChange(context.Background(), ApplyInput{
		OrderID:      order.ID,
		Code:         CodeConfirm,
		ActorUserID:  agent,
		DeliveryArea: &area,
	})
	if err != nil {
		t.Fatalf("apply CFM: %v", err)
	}
	if result.Order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected status confirmed, got %s", result.Order.Status)
	}
	if result.Order.WorkflowStatus != enums.WorkflowStatusCallcenterApproved {
		t.Fatalf("expected workflow callcenter_approved, got %s", result.Order.WorkflowStatus)
	}
	if result.Outcome != enums.CallOutcomeCompleted {
		t.Fatalf("expected call outcome completed, got %s", result.Outcome)
	}
	if len(repo.statusLogs) != 1 {
		t.Fatalf("expected 1 status log, got %d", len(repo.statusLogs))
	}
	if repo.statusLogs[0].OldStatus != string(enums.OrderStatusPending) ||
		repo.statusLogs[0].NewStatus != string(enums.OrderStatusConfirmed) {
		t.Fatalf("unexpected status log %+v", repo.statusLogs[0])
	}
	if len(repo.workflowLogs) != 1 {
		t.Fatalf("expected 1 workflow log, got %d", len(repo.workflowLogs))
	}
	if len(repo.callLogs) != 1 {
		t.Fatalf("expected 1 call log, got %d", len(repo.callLogs))
	}
	if repo.callLogs[0].ResolutionStatus != enums.ResolutionStatusResolved {
		t.Fatalf("expected resolved call log, got %s", repo.callLogs[0].ResolutionStatus)
	}
}

func TestApplyStatusChangeUnknownCode(t *testing.T) {
	order := pendingOrder()
	svc := newTestService(t, newMemoryRepo(order), &stubDirectory{}, nil)

	_, err := svc.ApplyStatusChange(context.Background(), ApplyInput{
		OrderID:     order.ID,
		Code:        StatusCode("ZZZ"),
		ActorUserID: uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApplyStatusChangeEscalateRequiresReason(t *testing.T) {
	order := pendingOrder()
	repo := newMemoryRepo(order)
	svc := newTestService(t, repo, &stubDirectory{}, nil)

	blank := "   "
	_, err := svc.ApplyStatusChange(context.Background(), ApplyInput{
		OrderID:     order.ID,
		Code:        CodeEscalate,
		ActorUserID: uuid.New(),
		Reason:      &blank,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("order mutated on rejected input: %s", order.Status)
	}
	if len(repo.statusLogs) != 0 || len(repo.callLogs) != 0 {
		t.Fatalf("logs written on rejected input")
	}
}

func TestApplyStatusChangeLockedForAgents(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusEscalateManager
	order.EscalatedToManager = true
	repo := newMemoryRepo(order)
	svc := newTestService(t, repo, &stubDirectory{}, nil)

	at := time.Now().UTC()
	_, err := svc.ApplyStatusChange(context.Background(), ApplyInput{
		OrderID:     order.ID,
		Code:        CodeNoAnswerFirst,
		ActorUserID: uuid.New(),
		AttemptAt:   &at,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for locked order, got %v", err)
	}
}

func TestApplyStatusChangeDoubleEscalation(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusEscalateManager
	order.EscalatedToManager = true
	manager := uuid.New()
	dir := &stubDirectory{managers: map[uuid.UUID]bool{manager: true}}
	svc := newTestService(t, newMemoryRepo(order), dir, nil)

	reason := "still unclear"
	_, err := svc.ApplyStatusChange(context.Background(), ApplyInput{
		OrderID:     order.ID,
		Code:        CodeEscalate,
		ActorUserID: manager,
		Reason:      &reason,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for double escalation, got %v", err)
	}
}

func TestEscalateNotifies(t *testing.T) {
	order := pendingOrder()
	notifier := &recordingNotifier{}
	svc := newTestService(t, newMemoryRepo(order), &stubDirectory{}, notifier)

	if err := svc.Escalate(context.Background(), order.ID, uuid.New(), "customer dispute"); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.events))
	}
	if notifier.events[0].Type != notify.EventOrderEscalated {
		t.Fatalf("unexpected event type %s", notifier.events[0].Type)
	}
}

func TestAdvanceWorkflowRejectsIllegalEdge(t *testing.T) {
	order := pendingOrder()
	svc := newTestService(t, newMemoryRepo(order), &stubDirectory{}, nil)

	_, err := svc.AdvanceWorkflow(context.Background(), AdvanceInput{
		OrderID:     order.ID,
		Target:      enums.WorkflowStatusPackagingCompleted,
		ActorUserID: uuid.New(),
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAdvanceWorkflowDeliveryCompletedCompletesOrder(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusConfirmed
	order.WorkflowStatus = enums.WorkflowStatusDeliveryInProgress
	repo := newMemoryRepo(order)
	svc := newTestService(t, repo, &stubDirectory{}, nil)

	advanced, err := svc.AdvanceWorkflow(context.Background(), AdvanceInput{
		OrderID:     order.ID,
		Target:      enums.WorkflowStatusDeliveryCompleted,
		ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("advance workflow: %v", err)
	}
	if advanced.Status != enums.OrderStatusCompleted {
		t.Fatalf("expected completed status, got %s", advanced.Status)
	}
	if len(repo.workflowLogs) != 1 || len(repo.statusLogs) != 1 {
		t.Fatalf("expected workflow and status logs, got %d/%d", len(repo.workflowLogs), len(repo.statusLogs))
	}
}

func TestExpireStaleOrdersIsIdempotent(t *testing.T) {
	order := pendingOrder()
	order.CreatedAt = time.Now().UTC().Add(-48 * time.Hour)
	repo := newMemoryRepo(order)
	svc := newTestService(t, repo, &stubDirectory{}, nil)

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	count, err := svc.ExpireStaleOrders(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("expire stale orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 expired order, got %d", count)
	}
	if order.Status != enums.OrderStatusPostponed || order.WorkflowStatus != enums.WorkflowStatusPostponed {
		t.Fatalf("order not postponed: %s/%s", order.Status, order.WorkflowStatus)
	}

	count, err = svc.ExpireStaleOrders(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("second expire run: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected second run to be a no-op, got %d", count)
	}
}

func TestAcceptEscalationClearsLock(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusEscalateManager
	order.EscalatedToManager = true
	manager := uuid.New()
	repo := newMemoryRepo(order)
	dir := &stubDirectory{managers: map[uuid.UUID]bool{manager: true}}
	svc := newTestService(t, repo, dir, nil)

	if err := svc.AcceptEscalation(context.Background(), order.ID, manager, "verified with customer"); err != nil {
		t.Fatalf("accept escalation: %v", err)
	}
	if order.EscalatedToManager {
		t.Fatalf("escalation lock not cleared")
	}
	if order.Status != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", order.Status)
	}
	if len(repo.statusLogs) != 1 || !repo.statusLogs[0].IsManagerChange {
		t.Fatalf("expected one manager status log, got %+v", repo.statusLogs)
	}
}

func TestDeescalateRequiresManager(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusEscalateManager
	order.EscalatedToManager = true
	svc := newTestService(t, newMemoryRepo(order), &stubDirectory{}, nil)

	err := svc.Deescalate(context.Background(), order.ID, uuid.New(), "wrong queue")
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestResolveEscalationRequiresEscalatedOrder(t *testing.T) {
	order := pendingOrder()
	manager := uuid.New()
	dir := &stubDirectory{managers: map[uuid.UUID]bool{manager: true}}
	svc := newTestService(t, newMemoryRepo(order), dir, nil)

	err := svc.ResolveEscalation(context.Background(), order.ID, manager, "done")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
