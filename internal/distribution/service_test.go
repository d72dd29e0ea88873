package distribution

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
)

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memRepo struct {
	assignments []*models.OrderAssignment
	orders      map[uuid.UUID]*models.Order
	perf        []models.AgentPerformance
	statusLogs  []models.StatusLog
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (m *memRepo) addOrder(createdAt time.Time) *models.Order {
	order := &models.Order{
		ID:             uuid.New(),
		Status:         enums.OrderStatusPending,
		WorkflowStatus: enums.WorkflowStatusCallcenterReview,
		CreatedAt:      createdAt,
	}
	m.orders[order.ID] = order
	return order
}

func (m *memRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memRepo) CreateAssignment(ctx context.Context, assignment *models.OrderAssignment) error {
	for _, existing := range m.assignments {
		if existing.OrderID == assignment.OrderID && existing.Active {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if assignment.ID == uuid.Nil {
		assignment.ID = uuid.New()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	copied := *assignment
	m.assignments = append(m.assignments, &copied)
	return nil
}

func (m *memRepo) FindActiveAssignment(ctx context.Context, orderID uuid.UUID) (*models.OrderAssignment, error) {
	for _, assignment := range m.assignments {
		if assignment.OrderID == orderID && assignment.Active {
			copied := *assignment
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) DeactivateAssignment(ctx context.Context, assignmentID uuid.UUID, unassignedAt time.Time) error {
	for _, assignment := range m.assignments {
		if assignment.ID == assignmentID && assignment.Active {
			assignment.Active = false
			at := unassignedAt
			assignment.UnassignedAt = &at
		}
	}
	return nil
}

func (m *memRepo) activeNonTerminal(agentUserID uuid.UUID) []*models.OrderAssignment {
	var rows []*models.OrderAssignment
	for _, assignment := range m.assignments {
		if !assignment.Active || assignment.AgentUserID != agentUserID {
			continue
		}
		order := m.orders[assignment.OrderID]
		if order == nil || isTerminal(order.Status) {
			continue
		}
		rows = append(rows, assignment)
	}
	return rows
}

func (m *memRepo) CountActiveByAgent(ctx context.Context, agentUserID uuid.UUID) (int64, error) {
	return int64(len(m.activeNonTerminal(agentUserID))), nil
}

func (m *memRepo) ActiveCountsByAgents(ctx context.Context, agentUserIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(agentUserIDs))
	for _, id := range agentUserIDs {
		if n := len(m.activeNonTerminal(id)); n > 0 {
			counts[id] = int64(n)
		}
	}
	return counts, nil
}

func (m *memRepo) FindActiveAssignmentsByAgent(ctx context.Context, agentUserID uuid.UUID) ([]models.OrderAssignment, error) {
	var rows []models.OrderAssignment
	for _, assignment := range m.activeNonTerminal(agentUserID) {
		order := m.orders[assignment.OrderID]
		if order.EscalatedToManager {
			continue
		}
		rows = append(rows, *assignment)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].AssignedAt.After(rows[j].AssignedAt)
	})
	return rows, nil
}

func (m *memRepo) FindUnassignedOrders(ctx context.Context) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range m.orders {
		if isTerminal(order.Status) {
			continue
		}
		if _, err := m.FindActiveAssignment(ctx, order.ID); err == nil {
			continue
		}
		rows = append(rows, *order)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

func (m *memRepo) FindOrdersByIDs(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	for _, id := range orderIDs {
		if order, ok := m.orders[id]; ok {
			rows = append(rows, *order)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

func (m *memRepo) FindPerformanceByAgents(ctx context.Context, agentUserIDs []uuid.UUID) ([]models.AgentPerformance, error) {
	return m.perf, nil
}

func (m *memRepo) AppendStatusLog(ctx context.Context, entry *models.StatusLog) error {
	m.statusLogs = append(m.statusLogs, *entry)
	return nil
}

type memDirectory struct {
	agents   []models.User
	managers map[uuid.UUID]bool
	users    map[uuid.UUID]*models.User
}

func (d *memDirectory) ListEligibleAgents(context.Context) ([]models.User, error) {
	return d.agents, nil
}

func (d *memDirectory) IsManager(ctx context.Context, userID uuid.UUID) (bool, error) {
	return d.managers[userID], nil
}

func (d *memDirectory) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, ok := d.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func newAgents(n int) []models.User {
	agents := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		agents = append(agents, models.User{
			ID:       uuid.New(),
			Role:     enums.UserRoleAgent,
			IsActive: true,
		})
	}
	return agents
}

type fixedScorer map[uuid.UUID]float64

func (f fixedScorer) Scores(context.Context, []uuid.UUID) (map[uuid.UUID]float64, error) {
	return f, nil
}

func newTestService(t *testing.T, repo *memRepo, dir *memDirectory, scorer Scorer) Service {
	t.Helper()
	svc, err := NewService(repo, passTx{}, dir, scorer, nil, nil)
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return svc
}

func TestDistributeEquallyRoundRobin(t *testing.T) {
	repo := newMemRepo()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 10; i++ {
		repo.addOrder(base.Add(time.Duration(i) * time.Minute))
	}
	agents := newAgents(3)
	svc := newTestService(t, repo, &memDirectory{agents: agents}, nil)

	summary, err := svc.DistributeEqually(context.Background(), nil, uuid.Nil)
	if err != nil {
		t.Fatalf("distribute equally: %v", err)
	}
	if summary.TotalDistributed != 10 {
		t.Fatalf("expected 10 distributed, got %d", summary.TotalDistributed)
	}
	if len(summary.Skipped) != 0 {
		t.Fatalf("unexpected skips: %+v", summary.Skipped)
	}
	want := []int{4, 3, 3}
	for i, agent := range agents {
		if summary.PerAgent[agent.ID] != want[i] {
			t.Fatalf("agent %d got %d orders, want %d", i, summary.PerAgent[agent.ID], want[i])
		}
	}
}

func TestDistributeEquallyNoAgents(t *testing.T) {
	repo := newMemRepo()
	repo.addOrder(time.Now().UTC())
	svc := newTestService(t, repo, &memDirectory{}, nil)

	summary, err := svc.DistributeEqually(context.Background(), nil, uuid.Nil)
	if err != nil {
		t.Fatalf("distribute equally: %v", err)
	}
	if summary.TotalDistributed != 0 || summary.Reason == "" {
		t.Fatalf("expected a reasoned no-op, got %+v", summary)
	}
}

func TestDistributeEquallySkipsAssignedAndMissing(t *testing.T) {
	repo := newMemRepo()
	assigned := repo.addOrder(time.Now().UTC().Add(-2 * time.Minute))
	fresh := repo.addOrder(time.Now().UTC().Add(-time.Minute))
	agents := newAgents(2)
	if err := repo.CreateAssignment(context.Background(), &models.OrderAssignment{
		OrderID:     assigned.ID,
		AgentUserID: agents[0].ID,
		Active:      true,
	}); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	svc := newTestService(t, repo, &memDirectory{agents: agents}, nil)

	missing := uuid.New()
	summary, err := svc.DistributeEqually(context.Background(), []uuid.UUID{assigned.ID, fresh.ID, missing}, uuid.Nil)
	if err != nil {
		t.Fatalf("distribute equally: %v", err)
	}
	if summary.TotalDistributed != 1 {
		t.Fatalf("expected 1 distributed, got %d", summary.TotalDistributed)
	}
	if len(summary.Skipped) != 2 {
		t.Fatalf("expected 2 skips, got %+v", summary.Skipped)
	}
}

func TestDistributeByPerformanceGreedyOrder(t *testing.T) {
	repo := newMemRepo()
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 4; i++ {
		repo.addOrder(base.Add(time.Duration(i) * time.Minute))
	}
	agents := newAgents(2)
	strong, weak := agents[0].ID, agents[1].ID
	scorer := fixedScorer{strong: 0.9, weak: 0.1}
	svc := newTestService(t, repo, &memDirectory{agents: agents}, scorer)

	summary, err := svc.DistributeByPerformance(context.Background(), nil, uuid.Nil)
	if err != nil {
		t.Fatalf("distribute by performance: %v", err)
	}
	if summary.TotalDistributed != 4 {
		t.Fatalf("expected 4 distributed, got %d", summary.TotalDistributed)
	}
	// The stronger agent wins ties, but the running workload keeps the
	// final split even.
	if summary.PerAgent[strong] != 2 || summary.PerAgent[weak] != 2 {
		t.Fatalf("expected 2/2 split, got %d/%d", summary.PerAgent[strong], summary.PerAgent[weak])
	}
}

func TestAutoAssignSingleOrderIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	order := repo.addOrder(time.Now().UTC())
	agents := newAgents(1)
	svc := newTestService(t, repo, &memDirectory{agents: agents}, nil)

	first, err := svc.AutoAssignSingleOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("first auto assign: %v", err)
	}
	second, err := svc.AutoAssignSingleOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("second auto assign: %v", err)
	}
	if first != second {
		t.Fatalf("idempotence broken: %s then %s", first, second)
	}
	if len(repo.assignments) != 1 {
		t.Fatalf("expected a single assignment, got %d", len(repo.assignments))
	}
}

func TestReassignRequiresReason(t *testing.T) {
	svc := newTestService(t, newMemRepo(), &memDirectory{}, nil)
	err := svc.Reassign(context.Background(), ReassignInput{
		OrderID:       uuid.New(),
		NewAgentID:    uuid.New(),
		ManagerUserID: uuid.New(),
		Reason:        "  ",
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReassignMovesOrderAndKeepsAudit(t *testing.T) {
	repo := newMemRepo()
	order := repo.addOrder(time.Now().UTC())
	agents := newAgents(2)
	manager := uuid.New()
	dir := &memDirectory{
		agents:   agents,
		managers: map[uuid.UUID]bool{manager: true},
		users: map[uuid.UUID]*models.User{
			agents[1].ID: {ID: agents[1].ID, Role: enums.UserRoleAgent, IsActive: true},
		},
	}
	if err := repo.CreateAssignment(context.Background(), &models.OrderAssignment{
		OrderID:     order.ID,
		AgentUserID: agents[0].ID,
		Active:      true,
	}); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	svc := newTestService(t, repo, dir, nil)

	err := svc.Reassign(context.Background(), ReassignInput{
		OrderID:       order.ID,
		NewAgentID:    agents[1].ID,
		ManagerUserID: manager,
		Reason:        "agent on leave",
	})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}

	active, err := repo.FindActiveAssignment(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("load active assignment: %v", err)
	}
	if active.AgentUserID != agents[1].ID {
		t.Fatalf("expected new agent, got %s", active.AgentUserID)
	}
	if active.PreviousAgentUserID == nil || *active.PreviousAgentUserID != agents[0].ID {
		t.Fatalf("previous agent not recorded: %+v", active)
	}
	if len(repo.statusLogs) != 1 || !repo.statusLogs[0].IsManagerChange {
		t.Fatalf("expected one manager status log, got %+v", repo.statusLogs)
	}
}

func TestBalanceWorkloadsLevelsAgents(t *testing.T) {
	repo := newMemRepo()
	agents := newAgents(2)
	busy, idle := agents[0].ID, agents[1].ID
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		order := repo.addOrder(base.Add(time.Duration(i) * time.Minute))
		if err := repo.CreateAssignment(context.Background(), &models.OrderAssignment{
			OrderID:     order.ID,
			AgentUserID: busy,
			Active:      true,
			AssignedAt:  base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("seed assignment: %v", err)
		}
	}
	extra := repo.addOrder(base)
	if err := repo.CreateAssignment(context.Background(), &models.OrderAssignment{
		OrderID:     extra.ID,
		AgentUserID: idle,
		Active:      true,
		AssignedAt:  base,
	}); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	svc := newTestService(t, repo, &memDirectory{agents: agents}, nil)

	summary, err := svc.BalanceWorkloads(context.Background())
	if err != nil {
		t.Fatalf("balance workloads: %v", err)
	}
	if summary.Moves != 2 {
		t.Fatalf("expected 2 moves, got %d", summary.Moves)
	}
	gap := summary.PerAgent[busy] - summary.PerAgent[idle]
	if gap < -1 || gap > 1 {
		t.Fatalf("workloads not balanced: %+v", summary.PerAgent)
	}
}

func TestBalanceWorkloadsSkipsEscalatedOrders(t *testing.T) {
	repo := newMemRepo()
	agents := newAgents(2)
	busy := agents[0].ID
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		order := repo.addOrder(base.Add(time.Duration(i) * time.Minute))
		order.EscalatedToManager = true
		if err := repo.CreateAssignment(context.Background(), &models.OrderAssignment{
			OrderID:     order.ID,
			AgentUserID: busy,
			Active:      true,
			AssignedAt:  base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("seed assignment: %v", err)
		}
	}
	svc := newTestService(t, repo, &memDirectory{agents: agents}, nil)

	summary, err := svc.BalanceWorkloads(context.Background())
	if err != nil {
		t.Fatalf("balance workloads: %v", err)
	}
	if summary.Moves != 0 {
		t.Fatalf("escalated orders must stay put, got %d moves", summary.Moves)
	}
}
