package distribution

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlascrm/fulfillment-backend/internal/directory"
	"github.com/atlascrm/fulfillment-backend/pkg/db"
	"github.com/atlascrm/fulfillment-backend/pkg/db/models"
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/atlascrm/fulfillment-backend/pkg/errors"
	"github.com/atlascrm/fulfillment-backend/pkg/metrics"
	"github.com/atlascrm/fulfillment-backend/pkg/notify"
)

const (
	reasonNoEligibleAgents   = "no eligible agents"
	reasonNoUnassignedOrders = "no unassigned orders"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service assigns orders to agents. Batch operations are serialized behind a
// single-writer lock so two concurrent runs cannot interleave their
// round-robin order.
type Service interface {
	ListEligibleAgents(ctx context.Context) ([]models.User, error)
	Workload(ctx context.Context, agentUserID uuid.UUID) (int, error)
	DistributeEqually(ctx context.Context, orderIDs []uuid.UUID, assignedBy uuid.UUID) (*Summary, error)
	DistributeByPerformance(ctx context.Context, orderIDs []uuid.UUID, assignedBy uuid.UUID) (*Summary, error)
	AutoAssignSingleOrder(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error)
	Reassign(ctx context.Context, input ReassignInput) error
	BalanceWorkloads(ctx context.Context) (*BalanceSummary, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	dir      directory.Directory
	scorer   Scorer
	notifier notify.Notifier
	metrics  *metrics.DistributionMetrics
	now      func() time.Time

	mu sync.Mutex
}

// NewService builds the distribution engine with the required dependencies.
func NewService(repo Repository, tx txRunner, dir directory.Directory, scorer Scorer, notifier notify.Notifier, dm *metrics.DistributionMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("distribution repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory required")
	}
	if scorer == nil {
		scorer = NewZeroScorer()
	}
	if notifier == nil {
		notifier = notify.NewNop()
	}
	return &service{
		repo:     repo,
		tx:       tx,
		dir:      dir,
		scorer:   scorer,
		notifier: notifier,
		metrics:  dm,
		now:      time.Now,
	}, nil
}

func (s *service) ListEligibleAgents(ctx context.Context) ([]models.User, error) {
	agents, err := s.dir.ListEligibleAgents(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list eligible agents")
	}
	return agents, nil
}

func (s *service) Workload(ctx context.Context, agentUserID uuid.UUID) (int, error) {
	if agentUserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	count, err := s.repo.CountActiveByAgent(ctx, agentUserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count agent workload")
	}
	return int(count), nil
}

// DistributeEqually assigns the given orders (or every unassigned order when
// orderIDs is empty) round-robin across eligible agents, oldest order first.
// With M orders and N agents the first M mod N agents receive one extra order.
func (s *service) DistributeEqually(ctx context.Context, orderIDs []uuid.UUID, assignedBy uuid.UUID) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &Summary{Strategy: StrategyEqual, PerAgent: map[uuid.UUID]int{}}

	agents, err := s.ListEligibleAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		summary.Reason = reasonNoEligibleAgents
		return summary, nil
	}

	orders, skipped, err := s.resolveOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	summary.Skipped = skipped
	if len(orders) == 0 {
		summary.Reason = reasonNoUnassignedOrders
		return summary, nil
	}

	for i, order := range orders {
		agent := agents[i%len(agents)]
		s.assignAndRecord(ctx, summary, order, agent.ID, assignedBy, StrategyEqual)
	}

	s.metrics.AddAssigned(StrategyEqual, summary.TotalDistributed)
	s.metrics.AddSkipped(StrategyEqual, len(summary.Skipped))
	return summary, nil
}

// DistributeByPerformance assigns each order (oldest first) to the agent
// minimizing (current workload, -performance score, agent id) as a
// lexicographic key, bumping that agent's working workload before the next
// order so a single run converges toward balance.
func (s *service) DistributeByPerformance(ctx context.Context, orderIDs []uuid.UUID, assignedBy uuid.UUID) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &Summary{Strategy: StrategyPerformance, PerAgent: map[uuid.UUID]int{}}

	agents, err := s.ListEligibleAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		summary.Reason = reasonNoEligibleAgents
		return summary, nil
	}

	orders, skipped, err := s.resolveOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	summary.Skipped = skipped
	if len(orders) == 0 {
		summary.Reason = reasonNoUnassignedOrders
		return summary, nil
	}

	workloads, scores, err := s.loadAgentState(ctx, agents)
	if err != nil {
		return nil, err
	}

	for _, order := range orders {
		agentID := pickAgent(agents, workloads, scores)
		if s.assignAndRecord(ctx, summary, order, agentID, assignedBy, StrategyPerformance) {
			workloads[agentID]++
		}
	}

	s.metrics.AddAssigned(StrategyPerformance, summary.TotalDistributed)
	s.metrics.AddSkipped(StrategyPerformance, len(summary.Skipped))
	return summary, nil
}

// AutoAssignSingleOrder assigns a newly created order like one step of the
// performance strategy. Idempotent: an order that already has an active
// assignment keeps its agent.
func (s *service) AutoAssignSingleOrder(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	if orderID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	existing, err := s.repo.FindActiveAssignment(ctx, orderID)
	if err == nil {
		return existing.AgentUserID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active assignment")
	}

	agents, err := s.ListEligibleAgents(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(agents) == 0 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeConflict, reasonNoEligibleAgents)
	}

	orders, err := s.repo.FindOrdersByIDs(ctx, []uuid.UUID{orderID})
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if len(orders) == 0 {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	workloads, scores, err := s.loadAgentState(ctx, agents)
	if err != nil {
		return uuid.Nil, err
	}
	agentID := pickAgent(agents, workloads, scores)

	assigned, skipReason, err := s.assignOrder(ctx, orders[0], agentID, uuid.Nil, StrategyAuto)
	if err != nil {
		return uuid.Nil, err
	}
	if !assigned {
		// Lost a race to a concurrent assignment; surface the winner.
		if current, findErr := s.repo.FindActiveAssignment(ctx, orderID); findErr == nil {
			return current.AgentUserID, nil
		}
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeConflict, skipReason)
	}
	s.metrics.AddAssigned(StrategyAuto, 1)
	return agentID, nil
}

// Reassign moves an order to a new agent by manager action, keeping the
// previous agent on the new assignment row for audit.
func (s *service) Reassign(ctx context.Context, input ReassignInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.NewAgentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "new agent id required")
	}
	if strings.TrimSpace(input.Reason) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Reassignment reason is required")
	}

	isManager, err := s.dir.IsManager(ctx, input.ManagerUserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check manager capability")
	}
	if !isManager {
		return pkgerrors.New(pkgerrors.CodeForbidden, "manager capability required")
	}

	agent, err := s.dir.FindUser(ctx, input.NewAgentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.Role != enums.UserRoleAgent || !agent.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "target user is not an eligible agent")
	}

	priority := input.Priority
	if !priority.IsValid() {
		priority = enums.PriorityLevelMedium
	}
	reason := strings.TrimSpace(input.Reason)

	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		orders, err := repo.FindOrdersByIDs(ctx, []uuid.UUID{input.OrderID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if len(orders) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order := orders[0]

		var previousAgent *uuid.UUID
		current, err := repo.FindActiveAssignment(ctx, input.OrderID)
		switch {
		case err == nil:
			if current.AgentUserID == input.NewAgentID {
				return pkgerrors.New(pkgerrors.CodeConflict, "order is already assigned to this agent")
			}
			prev := current.AgentUserID
			previousAgent = &prev
			if err := repo.DeactivateAssignment(ctx, current.ID, s.now().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate assignment")
			}
		case err == gorm.ErrRecordNotFound:
			// First assignment via manual reassign is allowed.
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active assignment")
		}

		manager := input.ManagerUserID
		if err := repo.CreateAssignment(ctx, &models.OrderAssignment{
			OrderID:             input.OrderID,
			AgentUserID:         input.NewAgentID,
			AssignedByUserID:    &manager,
			PreviousAgentUserID: previousAgent,
			Priority:            priority,
			Reason:              &reason,
			Active:              true,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}

		notes := "reassigned: " + reason
		return wrapDependency(repo.AppendStatusLog(ctx, &models.StatusLog{
			OrderID:         input.OrderID,
			OldStatus:       string(order.Status),
			NewStatus:       string(order.Status),
			ActorUserID:     &manager,
			Notes:           &notes,
			IsManagerChange: true,
		}), "append status log")
	})
	if txErr != nil {
		return txErr
	}

	s.notifyAssigned(ctx, input.OrderID, input.NewAgentID, input.ManagerUserID)
	return nil
}

// BalanceWorkloads moves orders from overloaded agents to underloaded ones
// until the max-min gap is at most one or no beneficial move remains.
// Escalated orders stay put.
func (s *service) BalanceWorkloads(ctx context.Context) (*BalanceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := &BalanceSummary{PerAgent: map[uuid.UUID]int{}}

	agents, err := s.ListEligibleAgents(ctx)
	if err != nil {
		return nil, err
	}
	if len(agents) < 2 {
		summary.Reason = "not enough agents to balance"
		return summary, nil
	}

	agentIDs := make([]uuid.UUID, 0, len(agents))
	for _, agent := range agents {
		agentIDs = append(agentIDs, agent.ID)
	}
	counts, err := s.repo.ActiveCountsByAgents(ctx, agentIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count workloads")
	}
	for _, id := range agentIDs {
		summary.PerAgent[id] = int(counts[id])
	}

	exhausted := map[uuid.UUID]bool{}
	for {
		donor, receiver, gap := pickDonorAndReceiver(agentIDs, summary.PerAgent, exhausted)
		if gap <= 1 {
			break
		}

		assignment, found, err := s.movableAssignment(ctx, donor)
		if err != nil {
			return nil, err
		}
		if !found {
			exhausted[donor] = true
			continue
		}

		if err := s.moveAssignment(ctx, assignment, receiver); err != nil {
			return nil, err
		}
		summary.PerAgent[donor]--
		summary.PerAgent[receiver]++
		summary.Moves++
		s.notifyAssigned(ctx, assignment.OrderID, receiver, uuid.Nil)
	}

	if summary.Moves == 0 && summary.Reason == "" {
		summary.Reason = "workloads already balanced"
	}
	s.metrics.AddMoved(StrategyBalance, summary.Moves)
	return summary, nil
}

func (s *service) movableAssignment(ctx context.Context, agentID uuid.UUID) (*models.OrderAssignment, bool, error) {
	rows, err := s.repo.FindActiveAssignmentsByAgent(ctx, agentID)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent assignments")
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	return &rows[0], true, nil
}

func (s *service) moveAssignment(ctx context.Context, assignment *models.OrderAssignment, receiver uuid.UUID) error {
	reason := "workload balancing"
	previous := assignment.AgentUserID
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeactivateAssignment(ctx, assignment.ID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate assignment")
		}
		return wrapDependency(repo.CreateAssignment(ctx, &models.OrderAssignment{
			OrderID:             assignment.OrderID,
			AgentUserID:         receiver,
			PreviousAgentUserID: &previous,
			Priority:            assignment.Priority,
			Reason:              &reason,
			Active:              true,
		}), "create assignment")
	})
}

// pickDonorAndReceiver returns the most and least loaded agents, skipping
// donors with no movable orders, with agent id as the deterministic tie-break.
func pickDonorAndReceiver(agentIDs []uuid.UUID, counts map[uuid.UUID]int, exhausted map[uuid.UUID]bool) (donor, receiver uuid.UUID, gap int) {
	sorted := make([]uuid.UUID, len(agentIDs))
	copy(sorted, agentIDs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	hasDonor := false
	for _, id := range sorted {
		if exhausted[id] {
			continue
		}
		if !hasDonor || counts[id] > counts[donor] {
			donor = id
			hasDonor = true
		}
	}
	receiver = sorted[0]
	for _, id := range sorted {
		if counts[id] < counts[receiver] {
			receiver = id
		}
	}
	if !hasDonor || donor == receiver {
		return donor, receiver, 0
	}
	return donor, receiver, counts[donor] - counts[receiver]
}

func (s *service) resolveOrders(ctx context.Context, orderIDs []uuid.UUID) ([]models.Order, []SkippedOrder, error) {
	if len(orderIDs) == 0 {
		orders, err := s.repo.FindUnassignedOrders(ctx)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query unassigned orders")
		}
		return orders, nil, nil
	}

	orders, err := s.repo.FindOrdersByIDs(ctx, orderIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
	}

	found := make(map[uuid.UUID]bool, len(orders))
	usable := make([]models.Order, 0, len(orders))
	var skipped []SkippedOrder
	for _, order := range orders {
		found[order.ID] = true
		if isTerminal(order.Status) {
			skipped = append(skipped, SkippedOrder{OrderID: order.ID, Reason: "order is in a terminal state"})
			continue
		}
		usable = append(usable, order)
	}
	for _, id := range orderIDs {
		if id == uuid.Nil {
			skipped = append(skipped, SkippedOrder{OrderID: id, Reason: "malformed order id"})
			continue
		}
		if !found[id] {
			skipped = append(skipped, SkippedOrder{OrderID: id, Reason: "order not found"})
		}
	}
	return usable, skipped, nil
}

func (s *service) loadAgentState(ctx context.Context, agents []models.User) (map[uuid.UUID]int64, map[uuid.UUID]float64, error) {
	agentIDs := make([]uuid.UUID, 0, len(agents))
	for _, agent := range agents {
		agentIDs = append(agentIDs, agent.ID)
	}
	workloads, err := s.repo.ActiveCountsByAgents(ctx, agentIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count workloads")
	}
	scores, err := s.scorer.Scores(ctx, agentIDs)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "score agents")
	}
	return workloads, scores, nil
}

// pickAgent selects the agent minimizing (workload, -score, id).
func pickAgent(agents []models.User, workloads map[uuid.UUID]int64, scores map[uuid.UUID]float64) uuid.UUID {
	best := agents[0].ID
	for _, agent := range agents[1:] {
		id := agent.ID
		switch {
		case workloads[id] < workloads[best]:
			best = id
		case workloads[id] > workloads[best]:
		case scores[id] > scores[best]:
			best = id
		case scores[id] < scores[best]:
		case id.String() < best.String():
			best = id
		}
	}
	return best
}

func (s *service) assignAndRecord(ctx context.Context, summary *Summary, order models.Order, agentID, assignedBy uuid.UUID, strategy string) bool {
	assigned, skipReason, err := s.assignOrder(ctx, order, agentID, assignedBy, strategy)
	if err != nil {
		summary.Skipped = append(summary.Skipped, SkippedOrder{OrderID: order.ID, Reason: err.Error()})
		return false
	}
	if !assigned {
		summary.Skipped = append(summary.Skipped, SkippedOrder{OrderID: order.ID, Reason: skipReason})
		return false
	}
	summary.TotalDistributed++
	summary.PerAgent[agentID]++
	s.notifyAssigned(ctx, order.ID, agentID, assignedBy)
	return true
}

func (s *service) assignOrder(ctx context.Context, order models.Order, agentID, assignedBy uuid.UUID, strategy string) (bool, string, error) {
	skipReason := ""
	assigned := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		_, err := repo.FindActiveAssignment(ctx, order.ID)
		if err == nil {
			skipReason = "order already has an active assignment"
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active assignment")
		}

		assignment := &models.OrderAssignment{
			OrderID:     order.ID,
			AgentUserID: agentID,
			Priority:    enums.PriorityLevelMedium,
			Active:      true,
		}
		reason := "distributed: " + strategy
		assignment.Reason = &reason
		if assignedBy != uuid.Nil {
			by := assignedBy
			assignment.AssignedByUserID = &by
		}
		if err := repo.CreateAssignment(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, "") {
				skipReason = "order already has an active assignment"
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}
		assigned = true
		return nil
	})
	if err != nil {
		return false, "", err
	}
	return assigned, skipReason, nil
}

func (s *service) notifyAssigned(ctx context.Context, orderID, agentID, actorID uuid.UUID) {
	event := notify.Event{
		Type:       notify.EventOrderAssigned,
		SubjectID:  orderID,
		NewState:   agentID.String(),
		OccurredAt: s.now().UTC(),
	}
	if actorID != uuid.Nil {
		actor := actorID
		event.ActorID = &actor
	}
	s.notifier.Notify(ctx, event)
}

func isTerminal(status enums.OrderStatus) bool {
	for _, terminal := range terminalOrderStatuses {
		if status == terminal {
			return true
		}
	}
	return false
}

func wrapDependency(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
