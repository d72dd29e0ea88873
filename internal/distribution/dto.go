package distribution

import (
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
	"github.com/google/uuid"
)

// Strategy names for summaries and metrics.
const (
	StrategyEqual       = "equal"
	StrategyPerformance = "performance"
	StrategyAuto        = "auto"
	StrategyBalance     = "balance"
)

// SkippedOrder reports one order a batch could not assign and why.
type SkippedOrder struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// Summary is the partial-success report of a distribution run. A no-op run
// (no agents, no orders) is a success with Reason set.
type Summary struct {
	Strategy         string             `json:"strategy"`
	TotalDistributed int                `json:"total_distributed"`
	PerAgent         map[uuid.UUID]int  `json:"per_agent"`
	Skipped          []SkippedOrder     `json:"skipped,omitempty"`
	Reason           string             `json:"reason,omitempty"`
}

// ReassignInput moves an order to a new agent by manager action.
type ReassignInput struct {
	OrderID       uuid.UUID
	NewAgentID    uuid.UUID
	ManagerUserID uuid.UUID
	Reason        string
	Priority      enums.PriorityLevel
}

// BalanceSummary reports the moves made by a workload balancing run.
type BalanceSummary struct {
	Moves    int               `json:"moves"`
	PerAgent map[uuid.UUID]int `json:"per_agent"`
	Reason   string            `json:"reason,omitempty"`
}
