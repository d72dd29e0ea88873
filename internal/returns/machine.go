package returns

import "github.com/atlascrm/fulfillment-backend/pkg/enums"

// returnEdges is the directed graph of legal return pipeline transitions.
// Cancellation is handled separately in CanTransition because cancelled is
// reachable from every non-terminal state.
var returnEdges = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusRequested: {
		enums.ReturnStatusPendingApproval,
		enums.ReturnStatusApproved,
		enums.ReturnStatusRejected,
	},
	enums.ReturnStatusPendingApproval: {
		enums.ReturnStatusApproved,
		enums.ReturnStatusRejected,
	},
	enums.ReturnStatusApproved: {
		enums.ReturnStatusPickupScheduled,
	},
	enums.ReturnStatusPickupScheduled: {
		enums.ReturnStatusInTransit,
		enums.ReturnStatusReceived,
	},
	enums.ReturnStatusInTransit: {
		enums.ReturnStatusReceived,
	},
	enums.ReturnStatusReceived: {
		enums.ReturnStatusInspecting,
		enums.ReturnStatusInspected,
		enums.ReturnStatusApprovedForRefund,
	},
	enums.ReturnStatusInspecting: {
		enums.ReturnStatusInspected,
		enums.ReturnStatusApprovedForRefund,
	},
	enums.ReturnStatusInspected: {
		enums.ReturnStatusRestocked,
	},
	enums.ReturnStatusApprovedForRefund: {
		enums.ReturnStatusRefundProcessing,
		enums.ReturnStatusRefundCompleted,
	},
	enums.ReturnStatusRefundProcessing: {
		enums.ReturnStatusRefundCompleted,
	},
	enums.ReturnStatusRefundCompleted: {
		enums.ReturnStatusRestocked,
		enums.ReturnStatusCompleted,
	},
}

// CanTransition reports whether the return pipeline permits moving from one
// status to another. Self-transitions are not permitted.
func CanTransition(from, to enums.ReturnStatus) bool {
	if from == to {
		return false
	}
	if to == enums.ReturnStatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range returnEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}
