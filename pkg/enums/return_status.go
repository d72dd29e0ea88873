package enums

import "fmt"

// ReturnStatus tracks a return request through the return pipeline.
type ReturnStatus string

const (
	ReturnStatusRequested         ReturnStatus = "requested"
	ReturnStatusPendingApproval   ReturnStatus = "pending_approval"
	ReturnStatusApproved          ReturnStatus = "approved"
	ReturnStatusRejected          ReturnStatus = "rejected"
	ReturnStatusPickupScheduled   ReturnStatus = "pickup_scheduled"
	ReturnStatusInTransit         ReturnStatus = "in_transit"
	ReturnStatusReceived          ReturnStatus = "received"
	ReturnStatusInspecting        ReturnStatus = "inspecting"
	ReturnStatusInspected         ReturnStatus = "inspected"
	ReturnStatusApprovedForRefund ReturnStatus = "approved_for_refund"
	ReturnStatusRefundProcessing  ReturnStatus = "refund_processing"
	ReturnStatusRefundCompleted   ReturnStatus = "refund_completed"
	ReturnStatusRestocked         ReturnStatus = "restocked"
	ReturnStatusCompleted         ReturnStatus = "completed"
	ReturnStatusCancelled         ReturnStatus = "cancelled"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusRequested,
	ReturnStatusPendingApproval,
	ReturnStatusApproved,
	ReturnStatusRejected,
	ReturnStatusPickupScheduled,
	ReturnStatusInTransit,
	ReturnStatusReceived,
	ReturnStatusInspecting,
	ReturnStatusInspected,
	ReturnStatusApprovedForRefund,
	ReturnStatusRefundProcessing,
	ReturnStatusRefundCompleted,
	ReturnStatusRestocked,
	ReturnStatusCompleted,
	ReturnStatusCancelled,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the return admits no further transitions.
func (r ReturnStatus) IsTerminal() bool {
	switch r {
	case ReturnStatusRejected, ReturnStatusRestocked, ReturnStatusCompleted, ReturnStatusCancelled:
		return true
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
