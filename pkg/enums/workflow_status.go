package enums

import "fmt"

// WorkflowStatus is the coarse department-ownership stage of an order.
type WorkflowStatus string

const (
	WorkflowStatusSellerSubmitted     WorkflowStatus = "seller_submitted"
	WorkflowStatusCallcenterReview    WorkflowStatus = "callcenter_review"
	WorkflowStatusCallcenterApproved  WorkflowStatus = "callcenter_approved"
	WorkflowStatusPickAndPack         WorkflowStatus = "pick_and_pack"
	WorkflowStatusStockkeeperApproved WorkflowStatus = "stockkeeper_approved"
	WorkflowStatusPackagingInProgress WorkflowStatus = "packaging_in_progress"
	WorkflowStatusPackagingCompleted  WorkflowStatus = "packaging_completed"
	WorkflowStatusReadyForDelivery    WorkflowStatus = "ready_for_delivery"
	WorkflowStatusDeliveryInProgress  WorkflowStatus = "delivery_in_progress"
	WorkflowStatusDeliveryCompleted   WorkflowStatus = "delivery_completed"
	WorkflowStatusCancelled           WorkflowStatus = "cancelled"
	WorkflowStatusPostponed           WorkflowStatus = "postponed"
)

var validWorkflowStatuses = []WorkflowStatus{
	WorkflowStatusSellerSubmitted,
	WorkflowStatusCallcenterReview,
	WorkflowStatusCallcenterApproved,
	WorkflowStatusPickAndPack,
	WorkflowStatusStockkeeperApproved,
	WorkflowStatusPackagingInProgress,
	WorkflowStatusPackagingCompleted,
	WorkflowStatusReadyForDelivery,
	WorkflowStatusDeliveryInProgress,
	WorkflowStatusDeliveryCompleted,
	WorkflowStatusCancelled,
	WorkflowStatusPostponed,
}

// String implements fmt.Stringer.
func (w WorkflowStatus) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WorkflowStatus.
func (w WorkflowStatus) IsValid() bool {
	for _, candidate := range validWorkflowStatuses {
		if candidate == w {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the stage admits no further advancement.
func (w WorkflowStatus) IsTerminal() bool {
	return w == WorkflowStatusDeliveryCompleted || w == WorkflowStatusCancelled
}

// ParseWorkflowStatus converts raw input into a WorkflowStatus.
func ParseWorkflowStatus(value string) (WorkflowStatus, error) {
	for _, candidate := range validWorkflowStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid workflow status %q", value)
}
