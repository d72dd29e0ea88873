package workflow

import (
	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

// StatusCode is the wire contract for "update order status". Clients send one
// of these short op-codes plus the required context fields; unknown codes are
// rejected before anything is touched.
type StatusCode string

const (
	CodeConfirm        StatusCode = "CFM"
	CodeNoAnswerFirst  StatusCode = "NA1"
	CodeNoAnswerSecond StatusCode = "NA2"
	CodeNoAnswerThird  StatusCode = "NA3"
	CodeCancel         StatusCode = "CXL"
	CodePostpone       StatusCode = "HLD"
	CodeInvalidNumber  StatusCode = "INV"
	CodeCallback       StatusCode = "CBK"
	CodeEscalate       StatusCode = "ESC"
)

// codeEffect is the fixed record each op-code maps to. A nil workflow means
// the code is a soft outcome: it changes the order's status label without
// moving departmental ownership.
type codeEffect struct {
	status     enums.OrderStatus
	workflow   *enums.WorkflowStatus
	outcome    enums.CallOutcome
	resolution enums.ResolutionStatus

	needsDeliveryArea   bool
	needsAttemptAt      bool
	needsPostponedUntil bool
	needsCallbackAt     bool
	needsReason         bool

	noAnswerAttempt int
}

func workflowPtr(w enums.WorkflowStatus) *enums.WorkflowStatus { return &w }

var effectsByCode = map[StatusCode]codeEffect{
	CodeConfirm: {
		status:            enums.OrderStatusConfirmed,
		workflow:          workflowPtr(enums.WorkflowStatusCallcenterApproved),
		outcome:           enums.CallOutcomeCompleted,
		resolution:        enums.ResolutionStatusResolved,
		needsDeliveryArea: true,
	},
	CodeNoAnswerFirst: {
		status:          enums.OrderStatusNoAnswerFirst,
		outcome:         enums.CallOutcomeNoAnswer,
		resolution:      enums.ResolutionStatusPending,
		needsAttemptAt:  true,
		noAnswerAttempt: 1,
	},
	CodeNoAnswerSecond: {
		status:          enums.OrderStatusNoAnswerSecond,
		outcome:         enums.CallOutcomeNoAnswer,
		resolution:      enums.ResolutionStatusPending,
		needsAttemptAt:  true,
		noAnswerAttempt: 2,
	},
	CodeNoAnswerThird: {
		status:          enums.OrderStatusNoAnswerThird,
		outcome:         enums.CallOutcomeNoAnswer,
		resolution:      enums.ResolutionStatusPending,
		needsAttemptAt:  true,
		noAnswerAttempt: 3,
	},
	CodeCancel: {
		status:     enums.OrderStatusCancelled,
		workflow:   workflowPtr(enums.WorkflowStatusCancelled),
		outcome:    enums.CallOutcomeCompleted,
		resolution: enums.ResolutionStatusPending,
	},
	CodePostpone: {
		status:              enums.OrderStatusPostponed,
		outcome:             enums.CallOutcomeCallBack,
		resolution:          enums.ResolutionStatusPending,
		needsPostponedUntil: true,
	},
	CodeInvalidNumber: {
		status:     enums.OrderStatusInvalidNumber,
		outcome:    enums.CallOutcomeWrongNumber,
		resolution: enums.ResolutionStatusPending,
	},
	CodeCallback: {
		status:          enums.OrderStatusCallBackLater,
		outcome:         enums.CallOutcomeCallBack,
		resolution:      enums.ResolutionStatusPending,
		needsCallbackAt: true,
	},
	CodeEscalate: {
		status:      enums.OrderStatusEscalateManager,
		outcome:     enums.CallOutcomeEscalated,
		resolution:  enums.ResolutionStatusPending,
		needsReason: true,
	},
}

// IsValid reports whether the value is a known StatusCode.
func (c StatusCode) IsValid() bool {
	_, ok := effectsByCode[c]
	return ok
}

// workflowEdges is the directed graph workflow_status may advance along.
// Cancellation from any non-terminal stage is handled separately.
var workflowEdges = map[enums.WorkflowStatus][]enums.WorkflowStatus{
	enums.WorkflowStatusSellerSubmitted:     {enums.WorkflowStatusCallcenterReview},
	enums.WorkflowStatusCallcenterReview:    {enums.WorkflowStatusCallcenterApproved, enums.WorkflowStatusPostponed},
	enums.WorkflowStatusCallcenterApproved:  {enums.WorkflowStatusPickAndPack, enums.WorkflowStatusStockkeeperApproved, enums.WorkflowStatusPostponed},
	enums.WorkflowStatusPickAndPack:         {enums.WorkflowStatusPackagingInProgress},
	enums.WorkflowStatusStockkeeperApproved: {enums.WorkflowStatusPackagingInProgress},
	enums.WorkflowStatusPackagingInProgress: {enums.WorkflowStatusPackagingCompleted},
	enums.WorkflowStatusPackagingCompleted:  {enums.WorkflowStatusReadyForDelivery},
	enums.WorkflowStatusReadyForDelivery:    {enums.WorkflowStatusDeliveryInProgress},
	enums.WorkflowStatusDeliveryInProgress:  {enums.WorkflowStatusDeliveryCompleted},
	enums.WorkflowStatusPostponed:           {enums.WorkflowStatusCallcenterReview},
}

// CanTransition reports whether workflow_status may move from one stage to
// another along the fixed graph. Cancellation is legal from any non-terminal
// stage; everything else must follow an explicit edge.
func CanTransition(from, to enums.WorkflowStatus) bool {
	if from == to {
		return false
	}
	if to == enums.WorkflowStatusCancelled {
		return !from.IsTerminal()
	}
	for _, next := range workflowEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}
