package returns

import (
	"testing"

	"github.com/atlascrm/fulfillment-backend/pkg/enums"
)

func TestReturnCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from enums.ReturnStatus
		to   enums.ReturnStatus
		want bool
	}{
		{"requested to pending approval", enums.ReturnStatusRequested, enums.ReturnStatusPendingApproval, true},
		{"requested straight to approved", enums.ReturnStatusRequested, enums.ReturnStatusApproved, true},
		{"pending approval to rejected", enums.ReturnStatusPendingApproval, enums.ReturnStatusRejected, true},
		{"approved to pickup", enums.ReturnStatusApproved, enums.ReturnStatusPickupScheduled, true},
		{"pickup straight to received", enums.ReturnStatusPickupScheduled, enums.ReturnStatusReceived, true},
		{"in transit to received", enums.ReturnStatusInTransit, enums.ReturnStatusReceived, true},
		{"received to approved for refund", enums.ReturnStatusReceived, enums.ReturnStatusApprovedForRefund, true},
		{"approved for refund to refund completed", enums.ReturnStatusApprovedForRefund, enums.ReturnStatusRefundCompleted, true},
		{"refund completed to restocked", enums.ReturnStatusRefundCompleted, enums.ReturnStatusRestocked, true},
		{"refund completed to completed", enums.ReturnStatusRefundCompleted, enums.ReturnStatusCompleted, true},
		{"requested skips to refund", enums.ReturnStatusRequested, enums.ReturnStatusRefundCompleted, false},
		{"self transition", enums.ReturnStatusRequested, enums.ReturnStatusRequested, false},
		{"cancel from requested", enums.ReturnStatusRequested, enums.ReturnStatusCancelled, true},
		{"cancel from in transit", enums.ReturnStatusInTransit, enums.ReturnStatusCancelled, true},
		{"cancel after rejection", enums.ReturnStatusRejected, enums.ReturnStatusCancelled, false},
		{"cancel after completion", enums.ReturnStatusCompleted, enums.ReturnStatusCancelled, false},
		{"rejected is terminal", enums.ReturnStatusRejected, enums.ReturnStatusApproved, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}
