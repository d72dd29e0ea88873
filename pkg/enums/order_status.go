package enums

import "fmt"

// OrderStatus is the fine-grained, customer-facing outcome label of an order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusNoAnswerFirst   OrderStatus = "no_answer_1st"
	OrderStatusNoAnswerSecond  OrderStatus = "no_answer_2nd"
	OrderStatusNoAnswerThird   OrderStatus = "no_answer_3rd"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusPostponed       OrderStatus = "postponed"
	OrderStatusInvalidNumber   OrderStatus = "invalid_number"
	OrderStatusCallBackLater   OrderStatus = "call_back_later"
	OrderStatusEscalateManager OrderStatus = "escalate_manager"
	OrderStatusCompleted       OrderStatus = "completed"
	OrderStatusReturned        OrderStatus = "returned"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusNoAnswerFirst,
	OrderStatusNoAnswerSecond,
	OrderStatusNoAnswerThird,
	OrderStatusCancelled,
	OrderStatusPostponed,
	OrderStatusInvalidNumber,
	OrderStatusCallBackLater,
	OrderStatusEscalateManager,
	OrderStatusCompleted,
	OrderStatusReturned,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
