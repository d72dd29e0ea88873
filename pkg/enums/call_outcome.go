package enums

import "fmt"

// CallOutcome is the coarse result recorded for a call-center interaction.
type CallOutcome string

const (
	CallOutcomeCompleted   CallOutcome = "completed"
	CallOutcomeNoAnswer    CallOutcome = "no_answer"
	CallOutcomeCallBack    CallOutcome = "call_back"
	CallOutcomeWrongNumber CallOutcome = "wrong_number"
	CallOutcomeEscalated   CallOutcome = "escalated"
)

var validCallOutcomes = []CallOutcome{
	CallOutcomeCompleted,
	CallOutcomeNoAnswer,
	CallOutcomeCallBack,
	CallOutcomeWrongNumber,
	CallOutcomeEscalated,
}

// String implements fmt.Stringer.
func (c CallOutcome) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CallOutcome.
func (c CallOutcome) IsValid() bool {
	for _, candidate := range validCallOutcomes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCallOutcome converts raw input into a CallOutcome.
func ParseCallOutcome(value string) (CallOutcome, error) {
	for _, candidate := range validCallOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid call outcome %q", value)
}
