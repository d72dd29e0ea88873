package enums

import "fmt"

// ResolutionStatus marks whether a call-center interaction settled the order.
type ResolutionStatus string

const (
	ResolutionStatusPending  ResolutionStatus = "pending"
	ResolutionStatusResolved ResolutionStatus = "resolved"
)

var validResolutionStatuses = []ResolutionStatus{
	ResolutionStatusPending,
	ResolutionStatusResolved,
}

// String implements fmt.Stringer.
func (r ResolutionStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ResolutionStatus.
func (r ResolutionStatus) IsValid() bool {
	for _, candidate := range validResolutionStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseResolutionStatus converts raw input into a ResolutionStatus.
func ParseResolutionStatus(value string) (ResolutionStatus, error) {
	for _, candidate := range validResolutionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid resolution status %q", value)
}
