package enums

import "fmt"

// ItemCondition is the inspector-recorded condition of a returned item.
type ItemCondition string

const (
	ItemConditionNew       ItemCondition = "new"
	ItemConditionOpened    ItemCondition = "opened"
	ItemConditionUsed      ItemCondition = "used"
	ItemConditionDamaged   ItemCondition = "damaged"
	ItemConditionDefective ItemCondition = "defective"
)

var validItemConditions = []ItemCondition{
	ItemConditionNew,
	ItemConditionOpened,
	ItemConditionUsed,
	ItemConditionDamaged,
	ItemConditionDefective,
}

// String implements fmt.Stringer.
func (i ItemCondition) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemCondition.
func (i ItemCondition) IsValid() bool {
	for _, candidate := range validItemConditions {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseItemCondition converts raw input into an ItemCondition.
func ParseItemCondition(value string) (ItemCondition, error) {
	for _, candidate := range validItemConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item condition %q", value)
}
