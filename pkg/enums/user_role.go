package enums

import "fmt"

// UserRole is the capability a directory user carries.
type UserRole string

const (
	UserRoleAgent       UserRole = "agent"
	UserRoleManager     UserRole = "manager"
	UserRoleStockkeeper UserRole = "stockkeeper"
	UserRolePackaging   UserRole = "packaging"
	UserRoleDelivery    UserRole = "delivery"
	UserRoleFinance     UserRole = "finance"
	UserRoleAdmin       UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleAgent,
	UserRoleManager,
	UserRoleStockkeeper,
	UserRolePackaging,
	UserRoleDelivery,
	UserRoleFinance,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
