// README: Closed role set and capability checks enforced ahead of core operations.
package auth

// Role is a caller role carried in the auth token claims.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleDispatcher Role = "dispatcher"
	RoleDriver     Role = "driver"
)

// ParseRole maps a raw claim value onto the closed role set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleDispatcher, RoleDriver:
		return Role(s), true
	default:
		return "", false
	}
}

// CanScheduleTrip reports whether the role may create or edit trips.
func CanScheduleTrip(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDispatcher:
		return true
	default:
		return false
	}
}

// CanEditTrip is an alias of the scheduling capability; edits re-run the same
// validation path as creation.
func CanEditTrip(r Role) bool {
	return CanScheduleTrip(r)
}

// CanDeleteTrip reports whether the role may remove a trip record.
// Only planned trips are removable by non-administrative roles.
func CanDeleteTrip(r Role, planned bool) bool {
	if r == RoleAdmin {
		return true
	}
	return planned && (r == RoleManager || r == RoleDispatcher)
}

// CanManageFleet covers truck/driver registration and mileage corrections.
func CanManageFleet(r Role) bool {
	return r == RoleAdmin || r == RoleManager
}

// CanCreateExpenseType reports whether the role may record an expense of the
// given type. Drivers are restricted to fuel receipts.
func CanCreateExpenseType(r Role, expenseType string) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDispatcher:
		return true
	case RoleDriver:
		return expenseType == "FUEL"
	default:
		return false
	}
}

// CanDeleteCompletedExpense guards removal of expenses linked to completed
// trips, since that rewrites settled financials.
func CanDeleteCompletedExpense(r Role) bool {
	return r == RoleAdmin || r == RoleManager
}

// CanUpdateSettings guards the settings singleton (diesel price).
func CanUpdateSettings(r Role) bool {
	return r == RoleAdmin
}
