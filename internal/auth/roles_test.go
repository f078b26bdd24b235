package auth

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  Role
		valid bool
	}{
		{"admin role", "admin", RoleAdmin, true},
		{"manager role", "manager", RoleManager, true},
		{"dispatcher role", "dispatcher", RoleDispatcher, true},
		{"driver role", "driver", RoleDriver, true},
		{"unknown role", "superuser", "", false},
		{"empty role", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRole(tt.raw)
			if ok != tt.valid || got != tt.want {
				t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.valid)
			}
		})
	}
}

func TestCapabilities(t *testing.T) {
	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"admin schedules trips", CanScheduleTrip(RoleAdmin), true},
		{"dispatcher schedules trips", CanScheduleTrip(RoleDispatcher), true},
		{"driver cannot schedule trips", CanScheduleTrip(RoleDriver), false},
		{"unknown role cannot schedule", CanScheduleTrip("viewer"), false},

		{"admin deletes any trip", CanDeleteTrip(RoleAdmin, false), true},
		{"manager deletes planned trip", CanDeleteTrip(RoleManager, true), true},
		{"manager cannot delete non-planned trip", CanDeleteTrip(RoleManager, false), false},
		{"driver cannot delete planned trip", CanDeleteTrip(RoleDriver, true), false},

		{"manager manages fleet", CanManageFleet(RoleManager), true},
		{"dispatcher cannot manage fleet", CanManageFleet(RoleDispatcher), false},

		{"driver records fuel expense", CanCreateExpenseType(RoleDriver, "FUEL"), true},
		{"driver cannot record toll expense", CanCreateExpenseType(RoleDriver, "TOLL"), false},
		{"manager records any expense", CanCreateExpenseType(RoleManager, "OTHER"), true},

		{"manager deletes completed-trip expense", CanDeleteCompletedExpense(RoleManager), true},
		{"dispatcher cannot delete completed-trip expense", CanDeleteCompletedExpense(RoleDispatcher), false},

		{"only admin updates settings", CanUpdateSettings(RoleManager), false},
		{"admin updates settings", CanUpdateSettings(RoleAdmin), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
