package trip

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPlanned, StatusDelayed, true},
		{StatusPlanned, StatusInProgress, true},
		{StatusPlanned, StatusCancelled, true},
		{StatusPlanned, StatusCompleted, false},

		{StatusDelayed, StatusInProgress, true},
		{StatusDelayed, StatusCancelled, true},
		{StatusDelayed, StatusPlanned, false},
		{StatusDelayed, StatusCompleted, false},

		{StatusInProgress, StatusCompleted, true},
		{StatusInProgress, StatusCancelled, true},
		{StatusInProgress, StatusPlanned, false},
		{StatusInProgress, StatusDelayed, false},

		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusInProgress, false},
		{StatusCancelled, StatusPlanned, false},
		{StatusCancelled, StatusInProgress, false},

		{Status("UNKNOWN"), StatusPlanned, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusPlanned, StatusDelayed, StatusInProgress} {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true", s)
		}
	}
	for _, s := range []Status{StatusCompleted, StatusCancelled} {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false", s)
		}
	}
}

func TestEditable(t *testing.T) {
	for _, s := range []Status{StatusPlanned, StatusDelayed} {
		if !Editable(s) {
			t.Errorf("Editable(%s) = false", s)
		}
	}
	for _, s := range []Status{StatusInProgress, StatusCompleted, StatusCancelled} {
		if Editable(s) {
			t.Errorf("Editable(%s) = true", s)
		}
	}
}
