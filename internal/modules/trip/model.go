// README: Trip aggregate and lifecycle status definitions.
package trip

import (
	"time"

	"fleetops/internal/types"
)

type Status string

const (
	StatusPlanned    Status = "PLANNED"
	StatusDelayed    Status = "DELAYED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

type Trip struct {
	ID        types.ID
	TruckID   types.ID
	DriverID  types.ID
	TrailerID *types.ID
	ClientID  *types.ID
	TripCode  *string

	Origin      string
	Destination string

	// StartDate holds the scheduled start until the trip starts, then the
	// actual start.
	StartDate    time.Time
	EndDate      *time.Time
	StartMileage *float64
	EndMileage   *float64
	Distance     float64

	Revenue float64
	// Derived financials; consistent only immediately after reconciliation.
	FuelCost      float64
	TollCost      float64
	OtherCosts    float64
	TotalCost     float64
	Profit        float64
	ProfitMargin  float64
	FuelEstimated bool

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllowedTransitions represents the trip state flow as code. DELAYED is a
// timeout variant of PLANNED, not an error state.
var AllowedTransitions = map[Status][]Status{
	StatusPlanned:    {StatusDelayed, StatusInProgress, StatusCancelled},
	StatusDelayed:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Editable reports whether the trip's fields may still be changed.
func Editable(s Status) bool {
	return s == StatusPlanned || s == StatusDelayed
}
