// README: Expense records; typed costs attachable to trips and trucks.
package expense

import (
	"time"

	"fleetops/internal/types"
)

// Type is the closed expense category set. FUEL and TOLL get their own
// buckets during reconciliation; everything else is pooled as other costs.
type Type string

const (
	TypeFuel        Type = "FUEL"
	TypeToll        Type = "TOLL"
	TypeMaintenance Type = "MAINTENANCE"
	TypeInsurance   Type = "INSURANCE"
	TypeParking     Type = "PARKING"
	TypeFood        Type = "FOOD"
	TypeOther       Type = "OTHER"
)

func ValidType(t Type) bool {
	switch t {
	case TypeFuel, TypeToll, TypeMaintenance, TypeInsurance, TypeParking, TypeFood, TypeOther:
		return true
	default:
		return false
	}
}

// Expense is a single cost entry. TripID and TruckID are both optional; an
// expense linked to a trip feeds that trip's reconciliation.
type Expense struct {
	ID          types.ID
	TripID      *types.ID
	TruckID     *types.ID
	ClientID    *types.ID
	Type        Type
	Amount      float64
	Description string
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
