// README: Truck and driver records.
package fleet

import (
	"time"

	"fleetops/internal/types"
)

type TruckStatus string

const (
	StatusGarage      TruckStatus = "GARAGE"
	StatusInTransit   TruckStatus = "IN_TRANSIT"
	StatusMaintenance TruckStatus = "MAINTENANCE"
)

func ValidTruckStatus(s TruckStatus) bool {
	switch s {
	case StatusGarage, StatusInTransit, StatusMaintenance:
		return true
	}
	return false
}

type Truck struct {
	ID    types.ID
	Plate string
	Make  string
	Model string
	// AvgConsumption is km travelled per litre of diesel; 0 means unknown.
	AvgConsumption float64
	CurrentMileage float64
	Status         TruckStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Driver struct {
	ID        types.ID
	Name      string
	Phone     string
	LicenseNo string
	CreatedAt time.Time
}
