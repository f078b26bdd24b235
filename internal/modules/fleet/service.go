// README: Fleet service; truck/driver registration and mileage updates with overdue checks.
package fleet

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fleetops/internal/types"
)

var (
	ErrNotFound       = errors.New("fleet record not found")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidMileage = errors.New("mileage may not decrease")
)

// TruckStore is the persistence surface the service needs.
type TruckStore interface {
	CreateTruck(ctx context.Context, t *Truck) error
	GetTruck(ctx context.Context, id types.ID) (*Truck, error)
	ListTrucks(ctx context.Context) ([]Truck, error)
	SetTruckMileage(ctx context.Context, id types.ID, mileage float64) error
	SetTruckStatus(ctx context.Context, id types.ID, status TruckStatus) error
	CreateDriver(ctx context.Context, d *Driver) error
	GetDriver(ctx context.Context, id types.ID) (*Driver, error)
	ListDrivers(ctx context.Context) ([]Driver, error)
}

// OverdueChecker flags maintenance records that the new mileage puts past
// their threshold. Implemented by the maintenance service.
type OverdueChecker interface {
	CheckOverdue(ctx context.Context, truck *Truck) (int, error)
}

type Service struct {
	store   TruckStore
	monitor OverdueChecker
	log     *logrus.Logger
}

func NewService(store TruckStore, monitor OverdueChecker, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, monitor: monitor, log: log}
}

type CreateTruckCommand struct {
	Plate          string
	Make           string
	Model          string
	AvgConsumption float64
	CurrentMileage float64
}

func (s *Service) CreateTruck(ctx context.Context, cmd CreateTruckCommand) (*Truck, error) {
	if cmd.Plate == "" || cmd.CurrentMileage < 0 || cmd.AvgConsumption < 0 {
		return nil, ErrBadRequest
	}
	now := time.Now().UTC()
	t := &Truck{
		ID:             types.NewID(),
		Plate:          cmd.Plate,
		Make:           cmd.Make,
		Model:          cmd.Model,
		AvgConsumption: cmd.AvgConsumption,
		CurrentMileage: cmd.CurrentMileage,
		Status:         StatusGarage,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateTruck(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) GetTruck(ctx context.Context, id types.ID) (*Truck, error) {
	return s.store.GetTruck(ctx, id)
}

func (s *Service) ListTrucks(ctx context.Context) ([]Truck, error) {
	return s.store.ListTrucks(ctx)
}

// UpdateMileage records a new odometer reading and runs the maintenance
// overdue check against it. Readings are monotonically non-decreasing.
func (s *Service) UpdateMileage(ctx context.Context, id types.ID, mileage float64) (*Truck, error) {
	if mileage < 0 {
		return nil, ErrBadRequest
	}
	truck, err := s.store.GetTruck(ctx, id)
	if err != nil {
		return nil, err
	}
	if mileage < truck.CurrentMileage {
		return nil, ErrInvalidMileage
	}
	if err := s.store.SetTruckMileage(ctx, id, mileage); err != nil {
		return nil, err
	}
	truck.CurrentMileage = mileage

	if s.monitor != nil {
		if _, err := s.monitor.CheckOverdue(ctx, truck); err != nil {
			s.log.WithError(err).WithField("truck_id", id).Warn("fleet: overdue check failed")
		}
	}
	return truck, nil
}

type CreateDriverCommand struct {
	Name      string
	Phone     string
	LicenseNo string
}

func (s *Service) CreateDriver(ctx context.Context, cmd CreateDriverCommand) (*Driver, error) {
	if cmd.Name == "" {
		return nil, ErrBadRequest
	}
	d := &Driver{
		ID:        types.NewID(),
		Name:      cmd.Name,
		Phone:     cmd.Phone,
		LicenseNo: cmd.LicenseNo,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateDriver(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	return s.store.GetDriver(ctx, id)
}

func (s *Service) ListDrivers(ctx context.Context) ([]Driver, error) {
	return s.store.ListDrivers(ctx)
}
