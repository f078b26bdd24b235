// README: Maintenance service; creation, status changes, and the overdue monitor.
package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fleetops/internal/modules/fleet"
	"fleetops/internal/notify"
	"fleetops/internal/types"
)

var (
	ErrNotFound     = errors.New("maintenance record not found")
	ErrBadRequest   = errors.New("bad request")
	ErrInvalidState = errors.New("invalid maintenance state transition")
)

// RecordStore is the persistence surface the service needs.
type RecordStore interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, id types.ID) (*Record, error)
	ListByTruck(ctx context.Context, truckID types.ID) ([]Record, error)
	// ListDue returns SCHEDULED records for the truck with a mileage threshold.
	ListDue(ctx context.Context, truckID types.ID) ([]Record, error)
	// MarkPending flips a record to PENDING only if it is still SCHEDULED,
	// reporting whether the flip happened. Keeps the overdue event at most once
	// per record under concurrent sweeps.
	MarkPending(ctx context.Context, id types.ID) (bool, error)
	SetStatus(ctx context.Context, id types.ID, status Status) error
	Delete(ctx context.Context, id types.ID) error
}

type Service struct {
	store      RecordStore
	dispatcher notify.Dispatcher
	log        *logrus.Logger
}

func NewService(store RecordStore, dispatcher notify.Dispatcher, log *logrus.Logger) *Service {
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, dispatcher: dispatcher, log: log}
}

type CreateCommand struct {
	TruckID          types.ID
	Description      string
	ScheduledMileage *float64
	ScheduledDate    *time.Time
	Priority         Priority
}

// Create registers a scheduled maintenance. If the truck's odometer already
// sits at or past the threshold the record is flagged overdue immediately.
func (s *Service) Create(ctx context.Context, cmd CreateCommand, truck *fleet.Truck) (*Record, error) {
	if cmd.TruckID == "" || truck == nil {
		return nil, ErrBadRequest
	}
	if cmd.Priority == "" {
		cmd.Priority = PriorityMedium
	}
	if !ValidPriority(cmd.Priority) {
		return nil, ErrBadRequest
	}
	if cmd.ScheduledMileage != nil && *cmd.ScheduledMileage < 0 {
		return nil, ErrBadRequest
	}

	now := time.Now().UTC()
	r := &Record{
		ID:               types.NewID(),
		TruckID:          cmd.TruckID,
		Description:      cmd.Description,
		ScheduledMileage: cmd.ScheduledMileage,
		ScheduledDate:    cmd.ScheduledDate,
		Status:           StatusScheduled,
		Priority:         cmd.Priority,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}

	s.dispatcher.Send(notify.EventMaintenanceScheduled, map[string]any{
		"maintenance_id":    string(r.ID),
		"truck_id":          string(r.TruckID),
		"truck_plate":       truck.Plate,
		"description":       r.Description,
		"scheduled_mileage": cmd.ScheduledMileage,
		"priority":          string(r.Priority),
	})

	if overdue(*r, truck.CurrentMileage) {
		if err := s.flagOverdue(ctx, *r, truck); err != nil {
			return nil, err
		}
		r.Status = StatusPending
	}
	return r, nil
}

// CheckOverdue flags every scheduled record whose mileage threshold the
// truck's odometer has reached, emitting maintenance.overdue once per record.
// Returns the number of records newly flagged.
func (s *Service) CheckOverdue(ctx context.Context, truck *fleet.Truck) (int, error) {
	records, err := s.store.ListDue(ctx, truck.ID)
	if err != nil {
		return 0, err
	}
	flagged := 0
	for _, r := range OverdueRecords(records, truck.CurrentMileage) {
		if err := s.flagOverdue(ctx, r, truck); err != nil {
			return flagged, err
		}
		flagged++
	}
	return flagged, nil
}

func (s *Service) flagOverdue(ctx context.Context, r Record, truck *fleet.Truck) error {
	flipped, err := s.store.MarkPending(ctx, r.ID)
	if err != nil {
		return err
	}
	if !flipped {
		return nil
	}
	s.dispatcher.Send(notify.EventMaintenanceOverdue, map[string]any{
		"maintenance_id":    string(r.ID),
		"truck_id":          string(truck.ID),
		"truck_plate":       truck.Plate,
		"description":       r.Description,
		"priority":          string(r.Priority),
		"current_mileage":   truck.CurrentMileage,
		"scheduled_mileage": *r.ScheduledMileage,
		"overage_km":        truck.CurrentMileage - *r.ScheduledMileage,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Record, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByTruck(ctx context.Context, truckID types.ID) ([]Record, error) {
	return s.store.ListByTruck(ctx, truckID)
}

// Start moves a pending or scheduled record into the workshop.
func (s *Service) Start(ctx context.Context, id types.ID) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status != StatusPending && r.Status != StatusScheduled {
		return ErrInvalidState
	}
	return s.store.SetStatus(ctx, id, StatusInProgress)
}

// Complete closes out a record and emits maintenance.completed.
func (s *Service) Complete(ctx context.Context, id types.ID, truck *fleet.Truck) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status == StatusCompleted || r.Status == StatusCancelled {
		return ErrInvalidState
	}
	if err := s.store.SetStatus(ctx, id, StatusCompleted); err != nil {
		return err
	}
	payload := map[string]any{
		"maintenance_id": string(r.ID),
		"truck_id":       string(r.TruckID),
		"description":    r.Description,
	}
	if truck != nil {
		payload["truck_plate"] = truck.Plate
		payload["current_mileage"] = truck.CurrentMileage
	}
	s.dispatcher.Send(notify.EventMaintenanceCompleted, payload)
	return nil
}

// Cancel abandons a record that has not been completed.
func (s *Service) Cancel(ctx context.Context, id types.ID) error {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.Status == StatusCompleted || r.Status == StatusCancelled {
		return ErrInvalidState
	}
	return s.store.SetStatus(ctx, id, StatusCancelled)
}
