// README: Expense service; CRUD with role gating and reconcile-on-mutation.
package expense

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fleetops/internal/auth"
	"fleetops/internal/modules/trip"
	"fleetops/internal/notify"
	"fleetops/internal/types"
)

var (
	ErrNotFound   = errors.New("expense not found")
	ErrBadRequest = errors.New("bad request")
	ErrPermission = errors.New("role not permitted for this expense operation")
)

// ExpenseStore is the persistence surface the service needs.
type ExpenseStore interface {
	Create(ctx context.Context, e *Expense) error
	Get(ctx context.Context, id types.ID) (*Expense, error)
	List(ctx context.Context, f Filter) ([]Expense, error)
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, id types.ID) error
}

// TripSource exposes the trip lookups and the reconciliation entry point
// expense mutations need. Implemented by the trip service; ReconcileTrip is a
// no-op for trips that are not completed, so the expense side calls it after
// every mutation without checking status first.
type TripSource interface {
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
	ReconcileTrip(ctx context.Context, id types.ID) error
}

// Filter narrows expense listings.
type Filter struct {
	TripID  types.ID
	TruckID types.ID
	Type    Type
}

type Service struct {
	store      ExpenseStore
	trips      TripSource
	dispatcher notify.Dispatcher

	highAmount float64
	now        func() time.Time
	log        *logrus.Logger
}

func NewService(store ExpenseStore, trips TripSource, dispatcher notify.Dispatcher, highAmount float64, log *logrus.Logger) *Service {
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:      store,
		trips:      trips,
		dispatcher: dispatcher,
		highAmount: highAmount,
		now:        time.Now,
		log:        log,
	}
}

type CreateCommand struct {
	TripID      *types.ID
	TruckID     *types.ID
	ClientID    *types.ID
	Type        Type
	Amount      float64
	Description string
	Date        time.Time
}

// Create records an expense. Drivers may only record fuel receipts; every
// other role records any type. A linked completed trip is re-reconciled.
func (s *Service) Create(ctx context.Context, role auth.Role, cmd CreateCommand) (*Expense, error) {
	if !ValidType(cmd.Type) || cmd.Amount < 0 || cmd.Date.IsZero() {
		return nil, ErrBadRequest
	}
	if !auth.CanCreateExpenseType(role, string(cmd.Type)) {
		return nil, ErrPermission
	}
	if cmd.TripID != nil {
		if _, err := s.trips.Get(ctx, *cmd.TripID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	e := &Expense{
		ID:          types.NewID(),
		TripID:      cmd.TripID,
		TruckID:     cmd.TruckID,
		ClientID:    cmd.ClientID,
		Type:        cmd.Type,
		Amount:      cmd.Amount,
		Description: cmd.Description,
		Date:        cmd.Date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, err
	}

	s.reconcileLinked(ctx, e.TripID)

	s.dispatcher.Send(notify.EventExpenseCreated, map[string]any{
		"expense_id":  string(e.ID),
		"trip_id":     idOrNil(e.TripID),
		"truck_id":    idOrNil(e.TruckID),
		"type":        string(e.Type),
		"amount":      e.Amount,
		"description": e.Description,
		"date":        e.Date.UTC().Format(time.RFC3339),
	})
	if s.highAmount > 0 && e.Amount >= s.highAmount {
		s.dispatcher.Send(notify.EventExpenseHighValue, map[string]any{
			"expense_id":  string(e.ID),
			"type":        string(e.Type),
			"amount":      e.Amount,
			"threshold":   s.highAmount,
			"description": e.Description,
		})
	}
	return e, nil
}

type UpdateCommand struct {
	ID          types.ID
	TripID      *types.ID
	TruckID     *types.ID
	ClientID    *types.ID
	Type        Type
	Amount      float64
	Description string
	Date        time.Time
}

// Update rewrites an expense. When the trip link changes both the old and the
// new trip are reconciled so neither keeps stale financials.
func (s *Service) Update(ctx context.Context, role auth.Role, cmd UpdateCommand) (*Expense, error) {
	if !ValidType(cmd.Type) || cmd.Amount < 0 || cmd.Date.IsZero() {
		return nil, ErrBadRequest
	}
	if !auth.CanCreateExpenseType(role, string(cmd.Type)) {
		return nil, ErrPermission
	}
	e, err := s.store.Get(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if !auth.CanCreateExpenseType(role, string(e.Type)) {
		return nil, ErrPermission
	}
	if cmd.TripID != nil {
		if _, err := s.trips.Get(ctx, *cmd.TripID); err != nil {
			return nil, err
		}
	}

	prevTrip := e.TripID
	e.TripID = cmd.TripID
	e.TruckID = cmd.TruckID
	e.ClientID = cmd.ClientID
	e.Type = cmd.Type
	e.Amount = cmd.Amount
	e.Description = cmd.Description
	e.Date = cmd.Date
	e.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}

	if prevTrip != nil && (e.TripID == nil || *prevTrip != *e.TripID) {
		s.reconcileLinked(ctx, prevTrip)
	}
	s.reconcileLinked(ctx, e.TripID)
	return e, nil
}

// Delete removes an expense. Expenses on completed trips rewrite settled
// financials, so their removal needs an elevated role.
func (s *Service) Delete(ctx context.Context, role auth.Role, id types.ID) error {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CanCreateExpenseType(role, string(e.Type)) {
		return ErrPermission
	}
	if e.TripID != nil {
		t, err := s.trips.Get(ctx, *e.TripID)
		if err == nil && t.Status == trip.StatusCompleted && !auth.CanDeleteCompletedExpense(role) {
			return ErrPermission
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.reconcileLinked(ctx, e.TripID)
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Expense, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Expense, error) {
	return s.store.List(ctx, f)
}

// reconcileLinked recomputes the linked trip's financials after a mutation.
// Failures are logged; the expense write has already happened and stands.
func (s *Service) reconcileLinked(ctx context.Context, tripID *types.ID) {
	if tripID == nil {
		return
	}
	if err := s.trips.ReconcileTrip(ctx, *tripID); err != nil {
		s.log.WithError(err).WithField("trip_id", string(*tripID)).
			Warn("expense: reconciliation after mutation failed")
	}
}

func idOrNil(id *types.ID) any {
	if id == nil {
		return nil
	}
	return string(*id)
}
