// README: Trip lifecycle service; scheduling, start/finish, edits, cancellation, reconciliation.
package trip

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"fleetops/internal/modules/finance"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/notify"
	"fleetops/internal/types"
)

var (
	ErrNotFound       = errors.New("trip not found")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidState   = errors.New("invalid trip state transition")
	ErrNotEditable    = errors.New("trip can only be edited while planned or delayed")
	ErrNotDeletable   = errors.New("in-progress and completed trips are never deletable")
	ErrInvalidMileage = errors.New("end mileage must not be below start mileage")
	ErrConflict       = errors.New("trip was modified concurrently")
)

// TripStore is the persistence surface the service needs. *Store implements it.
type TripStore interface {
	Create(ctx context.Context, t *Trip) error
	Get(ctx context.Context, id types.ID) (*Trip, error)
	List(ctx context.Context, f Filter) ([]Trip, error)
	Update(ctx context.Context, t *Trip) error
	Delete(ctx context.Context, id types.ID) error
	ListActive(ctx context.Context, truckID, driverID types.ID) ([]ActiveTrip, error)
	// StartTrip atomically moves the trip to IN_PROGRESS and the truck to
	// IN_TRANSIT; reports false when the trip was no longer startable.
	StartTrip(ctx context.Context, tripID, truckID types.ID, startMileage float64, startedAt time.Time) (bool, error)
	// CompleteTrip applies the trip completion and the truck update in one
	// transaction; reports false when the trip was no longer IN_PROGRESS.
	CompleteTrip(ctx context.Context, p CompleteParams) (bool, error)
	// CancelTrip atomically cancels the trip and, when it was in progress,
	// returns the truck to the garage.
	CancelTrip(ctx context.Context, tripID, truckID types.ID, releaseTruck bool) (bool, error)
	// MarkDelayed flips every PLANNED trip whose start has passed to DELAYED
	// and returns them.
	MarkDelayed(ctx context.Context, now time.Time) ([]DelayedTrip, error)
	UpdateFinancials(ctx context.Context, id types.ID, b finance.Breakdown) error
}

// Filter narrows trip listings.
type Filter struct {
	Status   Status
	TruckID  types.ID
	DriverID types.ID
}

// CompleteParams carries everything the atomic completion write needs.
type CompleteParams struct {
	TripID     types.ID
	TruckID    types.ID
	EndDate    time.Time
	EndMileage *float64
	Distance   float64
	Breakdown  finance.Breakdown
	// SetTruckMileage is true when EndMileage was supplied and must become the
	// truck's odometer reading.
	SetTruckMileage bool
}

// DelayedTrip is returned by the sweep for event payloads.
type DelayedTrip struct {
	ID        types.ID
	TruckID   types.ID
	DriverID  types.ID
	StartDate time.Time
}

// TruckSource and DriverSource are implemented by the fleet store.
type TruckSource interface {
	GetTruck(ctx context.Context, id types.ID) (*fleet.Truck, error)
}

type DriverSource interface {
	GetDriver(ctx context.Context, id types.ID) (*fleet.Driver, error)
}

// ExpenseSource lists a trip's expenses as reconciler lines. Implemented by
// the expense store.
type ExpenseSource interface {
	LinesByTrip(ctx context.Context, tripID types.ID) ([]finance.ExpenseLine, error)
}

// SettingsSource supplies the diesel price. Implemented by finance.SettingsStore.
type SettingsSource interface {
	Get(ctx context.Context) (finance.Settings, error)
}

// OverdueChecker runs the maintenance overdue scan after mileage changes.
type OverdueChecker interface {
	CheckOverdue(ctx context.Context, truck *fleet.Truck) (int, error)
}

// DistanceEstimator supplies a planned distance from origin/destination when
// no odometer data exists yet. Optional.
type DistanceEstimator interface {
	EstimateDistanceKm(ctx context.Context, origin, destination string) (float64, error)
}

type Service struct {
	store      TripStore
	validator  *Validator
	trucks     TruckSource
	drivers    DriverSource
	expenses   ExpenseSource
	settings   SettingsSource
	maint      OverdueChecker
	estimator  DistanceEstimator
	dispatcher notify.Dispatcher

	lowProfitPct float64
	sweepTick    time.Duration
	now          func() time.Time
	log          *logrus.Logger
}

// Deps bundles the service collaborators.
type Deps struct {
	Store      TripStore
	Validator  *Validator
	Trucks     TruckSource
	Drivers    DriverSource
	Expenses   ExpenseSource
	Settings   SettingsSource
	Monitor    OverdueChecker
	Estimator  DistanceEstimator
	Dispatcher notify.Dispatcher
	Log        *logrus.Logger

	LowProfitMarginPct float64
	SweepTick          time.Duration
}

func NewService(d Deps) *Service {
	dispatcher := d.Dispatcher
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}
	tick := d.SweepTick
	if tick <= 0 {
		tick = time.Minute
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:        d.Store,
		validator:    d.Validator,
		trucks:       d.Trucks,
		drivers:      d.Drivers,
		expenses:     d.Expenses,
		settings:     d.Settings,
		maint:        d.Monitor,
		estimator:    d.Estimator,
		dispatcher:   dispatcher,
		lowProfitPct: d.LowProfitMarginPct,
		sweepTick:    tick,
		now:          time.Now,
		log:          log,
	}
}

type ScheduleCommand struct {
	TruckID     types.ID
	DriverID    types.ID
	TrailerID   *types.ID
	ClientID    *types.ID
	TripCode    *string
	Origin      string
	Destination string
	StartDate   time.Time
	Revenue     float64
}

// Schedule validates and creates a PLANNED trip. The scheduling lock spans the
// conflict check and the insert so two concurrent attempts for the same truck
// or driver cannot both pass.
func (s *Service) Schedule(ctx context.Context, cmd ScheduleCommand) (*Trip, error) {
	if cmd.TruckID == "" || cmd.DriverID == "" || cmd.Origin == "" || cmd.Destination == "" ||
		cmd.StartDate.IsZero() || cmd.Revenue < 0 {
		return nil, ErrBadRequest
	}
	truck, err := s.trucks.GetTruck(ctx, cmd.TruckID)
	if err != nil {
		return nil, err
	}
	driver, err := s.drivers.GetDriver(ctx, cmd.DriverID)
	if err != nil {
		return nil, err
	}

	release, err := s.validator.Lock(ctx, cmd.TruckID, cmd.DriverID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.validator.ValidateSchedule(ctx, cmd.TruckID, cmd.DriverID, cmd.StartDate, ""); err != nil {
		return nil, err
	}

	var distance float64
	if s.estimator != nil {
		if km, err := s.estimator.EstimateDistanceKm(ctx, cmd.Origin, cmd.Destination); err == nil {
			distance = km
		} else {
			s.log.WithError(err).Debug("trip: distance estimate unavailable")
		}
	}

	now := s.now().UTC()
	t := &Trip{
		ID:          types.NewID(),
		TruckID:     cmd.TruckID,
		DriverID:    cmd.DriverID,
		TrailerID:   cmd.TrailerID,
		ClientID:    cmd.ClientID,
		TripCode:    cmd.TripCode,
		Origin:      cmd.Origin,
		Destination: cmd.Destination,
		StartDate:   cmd.StartDate,
		Distance:    distance,
		Revenue:     cmd.Revenue,
		Status:      StatusPlanned,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	s.dispatcher.Send(notify.EventTripScheduled, map[string]any{
		"trip_id":      string(t.ID),
		"trip_code":    strOrNil(t.TripCode),
		"truck_id":     string(truck.ID),
		"truck_plate":  truck.Plate,
		"driver_id":    string(driver.ID),
		"driver_name":  driver.Name,
		"driver_phone": driver.Phone,
		"origin":       t.Origin,
		"destination":  t.Destination,
		"start_date":   t.StartDate.UTC().Format(time.RFC3339),
		"revenue":      t.Revenue,
	})
	return t, nil
}

// Start moves a planned or delayed trip into progress, capturing the truck's
// current odometer reading and overwriting the scheduled start with now.
func (s *Service) Start(ctx context.Context, id types.ID) (*Trip, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(t.Status, StatusInProgress) {
		return nil, ErrInvalidState
	}
	truck, err := s.trucks.GetTruck(ctx, t.TruckID)
	if err != nil {
		return nil, err
	}

	startMileage := truck.CurrentMileage
	startedAt := s.now().UTC()
	ok, err := s.store.StartTrip(ctx, t.ID, t.TruckID, startMileage, startedAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	t.Status = StatusInProgress
	t.StartMileage = &startMileage
	t.StartDate = startedAt
	return t, nil
}

type FinishCommand struct {
	TripID     types.ID
	EndMileage *float64
	EndDate    *time.Time
}

// Finish completes an in-progress trip: derives distance from the mileage
// delta, reconciles financials against the trip's expenses, and applies the
// trip and truck updates in a single transaction. Events go out after commit.
func (s *Service) Finish(ctx context.Context, cmd FinishCommand) (*Trip, error) {
	t, err := s.store.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(t.Status, StatusCompleted) {
		return nil, ErrInvalidState
	}
	truck, err := s.trucks.GetTruck(ctx, t.TruckID)
	if err != nil {
		return nil, err
	}

	distance := t.Distance
	if cmd.EndMileage != nil && t.StartMileage != nil {
		d := *cmd.EndMileage - *t.StartMileage
		if d < 0 {
			return nil, ErrInvalidMileage
		}
		distance = d
	}

	lines, err := s.expenses.LinesByTrip(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	breakdown := finance.Reconcile(t.Revenue, distance, truck.AvgConsumption, settings.DieselPrice, lines)

	endDate := s.now().UTC()
	if cmd.EndDate != nil {
		endDate = cmd.EndDate.UTC()
	}

	ok, err := s.store.CompleteTrip(ctx, CompleteParams{
		TripID:          t.ID,
		TruckID:         t.TruckID,
		EndDate:         endDate,
		EndMileage:      cmd.EndMileage,
		Distance:        distance,
		Breakdown:       breakdown,
		SetTruckMileage: cmd.EndMileage != nil,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	t.Status = StatusCompleted
	t.EndDate = &endDate
	t.EndMileage = cmd.EndMileage
	t.Distance = distance
	applyBreakdown(t, breakdown)

	if cmd.EndMileage != nil {
		truck.CurrentMileage = *cmd.EndMileage
	}
	truck.Status = fleet.StatusGarage
	if s.maint != nil {
		if _, err := s.maint.CheckOverdue(ctx, truck); err != nil {
			s.log.WithError(err).WithField("truck_id", truck.ID).Warn("trip: overdue check failed")
		}
	}

	driverName, driverPhone := "", ""
	if driver, err := s.drivers.GetDriver(ctx, t.DriverID); err == nil {
		driverName, driverPhone = driver.Name, driver.Phone
	}
	s.dispatcher.Send(notify.EventTripCompleted, map[string]any{
		"trip_id":       string(t.ID),
		"trip_code":     strOrNil(t.TripCode),
		"truck_id":      string(truck.ID),
		"truck_plate":   truck.Plate,
		"driver_name":   driverName,
		"driver_phone":  driverPhone,
		"distance_km":   t.Distance,
		"revenue":       t.Revenue,
		"total_cost":    t.TotalCost,
		"profit":        t.Profit,
		"profit_margin": t.ProfitMargin,
	})
	if t.ProfitMargin < s.lowProfitPct {
		s.dispatcher.Send(notify.EventTripLowProfit, map[string]any{
			"trip_id":       string(t.ID),
			"truck_plate":   truck.Plate,
			"profit_margin": t.ProfitMargin,
			"threshold":     s.lowProfitPct,
		})
	}
	return t, nil
}

type EditCommand struct {
	TripID      types.ID
	TruckID     *types.ID
	DriverID    *types.ID
	TrailerID   *types.ID
	ClientID    *types.ID
	TripCode    *string
	Origin      *string
	Destination *string
	StartDate   *time.Time
	Revenue     *float64
}

// Edit changes a trip that has not started yet. Moving the truck, the driver
// or the start time re-runs the scheduling validator (without the retroactive
// check); nothing here triggers reconciliation.
func (s *Service) Edit(ctx context.Context, cmd EditCommand) (*Trip, error) {
	t, err := s.store.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, err
	}
	if !Editable(t.Status) {
		return nil, ErrNotEditable
	}
	if cmd.Revenue != nil && *cmd.Revenue < 0 {
		return nil, ErrBadRequest
	}

	newTruck, newDriver, newStart := t.TruckID, t.DriverID, t.StartDate
	if cmd.TruckID != nil {
		newTruck = *cmd.TruckID
	}
	if cmd.DriverID != nil {
		newDriver = *cmd.DriverID
	}
	if cmd.StartDate != nil {
		newStart = *cmd.StartDate
	}
	reschedule := newTruck != t.TruckID || newDriver != t.DriverID || !newStart.Equal(t.StartDate)

	if reschedule {
		if newTruck != t.TruckID {
			if _, err := s.trucks.GetTruck(ctx, newTruck); err != nil {
				return nil, err
			}
		}
		if newDriver != t.DriverID {
			if _, err := s.drivers.GetDriver(ctx, newDriver); err != nil {
				return nil, err
			}
		}
		release, err := s.validator.Lock(ctx, newTruck, newDriver)
		if err != nil {
			return nil, err
		}
		defer release()
		if err := s.validator.ValidateSchedule(ctx, newTruck, newDriver, newStart, t.ID); err != nil {
			return nil, err
		}
	}

	t.TruckID, t.DriverID, t.StartDate = newTruck, newDriver, newStart
	if cmd.TrailerID != nil {
		t.TrailerID = cmd.TrailerID
	}
	if cmd.ClientID != nil {
		t.ClientID = cmd.ClientID
	}
	if cmd.TripCode != nil {
		t.TripCode = cmd.TripCode
	}
	if cmd.Origin != nil {
		t.Origin = *cmd.Origin
	}
	if cmd.Destination != nil {
		t.Destination = *cmd.Destination
	}
	if cmd.Revenue != nil {
		t.Revenue = *cmd.Revenue
	}
	t.UpdatedAt = s.now().UTC()

	if err := s.store.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Cancel moves any non-terminal trip to CANCELLED, releasing the truck when
// the trip was under way.
func (s *Service) Cancel(ctx context.Context, id types.ID) (*Trip, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(t.Status, StatusCancelled) {
		return nil, ErrInvalidState
	}
	releaseTruck := t.Status == StatusInProgress
	ok, err := s.store.CancelTrip(ctx, t.ID, t.TruckID, releaseTruck)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}
	t.Status = StatusCancelled
	return t, nil
}

// Delete removes a trip record. In-progress and completed trips are never
// deletable; role restrictions beyond that are the calling layer's concern.
func (s *Service) Delete(ctx context.Context, id types.ID) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status == StatusInProgress || t.Status == StatusCompleted {
		return ErrNotDeletable
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Trip, error) {
	return s.store.List(ctx, f)
}

// ReconcileTrip recomputes a completed trip's financials from its current
// expenses. It is the single path every expense mutation funnels through;
// trips that are not completed are left untouched.
func (s *Service) ReconcileTrip(ctx context.Context, id types.ID) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if t.Status != StatusCompleted {
		return nil
	}
	truck, err := s.trucks.GetTruck(ctx, t.TruckID)
	if err != nil {
		return err
	}
	lines, err := s.expenses.LinesByTrip(ctx, t.ID)
	if err != nil {
		return err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return err
	}
	breakdown := finance.Reconcile(t.Revenue, t.Distance, truck.AvgConsumption, settings.DieselPrice, lines)
	return s.store.UpdateFinancials(ctx, t.ID, breakdown)
}

// SweepDelayed flips every planned trip whose scheduled start has passed to
// DELAYED and emits trip.delayed for each. Idempotent; safe to run
// concurrently with itself.
func (s *Service) SweepDelayed(ctx context.Context, now time.Time) (int, error) {
	delayed, err := s.store.MarkDelayed(ctx, now)
	if err != nil {
		return 0, err
	}
	for _, d := range delayed {
		s.dispatcher.Send(notify.EventTripDelayed, map[string]any{
			"trip_id":         string(d.ID),
			"truck_id":        string(d.TruckID),
			"driver_id":       string(d.DriverID),
			"scheduled_start": d.StartDate.UTC().Format(time.RFC3339),
			"delayed_at":      now.UTC().Format(time.RFC3339),
		})
	}
	return len(delayed), nil
}

// RunDelaySweeper periodically runs SweepDelayed until ctx is cancelled.
func (s *Service) RunDelaySweeper(ctx context.Context) {
	ticker := time.NewTicker(s.sweepTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepDelayed(ctx, s.now().UTC()); err != nil {
				s.log.WithError(err).Warn("trip: delay sweep failed")
			}
		}
	}
}

func applyBreakdown(t *Trip, b finance.Breakdown) {
	t.FuelCost = b.FuelCost
	t.TollCost = b.TollCost
	t.OtherCosts = b.OtherCosts
	t.TotalCost = b.TotalCost
	t.Profit = b.Profit
	t.ProfitMargin = b.ProfitMargin
	t.FuelEstimated = b.FuelEstimated
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
