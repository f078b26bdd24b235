package trip

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"fleetops/internal/modules/finance"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/types"
)

// fakeBackend is an in-memory TripStore that also serves truck, driver and
// expense lookups, mirroring the transactional store's observable behavior.
type fakeBackend struct {
	mu      sync.Mutex
	trips   map[types.ID]*Trip
	trucks  map[types.ID]*fleet.Truck
	drivers map[types.ID]*fleet.Driver
	lines   map[types.ID][]finance.ExpenseLine
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		trips:   map[types.ID]*Trip{},
		trucks:  map[types.ID]*fleet.Truck{},
		drivers: map[types.ID]*fleet.Driver{},
		lines:   map[types.ID][]finance.ExpenseLine{},
	}
}

func (f *fakeBackend) Create(_ context.Context, t *Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.trips[t.ID] = &cp
	return nil
}

func (f *fakeBackend) Get(_ context.Context, id types.ID) (*Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeBackend) List(_ context.Context, filter Filter) ([]Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Trip
	for _, t := range f.trips {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.TruckID != "" && t.TruckID != filter.TruckID {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeBackend) Update(_ context.Context, t *Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.trips[t.ID]; !ok {
		return ErrNotFound
	}
	cp := *t
	f.trips[t.ID] = &cp
	return nil
}

func (f *fakeBackend) Delete(_ context.Context, id types.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.trips[id]; !ok {
		return ErrNotFound
	}
	delete(f.trips, id)
	return nil
}

func (f *fakeBackend) ListActive(_ context.Context, truckID, driverID types.ID) ([]ActiveTrip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ActiveTrip
	for _, t := range f.trips {
		if IsTerminal(t.Status) {
			continue
		}
		if t.TruckID != truckID && t.DriverID != driverID {
			continue
		}
		out = append(out, ActiveTrip{ID: t.ID, TruckID: t.TruckID, DriverID: t.DriverID, StartDate: t.StartDate})
	}
	return out, nil
}

func (f *fakeBackend) StartTrip(_ context.Context, tripID, truckID types.ID, startMileage float64, startedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripID]
	if !ok || (t.Status != StatusPlanned && t.Status != StatusDelayed) {
		return false, nil
	}
	t.Status = StatusInProgress
	t.StartMileage = &startMileage
	t.StartDate = startedAt
	if truck, ok := f.trucks[truckID]; ok {
		truck.Status = fleet.StatusInTransit
	}
	return true, nil
}

func (f *fakeBackend) CompleteTrip(_ context.Context, p CompleteParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[p.TripID]
	if !ok || t.Status != StatusInProgress {
		return false, nil
	}
	t.Status = StatusCompleted
	t.EndDate = &p.EndDate
	t.EndMileage = p.EndMileage
	t.Distance = p.Distance
	applyBreakdown(t, p.Breakdown)
	if truck, ok := f.trucks[p.TruckID]; ok {
		truck.Status = fleet.StatusGarage
		if p.SetTruckMileage && p.EndMileage != nil {
			truck.CurrentMileage = *p.EndMileage
		}
	}
	return true, nil
}

func (f *fakeBackend) CancelTrip(_ context.Context, tripID, truckID types.ID, releaseTruck bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripID]
	if !ok || IsTerminal(t.Status) {
		return false, nil
	}
	t.Status = StatusCancelled
	if releaseTruck {
		if truck, ok := f.trucks[truckID]; ok {
			truck.Status = fleet.StatusGarage
		}
	}
	return true, nil
}

func (f *fakeBackend) MarkDelayed(_ context.Context, now time.Time) ([]DelayedTrip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []DelayedTrip
	for _, t := range f.trips {
		if t.Status == StatusPlanned && t.StartDate.Before(now) {
			t.Status = StatusDelayed
			out = append(out, DelayedTrip{ID: t.ID, TruckID: t.TruckID, DriverID: t.DriverID, StartDate: t.StartDate})
		}
	}
	return out, nil
}

func (f *fakeBackend) UpdateFinancials(_ context.Context, id types.ID, b finance.Breakdown) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[id]
	if !ok {
		return ErrNotFound
	}
	applyBreakdown(t, b)
	return nil
}

func (f *fakeBackend) GetTruck(_ context.Context, id types.ID) (*fleet.Truck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	truck, ok := f.trucks[id]
	if !ok {
		return nil, fleet.ErrNotFound
	}
	cp := *truck
	return &cp, nil
}

func (f *fakeBackend) GetDriver(_ context.Context, id types.ID) (*fleet.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[id]
	if !ok {
		return nil, fleet.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeBackend) LinesByTrip(_ context.Context, tripID types.ID) ([]finance.ExpenseLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finance.ExpenseLine(nil), f.lines[tripID]...), nil
}

func (f *fakeBackend) truckStatus(id types.ID) fleet.TruckStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trucks[id].Status
}

// fakeSettings serves a fixed diesel price.
type fakeSettings struct {
	price float64
}

func (f *fakeSettings) Get(context.Context) (finance.Settings, error) {
	return finance.Settings{DieselPrice: f.price}, nil
}

// overdueRecorder captures the trucks the post-completion check saw.
type overdueRecorder struct {
	mu     sync.Mutex
	trucks []fleet.Truck
}

func (o *overdueRecorder) CheckOverdue(_ context.Context, truck *fleet.Truck) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.trucks = append(o.trucks, *truck)
	return 0, nil
}

// recorderDispatcher captures events synchronously for assertions.
type recorderDispatcher struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	name    string
	payload map[string]any
}

func (r *recorderDispatcher) Send(name string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: name, payload: payload})
}

func (r *recorderDispatcher) byName(name string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

var testNow = time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC)

type testRig struct {
	backend  *fakeBackend
	settings *fakeSettings
	overdue  *overdueRecorder
	events   *recorderDispatcher
	svc      *Service
}

func newTestRig() *testRig {
	backend := newFakeBackend()
	backend.trucks["truck-1"] = &fleet.Truck{
		ID: "truck-1", Plate: "AB-123-CD", AvgConsumption: 10,
		CurrentMileage: 120_000, Status: fleet.StatusGarage,
	}
	backend.trucks["truck-2"] = &fleet.Truck{
		ID: "truck-2", Plate: "EF-456-GH", AvgConsumption: 8,
		CurrentMileage: 80_000, Status: fleet.StatusGarage,
	}
	backend.drivers["driver-1"] = &fleet.Driver{ID: "driver-1", Name: "Ana Silva", Phone: "+351911111111"}
	backend.drivers["driver-2"] = &fleet.Driver{ID: "driver-2", Name: "Rui Costa", Phone: "+351922222222"}

	settings := &fakeSettings{price: 6}
	overdue := &overdueRecorder{}
	events := &recorderDispatcher{}

	validator := NewValidator(backend, nil, 3*time.Hour)
	validator.now = func() time.Time { return testNow }

	svc := NewService(Deps{
		Store:              backend,
		Validator:          validator,
		Trucks:             backend,
		Drivers:            backend,
		Expenses:           backend,
		Settings:           settings,
		Monitor:            overdue,
		Dispatcher:         events,
		LowProfitMarginPct: 10,
	})
	svc.now = func() time.Time { return testNow }

	return &testRig{backend: backend, settings: settings, overdue: overdue, events: events, svc: svc}
}

func (r *testRig) schedule(t *testing.T, start time.Time) *Trip {
	t.Helper()
	trip, err := r.svc.Schedule(context.Background(), ScheduleCommand{
		TruckID:     "truck-1",
		DriverID:    "driver-1",
		Origin:      "Porto",
		Destination: "Madrid",
		StartDate:   start,
		Revenue:     1000,
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	return trip
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScheduleCreatesPlannedTrip(t *testing.T) {
	rig := newTestRig()
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

	trip := rig.schedule(t, start)
	if trip.Status != StatusPlanned {
		t.Errorf("status = %s, want PLANNED", trip.Status)
	}
	if _, err := rig.backend.Get(context.Background(), trip.ID); err != nil {
		t.Fatalf("trip not persisted: %v", err)
	}

	events := rig.events.byName("trip.scheduled")
	if len(events) != 1 {
		t.Fatalf("trip.scheduled events = %d, want 1", len(events))
	}
	p := events[0].payload
	if p["truck_plate"] != "AB-123-CD" || p["driver_name"] != "Ana Silva" {
		t.Errorf("payload = %v", p)
	}
}

func TestScheduleRejectsConflicts(t *testing.T) {
	rig := newTestRig()
	rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// same truck two hours later
	_, err := rig.svc.Schedule(ctx, ScheduleCommand{
		TruckID: "truck-1", DriverID: "driver-2",
		Origin: "Porto", Destination: "Lisboa",
		StartDate: time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC),
		Revenue:   500,
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Resource != "truck" {
		t.Fatalf("err = %v, want truck ConflictError", err)
	}

	// same driver on another truck, ninety minutes earlier
	_, err = rig.svc.Schedule(ctx, ScheduleCommand{
		TruckID: "truck-2", DriverID: "driver-1",
		Origin: "Porto", Destination: "Lisboa",
		StartDate: time.Date(2024, 1, 10, 6, 30, 0, 0, time.UTC),
		Revenue:   500,
	})
	if !errors.As(err, &conflict) || conflict.Resource != "driver" {
		t.Fatalf("err = %v, want driver ConflictError", err)
	}

	// only the original trip ever landed, and only one event went out
	if n := len(rig.events.byName("trip.scheduled")); n != 1 {
		t.Errorf("trip.scheduled events = %d, want 1", n)
	}
}

func TestScheduleRejectsPastStart(t *testing.T) {
	rig := newTestRig()
	_, err := rig.svc.Schedule(context.Background(), ScheduleCommand{
		TruckID: "truck-1", DriverID: "driver-1",
		Origin: "Porto", Destination: "Madrid",
		StartDate: testNow.Add(-time.Hour),
		Revenue:   1000,
	})
	if err != ErrRetroactiveSchedule {
		t.Fatalf("err = %v, want ErrRetroactiveSchedule", err)
	}
}

func TestStartCapturesOdometer(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

	started, err := rig.svc.Start(context.Background(), trip.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != StatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", started.Status)
	}
	if started.StartMileage == nil || *started.StartMileage != 120_000 {
		t.Errorf("start mileage = %v, want 120000", started.StartMileage)
	}
	if !started.StartDate.Equal(testNow) {
		t.Errorf("start date = %v, want %v", started.StartDate, testNow)
	}
	if rig.backend.truckStatus("truck-1") != fleet.StatusInTransit {
		t.Error("truck not marked IN_TRANSIT")
	}

	// a second start must fail cleanly
	if _, err := rig.svc.Start(context.Background(), trip.ID); err != ErrInvalidState {
		t.Fatalf("second start err = %v, want ErrInvalidState", err)
	}
}

func finishTrip(t *testing.T, rig *testRig, tripID types.ID, endMileage float64) *Trip {
	t.Helper()
	done, err := rig.svc.Finish(context.Background(), FinishCommand{
		TripID:     tripID,
		EndMileage: &endMileage,
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return done
}

func TestFinishReconcilesAndUpdatesTruck(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	rig.backend.lines[trip.ID] = []finance.ExpenseLine{
		{Type: "FUEL", Amount: 200},
		{Type: "TOLL", Amount: 50},
		{Type: "FOOD", Amount: 30},
	}
	if _, err := rig.svc.Start(context.Background(), trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := finishTrip(t, rig, trip.ID, 120_500)

	if done.Status != StatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", done.Status)
	}
	if !almostEqual(done.Distance, 500) {
		t.Errorf("distance = %v, want 500", done.Distance)
	}
	if !almostEqual(done.TotalCost, 280) || !almostEqual(done.Profit, 720) || !almostEqual(done.ProfitMargin, 72) {
		t.Errorf("financials = %v/%v/%v, want 280/720/72", done.TotalCost, done.Profit, done.ProfitMargin)
	}
	if done.FuelEstimated {
		t.Error("fuel was recorded; estimate flag must be off")
	}

	if rig.backend.truckStatus("truck-1") != fleet.StatusGarage {
		t.Error("truck not returned to garage")
	}
	truck, _ := rig.backend.GetTruck(context.Background(), "truck-1")
	if truck.CurrentMileage != 120_500 {
		t.Errorf("truck mileage = %v, want 120500", truck.CurrentMileage)
	}

	// the overdue check must see the post-trip odometer
	if len(rig.overdue.trucks) != 1 || rig.overdue.trucks[0].CurrentMileage != 120_500 {
		t.Errorf("overdue check trucks = %+v", rig.overdue.trucks)
	}

	completed := rig.events.byName("trip.completed")
	if len(completed) != 1 {
		t.Fatalf("trip.completed events = %d, want 1", len(completed))
	}
	if completed[0].payload["profit_margin"] != 72.0 {
		t.Errorf("profit_margin = %v", completed[0].payload["profit_margin"])
	}
	if len(rig.events.byName("trip.low_profit")) != 0 {
		t.Error("72% margin must not fire low_profit")
	}
}

func TestFinishUsesFuelEstimateWhenNoFuelRecorded(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	if _, err := rig.svc.Start(context.Background(), trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// 500 km at 10 km/L and 6/L → 300 estimated fuel cost
	done := finishTrip(t, rig, trip.ID, 120_500)
	if !almostEqual(done.FuelCost, 300) || !done.FuelEstimated {
		t.Errorf("fuel = %v (estimated=%v), want 300 estimated", done.FuelCost, done.FuelEstimated)
	}
}

func TestFinishGuards(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// not started yet
	end := 120_100.0
	if _, err := rig.svc.Finish(ctx, FinishCommand{TripID: trip.ID, EndMileage: &end}); err != ErrInvalidState {
		t.Fatalf("planned finish err = %v, want ErrInvalidState", err)
	}

	if _, err := rig.svc.Start(ctx, trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// odometer went backwards
	bad := 119_000.0
	if _, err := rig.svc.Finish(ctx, FinishCommand{TripID: trip.ID, EndMileage: &bad}); err != ErrInvalidMileage {
		t.Fatalf("rollback finish err = %v, want ErrInvalidMileage", err)
	}
	cur, _ := rig.backend.Get(ctx, trip.ID)
	if cur.Status != StatusInProgress {
		t.Errorf("status = %s after refused finish, want IN_PROGRESS", cur.Status)
	}
}

func TestFinishLowProfitEvent(t *testing.T) {
	rig := newTestRig()
	trip, err := rig.svc.Schedule(context.Background(), ScheduleCommand{
		TruckID: "truck-1", DriverID: "driver-1",
		Origin: "Porto", Destination: "Braga",
		StartDate: time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC),
		Revenue:   100,
	})
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	rig.backend.lines[trip.ID] = []finance.ExpenseLine{{Type: "FUEL", Amount: 95}}
	if _, err := rig.svc.Start(context.Background(), trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := finishTrip(t, rig, trip.ID, 120_050)
	if !almostEqual(done.ProfitMargin, 5) {
		t.Fatalf("margin = %v, want 5", done.ProfitMargin)
	}
	events := rig.events.byName("trip.low_profit")
	if len(events) != 1 {
		t.Fatalf("low_profit events = %d, want 1", len(events))
	}
	if events[0].payload["threshold"] != 10.0 {
		t.Errorf("threshold = %v", events[0].payload["threshold"])
	}
}

func TestEditRevenueWithoutReschedule(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))

	// park a conflicting trip on the same truck; a revenue-only edit must not
	// re-run the separation check
	rig.backend.trips["other"] = &Trip{
		ID: "other", TruckID: "truck-1", DriverID: "driver-2",
		Status: StatusPlanned, StartDate: trip.StartDate.Add(time.Hour),
	}

	revenue := 1500.0
	edited, err := rig.svc.Edit(context.Background(), EditCommand{TripID: trip.ID, Revenue: &revenue})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if edited.Revenue != 1500 {
		t.Errorf("revenue = %v, want 1500", edited.Revenue)
	}
}

func TestEditRescheduleRevalidates(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	rig.backend.trips["other"] = &Trip{
		ID: "other", TruckID: "truck-2", DriverID: "driver-2",
		Status: StatusPlanned, StartDate: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	ctx := context.Background()

	// moving onto truck-2 collides with the other trip
	target := types.ID("truck-2")
	_, err := rig.svc.Edit(ctx, EditCommand{TripID: trip.ID, TruckID: &target})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Resource != "truck" {
		t.Fatalf("err = %v, want truck ConflictError", err)
	}

	// moving the start well clear succeeds even against its own old slot
	newStart := time.Date(2024, 1, 12, 8, 0, 0, 0, time.UTC)
	edited, err := rig.svc.Edit(ctx, EditCommand{TripID: trip.ID, StartDate: &newStart})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if !edited.StartDate.Equal(newStart) {
		t.Errorf("start = %v, want %v", edited.StartDate, newStart)
	}
}

func TestEditGatedByStatus(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	if _, err := rig.svc.Start(ctx, trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	revenue := 900.0
	if _, err := rig.svc.Edit(ctx, EditCommand{TripID: trip.ID, Revenue: &revenue}); err != ErrNotEditable {
		t.Fatalf("err = %v, want ErrNotEditable", err)
	}
}

func TestCancelReleasesTruckWhenUnderWay(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()
	if _, err := rig.svc.Start(ctx, trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cancelled, err := rig.svc.Cancel(ctx, trip.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}
	if rig.backend.truckStatus("truck-1") != fleet.StatusGarage {
		t.Error("truck not released")
	}

	// terminal trips stay terminal
	if _, err := rig.svc.Cancel(ctx, trip.ID); err != ErrInvalidState {
		t.Fatalf("double cancel err = %v, want ErrInvalidState", err)
	}
}

func TestDeleteStructuralRules(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := rig.svc.Start(ctx, trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := rig.svc.Delete(ctx, trip.ID); err != ErrNotDeletable {
		t.Fatalf("in-progress delete err = %v, want ErrNotDeletable", err)
	}

	end := 120_100.0
	if _, err := rig.svc.Finish(ctx, FinishCommand{TripID: trip.ID, EndMileage: &end}); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := rig.svc.Delete(ctx, trip.ID); err != ErrNotDeletable {
		t.Fatalf("completed delete err = %v, want ErrNotDeletable", err)
	}

	planned := rig.schedule(t, time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC))
	if err := rig.svc.Delete(ctx, planned.ID); err != nil {
		t.Fatalf("planned delete err = %v", err)
	}
}

func TestSweepDelayedIsIdempotent(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	ctx := context.Background()

	later := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	n, err := rig.svc.SweepDelayed(ctx, later)
	if err != nil {
		t.Fatalf("SweepDelayed: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}
	cur, _ := rig.backend.Get(ctx, trip.ID)
	if cur.Status != StatusDelayed {
		t.Errorf("status = %s, want DELAYED", cur.Status)
	}
	events := rig.events.byName("trip.delayed")
	if len(events) != 1 {
		t.Fatalf("trip.delayed events = %d, want 1", len(events))
	}

	// a second pass finds nothing
	n, err = rig.svc.SweepDelayed(ctx, later.Add(time.Hour))
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep = %d, want 0", n)
	}
	if len(rig.events.byName("trip.delayed")) != 1 {
		t.Error("no new events expected on the second sweep")
	}

	// a delayed trip can still start
	if _, err := rig.svc.Start(ctx, trip.ID); err != nil {
		t.Fatalf("Start after delay: %v", err)
	}
}

func TestReconcileTripIgnoresUnfinished(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	rig.backend.lines[trip.ID] = []finance.ExpenseLine{{Type: "FUEL", Amount: 999}}

	if err := rig.svc.ReconcileTrip(context.Background(), trip.ID); err != nil {
		t.Fatalf("ReconcileTrip: %v", err)
	}
	cur, _ := rig.backend.Get(context.Background(), trip.ID)
	if cur.FuelCost != 0 || cur.TotalCost != 0 {
		t.Errorf("unfinished trip got financials: %v/%v", cur.FuelCost, cur.TotalCost)
	}
}

func TestReconcileTripRecomputesCompleted(t *testing.T) {
	rig := newTestRig()
	trip := rig.schedule(t, time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	rig.backend.lines[trip.ID] = []finance.ExpenseLine{{Type: "FUEL", Amount: 200}}
	ctx := context.Background()
	if _, err := rig.svc.Start(ctx, trip.ID); err != nil {
		t.Fatalf("Start: %v", err)
	}
	finishTrip(t, rig, trip.ID, 120_500)

	// a late toll shows up
	rig.backend.lines[trip.ID] = append(rig.backend.lines[trip.ID], finance.ExpenseLine{Type: "TOLL", Amount: 40})
	if err := rig.svc.ReconcileTrip(ctx, trip.ID); err != nil {
		t.Fatalf("ReconcileTrip: %v", err)
	}

	cur, _ := rig.backend.Get(ctx, trip.ID)
	if !almostEqual(cur.TollCost, 40) || !almostEqual(cur.TotalCost, 240) || !almostEqual(cur.Profit, 760) {
		t.Errorf("financials = %v/%v/%v, want 40/240/760", cur.TollCost, cur.TotalCost, cur.Profit)
	}
}
