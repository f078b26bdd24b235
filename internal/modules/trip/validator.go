// README: Scheduling validator; retroactive-date and minimum-separation rules.
package trip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetops/internal/types"
)

var (
	// ErrRetroactiveSchedule rejects trip creation with a start in the past.
	ErrRetroactiveSchedule = errors.New("start date must not be in the past")
	// ErrScheduleBusy means another schedule attempt for the same truck or
	// driver holds the validation lock right now.
	ErrScheduleBusy = errors.New("concurrent scheduling attempt for the same truck or driver")
)

// ConflictError reports a minimum-separation violation. GapHours is rendered
// with one decimal so callers can show the exact offending interval.
type ConflictError struct {
	Resource string // "truck" or "driver"
	TripID   types.ID
	Gap      time.Duration
	Min      time.Duration
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already has a trip %.1fh from the proposed start (minimum %.1fh)",
		e.Resource, e.Gap.Hours(), e.Min.Hours())
}

// ActiveTrip is the slice of a trip the separation check needs. Only trips in
// PLANNED, DELAYED or IN_PROGRESS take part.
type ActiveTrip struct {
	ID        types.ID
	TruckID   types.ID
	DriverID  types.ID
	StartDate time.Time
}

// checkSeparation enforces the minimum gap against every active trip sharing
// the truck or the driver, using the absolute difference of start times. The
// truck check runs first; either failing blocks the schedule.
func checkSeparation(proposed time.Time, truckID, driverID, exclude types.ID, existing []ActiveTrip, min time.Duration) error {
	gap := func(e ActiveTrip) time.Duration {
		d := proposed.Sub(e.StartDate)
		if d < 0 {
			d = -d
		}
		return d
	}
	for _, e := range existing {
		if e.ID == exclude || e.TruckID != truckID {
			continue
		}
		if g := gap(e); g < min {
			return &ConflictError{Resource: "truck", TripID: e.ID, Gap: g, Min: min}
		}
	}
	for _, e := range existing {
		if e.ID == exclude || e.DriverID != driverID {
			continue
		}
		if g := gap(e); g < min {
			return &ConflictError{Resource: "driver", TripID: e.ID, Gap: g, Min: min}
		}
	}
	return nil
}

// ActiveTripSource lists active trips touching either resource.
type ActiveTripSource interface {
	ListActive(ctx context.Context, truckID, driverID types.ID) ([]ActiveTrip, error)
}

// Validator guards trip scheduling. The redis client serializes concurrent
// schedule attempts per truck and per driver so the read-then-write check
// cannot race; a nil client degrades to the unguarded check.
type Validator struct {
	source ActiveTripSource
	redis  *redis.Client
	minSep time.Duration
	now    func() time.Time
}

func NewValidator(source ActiveTripSource, redisClient *redis.Client, minSep time.Duration) *Validator {
	return &Validator{source: source, redis: redisClient, minSep: minSep, now: time.Now}
}

// MinSeparation exposes the configured gap for event payloads.
func (v *Validator) MinSeparation() time.Duration { return v.minSep }

// ValidateSchedule applies the scheduling rules. excludeTripID is set when
// re-validating an edit; the retroactive check only applies at creation.
func (v *Validator) ValidateSchedule(ctx context.Context, truckID, driverID types.ID, proposedStart time.Time, excludeTripID types.ID) error {
	if excludeTripID == "" && proposedStart.Before(v.now()) {
		return ErrRetroactiveSchedule
	}
	existing, err := v.source.ListActive(ctx, truckID, driverID)
	if err != nil {
		return err
	}
	return checkSeparation(proposedStart, truckID, driverID, excludeTripID, existing, v.minSep)
}

const lockTTL = 5 * time.Second

// Lock takes the per-truck and per-driver scheduling mutexes for the duration
// of a check-then-write sequence. The returned release func must be called
// once the write has committed or failed.
func (v *Validator) Lock(ctx context.Context, truckID, driverID types.ID) (func(), error) {
	if v.redis == nil {
		return func() {}, nil
	}
	keys := []string{
		fmt.Sprintf("sched:truck:%s", string(truckID)),
		fmt.Sprintf("sched:driver:%s", string(driverID)),
	}
	var held []string
	release := func() {
		for _, k := range held {
			v.redis.Del(context.Background(), k)
		}
	}
	for _, k := range keys {
		ok, err := v.redis.SetNX(ctx, k, "1", lockTTL).Result()
		if err != nil {
			release()
			return nil, err
		}
		if !ok {
			release()
			return nil, ErrScheduleBusy
		}
		held = append(held, k)
	}
	return release, nil
}
