// README: Trip store backed by PostgreSQL; lifecycle writes are transactional.
package trip

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetops/internal/modules/finance"
	"fleetops/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const tripColumns = `
	id, truck_id, driver_id, trailer_id, client_id, trip_code,
	origin, destination, start_date, end_date, start_mileage, end_mileage,
	distance, revenue, fuel_cost, toll_cost, other_costs, total_cost,
	profit, profit_margin, fuel_estimated, status, created_at, updated_at`

func (s *Store) Create(ctx context.Context, t *Trip) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		string(t.ID), string(t.TruckID), string(t.DriverID), idPtr(t.TrailerID), idPtr(t.ClientID), t.TripCode,
		t.Origin, t.Destination, t.StartDate, t.EndDate, t.StartMileage, t.EndMileage,
		t.Distance, t.Revenue, t.FuelCost, t.TollCost, t.OtherCosts, t.TotalCost,
		t.Profit, t.ProfitMargin, t.FuelEstimated, string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, string(id))
	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE 1=1`
	args := []any{}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	if f.TruckID != "" {
		args = append(args, string(f.TruckID))
		query += ` AND truck_id = $` + strconv.Itoa(len(args))
	}
	if f.DriverID != "" {
		args = append(args, string(f.DriverID))
		query += ` AND driver_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY start_date DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, t *Trip) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips SET
			truck_id = $1, driver_id = $2, trailer_id = $3, client_id = $4, trip_code = $5,
			origin = $6, destination = $7, start_date = $8, revenue = $9, updated_at = $10
		WHERE id = $11`,
		string(t.TruckID), string(t.DriverID), idPtr(t.TrailerID), idPtr(t.ClientID), t.TripCode,
		t.Origin, t.Destination, t.StartDate, t.Revenue, t.UpdatedAt,
		string(t.ID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListActive(ctx context.Context, truckID, driverID types.ID) ([]ActiveTrip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, truck_id, driver_id, start_date
		FROM trips
		WHERE (truck_id = $1 OR driver_id = $2)
		  AND status IN ('PLANNED', 'DELAYED', 'IN_PROGRESS')`,
		string(truckID), string(driverID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ActiveTrip
	for rows.Next() {
		var a ActiveTrip
		if err := rows.Scan(&a.ID, &a.TruckID, &a.DriverID, &a.StartDate); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) StartTrip(ctx context.Context, tripID, truckID types.ID, startMileage float64, startedAt time.Time) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE trips SET status = 'IN_PROGRESS', start_mileage = $1, start_date = $2, updated_at = NOW()
		WHERE id = $3 AND status IN ('PLANNED', 'DELAYED')`,
		startMileage, startedAt, string(tripID),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE trucks SET status = 'IN_TRANSIT', updated_at = NOW() WHERE id = $1`,
		string(truckID),
	); err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

// CompleteTrip applies the trip completion and the truck update atomically; a
// partially applied finish (trip completed, truck untouched) must never be
// visible.
func (s *Store) CompleteTrip(ctx context.Context, p CompleteParams) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	b := p.Breakdown
	tag, err := tx.Exec(ctx, `
		UPDATE trips SET
			status = 'COMPLETED', end_date = $1, end_mileage = $2, distance = $3,
			fuel_cost = $4, toll_cost = $5, other_costs = $6, total_cost = $7,
			profit = $8, profit_margin = $9, fuel_estimated = $10, updated_at = NOW()
		WHERE id = $11 AND status = 'IN_PROGRESS'`,
		p.EndDate, p.EndMileage, p.Distance,
		b.FuelCost, b.TollCost, b.OtherCosts, b.TotalCost,
		b.Profit, b.ProfitMargin, b.FuelEstimated,
		string(p.TripID),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if p.SetTruckMileage {
		_, err = tx.Exec(ctx, `
			UPDATE trucks SET status = 'GARAGE', current_mileage = $1, updated_at = NOW() WHERE id = $2`,
			p.EndMileage, string(p.TruckID),
		)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE trucks SET status = 'GARAGE', updated_at = NOW() WHERE id = $1`,
			string(p.TruckID),
		)
	}
	if err != nil {
		return false, err
	}
	return true, tx.Commit(ctx)
}

func (s *Store) CancelTrip(ctx context.Context, tripID, truckID types.ID, releaseTruck bool) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE trips SET status = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND status IN ('PLANNED', 'DELAYED', 'IN_PROGRESS')`,
		string(tripID),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	if releaseTruck {
		if _, err := tx.Exec(ctx, `
			UPDATE trucks SET status = 'GARAGE', updated_at = NOW() WHERE id = $1`,
			string(truckID),
		); err != nil {
			return false, err
		}
	}
	return true, tx.Commit(ctx)
}

func (s *Store) MarkDelayed(ctx context.Context, now time.Time) ([]DelayedTrip, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE trips SET status = 'DELAYED', updated_at = NOW()
		WHERE status = 'PLANNED' AND start_date < $1
		RETURNING id, truck_id, driver_id, start_date`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DelayedTrip
	for rows.Next() {
		var d DelayedTrip
		if err := rows.Scan(&d.ID, &d.TruckID, &d.DriverID, &d.StartDate); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) UpdateFinancials(ctx context.Context, id types.ID, b finance.Breakdown) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips SET
			fuel_cost = $1, toll_cost = $2, other_costs = $3, total_cost = $4,
			profit = $5, profit_margin = $6, fuel_estimated = $7, updated_at = NOW()
		WHERE id = $8`,
		b.FuelCost, b.TollCost, b.OtherCosts, b.TotalCost,
		b.Profit, b.ProfitMargin, b.FuelEstimated,
		string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTrip(row pgx.Row) (*Trip, error) {
	var t Trip
	var trailerID, clientID *string
	err := row.Scan(
		&t.ID, &t.TruckID, &t.DriverID, &trailerID, &clientID, &t.TripCode,
		&t.Origin, &t.Destination, &t.StartDate, &t.EndDate, &t.StartMileage, &t.EndMileage,
		&t.Distance, &t.Revenue, &t.FuelCost, &t.TollCost, &t.OtherCosts, &t.TotalCost,
		&t.Profit, &t.ProfitMargin, &t.FuelEstimated, &t.Status, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if trailerID != nil {
		v := types.ID(*trailerID)
		t.TrailerID = &v
	}
	if clientID != nil {
		v := types.ID(*clientID)
		t.ClientID = &v
	}
	return &t, nil
}

func idPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
