// README: Fleet store backed by PostgreSQL.
package fleet

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fleetops/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) CreateTruck(ctx context.Context, t *Truck) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trucks (id, plate, make, model, avg_consumption, current_mileage, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(t.ID), t.Plate, t.Make, t.Model, t.AvgConsumption, t.CurrentMileage, string(t.Status), t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *Store) GetTruck(ctx context.Context, id types.ID) (*Truck, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, plate, make, model, avg_consumption, current_mileage, status, created_at, updated_at
		FROM trucks WHERE id = $1`, string(id),
	)
	var t Truck
	err := row.Scan(&t.ID, &t.Plate, &t.Make, &t.Model, &t.AvgConsumption, &t.CurrentMileage, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) ListTrucks(ctx context.Context) ([]Truck, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, plate, make, model, avg_consumption, current_mileage, status, created_at, updated_at
		FROM trucks ORDER BY plate`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Truck
	for rows.Next() {
		var t Truck
		if err := rows.Scan(&t.ID, &t.Plate, &t.Make, &t.Model, &t.AvgConsumption, &t.CurrentMileage, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SetTruckMileage(ctx context.Context, id types.ID, mileage float64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trucks SET current_mileage = $1, updated_at = NOW() WHERE id = $2`,
		mileage, string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetTruckStatus(ctx context.Context, id types.ID, status TruckStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trucks SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) CreateDriver(ctx context.Context, d *Driver) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (id, name, phone, license_no, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		string(d.ID), d.Name, d.Phone, d.LicenseNo, d.CreatedAt,
	)
	return err
}

func (s *Store) GetDriver(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, phone, license_no, created_at FROM drivers WHERE id = $1`, string(id),
	)
	var d Driver
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.LicenseNo, &d.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ListDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, phone, license_no, created_at FROM drivers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		var d Driver
		if err := rows.Scan(&d.ID, &d.Name, &d.Phone, &d.LicenseNo, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
