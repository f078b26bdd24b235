// README: Maintenance store backed by PostgreSQL.
package maintenance

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

func (s *Store) Create(ctx context.Context, r *Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO maintenance_records (
			id, truck_id, description, scheduled_mileage, scheduled_date,
			status, priority, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(r.ID), string(r.TruckID), r.Description, r.ScheduledMileage, r.ScheduledDate,
		string(r.Status), string(r.Priority), r.CreatedAt, r.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Record, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, truck_id, description, scheduled_mileage, scheduled_date,
		       status, priority, created_at, updated_at
		FROM maintenance_records WHERE id = $1`, string(id),
	)
	r, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Store) ListByTruck(ctx context.Context, truckID types.ID) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, truck_id, description, scheduled_mileage, scheduled_date,
		       status, priority, created_at, updated_at
		FROM maintenance_records WHERE truck_id = $1 ORDER BY created_at`, string(truckID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Store) ListDue(ctx context.Context, truckID types.ID) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, truck_id, description, scheduled_mileage, scheduled_date,
		       status, priority, created_at, updated_at
		FROM maintenance_records
		WHERE truck_id = $1 AND status = 'SCHEDULED' AND scheduled_mileage IS NOT NULL`,
		string(truckID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *Store) MarkPending(ctx context.Context, id types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE maintenance_records SET status = 'PENDING', updated_at = NOW()
		WHERE id = $1 AND status = 'SCHEDULED'`, string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetStatus(ctx context.Context, id types.ID, status Status) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE maintenance_records SET status = $1, updated_at = NOW() WHERE id = $2`,
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

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM maintenance_records WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.TruckID, &r.Description, &r.ScheduledMileage, &r.ScheduledDate,
		&r.Status, &r.Priority, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
