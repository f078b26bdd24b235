// README: Expense store backed by PostgreSQL.
package expense

import (
	"context"
	"errors"
	"strconv"

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

const expenseColumns = `id, trip_id, truck_id, client_id, type, amount, description, date, created_at, updated_at`

func (s *Store) Create(ctx context.Context, e *Expense) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(e.ID), idPtr(e.TripID), idPtr(e.TruckID), idPtr(e.ClientID),
		string(e.Type), e.Amount, e.Description, e.Date, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Expense, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, string(id),
	)
	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, f Filter) ([]Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE 1=1`
	args := []any{}
	if f.TripID != "" {
		args = append(args, string(f.TripID))
		query += ` AND trip_id = $` + strconv.Itoa(len(args))
	}
	if f.TruckID != "" {
		args = append(args, string(f.TruckID))
		query += ` AND truck_id = $` + strconv.Itoa(len(args))
	}
	if f.Type != "" {
		args = append(args, string(f.Type))
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY date DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, e *Expense) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE expenses
		SET trip_id = $2, truck_id = $3, client_id = $4, type = $5,
		    amount = $6, description = $7, date = $8, updated_at = $9
		WHERE id = $1`,
		string(e.ID), idPtr(e.TripID), idPtr(e.TruckID), idPtr(e.ClientID),
		string(e.Type), e.Amount, e.Description, e.Date, e.UpdatedAt,
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
	tag, err := s.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LinesByTrip projects a trip's expenses down to reconciler lines.
func (s *Store) LinesByTrip(ctx context.Context, tripID types.ID) ([]finance.ExpenseLine, error) {
	rows, err := s.db.Query(ctx, `
		SELECT type, amount FROM expenses WHERE trip_id = $1`, string(tripID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []finance.ExpenseLine
	for rows.Next() {
		var l finance.ExpenseLine
		if err := rows.Scan(&l.Type, &l.Amount); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanExpense(row pgx.Row) (*Expense, error) {
	var e Expense
	var id string
	var tripID, truckID, clientID *string
	var typ string
	err := row.Scan(&id, &tripID, &truckID, &clientID, &typ,
		&e.Amount, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.ID = types.ID(id)
	e.TripID = toID(tripID)
	e.TruckID = toID(truckID)
	e.ClientID = toID(clientID)
	e.Type = Type(typ)
	return &e, nil
}

func idPtr(id *types.ID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

func toID(s *string) *types.ID {
	if s == nil {
		return nil
	}
	id := types.ID(*s)
	return &id
}
