// README: Settings singleton (diesel price used for the fuel-estimate fallback).
package finance

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrBadRequest = errors.New("bad request")

type Settings struct {
	DieselPrice float64
	UpdatedAt   time.Time
}

type SettingsStore struct {
	db *pgxpool.Pool
}

func NewSettingsStore(db *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the settings row, or zero settings when none has been saved yet
// (the fuel estimate is then simply disabled).
func (s *SettingsStore) Get(ctx context.Context) (Settings, error) {
	row := s.db.QueryRow(ctx, `SELECT diesel_price, updated_at FROM settings WHERE id = 1`)
	var out Settings
	err := row.Scan(&out.DieselPrice, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	return out, nil
}

func (s *SettingsStore) Update(ctx context.Context, dieselPrice float64) (Settings, error) {
	if dieselPrice < 0 {
		return Settings{}, ErrBadRequest
	}
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		INSERT INTO settings (id, diesel_price, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET diesel_price = EXCLUDED.diesel_price, updated_at = EXCLUDED.updated_at`,
		dieselPrice, now,
	)
	if err != nil {
		return Settings{}, err
	}
	return Settings{DieselPrice: dieselPrice, UpdatedAt: now}, nil
}
