package roomstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"partyseq/internal/model"
)

// Postgres stores each room as a jsonb snapshot keyed by its code, which
// keeps the store a plain key-value contract and makes writes wholesale
// row replacements.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	p := &Postgres{pool: pool}
	if err := p.ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS rooms (
			code       TEXT PRIMARY KEY,
			snapshot   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure rooms table: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) ([]*model.Room, error) {
	rows, err := p.pool.Query(ctx, `SELECT snapshot FROM rooms`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Room
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var room model.Room
		if err := json.Unmarshal(raw, &room); err != nil {
			return nil, fmt.Errorf("decode room snapshot: %w", err)
		}
		out = append(out, &room)
	}
	return out, rows.Err()
}

func (p *Postgres) Save(ctx context.Context, room *model.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room snapshot: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO rooms (code, snapshot, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (code) DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = now()`,
		room.Code, raw)
	return err
}

func (p *Postgres) Delete(ctx context.Context, code string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM rooms WHERE code = $1`, code)
	return err
}

func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
