package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepo keeps one row per customer with the lines as JSONB.
type PGRepo struct{ DB *pgxpool.Pool }

func (r *PGRepo) get(ctx context.Context, customerID string) (*Cart, error) {
	var (
		c   = &Cart{CustomerID: customerID}
		raw []byte
	)
	err := r.DB.QueryRow(ctx, `
		SELECT lines, version, created_at, updated_at
		FROM carts WHERE customer_id=$1`, customerID).
		Scan(&raw, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &c.Lines); err != nil {
		return nil, fmt.Errorf("decode cart lines: %w", err)
	}
	return c, nil
}

func (r *PGRepo) GetOrCreate(ctx context.Context, customerID string) (*Cart, error) {
	c, err := r.get(ctx, customerID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	// lazily create; a concurrent first access may win the insert
	if _, err := r.DB.Exec(ctx, `
		INSERT INTO carts(customer_id, lines) VALUES ($1, '[]'::jsonb)
		ON CONFLICT (customer_id) DO NOTHING`, customerID); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	c, err = r.get(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return c, nil
}

func (r *PGRepo) Save(ctx context.Context, c *Cart) error {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart lines: %w", err)
	}
	err = r.DB.QueryRow(ctx, `
		UPDATE carts SET lines=$2, version=version+1, updated_at=now()
		WHERE customer_id=$1 AND version=$3
		RETURNING version, updated_at`, c.CustomerID, raw, c.Version).
		Scan(&c.Version, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Conflict("cart was modified concurrently, please retry")
	}
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
