package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore reads the catalog tables. Money columns are NUMERIC and are moved
// through text so no precision is lost on the way to decimal.Decimal.
type PGStore struct{ DB *pgxpool.Pool }

const productColumns = `id, name, price::text, stock, COALESCE(category_id::text, ''), image_url, deleted_at, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &price, &p.Stock, &p.CategoryID, &p.ImageURL, &p.DeletedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("product %s price %q: %w", p.ID, price, err)
	}
	p.Price = d
	return p, nil
}

func (s *PGStore) GetProduct(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, apperr.NotFound("product %s not found", id)
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

func (s *PGStore) GetProducts(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *PGStore) OptionTypes(ctx context.Context, productIDs []string) (map[string][]OptionType, error) {
	out := make(map[string][]OptionType, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, product_id, name
		FROM option_types
		WHERE product_id = ANY($1::uuid[]) AND deleted_at IS NULL
		ORDER BY product_id, name`, productIDs)
	if err != nil {
		return nil, fmt.Errorf("get option types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var t OptionType
		if err := rows.Scan(&t.ID, &t.ProductID, &t.Name); err != nil {
			return nil, err
		}
		out[t.ProductID] = append(out[t.ProductID], t)
	}
	return out, rows.Err()
}

func (s *PGStore) OptionValues(ctx context.Context, ids []string) (map[string]OptionValue, error) {
	out := make(map[string]OptionValue, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `
		SELECT id, option_type_id, value, price_delta::text, stock
		FROM option_values
		WHERE id = ANY($1::uuid[]) AND deleted_at IS NULL`, ids)
	if err != nil {
		return nil, fmt.Errorf("get option values: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			v     OptionValue
			delta string
		)
		if err := rows.Scan(&v.ID, &v.OptionTypeID, &v.Value, &delta, &v.Stock); err != nil {
			return nil, err
		}
		if v.PriceDelta, err = decimal.NewFromString(delta); err != nil {
			return nil, fmt.Errorf("option value %s delta %q: %w", v.ID, delta, err)
		}
		out[v.ID] = v
	}
	return out, rows.Err()
}
