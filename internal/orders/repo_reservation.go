package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
)

var holdTables = map[HoldKind]string{
	HoldProduct:     "products",
	HoldOptionValue: "option_values",
}

// reserve takes every hold with a conditional decrement, so two checkouts
// racing for the last unit cannot both succeed. Holds must be sorted; a
// shortfall aborts the transaction (the caller rolls back).
func reserve(ctx context.Context, tx pgx.Tx, orderID string, holds []Hold) error {
	for _, h := range holds {
		table, ok := holdTables[h.Kind]
		if !ok {
			return fmt.Errorf("unknown hold kind %q", h.Kind)
		}
		ct, err := tx.Exec(ctx, `
			UPDATE `+table+` SET stock = stock - $2
			WHERE id=$1 AND stock >= $2 AND deleted_at IS NULL`, h.ID, h.Qty)
		if err != nil {
			return fmt.Errorf("reserve %s %s: %w", h.Kind, h.ID, err)
		}
		if ct.RowsAffected() != 1 {
			var stock int
			if err := tx.QueryRow(ctx, `SELECT stock FROM `+table+` WHERE id=$1 AND deleted_at IS NULL`, h.ID).Scan(&stock); err != nil {
				stock = 0
			}
			return apperr.InsufficientStock(h.Label, stock, h.Qty)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations(order_id, item_kind, item_id, qty, status)
			VALUES ($1,$2,$3,$4,'RESERVED')
			ON CONFLICT (order_id, item_kind, item_id) DO NOTHING`,
			orderID, string(h.Kind), h.ID, h.Qty); err != nil {
			return fmt.Errorf("record reservation: %w", err)
		}
	}
	return nil
}

// release gives back every RESERVED hold of the order and marks it RELEASED.
func release(ctx context.Context, tx pgx.Tx, orderID string) error {
	rows, err := tx.Query(ctx, `
		SELECT item_kind, item_id, qty FROM reservations
		WHERE order_id=$1 AND status='RESERVED'
		ORDER BY item_kind, item_id`, orderID)
	if err != nil {
		return fmt.Errorf("load reservations: %w", err)
	}
	var holds []Hold
	for rows.Next() {
		var (
			h    Hold
			kind string
		)
		if err := rows.Scan(&kind, &h.ID, &h.Qty); err != nil {
			rows.Close()
			return err
		}
		h.Kind = HoldKind(kind)
		holds = append(holds, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, h := range holds {
		table, ok := holdTables[h.Kind]
		if !ok {
			return fmt.Errorf("unknown hold kind %q", h.Kind)
		}
		// soft-deleted rows still get their stock back
		if _, err := tx.Exec(ctx, `UPDATE `+table+` SET stock = stock + $2 WHERE id=$1`, h.ID, h.Qty); err != nil {
			return fmt.Errorf("release %s %s: %w", h.Kind, h.ID, err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE reservations SET status='RELEASED' WHERE order_id=$1 AND status='RESERVED'`, orderID); err != nil {
		return fmt.Errorf("mark released: %w", err)
	}
	return nil
}
