package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PGRepo struct{ DB *pgxpool.Pool }

const orderColumns = `
	id, customer_id, items, subtotal::text, tax::text, shipping::text, total::text, currency,
	address, status, payment_method, payment_status, payment_amount::text, payment_ref,
	paid_at, cancel_reason, cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                                 Order
		items, addr                       []byte
		subtotal, tax, ship, total, payAm string
		status, method, payStatus         string
	)
	err := row.Scan(&o.ID, &o.CustomerID, &items, &subtotal, &tax, &ship, &total, &o.Currency,
		&addr, &status, &method, &payStatus, &payAm, &o.Payment.ProviderRef,
		&o.Payment.PaidAt, &o.CancelReason, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode items of %s: %w", o.ID, err)
	}
	if err := json.Unmarshal(addr, &o.Address); err != nil {
		return nil, fmt.Errorf("decode address of %s: %w", o.ID, err)
	}
	for dst, src := range map[*decimal.Decimal]string{
		&o.Subtotal: subtotal, &o.Tax: tax, &o.Shipping: ship, &o.Total: total, &o.Payment.Amount: payAm,
	} {
		d, err := decimal.NewFromString(src)
		if err != nil {
			return nil, fmt.Errorf("decode amount of %s: %w", o.ID, err)
		}
		*dst = d
	}
	o.Status = Status(status)
	o.Payment.Method = PaymentMethod(method)
	o.Payment.Status = PaymentStatus(payStatus)
	o.Sync()
	return &o, nil
}

// Create inserts the order, reserves its stock and clears the cart atomically.
func (r *PGRepo) Create(ctx context.Context, o *Order, holds []Hold, cartVersion int) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	addr, err := json.Marshal(o.Address)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, customer_id, items, subtotal, tax, shipping, total, currency,
			address, status, payment_method, payment_status, payment_amount, payment_ref,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4::numeric,$5::numeric,$6::numeric,$7::numeric,$8,$9,$10,$11,$12,$13::numeric,$14,$15,$15)`,
		o.ID, o.CustomerID, items, o.Subtotal.String(), o.Tax.String(), o.Shipping.String(), o.Total.String(), o.Currency,
		addr, string(o.Status), string(o.Payment.Method), string(o.Payment.Status), o.Payment.Amount.String(), o.Payment.ProviderRef,
		o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	// reservations reference the order row, so it has to exist first
	if err := reserve(ctx, tx, o.ID, holds); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx, `
		UPDATE carts SET lines='[]'::jsonb, version=version+1, updated_at=now()
		WHERE customer_id=$1 AND version=$2`, o.CustomerID, cartVersion)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return apperr.Conflict("cart changed during checkout, please review it and retry")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *PGRepo) Get(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return o, nil
}

func (r *PGRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]Order, int, error) {
	var total int
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE customer_id=$1`, customerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE customer_id=$1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`, customerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *o)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) Cancel(ctx context.Context, id string, from Status, payFrom, payTo PaymentStatus, reason string, at time.Time) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$3, payment_status=$5, cancel_reason=$6, cancelled_at=$7, updated_at=$7
		WHERE id=$1 AND status=$2 AND payment_status=$4`,
		id, string(from), string(StatusCancelled), string(payFrom), string(payTo), reason, at)
	if err != nil {
		return fmt.Errorf("cancel order %s: %w", id, err)
	}
	if ct.RowsAffected() != 1 {
		return apperr.Conflict("order %s changed concurrently, please retry", id)
	}
	if err := release(ctx, tx, id); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cancel: %w", err)
	}
	return nil
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status=$3, updated_at=$4 WHERE id=$1 AND status=$2`,
		id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update status %s: %w", id, err)
	}
	if ct.RowsAffected() != 1 {
		return apperr.Conflict("order %s is no longer %s", id, from)
	}
	return nil
}

func (r *PGRepo) UpdatePayment(ctx context.Context, id string, from, to PaymentStatus, at time.Time) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders SET payment_status=$3, updated_at=$4,
			paid_at = CASE WHEN $3 = 'completed' THEN $4 ELSE paid_at END
		WHERE id=$1 AND payment_status=$2`,
		id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update payment %s: %w", id, err)
	}
	if ct.RowsAffected() != 1 {
		return apperr.Conflict("payment of order %s is no longer %s", id, from)
	}
	return nil
}

func (r *PGRepo) ListRefundPending(ctx context.Context, cancelledBefore time.Time, limit int) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE payment_status='refund-pending' AND cancelled_at < $1
		ORDER BY cancelled_at, id LIMIT $2`, cancelledBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list refund-pending orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// PGAddressBook reads the account service's addresses table.
type PGAddressBook struct{ DB *pgxpool.Pool }

func (b *PGAddressBook) Get(ctx context.Context, customerID, addressID string) (Address, error) {
	var a Address
	err := b.DB.QueryRow(ctx, `
		SELECT id, full_name, phone, line1, line2, city, state, postal_code, country
		FROM addresses WHERE id=$1 AND customer_id=$2 AND deleted_at IS NULL`, addressID, customerID).
		Scan(&a.ID, &a.FullName, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.State, &a.PostalCode, &a.Country)
	if errors.Is(err, pgx.ErrNoRows) {
		return Address{}, apperr.NotFound("address %s not found", addressID)
	}
	if err != nil {
		return Address{}, fmt.Errorf("get address %s: %w", addressID, err)
	}
	return a, nil
}
