package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Store persists orders and line items. Reads return raw records; callers
// run them through the Normalizer before use.
type Store struct {
	Pool *pgxpool.Pool
	Now  func() time.Time
}

func (s *Store) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// NextOrderNumber reserves the next human-readable order code for the day,
// formatted ORD-YYYYMMDD-NNNN.
func (s *Store) NextOrderNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	day := s.now().Format("20060102")
	const q = `
INSERT INTO order_counters (day, last_seq) VALUES ($1, 1)
ON CONFLICT (day) DO UPDATE SET last_seq = order_counters.last_seq + 1
RETURNING last_seq`
	var seq int
	if err := tx.QueryRow(ctx, q, day).Scan(&seq); err != nil {
		return "", fmt.Errorf("reserve order number: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%04d", day, seq), nil
}

// Create persists a canonical order and its items in one transaction. The
// order number is assigned server side; the caller's value is ignored.
func (s *Store) Create(ctx context.Context, o Order) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order store not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	number, err := s.NextOrderNumber(ctx, tx)
	if err != nil {
		return Order{}, err
	}
	o.OrderNumber = number
	o.CreatedAt = s.now()
	o.UpdatedAt = o.CreatedAt

	payload, err := json.Marshal(RawFromOrder(o))
	if err != nil {
		return Order{}, fmt.Errorf("encode order snapshot: %w", err)
	}

	const insertOrder = `
INSERT INTO orders (
  id, order_number, production_status, payment_status,
  subtotal, discount, service_fee, grand_total, paid_amount,
  customer_name, customer_phone, is_tempo, notes, created_by,
  payload, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err = tx.Exec(ctx, insertOrder,
		o.ID, o.OrderNumber, string(o.ProductionStatus), string(o.PaymentStatus),
		o.Subtotal, o.Discount, o.ServiceFee, o.GrandTotal, o.PaidAmount,
		o.Customer.Name, o.Customer.Phone, o.IsTempo, nullableString(o.Notes), nullableString(o.CreatedBy),
		payload, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}

	const insertItem = `
INSERT INTO order_items (id, order_id, product_id, product_name, qty, unit_price, subtotal, payload)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for i := range o.Items {
		item := &o.Items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		itemPayload, err := json.Marshal(RawFromItem(*item))
		if err != nil {
			return Order{}, fmt.Errorf("encode item %s: %w", item.ID, err)
		}
		if _, err := tx.Exec(ctx, insertItem,
			item.ID, o.ID, nullableString(item.ProductID), item.ProductName,
			item.Quantity, item.UnitPrice, item.Subtotal, itemPayload,
		); err != nil {
			return Order{}, fmt.Errorf("insert item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	return o, nil
}

// Get loads one raw order record with its items.
func (s *Store) Get(ctx context.Context, id string) (RawOrder, error) {
	raw, err := s.scanOrder(ctx, id)
	if err != nil {
		return RawOrder{}, err
	}
	items, err := s.scanItems(ctx, id)
	if err != nil {
		return RawOrder{}, err
	}
	raw.Items = items
	return raw, nil
}

// List returns raw order records without items, newest first, optionally
// filtered by production status.
func (s *Store) List(ctx context.Context, status *string, limit, offset int32) ([]RawOrder, error) {
	const q = `
SELECT id, order_number, production_status, payment_status,
       subtotal, discount, service_fee, grand_total, paid_amount,
       customer_name, customer_phone, is_tempo, notes, cancel_reason, created_by,
       created_at, updated_at
FROM orders
WHERE ($1::text IS NULL OR production_status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	rows, err := s.Pool.Query(ctx, q, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RawOrder
	for rows.Next() {
		raw, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// Count returns the number of orders matching the optional status filter.
func (s *Store) Count(ctx context.Context, status *string) (int64, error) {
	var total int64
	err := s.Pool.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE ($1::text IS NULL OR production_status = $1)`, status).
		Scan(&total)
	return total, err
}

// UpdatePayment stores the re-resolved payment state. The remaining amount
// is derived on read and never persisted.
func (s *Store) UpdatePayment(ctx context.Context, id string, paid int64, status string) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE orders SET paid_amount = $2, payment_status = $3, updated_at = $4 WHERE id = $1`,
		id, paid, status, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProduction advances the workflow status, optionally with a cancel reason.
func (s *Store) UpdateProduction(ctx context.Context, id, status string, cancelReason *string) error {
	tag, err := s.Pool.Exec(ctx,
		`UPDATE orders SET production_status = $2, cancel_reason = COALESCE($3, cancel_reason), updated_at = $4 WHERE id = $1`,
		id, status, cancelReason, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) scanOrder(ctx context.Context, id string) (RawOrder, error) {
	const q = `
SELECT id, order_number, production_status, payment_status,
       subtotal, discount, service_fee, grand_total, paid_amount,
       customer_name, customer_phone, is_tempo, notes, cancel_reason, created_by,
       created_at, updated_at
FROM orders WHERE id = $1`
	row := s.Pool.QueryRow(ctx, q, id)
	raw, err := scanOrderRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RawOrder{}, ErrNotFound
		}
		return RawOrder{}, err
	}
	return raw, nil
}

func (s *Store) scanItems(ctx context.Context, orderID string) ([]RawItem, error) {
	const q = `
SELECT id, product_id, product_name, qty, unit_price, subtotal, payload
FROM order_items WHERE order_id = $1 ORDER BY id`
	rows, err := s.Pool.Query(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RawItem
	for rows.Next() {
		var (
			id          string
			productID   pgtype.Text
			productName pgtype.Text
			qty         pgtype.Int4
			unitPrice   pgtype.Int8
			subtotal    pgtype.Int8
			payload     []byte
		)
		if err := rows.Scan(&id, &productID, &productName, &qty, &unitPrice, &subtotal, &payload); err != nil {
			return nil, err
		}
		var item RawItem
		if len(payload) > 0 {
			// Payload keeps whatever shape the writer produced; the scalar
			// columns below are the authoritative snake_case candidates.
			if err := json.Unmarshal(payload, &item); err != nil {
				item = RawItem{PayloadUnreadable: true}
			}
		}
		item.ID = id
		if productID.Valid {
			item.ProductID = &productID.String
		}
		if productName.Valid {
			item.ProductName = &productName.String
		}
		if qty.Valid {
			v := int(qty.Int32)
			item.Qty = &v
		}
		if unitPrice.Valid {
			item.UnitPrice = &unitPrice.Int64
		}
		if subtotal.Valid {
			item.Subtotal = &subtotal.Int64
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrderRow(row pgx.Row) (RawOrder, error) {
	var (
		raw          RawOrder
		number       pgtype.Text
		production   pgtype.Text
		payment      pgtype.Text
		subtotal     pgtype.Int8
		discount     pgtype.Int8
		serviceFee   pgtype.Int8
		grandTotal   pgtype.Int8
		paidAmount   pgtype.Int8
		custName     pgtype.Text
		custPhone    pgtype.Text
		isTempo      pgtype.Bool
		notes        pgtype.Text
		cancelReason pgtype.Text
		createdBy    pgtype.Text
		createdAt    pgtype.Timestamptz
		updatedAt    pgtype.Timestamptz
	)
	if err := row.Scan(
		&raw.ID, &number, &production, &payment,
		&subtotal, &discount, &serviceFee, &grandTotal, &paidAmount,
		&custName, &custPhone, &isTempo, &notes, &cancelReason, &createdBy,
		&createdAt, &updatedAt,
	); err != nil {
		return RawOrder{}, err
	}
	if number.Valid {
		raw.OrderNumber = &number.String
	}
	if production.Valid {
		raw.ProductionStatusSnake = &production.String
	}
	if payment.Valid {
		raw.PaymentStatus = &payment.String
	}
	if subtotal.Valid {
		raw.Subtotal = &subtotal.Int64
	}
	if discount.Valid {
		raw.Discount = &discount.Int64
	}
	if serviceFee.Valid {
		raw.ServiceFee = &serviceFee.Int64
	}
	if grandTotal.Valid {
		raw.GrandTotal = &grandTotal.Int64
	}
	if paidAmount.Valid {
		raw.PaidAmount = &paidAmount.Int64
	}
	if custName.Valid {
		raw.CustomerName = &custName.String
	}
	if custPhone.Valid {
		raw.CustomerPhone = &custPhone.String
	}
	if isTempo.Valid {
		raw.IsTempo = &isTempo.Bool
	}
	if notes.Valid {
		raw.Notes = &notes.String
	}
	if cancelReason.Valid {
		raw.CancelReason = &cancelReason.String
	}
	if createdBy.Valid {
		raw.CreatedBy = &createdBy.String
	}
	if createdAt.Valid {
		raw.CreatedAt = &createdAt.Time
	}
	if updatedAt.Valid {
		raw.UpdatedAt = &updatedAt.Time
	}
	return raw, nil
}

func nullableString(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
