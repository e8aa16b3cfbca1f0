package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront/internal/model"
)

type OrderRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error
	CreateItem(ctx context.Context, tx pgx.Tx, item *model.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, int, error)
	List(ctx context.Context, query string, limit, offset int) ([]model.Order, int, error)
	SetPaymentResult(ctx context.Context, id uuid.UUID, result model.PaymentResult) error
	MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time, result *model.PaymentResult) error
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, months, latest int) (*model.SalesSummary, error)
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `o.id, o.user_id, o.shipping_address, o.payment_method, o.payment_result,
	o.items_price, o.shipping_price, o.tax_price, o.total_price,
	o.is_paid, o.paid_at, o.is_delivered, o.delivered_at, o.created_at, u.name, u.email`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var method string
	err := row.Scan(
		&o.ID, &o.UserID, &o.ShippingAddress, &method, &o.PaymentResult,
		&o.ItemsPrice, &o.ShippingPrice, &o.TaxPrice, &o.TotalPrice,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt, &o.UserName, &o.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	o.PaymentMethod = model.PaymentMethod(method)
	return o, nil
}

func (r *pgOrderRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *pgOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	order.ID = uuid.New()
	err := tx.QueryRow(ctx,
		`INSERT INTO orders (id, user_id, shipping_address, payment_method, items_price, shipping_price,
			tax_price, total_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING created_at`,
		order.ID, order.UserID, order.ShippingAddress, string(order.PaymentMethod),
		order.ItemsPrice, order.ShippingPrice, order.TaxPrice, order.TotalPrice,
	).Scan(&order.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) CreateItem(ctx context.Context, tx pgx.Tx, item *model.OrderItem) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO order_items (order_id, product_id, name, slug, image, price, qty)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.OrderID, item.ProductID, item.Name, item.Slug, item.Image, item.Price, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o JOIN users u ON u.id = o.user_id WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT product_id, name, slug, image, price, qty FROM order_items WHERE order_id = $1 ORDER BY name`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := model.OrderItem{OrderID: order.ID}
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Slug, &item.Image, &item.Price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return order, rows.Err()
}

func (r *pgOrderRepo) listOrders(ctx context.Context, where string, args []any, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders o JOIN users u ON u.id = o.user_id `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM orders o JOIN users u ON u.id = o.user_id %s
		ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, orderColumns, where, n+1, n+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Order, int, error) {
	return r.listOrders(ctx, `WHERE o.user_id = $1`, []any{userID}, limit, offset)
}

// List filters by customer name when query is not empty.
func (r *pgOrderRepo) List(ctx context.Context, query string, limit, offset int) ([]model.Order, int, error) {
	return r.listOrders(ctx, `WHERE ($1 = '' OR u.name ILIKE '%' || $1 || '%')`, []any{query}, limit, offset)
}

// SetPaymentResult never overwrites a completed capture or touches a paid order.
func (r *pgOrderRepo) SetPaymentResult(ctx context.Context, id uuid.UUID, result model.PaymentResult) error {
	ct, err := r.pool.Exec(ctx, `
		UPDATE orders SET payment_result = $2
		WHERE id = $1 AND NOT is_paid
		  AND COALESCE(payment_result->>'status', '') <> 'COMPLETED'`, id, result)
	if err != nil {
		return fmt.Errorf("set payment result: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkPaid flips is_paid only on an unpaid order. pgx.ErrNoRows means the order
// is gone or somebody else paid it first.
func (r *pgOrderRepo) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time, result *model.PaymentResult) error {
	ct, err := tx.Exec(ctx,
		`UPDATE orders SET is_paid = TRUE, paid_at = $2, payment_result = $3 WHERE id = $1 AND NOT is_paid`,
		id, paidAt, result,
	)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET is_delivered = TRUE, delivered_at = $2 WHERE id = $1 AND is_paid`, id, deliveredAt,
	)
	if err != nil {
		return fmt.Errorf("mark order delivered: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Summary gathers the back-office overview: entity counts, paid sales in total
// and per month (MM/YY) for the last months, and the latest orders.
func (r *pgOrderRepo) Summary(ctx context.Context, months, latest int) (*model.SalesSummary, error) {
	s := &model.SalesSummary{}
	err := r.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM orders),
				(SELECT COUNT(*) FROM products),
				(SELECT COUNT(*) FROM users),
				(SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE is_paid)`,
	).Scan(&s.OrdersCount, &s.ProductsCount, &s.UsersCount, &s.TotalSales)
	if err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT to_char(date_trunc('month', created_at), 'MM/YY') AS month, SUM(total_price)
		 FROM orders
		 WHERE is_paid AND created_at >= date_trunc('month', NOW()) - make_interval(months => $1 - 1)
		 GROUP BY date_trunc('month', created_at)
		 ORDER BY date_trunc('month', created_at)`, months,
	)
	if err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}
	for rows.Next() {
		var m model.MonthlySales
		if err := rows.Scan(&m.Month, &m.TotalSales); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan monthly sales: %w", err)
		}
		s.SalesData = append(s.SalesData, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly sales: %w", err)
	}

	s.LatestSales, _, err = r.List(ctx, "", latest, 0)
	if err != nil {
		return nil, err
	}
	return s, nil
}
