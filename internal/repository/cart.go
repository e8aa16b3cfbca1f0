package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/go-storefront/internal/model"
)

// CartRepository stores one row per cart with its lines as a JSONB snapshot.
type CartRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.Cart, error)
	Create(ctx context.Context, cart *model.Cart) error
	Update(ctx context.Context, cart *model.Cart) error
	Clear(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
	DeleteByUserID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
	AssignToUser(ctx context.Context, tx pgx.Tx, cartID, userID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

const cartColumns = `id, session_cart_id, user_id, items, items_price, shipping_price, tax_price, total_price,
	created_at, updated_at`

func scanCart(row pgx.Row) (*model.Cart, error) {
	c := &model.Cart{}
	err := row.Scan(
		&c.ID, &c.SessionCartID, &c.UserID, &c.Items, &c.ItemsPrice, &c.ShippingPrice, &c.TaxPrice, &c.TotalPrice,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func cartItems(items []model.CartItem) []model.CartItem {
	if items == nil {
		return []model.CartItem{}
	}
	return items
}

func (r *pgCartRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *pgCartRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	cart, err := scanCart(r.pool.QueryRow(ctx, `SELECT `+cartColumns+` FROM carts WHERE user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart by user: %w", err)
	}
	return cart, nil
}

// GetBySessionID only returns guest carts; a cart already claimed by a user is
// reachable through GetByUserID.
func (r *pgCartRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Cart, error) {
	cart, err := scanCart(r.pool.QueryRow(ctx,
		`SELECT `+cartColumns+` FROM carts WHERE session_cart_id = $1 AND user_id IS NULL
		 ORDER BY created_at DESC LIMIT 1`, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart by session: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) Create(ctx context.Context, cart *model.Cart) error {
	cart.ID = uuid.New()
	cart.Items = cartItems(cart.Items)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO carts (id, session_cart_id, user_id, items, items_price, shipping_price, tax_price, total_price,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`,
		cart.ID, cart.SessionCartID, cart.UserID, cart.Items,
		cart.ItemsPrice, cart.ShippingPrice, cart.TaxPrice, cart.TotalPrice,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) Update(ctx context.Context, cart *model.Cart) error {
	cart.Items = cartItems(cart.Items)
	err := r.pool.QueryRow(ctx,
		`UPDATE carts SET items = $2, items_price = $3, shipping_price = $4, tax_price = $5, total_price = $6,
			updated_at = NOW()
		 WHERE id = $1 RETURNING updated_at`,
		cart.ID, cart.Items, cart.ItemsPrice, cart.ShippingPrice, cart.TaxPrice, cart.TotalPrice,
	).Scan(&cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

// Clear empties the cart in place; the row itself is kept for reuse.
func (r *pgCartRepo) Clear(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	ct, err := tx.Exec(ctx,
		`UPDATE carts SET items = '[]', items_price = 0, shipping_price = 0, tax_price = 0, total_price = 0,
			updated_at = NOW()
		 WHERE id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) DeleteByUserID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) AssignToUser(ctx context.Context, tx pgx.Tx, cartID, userID uuid.UUID) error {
	ct, err := tx.Exec(ctx, `UPDATE carts SET user_id = $2, updated_at = NOW() WHERE id = $1`, cartID, userID)
	if err != nil {
		return fmt.Errorf("assign cart: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
