package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	GetBySlug(ctx context.Context, slug string) (*model.Product, error)
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)
	Latest(ctx context.Context, limit int) ([]model.Product, error)
	Featured(ctx context.Context, limit int) ([]model.Product, error)
	Categories(ctx context.Context) ([]model.CategoryCount, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error
	UpdateRating(ctx context.Context, tx pgx.Tx, productID uuid.UUID, rating decimal.Decimal, numReviews int) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `id, name, slug, category, brand, description, images, price, stock,
	rating, num_reviews, is_featured, banner, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Category, &p.Brand, &p.Description, &p.Images, &p.Price, &p.Stock,
		&p.Rating, &p.NumReviews, &p.IsFeatured, &p.Banner, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]model.Product, error) {
	defer rows.Close()
	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	if product.Images == nil {
		product.Images = []string{}
	}
	query := `INSERT INTO products (id, name, slug, category, brand, description, images, price, stock,
				is_featured, banner, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			  RETURNING rating, num_reviews, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Slug, product.Category, product.Brand, product.Description,
		product.Images, product.Price, product.Stock, product.IsFeatured, product.Banner,
	).Scan(&product.Rating, &product.NumReviews, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *pgProductRepo) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return p, nil
}

var productSorts = map[string]string{
	"newest":  "created_at DESC",
	"lowest":  "price ASC",
	"highest": "price DESC",
	"rating":  "rating DESC",
}

func (r *pgProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, int, error) {
	orderBy, ok := productSorts[f.Sort]
	if !ok {
		orderBy = productSorts["newest"]
	}

	const where = `WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		AND ($2 = '' OR category = $2)
		AND ($3::numeric IS NULL OR price >= $3)
		AND ($4::numeric IS NULL OR price <= $4)
		AND rating >= $5`
	args := []any{f.Query, f.Category, f.MinPrice, f.MaxPrice, f.Rating}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY %s LIMIT $6 OFFSET $7`, productColumns, where, orderBy)
	rows, err := r.pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *pgProductRepo) Latest(ctx context.Context, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("latest products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) Featured(ctx context.Context, limit int) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_featured ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	return collectProducts(rows)
}

func (r *pgProductRepo) Categories(ctx context.Context) ([]model.CategoryCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM products GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	if product.Images == nil {
		product.Images = []string{}
	}
	query := `UPDATE products SET name=$2, slug=$3, category=$4, brand=$5, description=$6, images=$7,
				price=$8, stock=$9, is_featured=$10, banner=$11, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Slug, product.Category, product.Brand, product.Description,
		product.Images, product.Price, product.Stock, product.IsFeatured, product.Banner,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return fmt.Errorf("delete product: %w", ErrReferenced)
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DecrementStock only succeeds when enough stock is left; otherwise it returns
// ErrInsufficientStock and the caller is expected to roll back.
func (r *pgProductRepo) DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	ct, err := tx.Exec(ctx,
		`UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1 AND stock >= $2`,
		productID, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
	}
	return nil
}

func (r *pgProductRepo) UpdateRating(ctx context.Context, tx pgx.Tx, productID uuid.UUID, rating decimal.Decimal, numReviews int) error {
	_, err := tx.Exec(ctx,
		`UPDATE products SET rating = $2, num_reviews = $3, updated_at = NOW() WHERE id = $1`,
		productID, rating, numReviews,
	)
	if err != nil {
		return fmt.Errorf("update product rating: %w", err)
	}
	return nil
}
