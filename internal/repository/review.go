package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
)

type ReviewRepository interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Upsert(ctx context.Context, tx pgx.Tx, review *model.Review) error
	Stats(ctx context.Context, tx pgx.Tx, productID uuid.UUID) (decimal.Decimal, int, error)
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error)
	GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*model.Review, error)
}

type pgReviewRepo struct{ pool *pgxpool.Pool }

func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &pgReviewRepo{pool: pool}
}

func (r *pgReviewRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Upsert keeps a single review per (user, product): a second submission
// overwrites rating, title and description of the first.
func (r *pgReviewRepo) Upsert(ctx context.Context, tx pgx.Tx, review *model.Review) error {
	review.ID = uuid.New()
	err := tx.QueryRow(ctx,
		`INSERT INTO reviews (id, user_id, product_id, rating, title, description, is_verified_purchase, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (user_id, product_id) DO UPDATE
			SET rating = EXCLUDED.rating, title = EXCLUDED.title, description = EXCLUDED.description
		 RETURNING id, created_at`,
		review.ID, review.UserID, review.ProductID, review.Rating, review.Title, review.Description,
		review.IsVerifiedPurchase,
	).Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert review: %w", err)
	}
	return nil
}

// Stats returns the average rating rounded to two places and the review count.
func (r *pgReviewRepo) Stats(ctx context.Context, tx pgx.Tx, productID uuid.UUID) (decimal.Decimal, int, error) {
	var avg decimal.Decimal
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COALESCE(ROUND(AVG(rating), 2), 0), COUNT(*) FROM reviews WHERE product_id = $1`, productID,
	).Scan(&avg, &n)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("review stats: %w", err)
	}
	return avg, n, nil
}

func (r *pgReviewRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.user_id, r.product_id, r.rating, r.title, r.description, r.is_verified_purchase,
			r.created_at, u.name
		 FROM reviews r JOIN users u ON u.id = r.user_id
		 WHERE r.product_id = $1 ORDER BY r.created_at DESC`, productID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &rv.Title, &rv.Description,
			&rv.IsVerifiedPurchase, &rv.CreatedAt, &rv.UserName); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *pgReviewRepo) GetByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*model.Review, error) {
	rv := &model.Review{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, product_id, rating, title, description, is_verified_purchase, created_at
		 FROM reviews WHERE user_id = $1 AND product_id = $2`, userID, productID,
	).Scan(&rv.ID, &rv.UserID, &rv.ProductID, &rv.Rating, &rv.Title, &rv.Description,
		&rv.IsVerifiedPurchase, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get review: %w", err)
	}
	return rv, nil
}
