package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

type productInvalidator interface {
	InvalidateProduct(ctx context.Context, p *model.Product)
}

type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	productRepo repository.ProductRepository
	cache       productInvalidator
}

func NewReviewService(reviewRepo repository.ReviewRepository, productRepo repository.ProductRepository, cache productInvalidator) *ReviewService {
	return &ReviewService{reviewRepo: reviewRepo, productRepo: productRepo, cache: cache}
}

// Upsert stores the actor's review of a product, replacing an earlier one, and
// refreshes the product's rating and review count in the same transaction.
func (s *ReviewService) Upsert(ctx context.Context, actor Actor, productID uuid.UUID, req dto.ReviewRequest) (*dto.ReviewResponse, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	review := &model.Review{
		UserID:             actor.UserID,
		ProductID:          productID,
		Rating:             req.Rating,
		Title:              req.Title,
		Description:        req.Description,
		IsVerifiedPurchase: true,
	}

	tx, err := s.reviewRepo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.reviewRepo.Upsert(ctx, tx, review); err != nil {
		return nil, err
	}
	avg, n, err := s.reviewRepo.Stats(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if err := s.productRepo.UpdateRating(ctx, tx, productID, avg, n); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateProduct(ctx, product)
	}
	resp := toReviewResponse(review)
	return &resp, nil
}

func (s *ReviewService) ListByProduct(ctx context.Context, productID uuid.UUID) ([]dto.ReviewResponse, error) {
	reviews, err := s.reviewRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	out := make([]dto.ReviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewResponse(&reviews[i]))
	}
	return out, nil
}

func (s *ReviewService) GetMine(ctx context.Context, actor Actor, productID uuid.UUID) (*dto.ReviewResponse, error) {
	review, err := s.reviewRepo.GetByUserAndProduct(ctx, actor.UserID, productID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	resp := toReviewResponse(review)
	return &resp, nil
}

func toReviewResponse(r *model.Review) dto.ReviewResponse {
	return dto.ReviewResponse{
		ID:                 r.ID,
		ProductID:          r.ProductID,
		UserID:             r.UserID,
		UserName:           r.UserName,
		Rating:             r.Rating,
		Title:              r.Title,
		Description:        r.Description,
		IsVerifiedPurchase: r.IsVerifiedPurchase,
		CreatedAt:          r.CreatedAt,
	}
}
