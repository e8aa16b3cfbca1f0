package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/pricing"
	"github.com/flicky/go-storefront/internal/repository"
)

const productCacheTTL = 60 * time.Second

type ProductService struct {
	productRepo repository.ProductRepository
	redisClient *redis.Client
	pageSize    int
	latestLimit int
}

func NewProductService(productRepo repository.ProductRepository, redisClient *redis.Client, pageSize, latestLimit int) *ProductService {
	return &ProductService{productRepo: productRepo, redisClient: redisClient, pageSize: pageSize, latestLimit: latestLimit}
}

func productKey(id uuid.UUID) string { return "product:" + id.String() }
func slugKey(slug string) string     { return "product:slug:" + slug }

func (s *ProductService) cached(ctx context.Context, key string, load func() (*model.Product, error)) (*dto.ProductResponse, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, key).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := load()
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	resp := toProductResponse(product)

	if s.redisClient != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.redisClient.Set(ctx, key, data, productCacheTTL)
		}
	}
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	return s.cached(ctx, productKey(id), func() (*model.Product, error) { return s.productRepo.GetByID(ctx, id) })
}

func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*dto.ProductResponse, error) {
	return s.cached(ctx, slugKey(slug), func() (*model.Product, error) { return s.productRepo.GetBySlug(ctx, slug) })
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) (*dto.ProductListResponse, error) {
	minPrice, maxPrice, err := parsePriceRange(req.Price)
	if err != nil {
		return nil, err
	}
	category := req.Category
	if category == "all" {
		category = ""
	}
	query := req.Query
	if query == "all" {
		query = ""
	}

	products, total, err := s.productRepo.List(ctx, model.ProductFilter{
		Query:    query,
		Category: category,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Rating:   req.Rating,
		Sort:     req.Sort,
		Limit:    s.pageSize,
		Offset:   pageOffset(req.Page, s.pageSize),
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &dto.ProductListResponse{
		Products:   toProductResponses(products),
		Total:      total,
		Page:       req.Page,
		TotalPages: pageCount(total, s.pageSize),
	}, nil
}

// parsePriceRange accepts "min-max" with either bound optional, or "all".
func parsePriceRange(raw string) (*decimal.Decimal, *decimal.Decimal, error) {
	if raw == "" || raw == "all" {
		return nil, nil, nil
	}
	lo, hi, ok := strings.Cut(raw, "-")
	if !ok {
		return nil, nil, fmt.Errorf("%w: price must look like min-max", ErrValidation)
	}
	parse := func(v string) (*decimal.Decimal, error) {
		if v == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid price %q", ErrValidation, v)
		}
		return &d, nil
	}
	minPrice, err := parse(lo)
	if err != nil {
		return nil, nil, err
	}
	maxPrice, err := parse(hi)
	if err != nil {
		return nil, nil, err
	}
	return minPrice, maxPrice, nil
}

func (s *ProductService) Latest(ctx context.Context) ([]dto.ProductResponse, error) {
	products, err := s.productRepo.Latest(ctx, s.latestLimit)
	if err != nil {
		return nil, fmt.Errorf("latest products: %w", err)
	}
	return toProductResponses(products), nil
}

func (s *ProductService) Featured(ctx context.Context) ([]dto.ProductResponse, error) {
	products, err := s.productRepo.Featured(ctx, s.latestLimit)
	if err != nil {
		return nil, fmt.Errorf("featured products: %w", err)
	}
	return toProductResponses(products), nil
}

func (s *ProductService) Categories(ctx context.Context) ([]dto.CategoryResponse, error) {
	cats, err := s.productRepo.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	out := make([]dto.CategoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, dto.CategoryResponse{Category: c.Category, Count: c.Count})
	}
	return out, nil
}

func (s *ProductService) Create(ctx context.Context, actor Actor, req dto.ProductRequest) (*dto.ProductResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	product := req.ToModel()
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, slugConflict(err, "create product")
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	existing, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if existing == nil {
		return nil, ErrProductNotFound
	}

	product := req.ToModel()
	product.ID = id
	product.Rating = existing.Rating
	product.NumReviews = existing.NumReviews
	product.CreatedAt = existing.CreatedAt
	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, slugConflict(err, "update product")
	}

	s.InvalidateProduct(ctx, existing)
	s.InvalidateProduct(ctx, product)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	existing, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}
	if existing == nil {
		return ErrProductNotFound
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		if errors.Is(err, repository.ErrReferenced) {
			return ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}
	s.InvalidateProduct(ctx, existing)
	return nil
}

// InvalidateProduct drops both cache entries of a product.
func (s *ProductService) InvalidateProduct(ctx context.Context, p *model.Product) {
	if s.redisClient != nil && p != nil {
		s.redisClient.Del(ctx, productKey(p.ID), slugKey(p.Slug))
	}
}

func slugConflict(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: slug already in use", ErrValidation)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func toProductResponses(products []model.Product) []dto.ProductResponse {
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, toProductResponse(&products[i]))
	}
	return out
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	return dto.ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Category:    p.Category,
		Brand:       p.Brand,
		Description: p.Description,
		Images:      p.Images,
		Price:       pricing.Format(p.Price),
		Stock:       p.Stock,
		Rating:      pricing.Format(p.Rating),
		NumReviews:  p.NumReviews,
		IsFeatured:  p.IsFeatured,
		Banner:      p.Banner,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
