package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/cartstate"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/pricing"
	"github.com/flicky/go-storefront/internal/repository"
)

// CartService keeps carts keyed by owner. Adding checks stock but never
// reserves it; inventory is consumed only when an order is paid.
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	calc        *pricing.Calculator
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, calc *pricing.Calculator) *CartService {
	if calc == nil {
		calc = pricing.Default()
	}
	return &CartService{cartRepo: cartRepo, productRepo: productRepo, calc: calc}
}

// findCart prefers the user's cart and falls back to the guest session cart.
func findCart(ctx context.Context, repo repository.CartRepository, owner model.CartOwner) (*model.Cart, error) {
	if owner.Authenticated() {
		cart, err := repo.GetByUserID(ctx, owner.UserID)
		if err != nil || cart != nil {
			return cart, err
		}
	}
	if owner.SessionID == "" {
		return nil, nil
	}
	return repo.GetBySessionID(ctx, owner.SessionID)
}

// GetCart returns nil without error when the owner has no cart at all.
func (s *CartService) GetCart(ctx context.Context, owner model.CartOwner) (*model.Cart, error) {
	cart, err := findCart(ctx, s.cartRepo, owner)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) AddItem(ctx context.Context, owner model.CartOwner, productID uuid.UUID) (*model.Cart, error) {
	if !owner.Authenticated() && owner.SessionID == "" {
		return nil, fmt.Errorf("%w: missing cart session", ErrValidation)
	}

	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	cart, err := findCart(ctx, s.cartRepo, owner)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if cart == nil {
		if product.Stock < 1 {
			return nil, ErrOutOfStock
		}
		cart = &model.Cart{SessionCartID: owner.SessionID, Items: cartstate.AddOne(nil, lineSnapshot(product))}
		if owner.Authenticated() {
			uid := owner.UserID
			cart.UserID = &uid
		}
		s.calc.Apply(cart)
		if err := s.cartRepo.Create(ctx, cart); err != nil {
			return nil, fmt.Errorf("create cart: %w", err)
		}
		return cart, nil
	}

	// The next unit is checked, not the whole demand: carts do not reserve stock.
	nextQty := 1
	if i := cartstate.IndexOf(cart.Items, productID); i >= 0 {
		nextQty = cart.Items[i].Quantity + 1
	}
	if product.Stock < nextQty {
		return nil, ErrOutOfStock
	}

	cart.Items = cartstate.AddOne(cart.Items, lineSnapshot(product))
	s.calc.Apply(cart)
	if err := s.cartRepo.Update(ctx, cart); err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) RemoveItem(ctx context.Context, owner model.CartOwner, productID uuid.UUID) (*model.Cart, error) {
	cart, err := findCart(ctx, s.cartRepo, owner)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart == nil {
		return nil, ErrCartNotFound
	}

	items, err := cartstate.RemoveOne(cart.Items, productID)
	if err != nil {
		if errors.Is(err, cartstate.ErrItemNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	cart.Items = items
	s.calc.Apply(cart)
	if err := s.cartRepo.Update(ctx, cart); err != nil {
		return nil, fmt.Errorf("update cart: %w", err)
	}
	return cart, nil
}

// MergeGuestCartIntoUser hands the guest session cart over to the user. A cart
// the user already had is discarded, not merged line by line.
func (s *CartService) MergeGuestCartIntoUser(ctx context.Context, sessionID string, userID uuid.UUID) error {
	if sessionID == "" {
		return nil
	}
	guest, err := s.cartRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get guest cart: %w", err)
	}
	if guest == nil {
		return nil
	}

	tx, err := s.cartRepo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.cartRepo.DeleteByUserID(ctx, tx, userID); err != nil {
		return err
	}
	if err := s.cartRepo.AssignToUser(ctx, tx, guest.ID, userID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cart merge: %w", err)
	}
	return nil
}

// MergeHook adapts MergeGuestCartIntoUser to the auth service's hook signature.
func (s *CartService) MergeHook() PostAuthHook {
	return func(ctx context.Context, user *model.User, sessionID string) error {
		return s.MergeGuestCartIntoUser(ctx, sessionID, user.ID)
	}
}

func lineSnapshot(p *model.Product) model.CartItem {
	item := model.CartItem{ProductID: p.ID, Name: p.Name, Slug: p.Slug, Price: p.Price}
	if len(p.Images) > 0 {
		item.Image = p.Images[0]
	}
	return item
}
