package service

import (
	"errors"

	"github.com/google/uuid"

	"github.com/flicky/go-storefront/internal/model"
)

var (
	ErrValidation                = errors.New("validation failed")
	ErrForbidden                 = errors.New("forbidden")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrUserAlreadyExists         = errors.New("user already exists")
	ErrUserNotFound              = errors.New("user not found")
	ErrProductNotFound           = errors.New("product not found")
	ErrReviewNotFound            = errors.New("review not found")
	ErrCartNotFound              = errors.New("cart not found")
	ErrItemNotFound              = errors.New("item not found in cart")
	ErrOutOfStock                = errors.New("not enough stock")
	ErrEmptyCart                 = errors.New("your cart is empty")
	ErrNoShippingAddress         = errors.New("no shipping address")
	ErrNoPaymentMethod           = errors.New("no payment method")
	ErrOrderNotFound             = errors.New("order not found")
	ErrAlreadyPaid               = errors.New("order is already paid")
	ErrNotPaid                   = errors.New("order is not paid")
	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrPaymentProcessor          = errors.New("payment processor error")
	ErrUnsupportedPaymentMethod  = errors.New("unsupported payment method")
	ErrPaymentAlreadyCaptured    = errors.New("payment already captured, awaiting settlement")
	ErrProductInUse              = errors.New("product is referenced by existing orders")
)

// RedirectError is an expected failure that tells the client where to go next,
// e.g. back to the cart or to the shipping address form.
type RedirectError struct {
	Err        error
	RedirectTo string
}

func (e *RedirectError) Error() string { return e.Err.Error() }
func (e *RedirectError) Unwrap() error { return e.Err }

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

// canAccess reports whether the actor owns the resource or is an admin.
func canAccess(a Actor, ownerID uuid.UUID) bool {
	return a.IsAdmin() || (a.UserID != uuid.Nil && a.UserID == ownerID)
}

func pageOffset(page, size int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * size
}

func pageCount(total, size int) int {
	if size < 1 {
		return 0
	}
	return (total + size - 1) / size
}
