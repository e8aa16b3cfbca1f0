package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/repository"
)

type UserService struct {
	userRepo       repository.UserRepository
	paymentMethods []string
	defaultMethod  string
	pageSize       int
}

func NewUserService(userRepo repository.UserRepository, paymentMethods []string, defaultMethod string, pageSize int) *UserService {
	return &UserService{
		userRepo:       userRepo,
		paymentMethods: paymentMethods,
		defaultMethod:  defaultMethod,
		pageSize:       pageSize,
	}
}

func (s *UserService) Me(ctx context.Context, actor Actor) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *UserService) UpdateAddress(ctx context.Context, actor Actor, addr model.ShippingAddress) error {
	return userWrite(s.userRepo.UpdateAddress(ctx, actor.UserID, addr))
}

// PaymentMethodOptions lists the accepted methods with the user's choice
// selected, falling back to the store default when none is saved yet.
func (s *UserService) PaymentMethodOptions(ctx context.Context, actor Actor) (*dto.PaymentMethodOptions, error) {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	selected := string(user.PaymentMethod)
	if selected == "" {
		selected = s.defaultMethod
	}
	return &dto.PaymentMethodOptions{Selected: selected, Methods: s.paymentMethods}, nil
}

// UpdatePaymentMethod only accepts one of the configured payment methods.
func (s *UserService) UpdatePaymentMethod(ctx context.Context, actor Actor, method string) error {
	if !slices.Contains(s.paymentMethods, method) {
		return fmt.Errorf("%w: invalid payment method %q", ErrValidation, method)
	}
	return userWrite(s.userRepo.UpdatePaymentMethod(ctx, actor.UserID, model.PaymentMethod(method)))
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, name string) error {
	return userWrite(s.userRepo.UpdateProfile(ctx, actor.UserID, name))
}

func (s *UserService) List(ctx context.Context, actor Actor, query string, page int) ([]dto.UserResponse, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	users, total, err := s.userRepo.List(ctx, query, s.pageSize, pageOffset(page, s.pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, toUserResponse(&users[i]))
	}
	return out, pageCount(total, s.pageSize), nil
}

func (s *UserService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.AdminUpdateUserRequest) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return userWrite(s.userRepo.UpdateByAdmin(ctx, id, req.Name, req.Role))
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return userWrite(s.userRepo.Delete(ctx, id))
}

func userWrite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}
