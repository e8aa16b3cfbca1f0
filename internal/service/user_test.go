package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
)

var testPaymentMethods = []string{"PayPal", "Stripe", "CashOnDelivery"}

func TestUserService_ProfileUpdates(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, testPaymentMethods, "PayPal", 10)
	u := repo.add(&model.User{Name: "Jane", Email: "jane@example.com", Role: model.RoleCustomer})
	me := Actor{UserID: u.ID, Role: model.RoleCustomer}
	ctx := context.Background()

	addr := model.ShippingAddress{FullName: "Jane Doe", StreetAddress: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
	require.NoError(t, svc.UpdateAddress(ctx, me, addr))
	require.NoError(t, svc.UpdatePaymentMethod(ctx, me, "Stripe"))
	require.NoError(t, svc.UpdateProfile(ctx, me, "Jane Doe"))

	got, err := svc.Me(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "Stripe", got.PaymentMethod)
	require.NotNil(t, got.Address)
	assert.Equal(t, "Springfield", got.Address.City)

	err = svc.UpdatePaymentMethod(ctx, me, "Bitcoin")
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.UpdateProfile(ctx, Actor{UserID: uuid.New()}, "Ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_PaymentMethodOptions(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, testPaymentMethods, "PayPal", 10)
	u := repo.add(&model.User{Name: "Jane", Email: "jane@example.com", Role: model.RoleCustomer})
	me := Actor{UserID: u.ID, Role: model.RoleCustomer}
	ctx := context.Background()

	opts, err := svc.PaymentMethodOptions(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, "PayPal", opts.Selected)
	assert.Equal(t, testPaymentMethods, opts.Methods)

	require.NoError(t, svc.UpdatePaymentMethod(ctx, me, "CashOnDelivery"))
	opts, err = svc.PaymentMethodOptions(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, "CashOnDelivery", opts.Selected)

	_, err = svc.PaymentMethodOptions(ctx, Actor{UserID: uuid.New()})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_AdminOperations(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(repo, testPaymentMethods, "PayPal", 10)
	u := repo.add(&model.User{Name: "Jane", Email: "jane@example.com", Role: model.RoleCustomer})
	customer := Actor{UserID: u.ID, Role: model.RoleCustomer}
	ctx := context.Background()

	_, _, err := svc.List(ctx, customer, "", 1)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, customer, u.ID), ErrForbidden)

	users, pages, err := svc.List(ctx, adminActor, "", 1)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pages)

	require.NoError(t, svc.Update(ctx, adminActor, u.ID, dto.AdminUpdateUserRequest{Name: "Jane Admin", Role: model.RoleAdmin}))
	assert.Equal(t, model.RoleAdmin, repo.byID[u.ID].Role)

	require.NoError(t, svc.Delete(ctx, adminActor, u.ID))
	assert.ErrorIs(t, svc.Delete(ctx, adminActor, u.ID), ErrUserNotFound)
}
