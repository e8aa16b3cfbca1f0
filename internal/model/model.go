package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

type PaymentMethod string

const (
	PaymentMethodPayPal         PaymentMethod = "PayPal"
	PaymentMethodStripe         PaymentMethod = "Stripe"
	PaymentMethodCashOnDelivery PaymentMethod = "CashOnDelivery"
)

type User struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Password      string
	Role          string
	Address       *ShippingAddress
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type ShippingAddress struct {
	FullName      string   `json:"fullName"`
	StreetAddress string   `json:"streetAddress"`
	City          string   `json:"city"`
	PostalCode    string   `json:"postalCode"`
	Country       string   `json:"country"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
}

type Product struct {
	ID          uuid.UUID
	Name        string
	Slug        string
	Category    string
	Brand       string
	Description string
	Images      []string
	Price       decimal.Decimal
	Stock       int
	Rating      decimal.Decimal
	NumReviews  int
	IsFeatured  bool
	Banner      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartItem is a line snapshot. Quantity is at least 1 while the line is in a cart.
type CartItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"qty"`
}

type Cart struct {
	ID            uuid.UUID
	SessionCartID string
	UserID        *uuid.UUID
	Items         []CartItem
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	TotalPrice    decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CartOwner identifies whose cart a request addresses. UserID wins over SessionID.
type CartOwner struct {
	UserID    uuid.UUID
	SessionID string
}

func (o CartOwner) Authenticated() bool { return o.UserID != uuid.Nil }

type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	EmailAddress string `json:"email_address"`
	PricePaid    string `json:"pricePaid"`
}

type Order struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	PaymentResult   *PaymentResult
	ItemsPrice      decimal.Decimal
	ShippingPrice   decimal.Decimal
	TaxPrice        decimal.Decimal
	TotalPrice      decimal.Decimal
	IsPaid          bool
	PaidAt          *time.Time
	IsDelivered     bool
	DeliveredAt     *time.Time
	Items           []OrderItem
	UserName        string
	UserEmail       string
	CreatedAt       time.Time
}

type OrderItem struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	Slug      string
	Image     string
	Price     decimal.Decimal
	Quantity  int
}

type Review struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	ProductID          uuid.UUID
	Rating             int
	Title              string
	Description        string
	IsVerifiedPurchase bool
	UserName           string
	CreatedAt          time.Time
}

type CategoryCount struct {
	Category string
	Count    int
}

type MonthlySales struct {
	Month      string
	TotalSales decimal.Decimal
}

type SalesSummary struct {
	OrdersCount   int
	ProductsCount int
	UsersCount    int
	TotalSales    decimal.Decimal
	SalesData     []MonthlySales
	LatestSales   []Order
}

type ProductFilter struct {
	Query    string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Rating   int
	Sort     string
	Limit    int
	Offset   int
}

type ReceiptMessage struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
}
