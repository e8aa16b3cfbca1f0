package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/model"
)

// --- Envelope ---

// Response is the shape of every API reply.
type Response struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	RedirectTo string `json:"redirectTo,omitempty"`
	TotalPages *int   `json:"totalPages,omitempty"`
}

type PageRequest struct {
	Page int `form:"page,default=1" binding:"min=1"`
}

// --- Auth ---

type RegisterRequest struct {
	Name            string `json:"name" binding:"required,min=3"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// --- User ---

type UserResponse struct {
	ID            uuid.UUID              `json:"id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	Role          string                 `json:"role"`
	Address       *model.ShippingAddress `json:"address,omitempty"`
	PaymentMethod string                 `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

type ShippingAddressRequest struct {
	FullName      string   `json:"fullName" binding:"required,min=3"`
	StreetAddress string   `json:"streetAddress" binding:"required,min=3"`
	City          string   `json:"city" binding:"required,min=3"`
	PostalCode    string   `json:"postalCode" binding:"required,min=3"`
	Country       string   `json:"country" binding:"required,min=3"`
	Lat           *float64 `json:"lat" binding:"omitempty,latitude"`
	Lng           *float64 `json:"lng" binding:"omitempty,longitude"`
}

func (r ShippingAddressRequest) ToModel() model.ShippingAddress {
	return model.ShippingAddress{
		FullName:      r.FullName,
		StreetAddress: r.StreetAddress,
		City:          r.City,
		PostalCode:    r.PostalCode,
		Country:       r.Country,
		Lat:           r.Lat,
		Lng:           r.Lng,
	}
}

type PaymentMethodRequest struct {
	Type string `json:"type" binding:"required"`
}

// PaymentMethodOptions prefills the payment method form.
type PaymentMethodOptions struct {
	Selected string   `json:"selected"`
	Methods  []string `json:"methods"`
}

type UpdateProfileRequest struct {
	Name string `json:"name" binding:"required,min=3"`
}

type AdminUpdateUserRequest struct {
	Name string `json:"name" binding:"required,min=3"`
	Role string `json:"role" binding:"required,oneof=admin customer"`
}

type ListUsersRequest struct {
	Page  int    `form:"page,default=1" binding:"min=1"`
	Query string `form:"query"`
}

// --- Product ---

type ProductRequest struct {
	Name        string          `json:"name" binding:"required,min=3"`
	Slug        string          `json:"slug" binding:"required,min=3"`
	Category    string          `json:"category" binding:"required,min=3"`
	Brand       string          `json:"brand" binding:"required,min=3"`
	Description string          `json:"description" binding:"required,min=3"`
	Images      []string        `json:"images" binding:"required,min=1,dive,required"`
	Price       decimal.Decimal `json:"price" binding:"price"`
	Stock       int             `json:"stock" binding:"min=0"`
	IsFeatured  bool            `json:"isFeatured"`
	Banner      *string         `json:"banner"`
}

func (r ProductRequest) ToModel() *model.Product {
	return &model.Product{
		Name:        r.Name,
		Slug:        r.Slug,
		Category:    r.Category,
		Brand:       r.Brand,
		Description: r.Description,
		Images:      r.Images,
		Price:       r.Price,
		Stock:       r.Stock,
		IsFeatured:  r.IsFeatured,
		Banner:      r.Banner,
	}
}

// ListProductsRequest mirrors the storefront search page query string. Price
// is a "min-max" range, either side may be empty.
type ListProductsRequest struct {
	Page     int    `form:"page,default=1" binding:"min=1"`
	Query    string `form:"q"`
	Category string `form:"category"`
	Price    string `form:"price"`
	Rating   int    `form:"rating" binding:"min=0,max=5"`
	Sort     string `form:"sort,default=newest" binding:"oneof=newest lowest highest rating"`
}

type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Brand       string    `json:"brand"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Rating      string    `json:"rating"`
	NumReviews  int       `json:"numReviews"`
	IsFeatured  bool      `json:"isFeatured"`
	Banner      *string   `json:"banner,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProductListResponse struct {
	Products   []ProductResponse `json:"products"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	TotalPages int               `json:"totalPages"`
}

type CategoryResponse struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// --- Review ---

type ReviewRequest struct {
	Rating      int    `json:"rating" binding:"required,min=1,max=5"`
	Title       string `json:"title" binding:"required,min=3"`
	Description string `json:"description" binding:"required,min=3"`
}

type ReviewResponse struct {
	ID                 uuid.UUID `json:"id"`
	ProductID          uuid.UUID `json:"productId"`
	UserID             uuid.UUID `json:"userId"`
	UserName           string    `json:"userName,omitempty"`
	Rating             int       `json:"rating"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	IsVerifiedPurchase bool      `json:"isVerifiedPurchase"`
	CreatedAt          time.Time `json:"createdAt"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
}

type CartResponse struct {
	ID            uuid.UUID          `json:"id"`
	Items         []CartItemResponse `json:"items"`
	ItemsPrice    string             `json:"itemsPrice"`
	ShippingPrice string             `json:"shippingPrice"`
	TaxPrice      string             `json:"taxPrice"`
	TotalPrice    string             `json:"totalPrice"`
}

type CartItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Image     string    `json:"image"`
	Price     string    `json:"price"`
	Quantity  int       `json:"qty"`
}

// --- Order ---

type PlaceOrderResponse struct {
	OrderID uuid.UUID `json:"orderId"`
}

type OrderResponse struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"userId"`
	UserName        string                `json:"userName,omitempty"`
	UserEmail       string                `json:"userEmail,omitempty"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	PaymentResult   *model.PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice      string                `json:"itemsPrice"`
	ShippingPrice   string                `json:"shippingPrice"`
	TaxPrice        string                `json:"taxPrice"`
	TotalPrice      string                `json:"totalPrice"`
	IsPaid          bool                  `json:"isPaid"`
	PaidAt          *time.Time            `json:"paidAt,omitempty"`
	IsDelivered     bool                  `json:"isDelivered"`
	DeliveredAt     *time.Time            `json:"deliveredAt,omitempty"`
	Items           []OrderItemResponse   `json:"orderItems,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
}

type OrderItemResponse struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Image     string    `json:"image"`
	Price     string    `json:"price"`
	Quantity  int       `json:"qty"`
}

type ListOrdersRequest struct {
	Page  int    `form:"page,default=1" binding:"min=1"`
	Query string `form:"query"`
}

// --- Payment ---

type PaymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret,omitempty"`
}

type CapturePaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required"`
}

// --- Admin ---

type MonthlySalesResponse struct {
	Month      string `json:"month"`
	TotalSales string `json:"totalSales"`
}

type SummaryResponse struct {
	OrdersCount   int                    `json:"ordersCount"`
	ProductsCount int                    `json:"productsCount"`
	UsersCount    int                    `json:"usersCount"`
	TotalSales    string                 `json:"totalSales"`
	SalesData     []MonthlySalesResponse `json:"salesData"`
	LatestSales   []OrderResponse        `json:"latestSales"`
}
