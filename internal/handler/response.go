package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/model"
	"github.com/flicky/go-storefront/internal/pricing"
	"github.com/flicky/go-storefront/internal/service"
)

type errorMapping struct {
	err    error
	status int
	// message replaces the error text when set.
	message string
}

var errorTable = []errorMapping{
	{err: service.ErrValidation, status: http.StatusBadRequest},
	{err: service.ErrForbidden, status: http.StatusForbidden},
	{err: service.ErrInvalidCredentials, status: http.StatusUnauthorized},
	{err: service.ErrUserAlreadyExists, status: http.StatusConflict},
	{err: service.ErrUserNotFound, status: http.StatusNotFound},
	{err: service.ErrProductNotFound, status: http.StatusNotFound},
	{err: service.ErrReviewNotFound, status: http.StatusNotFound},
	{err: service.ErrCartNotFound, status: http.StatusNotFound},
	{err: service.ErrItemNotFound, status: http.StatusNotFound},
	{err: service.ErrOrderNotFound, status: http.StatusNotFound},
	{err: service.ErrOutOfStock, status: http.StatusConflict},
	{err: service.ErrEmptyCart, status: http.StatusBadRequest},
	{err: service.ErrNoShippingAddress, status: http.StatusBadRequest},
	{err: service.ErrNoPaymentMethod, status: http.StatusBadRequest},
	{err: service.ErrAlreadyPaid, status: http.StatusConflict},
	{err: service.ErrNotPaid, status: http.StatusConflict},
	{err: service.ErrPaymentVerificationFailed, status: http.StatusPaymentRequired},
	{err: service.ErrUnsupportedPaymentMethod, status: http.StatusBadRequest},
	{err: service.ErrPaymentAlreadyCaptured, status: http.StatusConflict},
	{err: service.ErrProductInUse, status: http.StatusConflict},
	{err: service.ErrPaymentProcessor, status: http.StatusBadGateway, message: "payment processor error, please try again"},
}

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, dto.Response{Success: true, Message: message, Data: data})
}

func respondPage(c *gin.Context, data any, totalPages int) {
	c.JSON(http.StatusOK, dto.Response{Success: true, Data: data, TotalPages: &totalPages})
}

func respondFail(c *gin.Context, status int, message string) {
	c.JSON(status, dto.Response{Success: false, Message: message})
}

// badRequest turns a binding failure into per-field messages keyed by the
// JSON name; anything else is reported as a malformed body.
func badRequest(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondFail(c, http.StatusBadRequest, "invalid request body")
		return
	}
	fields := make(map[string]string, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := validationMessage(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fe.Field()+" "+msg)
	}
	c.JSON(http.StatusBadRequest, dto.Response{Success: false, Message: strings.Join(msgs, "; "), Data: fields})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "eqfield":
		return "does not match"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "price":
		return "must be a non-negative amount with at most two decimals"
	case "latitude", "longitude":
		return "must be a valid " + fe.Tag()
	}
	return "is invalid"
}

// respondError maps a service error to the envelope. Errors outside the table
// are hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	resp := dto.Response{Success: false, Message: "internal server error"}
	status := http.StatusInternalServerError

	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			status = m.status
			resp.Message = err.Error()
			if m.message != "" {
				resp.Message = m.message
			}
			break
		}
	}

	var redirect *service.RedirectError
	if errors.As(err, &redirect) {
		resp.RedirectTo = redirect.RedirectTo
	}
	c.JSON(status, resp)
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondFail(c, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// RegisterValidators teaches gin's validator about decimal amounts and makes
// it report fields by their JSON name.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected validator engine")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			if name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]; name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	return v.RegisterValidation("price", validPrice)
}

// validPrice accepts non-negative amounts with at most two decimal places.
func validPrice(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.IsNegative() && d.Equal(d.Round(2))
}

func toCartResponse(cart *model.Cart) dto.CartResponse {
	items := make([]dto.CartItemResponse, 0, len(cart.Items))
	for _, it := range cart.Items {
		items = append(items, dto.CartItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Slug:      it.Slug,
			Image:     it.Image,
			Price:     pricing.Format(it.Price),
			Quantity:  it.Quantity,
		})
	}
	return dto.CartResponse{
		ID:            cart.ID,
		Items:         items,
		ItemsPrice:    pricing.Format(cart.ItemsPrice),
		ShippingPrice: pricing.Format(cart.ShippingPrice),
		TaxPrice:      pricing.Format(cart.TaxPrice),
		TotalPrice:    pricing.Format(cart.TotalPrice),
	}
}

func toOrderResponse(order *model.Order) dto.OrderResponse {
	var items []dto.OrderItemResponse
	for _, item := range order.Items {
		items = append(items, dto.OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Slug:      item.Slug,
			Image:     item.Image,
			Price:     pricing.Format(item.Price),
			Quantity:  item.Quantity,
		})
	}
	return dto.OrderResponse{
		ID:              order.ID,
		UserID:          order.UserID,
		UserName:        order.UserName,
		UserEmail:       order.UserEmail,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   string(order.PaymentMethod),
		PaymentResult:   order.PaymentResult,
		ItemsPrice:      pricing.Format(order.ItemsPrice),
		ShippingPrice:   pricing.Format(order.ShippingPrice),
		TaxPrice:        pricing.Format(order.TaxPrice),
		TotalPrice:      pricing.Format(order.TotalPrice),
		IsPaid:          order.IsPaid,
		PaidAt:          order.PaidAt,
		IsDelivered:     order.IsDelivered,
		DeliveredAt:     order.DeliveredAt,
		Items:           items,
		CreatedAt:       order.CreatedAt,
	}
}

func toOrderResponses(orders []model.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, toOrderResponse(&orders[i]))
	}
	return out
}
