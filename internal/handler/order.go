package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/middleware"
	"github.com/flicky/go-storefront/internal/pricing"
	"github.com/flicky/go-storefront/internal/service"
)

type OrderHandler struct {
	orderService       *service.OrderService
	paymentService     *service.PaymentService
	fulfillmentService *service.FulfillmentService
}

func NewOrderHandler(orderService *service.OrderService, paymentService *service.PaymentService,
	fulfillmentService *service.FulfillmentService) *OrderHandler {
	return &OrderHandler{orderService: orderService, paymentService: paymentService, fulfillmentService: fulfillmentService}
}

func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	order, err := h.orderService.PlaceOrder(c.Request.Context(), middleware.CartOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.Response{
		Success:    true,
		Message:    "order created",
		Data:       dto.PlaceOrderResponse{OrderID: order.ID},
		RedirectTo: "/order/" + order.ID.String(),
	})
}

func (h *OrderHandler) ListMine(c *gin.Context) {
	var req dto.PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	orders, pages, err := h.orderService.ListMyOrders(c.Request.Context(), middleware.GetActor(c), req.Page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, toOrderResponses(orders), pages)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", toOrderResponse(order))
}

func (h *OrderHandler) CreatePaymentIntent(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	intent, err := h.paymentService.CreatePaymentIntent(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", dto.PaymentIntentResponse{ID: intent.ID, ClientSecret: intent.ClientSecret})
}

func (h *OrderHandler) Capture(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.CapturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.paymentService.CaptureAndApprove(c.Request.Context(), middleware.GetActor(c), id, req.PaymentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "your order has been paid", toOrderResponse(order))
}

// --- admin ---

func (h *OrderHandler) List(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	orders, pages, err := h.orderService.ListOrders(c.Request.Context(), middleware.GetActor(c), req.Query, req.Page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, toOrderResponses(orders), pages)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.orderService.DeleteOrder(c.Request.Context(), middleware.GetActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "order deleted", nil)
}

func (h *OrderHandler) Deliver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillmentService.DeliverOrder(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "order marked as delivered", toOrderResponse(order))
}

func (h *OrderHandler) PayCash(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	order, err := h.paymentService.MarkPaidByCash(c.Request.Context(), middleware.GetActor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "order marked as paid", toOrderResponse(order))
}

func (h *OrderHandler) Summary(c *gin.Context) {
	summary, err := h.orderService.Summary(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	sales := make([]dto.MonthlySalesResponse, 0, len(summary.SalesData))
	for _, m := range summary.SalesData {
		sales = append(sales, dto.MonthlySalesResponse{Month: m.Month, TotalSales: pricing.Format(m.TotalSales)})
	}
	respondOK(c, http.StatusOK, "", dto.SummaryResponse{
		OrdersCount:   summary.OrdersCount,
		ProductsCount: summary.ProductsCount,
		UsersCount:    summary.UsersCount,
		TotalSales:    pricing.Format(summary.TotalSales),
		SalesData:     sales,
		LatestSales:   toOrderResponses(summary.LatestSales),
	})
}
