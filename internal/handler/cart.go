package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-storefront/internal/dto"
	"github.com/flicky/go-storefront/internal/middleware"
	"github.com/flicky/go-storefront/internal/service"
)

type CartHandler struct {
	svc *service.CartService
}

func NewCartHandler(svc *service.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.svc.GetCart(c.Request.Context(), middleware.CartOwner(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if cart == nil {
		respondOK(c, http.StatusOK, "", nil)
		return
	}
	respondOK(c, http.StatusOK, "", toCartResponse(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req dto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cart, err := h.svc.AddItem(c.Request.Context(), middleware.CartOwner(c), req.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "item added to cart", toCartResponse(cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	productID, ok := parseID(c, "productId")
	if !ok {
		return
	}

	cart, err := h.svc.RemoveItem(c.Request.Context(), middleware.CartOwner(c), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "item removed from cart", toCartResponse(cart))
}
